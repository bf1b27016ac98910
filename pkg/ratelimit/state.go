// Package ratelimit observes the ESI error limit. It records the
// X-ESI-Error-Limit-Remain and X-ESI-Error-Limit-Reset headers of every
// completed exchange in Redis so that all proxy instances report the same
// state. It never blocks or delays requests.
package ratelimit

import (
	"time"
)

// RedisKeyState is the hash holding the shared error-limit state.
const RedisKeyState = "esi:rate_limit:state"

// Hash fields of RedisKeyState.
const (
	fieldErrorsRemaining = "errors_remaining"
	fieldResetAt         = "reset_at"
	fieldLastUpdate      = "last_update"
)

// Thresholds for error-limit levels.
const (
	// ErrorThresholdCritical marks the level critical below this value.
	// ESI bans the IP when the budget reaches zero.
	ErrorThresholdCritical = 5

	// ErrorThresholdWarning marks the level warning below this value.
	ErrorThresholdWarning = 20

	// ErrorThresholdHealthy indicates normal operation at or above this value.
	ErrorThresholdHealthy = 50
)

// Level summarizes the remaining error budget.
type Level string

const (
	LevelHealthy  Level = "healthy"
	LevelDegraded Level = "degraded"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// State represents the current ESI error limit state.
// This state is shared across all instances via Redis.
type State struct {
	// ErrorsRemaining is the number of errors allowed before ESI blocks requests.
	// Extracted from the X-ESI-Error-Limit-Remain header.
	ErrorsRemaining int `json:"errors_remaining"`

	// ResetAt is the timestamp when the error limit window resets.
	// Calculated from the X-ESI-Error-Limit-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when ErrorsRemaining >= ErrorThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`

	Level Level `json:"level"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsCritical reports whether the budget is nearly exhausted.
func (s *State) IsCritical() bool {
	return s.ErrorsRemaining < ErrorThresholdCritical
}

// IsWarning reports whether the budget is low but not yet critical.
func (s *State) IsWarning() bool {
	return s.ErrorsRemaining < ErrorThresholdWarning && !s.IsCritical()
}

// TimeUntilReset returns the duration until the error limit resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth recomputes IsHealthy and Level from ErrorsRemaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.ErrorsRemaining >= ErrorThresholdHealthy

	switch {
	case s.IsCritical():
		s.Level = LevelCritical
	case s.IsWarning():
		s.Level = LevelWarning
	case s.IsHealthy:
		s.Level = LevelHealthy
	default:
		s.Level = LevelDegraded
	}
}
