package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ESI error-limit response headers.
const (
	HeaderErrorLimitRemain = "X-ESI-Error-Limit-Remain"
	HeaderErrorLimitReset  = "X-ESI-Error-Limit-Reset"
)

// Prometheus metrics for error limit tracking.
var (
	esiErrorsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "esi_errors_remaining",
		Help: "Number of errors remaining in current ESI rate limit window",
	})

	esiErrorLimitUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esi_error_limit_updates_total",
		Help: "Total number of error limit observations by level",
	}, []string{"level"})
)

// Tracker records ESI error limit headers in Redis.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new error limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// defaultState is reported until the first headers have been observed.
func (t *Tracker) defaultState() *State {
	now := t.now()
	state := &State{
		ErrorsRemaining: 100, // Assume healthy until we get real data
		ResetAt:         now.Add(60 * time.Second),
		LastUpdate:      now,
	}
	state.UpdateHealth()
	return state
}

// GetState retrieves the current error limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	fields, err := t.redis.HGetAll(ctx, RedisKeyState).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if len(fields) == 0 {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return t.defaultState(), nil
	}

	remain, err := strconv.Atoi(fields[fieldErrorsRemaining])
	if err != nil {
		return nil, fmt.Errorf("parse errors remaining: %w", err)
	}
	resetAt, err := strconv.ParseInt(fields[fieldResetAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	lastUpdate, err := strconv.ParseInt(fields[fieldLastUpdate], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &State{
		ErrorsRemaining: remain,
		ResetAt:         time.Unix(resetAt, 0),
		LastUpdate:      time.Unix(lastUpdate, 0),
	}
	state.UpdateHealth()

	return state, nil
}

// errNoHeaders is returned by parseHeaders when the response carries no
// error-limit information.
var errNoHeaders = errors.New("no error limit headers")

// parseHeaders builds a State from ESI error limit headers.
func parseHeaders(headers http.Header, now time.Time) (*State, error) {
	remainStr := headers.Get(HeaderErrorLimitRemain)
	if remainStr == "" {
		return nil, errNoHeaders
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", HeaderErrorLimitRemain, err)
	}

	resetStr := headers.Get(HeaderErrorLimitReset)
	if resetStr == "" {
		return nil, fmt.Errorf("%s header missing", HeaderErrorLimitReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", HeaderErrorLimitReset, err)
	}

	state := &State{
		ErrorsRemaining: remain,
		ResetAt:         now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate:      now,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders parses ESI error limit headers and updates Redis state.
// Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, err := parseHeaders(headers, t.now())
	if errors.Is(err, errNoHeaders) {
		// Header not present - this is OK for non-ESI responses or some endpoints
		return nil
	}
	if err != nil {
		return err
	}

	err = t.redis.HSet(ctx, RedisKeyState,
		fieldErrorsRemaining, state.ErrorsRemaining,
		fieldResetAt, state.ResetAt.Unix(),
		fieldLastUpdate, state.LastUpdate.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	esiErrorsRemaining.Set(float64(state.ErrorsRemaining))
	esiErrorLimitUpdatesTotal.WithLabelValues(string(state.Level)).Inc()

	var event *zerolog.Event
	switch state.Level {
	case LevelCritical:
		event = t.logger.Error()
	case LevelWarning:
		event = t.logger.Warn()
	default:
		event = t.logger.Debug()
	}
	event.
		Int("errors_remaining", state.ErrorsRemaining).
		Time("reset_at", state.ResetAt).
		Str("level", string(state.Level)).
		Msg("ESI error limit state updated")

	return nil
}
