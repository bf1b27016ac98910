package cache

import (
	"time"
)

// Entry is a cached ESI response body.
//
// Entries are identified by (Endpoint, Fingerprint) and are never updated in
// place: a fresh response is always a new Insert after the old entry has been
// swept.
type Entry struct {
	// Endpoint is the logical endpoint name chosen by the caller
	Endpoint string `json:"endpoint"`

	// Fingerprint is the request digest (see package fingerprint)
	Fingerprint string `json:"fingerprint"`

	// Expiration is when the entry stops being served. Stored with
	// epoch-second resolution.
	Expiration time.Time `json:"expiration"`

	// Body is the raw response text, not necessarily JSON
	Body string `json:"body"`
}

// Key returns the (endpoint, fingerprint) identity of the entry.
func (e *Entry) Key() Key {
	return Key{Endpoint: e.Endpoint, Fingerprint: e.Fingerprint}
}

// IsExpired reports whether the entry is no longer servable at now.
// An entry expiring in the same second as now is already expired.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.Expiration.Unix() <= now.Unix()
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	if e.IsExpired(now) {
		return 0
	}
	return time.Unix(e.Expiration.Unix(), 0).Sub(now)
}
