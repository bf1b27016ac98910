package cache

// Key identifies a cache entry.
type Key struct {
	// Endpoint is the logical endpoint name (e.g. "markets_region_orders")
	Endpoint string

	// Fingerprint is the request digest
	Fingerprint string
}

// String generates the Redis key for the entry.
// Format: esi:cache:endpoint:fingerprint
//
// Example:
//
//	esi:cache:/v1/markets/10000002/orders/:6cae1986bcf4...
//
// The endpoint is used verbatim; the fingerprint is fixed-length hex, so the
// last colon always separates the two.
func (k Key) String() string {
	return redisKeyPrefix + k.Endpoint + ":" + k.Fingerprint
}
