package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "esi:cache:"

	// RedisKeyExpiryIndex is the sorted set of entry keys scored by
	// expiration (epoch seconds).
	RedisKeyExpiryIndex = "esi:cache:expiry"
)

// insertScript writes the value only if the key is absent and records it in
// the expiry index in the same step. ARGV[2] is the entry expiration; an
// entry that is already expired by the Redis clock is kept for one more
// second so it exists until the next Sweep, like in the other backends.
var insertScript = redis.NewScript(`
local expireAt = tonumber(ARGV[2])
local now = tonumber(redis.call('TIME')[1])
if expireAt <= now then
	expireAt = now + 1
end
local ok = redis.call('SET', KEYS[1], ARGV[1], 'NX', 'EXAT', expireAt)
if not ok then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[2], KEYS[1])
return 1
`)

// sweepScript removes every indexed key scored <= now. A key re-inserted
// after expiring has already been re-scored by insertScript, so it is never
// selected here.
var sweepScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, key in ipairs(expired) do
	redis.call('DEL', key)
end
if #expired > 0 then
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return #expired
`)

// redisValue is the JSON document stored under each entry key.
type redisValue struct {
	Expiration int64  `json:"expiration"`
	Body       string `json:"body"`
}

// RedisStore is a Store backed by Redis.
//
// Values carry a Redis expiry (EXAT) equal to the entry expiration, so Redis
// drops them on its own; Sweep keeps the expiry index in step. Because Redis
// evicts values without telling the store, this backend does not report
// esi_cache_size_bytes. The sweep script touches keys it reads from the
// index, which requires a non-cluster deployment.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store on the given Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Sweep deletes expired entries and their index members.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	removed, err := sweepScript.Run(ctx, s.redis, []string{RedisKeyExpiryIndex}, now.Unix()).Int64()
	if err != nil {
		CacheErrors.WithLabelValues("redis", "sweep").Inc()
		return 0, fmt.Errorf("redis sweep: %w", err)
	}

	if removed > 0 {
		SweptEntries.WithLabelValues("redis").Add(float64(removed))
	}
	return removed, nil
}

// Lookup retrieves the live entry for the key.
func (s *RedisStore) Lookup(ctx context.Context, endpoint, fingerprint string, now time.Time) (*Entry, error) {
	key := Key{Endpoint: endpoint, Fingerprint: fingerprint}

	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("redis", "lookup").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var value redisValue
	if err := json.Unmarshal(data, &value); err != nil {
		CacheErrors.WithLabelValues("redis", "lookup").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	entry := &Entry{
		Endpoint:    endpoint,
		Fingerprint: fingerprint,
		Expiration:  time.Unix(value.Expiration, 0),
		Body:        value.Body,
	}

	// Redis and local clocks may disagree by a second
	if entry.IsExpired(now) {
		CacheMisses.WithLabelValues("redis").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// Insert stores the entry if no entry exists for its key.
func (s *RedisStore) Insert(ctx context.Context, entry Entry) error {
	expiration := entry.Expiration.Unix()

	data, err := json.Marshal(redisValue{
		Expiration: expiration,
		Body:       entry.Body,
	})
	if err != nil {
		CacheErrors.WithLabelValues("redis", "insert").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	written, err := insertScript.Run(ctx, s.redis,
		[]string{entry.Key().String(), RedisKeyExpiryIndex},
		data, strconv.FormatInt(expiration, 10),
	).Int64()
	if err != nil {
		CacheErrors.WithLabelValues("redis", "insert").Inc()
		return fmt.Errorf("redis insert: %w", err)
	}
	if written == 0 {
		CacheErrors.WithLabelValues("redis", "insert").Inc()
		return ErrDuplicateEntry
	}

	CacheWrites.WithLabelValues("redis").Inc()
	return nil
}
