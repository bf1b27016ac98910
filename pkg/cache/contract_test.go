package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreContract runs the behavior every Store backend must share.
// Times are anchored on the wall clock because RedisStore relies on Redis
// expiry.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	const fp = "6cae1986bcf4044bbeb9cc152759b9e82bd0ee36c8c5f5ec7c679f0c45e89b76"

	t.Run("lookup on empty store misses", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Lookup(context.Background(), "/v1/status/", fp, time.Now())
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("live entry is returned", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()
		expiration := now.Add(1000 * time.Second)

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  expiration,
			Body:        `{"players":12345}`,
		}))

		entry, err := store.Lookup(ctx, "/v1/status/", fp, now)
		require.NoError(t, err)
		assert.Equal(t, `{"players":12345}`, entry.Body)
		assert.Equal(t, expiration.Unix(), entry.Expiration.Unix())
		assert.Equal(t, "/v1/status/", entry.Endpoint)
		assert.Equal(t, fp, entry.Fingerprint)
	})

	t.Run("expired entry is never returned", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now.Add(-1 * time.Second),
			Body:        "stale",
		}))

		_, err := store.Lookup(ctx, "/v1/status/", fp, now)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("expired insert is stored until sweep", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now,
		}))

		_, err := store.Lookup(ctx, "/v1/status/", fp, now)
		assert.ErrorIs(t, err, ErrCacheMiss)

		removed, err := store.Sweep(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
	})

	t.Run("sweep removes entries past expiration", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now.Add(100 * time.Second),
			Body:        "soon stale",
		}))

		removed, err := store.Sweep(ctx, now.Add(200*time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = store.Lookup(ctx, "/v1/status/", fp, now)
		assert.ErrorIs(t, err, ErrCacheMiss)

		removed, err = store.Sweep(ctx, now.Add(200*time.Second))
		require.NoError(t, err)
		assert.Zero(t, removed, "sweep should be idempotent")
	})

	t.Run("sweep keeps live entries", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now.Add(1000 * time.Second),
			Body:        "fresh",
		}))

		removed, err := store.Sweep(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, removed)

		entry, err := store.Lookup(ctx, "/v1/status/", fp, now)
		require.NoError(t, err)
		assert.Equal(t, "fresh", entry.Body)
	})

	t.Run("duplicate insert is rejected", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		first := Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now.Add(1000 * time.Second),
			Body:        "first",
		}
		require.NoError(t, store.Insert(ctx, first))

		second := first
		second.Body = "second"
		err := store.Insert(ctx, second)
		assert.True(t, errors.Is(err, ErrDuplicateEntry), "got %v", err)

		entry, err := store.Lookup(ctx, "/v1/status/", fp, now)
		require.NoError(t, err)
		assert.Equal(t, "first", entry.Body)
	})

	t.Run("insert after sweep succeeds", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now.Add(100 * time.Second),
			Body:        "old",
		}))

		_, err := store.Sweep(ctx, now.Add(200*time.Second))
		require.NoError(t, err)

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/status/",
			Fingerprint: fp,
			Expiration:  now.Add(1000 * time.Second),
			Body:        "new",
		}))

		entry, err := store.Lookup(ctx, "/v1/status/", fp, now)
		require.NoError(t, err)
		assert.Equal(t, "new", entry.Body)
	})

	t.Run("endpoints are separate namespaces", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "a",
			Fingerprint: fp,
			Expiration:  now.Add(1000 * time.Second),
			Body:        "from a",
		}))
		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "b",
			Fingerprint: fp,
			Expiration:  now.Add(1000 * time.Second),
			Body:        "from b",
		}))

		entry, err := store.Lookup(ctx, "a", fp, now)
		require.NoError(t, err)
		assert.Equal(t, "from a", entry.Body)

		entry, err = store.Lookup(ctx, "b", fp, now)
		require.NoError(t, err)
		assert.Equal(t, "from b", entry.Body)
	})

	t.Run("empty body round trips", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		require.NoError(t, store.Insert(ctx, Entry{
			Endpoint:    "/v1/ui/autopilot/waypoint/",
			Fingerprint: fp,
			Expiration:  now.Add(1000 * time.Second),
		}))

		entry, err := store.Lookup(ctx, "/v1/ui/autopilot/waypoint/", fp, now)
		require.NoError(t, err)
		assert.Empty(t, entry.Body)
	})
}
