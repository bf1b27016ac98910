// Package cache stores ESI responses keyed by (endpoint, fingerprint).
//
// Three Store backends are provided:
//
//   - MemoryStore: in-process, for tests and single-instance deployments
//   - RedisStore: shared Redis keyspace with an expiry index
//   - PostgresStore: a table with a primary key on (endpoint, fingerprint)
//
// Every backend follows the same lifecycle. Before each lookup the caller
// sweeps entries whose expiration is at or before now; lookups only return
// entries that expire strictly after now; inserts never overwrite, and a
// conflicting insert reports ErrDuplicateEntry.
//
// # Basic Usage
//
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	if _, err := store.Sweep(ctx, time.Now()); err != nil {
//		// treat as miss
//	}
//
//	entry, err := store.Lookup(ctx, "/v1/status/", fp, time.Now())
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from ESI, then
//		_ = store.Insert(ctx, cache.Entry{
//			Endpoint:    "/v1/status/",
//			Fingerprint: fp,
//			Expiration:  expires,
//			Body:        body,
//		})
//	}
//
// # PostgreSQL
//
//	pool, _ := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	store := cache.NewPostgresStore(pool, "esicache")
//	if err := store.EnsureSchema(ctx); err != nil {
//		return err
//	}
//
// # Metrics
//
// All backends export Prometheus metrics labelled by backend:
//
//   - esi_cache_hits_total{backend}
//   - esi_cache_misses_total{backend}
//   - esi_cache_writes_total{backend}
//   - esi_cache_swept_entries_total{backend}
//   - esi_cache_size_bytes{backend} (memory backend only)
//   - esi_cache_errors_total{backend,operation}
//
// Callers decide how to react to errors. The ESI client treats sweep and
// lookup errors as a miss and ignores insert errors.
package cache
