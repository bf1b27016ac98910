package cache

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -source=store.go -destination=mock/store.go -package=mock

var (
	// ErrCacheMiss indicates no live entry exists for the key
	ErrCacheMiss = errors.New("cache miss")

	// ErrDuplicateEntry indicates an entry for the key already exists
	ErrDuplicateEntry = errors.New("duplicate cache entry")

	// ErrInvalidEntry indicates the stored entry is corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store persists responses keyed by (endpoint, fingerprint).
//
// All implementations compare expirations in epoch seconds: an entry is live
// while its expiration is strictly after now.
type Store interface {
	// Sweep deletes every entry whose expiration is <= now and returns how
	// many were removed. It never removes an entry that expires after now,
	// even when racing an Insert.
	Sweep(ctx context.Context, now time.Time) (int64, error)

	// Lookup returns the live entry for the key or ErrCacheMiss.
	Lookup(ctx context.Context, endpoint, fingerprint string, now time.Time) (*Entry, error)

	// Insert stores a new entry. It returns ErrDuplicateEntry when the key is
	// already present; existing entries are never replaced. An entry that is
	// already expired is still stored: Lookup never returns it and the next
	// Sweep removes it.
	Insert(ctx context.Context, entry Entry) error
}
