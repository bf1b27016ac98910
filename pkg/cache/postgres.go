package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "esicache"

// DBTX is the subset of pgx used by PostgresStore. *pgxpool.Pool, *pgx.Conn
// and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Store backed by a PostgreSQL table:
//
//	endpoint    text   not null
//	fingerprint text   not null
//	expiration  bigint not null  -- epoch seconds
//	body        text   not null
//	primary key (endpoint, fingerprint)
//
// The primary key turns a racing duplicate insert into ErrDuplicateEntry.
type PostgresStore struct {
	db DBTX

	sweepSQL  string
	lookupSQL string
	insertSQL string
	schemaSQL string
}

// NewPostgresStore creates a store on the given table. An empty table name
// selects DefaultTable. The name is quoted as an identifier.
func NewPostgresStore(db DBTX, table string) *PostgresStore {
	if db == nil {
		panic("postgres connection cannot be nil")
	}
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier{table}.Sanitize()

	return &PostgresStore{
		db:        db,
		sweepSQL:  "DELETE FROM " + ident + " WHERE expiration <= $1",
		lookupSQL: "SELECT expiration, body FROM " + ident + " WHERE endpoint = $1 AND fingerprint = $2 AND expiration > $3 LIMIT 1",
		insertSQL: "INSERT INTO " + ident + " (endpoint, fingerprint, expiration, body) VALUES ($1, $2, $3, $4)",
		schemaSQL: "CREATE TABLE IF NOT EXISTS " + ident + ` (
	endpoint    text   NOT NULL,
	fingerprint text   NOT NULL,
	expiration  bigint NOT NULL,
	body        text   NOT NULL,
	PRIMARY KEY (endpoint, fingerprint)
)`,
	}
}

// EnsureSchema creates the cache table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, s.schemaSQL); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Sweep deletes expired rows.
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, s.sweepSQL, now.Unix())
	if err != nil {
		CacheErrors.WithLabelValues("postgres", "sweep").Inc()
		return 0, fmt.Errorf("postgres sweep: %w", err)
	}

	removed := tag.RowsAffected()
	if removed > 0 {
		SweptEntries.WithLabelValues("postgres").Add(float64(removed))
	}
	return removed, nil
}

// Lookup selects the live row for the key.
func (s *PostgresStore) Lookup(ctx context.Context, endpoint, fingerprint string, now time.Time) (*Entry, error) {
	var (
		expiration int64
		body       string
	)

	err := s.db.QueryRow(ctx, s.lookupSQL, endpoint, fingerprint, now.Unix()).Scan(&expiration, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			CacheMisses.WithLabelValues("postgres").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("postgres", "lookup").Inc()
		return nil, fmt.Errorf("postgres lookup: %w", err)
	}

	CacheHits.WithLabelValues("postgres").Inc()
	return &Entry{
		Endpoint:    endpoint,
		Fingerprint: fingerprint,
		Expiration:  time.Unix(expiration, 0),
		Body:        body,
	}, nil
}

// Insert adds a row. A primary key conflict is reported as ErrDuplicateEntry.
func (s *PostgresStore) Insert(ctx context.Context, entry Entry) error {
	_, err := s.db.Exec(ctx, s.insertSQL,
		entry.Endpoint, entry.Fingerprint, entry.Expiration.Unix(), entry.Body)
	if err != nil {
		CacheErrors.WithLabelValues("postgres", "insert").Inc()

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("postgres insert: %w", err)
	}

	CacheWrites.WithLabelValues("postgres").Inc()
	return nil
}
