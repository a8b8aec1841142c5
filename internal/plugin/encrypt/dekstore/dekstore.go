// Package dekstore persists the wrapped data-encryption-keys that a
// KEK-wrapping provider (vault, kms) unwraps at load time. Vault Transit and
// KMS are never called per-request — only once at startup and again on a
// cache miss after key rotation — so the wrapped keys themselves have to
// live somewhere durable and shared across instances: the application
// database.
package dekstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one provider's row in the encryption_deks table.
type Record struct {
	WrappedDEKs [][]byte
	Revision    int64
}

// Store persists wrapped DEKs for a single provider row, keyed by provider name.
type Store interface {
	// Load returns the current record for provider, or nil if none exists.
	Load(ctx context.Context, provider string) (*Record, error)
	// Bootstrap inserts the first record for provider. If a row already
	// exists (another instance won the race) it is a no-op, not an error.
	Bootstrap(ctx context.Context, provider string, wrappedDEK []byte) error
	// Update replaces wrappedDEKs for provider, succeeding only if the
	// stored revision still matches expectedRevision (optimistic locking).
	Update(ctx context.Context, provider string, wrappedDEKs [][]byte, expectedRevision int64) error
	Close()
}

// New opens a postgres-backed Store using dbURL.
func New(ctx context.Context, dbURL string) (Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("dekstore: connecting: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) Load(ctx context.Context, provider string) (*Record, error) {
	var wrapped [][]byte
	var revision int64
	err := s.pool.QueryRow(ctx,
		`SELECT wrapped_deks, revision FROM encryption_deks WHERE provider = $1`,
		provider,
	).Scan(&wrapped, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dekstore: loading %q: %w", provider, err)
	}
	return &Record{WrappedDEKs: wrapped, Revision: revision}, nil
}

func (s *pgStore) Bootstrap(ctx context.Context, provider string, wrappedDEK []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO encryption_deks (provider, wrapped_deks, revision)
		 VALUES ($1, $2, 0)
		 ON CONFLICT (provider) DO NOTHING`,
		provider, [][]byte{wrappedDEK},
	)
	if err != nil {
		return fmt.Errorf("dekstore: bootstrapping %q: %w", provider, err)
	}
	return nil
}

func (s *pgStore) Update(ctx context.Context, provider string, wrappedDEKs [][]byte, expectedRevision int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE encryption_deks SET wrapped_deks = $2, revision = revision + 1
		 WHERE provider = $1 AND revision = $3`,
		provider, wrappedDEKs, expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("dekstore: updating %q: %w", provider, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dekstore: update %q: revision %d is stale", provider, expectedRevision)
	}
	return nil
}

func (s *pgStore) Close() {
	s.pool.Close()
}
