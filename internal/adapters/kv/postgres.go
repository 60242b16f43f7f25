package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/livescore/pkg/metrics"
)

const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS kv (
  key        TEXT PRIMARY KEY,
  value      JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	getSQL    = `SELECT value FROM kv WHERE key = $1`
	upsertSQL = `
INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteSQL = `DELETE FROM kv WHERE key = $1`
	listSQL   = `SELECT key, value FROM kv WHERE starts_with(key, $1) ORDER BY key`
)

// Postgres stores items in a single "kv" table through a pgx pool.
// Values must be JSON documents.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, verifies the connection and ensures the table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %w", ErrConnect, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %w", ErrConnect, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnect, err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrConnect, err)
	}
	return &Postgres{pool: pool}, nil
}

// Get returns the value stored under key or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := p.pool.QueryRow(ctx, getSQL, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordKVError("get")
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return v, nil
}

// Put upserts key. value must be a JSON document.
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	// Pass as string so pgx sends text that Postgres parses as jsonb.
	if _, err := p.pool.Exec(ctx, upsertSQL, key, string(value)); err != nil {
		metrics.RecordKVError("put")
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, deleteSQL, key); err != nil {
		metrics.RecordKVError("delete")
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// List returns the items whose key starts with prefix, ordered by key.
func (p *Postgres) List(ctx context.Context, prefix string) ([]Item, error) {
	rows, err := p.pool.Query(ctx, listSQL, prefix)
	if err != nil {
		metrics.RecordKVError("list")
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.Key, &it.Value)
		return it, err
	})
	if err != nil {
		metrics.RecordKVError("list")
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}
	return items, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
