package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/channelvault/internal/cache"
	"github.com/voyagen/channelvault/internal/models"
)

// Postgres implements cache.Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Save inserts a new snapshot row and prunes all but the newest KeepSnapshots.
func (p *Postgres) Save(ctx context.Context, c *models.Catalog) error {
	doc, err := json.Marshal(cache.SnapshotOf(c))
	if err != nil {
		return &cache.Error{Op: "save", Backend: "postgres", Err: err}
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return &cache.Error{Op: "save", Backend: "postgres", Err: fmt.Errorf("Begin: %w", err)}
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO catalog_snapshots (taken_at, channels, document) VALUES ($1, $2, $3)`,
		c.LastRefresh, len(c.Channels), doc,
	)
	if err != nil {
		return &cache.Error{Op: "save", Backend: "postgres", Err: fmt.Errorf("insert snapshot: %w", err)}
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM catalog_snapshots WHERE id NOT IN (
		   SELECT id FROM catalog_snapshots ORDER BY taken_at DESC, id DESC LIMIT $1)`,
		KeepSnapshots,
	)
	if err != nil {
		return &cache.Error{Op: "save", Backend: "postgres", Err: fmt.Errorf("prune snapshots: %w", err)}
	}
	if err := tx.Commit(ctx); err != nil {
		return &cache.Error{Op: "save", Backend: "postgres", Err: fmt.Errorf("Commit: %w", err)}
	}
	return nil
}

// Load returns the newest snapshot if it is fresh.
func (p *Postgres) Load(ctx context.Context, maxAge time.Duration) (*models.Catalog, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx,
		`SELECT document FROM catalog_snapshots ORDER BY taken_at DESC, id DESC LIMIT 1`,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cache.ErrCacheMiss
		}
		return nil, &cache.Error{Op: "load", Backend: "postgres", Err: err}
	}
	var snap cache.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, &cache.Error{Op: "load", Backend: "postgres", Err: err}
	}
	if !snap.Usable(p.now(), maxAge) {
		return nil, cache.ErrCacheMiss
	}
	return snap.Catalog(), nil
}
