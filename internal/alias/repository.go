package alias

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements Index on PostgreSQL.
//
// Unlike the usual check-then-act slug stores, binds here are a single
// conditional insert, so two concurrent allocators can never both win the
// same slug: the loser observes a collision and redraws.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetTarget fetches the object key bound to slug, ignoring expired rows.
func (r *Repository) GetTarget(ctx context.Context, slug string) (string, error) {
	var target string
	err := r.db.QueryRow(ctx,
		`SELECT target_key FROM aliases
		 WHERE slug = $1 AND (expires_at IS NULL OR expires_at > now())`,
		slug,
	).Scan(&target)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get alias target: %w", err)
	}
	return target, nil
}

// Bind inserts the slug binding. A conflicting row only loses its slot when
// it has already expired; live rows win and Bind reports false.
func (r *Repository) Bind(ctx context.Context, slug, targetKey string, ttl time.Duration) (bool, error) {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	tag, err := r.db.Exec(ctx,
		`INSERT INTO aliases (slug, target_key, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE
		 SET target_key = EXCLUDED.target_key,
		     expires_at = EXCLUDED.expires_at,
		     created_at = now()
		 WHERE aliases.expires_at IS NOT NULL AND aliases.expires_at <= now()`,
		slug, targetKey, expiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("bind alias: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the binding for slug.
func (r *Repository) Delete(ctx context.Context, slug string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM aliases WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
