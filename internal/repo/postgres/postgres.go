package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

var _ repo.CheckStore = (*Store)(nil)

// Schema keeps each check as a single JSON document so writes stay
// full-record replacements.
const Schema = `
CREATE TABLE IF NOT EXISTS checks (
  id         TEXT PRIMARY KEY,
  data       JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM checks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan check id: %w", err)
	}
	return ids, nil
}

func (s *Store) Read(ctx context.Context, id string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM checks WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read check: %w", err)
	}
	return raw, nil
}

func (s *Store) Write(ctx context.Context, c *domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal check: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE checks SET data = $2, updated_at = now() WHERE id = $1`,
		c.ID, b,
	)
	if err != nil {
		return fmt.Errorf("update check: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	s.log.Debug("pg_check_written", zap.String("check_id", c.ID))
	return nil
}

// Put inserts or replaces a raw record.
func (s *Store) Put(ctx context.Context, id string, raw []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checks (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, raw,
	)
	if err != nil {
		return fmt.Errorf("put check: %w", err)
	}
	return nil
}
