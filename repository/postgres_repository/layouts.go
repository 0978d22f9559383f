package postgres_repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
)

// LayoutStore implements cosmos.ResultCache on PostgreSQL, with
// upsert-by-key semantics so re-running a pipeline for the same source is
// idempotent.
type LayoutStore struct {
	db *sql.DB
}

// NewLayoutStore opens the database and ensures the schema exists.
func NewLayoutStore(cfg config.PostgresConfig) (*LayoutStore, error) {
	dsn := cfg.URL
	if dsn == "" {
		host := cfg.Host
		port := cfg.Port
		ssl := cfg.SSLMode
		if host == "" {
			host = "localhost"
		}
		if port == "" {
			port = "5432"
		}
		if ssl == "" {
			ssl = "disable"
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.User, cfg.Password, host, port, cfg.DBName, ssl)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := &LayoutStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LayoutStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS cosmos_layouts (
    key TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    layout JSONB NOT NULL,
    post_count INTEGER NOT NULL,
    processing_time_ms BIGINT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
`)
	return err
}

func (s *LayoutStore) Get(ctx context.Context, key string) (*cosmos.CachedLayout, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT topic, layout, post_count, processing_time_ms, created_at FROM cosmos_layouts WHERE key = $1`, key)

	rec := cosmos.CachedLayout{Key: key}
	var layoutB []byte
	if err := row.Scan(&rec.Topic, &layoutB, &rec.PostCount, &rec.ProcessingTimeMs, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var layout cosmos.CosmosLayout
	if err := json.Unmarshal(layoutB, &layout); err != nil {
		return nil, err
	}
	rec.Layout = &layout
	return &rec, nil
}

func (s *LayoutStore) Set(ctx context.Context, key string, rec *cosmos.CachedLayout) error {
	layoutB, err := json.Marshal(rec.Layout)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO cosmos_layouts (key, topic, layout, post_count, processing_time_ms, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (key) DO UPDATE SET
  topic = EXCLUDED.topic,
  layout = EXCLUDED.layout,
  post_count = EXCLUDED.post_count,
  processing_time_ms = EXCLUDED.processing_time_ms;
`, key, rec.Topic, layoutB, rec.PostCount, rec.ProcessingTimeMs)
	return err
}

// Close releases the underlying connection pool.
func (s *LayoutStore) Close() error {
	return s.db.Close()
}
