package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS video_summaries (
    id               TEXT PRIMARY KEY,
    video_id         TEXT NOT NULL,
    youtube_url      TEXT NOT NULL,
    summary          TEXT NOT NULL,
    transcript_chars INTEGER NOT NULL DEFAULT 0,
    chunk_count      INTEGER NOT NULL DEFAULT 0,
    backend          TEXT NOT NULL DEFAULT '',
    model            TEXT NOT NULL DEFAULT '',
    duration_ms      BIGINT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_video_summaries_video_id ON video_summaries (video_id);
`

// PostgresSink writes summaries into a video_summaries table, creating it on
// connect when missing.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresSink, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create video_summaries table: %w", err)
	}

	if logger != nil {
		logger.Info("postgres sink connected", "host", config.ConnConfig.Host, "database", config.ConnConfig.Database)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

func (s *PostgresSink) Save(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO video_summaries
		    (id, video_id, youtube_url, summary, transcript_chars, chunk_count, backend, model, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.VideoID, rec.YouTubeURL, rec.Summary, rec.TranscriptChars, rec.ChunkCount,
		rec.Backend, rec.Model, rec.Duration.Milliseconds(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video summary: %w", err)
	}
	return nil
}

// summary reads back one stored summary text.
func (s *PostgresSink) summary(ctx context.Context, id string) (string, error) {
	var summary string
	err := s.pool.QueryRow(ctx, "SELECT summary FROM video_summaries WHERE id = $1", id).Scan(&summary)
	return summary, err
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
