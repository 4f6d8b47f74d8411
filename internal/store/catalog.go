package store

import (
	"context"

	"github.com/heimdex/digest-agent/internal/catalog"
)

// CatalogSink writes summaries into the local SQLite catalog.
type CatalogSink struct {
	repo catalog.Repository
}

func NewCatalogSink(repo catalog.Repository) *CatalogSink {
	return &CatalogSink{repo: repo}
}

func (s *CatalogSink) Name() string {
	return "catalog"
}

func (s *CatalogSink) Save(ctx context.Context, rec Record) error {
	return s.repo.CreateSummary(ctx, &catalog.Summary{
		ID:              rec.ID,
		VideoID:         rec.VideoID,
		YouTubeURL:      rec.YouTubeURL,
		Summary:         rec.Summary,
		TranscriptChars: rec.TranscriptChars,
		ChunkCount:      rec.ChunkCount,
		Backend:         rec.Backend,
		Model:           rec.Model,
		DurationMs:      rec.Duration.Milliseconds(),
		CreatedAt:       rec.CreatedAt,
	})
}
