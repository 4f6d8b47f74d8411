// Package digest runs one video through the whole pipeline: identifier
// extraction, caption fetch, chunked summarization and persistence.
package digest

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/failure"
	"github.com/heimdex/digest-agent/internal/logging"
	"github.com/heimdex/digest-agent/internal/store"
	"github.com/heimdex/digest-agent/internal/youtube"
)

// CaptionFetcher returns the cleaned caption text of a video.
type CaptionFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// TextSummarizer splits text into chunks and condenses them.
type TextSummarizer interface {
	Chunks(text string) []string
	SummarizeChunks(ctx context.Context, chunks []string) (string, error)
}

type Config struct {
	// Backend and Model are recorded alongside every summary.
	Backend string
	Model   string
}

// Result describes one processed video.
type Result struct {
	SummaryID       string        `json:"summary_id"`
	VideoID         string        `json:"video_id"`
	YouTubeURL      string        `json:"youtube_url"`
	Summary         string        `json:"summary"`
	ChunkCount      int           `json:"chunk_count"`
	TranscriptChars int           `json:"transcript_chars"`
	FetchDuration   time.Duration `json:"-"`
	Duration        time.Duration `json:"-"`
}

type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

type Service struct {
	captions   CaptionFetcher
	summarizer TextSummarizer
	sink       store.Sink
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time

	processed atomic.Int64
	failed    atomic.Int64
}

func NewService(captions CaptionFetcher, summarizer TextSummarizer, sink store.Sink, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		captions:   captions,
		summarizer: summarizer,
		sink:       sink,
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "digest"),
		now:        time.Now,
	}
}

// Process summarizes the video at rawURL and saves the summary to every
// sink. Errors carry a failure.Kind naming the stage that failed.
func (s *Service) Process(ctx context.Context, rawURL string) (*Result, error) {
	res, err := s.process(ctx, rawURL)
	if err != nil {
		s.failed.Add(1)
		return nil, err
	}
	s.processed.Add(1)
	return res, nil
}

func (s *Service) process(ctx context.Context, rawURL string) (*Result, error) {
	start := s.now()

	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	logger := logging.WithVideoID(s.logger, videoID)

	text, err := s.captions.Fetch(ctx, videoID)
	if err != nil {
		logger.Warn("caption fetch failed", "error_kind", failure.KindOf(err), "error", err)
		return nil, err
	}
	fetched := s.now()

	chunks := s.summarizer.Chunks(text)
	logger.Info("captions fetched",
		"transcript_chars", len(text),
		"chunks", len(chunks),
		"duration_ms", fetched.Sub(start).Milliseconds(),
	)

	summary, err := s.summarizer.SummarizeChunks(ctx, chunks)
	if err != nil {
		logger.Error("summarization failed", "error", err)
		return nil, err
	}

	done := s.now()
	rec := store.Record{
		ID:              uuid.NewString(),
		VideoID:         videoID,
		YouTubeURL:      rawURL,
		Summary:         summary,
		TranscriptChars: len(text),
		ChunkCount:      len(chunks),
		Backend:         s.cfg.Backend,
		Model:           s.cfg.Model,
		Duration:        done.Sub(start),
		CreatedAt:       done.UTC(),
	}
	if err := s.sink.Save(ctx, rec); err != nil {
		return nil, failure.Wrap(failure.KindPersistence, "failed to save to database", err)
	}

	logger.Info("video digested",
		"summary_id", rec.ID,
		"summary_chars", len(summary),
		"duration_ms", rec.Duration.Milliseconds(),
	)

	return &Result{
		SummaryID:       rec.ID,
		VideoID:         videoID,
		YouTubeURL:      rawURL,
		Summary:         summary,
		ChunkCount:      len(chunks),
		TranscriptChars: len(text),
		FetchDuration:   fetched.Sub(start),
		Duration:        rec.Duration,
	}, nil
}

// ProcessURL lets the job runner drive the service.
func (s *Service) ProcessURL(ctx context.Context, rawURL string) (catalog.Outcome, error) {
	res, err := s.Process(ctx, rawURL)
	if err != nil {
		return catalog.Outcome{}, err
	}
	return catalog.Outcome{VideoID: res.VideoID, SummaryID: res.SummaryID}, nil
}

func (s *Service) Stats() Stats {
	return Stats{Processed: s.processed.Load(), Failed: s.failed.Load()}
}

func (s *Service) Config() Config {
	return s.cfg
}
