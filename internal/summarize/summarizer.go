package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heimdex/digest-agent/internal/failure"
	"github.com/heimdex/digest-agent/internal/logging"
)

const (
	DefaultMaxChunkLength   = 1024
	DefaultMinSummaryLength = 50
	DefaultMaxSummaryLength = 150
)

// Options tune chunking and per-chunk summary length.
type Options struct {
	MaxChunkLength   int
	MinSummaryLength int
	MaxSummaryLength int
	// Workers bounds concurrent chunk calls. Values below 2 summarize
	// chunks one after another.
	Workers int
}

// DefaultOptions returns the BART-sized defaults.
func DefaultOptions() Options {
	return Options{
		MaxChunkLength:   DefaultMaxChunkLength,
		MinSummaryLength: DefaultMinSummaryLength,
		MaxSummaryLength: DefaultMaxSummaryLength,
		Workers:          1,
	}
}

// Validate rejects options no model call could honour. Zero values are
// taken literally; start from DefaultOptions to get the BART sizes.
func (o Options) Validate() error {
	if o.MaxChunkLength < 1 {
		return fmt.Errorf("max chunk length must be positive, got %d", o.MaxChunkLength)
	}
	if o.MinSummaryLength < 0 {
		return fmt.Errorf("min summary length must not be negative, got %d", o.MinSummaryLength)
	}
	if o.MaxSummaryLength < 1 || o.MaxSummaryLength < o.MinSummaryLength {
		return fmt.Errorf("invalid summary length bounds %d-%d", o.MinSummaryLength, o.MaxSummaryLength)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	return nil
}

// Summarizer produces one summary for a text of any length.
type Summarizer struct {
	models Source
	opts   Options
	logger *slog.Logger
}

// New creates a Summarizer drawing its model from models.
func New(models Source, opts Options, logger *slog.Logger) (*Summarizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Summarizer{
		models: models,
		opts:   opts,
		logger: logging.WithComponent(logger, "summarize"),
	}, nil
}

// Options returns the effective options.
func (s *Summarizer) Options() Options {
	return s.opts
}

// Chunks splits text with the configured chunk length.
func (s *Summarizer) Chunks(text string) []string {
	return SplitIntoChunks(text, s.opts.MaxChunkLength)
}

// Summarize chunks text and summarizes every chunk. Empty text yields ""
// without touching the model.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.SummarizeChunks(ctx, s.Chunks(text))
}

// SummarizeChunks summarizes each chunk and joins the results in chunk
// order. Any failure fails the whole call.
func (s *Summarizer) SummarizeChunks(ctx context.Context, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	model, err := s.models.Get(ctx)
	if err != nil {
		return "", failure.Wrap(failure.KindSummarization, "could not load summarization model", err)
	}

	start := time.Now()
	summaries := make([]string, len(chunks))
	if s.opts.Workers < 2 || len(chunks) == 1 {
		for i, chunk := range chunks {
			out, err := s.summarizeChunk(ctx, model, i, len(chunks), chunk)
			if err != nil {
				return "", err
			}
			summaries[i] = out
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Workers)
		for i, chunk := range chunks {
			g.Go(func() error {
				out, err := s.summarizeChunk(gctx, model, i, len(chunks), chunk)
				if err != nil {
					return err
				}
				summaries[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
	}

	s.logger.Debug("summarized chunks",
		"chunks", len(chunks),
		"workers", s.opts.Workers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return strings.Join(summaries, " "), nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, model Model, i, n int, chunk string) (string, error) {
	out, err := model.Summarize(ctx, chunk, s.opts.MinSummaryLength, s.opts.MaxSummaryLength)
	if err != nil {
		return "", failure.Wrap(failure.KindSummarization, fmt.Sprintf("chunk %d of %d", i+1, n), err)
	}
	return strings.TrimSpace(out), nil
}
