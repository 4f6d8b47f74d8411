// Package store fans a finished summary out to every configured persistence
// backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Record is a finished summary ready to be persisted.
type Record struct {
	ID              string        `json:"id"`
	VideoID         string        `json:"video_id"`
	YouTubeURL      string        `json:"youtube_url"`
	Summary         string        `json:"summary"`
	TranscriptChars int           `json:"transcript_chars"`
	ChunkCount      int           `json:"chunk_count"`
	Backend         string        `json:"backend"`
	Model           string        `json:"model"`
	Duration        time.Duration `json:"duration_ns"`
	CreatedAt       time.Time     `json:"created_at"`
}

type Sink interface {
	Name() string
	Save(ctx context.Context, rec Record) error
}

// Multi saves to each sink in order and stops at the first failure. Sinks
// before the failing one keep what they wrote.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger}
}

func (m *Multi) Name() string {
	return "multi"
}

// Names lists the wrapped sinks in save order.
func (m *Multi) Names() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

func (m *Multi) Save(ctx context.Context, rec Record) error {
	for _, s := range m.sinks {
		start := time.Now()
		if err := s.Save(ctx, rec); err != nil {
			m.logger.Error("sink save failed", "sink", s.Name(), "summary_id", rec.ID, "error", err)
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		m.logger.Debug("sink save completed", "sink", s.Name(), "summary_id", rec.ID, "duration", time.Since(start))
	}
	return nil
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// Close closes every wrapped sink that holds resources and returns the first
// error encountered.
func (m *Multi) Close() error {
	var first error
	for _, s := range m.sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
