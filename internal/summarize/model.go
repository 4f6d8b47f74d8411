// Package summarize condenses cleaned caption text by summarizing bounded
// chunks independently and joining the results in order.
package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Model summarizes a single piece of text. minLength and maxLength bound
// the summary in the model's own units (tokens for transformers models,
// words for prompt-driven ones).
type Model interface {
	Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error)
}

// Loader builds a Model. It is allowed to be slow.
type Loader func(ctx context.Context) (Model, error)

// Source hands out a ready Model.
type Source interface {
	Get(ctx context.Context) (Model, error)
}

// Lazy loads a Model on first use and shares it afterwards. Concurrent
// first callers wait for a single load. A failed load is not cached; the
// next Get tries again. A model exposing Err() that reports a non-nil
// error is discarded and reloaded.
type Lazy struct {
	load   Loader
	name   string
	logger *slog.Logger

	mu    sync.RWMutex
	model Model
	loads atomic.Int64
}

// NewLazy wraps load. name identifies the backend in logs and status.
func NewLazy(name string, load Loader, logger *slog.Logger) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{load: load, name: name, logger: logger}
}

// Get returns the shared model, loading it if needed.
func (l *Lazy) Get(ctx context.Context) (Model, error) {
	l.mu.RLock()
	m := l.model
	l.mu.RUnlock()
	if m != nil && healthy(m) {
		return m, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.model != nil {
		if healthy(l.model) {
			return l.model, nil
		}
		l.logger.Warn("summarization model unhealthy, reloading", "backend", l.name)
		closeModel(l.model)
		l.model = nil
	}

	start := time.Now()
	m, err := l.load(ctx)
	if err != nil {
		l.logger.Error("summarization model load failed", "backend", l.name, "error", err)
		return nil, err
	}
	if m == nil {
		return nil, errors.New("loader returned no model")
	}
	l.loads.Add(1)
	l.model = m
	l.logger.Info("summarization model loaded",
		"backend", l.name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m, nil
}

// Name returns the backend name.
func (l *Lazy) Name() string {
	return l.name
}

// Loaded reports whether a model is currently held.
func (l *Lazy) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.model != nil
}

// Loads returns how many times a model was successfully loaded.
func (l *Lazy) Loads() int64 {
	return l.loads.Load()
}

// Close releases the held model if it implements io.Closer.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	err := closeModel(l.model)
	l.model = nil
	return err
}

func healthy(m Model) bool {
	if h, ok := m.(interface{ Err() error }); ok {
		return h.Err() == nil
	}
	return true
}

func closeModel(m Model) error {
	if c, ok := m.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
