package pipelines

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultDoctorTTL = 5 * time.Minute

// CachedDoctor caches doctor probe results for a TTL so /status does not
// spawn a python process on every request.
type CachedDoctor struct {
	runner Runner
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around doctor probes. A zero
// ttl selects DefaultDoctorTTL.
func NewCachedDoctor(runner Runner, ttl time.Duration, logger *slog.Logger) *CachedDoctor {
	if ttl <= 0 {
		ttl = DefaultDoctorTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedDoctor{
		runner: runner,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	if caps := d.fresh(); caps != nil {
		return caps, nil
	}
	return d.Refresh(ctx)
}

// Peek returns the last probe result without probing.
func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new doctor probe. On failure the stale result, if any,
// is returned instead of the error.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.runner.RunDoctor(ctx)
	if err != nil {
		if d.cached != nil {
			d.logger.Warn("doctor probe failed, serving stale capabilities", "error", err)
			return d.cached, nil
		}
		d.logger.Warn("doctor probe failed", "error", err)
		return nil, err
	}

	d.logger.Info("doctor probe complete",
		"summarize", caps.HasSummarize,
		"cuda", caps.GPU.CUDAAvailable,
		"deps_available", caps.Summary.Available,
		"deps_total", caps.Summary.Total,
	)
	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

func (d *CachedDoctor) fresh() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		return d.cached
	}
	return nil
}
