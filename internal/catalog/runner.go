package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/heimdex/digest-agent/internal/failure"
	"github.com/heimdex/digest-agent/internal/logging"
)

const DefaultPollInterval = 5 * time.Second

// Outcome is what a processed digest job leaves behind.
type Outcome struct {
	VideoID   string
	SummaryID string
}

// Processor turns a video URL into a stored summary.
type Processor interface {
	ProcessURL(ctx context.Context, rawURL string) (Outcome, error)
}

type ProcessorFunc func(ctx context.Context, rawURL string) (Outcome, error)

func (f ProcessorFunc) ProcessURL(ctx context.Context, rawURL string) (Outcome, error) {
	return f(ctx, rawURL)
}

type Runner struct {
	repo         Repository
	processor    Processor
	logger       *slog.Logger
	pollInterval time.Duration
	wake         chan struct{}
	running      atomic.Bool
	paused       atomic.Bool
	active       atomic.Int32
	processed    atomic.Int64
}

// NewRunner creates a runner for pending digest jobs. When service is non-nil
// the runner is woken on every enqueue instead of waiting for the next tick.
func NewRunner(service *Service, repo Repository, processor Processor, logger *slog.Logger) *Runner {
	r := &Runner{
		repo:         repo,
		processor:    processor,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		wake:         make(chan struct{}, 1),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if service != nil {
		service.OnEnqueue(r.Notify)
	}
	return r
}

// SetPollInterval overrides the poll interval. Must be called before Start.
func (r *Runner) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	defer r.running.Store(false)

	r.logger.Info("job runner started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			return
		case <-ticker.C:
		case <-r.wake:
		}
		if !r.paused.Load() {
			r.drain(ctx)
		}
	}
}

// Notify wakes the runner without blocking.
func (r *Runner) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
	r.Notify()
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// ActiveJobs is the number of jobs being processed right now.
func (r *Runner) ActiveJobs() int {
	return int(r.active.Load())
}

// Processed is the number of jobs this runner has finished, either way.
func (r *Runner) Processed() int64 {
	return r.processed.Load()
}

func (r *Runner) drain(ctx context.Context) {
	for ctx.Err() == nil && !r.paused.Load() {
		if !r.processNextJob(ctx) {
			return
		}
	}
}

// processNextJob runs the oldest pending job. It reports false when there
// was nothing to do or the queue could not be read.
func (r *Runner) processNextJob(ctx context.Context) bool {
	jobs, err := r.repo.ListPendingJobs(ctx, 1)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return false
	}
	if len(jobs) == 0 {
		return false
	}

	job := jobs[0]
	logger := logging.WithJobID(r.logger, job.ID)

	if job.Type != JobTypeDigest {
		logger.Warn("unknown job type", "type", job.Type)
		r.fail(ctx, logger, job, failure.KindInternal, "unknown job type")
		return true
	}

	if err := r.repo.MarkJobRunning(ctx, job.ID); err != nil {
		logger.Error("failed to mark job running", "error", err)
		return false
	}

	r.active.Add(1)
	defer r.active.Add(-1)

	logger.Info("processing job", "youtube_url", job.YouTubeURL)
	start := time.Now()

	outcome, err := r.processor.ProcessURL(ctx, job.YouTubeURL)
	if err != nil {
		if ctx.Err() != nil {
			r.fail(ctx, logger, job, failure.KindInternal, "cancelled")
			return false
		}
		kind := failure.KindOf(err)
		logger.Warn("job failed", "error_kind", kind, "error", err, "duration", time.Since(start))
		r.fail(ctx, logger, job, kind, failure.Message(err))
		return true
	}

	if outcome.VideoID == "" {
		outcome.VideoID = job.VideoID
	}
	if err := r.repo.CompleteJob(context.WithoutCancel(ctx), job.ID, outcome.VideoID, outcome.SummaryID); err != nil {
		logger.Error("failed to mark job completed", "error", err)
	}
	r.processed.Add(1)
	logger.Info("job completed", "summary_id", outcome.SummaryID, "duration", time.Since(start))
	return true
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *Job, kind failure.Kind, msg string) {
	if err := r.repo.FailJob(context.WithoutCancel(ctx), job.ID, string(kind), truncateStr(msg, 512)); err != nil {
		logger.Error("failed to mark job failed", "error", err)
	}
	r.processed.Add(1)
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}
