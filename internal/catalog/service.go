package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/heimdex/digest-agent/internal/youtube"
)

type CatalogService interface {
	EnqueueDigest(ctx context.Context, rawURL, source string) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	CountJobs(ctx context.Context) (JobCounts, error)
	GetSummary(ctx context.Context, id string) (*Summary, error)
	ListSummaries(ctx context.Context, limit, offset int) ([]*Summary, error)
	CountSummaries(ctx context.Context) (int, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger

	mu        sync.Mutex
	onEnqueue func()
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// OnEnqueue registers fn to be called after every job insert. The runner uses
// it to wake up ahead of its next poll.
func (s *Service) OnEnqueue(fn func()) {
	s.mu.Lock()
	s.onEnqueue = fn
	s.mu.Unlock()
}

// EnqueueDigest validates rawURL and records a pending digest job for it.
// Invalid URLs are rejected before anything is written.
func (s *Service) EnqueueDigest(ctx context.Context, rawURL, source string) (*Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = JobSourceAPI
	}

	now := time.Now()
	job := &Job{
		ID:         NewID(),
		Type:       JobTypeDigest,
		Status:     JobStatusPending,
		YouTubeURL: rawURL,
		VideoID:    videoID,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("digest job created", "job_id", job.ID, "video_id", videoID, "source", source)
	}

	s.mu.Lock()
	notify := s.onEnqueue
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) CountJobs(ctx context.Context) (JobCounts, error) {
	return s.repo.CountJobs(ctx)
}

func (s *Service) GetSummary(ctx context.Context, id string) (*Summary, error) {
	return s.repo.GetSummary(ctx, id)
}

func (s *Service) ListSummaries(ctx context.Context, limit, offset int) ([]*Summary, error) {
	return s.repo.ListSummaries(ctx, limit, offset)
}

func (s *Service) CountSummaries(ctx context.Context) (int, error) {
	return s.repo.CountSummaries(ctx)
}
