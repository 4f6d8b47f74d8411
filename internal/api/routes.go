package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/failure"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxBodyBytes    = 64 << 10
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSMiddleware(cfg.CORSOrigins))

	limited := RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst, cfg.Logger)

	r.Get("/health", healthHandler(cfg))
	r.With(limited).Post("/process", processHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/summaries", listSummariesHandler(cfg))
		r.Get("/summaries/{id}", getSummaryHandler(cfg))
		r.Post("/summaries/{id}/export", exportSummaryHandler(cfg))
		r.With(limited).Post("/jobs", createJobHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Post("/runner/pause", pauseRunnerHandler(cfg))
		r.Post("/runner/resume", resumeRunnerHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:     "ok",
			Version:    cfg.Version,
			UptimeS:    uptime,
			InstanceID: cfg.InstanceID,
		})
	}
}

// decodeURLRequest reads {"youtube_url": ...} and reports false after writing
// a 400 when the body is unusable or the URL is missing.
func decodeURLRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return "", false
	}
	url := strings.TrimSpace(req.YouTubeURL)
	if url == "" {
		WriteError(w, http.StatusBadRequest, "YouTube URL is required", "BAD_REQUEST")
		return "", false
	}
	return url, true
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, ok := decodeURLRequest(w, r)
		if !ok {
			return
		}

		res, err := cfg.Digest.Process(r.Context(), url)
		if err != nil {
			WriteFailure(w, cfg.Logger, RequestID(r.Context()), err)
			return
		}

		WriteJSON(w, http.StatusOK, ProcessResponse{
			Message:         "Processed successfully!",
			Summary:         res.Summary,
			SummaryID:       res.SummaryID,
			VideoID:         res.VideoID,
			ChunkCount:      res.ChunkCount,
			TranscriptChars: res.TranscriptChars,
			DurationMs:      res.Duration.Milliseconds(),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		summariesCount, _ := cfg.CatalogService.CountSummaries(ctx)
		counts, _ := cfg.CatalogService.CountJobs(ctx)
		jobs, _ := cfg.CatalogService.ListJobs(ctx, 10)
		if counts == nil {
			counts = catalog.JobCounts{}
		}

		state := "idle"
		lastError := ""
		jobsRunning := counts[catalog.JobStatusRunning]
		paused := cfg.Runner != nil && cfg.Runner.IsPaused()

		if paused {
			state = "paused"
		} else if jobsRunning > 0 {
			state = "processing"
		}

		for _, j := range jobs {
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}
		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:          state,
			LastError:      lastError,
			SummariesCount: summariesCount,
			Jobs:           counts,
			JobsRunning:    jobsRunning,
			RunnerPaused:   paused,
			Sinks:          cfg.Sinks,
		}

		if cfg.Model != nil {
			resp.Model = &ModelStatusResponse{
				Backend: cfg.Backend,
				Name:    cfg.Model.Name(),
				Loaded:  cfg.Model.Loaded(),
				Loads:   cfg.Model.Loads(),
			}
		}

		if cfg.DigestStats != nil {
			stats := cfg.DigestStats()
			resp.Digest = &stats
		}

		if cfg.Doctor != nil {
			if caps := cfg.Doctor.Peek(); caps != nil {
				ps := &PipelineStatusResponse{
					HasSummarize:  caps.HasSummarize,
					CUDAAvailable: caps.GPU.CUDAAvailable,
					DefaultModel:  caps.DefaultModel,
					DepsAvail:     caps.Summary.Available,
					DepsTotal:     caps.Summary.Total,
				}
				if !caps.ProbedAt.IsZero() {
					ps.LastProbeAt = caps.ProbedAt.Format(time.RFC3339)
				}
				resp.Pipelines = ps
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func listSummariesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pageParams(r)

		summaries, err := cfg.CatalogService.ListSummaries(r.Context(), limit, offset)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list summaries", "INTERNAL_ERROR")
			return
		}
		total, err := cfg.CatalogService.CountSummaries(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to count summaries", "INTERNAL_ERROR")
			return
		}

		resp := SummariesResponse{
			Summaries: make([]SummaryResponse, len(summaries)),
			Total:     total,
			Limit:     limit,
			Offset:    offset,
		}
		for i, s := range summaries {
			resp.Summaries[i] = SummaryToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSummaryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		summary, err := cfg.CatalogService.GetSummary(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if summary == nil {
			WriteError(w, http.StatusNotFound, "summary not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, SummaryToResponse(summary))
	}
}

func createJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, ok := decodeURLRequest(w, r)
		if !ok {
			return
		}

		job, err := cfg.CatalogService.EnqueueDigest(r.Context(), url, catalog.JobSourceAPI)
		if err != nil {
			if failure.Is(err, failure.KindInvalidURL) {
				WriteFailure(w, cfg.Logger, RequestID(r.Context()), err)
				return
			}
			WriteFailure(w, cfg.Logger, RequestID(r.Context()), failure.Wrap(failure.KindInternal, "failed to create job", err))
			return
		}

		WriteJSON(w, http.StatusAccepted, CreateJobResponse{
			JobID:   job.ID,
			Status:  job.Status,
			VideoID: job.VideoID,
		})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := pageParams(r)
		jobs, err := cfg.CatalogService.ListJobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.CatalogService.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func pauseRunnerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "job runner not configured", "UNAVAILABLE")
			return
		}
		cfg.Runner.Pause()
		WriteJSON(w, http.StatusOK, RunnerResponse{Paused: true, Running: cfg.Runner.IsRunning()})
	}
}

func resumeRunnerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "job runner not configured", "UNAVAILABLE")
			return
		}
		cfg.Runner.Resume()
		WriteJSON(w, http.StatusOK, RunnerResponse{Paused: false, Running: cfg.Runner.IsRunning()})
	}
}
