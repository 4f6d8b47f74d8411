package api

import (
	"time"

	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/digest"
)

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	UptimeS    int64  `json:"uptime_s"`
	InstanceID string `json:"instance_id,omitempty"`
}

type ProcessRequest struct {
	YouTubeURL string `json:"youtube_url"`
}

type ProcessResponse struct {
	Message         string `json:"message"`
	Summary         string `json:"summary"`
	SummaryID       string `json:"summary_id"`
	VideoID         string `json:"video_id"`
	ChunkCount      int    `json:"chunk_count"`
	TranscriptChars int    `json:"transcript_chars"`
	DurationMs      int64  `json:"duration_ms"`
}

type StatusResponse struct {
	State          string                  `json:"state"`
	LastError      string                  `json:"last_error,omitempty"`
	SummariesCount int                     `json:"summaries_count"`
	Jobs           catalog.JobCounts       `json:"jobs"`
	JobsRunning    int                     `json:"jobs_running"`
	RunnerPaused   bool                    `json:"runner_paused"`
	Model          *ModelStatusResponse    `json:"model,omitempty"`
	Digest         *digest.Stats           `json:"digest,omitempty"`
	Sinks          []string                `json:"sinks,omitempty"`
	Pipelines      *PipelineStatusResponse `json:"pipelines,omitempty"`
}

type ModelStatusResponse struct {
	Backend string `json:"backend"`
	Name    string `json:"name"`
	Loaded  bool   `json:"loaded"`
	Loads   int64  `json:"loads"`
}

type PipelineStatusResponse struct {
	HasSummarize  bool   `json:"has_summarize"`
	CUDAAvailable bool   `json:"cuda_available"`
	DefaultModel  string `json:"default_model,omitempty"`
	LastProbeAt   string `json:"last_probe_at,omitempty"`
	DepsAvail     int    `json:"deps_available"`
	DepsTotal     int    `json:"deps_total"`
}

type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	VideoID string `json:"video_id"`
}

type JobResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	YouTubeURL string `json:"youtube_url"`
	VideoID    string `json:"video_id,omitempty"`
	SummaryID  string `json:"summary_id,omitempty"`
	Source     string `json:"source"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type SummaryResponse struct {
	ID              string `json:"id"`
	VideoID         string `json:"video_id"`
	YouTubeURL      string `json:"youtube_url"`
	Summary         string `json:"summary"`
	TranscriptChars int    `json:"transcript_chars"`
	ChunkCount      int    `json:"chunk_count"`
	Backend         string `json:"backend,omitempty"`
	Model           string `json:"model,omitempty"`
	DurationMs      int64  `json:"duration_ms"`
	CreatedAt       string `json:"created_at"`
}

type SummariesResponse struct {
	Summaries []SummaryResponse `json:"summaries"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

type RunnerResponse struct {
	Paused  bool `json:"paused"`
	Running bool `json:"running"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *catalog.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		YouTubeURL: j.YouTubeURL,
		VideoID:    j.VideoID,
		SummaryID:  j.SummaryID,
		Source:     j.Source,
		Error:      j.Error,
		ErrorKind:  j.ErrorKind,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
		StartedAt:  formatOptional(j.StartedAt),
		FinishedAt: formatOptional(j.FinishedAt),
	}
}

func SummaryToResponse(s *catalog.Summary) SummaryResponse {
	return SummaryResponse{
		ID:              s.ID,
		VideoID:         s.VideoID,
		YouTubeURL:      s.YouTubeURL,
		Summary:         s.Summary,
		TranscriptChars: s.TranscriptChars,
		ChunkCount:      s.ChunkCount,
		Backend:         s.Backend,
		Model:           s.Model,
		DurationMs:      s.DurationMs,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
