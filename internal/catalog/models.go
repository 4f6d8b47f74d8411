package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Summary is a persisted digest of one video.
type Summary struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	YouTubeURL      string    `json:"youtube_url"`
	Summary         string    `json:"summary"`
	TranscriptChars int       `json:"transcript_chars"`
	ChunkCount      int       `json:"chunk_count"`
	Backend         string    `json:"backend"`
	Model           string    `json:"model"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	YouTubeURL string     `json:"youtube_url"`
	VideoID    string     `json:"video_id,omitempty"`
	SummaryID  string     `json:"summary_id,omitempty"`
	Source     string     `json:"source"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const (
	JobTypeDigest = "digest"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"

	JobSourceAPI   = "api"
	JobSourceInbox = "inbox"
)

// Terminal reports whether the job will not change status again.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// JobCounts maps job status to the number of jobs in it.
type JobCounts map[string]int

func NewID() string {
	return uuid.NewString()
}
