package catalog

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateSummary(ctx context.Context, s *Summary) error
	GetSummary(ctx context.Context, id string) (*Summary, error)
	ListSummaries(ctx context.Context, limit, offset int) ([]*Summary, error)
	LatestSummaryForVideo(ctx context.Context, videoID string) (*Summary, error)
	CountSummaries(ctx context.Context) (int, error)

	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context, limit int) ([]*Job, error)
	CountJobs(ctx context.Context) (JobCounts, error)
	MarkJobRunning(ctx context.Context, id string) error
	CompleteJob(ctx context.Context, id, videoID, summaryID string) error
	FailJob(ctx context.Context, id, kind, errorMsg string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const summaryColumns = `id, video_id, youtube_url, summary, transcript_chars, chunk_count, backend, model, duration_ms, created_at`

func (r *SQLiteRepository) CreateSummary(ctx context.Context, s *Summary) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.VideoID, s.YouTubeURL, s.Summary, s.TranscriptChars, s.ChunkCount,
		s.Backend, s.Model, s.DurationMs, formatTime(s.CreatedAt))
	return err
}

func (r *SQLiteRepository) GetSummary(ctx context.Context, id string) (*Summary, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE id = ?`, id)
	return scanSummary(row)
}

func (r *SQLiteRepository) LatestSummaryForVideo(ctx context.Context, videoID string) (*Summary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		WHERE video_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, videoID)
	return scanSummary(row)
}

func (r *SQLiteRepository) ListSummaries(ctx context.Context, limit, offset int) ([]*Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *SQLiteRepository) CountSummaries(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summaries").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*Summary, error) {
	var s Summary
	var createdAt string
	err := row.Scan(&s.ID, &s.VideoID, &s.YouTubeURL, &s.Summary, &s.TranscriptChars,
		&s.ChunkCount, &s.Backend, &s.Model, &s.DurationMs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

const jobColumns = `id, type, status, youtube_url, video_id, summary_id, source, error, error_kind, created_at, updated_at, started_at, finished_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, youtube_url, video_id, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, j.YouTubeURL, nullString(j.VideoID), j.Source,
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) CountJobs(ctx context.Context) (JobCounts, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := JobCounts{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) MarkJobRunning(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'running', started_at = ?, updated_at = ? WHERE id = ?
	`, now, now, id)
	return err
}

func (r *SQLiteRepository) CompleteJob(ctx context.Context, id, videoID, summaryID string) error {
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		   SET status = 'completed', video_id = COALESCE(?, video_id), summary_id = ?,
		       error = NULL, error_kind = NULL, updated_at = ?, finished_at = ?
		 WHERE id = ?
	`, nullString(videoID), nullString(summaryID), now, now, id)
	return err
}

func (r *SQLiteRepository) FailJob(ctx context.Context, id, kind, errorMsg string) error {
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		   SET status = 'failed', error = ?, error_kind = ?, updated_at = ?, finished_at = ?
		 WHERE id = ?
	`, nullString(errorMsg), nullString(kind), now, now, id)
	return err
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	var videoID, summaryID, errMsg, errKind, startedAt, finishedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.YouTubeURL, &videoID, &summaryID, &j.Source,
		&errMsg, &errKind, &createdAt, &updatedAt, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.VideoID = videoID.String
	j.SummaryID = summaryID.String
	j.Error = errMsg.String
	j.ErrorKind = errKind.String
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	j.StartedAt = parseNullTime(startedAt)
	j.FinishedAt = parseNullTime(finishedAt)
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
