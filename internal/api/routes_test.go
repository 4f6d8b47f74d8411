package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/db"
	"github.com/heimdex/digest-agent/internal/digest"
	"github.com/heimdex/digest-agent/internal/failure"
	"github.com/heimdex/digest-agent/internal/pipelines"
)

const testToken = "test-token"

type fakeDigester struct {
	result *digest.Result
	err    error
	calls  []string
}

func (f *fakeDigester) Process(ctx context.Context, rawURL string) (*digest.Result, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeModel struct {
	loaded bool
}

func (f *fakeModel) Name() string { return "facebook/bart-large-cnn" }
func (f *fakeModel) Loaded() bool { return f.loaded }
func (f *fakeModel) Loads() int64 {
	if f.loaded {
		return 1
	}
	return 0
}

type fakeDoctorRunner struct {
	caps *pipelines.Capabilities
	err  error
}

func (f *fakeDoctorRunner) RunDoctor(ctx context.Context) (*pipelines.Capabilities, error) {
	return f.caps, f.err
}

func (f *fakeDoctorRunner) StartWorker(ctx context.Context) (*pipelines.Worker, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDoctorRunner) ArtifactsDir() string {
	return ""
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) (ServerConfig, catalog.Repository, *catalog.Service) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "api.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := catalog.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	svc := catalog.NewService(repo, nil)

	cfg := ServerConfig{
		CORSOrigins: []string{"http://localhost:5174"},
		Digest: &fakeDigester{result: &digest.Result{
			SummaryID:       "sum-1",
			VideoID:         "dQw4w9WgXcQ",
			YouTubeURL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Summary:         "A short summary.",
			ChunkCount:      2,
			TranscriptChars: 1800,
			Duration:        1500 * time.Millisecond,
		}},
		CatalogService: svc,
		Repository:     repo,
		Backend:        "pipelines",
		Sinks:          []string{"catalog"},
		ExportDir:      t.TempDir(),
		Logger:         testLogger(),
		StartTime:      time.Now(),
		InstanceID:     "inst-1",
		Version:        "test",
	}
	return cfg, repo, svc
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func seedSummary(t *testing.T, repo catalog.Repository, id, videoID string, createdAt time.Time) {
	t.Helper()
	err := repo.CreateSummary(context.Background(), &catalog.Summary{
		ID:              id,
		VideoID:         videoID,
		YouTubeURL:      "https://www.youtube.com/watch?v=" + videoID,
		Summary:         "Summary of " + videoID,
		TranscriptChars: 900,
		ChunkCount:      1,
		Backend:         "pipelines",
		Model:           "facebook/bart-large-cnn",
		DurationMs:      1200,
		CreatedAt:       createdAt,
	})
	if err != nil {
		t.Fatalf("CreateSummary() error = %v", err)
	}
}

func TestHealth(t *testing.T) {
	cfg, _, _ := testConfig(t)
	rr := doRequest(t, NewRouter(cfg), http.MethodGet, "/health", "", false)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["instance_id"] != "inst-1" {
		t.Errorf("instance_id = %v, want inst-1", body["instance_id"])
	}
}

func TestProcess_Success(t *testing.T) {
	cfg, _, _ := testConfig(t)
	digester := cfg.Digest.(*fakeDigester)

	rr := doRequest(t, NewRouter(cfg), http.MethodPost, "/process",
		`{"youtube_url":"  https://www.youtube.com/watch?v=dQw4w9WgXcQ  "}`, false)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d; body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp ProcessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Processed successfully!" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Summary != "A short summary." {
		t.Errorf("summary = %q", resp.Summary)
	}
	if resp.SummaryID != "sum-1" || resp.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("ids = %q/%q", resp.SummaryID, resp.VideoID)
	}
	if resp.DurationMs != 1500 {
		t.Errorf("duration_ms = %d, want 1500", resp.DurationMs)
	}
	if len(digester.calls) != 1 || digester.calls[0] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("digester calls = %v, want trimmed URL once", digester.calls)
	}
}

func TestProcess_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing url", `{}`, "YouTube URL is required"},
		{"blank url", `{"youtube_url":"   "}`, "YouTube URL is required"},
		{"malformed json", `{"youtube_url":`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, _ := testConfig(t)
			digester := cfg.Digest.(*fakeDigester)

			rr := doRequest(t, NewRouter(cfg), http.MethodPost, "/process", tt.body, false)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			body := decodeJSONBody(t, rr)
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %v, want %q", body["error"], tt.wantMsg)
			}
			if len(digester.calls) != 0 {
				t.Errorf("digester called %d times, want 0", len(digester.calls))
			}
		})
	}
}

func TestProcess_FailureKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "invalid url",
			err:        failure.New(failure.KindInvalidURL, "missing v parameter"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_URL",
			wantMsg:    "missing v parameter",
		},
		{
			name:       "captions disabled",
			err:        failure.New(failure.KindCaptionsDisabled, "transcripts are disabled for this video"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "CAPTIONS_DISABLED",
			wantMsg:    "transcripts are disabled for this video",
		},
		{
			name:       "no captions",
			err:        failure.New(failure.KindNoCaptions, "no caption track"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NO_CAPTIONS",
			wantMsg:    "no caption track",
		},
		{
			name:       "fetch",
			err:        failure.Wrap(failure.KindFetch, "fetch captions", errors.New("dial tcp: timeout")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "FETCH_FAILED",
			wantMsg:    "fetch captions: dial tcp: timeout",
		},
		{
			name:       "persistence",
			err:        failure.Wrap(failure.KindPersistence, "failed to save to database", errors.New("HTTP 500")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PERSISTENCE_FAILED",
			wantMsg:    "Failed to save to database",
		},
		{
			name:       "untagged",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, _ := testConfig(t)
			cfg.Digest = &fakeDigester{err: tt.err}

			rr := doRequest(t, NewRouter(cfg), http.MethodPost, "/process",
				`{"youtube_url":"https://www.youtube.com/watch?v=abc"}`, false)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status code = %d, want %d", rr.Code, tt.wantStatus)
			}
			body := decodeJSONBody(t, rr)
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %v, want %q", body["error"], tt.wantMsg)
			}
		})
	}
}

func TestProcess_RateLimited(t *testing.T) {
	cfg, _, _ := testConfig(t)
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	router := NewRouter(cfg)

	body := `{"youtube_url":"https://www.youtube.com/watch?v=abc"}`
	first := doRequest(t, router, http.MethodPost, "/process", body, false)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want %d", first.Code, http.StatusOK)
	}

	second := doRequest(t, router, http.MethodPost, "/process", body, false)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// Health is not rate limited.
	if rr := doRequest(t, router, http.MethodGet, "/health", "", false); rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuth(t *testing.T) {
	cfg, _, _ := testConfig(t)
	router := NewRouter(cfg)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestStatus_Idle(t *testing.T) {
	cfg, repo, _ := testConfig(t)
	cfg.Model = &fakeModel{loaded: true}
	cfg.DigestStats = func() digest.Stats { return digest.Stats{Processed: 3, Failed: 1} }
	seedSummary(t, repo, "s1", "vid1", time.Now())

	rr := doRequest(t, NewRouter(cfg), http.MethodGet, "/status", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "idle" {
		t.Errorf("state = %q, want idle", resp.State)
	}
	if resp.SummariesCount != 1 {
		t.Errorf("summaries_count = %d, want 1", resp.SummariesCount)
	}
	if resp.Model == nil || !resp.Model.Loaded || resp.Model.Backend != "pipelines" {
		t.Errorf("model = %+v, want loaded pipelines model", resp.Model)
	}
	if resp.Digest == nil || resp.Digest.Processed != 3 || resp.Digest.Failed != 1 {
		t.Errorf("digest = %+v, want 3/1", resp.Digest)
	}
	if resp.Pipelines != nil {
		t.Error("pipelines should be omitted when doctor is nil")
	}
}

func TestStatus_LastErrorFromFailedJob(t *testing.T) {
	cfg, repo, svc := testConfig(t)
	ctx := context.Background()

	job, err := svc.EnqueueDigest(ctx, "https://www.youtube.com/watch?v=abc", catalog.JobSourceAPI)
	if err != nil {
		t.Fatalf("EnqueueDigest() error = %v", err)
	}
	if err := repo.FailJob(ctx, job.ID, string(failure.KindNoCaptions), "no caption track"); err != nil {
		t.Fatalf("FailJob() error = %v", err)
	}

	rr := doRequest(t, NewRouter(cfg), http.MethodGet, "/status", "", true)
	body := decodeJSONBody(t, rr)
	if body["state"] != "error" {
		t.Errorf("state = %v, want error", body["state"])
	}
	if body["last_error"] != "no caption track" {
		t.Errorf("last_error = %v", body["last_error"])
	}
}

func TestStatus_PausedRunner(t *testing.T) {
	cfg, repo, svc := testConfig(t)
	runner := catalog.NewRunner(svc, repo, catalog.ProcessorFunc(func(ctx context.Context, rawURL string) (catalog.Outcome, error) {
		return catalog.Outcome{}, nil
	}), testLogger())
	runner.Pause()
	cfg.Runner = runner

	rr := doRequest(t, NewRouter(cfg), http.MethodGet, "/status", "", true)
	body := decodeJSONBody(t, rr)
	if body["state"] != "paused" {
		t.Errorf("state = %v, want paused", body["state"])
	}
	if body["runner_paused"] != true {
		t.Errorf("runner_paused = %v, want true", body["runner_paused"])
	}
}

func TestStatus_WithCachedCaps(t *testing.T) {
	cfg, _, _ := testConfig(t)
	probed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doctor := pipelines.NewCachedDoctor(&fakeDoctorRunner{
		caps: &pipelines.Capabilities{
			HasSummarize: true,
			GPU:          pipelines.GPUInfo{CUDAAvailable: true},
			DefaultModel: "facebook/bart-large-cnn",
			Summary:      pipelines.SummaryInfo{Available: 2, Total: 2},
			ProbedAt:     probed,
		},
	}, time.Minute, testLogger())
	if _, err := doctor.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	cfg.Doctor = doctor

	rr := doRequest(t, NewRouter(cfg), http.MethodGet, "/status", "", true)
	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pipelines == nil {
		t.Fatal("pipelines missing from response")
	}
	if !resp.Pipelines.HasSummarize || !resp.Pipelines.CUDAAvailable {
		t.Errorf("pipelines = %+v", resp.Pipelines)
	}
	if resp.Pipelines.LastProbeAt != "2026-03-01T12:00:00Z" {
		t.Errorf("last_probe_at = %q", resp.Pipelines.LastProbeAt)
	}
	if resp.Pipelines.DepsAvail != 2 || resp.Pipelines.DepsTotal != 2 {
		t.Errorf("deps = %d/%d, want 2/2", resp.Pipelines.DepsAvail, resp.Pipelines.DepsTotal)
	}
}

func TestStatus_EmptyDoctorCache(t *testing.T) {
	cfg, _, _ := testConfig(t)
	cfg.Doctor = pipelines.NewCachedDoctor(&fakeDoctorRunner{}, 0, testLogger())

	rr := doRequest(t, NewRouter(cfg), http.MethodGet, "/status", "", true)
	body := decodeJSONBody(t, rr)
	if _, ok := body["pipelines"]; ok {
		t.Fatal("pipelines should be omitted when cache is empty")
	}
}

func TestSummaries_ListAndGet(t *testing.T) {
	cfg, repo, _ := testConfig(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSummary(t, repo, "s1", "vid1", base)
	seedSummary(t, repo, "s2", "vid2", base.Add(time.Minute))
	seedSummary(t, repo, "s3", "vid3", base.Add(2*time.Minute))
	router := NewRouter(cfg)

	rr := doRequest(t, router, http.MethodGet, "/summaries?limit=2&offset=0", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	var list SummariesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 3 || list.Limit != 2 || len(list.Summaries) != 2 {
		t.Fatalf("list = total %d limit %d len %d", list.Total, list.Limit, len(list.Summaries))
	}

	rr = doRequest(t, router, http.MethodGet, "/summaries/s2", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status code = %d, want %d", rr.Code, http.StatusOK)
	}
	var got SummaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.VideoID != "vid2" || got.Summary != "Summary of vid2" {
		t.Errorf("summary = %+v", got)
	}
	if got.CreatedAt != "2026-01-01T00:01:00Z" {
		t.Errorf("created_at = %q", got.CreatedAt)
	}

	rr = doRequest(t, router, http.MethodGet, "/summaries/missing", "", true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing status code = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", defaultPageSize, 0},
		{"limit=10&offset=5", 10, 5},
		{"limit=100000", maxPageSize, 0},
		{"limit=-3&offset=-1", defaultPageSize, 0},
		{"limit=abc", defaultPageSize, 0},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/summaries?"+tt.query, nil)
		limit, offset := pageParams(req)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Errorf("pageParams(%q) = %d,%d, want %d,%d", tt.query, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestJobs_CreateListGet(t *testing.T) {
	cfg, _, _ := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(t, router, http.MethodPost, "/jobs", `{"youtube_url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, want %d; body=%s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	var created CreateJobResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.JobID == "" || created.Status != catalog.JobStatusPending || created.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("created = %+v", created)
	}

	rr = doRequest(t, router, http.MethodGet, "/jobs/"+created.JobID, "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rr.Code, http.StatusOK)
	}
	var job JobResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Source != catalog.JobSourceAPI || job.Type != catalog.JobTypeDigest {
		t.Errorf("job = %+v", job)
	}

	rr = doRequest(t, router, http.MethodGet, "/jobs", "", true)
	var list JobsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != created.JobID {
		t.Errorf("jobs = %+v", list.Jobs)
	}

	rr = doRequest(t, router, http.MethodGet, "/jobs/unknown", "", true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestJobs_CreateRejectsInvalidURL(t *testing.T) {
	cfg, _, svc := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(t, router, http.MethodPost, "/jobs", `{"youtube_url":"https://example.com/video"}`, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "INVALID_URL" {
		t.Errorf("code = %v, want INVALID_URL", body["code"])
	}

	jobs, err := svc.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("jobs = %d, want 0", len(jobs))
	}
}

func TestRunnerPauseResume(t *testing.T) {
	cfg, repo, svc := testConfig(t)
	runner := catalog.NewRunner(svc, repo, catalog.ProcessorFunc(func(ctx context.Context, rawURL string) (catalog.Outcome, error) {
		return catalog.Outcome{}, nil
	}), testLogger())
	cfg.Runner = runner
	router := NewRouter(cfg)

	rr := doRequest(t, router, http.MethodPost, "/runner/pause", "", true)
	if rr.Code != http.StatusOK || !runner.IsPaused() {
		t.Fatalf("pause: status %d, paused %v", rr.Code, runner.IsPaused())
	}

	rr = doRequest(t, router, http.MethodPost, "/runner/resume", "", true)
	if rr.Code != http.StatusOK || runner.IsPaused() {
		t.Fatalf("resume: status %d, paused %v", rr.Code, runner.IsPaused())
	}
}

func TestRunnerRoutes_NoRunner(t *testing.T) {
	cfg, _, _ := testConfig(t)
	rr := doRequest(t, NewRouter(cfg), http.MethodPost, "/runner/pause", "", true)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestWriteFailure_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rr := httptest.NewRecorder()
	WriteFailure(rr, logger, "req-1", failure.Wrap(failure.KindSummarization, "summarize chunk 2", errors.New("CUDA out of memory")))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(buf.String(), "CUDA out of memory") {
		t.Errorf("log missing cause: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "req-1") {
		t.Errorf("log missing request id: %s", buf.String())
	}
}

func TestStatusForKind_Unknown(t *testing.T) {
	status, code := StatusForKind(failure.Kind("mystery"))
	if status != http.StatusInternalServerError || code != "INTERNAL_ERROR" {
		t.Errorf("StatusForKind(mystery) = %d %s", status, code)
	}
}

func TestWriteFailure_UnknownKindHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteFailure(rr, slog.New(slog.NewTextHandler(io.Discard, nil)), "req-2", failure.New(failure.Kind("mystery"), "token=abc123"))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "INTERNAL_ERROR" || body["error"] != "internal server error" {
		t.Errorf("body = %v", body)
	}
}
