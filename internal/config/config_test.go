package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// clearEnv unsets every variable the loader reads so tests do not pick up
// the developer's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvConfigFile, EnvHost, EnvPort, EnvLogLevel, EnvDataDir,
		EnvCORSOrigins, EnvRateLimit, EnvRateBurst,
		EnvSummarizerBackend, EnvSummarizerModel, EnvMaxChunkLength,
		EnvMinSummaryLength, EnvMaxSummaryLength, EnvSummarizeWorkers,
		EnvPipelinesPython, EnvPipelinesModule, EnvPipelinesDevice,
		EnvHuggingFaceURL, EnvHuggingFaceToken, EnvHFTokenFallback,
		EnvGeminiAPIKey, EnvGeminiFallback,
		EnvCaptionsBaseURL, EnvCaptionLanguages,
		EnvNhostGraphQLURL, EnvNhostAdminSecret, EnvPostgresURL, EnvRedisURL, EnvRedisTTL,
		EnvInboxDir,
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.SummarizerBackend() != BackendPipelines {
		t.Errorf("SummarizerBackend = %q", cfg.SummarizerBackend())
	}
	if cfg.MaxChunkLength() != 1024 || cfg.MinSummaryLength() != 50 || cfg.MaxSummaryLength() != 150 {
		t.Errorf("summary bounds = %d/%d/%d", cfg.MaxChunkLength(), cfg.MinSummaryLength(), cfg.MaxSummaryLength())
	}
	if !reflect.DeepEqual(cfg.CORSOrigins(), []string{"http://localhost:5174"}) {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins())
	}
	if !reflect.DeepEqual(cfg.CaptionLanguages(), []string{"en"}) {
		t.Errorf("CaptionLanguages = %v", cfg.CaptionLanguages())
	}
	if cfg.PipelinesModule() != DefaultPipelinesModule {
		t.Errorf("PipelinesModule = %q", cfg.PipelinesModule())
	}
	if cfg.InboxDir() != "" {
		t.Errorf("InboxDir = %q, want empty", cfg.InboxDir())
	}
	if filepath.Base(cfg.DBPath()) != DBFilename {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvCORSOrigins, "http://a.test, http://b.test")
	t.Setenv(EnvSummarizerBackend, BackendHuggingFace)
	t.Setenv(EnvHFTokenFallback, "hf_fallback")
	t.Setenv(EnvSummarizeWorkers, "4")
	t.Setenv(EnvRedisTTL, "24h")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port())
	}
	if !reflect.DeepEqual(cfg.CORSOrigins(), []string{"http://a.test", "http://b.test"}) {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins())
	}
	if cfg.HuggingFaceToken() != "hf_fallback" {
		t.Errorf("HuggingFaceToken = %q", cfg.HuggingFaceToken())
	}
	if cfg.SummarizeWorkers() != 4 {
		t.Errorf("SummarizeWorkers = %d", cfg.SummarizeWorkers())
	}
	if cfg.RedisTTL() != 24*time.Hour {
		t.Errorf("RedisTTL = %v", cfg.RedisTTL())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "digest.yaml")
	yamlDoc := `
server:
  port: 9000
  cors_origins: ["https://app.example.com"]
  rate_limit: 0
summarizer:
  backend: gemini
  model: gemini-2.5-pro
  max_chunk_length: 2048
  workers: 3
gemini:
  api_key: file-key
persistence:
  redis_url: redis://localhost:6379/0
  redis_ttl: 1h
inbox:
  dir: /srv/inbox
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPort, "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("env should override file port, got %d", cfg.Port())
	}
	if cfg.SummarizerBackend() != BackendGemini || cfg.SummarizerModel() != "gemini-2.5-pro" {
		t.Errorf("summarizer = %s/%s", cfg.SummarizerBackend(), cfg.SummarizerModel())
	}
	if cfg.GeminiAPIKey() != "file-key" {
		t.Errorf("GeminiAPIKey = %q", cfg.GeminiAPIKey())
	}
	if cfg.MaxChunkLength() != 2048 || cfg.SummarizeWorkers() != 3 {
		t.Errorf("chunk=%d workers=%d", cfg.MaxChunkLength(), cfg.SummarizeWorkers())
	}
	if cfg.RateLimit() != 0 {
		t.Errorf("RateLimit = %v, want 0 (disabled)", cfg.RateLimit())
	}
	if cfg.RedisTTL() != time.Hour || cfg.InboxDir() != "/srv/inbox" {
		t.Errorf("redis ttl=%v inbox=%q", cfg.RedisTTL(), cfg.InboxDir())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{EnvPort: "abc"}},
		{"port out of range", map[string]string{EnvPort: "70000"}},
		{"unknown backend", map[string]string{EnvSummarizerBackend: "openai"}},
		{"gemini without key", map[string]string{EnvSummarizerBackend: BackendGemini}},
		{"min above max", map[string]string{EnvMinSummaryLength: "200", EnvMaxSummaryLength: "100"}},
		{"negative min", map[string]string{EnvMinSummaryLength: "-1"}},
		{"zero workers", map[string]string{EnvSummarizeWorkers: "0"}},
		{"negative chunk", map[string]string{EnvMaxChunkLength: "-5"}},
		{"bad ttl", map[string]string{EnvRedisTTL: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := New(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_ZeroMinSummaryLength(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMinSummaryLength, "0")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinSummaryLength() != 0 {
		t.Errorf("MinSummaryLength = %d, want 0", cfg.MinSummaryLength())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
