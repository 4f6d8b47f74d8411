// Package config provides configuration management for the digest agent.
// Values come from an optional YAML file, then environment variables, then
// built-in defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 5000
	DefaultLogLevel = "info"
	DefaultDataDir  = ".digest"

	DefaultCORSOrigins = "http://localhost:5174"
	DefaultRateLimit   = 2.0 // summarize requests per second
	DefaultRateBurst   = 4

	DefaultSummarizerBackend = BackendPipelines
	DefaultMaxChunkLength    = 1024
	DefaultMinSummaryLength  = 50
	DefaultMaxSummaryLength  = 150
	DefaultSummarizeWorkers  = 1

	DefaultCaptionLanguages = "en"
	DefaultRedisTTL         = 0 // keep forever
	DefaultJobPollInterval  = 5 * time.Second

	// Pipeline defaults
	DefaultPipelinesModule        = "digest_pipelines"
	DefaultPipelinesTimeoutDoctor = 30  // seconds
	DefaultPipelinesTimeoutLoad   = 600 // 10 minutes

	// Database filename
	DBFilename = "digest.db"

	// Summarizer backends
	BackendPipelines   = "pipelines"
	BackendHuggingFace = "huggingface"
	BackendGemini      = "gemini"

	// Environment variable names
	EnvConfigFile = "DIGEST_CONFIG_FILE"
	EnvHost       = "DIGEST_HOST"
	EnvPort       = "DIGEST_PORT"
	EnvLogLevel   = "DIGEST_LOG_LEVEL"
	EnvDataDir    = "DIGEST_DATA_DIR"

	EnvCORSOrigins = "DIGEST_CORS_ORIGINS"
	EnvRateLimit   = "DIGEST_RATE_LIMIT"
	EnvRateBurst   = "DIGEST_RATE_BURST"

	EnvSummarizerBackend = "DIGEST_SUMMARIZER"
	EnvSummarizerModel   = "DIGEST_SUMMARIZER_MODEL"
	EnvMaxChunkLength    = "DIGEST_MAX_CHUNK_LENGTH"
	EnvMinSummaryLength  = "DIGEST_MIN_SUMMARY_LENGTH"
	EnvMaxSummaryLength  = "DIGEST_MAX_SUMMARY_LENGTH"
	EnvSummarizeWorkers  = "DIGEST_SUMMARIZE_WORKERS"

	EnvPipelinesPython = "DIGEST_PIPELINES_PYTHON"
	EnvPipelinesModule = "DIGEST_PIPELINES_MODULE"
	EnvPipelinesDevice = "DIGEST_PIPELINES_DEVICE"

	EnvHuggingFaceURL   = "DIGEST_HF_URL"
	EnvHuggingFaceToken = "DIGEST_HF_TOKEN"
	EnvHFTokenFallback  = "HF_TOKEN"
	EnvGeminiAPIKey     = "DIGEST_GEMINI_API_KEY"
	EnvGeminiFallback   = "GEMINI_API_KEY"

	EnvCaptionsBaseURL  = "DIGEST_CAPTIONS_BASE_URL"
	EnvCaptionLanguages = "DIGEST_CAPTION_LANGUAGES"

	EnvNhostGraphQLURL  = "DIGEST_NHOST_GRAPHQL_URL"
	EnvNhostAdminSecret = "DIGEST_NHOST_ADMIN_SECRET"
	EnvPostgresURL      = "DIGEST_DATABASE_URL"
	EnvRedisURL         = "DIGEST_REDIS_URL"
	EnvRedisTTL         = "DIGEST_REDIS_TTL"

	EnvInboxDir = "DIGEST_INBOX_DIR"
)

// Config defines the application configuration interface
type Config interface {
	Host() string
	Port() int
	Addr() string
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string

	CORSOrigins() []string
	RateLimit() float64
	RateBurst() int

	SummarizerBackend() string
	SummarizerModel() string
	MaxChunkLength() int
	MinSummaryLength() int
	MaxSummaryLength() int
	SummarizeWorkers() int

	PipelinesPython() string
	PipelinesModule() string
	PipelinesDevice() string
	PipelinesTimeoutDoctor() time.Duration
	PipelinesTimeoutLoad() time.Duration

	HuggingFaceURL() string
	HuggingFaceToken() string
	GeminiAPIKey() string

	CaptionsBaseURL() string
	CaptionLanguages() []string

	NhostGraphQLURL() string
	NhostAdminSecret() string
	PostgresURL() string
	RedisURL() string
	RedisTTL() time.Duration

	InboxDir() string
	JobPollInterval() time.Duration
}

// fileConfig mirrors the YAML layout of DIGEST_CONFIG_FILE.
type fileConfig struct {
	Server struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
		RateLimit   *float64 `yaml:"rate_limit"`
		RateBurst   int      `yaml:"rate_burst"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	DataDir    string `yaml:"data_dir"`
	Summarizer struct {
		Backend        string `yaml:"backend"`
		Model          string `yaml:"model"`
		MaxChunkLength int    `yaml:"max_chunk_length"`
		MinLength      int    `yaml:"min_length"`
		MaxLength      int    `yaml:"max_length"`
		Workers        int    `yaml:"workers"`
	} `yaml:"summarizer"`
	Pipelines struct {
		Python string `yaml:"python"`
		Module string `yaml:"module"`
		Device string `yaml:"device"`
	} `yaml:"pipelines"`
	HuggingFace struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"huggingface"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"gemini"`
	Captions struct {
		BaseURL   string   `yaml:"base_url"`
		Languages []string `yaml:"languages"`
	} `yaml:"captions"`
	Persistence struct {
		NhostGraphQLURL  string `yaml:"nhost_graphql_url"`
		NhostAdminSecret string `yaml:"nhost_admin_secret"`
		PostgresURL      string `yaml:"postgres_url"`
		RedisURL         string `yaml:"redis_url"`
		RedisTTL         string `yaml:"redis_ttl"`
	} `yaml:"persistence"`
	Inbox struct {
		Dir string `yaml:"dir"`
	} `yaml:"inbox"`
}

// EnvConfig holds resolved configuration values.
type EnvConfig struct {
	host     string
	port     int
	logLevel string
	dataDir  string

	corsOrigins []string
	rateLimit   float64
	rateBurst   int

	backend          string
	model            string
	maxChunkLength   int
	minSummaryLength int
	maxSummaryLength int
	summarizeWorkers int

	pipelinesPython string
	pipelinesModule string
	pipelinesDevice string

	hfURL        string
	hfToken      string
	geminiAPIKey string

	captionsBaseURL  string
	captionLanguages []string

	nhostGraphQLURL  string
	nhostAdminSecret string
	postgresURL      string
	redisURL         string
	redisTTL         time.Duration

	inboxDir string
}

// New loads configuration from the file named by DIGEST_CONFIG_FILE (if
// set) and environment variable overrides.
func New() (*EnvConfig, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load reads the YAML file at path (skipped when empty), applies
// environment overrides and validates the result.
func Load(path string) (*EnvConfig, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := cfg.applyFile(&fc); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *EnvConfig {
	return &EnvConfig{
		host:             DefaultHost,
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		corsOrigins:      splitList(DefaultCORSOrigins),
		rateLimit:        DefaultRateLimit,
		rateBurst:        DefaultRateBurst,
		backend:          DefaultSummarizerBackend,
		maxChunkLength:   DefaultMaxChunkLength,
		minSummaryLength: DefaultMinSummaryLength,
		maxSummaryLength: DefaultMaxSummaryLength,
		summarizeWorkers: DefaultSummarizeWorkers,
		captionLanguages: splitList(DefaultCaptionLanguages),
		redisTTL:         DefaultRedisTTL,
	}
}

func (c *EnvConfig) applyFile(fc *fileConfig) error {
	setString(&c.host, fc.Server.Host)
	setInt(&c.port, fc.Server.Port)
	if len(fc.Server.CORSOrigins) > 0 {
		c.corsOrigins = fc.Server.CORSOrigins
	}
	if fc.Server.RateLimit != nil {
		c.rateLimit = *fc.Server.RateLimit
	}
	setInt(&c.rateBurst, fc.Server.RateBurst)
	setString(&c.logLevel, fc.Logging.Level)
	setString(&c.dataDir, fc.DataDir)

	setString(&c.backend, fc.Summarizer.Backend)
	setString(&c.model, fc.Summarizer.Model)
	setInt(&c.maxChunkLength, fc.Summarizer.MaxChunkLength)
	setInt(&c.minSummaryLength, fc.Summarizer.MinLength)
	setInt(&c.maxSummaryLength, fc.Summarizer.MaxLength)
	setInt(&c.summarizeWorkers, fc.Summarizer.Workers)

	setString(&c.pipelinesPython, fc.Pipelines.Python)
	setString(&c.pipelinesModule, fc.Pipelines.Module)
	setString(&c.pipelinesDevice, fc.Pipelines.Device)

	setString(&c.hfURL, fc.HuggingFace.BaseURL)
	setString(&c.hfToken, fc.HuggingFace.Token)
	setString(&c.geminiAPIKey, fc.Gemini.APIKey)

	setString(&c.captionsBaseURL, fc.Captions.BaseURL)
	if len(fc.Captions.Languages) > 0 {
		c.captionLanguages = fc.Captions.Languages
	}

	setString(&c.nhostGraphQLURL, fc.Persistence.NhostGraphQLURL)
	setString(&c.nhostAdminSecret, fc.Persistence.NhostAdminSecret)
	setString(&c.postgresURL, fc.Persistence.PostgresURL)
	setString(&c.redisURL, fc.Persistence.RedisURL)
	if fc.Persistence.RedisTTL != "" {
		d, err := time.ParseDuration(fc.Persistence.RedisTTL)
		if err != nil {
			return fmt.Errorf("invalid persistence.redis_ttl: %w", err)
		}
		c.redisTTL = d
	}

	setString(&c.inboxDir, fc.Inbox.Dir)
	return nil
}

func (c *EnvConfig) applyEnv() error {
	setString(&c.host, os.Getenv(EnvHost))
	if err := envInt(EnvPort, &c.port); err != nil {
		return err
	}
	setString(&c.logLevel, os.Getenv(EnvLogLevel))
	setString(&c.dataDir, os.Getenv(EnvDataDir))

	if v := os.Getenv(EnvCORSOrigins); v != "" {
		c.corsOrigins = splitList(v)
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRateLimit, err)
		}
		c.rateLimit = f
	}
	if err := envInt(EnvRateBurst, &c.rateBurst); err != nil {
		return err
	}

	setString(&c.backend, os.Getenv(EnvSummarizerBackend))
	setString(&c.model, os.Getenv(EnvSummarizerModel))
	for name, dst := range map[string]*int{
		EnvMaxChunkLength:   &c.maxChunkLength,
		EnvMinSummaryLength: &c.minSummaryLength,
		EnvMaxSummaryLength: &c.maxSummaryLength,
		EnvSummarizeWorkers: &c.summarizeWorkers,
	} {
		if err := envInt(name, dst); err != nil {
			return err
		}
	}

	setString(&c.pipelinesPython, os.Getenv(EnvPipelinesPython))
	setString(&c.pipelinesModule, os.Getenv(EnvPipelinesModule))
	setString(&c.pipelinesDevice, os.Getenv(EnvPipelinesDevice))

	setString(&c.hfURL, os.Getenv(EnvHuggingFaceURL))
	setString(&c.hfToken, firstNonEmpty(os.Getenv(EnvHuggingFaceToken), os.Getenv(EnvHFTokenFallback)))
	setString(&c.geminiAPIKey, firstNonEmpty(os.Getenv(EnvGeminiAPIKey), os.Getenv(EnvGeminiFallback)))

	setString(&c.captionsBaseURL, os.Getenv(EnvCaptionsBaseURL))
	if v := os.Getenv(EnvCaptionLanguages); v != "" {
		c.captionLanguages = splitList(v)
	}

	setString(&c.nhostGraphQLURL, os.Getenv(EnvNhostGraphQLURL))
	setString(&c.nhostAdminSecret, os.Getenv(EnvNhostAdminSecret))
	setString(&c.postgresURL, os.Getenv(EnvPostgresURL))
	setString(&c.redisURL, os.Getenv(EnvRedisURL))
	if v := os.Getenv(EnvRedisTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisTTL, err)
		}
		c.redisTTL = d
	}

	setString(&c.inboxDir, os.Getenv(EnvInboxDir))
	return nil
}

// Validate checks value ranges and backend requirements.
func (c *EnvConfig) Validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	switch c.backend {
	case BackendPipelines, BackendHuggingFace:
	case BackendGemini:
		if c.geminiAPIKey == "" {
			return fmt.Errorf("summarizer %q requires %s", BackendGemini, EnvGeminiAPIKey)
		}
	default:
		return fmt.Errorf("unknown summarizer backend %q (want %s, %s or %s)",
			c.backend, BackendPipelines, BackendHuggingFace, BackendGemini)
	}
	if c.maxChunkLength < 1 {
		return fmt.Errorf("max chunk length must be positive, got %d", c.maxChunkLength)
	}
	if c.minSummaryLength < 0 || c.maxSummaryLength < 1 || c.maxSummaryLength < c.minSummaryLength {
		return fmt.Errorf("invalid summary length bounds %d-%d", c.minSummaryLength, c.maxSummaryLength)
	}
	if c.summarizeWorkers < 1 {
		return fmt.Errorf("summarize workers must be at least 1, got %d", c.summarizeWorkers)
	}
	if c.rateLimit < 0 || c.rateBurst < 1 {
		return fmt.Errorf("invalid rate limit %.2f/s burst %d", c.rateLimit, c.rateBurst)
	}
	if c.redisTTL < 0 {
		return fmt.Errorf("redis ttl must not be negative")
	}
	return nil
}

func (c *EnvConfig) Host() string { return c.host }

// Port returns the HTTP server port
func (c *EnvConfig) Port() int { return c.port }

// Addr returns host:port for the HTTP listener.
func (c *EnvConfig) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string { return c.logLevel }

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string { return c.dataDir }

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the default directory for exported summaries.
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

func (c *EnvConfig) CORSOrigins() []string { return c.corsOrigins }

// RateLimit returns the allowed summarize requests per second. Zero
// disables limiting.
func (c *EnvConfig) RateLimit() float64 { return c.rateLimit }
func (c *EnvConfig) RateBurst() int     { return c.rateBurst }

func (c *EnvConfig) SummarizerBackend() string { return c.backend }

// SummarizerModel returns the configured model name, or "" for the
// backend's default.
func (c *EnvConfig) SummarizerModel() string { return c.model }
func (c *EnvConfig) MaxChunkLength() int     { return c.maxChunkLength }
func (c *EnvConfig) MinSummaryLength() int   { return c.minSummaryLength }
func (c *EnvConfig) MaxSummaryLength() int   { return c.maxSummaryLength }
func (c *EnvConfig) SummarizeWorkers() int   { return c.summarizeWorkers }

func (c *EnvConfig) PipelinesPython() string { return c.pipelinesPython }

func (c *EnvConfig) PipelinesModule() string {
	if c.pipelinesModule != "" {
		return c.pipelinesModule
	}
	return DefaultPipelinesModule
}

func (c *EnvConfig) PipelinesDevice() string { return c.pipelinesDevice }

func (c *EnvConfig) PipelinesTimeoutDoctor() time.Duration {
	return time.Duration(DefaultPipelinesTimeoutDoctor) * time.Second
}

func (c *EnvConfig) PipelinesTimeoutLoad() time.Duration {
	return time.Duration(DefaultPipelinesTimeoutLoad) * time.Second
}

func (c *EnvConfig) HuggingFaceURL() string   { return c.hfURL }
func (c *EnvConfig) HuggingFaceToken() string { return c.hfToken }
func (c *EnvConfig) GeminiAPIKey() string     { return c.geminiAPIKey }

func (c *EnvConfig) CaptionsBaseURL() string    { return c.captionsBaseURL }
func (c *EnvConfig) CaptionLanguages() []string { return c.captionLanguages }

func (c *EnvConfig) NhostGraphQLURL() string  { return c.nhostGraphQLURL }
func (c *EnvConfig) NhostAdminSecret() string { return c.nhostAdminSecret }
func (c *EnvConfig) PostgresURL() string      { return c.postgresURL }
func (c *EnvConfig) RedisURL() string         { return c.redisURL }
func (c *EnvConfig) RedisTTL() time.Duration  { return c.redisTTL }

// InboxDir returns the directory watched for URL list files; empty
// disables the watcher.
func (c *EnvConfig) InboxDir() string { return c.inboxDir }

func (c *EnvConfig) JobPollInterval() time.Duration { return DefaultJobPollInterval }

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
