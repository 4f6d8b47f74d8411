package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/heimdex/digest-agent/internal/api"
	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/cloud"
	"github.com/heimdex/digest-agent/internal/config"
	"github.com/heimdex/digest-agent/internal/db"
	"github.com/heimdex/digest-agent/internal/digest"
	"github.com/heimdex/digest-agent/internal/logging"
	"github.com/heimdex/digest-agent/internal/pipelines"
	"github.com/heimdex/digest-agent/internal/store"
	"github.com/heimdex/digest-agent/internal/summarize"
	"github.com/heimdex/digest-agent/internal/transcript"
	"github.com/heimdex/digest-agent/internal/watcher"
	"github.com/heimdex/digest-agent/internal/youtube"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting digest agent",
		"version", config.Version,
		"data_dir", cfg.DataDir(),
		"backend", cfg.SummarizerBackend(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	instanceID, err := ensureInstanceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure instance ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  DIGEST AGENT v%-27s║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://%-38s║\n", cfg.Addr())
	fmt.Printf("║  Auth Token: %-45s║\n", authToken)
	fmt.Printf("║  Instance:   %-45s║\n", instanceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks, err := buildSinks(ctx, cfg, repo, logger)
	if err != nil {
		return err
	}
	defer sinks.Close()

	var doctor *pipelines.CachedDoctor
	var loader summarize.Loader
	modelName := cfg.SummarizerModel()

	switch cfg.SummarizerBackend() {
	case config.BackendHuggingFace:
		if modelName == "" {
			modelName = summarize.DefaultHuggingFaceModel
		}
		hf := summarize.NewHuggingFaceModel(cfg.HuggingFaceURL(), modelName, cfg.HuggingFaceToken())
		loader = func(ctx context.Context) (summarize.Model, error) { return hf, nil }

	case config.BackendGemini:
		if modelName == "" {
			modelName = summarize.DefaultGeminiModel
		}
		loader = func(ctx context.Context) (summarize.Model, error) {
			m, err := summarize.NewGeminiModel(ctx, cfg.GeminiAPIKey(), modelName)
			if err != nil {
				return nil, err
			}
			return m, nil
		}

	default:
		if modelName == "" {
			modelName = pipelines.DefaultModel
		}
		pipeCfg := pipelines.Config{
			PythonPath:    cfg.PipelinesPython(),
			ModuleName:    cfg.PipelinesModule(),
			ModelName:     modelName,
			Device:        cfg.PipelinesDevice(),
			ArtifactsBase: filepath.Join(cfg.DataDir(), "artifacts"),
			DoctorTimeout: cfg.PipelinesTimeoutDoctor(),
			LoadTimeout:   cfg.PipelinesTimeoutLoad(),
			Logger:        logger,
		}

		pr, err := pipelines.NewRunner(pipeCfg)
		if err != nil {
			logger.Warn("pipeline runner unavailable, summarization will fail", "error", err)
			loader = func(ctx context.Context) (summarize.Model, error) {
				return nil, fmt.Errorf("pipeline runner unavailable: %w", err)
			}
			break
		}

		doctor = pipelines.NewCachedDoctor(pr, 0, logger)
		initCtx, initCancel := context.WithTimeout(ctx, pipeCfg.DoctorTimeout)
		if caps, err := doctor.Refresh(initCtx); err != nil {
			logger.Warn("initial doctor probe failed", "error", err)
		} else {
			logger.Info("pipeline capabilities detected",
				"summarize", caps.HasSummarize,
				"cuda", caps.GPU.CUDAAvailable,
				"deps", fmt.Sprintf("%d/%d", caps.Summary.Available, caps.Summary.Total),
			)
		}
		initCancel()

		loader = func(ctx context.Context) (summarize.Model, error) {
			w, err := pr.StartWorker(ctx)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
	}

	model := summarize.NewLazy(modelName, loader, logger)
	defer model.Close()

	summarizer, err := summarize.New(model, summarize.Options{
		MaxChunkLength:   cfg.MaxChunkLength(),
		MinSummaryLength: cfg.MinSummaryLength(),
		MaxSummaryLength: cfg.MaxSummaryLength(),
		Workers:          cfg.SummarizeWorkers(),
	}, logger)
	if err != nil {
		return fmt.Errorf("invalid summarizer options: %w", err)
	}

	captions := youtube.NewClient(youtube.ClientConfig{
		BaseURL:   cfg.CaptionsBaseURL(),
		Languages: cfg.CaptionLanguages(),
		Logger:    logger,
	})

	digestSvc := digest.NewService(
		transcript.NewFetcher(captions, logger),
		summarizer,
		sinks,
		digest.Config{Backend: cfg.SummarizerBackend(), Model: modelName},
		logger,
	)

	catalogSvc := catalog.NewService(repo, logger)
	runner := catalog.NewRunner(catalogSvc, repo, digestSvc, logger)
	runner.SetPollInterval(cfg.JobPollInterval())
	go runner.Start(ctx)

	var inbox *watcher.InboxWatcher
	if cfg.InboxDir() != "" {
		inbox, err = watcher.New(cfg.InboxDir(), catalogSvc, logger)
		if err != nil {
			logger.Warn("inbox watcher unavailable", "dir", cfg.InboxDir(), "error", err)
		} else {
			go func() {
				if err := inbox.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("inbox watcher stopped", "error", err)
				}
			}()
		}
	}

	apiServer := api.NewServer(api.ServerConfig{
		Addr:           cfg.Addr(),
		CORSOrigins:    cfg.CORSOrigins(),
		RateLimit:      cfg.RateLimit(),
		RateBurst:      cfg.RateBurst(),
		Digest:         digestSvc,
		DigestStats:    digestSvc.Stats,
		CatalogService: catalogSvc,
		Repository:     repo,
		Runner:         runner,
		Doctor:         doctor,
		Model:          model,
		Backend:        cfg.SummarizerBackend(),
		Sinks:          sinks.Names(),
		ExportDir:      cfg.ExportDir(),
		Logger:         logger,
		StartTime:      startTime,
		InstanceID:     instanceID,
		Version:        config.Version,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if inbox != nil {
		inbox.Stop()
	}

	logger.Info("shutdown complete")
	return nil
}

// buildSinks assembles the persistence chain. The local catalog always comes
// first; remote stores follow in the order they are configured.
func buildSinks(ctx context.Context, cfg *config.EnvConfig, repo catalog.Repository, logger *slog.Logger) (*store.Multi, error) {
	sinks := []store.Sink{store.NewCatalogSink(repo)}

	if url := cfg.NhostGraphQLURL(); url != "" {
		client := cloud.NewHTTPClient(url, cfg.NhostAdminSecret(), logger)
		sinks = append(sinks, store.NewCloudSink(client))
		logger.Info("cloud sink enabled",
			"graphql_url", logging.SanitizeURL(url),
			"admin_secret", logging.SanitizeToken(cfg.NhostAdminSecret()),
		)
	}

	if url := cfg.PostgresURL(); url != "" {
		pg, err := store.NewPostgresSink(ctx, url, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sinks = append(sinks, pg)
	}

	if url := cfg.RedisURL(); url != "" {
		rs, err := store.NewRedisSink(ctx, url, cfg.RedisTTL(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		sinks = append(sinks, rs)
	}

	return store.NewMulti(logger, sinks...), nil
}

func ensureInstanceID(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "instance_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	instanceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "instance_id", instanceID); err != nil {
		return "", err
	}

	return instanceID, nil
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
