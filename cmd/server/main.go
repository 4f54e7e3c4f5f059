package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/recgest/internal/api"
	"github.com/dgallion1/recgest/internal/cache"
	"github.com/dgallion1/recgest/internal/config"
	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/logger"
	"github.com/dgallion1/recgest/internal/parser"
	"github.com/dgallion1/recgest/internal/pipeline"
	"github.com/dgallion1/recgest/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Text completion.
	stats := extract.NewLLMStats(cfg.LLMProvider, cfg.LLMModel(), time.Hour)
	llm, err := newCompleter(cfg, stats, log)
	if err != nil {
		log.Error("init llm client", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}

	respCache, err := newCache(ctx, cfg)
	if err != nil {
		log.Error("init response cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer respCache.Close()
	cached := extract.NewCachedCompleter(llm, respCache, cfg.LLMModel(), cfg.CacheTTL, log)

	// Document conversion.
	opts := parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}
	if cfg.DocumentConverter == "documentai" {
		docai, err := parser.NewDocAIConverter(ctx, parser.DocAIOptions{
			Project:          cfg.DocumentAIProject,
			Location:         cfg.DocumentAILocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
			Log:              log,
		})
		if err != nil {
			log.Error("init document ai", "error", err)
			os.Exit(1)
		}
		defer docai.Close()
		opts.Layout = docai
	}
	conv := parser.NewCachingConverter(parser.NewRouter(opts), st, log)

	// Pipeline.
	runnerCfg, err := pipeline.NewRunnerConfig(cfg)
	if err != nil {
		log.Error("invalid pipeline configuration", "error", err)
		os.Exit(1)
	}
	runner := pipeline.NewRunner(llm, st, runnerCfg, log)
	meta := pipeline.NewMetadataService(cached, st, log)
	synth := pipeline.NewSynthesisService(cached, st, log)
	worker := pipeline.NewWorker(conv, meta, runner, st, log)

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, worker, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{Store: st, Jobs: orch, Synth: synth, Stats: stats}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		orch.Stop()
	}()

	log.Info("starting recgest", "port", cfg.Port, "provider", cfg.LLMProvider, "model", cfg.LLMModel(),
		"converter", cfg.DocumentConverter, "cache", cfg.CacheBackend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newCompleter(cfg config.Config, stats *extract.LLMStats, log *logger.Logger) (extract.Completer, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return extract.NewAnthropicClient(extract.AnthropicOptions{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			Timeout:     cfg.LLMTimeout,
			MaxAttempts: cfg.LLMMaxAttempts,
			Stats:       stats,
			Log:         log,
		})
	default:
		return extract.NewOpenAIClient(extract.OpenAIOptions{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			Timeout:     cfg.LLMTimeout,
			MaxAttempts: cfg.LLMMaxAttempts,
			Stats:       stats,
			Log:         log,
		})
	}
}

func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedisCache(ctx, cfg.RedisAddr)
	}
	return cache.NewMemoryCache(), nil
}
