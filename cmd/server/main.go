package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docgraph/internal/api"
	"github.com/dgallion1/docgraph/internal/cache"
	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/pathstore"
	"github.com/dgallion1/docgraph/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Parsing overrides are checked once against every preset so a bad file
	// fails startup rather than the first request.
	var overrides *config.File
	if cfg.ParsingConfigPath != "" {
		f, err := config.LoadFile(cfg.ParsingConfigPath)
		if err != nil {
			log.Error("invalid parsing config", "path", cfg.ParsingConfigPath, "error", err)
			os.Exit(1)
		}
		overrides = f
	}
	for _, t := range config.DocumentTypes() {
		if _, err := config.Resolve(t, overrides); err != nil {
			log.Error("invalid parsing config", "doc_type", t, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store cache.Store
	var sqlite *cache.SQLite
	if cfg.CachePath != "" {
		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			log.Error("open graph cache", "path", cfg.CachePath, "error", err)
			os.Exit(1)
		}
		sqlite, store = c, c
	}

	var ps *pathstore.Client
	var pub pipeline.Publisher
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		pub = pathstore.NewPublisher(ps)
	}

	proc := pipeline.NewProcessor(store, parser.Options{PDFFallback: cfg.PDFFallbackPdftotext}, cfg.IncludeStyleInfo, log)
	orch := pipeline.NewOrchestrator(cfg, proc, pub, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, proc, overrides, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
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
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if ps != nil {
			ps.Close()
		}
		if sqlite != nil {
			sqlite.Close()
		}
	}()

	log.Info("starting docgraph",
		"port", cfg.Port,
		"default_doc_type", cfg.DefaultDocType,
		"workers", cfg.WorkerCount,
		"cache", cfg.CachePath != "",
		"publishing", cfg.PathstoreURL != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
