package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"verbum/internal/config"
	"verbum/internal/distance"
	"verbum/internal/docquery"
	"verbum/internal/domain"
	"verbum/internal/embedding"
	"verbum/internal/embedding/tfidf"
	"verbum/internal/extract"
	"verbum/internal/hierarchy"
	"verbum/internal/logging"
	"verbum/internal/profile"
	openaiprovider "verbum/internal/provider/openai"
	"verbum/internal/server"
	"verbum/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, root string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/verbum/config.yaml if not provided)")
	flag.StringVar(&root, "root", "", "Indexed document root (overrides config)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if root != "" {
		cfg.Library = root
	}

	logger := logging.NewJSON(cfg.LogLevel, os.Stderr)

	profilePath := cfg.Profile.Path
	if profilePath == "" {
		profilePath, err = config.DefaultProfilePath()
		if err != nil {
			log.Fatalf("cannot resolve profile path: %v", err)
		}
	}

	walker := hierarchy.NewWalker(cfg.Library, logger)
	prof := profile.NewStore(profilePath, logger)
	folders := summarizer.NewFolderSummarizer(walker, logger)
	cache := embedding.NewCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSecs)*time.Second)

	// Assemble the provider. A missing credential is not fatal: the engine
	// degrades to an empty matrix and queries report the condition.
	var emb domain.Embedder
	var completer domain.Completer
	switch cfg.Embedder.Type {
	case "openai", "":
		client, err := openaiprovider.NewClient(openaiprovider.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			ChatModel:  cfg.Embedder.OpenAI.ChatModel,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Embedder.OpenAI.MaxRetries,
		})
		if err != nil {
			if !errors.Is(err, openaiprovider.ErrNotConfigured) {
				log.Fatalf("openai provider init failed: %v", err)
			}
			logger.Warn("openai provider not configured, embeddings and queries disabled")
		} else {
			emb = client
			completer = client
		}
	case "tfidf":
		emb = tfidf.NewEmbedder()
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	engine := distance.NewEngine(walker, folders, prof, emb, cache, cfg.Embedder.Concurrency, logger)
	queries := docquery.NewService(walker, extract.New(), completer, logger)

	srv := server.New(cfg.Server, walker, prof, engine, queries, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
