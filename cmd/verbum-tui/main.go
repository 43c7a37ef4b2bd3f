package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
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
	"verbum/internal/summarizer"
	"verbum/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.Parse()
	root := flag.Arg(0)

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
	if root == "" {
		root = cfg.Library
	}
	if _, err := os.Stat(root); err != nil {
		fmt.Println("Usage: verbum-tui [--config=config.yaml] <document-root>")
		os.Exit(1)
	}

	// TUI keeps the terminal; log to a file instead of stderr.
	logFile, err := os.OpenFile("verbum-tui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("cannot open log file: %v", err)
	}
	defer logFile.Close()
	logger := logging.New(cfg.LogLevel, logFile)

	profilePath := cfg.Profile.Path
	if profilePath == "" {
		profilePath, err = config.DefaultProfilePath()
		if err != nil {
			log.Fatalf("cannot resolve profile path: %v", err)
		}
	}

	walker := hierarchy.NewWalker(root, logger)
	prof := profile.NewStore(profilePath, logger)
	folders := summarizer.NewFolderSummarizer(walker, logger)
	cache := embedding.NewCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSecs)*time.Second)

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
			logger.Warn("openai provider not configured, falling back to local tf-idf")
			emb = tfidf.NewEmbedder()
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

	m := tui.New(walker, prof, engine, queries)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
