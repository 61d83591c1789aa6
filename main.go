package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"quran-go/internal/config"
	"quran-go/internal/feed"
	"quran-go/internal/kv"
	"quran-go/internal/likes"
	"quran-go/internal/logger"
	"quran-go/internal/nav"
	"quran-go/internal/progress"
	"quran-go/internal/quran"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logFile, logErr := logger.OpenFile(cfg.Logger.File)
	defer logFile.Close()
	log := logger.New(logger.Config{
		Writer:      logFile,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", logErr)
	}
	log.Info("starting", "env", cfg.App.Environment, "data_dir", cfg.App.DataDir)

	strategy, err := likes.ParseStrategy(cfg.Store.LikesStrategy)
	if err != nil {
		return err
	}

	store := kv.Open(context.Background(), kv.Options{
		Redis: kv.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		},
		BadgerPath: cfg.BadgerPath(),
	}, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	client := quran.NewClient(quran.Options{
		BaseURL:            cfg.API.BaseURL,
		PrimaryEdition:     cfg.API.Edition,
		TranslationEdition: cfg.API.Translation,
		Timeout:            cfg.API.RequestTimeout,
		RequestsPerSecond:  cfg.API.RateLimit,
	}, log)

	session := progress.NewViewSet()
	resolver := nav.NewResolver()

	m := newModel(modelDeps{
		Fetcher:  client,
		Likes:    likes.NewTracker(store, strategy, log),
		Progress: progress.NewTracker(store, session, log),
		Resolver: resolver,
		Feed: feed.Options{
			InitialBatch: cfg.Feed.InitialBatch,
			BatchSize:    cfg.Feed.BatchSize,
			Threshold:    cfg.Feed.Prefetch,
		},
		Theme:  cfg.UI.Theme,
		Logger: log,
		Start:  resolver.Resolve(cfg.UI.StartPath),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	log.Info("stopped", "session", session.ID(), "verses_seen", session.Len())
	return nil
}
