package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/newswatch/app/api"
	"github.com/lysyi3m/newswatch/app/cfg"
	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
	"github.com/lysyi3m/newswatch/app/ingest"
	"github.com/lysyi3m/newswatch/app/query"
	"github.com/lysyi3m/newswatch/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Newswatch", "version", appCfg.Version, "timezone", appCfg.Timezone)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed catalog", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed catalog loaded", "dir", appCfg.FeedsDir, "feeds", configCache.GetConfigCount(), "topics", len(appCfg.Topics))

	feedRepo := database.NewFeedRepository(db)
	topicRepo := database.NewTopicRepository(db)
	articleRepo := database.NewArticleRepository(db)

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.FetchTimeout) * time.Second,
	}
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, time.Duration(appCfg.FetchTimeout)*time.Second)
	engine := ingest.NewEngine(articleRepo)

	scheduler := tasks.NewScheduler(tasks.Dependencies{
		ConfigCache: configCache,
		FeedRepo:    feedRepo,
		TopicRepo:   topicRepo,
		ArticleRepo: articleRepo,
		Engine:      engine,
		Source:      fetcher,
	}, tasks.Options{
		WorkerCount:      appCfg.WorkerCount,
		DispatchInterval: time.Duration(appCfg.DispatchInterval) * time.Second,
		StatsInterval:    time.Duration(appCfg.StatsInterval) * time.Second,
		Topics:           appCfg.Topics,
	})
	scheduler.Start()
	slog.Info("Scheduler started", "workers", appCfg.WorkerCount, "dispatch_interval", appCfg.DispatchInterval, "stats_interval", appCfg.StatsInterval)

	handler := api.NewHandler(configCache, feedRepo, topicRepo, articleRepo, query.NewService(topicRepo, articleRepo), scheduler)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Shutdown complete")
}
