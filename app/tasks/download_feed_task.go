package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/ingest"
)

type DownloadFeedTask struct {
	Task
	FeedID    string
	feedRepo  database.FeedRepository
	topicRepo database.TopicRepository
	engine    *ingest.Engine
	source    ingest.EntrySource
}

func NewDownloadFeedTask(feedID string, feedRepo database.FeedRepository, topicRepo database.TopicRepository, engine *ingest.Engine, source ingest.EntrySource) *DownloadFeedTask {
	return &DownloadFeedTask{
		Task:      NewTask(TaskTypeDownloadFeed, feedID),
		FeedID:    feedID,
		feedRepo:  feedRepo,
		topicRepo: topicRepo,
		engine:    engine,
		source:    source,
	}
}

func (t *DownloadFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := t.feedRepo.GetFeed(ctx, t.FeedID)
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}

	topics, err := t.topicRepo.GetAllTopics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load topics: %w", err)
	}

	report, err := t.engine.IngestFeed(ctx, *f, topics, t.source)
	if err != nil {
		return fmt.Errorf("failed to ingest feed: %w", err)
	}

	slog.Info("Task completed",
		"type", "DownloadFeed",
		"feed", f.Name,
		"duration", t.GetDuration(),
		"entries", report.Entries,
		"touched", report.ArticlesTouched,
		"new", report.ArticlesCreated,
		"warnings", len(report.Warnings))

	return nil
}
