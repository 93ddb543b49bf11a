package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
)

// SyncCatalogTask writes the feed catalog and the configured topic names
// into storage. Existing topics are left untouched.
type SyncCatalogTask struct {
	Task
	configs   []*feed.Config
	topics    []string
	feedRepo  database.FeedRepository
	topicRepo database.TopicRepository
}

func NewSyncCatalogTask(configs []*feed.Config, topics []string, feedRepo database.FeedRepository, topicRepo database.TopicRepository) *SyncCatalogTask {
	return &SyncCatalogTask{
		Task:      NewTask(TaskTypeSyncCatalog, ""),
		configs:   configs,
		topics:    topics,
		feedRepo:  feedRepo,
		topicRepo: topicRepo,
	}
}

func (t *SyncCatalogTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for _, feedConfig := range t.configs {
		if _, err := t.feedRepo.UpsertFeed(ctx, feedConfig.Name, feedConfig.URL, feedConfig.MonthlyVisitors); err != nil {
			slog.Error("Task failed", "type", "SyncCatalog", "feed", feedConfig.Name, "error", err)
			return fmt.Errorf("failed to sync feed %s to database: %w", feedConfig.Name, err)
		}
	}

	created := 0
	for _, name := range t.topics {
		if _, err := t.topicRepo.CreateTopic(ctx, name); err != nil {
			if errors.Is(err, database.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("failed to create topic %s: %w", name, err)
		}
		created++
	}

	slog.Info("Task completed",
		"type", "SyncCatalog",
		"duration", t.GetDuration(),
		"feeds", len(t.configs),
		"topics", len(t.topics),
		"new_topics", created)

	return nil
}
