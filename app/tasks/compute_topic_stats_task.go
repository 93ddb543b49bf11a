package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/stats"
)

// ComputeTopicStatsTask refreshes the trailing counts cached on every topic.
type ComputeTopicStatsTask struct {
	Task
	topicRepo   database.TopicRepository
	articleRepo database.ArticleRepository
	now         func() time.Time
}

func NewComputeTopicStatsTask(topicRepo database.TopicRepository, articleRepo database.ArticleRepository) *ComputeTopicStatsTask {
	return &ComputeTopicStatsTask{
		Task:        NewTask(TaskTypeComputeTopicStats, ""),
		topicRepo:   topicRepo,
		articleRepo: articleRepo,
		now:         time.Now,
	}
}

func (t *ComputeTopicStatsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	topics, err := t.topicRepo.GetAllTopics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load topics: %w", err)
	}

	now := t.now()
	for _, topic := range topics {
		articles, err := t.articleRepo.GetArticlesByTopic(ctx, topic.ID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load articles for topic %s: %w", topic.Name, err)
		}

		topicStats := stats.Summarize(articles, now)
		if err := t.topicRepo.UpdateTopicStats(ctx, topic.ID, topicStats); err != nil {
			return fmt.Errorf("failed to store stats for topic %s: %w", topic.Name, err)
		}

		slog.Debug("Topic stats computed",
			"topic", topic.Name,
			"past_7d", topicStats.CountPastSevenDays,
			"past_24h", topicStats.CountPastTwentyFourHours)
	}

	slog.Info("Task completed",
		"type", "ComputeTopicStats",
		"duration", t.GetDuration(),
		"topics", len(topics))

	return nil
}
