package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
	"github.com/lysyi3m/newswatch/app/ingest"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	defaultQueueSize = 300
	taskTimeout      = 5 * time.Minute
	maxRetryDelay    = 30 * time.Second
)

// Dependencies are the collaborators tasks are built from.
type Dependencies struct {
	ConfigCache *feed.ConfigCache // Optional, no catalog sync when nil
	FeedRepo    database.FeedRepository
	TopicRepo   database.TopicRepository
	ArticleRepo database.ArticleRepository
	Engine      *ingest.Engine
	Source      ingest.EntrySource
}

type Options struct {
	WorkerCount      int
	DispatchInterval time.Duration
	StatsInterval    time.Duration
	Topics           []string
}

type Scheduler struct {
	deps             Dependencies
	topics           []string
	dispatchInterval time.Duration
	statsInterval    time.Duration
	workerCount      int
	retryBaseDelay   time.Duration
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(deps Dependencies, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		deps:             deps,
		topics:           opts.Topics,
		dispatchInterval: opts.DispatchInterval,
		statsInterval:    opts.StatsInterval,
		workerCount:      max(opts.WorkerCount, 1),
		retryBaseDelay:   time.Second,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, defaultQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		dispatchTicker := time.NewTicker(s.dispatchInterval)
		defer dispatchTicker.Stop()
		statsTicker := time.NewTicker(s.statsInterval)
		defer statsTicker.Stop()

		s.runStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-dispatchTicker.C:
				if _, err := s.Dispatch(s.ctx); err != nil {
					slog.Warn("Periodic dispatch incomplete", "error", err)
				}
			case <-statsTicker.C:
				if err := s.RefreshStats(); err != nil {
					slog.Warn("Failed to enqueue ComputeTopicStatsTask", "error", err)
				}
			}
		}
	}()
}

// Stop cancels pending work and waits for workers to return. Queued tasks
// that have not started are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) EnqueueDownload(f database.Feed) error {
	return s.EnqueueTask(NewDownloadFeedTask(f.ID, s.deps.FeedRepo, s.deps.TopicRepo, s.deps.Engine, s.deps.Source))
}

// Dispatch enqueues a download for every feed in storage.
func (s *Scheduler) Dispatch(ctx context.Context) (int, error) {
	feeds, err := s.deps.FeedRepo.GetAllFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get feeds: %w", err)
	}

	return DispatchAll(feeds, s)
}

func (s *Scheduler) RefreshStats() error {
	return s.EnqueueTask(NewComputeTopicStatsTask(s.deps.TopicRepo, s.deps.ArticleRepo))
}

// runStartupTasks syncs the catalog before the first dispatch so that
// downloads see every configured feed and topic.
func (s *Scheduler) runStartupTasks() {
	if s.deps.ConfigCache != nil {
		syncTask := NewSyncCatalogTask(s.deps.ConfigCache.GetConfigs(), s.topics, s.deps.FeedRepo, s.deps.TopicRepo)
		syncTask.Start()
		if err := syncTask.Execute(s.ctx); err != nil {
			slog.Error("Catalog sync failed", "error", err)
		}
	}

	count, err := s.Dispatch(s.ctx)
	if err != nil {
		slog.Warn("Startup dispatch incomplete", "error", err)
	}
	slog.Debug("Startup dispatch finished", "enqueued", count)

	if err := s.RefreshStats(); err != nil {
		slog.Warn("Failed to enqueue ComputeTopicStatsTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(s.retryBaseDelay<<uint(task.GetRetryCount()-1), maxRetryDelay)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
