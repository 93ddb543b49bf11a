package tasks

import (
	"context"

	"github.com/lysyi3m/newswatch/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the HTTP API to manage background work.
//
//	scheduler := NewScheduler(deps, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueDownload(feed)
type TaskSchedulerInterface interface {
	Enqueuer
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Dispatch(ctx context.Context) (int, error)
	RefreshStats() error
}

// Enqueuer accepts one download unit for a feed.
type Enqueuer interface {
	EnqueueDownload(f database.Feed) error
}
