package tasks

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newswatch/app/database"
)

// DispatchAll enqueues exactly one download per feed, in the order given.
// A failed enqueue does not stop the fan-out; every failure is returned
// joined, alongside the number of units that were accepted.
func DispatchAll(feeds []database.Feed, q Enqueuer) (int, error) {
	enqueued := 0
	var errs []error

	for _, f := range feeds {
		if err := q.EnqueueDownload(f); err != nil {
			slog.Warn("Failed to enqueue DownloadFeedTask", "feed", f.Name, "id", f.ID, "error", err)
			errs = append(errs, fmt.Errorf("feed %s: %w", f.Name, err))
			continue
		}
		enqueued++
	}

	slog.Debug("Dispatched feed downloads", "feeds", len(feeds), "enqueued", enqueued)

	return enqueued, errors.Join(errs...)
}
