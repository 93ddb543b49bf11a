package ingest

import (
	"errors"
	"fmt"
)

var ErrFeedUnavailable = errors.New("feed unavailable")

// FeedUnavailableError is returned when a feed's entries could not be
// obtained at all. Nothing is ingested for that feed.
type FeedUnavailableError struct {
	FeedID   string
	FeedName string
	Err      error
}

func (e *FeedUnavailableError) Error() string {
	return fmt.Sprintf("feed %q (%s) unavailable: %v", e.FeedName, e.FeedID, e.Err)
}

func (e *FeedUnavailableError) Unwrap() error {
	return e.Err
}

func (e *FeedUnavailableError) Is(target error) bool {
	return target == ErrFeedUnavailable
}
