package database

import (
	"time"
)

// TimeLayout is the naive timestamp format used for every stored time.
// Values carry no zone: they are already in the reporting zone.
const TimeLayout = "2006-01-02T15:04:05"

type Feed struct {
	ID              string // Database UUID
	Name            string // Catalog identifier, unique
	URL             string
	MonthlyVisitors int64 // Readership proxy, 0 when unknown
	CreatedAt       time.Time
}

type Topic struct {
	ID        string
	Name      string // Unique, case-sensitive
	CreatedAt time.Time

	// Trailing stats cached by the last stats run, nil until computed
	CountPastSevenDays       *int
	CountPastTwentyFourHours *int
	WeekOnWeekChange         *float64
	StatsComputedAt          *time.Time
}

type Article struct {
	ID               string
	Permalink        string
	Title            string
	Summary          string
	UpdatedAt        *time.Time // nil when the source never supplied one
	PotentialReaders int64
	TopicIDs         []string // In association order
	FeedIDs          []string // In association order
	CreatedAt        time.Time
}

// HasTopic reports whether topicID is already associated with the article.
func (a *Article) HasTopic(topicID string) bool {
	for _, id := range a.TopicIDs {
		if id == topicID {
			return true
		}
	}
	return false
}

// HasFeed reports whether feedID is already associated with the article.
func (a *Article) HasFeed(feedID string) bool {
	for _, id := range a.FeedIDs {
		if id == feedID {
			return true
		}
	}
	return false
}

// AddTopic adds topicID to the association set. Re-adding is a no-op.
func (a *Article) AddTopic(topicID string) bool {
	if a.HasTopic(topicID) {
		return false
	}
	a.TopicIDs = append(a.TopicIDs, topicID)
	return true
}

// AddFeed adds feedID to the association set. Re-adding is a no-op.
func (a *Article) AddFeed(feedID string) bool {
	if a.HasFeed(feedID) {
		return false
	}
	a.FeedIDs = append(a.FeedIDs, feedID)
	return true
}

type TopicStats struct {
	CountPastSevenDays       int
	CountPastTwentyFourHours int
	WeekOnWeekChange         *float64
	ComputedAt               time.Time
}

// Naive drops the zone of t, keeping its wall clock fields truncated to the second.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func formatTime(t time.Time) string {
	return Naive(t).Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
