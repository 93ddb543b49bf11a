package stats

import (
	"fmt"
	"time"

	"github.com/lysyi3m/newswatch/app/database"
)

type Unit string

const (
	Day  Unit = "day"
	Week Unit = "week"
)

// EmptyWindow is the number of buckets emitted, ending at the reference
// bucket, when no article carries a timestamp.
const EmptyWindow = 3

func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Day, Week:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("unknown bucket unit %q", s)
	}
}

// Bucket covers [From, To]; To is one second before the next bucket starts.
type Bucket struct {
	From  time.Time
	To    time.Time
	Count int
}

type Result struct {
	Unit    Unit
	Buckets []Bucket // Most recent first
	Skipped int      // Articles without a timestamp
	// WeekOnWeekChange compares the reference week with the one before it.
	// Only set for Week, and nil when the prior week is empty but the current one is not.
	WeekOnWeekChange *float64
}

// summary is the result of folding articles into per-bucket counts.
type summary struct {
	counts   map[time.Time]int
	oldest   time.Time
	newest   time.Time
	occupied bool
	skipped  int
}

// Aggregate buckets articles by their updated time into a contiguous,
// gap-filled sequence ending at the bucket containing reference (or the newest
// occupied bucket, if later). It panics on an unknown unit.
func Aggregate(articles []database.Article, reference time.Time, unit Unit) Result {
	s := fold(articles, unit)
	result := Result{
		Unit:    unit,
		Buckets: generate(s, reference, unit),
		Skipped: s.skipped,
	}

	if unit == Week {
		current := unit.start(reference)
		prior := unit.prev(current)
		result.WeekOnWeekChange = WeekOnWeekChange(s.counts[current], s.counts[prior])
	}

	return result
}

func fold(articles []database.Article, unit Unit) summary {
	s := summary{counts: make(map[time.Time]int)}
	for _, article := range articles {
		if article.UpdatedAt == nil {
			s.skipped++
			continue
		}

		key := unit.start(*article.UpdatedAt)
		s.counts[key]++
		if !s.occupied || key.Before(s.oldest) {
			s.oldest = key
		}
		if !s.occupied || key.After(s.newest) {
			s.newest = key
		}
		s.occupied = true
	}
	return s
}

func generate(s summary, reference time.Time, unit Unit) []Bucket {
	last := unit.start(reference)
	first := last
	if s.occupied {
		if s.oldest.Before(first) {
			first = s.oldest
		}
		if s.newest.After(last) {
			last = s.newest
		}
	} else {
		for i := 1; i < EmptyWindow; i++ {
			first = unit.prev(first)
		}
	}

	var buckets []Bucket
	for start := last; !start.Before(first); start = unit.prev(start) {
		buckets = append(buckets, Bucket{
			From:  start,
			To:    unit.next(start).Add(-time.Second),
			Count: s.counts[start],
		})
	}
	return buckets
}

// start returns the naive start of the bucket containing t: midnight for Day,
// Monday midnight for Week. Only the wall clock fields of t are used.
func (u Unit) start(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch u {
	case Day:
		return day
	case Week:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	default:
		panic(fmt.Sprintf("stats: unknown bucket unit %q", string(u)))
	}
}

func (u Unit) next(start time.Time) time.Time {
	switch u {
	case Day:
		return start.AddDate(0, 0, 1)
	case Week:
		return start.AddDate(0, 0, 7)
	default:
		panic(fmt.Sprintf("stats: unknown bucket unit %q", string(u)))
	}
}

func (u Unit) prev(start time.Time) time.Time {
	switch u {
	case Day:
		return start.AddDate(0, 0, -1)
	case Week:
		return start.AddDate(0, 0, -7)
	default:
		panic(fmt.Sprintf("stats: unknown bucket unit %q", string(u)))
	}
}

// WeekOnWeekChange returns (current-prior)/prior. With an empty prior week the
// ratio is 0 when the current week is empty too, and undefined (nil) otherwise.
func WeekOnWeekChange(current, prior int) *float64 {
	if prior == 0 {
		if current == 0 {
			zero := 0.0
			return &zero
		}
		return nil
	}
	change := float64(current-prior) / float64(prior)
	return &change
}
