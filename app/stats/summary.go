package stats

import (
	"time"

	"github.com/lysyi3m/newswatch/app/database"
)

// Summarize computes the trailing counts cached on a topic. All windows are
// inclusive on both ends: the past seven days [now-7d, now], the past
// twenty-four hours [now-24h, now] and the prior week [now-14d, now-7d].
func Summarize(articles []database.Article, now time.Time) database.TopicStats {
	now = database.Naive(now)
	weekAgo := now.AddDate(0, 0, -7)
	dayAgo := now.Add(-24 * time.Hour)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var stats database.TopicStats
	priorWeek := 0
	for _, article := range articles {
		if article.UpdatedAt == nil {
			continue
		}
		updated := *article.UpdatedAt
		if within(updated, weekAgo, now) {
			stats.CountPastSevenDays++
		}
		if within(updated, dayAgo, now) {
			stats.CountPastTwentyFourHours++
		}
		if within(updated, twoWeeksAgo, weekAgo) {
			priorWeek++
		}
	}

	stats.WeekOnWeekChange = WeekOnWeekChange(stats.CountPastSevenDays, priorWeek)
	stats.ComputedAt = now
	return stats
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
