package api

import (
	"context"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
	"github.com/lysyi3m/newswatch/app/query"
	"github.com/lysyi3m/newswatch/app/tasks"
)

// ArticleQuerier ranks a topic's articles for listing.
type ArticleQuerier interface {
	QueryArticles(ctx context.Context, topicID string, opts query.Options) ([]query.ArticleView, error)
}

var _ ArticleQuerier = (*query.Service)(nil)

type Handler struct {
	feedRepo    database.FeedRepository
	topicRepo   database.TopicRepository
	articleRepo database.ArticleRepository
	querier     ArticleQuerier
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
}

type TopicView struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	CountPastSevenDays       *int     `json:"countPastSevenDays"`
	CountPastTwentyFourHours *int     `json:"countPastTwentyFourHours"`
	WeekOnWeekChange         *float64 `json:"weekOnWeekChange"`
	StatsComputedAt          *string  `json:"statsComputedAt"`
}

type FeedView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	MonthlyVisitors int64  `json:"monthlyVisitors"`
}

type BucketView struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

type StatsView struct {
	TopicID          string       `json:"topicId"`
	Unit             string       `json:"unit"`
	Reference        string       `json:"reference"`
	Buckets          []BucketView `json:"buckets"`
	Skipped          int          `json:"skipped"`
	WeekOnWeekChange *float64     `json:"weekOnWeekChange"`
}

type createTopicRequest struct {
	Name string `json:"name" binding:"required"`
}

type createFeedRequest struct {
	Name            string `json:"name" binding:"required"`
	URL             string `json:"url" binding:"required,url"`
	MonthlyVisitors int64  `json:"monthlyVisitors" binding:"gte=0"`
}

func newTopicView(t database.Topic) TopicView {
	view := TopicView{
		ID:                       t.ID,
		Name:                     t.Name,
		CountPastSevenDays:       t.CountPastSevenDays,
		CountPastTwentyFourHours: t.CountPastTwentyFourHours,
		WeekOnWeekChange:         t.WeekOnWeekChange,
	}
	if t.StatsComputedAt != nil {
		computed := t.StatsComputedAt.Format(database.TimeLayout)
		view.StatsComputedAt = &computed
	}
	return view
}

func newFeedView(f database.Feed) FeedView {
	return FeedView{
		ID:              f.ID,
		Name:            f.Name,
		URL:             f.URL,
		MonthlyVisitors: f.MonthlyVisitors,
	}
}
