package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type FeedRepository interface {
	CreateFeed(ctx context.Context, name, url string, monthlyVisitors int64) (*Feed, error)
	UpsertFeed(ctx context.Context, name, url string, monthlyVisitors int64) (*Feed, error)
	GetFeed(ctx context.Context, id string) (*Feed, error)
	GetAllFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCount(ctx context.Context) (int, error)
}

type TopicRepository interface {
	CreateTopic(ctx context.Context, name string) (*Topic, error)
	GetTopic(ctx context.Context, id string) (*Topic, error)
	GetAllTopics(ctx context.Context) ([]Topic, error)
	UpdateTopicStats(ctx context.Context, id string, stats TopicStats) error
}

type ArticleRepository interface {
	// FindArticlesByPermalink returns every article stored under permalink,
	// most recently updated first.
	FindArticlesByPermalink(ctx context.Context, permalink string) ([]Article, error)
	SaveArticle(ctx context.Context, article *Article) (string, error)
	GetArticle(ctx context.Context, id string) (*Article, error)
	// GetArticlesByTopic returns articles tagged with topicID in storage order.
	// Nil bounds are open; non-nil bounds are inclusive.
	GetArticlesByTopic(ctx context.Context, topicID string, minDate, maxDate *time.Time) ([]Article, error)
	GetArticleCount(ctx context.Context) (int, error)
}
