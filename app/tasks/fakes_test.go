package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
)

type fakeFeedRepository struct {
	mu    sync.Mutex
	feeds []database.Feed
	err   error
}

var _ database.FeedRepository = (*fakeFeedRepository)(nil)

func (f *fakeFeedRepository) CreateFeed(ctx context.Context, name, url string, monthlyVisitors int64) (*database.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.feeds {
		if existing.Name == name {
			return nil, database.ErrAlreadyExists
		}
	}
	created := database.Feed{ID: fmt.Sprintf("feed-%d", len(f.feeds)+1), Name: name, URL: url, MonthlyVisitors: monthlyVisitors}
	f.feeds = append(f.feeds, created)
	return &created, nil
}

func (f *fakeFeedRepository) UpsertFeed(ctx context.Context, name, url string, monthlyVisitors int64) (*database.Feed, error) {
	f.mu.Lock()
	for i := range f.feeds {
		if f.feeds[i].Name == name {
			f.feeds[i].URL = url
			f.feeds[i].MonthlyVisitors = monthlyVisitors
			updated := f.feeds[i]
			f.mu.Unlock()
			return &updated, nil
		}
	}
	f.mu.Unlock()
	return f.CreateFeed(ctx, name, url, monthlyVisitors)
}

func (f *fakeFeedRepository) GetFeed(ctx context.Context, id string) (*database.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.feeds {
		if existing.ID == id {
			found := existing
			return &found, nil
		}
	}
	return nil, fmt.Errorf("feed %s: %w", id, database.ErrNotFound)
}

func (f *fakeFeedRepository) GetAllFeeds(ctx context.Context) ([]database.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]database.Feed(nil), f.feeds...), nil
}

func (f *fakeFeedRepository) GetFeedCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.feeds), nil
}

type fakeTopicRepository struct {
	mu     sync.Mutex
	topics []database.Topic
	stats  map[string]database.TopicStats
}

var _ database.TopicRepository = (*fakeTopicRepository)(nil)

func (f *fakeTopicRepository) CreateTopic(ctx context.Context, name string) (*database.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.topics {
		if existing.Name == name {
			return nil, fmt.Errorf("topic %s: %w", name, database.ErrAlreadyExists)
		}
	}
	created := database.Topic{ID: fmt.Sprintf("topic-%d", len(f.topics)+1), Name: name}
	f.topics = append(f.topics, created)
	return &created, nil
}

func (f *fakeTopicRepository) GetTopic(ctx context.Context, id string) (*database.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.topics {
		if existing.ID == id {
			found := existing
			return &found, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeTopicRepository) GetAllTopics(ctx context.Context) ([]database.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.Topic(nil), f.topics...), nil
}

func (f *fakeTopicRepository) UpdateTopicStats(ctx context.Context, id string, stats database.TopicStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats == nil {
		f.stats = make(map[string]database.TopicStats)
	}
	f.stats[id] = stats
	return nil
}

type fakeArticleRepository struct {
	mu       sync.Mutex
	articles []database.Article
}

var _ database.ArticleRepository = (*fakeArticleRepository)(nil)

func (f *fakeArticleRepository) FindArticlesByPermalink(ctx context.Context, permalink string) ([]database.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []database.Article
	for _, a := range f.articles {
		if a.Permalink == permalink {
			found = append(found, a)
		}
	}
	return found, nil
}

func (f *fakeArticleRepository) SaveArticle(ctx context.Context, article *database.Article) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := *article
	saved.TopicIDs = append([]string(nil), article.TopicIDs...)
	saved.FeedIDs = append([]string(nil), article.FeedIDs...)
	for i := range f.articles {
		if f.articles[i].Permalink == article.Permalink {
			saved.ID = f.articles[i].ID
			f.articles[i] = saved
			article.ID = saved.ID
			return saved.ID, nil
		}
	}
	saved.ID = fmt.Sprintf("article-%d", len(f.articles)+1)
	f.articles = append(f.articles, saved)
	article.ID = saved.ID
	return saved.ID, nil
}

func (f *fakeArticleRepository) GetArticle(ctx context.Context, id string) (*database.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeArticleRepository) GetArticlesByTopic(ctx context.Context, topicID string, minDate, maxDate *time.Time) ([]database.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []database.Article
	for _, a := range f.articles {
		if a.HasTopic(topicID) {
			found = append(found, a)
		}
	}
	return found, nil
}

func (f *fakeArticleRepository) GetArticleCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.articles), nil
}

type stubSource struct {
	entries []feed.Entry
	err     error
}

func (s *stubSource) FetchAndParse(ctx context.Context, url string) ([]feed.Entry, error) {
	return s.entries, s.err
}

// recordingEnqueuer records the feeds it is asked to download.
type recordingEnqueuer struct {
	feedIDs []string
	failFor map[string]bool
}

func (r *recordingEnqueuer) EnqueueDownload(f database.Feed) error {
	r.feedIDs = append(r.feedIDs, f.ID)
	if r.failFor[f.ID] {
		return fmt.Errorf("task queue is full")
	}
	return nil
}

func ts(s string) *time.Time {
	t, err := time.Parse(database.TimeLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}
