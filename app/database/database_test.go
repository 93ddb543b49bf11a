package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, dirty, err := RunMigrations(db); err != nil || dirty {
		t.Fatalf("failed to run migrations: dirty=%v err=%v", dirty, err)
	}
	return db
}

func ts(s string) *time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected clean version 1, got %d (dirty=%v)", version, dirty)
	}
}

func TestFeedRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedRepository(newTestDB(t))

	created, err := repo.CreateFeed(ctx, "techblog", "https://example.com/rss", 12000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Errorf("expected id and created_at to be set, got %+v", created)
	}

	if _, err := repo.CreateFeed(ctx, "techblog", "https://other.example.com/rss", 0); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	upserted, err := repo.UpsertFeed(ctx, "techblog", "https://example.com/atom", 15000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upserted.ID != created.ID {
		t.Errorf("expected upsert to keep id %s, got %s", created.ID, upserted.ID)
	}

	got, err := repo.GetFeed(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != "https://example.com/atom" || got.MonthlyVisitors != 15000 {
		t.Errorf("expected refreshed feed, got %+v", got)
	}

	if _, err := repo.UpsertFeed(ctx, "news", "https://news.example.com/rss", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feeds, err := repo.GetAllFeeds(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feeds) != 2 || feeds[0].Name != "techblog" || feeds[1].Name != "news" {
		t.Errorf("expected feeds in insertion order, got %+v", feeds)
	}

	if count, _ := repo.GetFeedCount(ctx); count != 2 {
		t.Errorf("expected 2 feeds, got %d", count)
	}

	if _, err := repo.GetFeed(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTopicRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTopicRepository(newTestDB(t))

	chrome, err := repo.CreateTopic(ctx, "Chrome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.CreateTopic(ctx, "Chrome"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.CreateTopic(ctx, "chrome"); err != nil {
		t.Errorf("expected names to be case-sensitive, got %v", err)
	}

	got, err := repo.GetTopic(ctx, chrome.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CountPastSevenDays != nil || got.WeekOnWeekChange != nil || got.StatsComputedAt != nil {
		t.Errorf("expected no stats before first computation, got %+v", got)
	}

	change := 0.5
	stats := TopicStats{
		CountPastSevenDays:       3,
		CountPastTwentyFourHours: 1,
		WeekOnWeekChange:         &change,
		ComputedAt:               *ts("2011-12-15T12:00:00"),
	}
	if err := repo.UpdateTopicStats(ctx, chrome.ID, stats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err = repo.GetTopic(ctx, chrome.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CountPastSevenDays == nil || *got.CountPastSevenDays != 3 {
		t.Errorf("expected 3 in past seven days, got %v", got.CountPastSevenDays)
	}
	if got.CountPastTwentyFourHours == nil || *got.CountPastTwentyFourHours != 1 {
		t.Errorf("expected 1 in past day, got %v", got.CountPastTwentyFourHours)
	}
	if got.WeekOnWeekChange == nil || *got.WeekOnWeekChange != 0.5 {
		t.Errorf("expected week-on-week change 0.5, got %v", got.WeekOnWeekChange)
	}
	if got.StatsComputedAt == nil || !got.StatsComputedAt.Equal(stats.ComputedAt) {
		t.Errorf("expected computed at %v, got %v", stats.ComputedAt, got.StatsComputedAt)
	}

	topics, err := repo.GetAllTopics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 2 || topics[0].Name != "Chrome" || topics[1].Name != "chrome" {
		t.Errorf("expected topics ordered by name, got %+v", topics)
	}

	if err := repo.UpdateTopicStats(ctx, "missing", stats); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetTopic(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type articleFixture struct {
	feeds    *SQLFeedRepository
	topics   *SQLTopicRepository
	articles *SQLArticleRepository
	feedA    *Feed
	feedB    *Feed
	chrome   *Topic
	browser  *Topic
}

func newArticleFixture(t *testing.T) *articleFixture {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)

	f := &articleFixture{
		feeds:    NewFeedRepository(db),
		topics:   NewTopicRepository(db),
		articles: NewArticleRepository(db),
	}

	var err error
	if f.feedA, err = f.feeds.CreateFeed(ctx, "techblog", "https://a.example.com/rss", 12000); err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}
	if f.feedB, err = f.feeds.CreateFeed(ctx, "news", "https://b.example.com/rss", 45000); err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}
	if f.chrome, err = f.topics.CreateTopic(ctx, "Chrome"); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	if f.browser, err = f.topics.CreateTopic(ctx, "browser"); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	return f
}

func TestSaveArticleCreatesAndMerges(t *testing.T) {
	ctx := context.Background()
	f := newArticleFixture(t)

	article := &Article{
		Permalink:        "https://a.example.com/chrome-16",
		Title:            "Chrome 16 is out",
		Summary:          "Faster browser",
		UpdatedAt:        ts("2011-12-01T12:00:00"),
		PotentialReaders: 12000,
		TopicIDs:         []string{f.chrome.ID},
		FeedIDs:          []string{f.feedA.ID},
	}

	id, err := f.articles.SaveArticle(ctx, article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" || article.ID != id {
		t.Fatalf("expected id to be assigned, got %q / %q", id, article.ID)
	}

	// A second writer that did not see the first row still lands on it.
	concurrent := &Article{
		Permalink:        "https://a.example.com/chrome-16",
		Title:            "Chrome 16 is out (updated)",
		PotentialReaders: 45000,
		TopicIDs:         []string{f.browser.ID, f.chrome.ID},
		FeedIDs:          []string{f.feedB.ID},
	}
	mergedID, err := f.articles.SaveArticle(ctx, concurrent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mergedID != id {
		t.Errorf("expected merge into %s, got %s", id, mergedID)
	}

	got, err := f.articles.GetArticle(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Chrome 16 is out (updated)" || got.PotentialReaders != 45000 {
		t.Errorf("expected scalar fields refreshed, got %+v", got)
	}
	if got.UpdatedAt == nil || got.UpdatedAt.Format(TimeLayout) != "2011-12-01T12:00:00" {
		t.Errorf("expected stored updated time kept, got %v", got.UpdatedAt)
	}
	if want := []string{f.chrome.ID, f.browser.ID}; !reflect.DeepEqual(got.TopicIDs, want) {
		t.Errorf("expected topics %v, got %v", want, got.TopicIDs)
	}
	if want := []string{f.feedA.ID, f.feedB.ID}; !reflect.DeepEqual(got.FeedIDs, want) {
		t.Errorf("expected feeds %v, got %v", want, got.FeedIDs)
	}

	if count, _ := f.articles.GetArticleCount(ctx); count != 1 {
		t.Errorf("expected 1 article, got %d", count)
	}
}

func TestSaveArticleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newArticleFixture(t)

	for i := 0; i < 2; i++ {
		article := &Article{
			Permalink:        "https://a.example.com/1",
			Title:            "Chrome",
			UpdatedAt:        ts("2011-12-01T12:00:00"),
			PotentialReaders: 12000,
			TopicIDs:         []string{f.chrome.ID},
			FeedIDs:          []string{f.feedA.ID},
		}
		if _, err := f.articles.SaveArticle(ctx, article); err != nil {
			t.Fatalf("save %d: unexpected error: %v", i+1, err)
		}
	}

	found, err := f.articles.FindArticlesByPermalink(ctx, "https://a.example.com/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 article, got %d", len(found))
	}
	if len(found[0].TopicIDs) != 1 || len(found[0].FeedIDs) != 1 {
		t.Errorf("expected associations without duplicates, got %+v", found[0])
	}

	if missing, err := f.articles.FindArticlesByPermalink(ctx, "https://a.example.com/none"); err != nil || len(missing) != 0 {
		t.Errorf("expected no articles, got %v (err=%v)", missing, err)
	}
}

func TestGetArticlesByTopicRange(t *testing.T) {
	ctx := context.Background()
	f := newArticleFixture(t)

	save := func(permalink string, updated *time.Time, topicID string) {
		t.Helper()
		_, err := f.articles.SaveArticle(ctx, &Article{
			Permalink: permalink,
			UpdatedAt: updated,
			TopicIDs:  []string{topicID},
			FeedIDs:   []string{f.feedA.ID},
		})
		if err != nil {
			t.Fatalf("failed to save %s: %v", permalink, err)
		}
	}

	save("https://example.com/nov", ts("2011-11-30T23:59:59"), f.chrome.ID)
	save("https://example.com/start", ts("2011-12-01T00:00:00"), f.chrome.ID)
	save("https://example.com/end", ts("2011-12-01T23:59:59"), f.chrome.ID)
	save("https://example.com/undated", nil, f.chrome.ID)
	save("https://example.com/other", ts("2011-12-01T12:00:00"), f.browser.ID)

	all, err := f.articles.GetArticlesByTopic(ctx, f.chrome.ID, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 articles without bounds, got %d", len(all))
	}
	if all[0].Permalink != "https://example.com/nov" || all[3].Permalink != "https://example.com/undated" {
		t.Errorf("expected storage order, got %s ... %s", all[0].Permalink, all[3].Permalink)
	}

	ranged, err := f.articles.GetArticlesByTopic(ctx, f.chrome.ID, ts("2011-12-01T00:00:00"), ts("2011-12-01T23:59:59"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var permalinks []string
	for _, a := range ranged {
		permalinks = append(permalinks, a.Permalink)
	}
	if want := []string{"https://example.com/start", "https://example.com/end"}; !reflect.DeepEqual(permalinks, want) {
		t.Errorf("expected %v, got %v", want, permalinks)
	}
}

func TestNaiveKeepsWallClock(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2011, 12, 1, 23, 30, 15, 999, zone)

	got := Naive(local)
	if got.Format(TimeLayout) != "2011-12-01T23:30:15" {
		t.Errorf("expected wall clock kept, got %s", got.Format(TimeLayout))
	}
	if got.Location() != time.UTC {
		t.Errorf("expected zone dropped, got %v", got.Location())
	}
}
