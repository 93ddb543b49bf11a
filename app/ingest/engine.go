package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newswatch/app/database"
	"github.com/lysyi3m/newswatch/app/feed"
)

// EntrySource yields the normalized entries of a feed.
type EntrySource interface {
	FetchAndParse(ctx context.Context, url string) ([]feed.Entry, error)
}

var _ EntrySource = (*feed.Fetcher)(nil)

type Report struct {
	FeedID          string
	Entries         int
	ArticlesTouched int // Distinct articles created or updated
	ArticlesCreated int
	Warnings        []string
}

func (r *Report) warn(msg string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(msg, args...))
}

type Engine struct {
	articleRepo database.ArticleRepository
}

func NewEngine(articleRepo database.ArticleRepository) *Engine {
	return &Engine{articleRepo: articleRepo}
}

// IngestFeed fetches the feed's entries from source and ingests them.
// A fetch or parse failure is returned as *FeedUnavailableError.
func (e *Engine) IngestFeed(ctx context.Context, f database.Feed, topics []database.Topic, source EntrySource) (*Report, error) {
	entries, err := source.FetchAndParse(ctx, f.URL)
	if err != nil {
		slog.Error("Feed unavailable", "feed", f.Name, "url", f.URL, "error", err)
		return nil, &FeedUnavailableError{FeedID: f.ID, FeedName: f.Name, Err: err}
	}

	return e.Ingest(ctx, f, topics, entries)
}

// Ingest matches every entry against every topic and upserts an article per
// matching permalink. Running it again with the same input changes nothing
// beyond refreshing scalar fields.
func (e *Engine) Ingest(ctx context.Context, f database.Feed, topics []database.Topic, entries []feed.Entry) (*Report, error) {
	report := &Report{FeedID: f.ID, Entries: len(entries)}
	touched := make(map[string]struct{})

	for _, topic := range topics {
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if !feed.Matches(entry.Title, topic.Name) && !feed.Matches(entry.Summary, topic.Name) {
				continue
			}

			if entry.Permalink == "" {
				report.warn("entry %q matched topic %q but has no permalink, skipped", entry.Title, topic.Name)
				continue
			}

			created, err := e.upsert(ctx, f, topic, entry, report)
			if err != nil {
				return nil, err
			}
			if created {
				report.ArticlesCreated++
			}
			touched[entry.Permalink] = struct{}{}
		}
	}

	report.ArticlesTouched = len(touched)

	if len(entries) == 0 {
		report.warn("feed %q returned no entries", f.Name)
	} else if report.ArticlesTouched == 0 {
		report.warn("no entries of feed %q matched any topic", f.Name)
	}

	for _, w := range report.Warnings {
		slog.Warn("Ingestion warning", "feed", f.Name, "warning", w)
	}

	return report, nil
}

func (e *Engine) upsert(ctx context.Context, f database.Feed, topic database.Topic, entry feed.Entry, report *Report) (bool, error) {
	existing, err := e.articleRepo.FindArticlesByPermalink(ctx, entry.Permalink)
	if err != nil {
		return false, fmt.Errorf("failed to look up article: %w", err)
	}

	var article database.Article
	created := len(existing) == 0
	if created {
		article = database.Article{Permalink: entry.Permalink}
	} else {
		article = existing[0]
		if len(existing) > 1 {
			report.warn("%d articles share permalink %s, using %s", len(existing), entry.Permalink, article.ID)
		}
	}

	article.Title = entry.Title
	article.Summary = entry.Summary
	article.PotentialReaders = f.MonthlyVisitors
	if entry.UpdatedAt != nil {
		updated := database.Naive(*entry.UpdatedAt)
		article.UpdatedAt = &updated
	}
	article.AddFeed(f.ID)
	article.AddTopic(topic.ID)

	id, err := e.articleRepo.SaveArticle(ctx, &article)
	if err != nil {
		return false, fmt.Errorf("failed to save article: %w", err)
	}

	slog.Debug("Saved article", "id", id, "title", article.Title, "topic", topic.Name, "feed", f.Name)

	return created, nil
}
