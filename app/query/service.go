package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lysyi3m/newswatch/app/database"
)

var ErrInvalidArgument = errors.New("invalid argument")

const dateLayout = "2006-01-02"

var (
	earliest = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	latest   = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// Options narrows and windows a query. Nil fields mean "no bound".
type Options struct {
	MinDate *time.Time
	MaxDate *time.Time
	Limit   *int
	Offset  *int
}

// ArticleView is the external projection of an article.
type ArticleView struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Updated    string `json:"updated"`
	Readership int64  `json:"readership"`
	SourceID   string `json:"sourceId"`
}

type Service struct {
	topicRepo   database.TopicRepository
	articleRepo database.ArticleRepository
}

func NewService(topicRepo database.TopicRepository, articleRepo database.ArticleRepository) *Service {
	return &Service{
		topicRepo:   topicRepo,
		articleRepo: articleRepo,
	}
}

// QueryArticles returns the articles of a topic updated within the inclusive
// date range, ranked by readership (highest first, ties in storage order),
// then windowed by offset and limit.
func (s *Service) QueryArticles(ctx context.Context, topicID string, opts Options) ([]ArticleView, error) {
	if opts.Limit != nil && *opts.Limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d: %w", *opts.Limit, ErrInvalidArgument)
	}
	if opts.Offset != nil && *opts.Offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative, got %d: %w", *opts.Offset, ErrInvalidArgument)
	}

	if _, err := s.topicRepo.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}

	minDate, maxDate := earliest, latest
	if opts.MinDate != nil {
		minDate = *opts.MinDate
	}
	if opts.MaxDate != nil {
		maxDate = *opts.MaxDate
	}

	articles, err := s.articleRepo.GetArticlesByTopic(ctx, topicID, &minDate, &maxDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PotentialReaders > articles[j].PotentialReaders
	})

	articles = window(articles, opts.Offset, opts.Limit)

	views := make([]ArticleView, 0, len(articles))
	for _, article := range articles {
		views = append(views, NewArticleView(article))
	}
	return views, nil
}

func window(articles []database.Article, offset, limit *int) []database.Article {
	start := 0
	if offset != nil {
		start = min(*offset, len(articles))
	}
	end := len(articles)
	if limit != nil && *limit < end-start {
		end = start + *limit
	}
	return articles[start:end]
}

func NewArticleView(article database.Article) ArticleView {
	view := ArticleView{
		ID:         article.ID,
		URL:        article.Permalink,
		Title:      article.Title,
		Readership: article.PotentialReaders,
	}
	if article.UpdatedAt != nil {
		view.Updated = article.UpdatedAt.Format(database.TimeLayout)
	}
	if len(article.FeedIDs) > 0 {
		view.SourceID = article.FeedIDs[0]
	}
	return view
}

// ParseLowerBound parses a date or timestamp used as an inclusive lower bound.
// An empty string means no bound.
func ParseLowerBound(s string) (*time.Time, error) {
	return parseBound(s, false)
}

// ParseUpperBound parses an inclusive upper bound. A bare date extends
// through the end of that day.
func ParseUpperBound(s string) (*time.Time, error) {
	return parseBound(s, true)
}

func parseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if t, err := time.Parse(database.TimeLayout, s); err == nil {
		return &t, nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("date %q is not in YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS format: %w", s, ErrInvalidArgument)
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return &t, nil
}
