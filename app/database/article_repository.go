package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var _ ArticleRepository = (*SQLArticleRepository)(nil)

// associationBatchSize bounds the IN list used when loading association sets.
const associationBatchSize = 500

var articleColumns = []string{
	"a.id", "a.permalink", "a.title", "a.summary", "a.updated_at", "a.potential_readers", "a.created_at",
}

// SQLArticleRepository handles database operations for articles and their associations
type SQLArticleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *SQLArticleRepository {
	return &SQLArticleRepository{db: db}
}

func (r *SQLArticleRepository) FindArticlesByPermalink(ctx context.Context, permalink string) ([]Article, error) {
	query := sq.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.permalink": permalink}).
		OrderBy("a.updated_at DESC", "a.rowid DESC")

	articles, err := r.queryArticles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find articles by permalink: %w", err)
	}
	return articles, nil
}

// SaveArticle upserts the article row keyed by permalink and adds any missing
// topic and feed associations. When another writer stored the same permalink
// first, the existing row is merged into and its id returned.
func (r *SQLArticleRepository) SaveArticle(ctx context.Context, article *Article) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := article.ID
	if id == "" {
		id = uuid.NewString()
	}

	var updatedAt sql.NullString
	if article.UpdatedAt != nil {
		updatedAt = sql.NullString{String: formatTime(*article.UpdatedAt), Valid: true}
	}

	var storedID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO articles (id, permalink, title, summary, updated_at, potential_readers)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (permalink) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			updated_at = COALESCE(excluded.updated_at, articles.updated_at),
			potential_readers = excluded.potential_readers
		RETURNING id
	`, id, article.Permalink, article.Title, article.Summary, updatedAt, article.PotentialReaders).Scan(&storedID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert article: %w", err)
	}

	for _, topicID := range article.TopicIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_topics (article_id, topic_id) VALUES (?, ?)`,
			storedID, topicID); err != nil {
			return "", fmt.Errorf("failed to associate topic %s: %w", topicID, err)
		}
	}

	for _, feedID := range article.FeedIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_feeds (article_id, feed_id) VALUES (?, ?)`,
			storedID, feedID); err != nil {
			return "", fmt.Errorf("failed to associate feed %s: %w", feedID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit article: %w", err)
	}

	article.ID = storedID
	return storedID, nil
}

func (r *SQLArticleRepository) GetArticle(ctx context.Context, id string) (*Article, error) {
	query := sq.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.id": id})

	articles, err := r.queryArticles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return &articles[0], nil
}

func (r *SQLArticleRepository) GetArticlesByTopic(ctx context.Context, topicID string, minDate, maxDate *time.Time) ([]Article, error) {
	query := sq.Select(articleColumns...).
		From("articles a").
		Join("article_topics t ON t.article_id = a.id").
		Where(sq.Eq{"t.topic_id": topicID}).
		OrderBy("a.rowid")

	if minDate != nil {
		query = query.Where(sq.GtOrEq{"a.updated_at": formatTime(*minDate)})
	}
	if maxDate != nil {
		query = query.Where(sq.LtOrEq{"a.updated_at": formatTime(*maxDate)})
	}

	articles, err := r.queryArticles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles by topic: %w", err)
	}
	return articles, nil
}

// GetArticleCount returns the total number of articles
func (r *SQLArticleRepository) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

func (r *SQLArticleRepository) queryArticles(ctx context.Context, query sq.SelectBuilder) ([]Article, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	if err := r.loadAssociations(ctx, articles); err != nil {
		return nil, err
	}

	return articles, nil
}

// loadAssociations fills TopicIDs and FeedIDs in association order.
func (r *SQLArticleRepository) loadAssociations(ctx context.Context, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}

	index := make(map[string]int, len(articles))
	for i := range articles {
		index[articles[i].ID] = i
	}

	for start := 0; start < len(articles); start += associationBatchSize {
		end := min(start+associationBatchSize, len(articles))
		ids := make([]string, 0, end-start)
		for _, a := range articles[start:end] {
			ids = append(ids, a.ID)
		}

		err := r.loadAssociationTable(ctx, "article_topics", "topic_id", ids, func(articleID, otherID string) {
			a := &articles[index[articleID]]
			a.TopicIDs = append(a.TopicIDs, otherID)
		})
		if err != nil {
			return fmt.Errorf("failed to load topic associations: %w", err)
		}

		err = r.loadAssociationTable(ctx, "article_feeds", "feed_id", ids, func(articleID, otherID string) {
			a := &articles[index[articleID]]
			a.FeedIDs = append(a.FeedIDs, otherID)
		})
		if err != nil {
			return fmt.Errorf("failed to load feed associations: %w", err)
		}
	}

	return nil
}

func (r *SQLArticleRepository) loadAssociationTable(ctx context.Context, table, column string, articleIDs []string, add func(articleID, otherID string)) error {
	sqlStr, args, err := sq.Select("article_id", column).
		From(table).
		Where(sq.Eq{"article_id": articleIDs}).
		OrderBy("rowid").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var articleID, otherID string
		if err := rows.Scan(&articleID, &otherID); err != nil {
			return err
		}
		add(articleID, otherID)
	}

	return rows.Err()
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var updatedAt sql.NullString
	var createdAt string

	err := row.Scan(&article.ID, &article.Permalink, &article.Title, &article.Summary,
		&updatedAt, &article.PotentialReaders, &createdAt)
	if err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		t, err := parseTime(updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt.String, err)
		}
		article.UpdatedAt = &t
	}

	if article.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}

	return &article, nil
}
