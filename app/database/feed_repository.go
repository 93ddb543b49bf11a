package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var _ FeedRepository = (*SQLFeedRepository)(nil)

// SQLFeedRepository handles database operations for feeds
type SQLFeedRepository struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *SQLFeedRepository {
	return &SQLFeedRepository{db: db}
}

// CreateFeed inserts a new feed; a taken name yields ErrAlreadyExists.
func (r *SQLFeedRepository) CreateFeed(ctx context.Context, name, url string, monthlyVisitors int64) (*Feed, error) {
	id := uuid.NewString()
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO feeds (id, name, url, monthly_visitors)
		VALUES (?, ?, ?, ?)
		RETURNING created_at
	`, id, name, url, monthlyVisitors).Scan(&createdAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("feed %q: %w", name, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	feed := &Feed{ID: id, Name: name, URL: url, MonthlyVisitors: monthlyVisitors}
	if feed.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse feed created_at: %w", err)
	}
	return feed, nil
}

// UpsertFeed inserts a feed or refreshes url and visitors of the one with the same name
func (r *SQLFeedRepository) UpsertFeed(ctx context.Context, name, url string, monthlyVisitors int64) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO feeds (id, name, url, monthly_visitors)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			monthly_visitors = excluded.monthly_visitors
		RETURNING id, name, url, monthly_visitors, created_at
	`, uuid.NewString(), name, url, monthlyVisitors)

	feed, err := scanFeed(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert feed: %w", err)
	}
	return feed, nil
}

// GetFeed retrieves a feed by its database ID
func (r *SQLFeedRepository) GetFeed(ctx context.Context, id string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, url, monthly_visitors, created_at
		FROM feeds
		WHERE id = ?
	`, id)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

// GetAllFeeds returns every feed in insertion order
func (r *SQLFeedRepository) GetAllFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, url, monthly_visitors, created_at
		FROM feeds
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// GetFeedCount returns the total number of feeds
func (r *SQLFeedRepository) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	var createdAt string
	if err := row.Scan(&feed.ID, &feed.Name, &feed.URL, &feed.MonthlyVisitors, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if feed.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	return &feed, nil
}
