package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var _ TopicRepository = (*SQLTopicRepository)(nil)

// SQLTopicRepository handles database operations for topics
type SQLTopicRepository struct {
	db *DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *DB) *SQLTopicRepository {
	return &SQLTopicRepository{db: db}
}

// CreateTopic inserts a topic. Names are unique with exact, case-sensitive comparison.
func (r *SQLTopicRepository) CreateTopic(ctx context.Context, name string) (*Topic, error) {
	id := uuid.NewString()
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO topics (id, name)
		VALUES (?, ?)
		RETURNING created_at
	`, id, name).Scan(&createdAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("topic %q: %w", name, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	topic := &Topic{ID: id, Name: name}
	if topic.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse topic created_at: %w", err)
	}
	return topic, nil
}

func (r *SQLTopicRepository) GetTopic(ctx context.Context, id string) (*Topic, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, count_past_seven_days, count_past_twenty_four_hours,
		       week_on_week_change, stats_computed_at
		FROM topics
		WHERE id = ?
	`, id)

	topic, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return topic, nil
}

// GetAllTopics returns every topic ordered by name
func (r *SQLTopicRepository) GetAllTopics(ctx context.Context) ([]Topic, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, count_past_seven_days, count_past_twenty_four_hours,
		       week_on_week_change, stats_computed_at
		FROM topics
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, *topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

// UpdateTopicStats stores the trailing stats computed for a topic
func (r *SQLTopicRepository) UpdateTopicStats(ctx context.Context, id string, stats TopicStats) error {
	var wow sql.NullFloat64
	if stats.WeekOnWeekChange != nil {
		wow = sql.NullFloat64{Float64: *stats.WeekOnWeekChange, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE topics
		SET count_past_seven_days = ?, count_past_twenty_four_hours = ?,
		    week_on_week_change = ?, stats_computed_at = ?
		WHERE id = ?
	`, stats.CountPastSevenDays, stats.CountPastTwentyFourHours, wow, formatTime(stats.ComputedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update topic stats: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update topic stats: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}

	return nil
}

func scanTopic(row rowScanner) (*Topic, error) {
	var topic Topic
	var createdAt string
	var sevenDays, twentyFourHours sql.NullInt64
	var wow sql.NullFloat64
	var computedAt sql.NullString

	err := row.Scan(&topic.ID, &topic.Name, &createdAt, &sevenDays, &twentyFourHours, &wow, &computedAt)
	if err != nil {
		return nil, err
	}

	if topic.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if sevenDays.Valid {
		v := int(sevenDays.Int64)
		topic.CountPastSevenDays = &v
	}
	if twentyFourHours.Valid {
		v := int(twentyFourHours.Int64)
		topic.CountPastTwentyFourHours = &v
	}
	if wow.Valid {
		v := wow.Float64
		topic.WeekOnWeekChange = &v
	}
	if computedAt.Valid {
		t, err := parseTime(computedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid stats_computed_at %q: %w", computedAt.String, err)
		}
		topic.StatsComputedAt = &t
	}

	return &topic, nil
}
