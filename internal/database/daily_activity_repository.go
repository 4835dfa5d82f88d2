package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/luxcards/pkg/models"
)

// DefaultActivityDays is how much history Recent loads when days <= 0
const DefaultActivityDays = 90

const activityColumns = `user_id, activity_date, cards_studied, correct_answers, study_time, sessions_completed, accuracy`

// DailyActivityRepository stores one row per user and calendar day
type DailyActivityRepository struct {
	db *sqlx.DB
}

// NewDailyActivityRepository creates a new repository instance
func NewDailyActivityRepository(db *sqlx.DB) *DailyActivityRepository {
	return &DailyActivityRepository{db: db}
}

// Get returns the activity of one day
func (r *DailyActivityRepository) Get(ctx context.Context, userID, date string) (models.DailyActivity, error) {
	var a models.DailyActivity
	query := `SELECT ` + activityColumns + ` FROM daily_activity WHERE user_id = ? AND activity_date = ?`
	err := r.db.GetContext(ctx, &a, r.db.Rebind(query), userID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyActivity{}, ErrNotFound
	}
	if err != nil {
		return models.DailyActivity{}, fmt.Errorf("failed to get daily activity: %w", err)
	}
	return a, nil
}

// Save upserts a day
func (r *DailyActivityRepository) Save(ctx context.Context, a models.DailyActivity) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO daily_activity (`+activityColumns+`)
		VALUES (:user_id, :activity_date, :cards_studied, :correct_answers, :study_time, :sessions_completed, :accuracy)
		ON CONFLICT (user_id, activity_date) DO UPDATE SET
			cards_studied = excluded.cards_studied,
			correct_answers = excluded.correct_answers,
			study_time = excluded.study_time,
			sessions_completed = excluded.sessions_completed,
			accuracy = excluded.accuracy
	`, a)
	if err != nil {
		return fmt.Errorf("failed to save daily activity: %w", err)
	}
	return nil
}

// Range returns the days between from and to (inclusive date keys), oldest first
func (r *DailyActivityRepository) Range(ctx context.Context, userID, from, to string) ([]models.DailyActivity, error) {
	days := []models.DailyActivity{}
	query := `
		SELECT ` + activityColumns + `
		FROM daily_activity
		WHERE user_id = ? AND activity_date >= ? AND activity_date <= ?
		ORDER BY activity_date
	`
	if err := r.db.SelectContext(ctx, &days, r.db.Rebind(query), userID, from, to); err != nil {
		return nil, fmt.Errorf("failed to get daily activity: %w", err)
	}
	return days, nil
}

// Recent returns the last days of activity up to and including today
func (r *DailyActivityRepository) Recent(ctx context.Context, userID string, today time.Time, days int) ([]models.DailyActivity, error) {
	if days <= 0 {
		days = DefaultActivityDays
	}
	from := today.AddDate(0, 0, -(days - 1))
	return r.Range(ctx, userID, models.DateKey(from), models.DateKey(today))
}
