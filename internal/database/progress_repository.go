package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/luxcards/pkg/models"
)

// ProgressRepository stores UserProgress and its achievements
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// progressRow flattens the embedded goals into columns
type progressRow struct {
	models.UserProgress
	DailyCardsGoal   int `db:"daily_cards_goal"`
	WeeklyCardsGoal  int `db:"weekly_cards_goal"`
	DailyMinutesGoal int `db:"daily_minutes_goal"`
}

// LoadProgress returns the stored progress, or nil when the user has none yet
func (r *ProgressRepository) LoadProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	query := `
		SELECT user_id, cards_studied, correct_answers, total_study_time, total_sessions,
			average_session_time, current_streak, longest_streak, accuracy, last_study_date,
			daily_cards_goal, weekly_cards_goal, daily_minutes_goal, updated_at
		FROM user_progress
		WHERE user_id = ?
	`
	var row progressRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(query), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	p := row.UserProgress
	p.Goals = models.Goals{
		DailyCards:   row.DailyCardsGoal,
		WeeklyCards:  row.WeeklyCardsGoal,
		DailyMinutes: row.DailyMinutesGoal,
	}

	p.Achievements = []models.Achievement{}
	err = r.db.SelectContext(ctx, &p.Achievements, r.db.Rebind(`
		SELECT achievement_id, unlocked_at FROM achievements
		WHERE user_id = ?
		ORDER BY unlocked_at, achievement_id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return &p, nil
}

// SaveProgress upserts the aggregate. Achievements are only ever added.
func (r *ProgressRepository) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	row := progressRow{
		UserProgress:     *p,
		DailyCardsGoal:   p.Goals.DailyCards,
		WeeklyCardsGoal:  p.Goals.WeeklyCards,
		DailyMinutesGoal: p.Goals.DailyMinutes,
	}
	row.UpdatedAt = row.UpdatedAt.UTC()
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO user_progress (user_id, cards_studied, correct_answers, total_study_time, total_sessions,
			average_session_time, current_streak, longest_streak, accuracy, last_study_date,
			daily_cards_goal, weekly_cards_goal, daily_minutes_goal, updated_at)
		VALUES (:user_id, :cards_studied, :correct_answers, :total_study_time, :total_sessions,
			:average_session_time, :current_streak, :longest_streak, :accuracy, :last_study_date,
			:daily_cards_goal, :weekly_cards_goal, :daily_minutes_goal, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			cards_studied = excluded.cards_studied,
			correct_answers = excluded.correct_answers,
			total_study_time = excluded.total_study_time,
			total_sessions = excluded.total_sessions,
			average_session_time = excluded.average_session_time,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			accuracy = excluded.accuracy,
			last_study_date = excluded.last_study_date,
			daily_cards_goal = excluded.daily_cards_goal,
			weekly_cards_goal = excluded.weekly_cards_goal,
			daily_minutes_goal = excluded.daily_minutes_goal,
			updated_at = excluded.updated_at
	`, row)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save progress: %w", err)
	}

	insertAchievement := tx.Rebind(`
		INSERT INTO achievements (user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`)
	for _, a := range p.Achievements {
		if _, err := tx.ExecContext(ctx, insertAchievement, p.UserID, a.ID, a.UnlockedAt.UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save achievement %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteProgress removes a user's progress, achievements and activity history
func (r *ProgressRepository) DeleteProgress(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	for _, table := range []string{"achievements", "daily_activity", "user_progress"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE user_id = ?"), userID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
