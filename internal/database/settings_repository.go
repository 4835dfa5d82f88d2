package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/luxcards/pkg/models"
)

const settingsColumns = `user_id, chat_id, new_cards_per_day, reviews_per_day, reminder_hour, reminders_enabled, timezone`

// SettingsRepository stores per-user preferences
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new repository instance
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves user settings
func (r *SettingsRepository) Get(ctx context.Context, userID string) (models.Settings, error) {
	var s models.Settings
	query := `SELECT ` + settingsColumns + ` FROM settings WHERE user_id = ?`
	err := r.db.GetContext(ctx, &s, r.db.Rebind(query), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, ErrNotFound
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

// GetOrDefault returns stored settings, or the defaults for a new user
func (r *SettingsRepository) GetOrDefault(ctx context.Context, userID string) (models.Settings, error) {
	s, err := r.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultSettings(userID), nil
	}
	return s, err
}

// Save upserts user settings
func (r *SettingsRepository) Save(ctx context.Context, s models.Settings) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO settings (`+settingsColumns+`)
		VALUES (:user_id, :chat_id, :new_cards_per_day, :reviews_per_day, :reminder_hour, :reminders_enabled, :timezone)
		ON CONFLICT (user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			new_cards_per_day = excluded.new_cards_per_day,
			reviews_per_day = excluded.reviews_per_day,
			reminder_hour = excluded.reminder_hour,
			reminders_enabled = excluded.reminders_enabled,
			timezone = excluded.timezone
	`, s)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ListReminderEnabled returns every user who wants reminders and has a chat
func (r *SettingsRepository) ListReminderEnabled(ctx context.Context) ([]models.Settings, error) {
	all := []models.Settings{}
	query := `SELECT ` + settingsColumns + ` FROM settings WHERE reminders_enabled = ? AND chat_id <> 0 ORDER BY user_id`
	if err := r.db.SelectContext(ctx, &all, r.db.Rebind(query), true); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return all, nil
}
