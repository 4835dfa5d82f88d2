package models

// Settings holds per-user study preferences
type Settings struct {
	UserID           string `json:"user_id" db:"user_id"`
	ChatID           int64  `json:"chat_id" db:"chat_id"`
	NewCardsPerDay   int    `json:"new_cards_per_day" db:"new_cards_per_day"`
	ReviewsPerDay    int    `json:"reviews_per_day" db:"reviews_per_day"`
	ReminderHour     int    `json:"reminder_hour" db:"reminder_hour"` // 0-23 in Timezone
	RemindersEnabled bool   `json:"reminders_enabled" db:"reminders_enabled"`
	Timezone         string `json:"timezone" db:"timezone"`
}

// DefaultSettings returns the settings a new user starts with
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:           userID,
		NewCardsPerDay:   20,
		ReviewsPerDay:    200,
		ReminderHour:     9,
		RemindersEnabled: true,
		Timezone:         "Europe/Luxembourg",
	}
}
