package models

import "time"

// QuizResult records the outcome of a finished quiz session
type QuizResult struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"user_id" db:"user_id"`
	QuizType     StudyMode     `json:"quiz_type" db:"quiz_type"`
	TotalCards   int           `json:"total_cards" db:"total_cards"`
	CorrectCards int           `json:"correct_cards" db:"correct_cards"`
	Duration     time.Duration `json:"duration" db:"duration"`
	TakenAt      time.Time     `json:"taken_at" db:"taken_at"`
}
