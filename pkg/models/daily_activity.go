package models

import "time"

// DateLayout is the key format of a DailyActivity record
const DateLayout = "2006-01-02"

// DailyActivity aggregates one calendar day of study
type DailyActivity struct {
	UserID            string        `json:"user_id" db:"user_id"`
	Date              string        `json:"date" db:"activity_date"`
	CardsStudied      int           `json:"cards_studied" db:"cards_studied"`
	CorrectAnswers    int           `json:"correct_answers" db:"correct_answers"`
	StudyTime         time.Duration `json:"study_time" db:"study_time"`
	SessionsCompleted int           `json:"sessions_completed" db:"sessions_completed"`
	Accuracy          float64       `json:"accuracy" db:"accuracy"` // percent, 0-100
}

// DateKey formats t as a DailyActivity key in t's own location
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
