package models

import "time"

// Goals are the learner's self-chosen targets
type Goals struct {
	DailyCards   int `json:"daily_cards" db:"daily_cards_goal"`
	WeeklyCards  int `json:"weekly_cards" db:"weekly_cards_goal"`
	DailyMinutes int `json:"daily_minutes" db:"daily_minutes_goal"`
}

// DefaultGoals returns the goals a new learner starts with
func DefaultGoals() Goals {
	return Goals{DailyCards: 20, WeeklyCards: 100, DailyMinutes: 10}
}

// Achievement is an unlocked badge
type Achievement struct {
	ID         string    `json:"id" db:"achievement_id"`
	UnlockedAt time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// UserProgress is the long-lived aggregate of everything a learner has done
type UserProgress struct {
	UserID             string        `json:"user_id" db:"user_id"`
	CardsStudied       int           `json:"cards_studied" db:"cards_studied"`
	CorrectAnswers     int           `json:"correct_answers" db:"correct_answers"`
	TotalStudyTime     time.Duration `json:"total_study_time" db:"total_study_time"`
	TotalSessions      int           `json:"total_sessions" db:"total_sessions"`
	AverageSessionTime time.Duration `json:"average_session_time" db:"average_session_time"`
	CurrentStreak      int           `json:"current_streak" db:"current_streak"`
	LongestStreak      int           `json:"longest_streak" db:"longest_streak"`
	Accuracy           float64       `json:"accuracy" db:"accuracy"` // percent, 0-100
	LastStudyDate      string        `json:"last_study_date" db:"last_study_date"`
	Goals              Goals         `json:"goals"`
	Achievements       []Achievement `json:"achievements"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// NewUserProgress returns an empty aggregate for userID
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID: userID,
		Goals:  DefaultGoals(),
	}
}

// HasAchievement reports whether id has already been unlocked
func (p *UserProgress) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to another goroutine
func (p *UserProgress) Clone() *UserProgress {
	c := *p
	c.Achievements = append([]Achievement(nil), p.Achievements...)
	return &c
}
