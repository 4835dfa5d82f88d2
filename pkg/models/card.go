package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Difficulty is the CEFR level a card was authored for
type Difficulty string

const (
	DifficultyA1 Difficulty = "A1"
	DifficultyA2 Difficulty = "A2"
	DifficultyB1 Difficulty = "B1"
	DifficultyB2 Difficulty = "B2"
)

// Valid reports whether d is one of the supported levels
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyA1, DifficultyA2, DifficultyB1, DifficultyB2:
		return true
	}
	return false
}

// DefaultEaseFactor is the ease a card starts with before its first review
const DefaultEaseFactor = 2.5

// Card is a single Luxembourgish vocabulary item together with its review state.
// Content fields are never touched by the scheduler.
type Card struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"user_id" db:"user_id"`
	DeckID        string     `json:"deck_id" db:"deck_id"`
	Front         string     `json:"front" db:"front"`
	Back          string     `json:"back" db:"back"`
	Pronunciation string     `json:"pronunciation,omitempty" db:"pronunciation"`
	Notes         string     `json:"notes,omitempty" db:"notes"`
	Category      string     `json:"category" db:"category"`
	Difficulty    Difficulty `json:"difficulty" db:"difficulty"`
	Position      int        `json:"position" db:"position"`

	EaseFactor   float64    `json:"ease_factor" db:"ease_factor"`
	Interval     int        `json:"interval" db:"interval_days"` // days until the next review
	Repetition   int        `json:"repetition" db:"repetition"`  // consecutive non-"again" answers
	NextReview   time.Time  `json:"next_review" db:"next_review"`
	ReviewCount  int        `json:"review_count" db:"review_count"`
	SuccessCount int        `json:"success_count" db:"success_count"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty" db:"last_reviewed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewCard creates a never-reviewed card due immediately
func NewCard(userID, deckID, front, back string, now time.Time) Card {
	c := Card{
		ID:         uuid.NewString(),
		UserID:     userID,
		DeckID:     deckID,
		Front:      front,
		Back:       back,
		Difficulty: DifficultyA1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.ResetScheduling(now)
	return c
}

// ResetScheduling puts the card back into its never-reviewed state
func (c *Card) ResetScheduling(now time.Time) {
	c.EaseFactor = DefaultEaseFactor
	c.Interval = 0
	c.Repetition = 0
	c.NextReview = now
	c.ReviewCount = 0
	c.SuccessCount = 0
	c.LastReviewed = nil
}

// IsNew reports whether the card has never been reviewed
func (c Card) IsNew() bool {
	return c.ReviewCount == 0
}

// Normalize repairs scheduling fields that are missing or out of range, e.g.
// after loading a damaged row. It returns true when anything had to change.
func (c *Card) Normalize(now time.Time, minEase float64) bool {
	repaired := false
	if c.EaseFactor == 0 || math.IsNaN(c.EaseFactor) || math.IsInf(c.EaseFactor, 0) {
		c.EaseFactor = DefaultEaseFactor
		repaired = true
	} else if c.EaseFactor < minEase {
		c.EaseFactor = minEase
		repaired = true
	}
	if c.Interval < 0 {
		c.Interval = 0
		repaired = true
	}
	if c.Repetition < 0 {
		c.Repetition = 0
		repaired = true
	}
	if c.ReviewCount < 0 {
		c.ReviewCount = 0
		repaired = true
	}
	if c.SuccessCount < 0 {
		c.SuccessCount = 0
		repaired = true
	}
	if c.SuccessCount > c.ReviewCount {
		c.SuccessCount = c.ReviewCount
		repaired = true
	}
	if c.NextReview.IsZero() {
		c.NextReview = now
		repaired = true
	}
	if c.ReviewCount == 0 && (c.Repetition != 0 || c.Interval != 0) {
		c.Repetition = 0
		c.Interval = 0
		repaired = true
	}
	if !c.Difficulty.Valid() {
		c.Difficulty = DifficultyA1
		repaired = true
	}
	return repaired
}
