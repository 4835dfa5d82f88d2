package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in   string
		want Quality
	}{
		{"again", QualityAgain},
		{" Hard ", QualityHard},
		{"3", QualityGood},
		{"EASY", QualityEasy},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, err := ParseQuality(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}

	_, err := ParseQuality("perfect")
	assert.ErrorIs(t, err, ErrInvalidQuality)
	_, err = ParseQuality("0")
	assert.ErrorIs(t, err, ErrInvalidQuality)
}

func TestQualityCorrect(t *testing.T) {
	assert.False(t, QualityAgain.Correct())
	assert.True(t, QualityHard.Correct())
	assert.True(t, QualityEasy.Correct())
	assert.False(t, Quality(7).Correct())
	assert.Equal(t, "quality(7)", Quality(7).String())
}

func TestNewCardIsDueAndNew(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	c := NewCard("u", "d", "Moien", "Hello", now)
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IsNew())
	assert.Equal(t, DefaultEaseFactor, c.EaseFactor)
	assert.Equal(t, now, c.NextReview)
	assert.False(t, c.Normalize(now, 1.3))
}

func TestNormalizeRepairsCorruptCards(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		mut   func(c *Card)
		check func(t *testing.T, c Card)
	}{
		{"nan ease", func(c *Card) { c.EaseFactor = math.NaN() }, func(t *testing.T, c Card) {
			assert.Equal(t, DefaultEaseFactor, c.EaseFactor)
		}},
		{"ease below floor", func(c *Card) { c.EaseFactor = 0.9 }, func(t *testing.T, c Card) {
			assert.Equal(t, 1.3, c.EaseFactor)
		}},
		{"negative interval", func(c *Card) { c.Interval = -4 }, func(t *testing.T, c Card) {
			assert.Equal(t, 0, c.Interval)
		}},
		{"zero next review", func(c *Card) { c.NextReview = time.Time{} }, func(t *testing.T, c Card) {
			assert.Equal(t, now, c.NextReview)
		}},
		{"more successes than reviews", func(c *Card) { c.ReviewCount = 2; c.SuccessCount = 5 }, func(t *testing.T, c Card) {
			assert.Equal(t, 2, c.SuccessCount)
		}},
		{"scheduled but never reviewed", func(c *Card) { c.Repetition = 3; c.Interval = 12 }, func(t *testing.T, c Card) {
			assert.Equal(t, 0, c.Repetition)
			assert.Equal(t, 0, c.Interval)
		}},
		{"unknown level", func(c *Card) { c.Difficulty = "C2" }, func(t *testing.T, c Card) {
			assert.Equal(t, DifficultyA1, c.Difficulty)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCard("u", "d", "Moien", "Hello", now)
			tt.mut(&c)
			require.True(t, c.Normalize(now, 1.3))
			tt.check(t, c)
		})
	}
}

func TestStudyModeShuffled(t *testing.T) {
	assert.False(t, ModeReview.Shuffled())
	assert.False(t, ModeNew.Shuffled())
	assert.True(t, ModeAll.Shuffled())
	assert.True(t, ModeQuizTypeIn.Shuffled())
	assert.True(t, ModeQuizMultipleChoice.IsQuiz())
}
