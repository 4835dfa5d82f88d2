package spaced_repetition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luxcards/pkg/models"
)

var t0 = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newCard() models.Card {
	return models.NewCard("user-1", "deck-1", "Moien", "Hello", t0)
}

func TestSchedule_GoodProgression(t *testing.T) {
	sm := NewSM2(DefaultParams())
	card := newCard()

	card = sm.Review(card, models.QualityGood, t0)
	assert.Equal(t, 1, card.Repetition)
	assert.Equal(t, 1, card.Interval)
	assert.Equal(t, 2.5, card.EaseFactor)
	assert.True(t, card.NextReview.Equal(t0.AddDate(0, 0, 1)))

	second := t0.AddDate(0, 0, 1)
	card = sm.Review(card, models.QualityGood, second)
	assert.Equal(t, 2, card.Repetition)
	assert.Equal(t, 6, card.Interval)
	assert.Equal(t, 2.5, card.EaseFactor)
	assert.True(t, card.NextReview.Equal(second.AddDate(0, 0, 6)))

	third := second.AddDate(0, 0, 6)
	card = sm.Review(card, models.QualityGood, third)
	assert.Equal(t, 3, card.Repetition)
	assert.Equal(t, 15, card.Interval)
	assert.Equal(t, 2.5, card.EaseFactor)

	assert.Equal(t, 3, card.ReviewCount)
	assert.Equal(t, 3, card.SuccessCount)
	require.NotNil(t, card.LastReviewed)
	assert.True(t, card.LastReviewed.Equal(third))
}

func TestSchedule_AgainResets(t *testing.T) {
	sm := NewSM2(DefaultParams())
	state := State{EaseFactor: 2.5, Interval: 15, Repetition: 3}

	next := sm.Schedule(state, models.QualityAgain, t0)

	assert.Equal(t, 0, next.Repetition)
	assert.Equal(t, 1, next.Interval)
	assert.InDelta(t, 2.3, next.EaseFactor, 1e-9)
	assert.True(t, next.NextReview.Equal(t0.AddDate(0, 0, 1)))
}

func TestSchedule_EaseFloor(t *testing.T) {
	sm := NewSM2(DefaultParams())
	state := State{EaseFactor: 2.5, Interval: 30, Repetition: 6}

	for i := 0; i < 50; i++ {
		state = sm.Schedule(state, models.QualityAgain, t0)
		assert.GreaterOrEqual(t, state.EaseFactor, 1.3)
		assert.Equal(t, 0, state.Repetition)
		assert.Equal(t, 1, state.Interval)
	}
	assert.Equal(t, 1.3, state.EaseFactor)

	for i := 0; i < 50; i++ {
		state = sm.Schedule(state, models.QualityHard, t0)
		assert.GreaterOrEqual(t, state.EaseFactor, 1.3)
	}
}

func TestSchedule_GoodAndEasyNeverShrinkFromRepetitionTwo(t *testing.T) {
	sm := NewSM2(DefaultParams())

	for _, ease := range []float64{1.3, 1.5, 2.0, 2.5, 3.1} {
		for _, interval := range []int{1, 2, 6, 15, 100, 400} {
			for _, q := range []models.Quality{models.QualityGood, models.QualityEasy} {
				state := State{EaseFactor: ease, Interval: interval, Repetition: 2}
				next := sm.Schedule(state, q, t0)
				assert.GreaterOrEqual(t, next.Interval, interval,
					"ease=%v interval=%d quality=%s", ease, interval, q)
			}
		}
	}
}

func TestSchedule_HardGrowsSlowerThanGood(t *testing.T) {
	sm := NewSM2(DefaultParams())
	state := State{EaseFactor: 2.5, Interval: 15, Repetition: 3}

	hard := sm.Schedule(state, models.QualityHard, t0)
	good := sm.Schedule(state, models.QualityGood, t0)
	easy := sm.Schedule(state, models.QualityEasy, t0)

	assert.Equal(t, 4, hard.Repetition)
	assert.InDelta(t, 2.35, hard.EaseFactor, 1e-9)
	assert.GreaterOrEqual(t, hard.Interval, 15)
	assert.Less(t, hard.Interval, good.Interval)
	assert.Less(t, good.Interval, easy.Interval)
	assert.InDelta(t, 2.65, easy.EaseFactor, 1e-9)
	assert.Equal(t, 52, easy.Interval) // round(15 * 2.65 * 1.3)
}

func TestSchedule_FirstReviewUsesSeeds(t *testing.T) {
	sm := NewSM2(DefaultParams())
	fresh := State{EaseFactor: 2.5}

	tests := []struct {
		quality  models.Quality
		interval int
	}{
		{models.QualityAgain, 1},
		{models.QualityHard, 1},
		{models.QualityGood, 1},
		{models.QualityEasy, 1},
	}
	for _, tt := range tests {
		t.Run(tt.quality.String(), func(t *testing.T) {
			next := sm.Schedule(fresh, tt.quality, t0)
			assert.Equal(t, tt.interval, next.Interval)
			assert.GreaterOrEqual(t, next.Interval, 1)
		})
	}

	secondEasy := sm.Schedule(State{EaseFactor: 2.5, Interval: 1, Repetition: 1}, models.QualityEasy, t0)
	assert.Equal(t, 8, secondEasy.Interval) // round(6 * 1.3)
}

func TestSchedule_MaxIntervalCap(t *testing.T) {
	p := DefaultParams()
	p.MaxInterval = 365
	sm := NewSM2(p)

	next := sm.Schedule(State{EaseFactor: 3.0, Interval: 300, Repetition: 8}, models.QualityEasy, t0)
	assert.Equal(t, 365, next.Interval)
	assert.True(t, next.NextReview.Equal(t0.AddDate(0, 0, 365)))
}

func TestSchedule_InvalidQualityPanics(t *testing.T) {
	sm := NewSM2(DefaultParams())
	assert.Panics(t, func() { sm.Schedule(State{EaseFactor: 2.5}, models.Quality(0), t0) })
	assert.Panics(t, func() { sm.Schedule(State{EaseFactor: 2.5}, models.Quality(7), t0) })
}

func TestReview_SuccessCountNeverExceedsReviewCount(t *testing.T) {
	sm := NewSM2(DefaultParams())
	card := newCard()
	answers := []models.Quality{
		models.QualityGood, models.QualityAgain, models.QualityHard, models.QualityEasy,
		models.QualityAgain, models.QualityAgain, models.QualityGood,
	}
	now := t0
	for _, q := range answers {
		card = sm.Review(card, q, now)
		assert.LessOrEqual(t, card.SuccessCount, card.ReviewCount)
		assert.False(t, card.NextReview.Before(now))
		now = card.NextReview
	}
	assert.Equal(t, len(answers), card.ReviewCount)
	assert.Equal(t, 4, card.SuccessCount)
}

func TestReview_DoesNotMutateInput(t *testing.T) {
	sm := NewSM2(DefaultParams())
	card := newCard()
	_ = sm.Review(card, models.QualityEasy, t0)
	assert.Equal(t, 0, card.ReviewCount)
	assert.Nil(t, card.LastReviewed)
}

func TestIsMastered(t *testing.T) {
	sm := NewSM2(DefaultParams())
	card := newCard()
	assert.False(t, sm.IsMastered(card))

	card.Repetition = 5
	card.Interval = 21
	assert.True(t, sm.IsMastered(card))

	card.Interval = 20
	assert.False(t, sm.IsMastered(card))
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := DefaultParams()
	bad.HardIntervalFactor = 1.2
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.MinEase = 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.RelearnInterval = 0
	assert.Error(t, bad.Validate())

	assert.Panics(t, func() { NewSM2(bad) })
}
