package spaced_repetition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luxcards/pkg/models"
)

func card(id string, reviews int, next time.Time) models.Card {
	return models.Card{ID: id, ReviewCount: reviews, NextReview: next, EaseFactor: 2.5}
}

func ids(cards []models.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestGetCardsForReview(t *testing.T) {
	now := t0
	cards := []models.Card{
		card("future", 3, now.Add(time.Hour)),
		card("new-overdue", 0, now.Add(-48*time.Hour)),
		card("b", 2, now.Add(-time.Hour)),
		card("a", 5, now.Add(-72*time.Hour)),
		card("exact", 1, now),
		card("b-tie", 4, now.Add(-time.Hour)),
	}

	due := GetCardsForReview(cards, now)

	assert.Equal(t, []string{"a", "b", "b-tie", "exact"}, ids(due))

	in := map[string]bool{}
	for _, c := range due {
		in[c.ID] = true
	}
	for _, c := range cards {
		predicate := c.ReviewCount > 0 && !c.NextReview.After(now)
		assert.Equal(t, predicate, in[c.ID], c.ID)
	}
}

func TestGetNewCards(t *testing.T) {
	cards := []models.Card{
		card("n1", 0, t0),
		card("r1", 2, t0),
		card("n2", 0, t0),
		card("n3", 0, t0),
	}

	assert.Equal(t, []string{"n1", "n2"}, ids(GetNewCards(cards, 2)))
	assert.Equal(t, []string{"n1", "n2", "n3"}, ids(GetNewCards(cards, 20)))
	assert.Empty(t, GetNewCards(cards, 0))

	empty := GetNewCards(nil, 20)
	require.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func TestBuildQueue(t *testing.T) {
	now := t0
	cards := []models.Card{
		card("n1", 0, now),
		card("r1", 1, now.Add(-2*time.Hour)),
		card("r2", 1, now.Add(-3*time.Hour)),
		card("n2", 0, now),
		card("later", 4, now.AddDate(0, 0, 3)),
	}
	limits := DailyLimits{NewCards: 5, Reviews: 1}

	q, err := BuildQueue(models.ModeReview, cards, now, limits, StudiedToday{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(q.Cards))

	q, err = BuildQueue(models.ModeNew, cards, now, limits, StudiedToday{NewCards: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, ids(q.Cards))

	_, err = BuildQueue(models.ModeNew, cards, now, limits, StudiedToday{NewCards: 5})
	assert.True(t, errors.Is(err, ErrNoCardsAvailable))

	q, err = BuildQueue(models.ModeAll, cards, now, limits, StudiedToday{})
	require.NoError(t, err)
	assert.Len(t, q.Cards, len(cards))

	_, err = BuildQueue(models.ModeReview, nil, now, limits, StudiedToday{})
	assert.ErrorIs(t, err, ErrNoCardsAvailable)

	_, err = BuildQueue(models.StudyMode("bogus"), cards, now, limits, StudiedToday{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCardsAvailable)
}

func TestSummarize(t *testing.T) {
	sm := NewSM2(DefaultParams())
	now := t0
	mastered := card("m", 9, now.AddDate(0, 0, 30))
	mastered.Repetition = 6
	mastered.Interval = 40

	s := sm.Summarize([]models.Card{
		card("n", 0, now),
		card("d", 2, now.Add(-time.Minute)),
		card("f", 2, now.AddDate(0, 0, 2)),
		mastered,
	}, now)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.New)
	assert.Equal(t, 1, s.Due)
	assert.Equal(t, 1, s.Mastered)
	assert.True(t, s.NextDue.Equal(now.AddDate(0, 0, 2)))
}

func TestCountStudiedOn(t *testing.T) {
	now := t0
	earlier := now.Add(-2 * time.Hour)
	yesterday := now.AddDate(0, 0, -1)

	first := card("first", 1, now.AddDate(0, 0, 1))
	first.LastReviewed = &earlier
	again := card("again", 4, now.AddDate(0, 0, 6))
	again.LastReviewed = &earlier
	old := card("old", 1, now)
	old.LastReviewed = &yesterday
	fresh := card("fresh", 0, now)

	st := CountStudiedOn([]models.Card{first, again, old, fresh}, now)
	assert.Equal(t, StudiedToday{NewCards: 1, Reviews: 1}, st)
}

func TestBuildQueue_TodayShrinksCaps(t *testing.T) {
	cards := []models.Card{card("a", 0, t0), card("b", 0, t0), card("c", 0, t0)}
	q, err := BuildQueue(models.ModeNew, cards, t0, DailyLimits{NewCards: 2, Reviews: 10}, StudiedToday{NewCards: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(q.Cards))

	_, err = BuildQueue(models.ModeNew, cards, t0, DailyLimits{NewCards: 2, Reviews: 10}, StudiedToday{NewCards: 2})
	assert.True(t, errors.Is(err, ErrNoCardsAvailable))
}
