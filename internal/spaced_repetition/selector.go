package spaced_repetition

import (
	"errors"
	"sort"
	"time"

	"github.com/example/luxcards/pkg/models"
)

// ErrNoCardsAvailable is the empty-result condition: nothing to study for the
// requested mode. Callers check for it before starting a session.
var ErrNoCardsAvailable = errors.New("no cards available")

// GetCardsForReview returns every previously reviewed card whose review time
// has passed, earliest first. Ties keep their input order.
func GetCardsForReview(cards []models.Card, now time.Time) []models.Card {
	due := make([]models.Card, 0)
	for _, c := range cards {
		if c.ReviewCount > 0 && !c.NextReview.After(now) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReview.Before(due[j].NextReview)
	})
	return due
}

// GetNewCards returns up to limit never-reviewed cards in deck order
func GetNewCards(cards []models.Card, limit int) []models.Card {
	fresh := make([]models.Card, 0)
	if limit <= 0 {
		return fresh
	}
	for _, c := range cards {
		if c.ReviewCount != 0 {
			continue
		}
		fresh = append(fresh, c)
		if len(fresh) == limit {
			break
		}
	}
	return fresh
}

// DailyLimits caps how many cards of each kind a user sees per day
type DailyLimits struct {
	NewCards int
	Reviews  int
}

// StudiedToday is what the user already did today, used to shrink the caps
type StudiedToday struct {
	NewCards int
	Reviews  int
}

// Queue is the ordered set of cards a session will present
type Queue struct {
	Mode  models.StudyMode
	Cards []models.Card
}

// BuildQueue selects the cards for mode. When nothing qualifies it returns
// ErrNoCardsAvailable. Ordering for shuffled modes is left to the session.
func BuildQueue(mode models.StudyMode, cards []models.Card, now time.Time, limits DailyLimits, today StudiedToday) (Queue, error) {
	var selected []models.Card

	switch mode {
	case models.ModeReview:
		due := GetCardsForReview(cards, now)
		selected = capCards(due, limits.Reviews-today.Reviews)
	case models.ModeNew:
		selected = GetNewCards(cards, limits.NewCards-today.NewCards)
	case models.ModeAll, models.ModeQuizMultipleChoice, models.ModeQuizTypeIn:
		selected = append([]models.Card(nil), cards...)
	default:
		return Queue{}, errors.New("unknown study mode: " + string(mode))
	}

	if len(selected) == 0 {
		return Queue{Mode: mode}, ErrNoCardsAvailable
	}
	return Queue{Mode: mode, Cards: selected}, nil
}

func capCards(cards []models.Card, limit int) []models.Card {
	if limit <= 0 {
		return nil
	}
	if len(cards) > limit {
		return cards[:limit]
	}
	return cards
}

// DueSummary is a dashboard snapshot of a card collection
type DueSummary struct {
	Total    int
	Due      int
	New      int
	Mastered int
	// NextDue is the earliest upcoming review among cards not yet due (zero when none)
	NextDue time.Time
}

// Summarize counts due, new and mastered cards at now
func (sm *SM2) Summarize(cards []models.Card, now time.Time) DueSummary {
	s := DueSummary{Total: len(cards)}
	for _, c := range cards {
		switch {
		case c.ReviewCount == 0:
			s.New++
		case !c.NextReview.After(now):
			s.Due++
		default:
			if s.NextDue.IsZero() || c.NextReview.Before(s.NextDue) {
				s.NextDue = c.NextReview
			}
		}
		if sm.IsMastered(c) {
			s.Mastered++
		}
	}
	return s
}

// CountStudiedOn estimates what was studied on the calendar day of now from
// the cards alone: a card last reviewed that day with a single review was new,
// any other card reviewed that day was a review.
func CountStudiedOn(cards []models.Card, now time.Time) StudiedToday {
	var st StudiedToday
	y, m, d := now.Date()
	for _, c := range cards {
		if c.LastReviewed == nil {
			continue
		}
		ly, lm, ld := c.LastReviewed.In(now.Location()).Date()
		if ly != y || lm != m || ld != d {
			continue
		}
		if c.ReviewCount == 1 {
			st.NewCards++
		} else {
			st.Reviews++
		}
	}
	return st
}
