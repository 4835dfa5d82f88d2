// Package study drives a single study or quiz run over a queue of cards.
package study

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/events"
	"github.com/example/luxcards/pkg/models"
)

var (
	// ErrNoCards is returned by Start when the queue is empty.
	ErrNoCards = errors.New("no cards available for this session")
	// ErrNotInProgress is returned when answering outside of a running session.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")
)

// State is the lifecycle phase of a session
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// Scheduler produces the next card state for an answer
type Scheduler interface {
	Review(c models.Card, q models.Quality, now time.Time) models.Card
}

// Persister stores updated cards in the background. It must not block.
type Persister interface {
	PersistCard(userID string, card models.Card)
}

// ShuffleFunc reorders cards in place
type ShuffleFunc func(cards []models.Card)

// RandomShuffle is the default ShuffleFunc
func RandomShuffle(cards []models.Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Stats are the running (or final) aggregates of a session
type Stats struct {
	SessionID string
	Mode      models.StudyMode
	State     State
	Total     int
	Correct   int
	Accuracy  float64 // percent
	Remaining int
	StartedAt time.Time
	EndedAt   *time.Time
	Duration  time.Duration
	Results   []models.StudyResult
}

// Session is the study state machine: NotStarted -> InProgress -> Completed.
// It is not safe for concurrent use; callers serialize access per user.
type Session struct {
	ID     string
	UserID string

	scheduler Scheduler
	clock     clock.Clock
	persister Persister
	bus       *events.Bus
	shuffle   ShuffleFunc

	state      State
	mode       models.StudyMode
	cards      []models.Card
	cursor     int
	results    []models.StudyResult
	correct    int
	startedAt  time.Time
	endedAt    *time.Time
	presented  time.Time
	finalStats *Stats
}

// Option customizes a Session
type Option func(*Session)

// WithShuffle replaces the shuffle used for randomized modes
func WithShuffle(f ShuffleFunc) Option {
	return func(s *Session) { s.shuffle = f }
}

// WithID fixes the session id instead of generating one
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// NewSession wires a session to its collaborators. persister and bus may be nil.
func NewSession(userID string, scheduler Scheduler, clk clock.Clock, persister Persister, bus *events.Bus, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		scheduler: scheduler,
		clock:     clk,
		persister: persister,
		bus:       bus,
		shuffle:   RandomShuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle phase
func (s *Session) State() State {
	return s.state
}

// Mode returns the declared mode
func (s *Session) Mode() models.StudyMode {
	return s.mode
}

// Cursor returns the index of the card being presented
func (s *Session) Cursor() int {
	return s.cursor
}

// Len returns the number of cards in the session
func (s *Session) Len() int {
	return len(s.cards)
}

// Start snapshots cards and begins the session
func (s *Session) Start(cards []models.Card, mode models.StudyMode) error {
	if s.state != StateNotStarted {
		return ErrAlreadyStarted
	}
	if len(cards) == 0 {
		return ErrNoCards
	}

	s.cards = append([]models.Card(nil), cards...)
	if mode.Shuffled() && s.shuffle != nil {
		s.shuffle(s.cards)
	}
	s.mode = mode
	s.cursor = 0
	s.results = make([]models.StudyResult, 0, len(s.cards))
	s.startedAt = s.clock.Now()
	s.presented = s.startedAt
	s.state = StateInProgress

	s.bus.Publish(events.SessionStarted{
		SessionID: s.ID,
		UserID:    s.UserID,
		Mode:      mode,
		CardCount: len(s.cards),
		StartedAt: s.startedAt,
	})
	return nil
}

// Current returns the card at the cursor
func (s *Session) Current() (models.Card, bool) {
	if s.state != StateInProgress || s.cursor >= len(s.cards) {
		return models.Card{}, false
	}
	return s.cards[s.cursor], true
}

// Answer grades the current card, records the result and advances.
// The returned card carries the new scheduling state.
func (s *Session) Answer(q models.Quality) (models.Card, models.StudyResult, error) {
	if s.state != StateInProgress {
		return models.Card{}, models.StudyResult{}, ErrNotInProgress
	}
	if !q.Valid() {
		return models.Card{}, models.StudyResult{}, models.ErrInvalidQuality
	}
	current, ok := s.Current()
	if !ok {
		return models.Card{}, models.StudyResult{}, ErrNotInProgress
	}

	now := s.clock.Now()
	updated := s.scheduler.Review(current, q, now)
	s.cards[s.cursor] = updated

	result := models.StudyResult{
		CardID:    updated.ID,
		Quality:   q,
		Correct:   q.Correct(),
		TimeSpent: nonNegative(now.Sub(s.presented)),
		Timestamp: now,
	}
	s.results = append(s.results, result)
	if result.Correct {
		s.correct++
	}

	if s.persister != nil {
		s.persister.PersistCard(s.UserID, updated)
	}

	s.bus.Publish(events.CardAnswered{
		SessionID: s.ID,
		UserID:    s.UserID,
		Card:      updated,
		Result:    result,
	})
	s.bus.Publish(events.AccuracyChanged{
		SessionID: s.ID,
		UserID:    s.UserID,
		Correct:   s.correct,
		Total:     len(s.results),
		Accuracy:  s.accuracy(),
	})

	s.Advance()
	return updated, result, nil
}

// Advance moves to the next card, completing the session after the last one.
// Calling it without answering skips the current card.
func (s *Session) Advance() {
	if s.state != StateInProgress {
		return
	}
	if s.cursor >= len(s.cards)-1 {
		s.complete(false)
		return
	}
	s.cursor++
	s.presented = s.clock.Now()
}

// End terminates the session early, keeping everything answered so far
func (s *Session) End() {
	if s.state != StateInProgress {
		return
	}
	s.complete(true)
}

// Stats returns the session aggregates. After completion the values are frozen.
func (s *Session) Stats() Stats {
	if s.finalStats != nil {
		st := *s.finalStats
		st.Results = append([]models.StudyResult(nil), s.finalStats.Results...)
		return st
	}
	return s.snapshot(s.clock.Now())
}

func (s *Session) complete(early bool) {
	now := s.clock.Now()
	s.endedAt = &now
	s.state = StateCompleted

	final := s.snapshot(now)
	s.finalStats = &final

	s.bus.Publish(events.SessionEnded{
		SessionID: s.ID,
		UserID:    s.UserID,
		Mode:      s.mode,
		Total:     final.Total,
		Correct:   final.Correct,
		Accuracy:  final.Accuracy,
		Duration:  final.Duration,
		Results:   append([]models.StudyResult(nil), final.Results...),
		EndedAt:   now,
		Early:     early,
	})
}

func (s *Session) snapshot(now time.Time) Stats {
	st := Stats{
		SessionID: s.ID,
		Mode:      s.mode,
		State:     s.state,
		Total:     len(s.results),
		Correct:   s.correct,
		Accuracy:  s.accuracy(),
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
		Results:   append([]models.StudyResult(nil), s.results...),
	}
	if s.state == StateInProgress {
		st.Remaining = len(s.cards) - s.cursor
	}
	if !s.startedAt.IsZero() {
		end := now
		if s.endedAt != nil {
			end = *s.endedAt
		}
		st.Duration = nonNegative(end.Sub(s.startedAt))
	}
	return st
}

func (s *Session) accuracy() float64 {
	if len(s.results) == 0 {
		return 0
	}
	return float64(s.correct) / float64(len(s.results)) * 100
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
