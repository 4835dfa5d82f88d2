package spaced_repetition

import (
	"fmt"
	"math"
	"time"

	"github.com/example/luxcards/pkg/models"
)

// Params holds every tunable constant of the SM-2 variant
type Params struct {
	// Ease a card starts with
	InitialEase float64 `yaml:"initial_ease"`
	// Ease never drops below this floor
	MinEase float64 `yaml:"min_ease"`
	// Ease lost on "again"
	AgainPenalty float64 `yaml:"again_penalty"`
	// Ease lost on "hard"
	HardPenalty float64 `yaml:"hard_penalty"`
	// Ease gained on "easy"
	EasyBonus float64 `yaml:"easy_bonus"`
	// Seed interval for the first successful answer, in days
	FirstInterval int `yaml:"first_interval"`
	// Seed interval for the second successful answer, in days
	SecondInterval int `yaml:"second_interval"`
	// Interval after "again", in days
	RelearnInterval int `yaml:"relearn_interval"`
	// Sub-unity factor applied on top of the ease for "hard"
	HardIntervalFactor float64 `yaml:"hard_interval_factor"`
	// Extra multiplier applied for "easy"
	EasyIntervalBonus float64 `yaml:"easy_interval_bonus"`
	// Upper bound for any interval, in days
	MaxInterval int `yaml:"max_interval"`
	// Repetitions and interval a card needs to count as mastered
	MasteredRepetitions int `yaml:"mastered_repetitions"`
	MasteredInterval    int `yaml:"mastered_interval"`
}

// DefaultParams returns the classic SM-2 seeds with the four-button adjustments
func DefaultParams() Params {
	return Params{
		InitialEase:         models.DefaultEaseFactor,
		MinEase:             1.3,
		AgainPenalty:        0.20,
		HardPenalty:         0.15,
		EasyBonus:           0.15,
		FirstInterval:       1,
		SecondInterval:      6,
		RelearnInterval:     1,
		HardIntervalFactor:  0.6,
		EasyIntervalBonus:   1.3,
		MaxInterval:         3650, // ten years
		MasteredRepetitions: 5,
		MasteredInterval:    21,
	}
}

// Validate rejects parameter sets that would break the scheduling invariants
func (p Params) Validate() error {
	switch {
	case p.MinEase < 1.0:
		return fmt.Errorf("min_ease must be at least 1.0, got %v", p.MinEase)
	case p.InitialEase < p.MinEase:
		return fmt.Errorf("initial_ease %v is below min_ease %v", p.InitialEase, p.MinEase)
	case p.AgainPenalty < 0 || p.HardPenalty < 0 || p.EasyBonus < 0:
		return fmt.Errorf("ease adjustments must not be negative")
	case p.FirstInterval < 1 || p.SecondInterval < p.FirstInterval:
		return fmt.Errorf("seed intervals must satisfy 1 <= first <= second")
	case p.RelearnInterval < 1:
		return fmt.Errorf("relearn_interval must be at least 1 day")
	case p.HardIntervalFactor <= 0 || p.HardIntervalFactor >= 1:
		return fmt.Errorf("hard_interval_factor must be in (0, 1), got %v", p.HardIntervalFactor)
	case p.EasyIntervalBonus <= 1:
		return fmt.Errorf("easy_interval_bonus must be greater than 1, got %v", p.EasyIntervalBonus)
	case p.MaxInterval < p.SecondInterval:
		return fmt.Errorf("max_interval %d is below second_interval %d", p.MaxInterval, p.SecondInterval)
	}
	return nil
}

// State is the part of a card the scheduler reads and writes
type State struct {
	EaseFactor float64
	Interval   int
	Repetition int
	NextReview time.Time
}

// StateOf extracts the scheduling state of c
func StateOf(c models.Card) State {
	return State{
		EaseFactor: c.EaseFactor,
		Interval:   c.Interval,
		Repetition: c.Repetition,
		NextReview: c.NextReview,
	}
}

// SM2 implements the SuperMemo-2 algorithm with again/hard/good/easy answers.
// It is pure: the caller supplies "now" and gets a new state back.
type SM2 struct {
	params Params
}

// NewSM2 creates an engine from p. Invalid parameters panic.
func NewSM2(p Params) *SM2 {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("spaced_repetition: %v", err))
	}
	return &SM2{params: p}
}

// Params returns the engine's configuration
func (sm *SM2) Params() Params {
	return sm.params
}

// Schedule computes the state that follows answering s with q at now.
// An unknown quality is a programming error and panics.
func (sm *SM2) Schedule(s State, q models.Quality, now time.Time) State {
	if !q.Valid() {
		panic(fmt.Sprintf("spaced_repetition: invalid quality %d", int(q)))
	}
	p := sm.params

	ease := s.EaseFactor
	if ease < p.MinEase {
		ease = p.MinEase
	}
	prev := s.Interval
	if prev < 0 {
		prev = 0
	}
	rep := s.Repetition
	if rep < 0 {
		rep = 0
	}

	var next State
	switch q {
	case models.QualityAgain:
		next.Repetition = 0
		next.EaseFactor = sm.clampEase(ease - p.AgainPenalty)
		next.Interval = p.RelearnInterval

	case models.QualityHard:
		next.EaseFactor = sm.clampEase(ease - p.HardPenalty)
		if rep < 2 {
			next.Interval = sm.seed(rep)
		} else {
			grown := roundDays(float64(prev) * next.EaseFactor * p.HardIntervalFactor)
			next.Interval = max(prev, grown)
		}
		next.Repetition = rep + 1

	case models.QualityGood:
		next.EaseFactor = ease
		if rep < 2 {
			next.Interval = sm.seed(rep)
		} else {
			next.Interval = roundDays(float64(prev) * ease)
		}
		next.Repetition = rep + 1

	case models.QualityEasy:
		next.EaseFactor = ease + p.EasyBonus
		if rep < 2 {
			seed := sm.seed(rep)
			next.Interval = max(seed, roundDays(float64(seed)*p.EasyIntervalBonus))
		} else {
			next.Interval = roundDays(float64(prev) * next.EaseFactor * p.EasyIntervalBonus)
		}
		next.Repetition = rep + 1
	}

	next.Interval = sm.clampInterval(next.Interval)
	next.NextReview = now.AddDate(0, 0, next.Interval)
	return next
}

// Review applies q to a copy of c and updates its counters. c itself is not modified.
func (sm *SM2) Review(c models.Card, q models.Quality, now time.Time) models.Card {
	next := sm.Schedule(StateOf(c), q, now)

	c.EaseFactor = next.EaseFactor
	c.Interval = next.Interval
	c.Repetition = next.Repetition
	c.NextReview = next.NextReview
	c.ReviewCount++
	if q.Correct() {
		c.SuccessCount++
	}
	reviewed := now
	c.LastReviewed = &reviewed
	c.UpdatedAt = now
	return c
}

// IsMastered determines if a card is considered learned
func (sm *SM2) IsMastered(c models.Card) bool {
	return c.Repetition >= sm.params.MasteredRepetitions &&
		c.Interval >= sm.params.MasteredInterval
}

func (sm *SM2) seed(rep int) int {
	if rep == 0 {
		return sm.params.FirstInterval
	}
	return sm.params.SecondInterval
}

func (sm *SM2) clampEase(e float64) float64 {
	if e < sm.params.MinEase {
		return sm.params.MinEase
	}
	return e
}

func (sm *SM2) clampInterval(days int) int {
	if days < 1 {
		return 1
	}
	if days > sm.params.MaxInterval {
		return sm.params.MaxInterval
	}
	return days
}

func roundDays(d float64) int {
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	if d > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(d))
}
