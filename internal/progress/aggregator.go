// Package progress keeps the long-lived learner aggregates up to date:
// accuracy, study time, streaks, goals and achievements.
package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/events"
	"github.com/example/luxcards/pkg/models"
)

// Persister stores aggregates in the background. It must not block.
type Persister interface {
	PersistProgress(p *models.UserProgress)
	PersistActivity(a models.DailyActivity)
}

// Aggregator folds one learner's session events into their UserProgress
// and DailyActivity records. It is safe for concurrent use.
type Aggregator struct {
	mu           sync.Mutex
	clock        clock.Clock
	persister    Persister
	achievements AchievementConfig

	progress *models.UserProgress
	activity ActivityIndex
	unlocked []models.Achievement
}

// NewAggregator starts from a loaded progress record (nil for a new learner)
// and the learner's recent activity.
func NewAggregator(userID string, p *models.UserProgress, activity []models.DailyActivity,
	clk clock.Clock, persister Persister, cfg AchievementConfig) *Aggregator {
	if p == nil {
		p = models.NewUserProgress(userID)
	} else {
		p = p.Clone()
	}
	return &Aggregator{
		clock:        clk,
		persister:    persister,
		achievements: cfg,
		progress:     p,
		activity:     IndexActivity(activity),
	}
}

// Attach subscribes the aggregator to bus and returns the unsubscribe func
func (a *Aggregator) Attach(bus *events.Bus) func() {
	return bus.Subscribe(a.Handle, events.TypeCardAnswered, events.TypeSessionEnded)
}

// Handle routes bus events. Events for other users are ignored.
func (a *Aggregator) Handle(e events.Event) {
	switch ev := e.(type) {
	case events.CardAnswered:
		if ev.UserID == a.userID() {
			a.RecordAnswer(ev.Result)
		}
	case events.SessionEnded:
		if ev.UserID == a.userID() {
			a.RecordSession(ev)
		}
	}
}

func (a *Aggregator) userID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress.UserID
}

// RecordAnswer counts one answered card
func (a *Aggregator) RecordAnswer(r models.StudyResult) {
	a.mu.Lock()
	now := a.clock.Now()
	day := a.today(now)

	p := a.progress
	p.Accuracy = weightedAccuracy(p.Accuracy, p.CardsStudied, r.Correct)
	p.CardsStudied++
	if r.Correct {
		p.CorrectAnswers++
	}
	p.LastStudyDate = day.Date
	p.UpdatedAt = now

	day.Accuracy = weightedAccuracy(day.Accuracy, day.CardsStudied, r.Correct)
	day.CardsStudied++
	if r.Correct {
		day.CorrectAnswers++
	}
	a.activity[day.Date] = day
	a.updateStreak(now)

	a.checkMilestones(now)
	a.mu.Unlock()

	a.persist(day)
}

// RecordSession folds a finished session into the totals. Sessions that
// ended before any card was answered are not counted.
func (a *Aggregator) RecordSession(e events.SessionEnded) {
	if e.Total == 0 {
		return
	}
	a.mu.Lock()
	now := a.clock.Now()
	day := a.today(now)

	p := a.progress
	p.TotalStudyTime += e.Duration
	p.TotalSessions++
	p.AverageSessionTime = runningMean(p.AverageSessionTime, p.TotalSessions, e.Duration)
	p.UpdatedAt = now

	day.StudyTime += e.Duration
	day.SessionsCompleted++
	a.activity[day.Date] = day

	a.updateStreak(now)

	a.checkMilestones(now)
	for _, id := range a.achievements.sessionAchievements(e.Total, e.Correct, e.Results) {
		a.unlock(id, now)
	}
	a.mu.Unlock()

	log.Debug().Str("user_id", e.UserID).Str("session_id", e.SessionID).
		Int("cards", e.Total).Dur("duration", e.Duration).Msg("session recorded")
	a.persist(day)
}

// Unlock grants an achievement once. It reports whether it was new.
func (a *Aggregator) Unlock(id string) bool {
	a.mu.Lock()
	ok := a.unlock(id, a.clock.Now())
	a.mu.Unlock()
	if ok && a.persister != nil {
		a.persister.PersistProgress(a.Progress())
	}
	return ok
}

func (a *Aggregator) unlock(id string, at time.Time) bool {
	if !Unlock(a.progress, id, at) {
		return false
	}
	a.unlocked = append(a.unlocked, models.Achievement{ID: id, UnlockedAt: at})
	log.Info().Str("user_id", a.progress.UserID).Str("achievement", id).Msg("achievement unlocked")
	return true
}

func (a *Aggregator) checkMilestones(now time.Time) {
	for _, id := range a.achievements.milestoneAchievements(a.progress) {
		a.unlock(id, now)
	}
}

// TakeUnlocked returns the achievements unlocked since the previous call
func (a *Aggregator) TakeUnlocked() []models.Achievement {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.unlocked
	a.unlocked = nil
	return out
}

// Progress returns a copy of the current aggregate
func (a *Aggregator) Progress() *models.UserProgress {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.progress.Clone()
	p.CurrentStreak = ComputeStreak(a.activity, a.clock.Now())
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
	return p
}

// updateStreak recomputes the current streak; longest never trails it
func (a *Aggregator) updateStreak(now time.Time) {
	p := a.progress
	p.CurrentStreak = ComputeStreak(a.activity, now)
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
}

// Today returns today's activity record
func (a *Aggregator) Today() models.DailyActivity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.today(a.clock.Now())
}

// Activity returns every known activity record, oldest first
func (a *Aggregator) Activity() []models.DailyActivity {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.DailyActivity, 0, len(a.activity))
	for _, d := range a.activity {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Goals measures the learner's goals at the current time
func (a *Aggregator) Goals() GoalStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return goalStatus(a.progress.Goals, a.activity, a.clock.Now())
}

// SetGoals replaces the learner's goals
func (a *Aggregator) SetGoals(g models.Goals) {
	a.mu.Lock()
	a.progress.Goals = g
	a.progress.UpdatedAt = a.clock.Now()
	a.mu.Unlock()
	if a.persister != nil {
		a.persister.PersistProgress(a.Progress())
	}
}

func (a *Aggregator) today(now time.Time) models.DailyActivity {
	key := models.DateKey(now)
	day, ok := a.activity[key]
	if !ok {
		day = models.DailyActivity{UserID: a.progress.UserID, Date: key}
	}
	return day
}

func (a *Aggregator) persist(day models.DailyActivity) {
	if a.persister == nil {
		return
	}
	a.persister.PersistActivity(day)
	a.persister.PersistProgress(a.Progress())
}

// weightedAccuracy folds one more answer into an accuracy over n answers
func weightedAccuracy(accuracy float64, n int, correct bool) float64 {
	if n < 0 {
		n = 0
	}
	score := 0.0
	if correct {
		score = 100
	}
	acc := (accuracy*float64(n) + score) / float64(n+1)
	return min(100, max(0, acc))
}

// runningMean folds the n-th sample into a mean over n-1 samples
func runningMean(mean time.Duration, n int, sample time.Duration) time.Duration {
	if n <= 1 {
		return sample
	}
	return (mean*time.Duration(n-1) + sample) / time.Duration(n)
}
