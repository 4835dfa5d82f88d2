package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/database"
	"github.com/example/luxcards/internal/progress"
	"github.com/example/luxcards/internal/quiz"
	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/internal/study"
	"github.com/example/luxcards/pkg/models"
)

// learner is everything the bot keeps in memory for one Telegram user.
// Fields below mu are only touched while holding it.
type learner struct {
	userID string
	chatID atomic.Int64
	// set after a SyncFailed notice, cleared on recovery
	syncWarned atomic.Bool

	mu             sync.Mutex
	stats          *progress.Aggregator
	detach         func()
	settings       models.Settings
	clock          clock.Clock
	cards          []models.Card
	session        *study.Session
	quiz           *quiz.Quiz
	cardMessageID  int
	awaitingImport bool
}

// userKey maps a Telegram user id onto the store's user id
func userKey(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}

// learnerFor returns the cached learner or loads it from the stores. A new
// user gets default settings bound to chatID.
func (b *Bot) learnerFor(ctx context.Context, telegramID, chatID int64) (*learner, error) {
	userID := userKey(telegramID)
	if l, ok := b.lookup(userID); ok {
		if chatID != 0 && l.chatID.Load() != chatID {
			b.rebindChat(ctx, l, chatID)
		}
		return l, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.learners[userID]; ok {
		return l, nil
	}

	settings, err := b.stores.Settings.Get(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		settings = b.defaultSettings(userID)
		settings.ChatID = chatID
		if err := b.stores.Settings.Save(ctx, settings); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case chatID != 0 && settings.ChatID != chatID:
		settings.ChatID = chatID
		if err := b.stores.Settings.Save(ctx, settings); err != nil {
			return nil, err
		}
	}

	clk := clock.Local{Clock: b.clock, Location: settingsLocation(settings, b.loc)}
	cards, err := b.stores.Cards.LoadCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := b.stores.Progress.LoadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	activity, err := b.stores.Activity.Recent(ctx, userID, clk.Now(), b.config.ActivityDays)
	if err != nil {
		return nil, err
	}

	l := &learner{
		userID:   userID,
		settings: settings,
		clock:    clk,
		cards:    cards,
		stats:    progress.NewAggregator(userID, p, activity, clk, b.writer, b.config.Achievements),
	}
	l.chatID.Store(settings.ChatID)
	l.detach = l.stats.Attach(b.bus)
	b.learners[userID] = l

	log.Info().Str("user_id", userID).Int("cards", len(cards)).Msg("learner loaded")
	return l, nil
}

// lookup returns a loaded learner without touching the stores
func (b *Bot) lookup(userID string) (*learner, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.learners[userID]
	return l, ok
}

// rebindChat stores the chat a known user now talks to us from
func (b *Bot) rebindChat(ctx context.Context, l *learner, chatID int64) {
	l.mu.Lock()
	l.settings.ChatID = chatID
	settings := l.settings
	l.mu.Unlock()
	l.chatID.Store(chatID)
	if err := b.stores.Settings.Save(ctx, settings); err != nil {
		log.Warn().Err(err).Str("user_id", l.userID).Msg("failed to update chat id")
	}
}

func (b *Bot) defaultSettings(userID string) models.Settings {
	s := models.DefaultSettings(userID)
	if b.config.DefaultNewCardsPerDay > 0 {
		s.NewCardsPerDay = b.config.DefaultNewCardsPerDay
	}
	if b.config.DefaultReviewsPerDay > 0 {
		s.ReviewsPerDay = b.config.DefaultReviewsPerDay
	}
	if b.config.DefaultTimezone != "" {
		s.Timezone = b.config.DefaultTimezone
	}
	return s
}

func settingsLocation(s models.Settings, fallback *time.Location) *time.Location {
	if s.Timezone != "" {
		if loc, err := time.LoadLocation(s.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// active reports whether a study or quiz session is running
func (l *learner) active() bool {
	return l.session != nil && l.session.State() == study.StateInProgress
}

// startSession builds the queue for mode and starts a session over it
func (b *Bot) startSession(ctx context.Context, l *learner, mode models.StudyMode) error {
	if l.active() {
		if _, err := b.finish(ctx, l); err != nil {
			log.Warn().Err(err).Str("user_id", l.userID).Msg("failed to finish previous session")
		}
	}
	l.session, l.quiz = nil, nil

	now := l.clock.Now()
	limits := spaced_repetition.DailyLimits{
		NewCards: l.settings.NewCardsPerDay,
		Reviews:  l.settings.ReviewsPerDay,
	}
	queue, err := spaced_repetition.BuildQueue(mode, l.cards, now, limits,
		spaced_repetition.CountStudiedOn(l.cards, now))
	if err != nil {
		return err
	}

	session := study.NewSession(l.userID, b.sm2, l.clock, b.writer, b.bus, b.sessionOpts...)
	if mode.IsQuiz() {
		q, err := quiz.New(session, mode, queue.Cards, l.cards, nil)
		if err != nil {
			return err
		}
		l.session, l.quiz = session, q
		return nil
	}
	if err := session.Start(queue.Cards, mode); err != nil {
		return err
	}
	l.session = session
	return nil
}

// answer grades the current card of a study session
func (b *Bot) answer(l *learner, q models.Quality) (models.Card, error) {
	if !l.active() || l.quiz != nil {
		return models.Card{}, study.ErrNotInProgress
	}
	updated, _, err := l.session.Answer(q)
	if err != nil {
		return models.Card{}, err
	}
	l.replaceCard(updated)
	return updated, nil
}

// answerQuiz grades reply against the current quiz question
func (b *Bot) answerQuiz(l *learner, reply string) (quiz.Answer, error) {
	if l.quiz == nil || !l.active() {
		return quiz.Answer{}, study.ErrNotInProgress
	}
	a, err := l.quiz.Answer(reply)
	if err != nil {
		return quiz.Answer{}, err
	}
	l.replaceCard(a.Card)
	return a, nil
}

// finish stores a completed quiz and returns the final session stats
func (b *Bot) finish(ctx context.Context, l *learner) (study.Stats, error) {
	if l.session == nil {
		return study.Stats{}, study.ErrNotInProgress
	}
	var err error
	if l.quiz != nil && b.stores.Quizzes != nil {
		_, err = l.quiz.Finish(ctx, b.stores.Quizzes)
	} else {
		l.session.End()
	}
	stats := l.session.Stats()
	l.session, l.quiz = nil, nil
	l.cardMessageID = 0
	return stats, err
}

// reset puts every card back into the new state and clears the aggregates
func (b *Bot) reset(ctx context.Context, l *learner) error {
	if l.active() {
		l.session.End()
	}
	l.session, l.quiz = nil, nil

	if err := b.writer.Flush(ctx); err != nil {
		log.Warn().Err(err).Str("user_id", l.userID).Msg("flush before reset failed")
	}
	// a retried write from before the reset would bring the old state back
	b.writer.Discard(l.userID)
	now := l.clock.Now()
	if err := b.stores.Cards.ResetProgress(ctx, l.userID, now); err != nil {
		return err
	}
	if err := b.stores.Progress.DeleteProgress(ctx, l.userID); err != nil {
		return err
	}
	for i := range l.cards {
		l.cards[i].ResetScheduling(now)
		l.cards[i].UpdatedAt = now
	}

	goals := l.stats.Progress().Goals
	l.detach()
	l.stats = progress.NewAggregator(l.userID, nil, nil, l.clock, b.writer, b.config.Achievements)
	l.stats.SetGoals(goals)
	l.detach = l.stats.Attach(b.bus)
	return nil
}

// reload refreshes the card cache, e.g. after an import
func (b *Bot) reload(ctx context.Context, l *learner) error {
	if err := b.writer.Flush(ctx); err != nil {
		return fmt.Errorf("pending writes: %w", err)
	}
	cards, err := b.stores.Cards.LoadCards(ctx, l.userID)
	if err != nil {
		return err
	}
	l.cards = cards
	return nil
}

func (l *learner) replaceCard(c models.Card) {
	for i := range l.cards {
		if l.cards[i].ID == c.ID {
			l.cards[i] = c
			return
		}
	}
	l.cards = append(l.cards, c)
}

func (l *learner) summary(sm *spaced_repetition.SM2) spaced_repetition.DueSummary {
	return sm.Summarize(l.cards, l.clock.Now())
}
