// Package scheduler runs the periodic jobs: study reminders and retrying
// writes that could not reach the store.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/internal/spaced_repetition"
	"github.com/example/luxcards/pkg/models"
)

// Default quiet hours, reminders are only sent from start to end inclusive
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 21
)

// Notifier sends a reminder about due cards
type Notifier interface {
	SendReminder(ctx context.Context, settings models.Settings, due int) error
}

type SettingsSource interface {
	ListReminderEnabled(ctx context.Context) ([]models.Settings, error)
}

type CardSource interface {
	LoadCards(ctx context.Context, userID string) ([]models.Card, error)
}

// Flusher retries pending writes
type Flusher interface {
	Flush(ctx context.Context) error
	Pending() int
}

// Config holds the job timings
type Config struct {
	NotificationStartHour int           `yaml:"notification_start_hour"`
	NotificationEndHour   int           `yaml:"notification_end_hour"`
	FlushInterval         time.Duration `yaml:"flush_interval"`
	JobTimeout            time.Duration `yaml:"job_timeout"`
}

// DefaultConfig returns the production timings
func DefaultConfig() Config {
	return Config{
		NotificationStartHour: DefaultNotificationStartHour,
		NotificationEndHour:   DefaultNotificationEndHour,
		FlushInterval:         time.Minute,
		JobTimeout:            time.Minute,
	}
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	settings  SettingsSource
	cards     CardSource
	flusher   Flusher
	clock     clock.Clock
	cfg       Config
}

// New creates a new scheduler instance. flusher may be nil.
func New(notifier Notifier, settings SettingsSource, cards CardSource, flusher Flusher, clk clock.Clock, cfg Config) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		notifier:  notifier,
		settings:  settings,
		cards:     cards,
		flusher:   flusher,
		clock:     clk,
		cfg:       cfg,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if err := s.register(); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) register() error {
	if _, err := s.scheduler.Every(1).Hour().StartAt(s.nextHour()).Do(s.reminderJob); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	if s.flusher != nil && s.cfg.FlushInterval > 0 {
		if _, err := s.scheduler.Every(s.cfg.FlushInterval).Do(s.flushJob); err != nil {
			return fmt.Errorf("failed to schedule flush: %w", err)
		}
	}
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// nextHour aligns the reminder job on the top of the hour
func (s *Scheduler) nextHour() time.Time {
	return s.clock.Now().UTC().Truncate(time.Hour).Add(time.Hour)
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	timeout := s.cfg.JobTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (s *Scheduler) reminderJob() {
	ctx, cancel := s.jobContext()
	defer cancel()
	sent, err := s.CheckReminders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reminder check failed")
		return
	}
	log.Info().Int("sent", sent).Msg("reminder check done")
}

func (s *Scheduler) flushJob() {
	if s.flusher.Pending() == 0 {
		return
	}
	ctx, cancel := s.jobContext()
	defer cancel()
	if err := s.flusher.Flush(ctx); err != nil {
		log.Warn().Err(err).Int("pending", s.flusher.Pending()).Msg("sync still pending")
	}
}

// CheckReminders notifies every user whose reminder hour is now and who has
// due cards. It returns the number of reminders sent.
func (s *Scheduler) CheckReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	users, err := s.settings.ListReminderEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get users for notification: %w", err)
	}

	sent := 0
	for _, u := range users {
		local := now.In(userLocation(u, now.Location()))
		hour := local.Hour()
		if hour != u.ReminderHour {
			continue
		}
		if hour < s.cfg.NotificationStartHour || hour > s.cfg.NotificationEndHour {
			log.Debug().Str("user_id", u.UserID).Int("hour", hour).Msg("outside notification hours, skipping")
			continue
		}

		due, err := s.dueCount(ctx, u, now)
		if err != nil {
			log.Error().Err(err).Str("user_id", u.UserID).Msg("failed to count due cards")
			continue
		}
		if due == 0 {
			continue
		}
		if err := s.notifier.SendReminder(ctx, u, due); err != nil {
			log.Error().Err(err).Str("user_id", u.UserID).Msg("failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// RunManualCheck sends a reminder to one user regardless of the hour
func (s *Scheduler) RunManualCheck(ctx context.Context, settings models.Settings) (int, error) {
	due, err := s.dueCount(ctx, settings, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if due == 0 {
		return 0, nil
	}
	return due, s.notifier.SendReminder(ctx, settings, due)
}

// dueCount is the number of due reviews, capped by the daily review limit
func (s *Scheduler) dueCount(ctx context.Context, u models.Settings, now time.Time) (int, error) {
	cards, err := s.cards.LoadCards(ctx, u.UserID)
	if err != nil {
		return 0, err
	}
	due := len(spaced_repetition.GetCardsForReview(cards, now))
	if u.ReviewsPerDay > 0 && due > u.ReviewsPerDay {
		due = u.ReviewsPerDay
	}
	return due, nil
}

func userLocation(u models.Settings, fallback *time.Location) *time.Location {
	if u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID).Str("timezone", u.Timezone).Msg("unknown timezone")
		return fallback
	}
	return loc
}
