package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luxcards/internal/clock"
	"github.com/example/luxcards/pkg/models"
)

type fakeSettings []models.Settings

func (f fakeSettings) ListReminderEnabled(context.Context) ([]models.Settings, error) {
	return f, nil
}

type fakeCards map[string][]models.Card

func (f fakeCards) LoadCards(_ context.Context, userID string) ([]models.Card, error) {
	if userID == "broken" {
		return nil, errors.New("db down")
	}
	return f[userID], nil
}

type sentReminder struct {
	userID string
	due    int
}

type recordingNotifier struct {
	sent []sentReminder
}

func (r *recordingNotifier) SendReminder(_ context.Context, s models.Settings, due int) error {
	r.sent = append(r.sent, sentReminder{s.UserID, due})
	return nil
}

type fakeFlusher struct {
	pending int
	flushes int
}

func (f *fakeFlusher) Flush(context.Context) error { f.flushes++; f.pending = 0; return nil }
func (f *fakeFlusher) Pending() int                { return f.pending }

// 07:00 UTC is 09:00 in Luxembourg during summer time
var now = time.Date(2025, 6, 5, 7, 0, 0, 0, time.UTC)

func dueCards(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.NewCard("x", "d", "Wuert", "Word", now.Add(-48*time.Hour))
		cards[i].ReviewCount = 1
		cards[i].NextReview = now.Add(-time.Hour)
	}
	return cards
}

func settings(userID, tz string, hour int) models.Settings {
	s := models.DefaultSettings(userID)
	s.ChatID = 1
	s.Timezone = tz
	s.ReminderHour = hour
	return s
}

func TestCheckReminders(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Luxembourg"); err != nil {
		t.Skip("tzdata not available")
	}

	capped := settings("capped", "Europe/Luxembourg", 9)
	capped.ReviewsPerDay = 5

	users := fakeSettings{
		settings("lux", "Europe/Luxembourg", 9),
		settings("utc", "UTC", 9), // 07:00 locally, not their hour
		settings("nothing-due", "Europe/Luxembourg", 9),
		settings("broken", "Europe/Luxembourg", 9),
		settings("early", "UTC", 7), // their hour, but before quiet hours end
		capped,
	}
	cards := fakeCards{
		"lux":         dueCards(3),
		"utc":         dueCards(3),
		"early":       dueCards(3),
		"capped":      dueCards(12),
		"nothing-due": {models.NewCard("nothing-due", "d", "Nei", "New", now)},
	}
	notifier := &recordingNotifier{}
	s := New(notifier, users, cards, nil, clock.NewManual(now), DefaultConfig())

	sent, err := s.CheckReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []sentReminder{{"lux", 3}, {"capped", 5}}, notifier.sent)
}

func TestRunManualCheck(t *testing.T) {
	notifier := &recordingNotifier{}
	s := New(notifier, fakeSettings{}, fakeCards{"u1": dueCards(2)}, nil, clock.NewManual(now), DefaultConfig())

	due, err := s.RunManualCheck(context.Background(), settings("u1", "UTC", 3))
	require.NoError(t, err)
	assert.Equal(t, 2, due)
	assert.Len(t, notifier.sent, 1)

	due, err = s.RunManualCheck(context.Background(), settings("u2", "UTC", 3))
	require.NoError(t, err)
	assert.Equal(t, 0, due)
	assert.Len(t, notifier.sent, 1)
}

func TestFlushJobOnlyRunsWhenPending(t *testing.T) {
	flusher := &fakeFlusher{}
	s := New(&recordingNotifier{}, fakeSettings{}, fakeCards{}, flusher, clock.NewManual(now), DefaultConfig())

	s.flushJob()
	assert.Equal(t, 0, flusher.flushes)

	flusher.pending = 3
	s.flushJob()
	assert.Equal(t, 1, flusher.flushes)
}

func TestRegisterJobs(t *testing.T) {
	s := New(&recordingNotifier{}, fakeSettings{}, fakeCards{}, &fakeFlusher{}, clock.NewManual(now), DefaultConfig())
	require.NoError(t, s.register())
	assert.Len(t, s.scheduler.Jobs(), 2)
	assert.Equal(t, time.Date(2025, 6, 5, 8, 0, 0, 0, time.UTC), s.nextHour())
}
