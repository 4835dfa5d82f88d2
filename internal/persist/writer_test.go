package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/luxcards/internal/events"
	"github.com/example/luxcards/pkg/models"
)

var errOffline = errors.New("store offline")

type fakeStore struct {
	mu       sync.Mutex
	failing  bool
	cards    map[string]models.Card
	progress map[string]*models.UserProgress
	activity map[string]models.DailyActivity
	writes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cards:    map[string]models.Card{},
		progress: map[string]*models.UserProgress{},
		activity: map[string]models.DailyActivity{},
	}
}

func (f *fakeStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *fakeStore) SaveCard(_ context.Context, c models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failing {
		return errOffline
	}
	f.cards[c.ID] = c
	return nil
}

func (f *fakeStore) SaveProgress(_ context.Context, p *models.UserProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failing {
		return errOffline
	}
	f.progress[p.UserID] = p
	return nil
}

func (f *fakeStore) Save(_ context.Context, a models.DailyActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failing {
		return errOffline
	}
	f.activity[a.UserID+"/"+a.Date] = a
	return nil
}

func (f *fakeStore) card(id string) (models.Card, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	return c, ok
}

func testConfig() Config {
	return Config{QueueSize: 16, Attempts: 2, WriteTimeout: time.Second}
}

func startWriter(t *testing.T, store *fakeStore, bus *events.Bus) *Writer {
	t.Helper()
	w := NewWriter(store, store, store, bus, testConfig())
	w.Start()
	t.Cleanup(func() {
		store.setFailing(false)
		_ = w.Close(context.Background())
	})
	return w
}

func TestWriter_WritesInBackground(t *testing.T) {
	store := newFakeStore()
	w := startWriter(t, store, nil)

	c := models.NewCard("u1", "d1", "Moien", "Hello", time.Now())
	w.PersistCard("u1", c)
	w.PersistProgress(&models.UserProgress{UserID: "u1", CardsStudied: 1})
	w.PersistActivity(models.DailyActivity{UserID: "u1", Date: "2025-06-05", CardsStudied: 1})

	require.NoError(t, w.Flush(context.Background()))
	got, ok := store.card(c.ID)
	require.True(t, ok)
	assert.Equal(t, "Moien", got.Front)
	assert.Equal(t, 1, store.progress["u1"].CardsStudied)
	assert.Equal(t, 1, store.activity["u1/2025-06-05"].CardsStudied)
	assert.Equal(t, 0, w.Pending())
}

func TestWriter_FailureKeepsPendingAndRecovers(t *testing.T) {
	store := newFakeStore()
	bus := events.NewBus()
	var mu sync.Mutex
	var seen []events.Event
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	}, events.TypeSyncFailed, events.TypeSyncRecovered)
	w := startWriter(t, store, bus)

	store.setFailing(true)
	c := models.NewCard("u1", "d1", "Merci", "Thanks", time.Now())
	w.PersistCard("u1", c)

	assert.ErrorIs(t, w.Flush(context.Background()), errOffline)
	assert.Equal(t, 1, w.Pending())
	assert.True(t, w.PendingFor("u1"))
	assert.False(t, w.PendingFor("u2"))

	store.setFailing(false)
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 0, w.Pending())
	_, ok := store.card(c.ID)
	assert.True(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	failed, ok := seen[0].(events.SyncFailed)
	require.True(t, ok)
	assert.Equal(t, "u1", failed.UserID)
	assert.Equal(t, KindCard, failed.Kind)
	assert.Equal(t, events.TypeSyncRecovered, seen[len(seen)-1].EventType())
}

func TestWriter_RetriesWithinAttempts(t *testing.T) {
	store := newFakeStore()
	w := startWriter(t, store, nil)

	store.setFailing(true)
	w.PersistProgress(&models.UserProgress{UserID: "u1"})
	_ = w.Flush(context.Background())

	store.mu.Lock()
	// two attempts by the worker plus one by the flush
	assert.Equal(t, 3, store.writes)
	store.mu.Unlock()
}

func TestWriter_LastWriteWins(t *testing.T) {
	store := newFakeStore()
	w := startWriter(t, store, nil)

	c := models.NewCard("u1", "d1", "Jo", "Yes", time.Now())
	store.setFailing(true)
	c.ReviewCount = 1
	w.PersistCard("u1", c)
	c.ReviewCount = 2
	w.PersistCard("u1", c)
	_ = w.Flush(context.Background())
	assert.Equal(t, 1, w.Pending())

	store.setFailing(false)
	require.NoError(t, w.Flush(context.Background()))
	got, _ := store.card(c.ID)
	assert.Equal(t, 2, got.ReviewCount)
}

func TestWriter_NewerSuccessClearsOlderPending(t *testing.T) {
	store := newFakeStore()
	w := startWriter(t, store, nil)

	c := models.NewCard("u1", "d1", "Nee", "No", time.Now())
	store.setFailing(true)
	c.ReviewCount = 1
	w.PersistCard("u1", c)
	_ = w.Flush(context.Background())
	require.Equal(t, 1, w.Pending())

	store.setFailing(false)
	c.ReviewCount = 3
	w.PersistCard("u1", c)
	require.NoError(t, w.Flush(context.Background()))

	assert.Equal(t, 0, w.Pending())
	got, _ := store.card(c.ID)
	assert.Equal(t, 3, got.ReviewCount)
}

func TestWriter_DiscardDropsOlderWrites(t *testing.T) {
	store := newFakeStore()
	w := startWriter(t, store, nil)

	old := models.NewCard("u1", "d1", "Moien", "Hello", time.Now())
	other := models.NewCard("u2", "d1", "Äddi", "Bye", time.Now())
	store.setFailing(true)
	old.ReviewCount = 1
	w.PersistCard("u1", old)
	w.PersistProgress(&models.UserProgress{UserID: "u1", CardsStudied: 1})
	w.PersistCard("u2", other)
	_ = w.Flush(context.Background())
	require.Equal(t, 3, w.Pending())

	assert.Equal(t, 2, w.Discard("u1"))
	assert.False(t, w.PendingFor("u1"))
	assert.True(t, w.PendingFor("u2"))

	store.setFailing(false)
	require.NoError(t, w.Flush(context.Background()))
	_, ok := store.card(old.ID)
	assert.False(t, ok, "discarded card write must not reach the store")
	_, ok = store.card(other.ID)
	assert.True(t, ok)

	// writes after the discard go through
	fresh := models.NewCard("u1", "d1", "Merci", "Thanks", time.Now())
	w.PersistCard("u1", fresh)
	require.NoError(t, w.Flush(context.Background()))
	_, ok = store.card(fresh.ID)
	assert.True(t, ok)
	store.mu.Lock()
	assert.Nil(t, store.progress["u1"])
	store.mu.Unlock()
}

func TestWriter_ProgressSnapshotIsIsolated(t *testing.T) {
	store := newFakeStore()
	w := startWriter(t, store, nil)

	p := &models.UserProgress{UserID: "u1", CardsStudied: 5}
	w.PersistProgress(p)
	p.CardsStudied = 99
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 5, store.progress["u1"].CardsStudied)
}

func TestWriter_CloseDrainsQueue(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store, store, store, nil, testConfig())
	w.Start()

	for i := 0; i < 10; i++ {
		w.PersistCard("u1", models.NewCard("u1", "d1", "Wuert", "Word", time.Now()))
	}
	require.NoError(t, w.Close(context.Background()))
	assert.Len(t, store.cards, 10)

	assert.ErrorIs(t, w.Flush(context.Background()), ErrClosed)
	w.PersistCard("u1", models.NewCard("u1", "d1", "Spéit", "Late", time.Now()))
	assert.Len(t, store.cards, 10)
}
