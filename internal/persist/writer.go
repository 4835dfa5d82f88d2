// Package persist writes cards and progress to the store in the background.
// Writes are optimistic: callers never wait, failed writes stay pending and
// are retried by Flush, newest version first.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/luxcards/internal/events"
	"github.com/example/luxcards/pkg/models"
)

// ErrClosed is returned by Flush after Close
var ErrClosed = errors.New("persist: writer closed")

const (
	KindCard     = "card"
	KindProgress = "progress"
	KindActivity = "activity"
)

type CardStore interface {
	SaveCard(ctx context.Context, card models.Card) error
}

type ProgressStore interface {
	SaveProgress(ctx context.Context, p *models.UserProgress) error
}

type ActivityStore interface {
	Save(ctx context.Context, a models.DailyActivity) error
}

// Config tunes the writer
type Config struct {
	QueueSize    int           `yaml:"queue_size"`
	Attempts     int           `yaml:"attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		QueueSize:    256,
		Attempts:     3,
		RetryDelay:   200 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

type job struct {
	kind   string
	key    string
	userID string
	seq    uint64
	write  func(ctx context.Context) error
}

// request is either a write or a flush barrier
type request struct {
	job   *job
	flush chan error
}

// Writer owns the single goroutine that talks to the store
type Writer struct {
	cards    CardStore
	progress ProgressStore
	activity ActivityStore
	bus      *events.Bus
	cfg      Config

	sendMu sync.RWMutex
	closed bool
	queue  chan request
	done   chan struct{}

	mu      sync.Mutex
	seq     uint64
	pending map[string]*job
	// discarded holds, per user, the last seq dropped by Discard
	discarded map[string]uint64
}

// NewWriter creates a writer. Call Start before persisting anything.
func NewWriter(cards CardStore, progress ProgressStore, activity ActivityStore, bus *events.Bus, cfg Config) *Writer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Writer{
		cards:     cards,
		progress:  progress,
		activity:  activity,
		bus:       bus,
		cfg:       cfg,
		queue:     make(chan request, cfg.QueueSize),
		done:      make(chan struct{}),
		pending:   make(map[string]*job),
		discarded: make(map[string]uint64),
	}
}

// Start launches the worker goroutine
func (w *Writer) Start() {
	go w.run()
}

// Close stops accepting writes, drains the queue, retries pending writes once
// and waits for the worker to exit or ctx to expire.
func (w *Writer) Close(ctx context.Context) error {
	w.sendMu.Lock()
	if w.closed {
		w.sendMu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.sendMu.Unlock()

	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := w.Pending(); n > 0 {
		return fmt.Errorf("persist: %d writes still pending", n)
	}
	return nil
}

// PersistCard queues a card write
func (w *Writer) PersistCard(userID string, c models.Card) {
	w.enqueue(KindCard, c.ID, userID, func(ctx context.Context) error {
		return w.cards.SaveCard(ctx, c)
	})
}

// PersistProgress queues a progress write
func (w *Writer) PersistProgress(p *models.UserProgress) {
	snapshot := p.Clone()
	w.enqueue(KindProgress, p.UserID, p.UserID, func(ctx context.Context) error {
		return w.progress.SaveProgress(ctx, snapshot)
	})
}

// PersistActivity queues a daily activity write
func (w *Writer) PersistActivity(a models.DailyActivity) {
	w.enqueue(KindActivity, a.UserID+"/"+a.Date, a.UserID, func(ctx context.Context) error {
		return w.activity.Save(ctx, a)
	})
}

// Flush waits for every queued write and then retries the pending ones.
// It returns an error when something is still pending afterwards.
func (w *Writer) Flush(ctx context.Context) error {
	reply := make(chan error, 1)

	w.sendMu.RLock()
	if w.closed {
		w.sendMu.RUnlock()
		return ErrClosed
	}
	select {
	case w.queue <- request{flush: reply}:
	case <-ctx.Done():
		w.sendMu.RUnlock()
		return ctx.Err()
	}
	w.sendMu.RUnlock()

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of writes waiting for a retry
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// PendingFor reports whether userID has unsynced writes
func (w *Writer) PendingFor(userID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, j := range w.pending {
		if j.userID == userID {
			return true
		}
	}
	return false
}

// Discard drops every write of userID queued or pending so far. Writes made
// after it returns are kept. It returns how many pending writes were dropped.
func (w *Writer) Discard(userID string) int {
	w.mu.Lock()
	w.discarded[userID] = w.seq
	dropped := 0
	for key, j := range w.pending {
		if j.userID == userID {
			delete(w.pending, key)
			dropped++
		}
	}
	empty := len(w.pending) == 0
	w.mu.Unlock()

	if dropped > 0 {
		log.Info().Str("user_id", userID).Int("dropped", dropped).Msg("pending writes discarded")
		if empty {
			w.bus.Publish(events.SyncRecovered{Kind: "discard", Key: userID})
		}
	}
	return dropped
}

// stale reports whether j was queued before a Discard of its user
func (w *Writer) stale(j *job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return j.seq <= w.discarded[j.userID]
}

func (w *Writer) enqueue(kind, key, userID string, write func(ctx context.Context) error) {
	w.mu.Lock()
	w.seq++
	j := &job{kind: kind, key: kind + ":" + key, userID: userID, seq: w.seq, write: write}
	w.mu.Unlock()

	w.sendMu.RLock()
	defer w.sendMu.RUnlock()
	if w.closed {
		log.Error().Str("kind", kind).Str("key", key).Msg("write after close dropped")
		return
	}
	select {
	case w.queue <- request{job: j}:
	default:
		// queue is full, park it until the next flush
		w.markPending(j, errors.New("write queue full"))
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for r := range w.queue {
		if r.flush != nil {
			r.flush <- w.flushPending()
			continue
		}
		w.handle(r.job)
	}
	_ = w.flushPending()
}

func (w *Writer) handle(j *job) {
	var err error
	for attempt := 1; attempt <= w.cfg.Attempts; attempt++ {
		if w.stale(j) {
			return
		}
		if err = w.write(j); err == nil {
			w.markDone(j)
			return
		}
		if attempt < w.cfg.Attempts && w.cfg.RetryDelay > 0 {
			time.Sleep(w.cfg.RetryDelay * time.Duration(attempt))
		}
	}
	w.markPending(j, err)
}

func (w *Writer) write(j *job) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	defer cancel()
	return j.write(ctx)
}

func (w *Writer) flushPending() error {
	w.mu.Lock()
	jobs := make([]*job, 0, len(w.pending))
	for _, j := range w.pending {
		jobs = append(jobs, j)
	}
	w.mu.Unlock()

	var firstErr error
	for _, j := range jobs {
		if w.stale(j) {
			continue
		}
		if err := w.write(j); err != nil {
			log.Warn().Err(err).Str("key", j.key).Msg("pending write still failing")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		w.markDone(j)
	}
	if n := w.Pending(); n > 0 {
		return fmt.Errorf("persist: %d writes pending: %w", n, firstErr)
	}
	return nil
}

// markPending keeps the newest failed version of each key
func (w *Writer) markPending(j *job, err error) {
	w.mu.Lock()
	if j.seq <= w.discarded[j.userID] {
		w.mu.Unlock()
		return
	}
	if cur, ok := w.pending[j.key]; !ok || cur.seq < j.seq {
		w.pending[j.key] = j
	}
	n := len(w.pending)
	w.mu.Unlock()

	log.Error().Err(err).Str("kind", j.kind).Str("key", j.key).Int("pending", n).Msg("write failed, sync pending")
	w.bus.Publish(events.SyncFailed{UserID: j.userID, Kind: j.kind, Key: j.key, Err: err, Pending: n})
}

// markDone clears the pending entry unless a newer version is waiting
func (w *Writer) markDone(j *job) {
	w.mu.Lock()
	cur, ok := w.pending[j.key]
	cleared := ok && cur.seq <= j.seq
	if cleared {
		delete(w.pending, j.key)
	}
	empty := len(w.pending) == 0
	w.mu.Unlock()

	if cleared && empty {
		log.Info().Str("key", j.key).Msg("all pending writes synced")
		w.bus.Publish(events.SyncRecovered{Kind: j.kind, Key: j.key})
	}
}
