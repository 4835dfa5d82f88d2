// Package events is a small typed publish/subscribe bus used to fan session
// activity out to the progress aggregator and to front ends.
package events

import (
	"sync"
	"time"

	"github.com/example/luxcards/pkg/models"
)

// Type identifies an event kind
type Type string

const (
	TypeSessionStarted  Type = "session_started"
	TypeCardAnswered    Type = "card_answered"
	TypeAccuracyChanged Type = "accuracy_changed"
	TypeSessionEnded    Type = "session_ended"
	TypeSyncFailed      Type = "sync_failed"
	TypeSyncRecovered   Type = "sync_recovered"
)

// Event is implemented by every payload published on the bus
type Event interface {
	EventType() Type
}

type SessionStarted struct {
	SessionID string
	UserID    string
	Mode      models.StudyMode
	CardCount int
	StartedAt time.Time
}

type CardAnswered struct {
	SessionID string
	UserID    string
	Card      models.Card // state after scheduling
	Result    models.StudyResult
}

type AccuracyChanged struct {
	SessionID string
	UserID    string
	Correct   int
	Total     int
	Accuracy  float64
}

// SessionEnded is published once per session, including early termination.
type SessionEnded struct {
	SessionID string
	UserID    string
	Mode      models.StudyMode
	Total     int
	Correct   int
	Accuracy  float64
	Duration  time.Duration
	Results   []models.StudyResult
	EndedAt   time.Time
	Early     bool
}

// SyncFailed reports a background write that did not reach the store.
type SyncFailed struct {
	UserID  string
	Kind    string
	Key     string
	Err     error
	Pending int
}

// SyncRecovered reports that every pending write has been stored.
type SyncRecovered struct {
	Kind string
	Key  string
}

func (SessionStarted) EventType() Type  { return TypeSessionStarted }
func (CardAnswered) EventType() Type    { return TypeCardAnswered }
func (AccuracyChanged) EventType() Type { return TypeAccuracyChanged }
func (SessionEnded) EventType() Type    { return TypeSessionEnded }
func (SyncFailed) EventType() Type      { return TypeSyncFailed }
func (SyncRecovered) EventType() Type   { return TypeSyncRecovered }

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id      uint64
	types   map[Type]bool
	handler Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for the given types (all types when none are given)
// and returns a function that removes the subscription.
func (b *Bus) Subscribe(h Handler, types ...Type) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := subscription{id: b.nextID, handler: h}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	b.subs = append(b.subs, sub)
	id := sub.id
	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every matching subscriber. A nil bus drops events.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.types == nil || s.types[e.EventType()] {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(e)
	}
}
