package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus()

	var all, answered []Type
	bus.Subscribe(func(e Event) { all = append(all, e.EventType()) })
	bus.Subscribe(func(e Event) { answered = append(answered, e.EventType()) }, TypeCardAnswered)

	bus.Publish(SessionStarted{SessionID: "s1"})
	bus.Publish(CardAnswered{SessionID: "s1"})
	bus.Publish(SessionEnded{SessionID: "s1"})

	assert.Equal(t, []Type{TypeSessionStarted, TypeCardAnswered, TypeSessionEnded}, all)
	assert.Equal(t, []Type{TypeCardAnswered}, answered)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	bus.Publish(SessionStarted{})
	unsubscribe()
	bus.Publish(SessionStarted{})

	assert.Equal(t, 1, count)
}

func TestBus_NilBusDropsEvents(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(SessionEnded{}) })
}
