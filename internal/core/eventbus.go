package core

import (
	"sync"

	"rgblight-controller/internal/light"
)

// EventType defines the type of event being published.
type EventType string

const (
	PowerChangedEvent      EventType = "PowerChanged"
	ColorChangedEvent      EventType = "ColorChanged"
	BrightnessChangedEvent EventType = "BrightnessChanged"
	PatternChangedEvent    EventType = "PatternChanged"
	ScheduleChangedEvent   EventType = "ScheduleChanged"
	BrokerConnectedEvent   EventType = "BrokerConnected"

	// StateChangedEvent carries a light.Snapshot whenever the observable
	// light state differs from the last one published. State has already
	// been updated when it is delivered.
	StateChangedEvent EventType = "StateChanged"
)

// Event is the envelope for all system events.
type Event struct {
	Type    EventType
	Payload interface{}
}

// PowerPayload accompanies PowerChangedEvent.
type PowerPayload struct {
	On bool
}

// ColorPayload accompanies ColorChangedEvent.
type ColorPayload struct {
	Color light.Color
}

// BrightnessPayload accompanies BrightnessChangedEvent. Raw is the commanded
// text when the change came from a property command.
type BrightnessPayload struct {
	Value uint8
	Raw   string
}

// PatternPayload accompanies PatternChangedEvent; Running is empty when no
// pattern runs.
type PatternPayload struct {
	Running string
}

// ConnectionPayload accompanies BrokerConnectedEvent.
type ConnectionPayload struct {
	Connected bool
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// EventBus handles pub/sub messaging for the application.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
}

// NewEventBus creates a new EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe returns a channel that receives events of the given types.
func (eb *EventBus) Subscribe(eventTypes ...EventType) Subscriber {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(Subscriber, 100)
	for _, t := range eventTypes {
		eb.subscribers[t] = append(eb.subscribers[t], ch)
	}

	return ch
}

// Unsubscribe removes a subscriber channel.
func (eb *EventBus) Unsubscribe(ch Subscriber, eventTypes ...EventType) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, t := range eventTypes {
		subs := eb.subscribers[t]
		for i, sub := range subs {
			if sub == ch {
				eb.subscribers[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish distributes an event to all subscribers of its type. It never
// blocks: a subscriber with a full buffer misses the event.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, sub := range eb.subscribers[event.Type] {
		select {
		case sub <- event:
		default:
		}
	}
}
