// Package events provides the append-only log of world events.
// Every item transition lands here so it can be persisted and replayed to observers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a world event.
type EventType string

const (
	EventTypeItemCreated      EventType = "ITEM_CREATED"
	EventTypeItemPlaced       EventType = "ITEM_PLACED"
	EventTypeItemThrown       EventType = "ITEM_THROWN"
	EventTypeItemPickedUp     EventType = "ITEM_PICKED_UP"
	EventTypeItemHidden       EventType = "ITEM_HIDDEN"
	EventTypeItemUnhidden     EventType = "ITEM_UNHIDDEN"
	EventTypeItemFade         EventType = "ITEM_FADE"
	EventTypeItemRespawn      EventType = "ITEM_RESPAWN"
	EventTypeItemDeleted      EventType = "ITEM_DELETED"
	EventTypeInventoryChanged EventType = "INVENTORY_CHANGED"
	EventTypeMissionEnded     EventType = "MISSION_ENDED"
)

// GameEvent represents an immutable record of something that happened in the world.
type GameEvent struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	SimTime   time.Duration `json:"sim_time"` // Scheduler clock when the event happened
	Type      EventType     `json:"type"`
	ActorID   string        `json:"actor_id"`  // Who performed the action
	TargetID  string        `json:"target_id"` // Object affected (optional)
	Payload   interface{}   `json:"payload"`   // Event-specific data
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of world events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
	onError   func(GameEvent, error)
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// OnPersistError installs a callback for persister failures.
func (el *EventLog) OnPersistError(fn func(GameEvent, error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// Append adds a new event to the log. Missing ID and Timestamp are filled in.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	persister, onError := el.persister, el.onError
	el.mu.Unlock()

	if persister != nil {
		if err := persister.Append(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
	return event
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of the given type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetByTarget returns all events affecting a specific object.
func (el *EventLog) GetByTarget(targetID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.TargetID == targetID {
			result = append(result, e)
		}
	}
	return result
}

// Since returns a copy of the events appended after the first n.
func (el *EventLog) Since(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n >= len(el.events) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]GameEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// Len returns the number of events in the log.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Replay returns a copy of the full history of events.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
