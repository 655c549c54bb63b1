// Package events provides the append-only record of everything that happened
// in a match. The engine writes here; persistence and observers read from it.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a match event.
type EventType string

const (
	EventTypePlayerJoined  EventType = "PLAYER_JOINED"
	EventTypePlayerLeft    EventType = "PLAYER_LEFT"
	EventTypeMatchStarted  EventType = "MATCH_STARTED"
	EventTypeNightAction   EventType = "NIGHT_ACTION"
	EventTypeVoteCast      EventType = "VOTE_CAST"
	EventTypeElimination   EventType = "ELIMINATION"
	EventTypeCureProgress  EventType = "CURE_PROGRESS"
	EventTypeNightResolved EventType = "NIGHT_RESOLVED"
	EventTypeDayResolved   EventType = "DAY_RESOLVED"
	EventTypeMatchEnded    EventType = "MATCH_ENDED"
)

// MatchEvent represents an immutable record of an action in a match.
type MatchEvent struct {
	ID        string      `json:"id"`
	MatchID   string      `json:"match_id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // Who performed the action
	TargetID  string      `json:"target_id"` // Who was affected (optional)
	Payload   interface{} `json:"payload"`   // Event-specific data
	Round     int         `json:"round"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event MatchEvent) error
}

// EventLog is the in-memory append-only log of match events.
type EventLog struct {
	mu        sync.RWMutex
	events    []MatchEvent
	persister EventPersister
	queue     chan MatchEvent
	closed    bool
}

// NewEventLog creates a new event log. The persister may be nil, in which
// case events live only in memory (tests do this).
func NewEventLog(persister EventPersister) *EventLog {
	el := &EventLog{
		events:    make([]MatchEvent, 0),
		persister: persister,
	}
	if persister != nil {
		// A single worker drains the queue, so persisted order is append order.
		el.queue = make(chan MatchEvent, 256)
		go el.drain()
	}
	return el
}

func (el *EventLog) drain() {
	for e := range el.queue {
		_ = el.persister.Append(e)
	}
}

// Append adds a new event to the log. Events are immutable once appended.
// Persistence happens off the caller's goroutine, in append order.
func (el *EventLog) Append(event MatchEvent) {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	if el.queue != nil && !el.closed {
		el.queue <- event
	}
	el.mu.Unlock()
}

// Close stops the write-through worker once queued events are flushed.
// Events appended afterwards stay in memory only.
func (el *EventLog) Close() {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.queue != nil && !el.closed {
		el.closed = true
		close(el.queue)
	}
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []MatchEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []MatchEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByRound returns all events that occurred during a specific round.
func (el *EventLog) GetByRound(round int) []MatchEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []MatchEvent
	for _, e := range el.events {
		if e.Round == round {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full event history in append order.
func (el *EventLog) Replay() []MatchEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]MatchEvent, len(el.events))
	copy(out, el.events)
	return out
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
