// Package events delivers fire-and-forget notifications from the session
// controller to whatever UI is attached.
package events

import (
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/google/uuid"
)

// Event names
const (
	CaptureTaken     = "capture-taken"
	RecordingStarted = "recording-started"
	RecordingStopped = "recording-stopped"
)

// Event is the envelope delivered to subscribers
type Event struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// NewEvent stamps a new event
func NewEvent(name string, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: payload,
		Time:    time.Now(),
	}
}

// Sink receives events. Emit must not block the caller for long.
type Sink interface {
	Emit(name string, payload any)
}

// Multi fans an event out to several sinks
type Multi []Sink

// Emit forwards to every sink in order
func (m Multi) Emit(name string, payload any) {
	for _, s := range m {
		if s != nil {
			s.Emit(name, payload)
		}
	}
}

// LogSink writes events to the log
type LogSink struct{}

// Emit logs the event at info level
func (LogSink) Emit(name string, payload any) {
	logger.WithComponent("events").Info().
		Str("event", name).
		Interface("payload", payload).
		Msg("Event emitted")
}

// Discard drops every event
type Discard struct{}

// Emit does nothing
func (Discard) Emit(string, any) {}
