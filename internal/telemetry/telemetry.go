// Package telemetry records diagnostic events locally. Nothing is sent over
// the network; events go to the structured log and an in-memory buffer.
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fulmenhq/metaguard/pkg/logger"
)

// Event is one recorded diagnostic.
type Event struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Message   string            `json:"message,omitempty"`
	Exception bool              `json:"exception"`
	Props     map[string]string `json:"props,omitempty"`
	Time      time.Time         `json:"time"`
}

// Sink buffers events. A disabled sink drops everything.
type Sink struct {
	mu      sync.Mutex
	enabled bool
	events  []Event
	now     func() time.Time
}

// New creates a sink.
func New(enabled bool) *Sink {
	return &Sink{enabled: enabled, now: time.Now}
}

// SendException implements conflict.Telemetry.
func (s *Sink) SendException(name, message string) {
	ev := s.record(Event{Name: name, Message: message, Exception: true})
	if ev != nil {
		logger.Warn("Telemetry exception", logger.String("event_id", ev.ID), logger.String("name", name), logger.String("message", message))
	}
}

// SendEvent records a named event with properties.
func (s *Sink) SendEvent(name string, props map[string]string) {
	ev := s.record(Event{Name: name, Props: props})
	if ev != nil {
		logger.Debug("Telemetry event", logger.String("event_id", ev.ID), logger.String("name", name))
	}
}

func (s *Sink) record(ev Event) *Event {
	if s == nil || !s.enabled {
		return nil
	}
	ev.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Time = s.now().UTC()
	s.events = append(s.events, ev)
	return &ev
}

// Events returns the recorded events in order.
func (s *Sink) Events() []Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
