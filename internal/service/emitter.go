package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event names.
const (
	EventBlockCreated  = "block:created"
	EventBlockRealized = "block:realized"
	EventBlockDeleted  = "block:deleted"
	EventAliasUpdated  = "alias:updated"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from whoever listens
// ─────────────────────────────────────────────────────────────

// EventEmitter receives lifecycle events from the services.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to a logger.
type LogEmitter struct {
	Logger logrus.FieldLogger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.WithField("event", event).WithField("data", data).Info("event")
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded events with the given name.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
