package auditlog

import "time"

// QueryFilter specifies criteria for querying audit events.
type QueryFilter struct {
	Scope     string
	SessionID string
	Kinds     []EventKind
	Limit     int
	Before    time.Time
	After     time.Time
}

// Logger is the interface for emitting and querying audit events.
type Logger interface {
	Emit(event Event)
	Query(filter QueryFilter) ([]Event, error)
	Close() error
}

// EventOption is a functional option for configuring optional Event fields.
type EventOption func(*Event)

// WithSession sets the SessionID field on the event.
func WithSession(id string) EventOption {
	return func(e *Event) { e.SessionID = id }
}

// WithPhase sets the Phase field on the event.
func WithPhase(phase int) EventOption {
	return func(e *Event) { e.Phase = phase }
}

// WithDetail sets the Detail field on the event.
func WithDetail(detail string) EventOption {
	return func(e *Event) { e.Detail = detail }
}

// WithLevel sets the Level field on the event (info, warn, error).
func WithLevel(level string) EventOption {
	return func(e *Event) { e.Level = level }
}

// NewEvent builds an event of kind in scope with opts applied.
func NewEvent(kind EventKind, scope, message string, opts ...EventOption) Event {
	e := Event{Kind: kind, Scope: scope, Message: message}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type nopLogger struct{}

// NopLogger returns a Logger that discards all events.
func NopLogger() Logger {
	return &nopLogger{}
}

func (n *nopLogger) Emit(_ Event) {}

func (n *nopLogger) Query(_ QueryFilter) ([]Event, error) {
	return nil, nil
}

func (n *nopLogger) Close() error {
	return nil
}
