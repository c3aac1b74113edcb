package log

import (
	"time"
)

// EventKind groups the events recorded during a run.
type EventKind string

const (
	EventKindRejection        EventKind = "rejection"
	EventKindSkip             EventKind = "skip"
	EventKindGeneratorFailure EventKind = "generator_failure"
)

// Event is one non-trade outcome of a simulation step.
type Event struct {
	// Timestamp is the simulated step time, not the wall clock.
	Timestamp time.Time
	// Symbol is empty for step-wide events such as generator failures.
	Symbol string
	Kind   EventKind
	// Reason is the rejection or skip reason code.
	Reason string
	Detail string
	// Fields contains optional structured key-value data.
	Fields map[string]string
}

// EventLog is the interface for storing run events.
type EventLog interface {
	// Record stores an event.
	Record(event Event) error
	// Events retrieves all stored events in insertion order.
	Events() ([]Event, error)
}
