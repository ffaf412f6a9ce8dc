// Package progress implements the ProgressBus (component F): a
// non-blocking, drop-on-full event channel from the pipeline to a single
// external listener (spec.md §4.6).
package progress

import "perspectivelens/internal/core"

// Status is the lifecycle state of one progress step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Event is one progress update.
type Event struct {
	StageID core.StageID
	Step    string
	Status  Status
	Message string
	Percent int
}

// defaultCapacity bounds the channel so a stalled listener cannot make the
// pipeline block; new events are dropped once it fills, never queued
// unboundedly.
const defaultCapacity = 64

// Bus is a single-writer event channel. The pipeline is the sole producer;
// at most one goroutine should call Publish for a given Bus.
type Bus struct {
	events chan Event
}

// NewBus returns a Bus with the default drop-on-full capacity.
func NewBus() *Bus {
	return &Bus{events: make(chan Event, defaultCapacity)}
}

// Events exposes the read side of the bus for a listener to range over.
func (b *Bus) Events() <-chan Event {
	return b.events
}

// Publish sends e to the listener, dropping it silently if the channel is
// full rather than blocking the pipeline.
func (b *Bus) Publish(e Event) {
	select {
	case b.events <- e:
	default:
	}
}

// Close closes the event channel. Callers must ensure no further Publish
// calls occur afterward.
func (b *Bus) Close() {
	close(b.events)
}
