package bugline

import "github.com/google/uuid"

// Aggregate is the interface satisfied by aggregate roots.
// An aggregate is the unit of consistency: every domain-significant
// mutation appends exactly one event to its pending queue as its last
// effect, and the unit of work drains that queue after the mutation's
// transaction has had its chance to commit.
type Aggregate interface {
	// AggregateID returns the unique identifier for this aggregate instance.
	AggregateID() uuid.UUID

	// PendingEvents returns the events appended by mutations that have not
	// been drained yet, in append (FIFO) order.
	PendingEvents() []Event

	// PopEvent removes and returns the oldest pending event.
	// The second return is false when the queue is empty.
	PopEvent() (Event, bool)

	// ClearPendingEvents discards all pending events.
	ClearPendingEvents()
}

// AggregateBase provides the pending-event queue shared by all aggregate
// roots. Embed it in aggregate types; the embedding type supplies
// AggregateID.
//
// The queue is empty on load or creation and is populated only by
// successful mutating operations. Draining is destructive: an event popped
// once is never yielded again, even if the queue is drained twice within
// the same unit-of-work scope.
type AggregateBase struct {
	pending []Event
}

// Record appends an event describing a completed mutation to the pending
// queue. Mutating methods call this as their last effect.
func (a *AggregateBase) Record(ev Event) {
	a.pending = append(a.pending, ev)
}

// PendingEvents returns the pending events in FIFO order.
// The returned slice is a copy; draining goes through PopEvent.
func (a *AggregateBase) PendingEvents() []Event {
	out := make([]Event, len(a.pending))
	copy(out, a.pending)
	return out
}

// PopEvent removes and returns the oldest pending event.
func (a *AggregateBase) PopEvent() (Event, bool) {
	if len(a.pending) == 0 {
		return nil, false
	}
	ev := a.pending[0]
	a.pending = a.pending[1:]
	return ev, true
}

// LatestEvent returns the most recently recorded pending event without
// removing it. It is what the event-store projection captures.
func (a *AggregateBase) LatestEvent() (Event, bool) {
	if len(a.pending) == 0 {
		return nil, false
	}
	return a.pending[len(a.pending)-1], true
}

// HasPendingEvents reports whether any events are waiting to be drained.
func (a *AggregateBase) HasPendingEvents() bool {
	return len(a.pending) > 0
}

// ClearPendingEvents discards all pending events.
func (a *AggregateBase) ClearPendingEvents() {
	a.pending = nil
}
