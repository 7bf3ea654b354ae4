package bugline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRecord is one immutable, append-only projection of a domain event.
// Records are created once per drained mutation and never updated or
// deleted; together they form the audit trail and the only feed read-model
// projections may rebuild from.
type EventRecord struct {
	// ID is the record's own unique identifier.
	ID uuid.UUID

	// CreateDT is when the record was built.
	CreateDT time.Time

	// AggregateID correlates the record to the aggregate that emitted the
	// event. It is a correlation id, not a typed foreign key: any aggregate
	// kind may appear here.
	AggregateID uuid.UUID

	// EventName is the canonical event name (the store discriminator).
	EventName string

	// EventData is the event's key-value payload. It must be
	// JSON-serializable; UUIDs are stored as strings.
	EventData map[string]any
}

// NewEventRecord builds a record from a single event.
func NewEventRecord(aggregateID uuid.UUID, ev Event) EventRecord {
	return EventRecord{
		ID:          uuid.New(),
		CreateDT:    time.Now().UTC(),
		AggregateID: aggregateID,
		EventName:   ev.EventName(),
		EventData:   ev.Payload(),
	}
}

// RecordOf builds an event-store record from the latest event on the
// aggregate's pending queue. One call captures at most one mutation: a
// handler that mutates the same aggregate twice in one pass must call this
// once per mutation, immediately after each.
//
// Returns ErrNoPendingEvents if the aggregate's queue is empty.
func RecordOf(agg Aggregate) (EventRecord, error) {
	pending := agg.PendingEvents()
	if len(pending) == 0 {
		return EventRecord{}, ErrNoPendingEvents
	}
	return NewEventRecord(agg.AggregateID(), pending[len(pending)-1]), nil
}

// EventStore is the persistence gateway for event records.
// Add stages a record inside the current unit-of-work scope; it becomes
// durable at commit. EventsFor returns all records for an aggregate in
// insertion order, which is the canonical way to verify how many
// mutations, and in what order, happened to it.
type EventStore interface {
	Add(rec EventRecord)
	EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]EventRecord, error)
}
