package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

var _ bugline.EventStore = (*eventStore)(nil)

// eventStore stages records in the current scope; they join the shared
// store's append-only log at commit. Reads see committed records plus
// this scope's staged ones.
type eventStore struct {
	uow    *UnitOfWork
	staged []bugline.EventRecord
}

func newEventStore(uow *UnitOfWork) *eventStore {
	return &eventStore{uow: uow}
}

func (e *eventStore) Add(rec bugline.EventRecord) {
	e.staged = append(e.staged, rec)
}

func (e *eventStore) EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]bugline.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := e.uow.store
	s.mu.Lock()
	out := make([]bugline.EventRecord, 0)
	for _, rec := range s.records {
		if rec.AggregateID == aggregateID {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	for _, rec := range e.staged {
		if rec.AggregateID == aggregateID {
			out = append(out, rec)
		}
	}
	return out, nil
}
