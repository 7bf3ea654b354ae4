package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

var _ bugline.EventStore = (*eventStore)(nil)

// eventStore stages records in memory and inserts them at commit.
// EventsFor merges durable rows with the scope's staged records.
type eventStore struct {
	uow    *UnitOfWork
	staged []bugline.EventRecord
}

func newEventStore(uow *UnitOfWork) *eventStore {
	return &eventStore{uow: uow}
}

func (s *eventStore) Add(rec bugline.EventRecord) {
	s.staged = append(s.staged, rec)
}

func (s *eventStore) EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]bugline.EventRecord, error) {
	rows, err := s.uow.tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, create_dt, aggregate_id, event_name, event_data
		FROM %s WHERE aggregate_id = $1 ORDER BY seq`,
		s.uow.store.table("event_store")), aggregateID)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying event records: %w", err)
	}
	defer rows.Close()

	var out []bugline.EventRecord
	for rows.Next() {
		var (
			rec  bugline.EventRecord
			data []byte
		)
		if err := rows.Scan(&rec.ID, &rec.CreateDT, &rec.AggregateID, &rec.EventName, &data); err != nil {
			return nil, fmt.Errorf("postgres: scanning event record: %w", err)
		}
		payload, err := s.uow.store.codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("postgres: decoding event payload: %w", err)
		}
		rec.EventData = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading event records: %w", err)
	}

	for _, rec := range s.staged {
		if rec.AggregateID == aggregateID {
			out = append(out, rec)
		}
	}
	return out, nil
}
