package bugline_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
)

type stubAggregate struct {
	bugline.AggregateBase
	id uuid.UUID
}

func (a *stubAggregate) AggregateID() uuid.UUID { return a.id }

func TestRecordOf(t *testing.T) {
	agg := &stubAggregate{id: uuid.New()}

	t.Run("empty queue", func(t *testing.T) {
		_, err := bugline.RecordOf(agg)
		assert.ErrorIs(t, err, bugline.ErrNoPendingEvents)
	})

	t.Run("captures the latest pending event", func(t *testing.T) {
		agg.Record(pingedEvent{})
		agg.Record(cascadedEvent{})

		rec, err := bugline.RecordOf(agg)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Equal(t, agg.id, rec.AggregateID)
		assert.Equal(t, "test.cascaded", rec.EventName)
		assert.False(t, rec.CreateDT.IsZero())

		// Capturing does not drain the queue.
		assert.Len(t, agg.PendingEvents(), 2)
	})
}

func TestNewEventRecord(t *testing.T) {
	id := uuid.New()
	rec := bugline.NewEventRecord(id, pingedEvent{})

	assert.Equal(t, id, rec.AggregateID)
	assert.Equal(t, "test.pinged", rec.EventName)
	assert.NotNil(t, rec.EventData)
}
