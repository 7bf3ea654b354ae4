package bugline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
)

func TestAggregateBaseQueue(t *testing.T) {
	var base bugline.AggregateBase

	assert.False(t, base.HasPendingEvents())
	_, ok := base.PopEvent()
	assert.False(t, ok)
	_, ok = base.LatestEvent()
	assert.False(t, ok)

	base.Record(pingedEvent{})
	base.Record(cascadedEvent{})

	assert.True(t, base.HasPendingEvents())

	latest, ok := base.LatestEvent()
	require.True(t, ok)
	assert.Equal(t, "test.cascaded", latest.EventName())

	// FIFO and destructive.
	first, ok := base.PopEvent()
	require.True(t, ok)
	assert.Equal(t, "test.pinged", first.EventName())

	second, ok := base.PopEvent()
	require.True(t, ok)
	assert.Equal(t, "test.cascaded", second.EventName())

	_, ok = base.PopEvent()
	assert.False(t, ok)
}

func TestAggregateBasePendingEventsIsCopy(t *testing.T) {
	var base bugline.AggregateBase
	base.Record(pingedEvent{})

	snapshot := base.PendingEvents()
	require.Len(t, snapshot, 1)
	snapshot[0] = cascadedEvent{}

	pending := base.PendingEvents()
	assert.Equal(t, "test.pinged", pending[0].EventName())
}

func TestAggregateBaseClear(t *testing.T) {
	var base bugline.AggregateBase
	base.Record(pingedEvent{})
	base.ClearPendingEvents()

	assert.False(t, base.HasPendingEvents())
	assert.Empty(t, base.PendingEvents())
}
