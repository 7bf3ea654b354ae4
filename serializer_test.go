package bugline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
)

func TestJSONCodec(t *testing.T) {
	codec := bugline.JSONCodec{}
	assert.Equal(t, "json", codec.Name())

	t.Run("round trip", func(t *testing.T) {
		data, err := codec.Encode(map[string]any{"title": "login broken", "votes": float64(3)})
		require.NoError(t, err)

		decoded, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, "login broken", decoded["title"])
		assert.Equal(t, float64(3), decoded["votes"])
	})

	t.Run("nil payload encodes to empty object", func(t *testing.T) {
		data, err := codec.Encode(nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	})

	t.Run("empty input decodes to empty map", func(t *testing.T) {
		decoded, err := codec.Decode(nil)
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := codec.Decode([]byte("{not json"))
		assert.Error(t, err)
	})
}

func TestEventRegistry(t *testing.T) {
	reg := bugline.NewEventRegistry()
	reg.Register("test.pinged", func(payload map[string]any) (bugline.Event, error) {
		cascade, _ := payload["cascade"].(bool)
		return pingedEvent{Cascade: cascade}, nil
	})

	t.Run("decode", func(t *testing.T) {
		ev, err := reg.Decode("test.pinged", map[string]any{"cascade": true})
		require.NoError(t, err)
		assert.Equal(t, pingedEvent{Cascade: true}, ev)
	})

	t.Run("decode record", func(t *testing.T) {
		rec := bugline.EventRecord{EventName: "test.pinged", EventData: map[string]any{}}
		ev, err := reg.DecodeRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, "test.pinged", ev.EventName())
	})

	t.Run("unregistered name", func(t *testing.T) {
		_, err := reg.Decode("test.unknown", nil)
		assert.Error(t, err)
	})

	assert.Equal(t, 1, reg.Count())
	assert.Equal(t, []string{"test.pinged"}, reg.RegisteredNames())
}
