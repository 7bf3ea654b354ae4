// Package msgpack provides a binary PayloadCodec, selectable for the
// postgres event store where payload size matters more than in-database
// queryability.
package msgpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec implements bugline.PayloadCodec using msgpack encoding.
type Codec struct{}

// Name returns "msgpack".
func (Codec) Name() string { return "msgpack" }

// Encode converts a payload map to msgpack bytes.
func (Codec) Encode(payload map[string]any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("msgpack: failed to encode payload: %w", err)
	}
	return data, nil
}

// Decode converts msgpack bytes back to a payload map. Nested string
// keys are preserved; msgpack's default map decoding is normalized to
// string-keyed maps so decoded payloads match what JSON would yield.
func (Codec) Decode(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("msgpack: failed to decode payload: %w", err)
	}
	return payload, nil
}
