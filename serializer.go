package bugline

import (
	"encoding/json"
	"fmt"
	"sync"
)

// PayloadCodec encodes event payloads for storage. The canonical codec is
// JSON; serializer/msgpack provides a binary alternative for caches and
// size-sensitive stores.
type PayloadCodec interface {
	// Name identifies the codec (e.g. "json").
	Name() string

	// Encode converts a payload map to bytes.
	Encode(payload map[string]any) ([]byte, error)

	// Decode converts bytes back to a payload map.
	Decode(data []byte) (map[string]any, error)
}

// JSONCodec is the default PayloadCodec.
type JSONCodec struct{}

// Name returns "json".
func (JSONCodec) Name() string { return "json" }

// Encode converts a payload map to JSON bytes.
func (JSONCodec) Encode(payload map[string]any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bugline: failed to encode payload: %w", err)
	}
	return data, nil
}

// Decode converts JSON bytes back to a payload map.
func (JSONCodec) Decode(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bugline: failed to decode payload: %w", err)
	}
	return payload, nil
}

// EventDecoder rebuilds a typed event from a stored payload map.
// Each event variant registers its own decoder; there is no reflection.
type EventDecoder func(payload map[string]any) (Event, error)

// EventRegistry maps event names to decoders so event-store records can be
// rehydrated into typed events for replay.
type EventRegistry struct {
	mu       sync.RWMutex
	decoders map[string]EventDecoder
}

// NewEventRegistry creates an empty EventRegistry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{
		decoders: make(map[string]EventDecoder),
	}
}

// Register adds a decoder for an event name.
// Registering the same name twice replaces the previous decoder.
func (r *EventRegistry) Register(name string, dec EventDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[name] = dec
}

// Decode rebuilds the named event from its payload.
func (r *EventRegistry) Decode(name string, payload map[string]any) (Event, error) {
	r.mu.RLock()
	dec, ok := r.decoders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("bugline: event %q not registered", name)
	}
	return dec(payload)
}

// DecodeRecord rebuilds the typed event captured by a stored record.
func (r *EventRegistry) DecodeRecord(rec EventRecord) (Event, error) {
	return r.Decode(rec.EventName, rec.EventData)
}

// RegisteredNames returns all registered event names.
func (r *EventRegistry) RegisteredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.decoders))
	for n := range r.decoders {
		names = append(names, n)
	}
	return names
}

// Count returns the number of registered decoders.
func (r *EventRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}
