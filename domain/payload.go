package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Payload helpers shared by the event variants. Payload maps are the
// stored representation of events: UUIDs as strings, numbers as the
// decoder's native numeric type (float64 after a JSON round trip).

func payloadString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("domain: payload missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("domain: payload field %q is not a string", key)
	}
	return s, nil
}

func payloadOptString(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func payloadUUID(m map[string]any, key string) (uuid.UUID, error) {
	s, err := payloadString(m, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("domain: payload field %q is not a uuid: %w", key, err)
	}
	return id, nil
}

func payloadOptUUID(m map[string]any, key string) (*uuid.UUID, error) {
	s := payloadOptString(m, key)
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("domain: payload field %q is not a uuid: %w", key, err)
	}
	return &id, nil
}

func payloadInt(m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("domain: payload missing field %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("domain: payload field %q is not a number", key)
}

func payloadBool(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok {
		return false, fmt.Errorf("domain: payload missing field %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("domain: payload field %q is not a bool", key)
	}
	return b, nil
}

func payloadStrings(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch vs := v.(type) {
	case []string:
		out := make([]string, len(vs))
		copy(out, vs)
		return out
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
