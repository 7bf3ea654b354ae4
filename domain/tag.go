package domain

import (
	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

// EventTagCreated is the tag.created event name.
const EventTagCreated = "tag.created"

// Tag is a small aggregate root: a named label bugs can reference.
// The bug side owns the association as an id set.
type Tag struct {
	bugline.AggregateBase
	Entity

	Name string
}

// NewTag creates a tag and records TagCreated.
func NewTag(name string) *Tag {
	t := &Tag{
		Entity: newEntity(),
		Name:   name,
	}
	t.Record(TagCreated{TagID: t.ID, Name: name})
	return t
}

// Clone returns a copy with an empty pending-event queue.
func (t *Tag) Clone() *Tag {
	c := *t
	c.AggregateBase = bugline.AggregateBase{}
	return &c
}

// TagCreated is emitted when a tag is created.
type TagCreated struct {
	TagID uuid.UUID
	Name  string
}

// EventName returns "tag.created".
func (TagCreated) EventName() string { return EventTagCreated }

// Payload returns the stored representation of the event.
func (e TagCreated) Payload() map[string]any {
	return map[string]any{
		"tag_id": e.TagID.String(),
		"name":   e.Name,
	}
}

func decodeTagCreated(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "tag_id")
	if err != nil {
		return nil, err
	}
	name, err := payloadString(m, "name")
	if err != nil {
		return nil, err
	}
	return TagCreated{TagID: id, Name: name}, nil
}
