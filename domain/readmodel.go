package domain

import (
	"time"

	"github.com/google/uuid"
)

// Read models are denormalized views maintained by best-effort event
// projections. They live outside the transactional write path and may
// lag the aggregates they mirror.

// UserReadModel is the query-side view of a user, including activity
// counters maintained by the projections.
type UserReadModel struct {
	ID       uuid.UUID `json:"id"`
	CreateDT time.Time `json:"create_dt"`
	UpdateDT time.Time `json:"update_dt"`

	Username string       `json:"username"`
	Email    string       `json:"email"`
	UserType UserType     `json:"user_type"`
	Status   RecordStatus `json:"status"`
	IsAdmin  bool         `json:"is_admin"`

	CommentCount      int `json:"comment_count"`
	BugsRaisedCount   int `json:"bugs_raised_count"`
	BugsAssignedCount int `json:"bugs_assigned_count"`
	BugsClosedCount   int `json:"bugs_closed_count"`
	VotesCount        int `json:"votes_count"`
}

// Clone returns a copy of the read model.
func (m *UserReadModel) Clone() *UserReadModel {
	c := *m
	return &c
}

// BugReadModel is the query-side view of a bug, denormalized with the
// author's and assignee's usernames.
type BugReadModel struct {
	ID       uuid.UUID `json:"id"`
	CreateDT time.Time `json:"create_dt"`
	UpdateDT time.Time `json:"update_dt"`

	Title        string       `json:"title"`
	AuthorID     uuid.UUID    `json:"author_id"`
	AssigneeID   *uuid.UUID   `json:"assignee_id,omitempty"`
	Description  string       `json:"description"`
	Environment  Environment  `json:"environment"`
	Urgency      Urgency      `json:"urgency"`
	Status       BugStatus    `json:"status"`
	RecordStatus RecordStatus `json:"record_status"`
	Edited       bool         `json:"edited"`
	Images       []string     `json:"images,omitempty"`
	Version      int          `json:"version"`
	TagIDs       []uuid.UUID  `json:"tag_ids,omitempty"`

	AuthorUsername   string `json:"author_username"`
	AssigneeUsername string `json:"assignee_username,omitempty"`
	CommentCount     int    `json:"comment_count"`
}

// Clone returns a deep copy of the read model.
func (m *BugReadModel) Clone() *BugReadModel {
	c := *m
	if m.AssigneeID != nil {
		id := *m.AssigneeID
		c.AssigneeID = &id
	}
	if m.Images != nil {
		c.Images = append([]string(nil), m.Images...)
	}
	if m.TagIDs != nil {
		c.TagIDs = append([]uuid.UUID(nil), m.TagIDs...)
	}
	return &c
}

// CommentReadModel is the query-side view of a comment, denormalized
// with the author's username.
type CommentReadModel struct {
	ID       uuid.UUID `json:"id"`
	BugID    uuid.UUID `json:"bug_id"`
	CreateDT time.Time `json:"create_dt"`
	UpdateDT time.Time `json:"update_dt"`

	Text      string `json:"text"`
	VoteCount int    `json:"vote_count"`
	Edited    bool   `json:"edited"`

	AuthorID       uuid.UUID `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
}

// Clone returns a copy of the read model.
func (m *CommentReadModel) Clone() *CommentReadModel {
	c := *m
	return &c
}
