package domain

import (
	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

// Comment is a child entity owned by a Bug, addressable only through
// its parent.
type Comment struct {
	Entity

	BugID     uuid.UUID
	AuthorID  uuid.UUID
	Text      string
	VoteCount int
	Edited    bool
}

func (c *Comment) clone() *Comment {
	cp := *c
	return &cp
}

// Bug is the aggregate root for a bug report, its comments, and its
// tag set. Version is the optimistic-concurrency discriminant checked
// at commit; it increments on structurally significant mutations
// (update, soft-delete) only.
type Bug struct {
	bugline.AggregateBase
	Entity

	Title        string
	AuthorID     uuid.UUID
	AssigneeID   *uuid.UUID
	Description  string
	Environment  Environment
	Urgency      Urgency
	Status       BugStatus
	RecordStatus RecordStatus
	Edited       bool
	Images       []string
	Version      int
	Comments     []*Comment
	TagIDs       []uuid.UUID
}

// NewBug creates a bug report in status "new" at version 1 and records
// BugCreated.
func NewBug(title string, authorID uuid.UUID, assigneeID *uuid.UUID, description string, env Environment, urgency Urgency, images []string) *Bug {
	b := &Bug{
		Entity:       newEntity(),
		Title:        title,
		AuthorID:     authorID,
		AssigneeID:   assigneeID,
		Description:  description,
		Environment:  env,
		Urgency:      urgency,
		Status:       BugStatusNew,
		RecordStatus: RecordStatusActive,
		Images:       images,
		Version:      1,
	}
	b.Record(BugCreated{
		BugID:        b.ID,
		Title:        title,
		AuthorID:     authorID,
		AssigneeID:   assigneeID,
		Description:  description,
		Environment:  env,
		Urgency:      urgency,
		Status:       BugStatusNew,
		RecordStatus: RecordStatusActive,
		Version:      1,
		Images:       images,
	})
	return b
}

// BugPatch holds the optional field updates for Bug.Update. Nil fields
// are left unchanged. Images replaces the whole list when non-nil.
type BugPatch struct {
	Title       *string
	AssigneeID  *uuid.UUID
	Description *string
	Environment *Environment
	Urgency     *Urgency
	Status      *BugStatus
	Images      []string
}

func (p BugPatch) empty() bool {
	return p.Title == nil && p.AssigneeID == nil && p.Description == nil &&
		p.Environment == nil && p.Urgency == nil && p.Status == nil &&
		p.Images == nil
}

// Update applies the non-nil fields of the patch, marks the report
// edited, bumps the version, and records BugUpdated. A status change
// that moves the workflow backwards fails with ErrInvalidTransition.
// Updating a deleted bug fails with ErrItemNotFound. An empty patch is
// a no-op and records nothing.
func (b *Bug) Update(p BugPatch) error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	if p.empty() {
		return nil
	}
	if p.Status != nil && !b.Status.CanTransitionTo(*p.Status) {
		return ErrInvalidTransition
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.AssigneeID != nil {
		b.AssigneeID = p.AssigneeID
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Environment != nil {
		b.Environment = *p.Environment
	}
	if p.Urgency != nil {
		b.Urgency = *p.Urgency
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.Images != nil {
		b.Images = p.Images
	}
	b.Edited = true
	b.Version++
	b.touch()
	b.Record(BugUpdated{
		BugID:       b.ID,
		Title:       p.Title,
		AssigneeID:  p.AssigneeID,
		Description: p.Description,
		Environment: p.Environment,
		Urgency:     p.Urgency,
		Status:      p.Status,
		Images:      p.Images,
		Version:     b.Version,
	})
	return nil
}

// SoftDelete marks the report deleted, bumps the version, and records
// BugSoftDeleted. Deleting twice fails with ErrItemNotFound.
func (b *Bug) SoftDelete() error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	b.RecordStatus = RecordStatusDeleted
	b.Version++
	b.touch()
	b.Record(BugSoftDeleted{BugID: b.ID, Version: b.Version})
	return nil
}

// Deleted reports whether the bug has been soft-deleted.
func (b *Bug) Deleted() bool {
	return b.RecordStatus == RecordStatusDeleted
}

func (b *Bug) findComment(id uuid.UUID) *Comment {
	for _, c := range b.Comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// AddComment attaches a new comment and records CommentCreated.
// Commenting on a deleted bug fails with ErrItemNotFound.
func (b *Bug) AddComment(authorID uuid.UUID, text string) (*Comment, error) {
	if b.RecordStatus == RecordStatusDeleted {
		return nil, bugline.NewNotFoundError("bug", b.ID)
	}
	c := &Comment{
		Entity:   newEntity(),
		BugID:    b.ID,
		AuthorID: authorID,
		Text:     text,
	}
	b.Comments = append(b.Comments, c)
	b.touch()
	b.Record(CommentCreated{
		CommentID: c.ID,
		BugID:     b.ID,
		AuthorID:  authorID,
		Text:      text,
	})
	return c, nil
}

// UpdateComment replaces a comment's text, marks it edited, and
// records CommentUpdated. A missing comment fails with ErrItemNotFound.
func (b *Bug) UpdateComment(commentID uuid.UUID, text string) (*Comment, error) {
	if b.RecordStatus == RecordStatusDeleted {
		return nil, bugline.NewNotFoundError("bug", b.ID)
	}
	c := b.findComment(commentID)
	if c == nil {
		return nil, bugline.NewNotFoundError("comment", commentID)
	}
	c.Text = text
	c.Edited = true
	c.touch()
	b.touch()
	b.Record(CommentUpdated{
		CommentID: c.ID,
		BugID:     b.ID,
		Text:      text,
	})
	return c, nil
}

// RemoveComment detaches a comment and records CommentDeleted.
// A missing comment fails with ErrItemNotFound.
func (b *Bug) RemoveComment(commentID uuid.UUID) error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	for i, c := range b.Comments {
		if c.ID == commentID {
			b.Comments = append(b.Comments[:i], b.Comments[i+1:]...)
			b.touch()
			b.Record(CommentDeleted{CommentID: commentID, BugID: b.ID})
			return nil
		}
	}
	return bugline.NewNotFoundError("comment", commentID)
}

// UpvoteComment increments a comment's vote count and records
// CommentUpvoted.
func (b *Bug) UpvoteComment(commentID uuid.UUID) error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	c := b.findComment(commentID)
	if c == nil {
		return bugline.NewNotFoundError("comment", commentID)
	}
	c.VoteCount++
	b.Record(CommentUpvoted{CommentID: commentID, BugID: b.ID, VoteCount: c.VoteCount})
	return nil
}

// DownvoteComment decrements a comment's vote count and records
// CommentDownvoted.
func (b *Bug) DownvoteComment(commentID uuid.UUID) error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	c := b.findComment(commentID)
	if c == nil {
		return bugline.NewNotFoundError("comment", commentID)
	}
	c.VoteCount--
	b.Record(CommentDownvoted{CommentID: commentID, BugID: b.ID, VoteCount: c.VoteCount})
	return nil
}

// HasTag reports whether the tag is attached to this bug.
func (b *Bug) HasTag(tagID uuid.UUID) bool {
	for _, id := range b.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// AddTag attaches a tag id and records TagAdded. Attaching a tag that
// is already present fails with ErrDuplicateRecord.
func (b *Bug) AddTag(tagID uuid.UUID) error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	if b.HasTag(tagID) {
		return bugline.NewDuplicateRecordError("bug_tag", "tag_id", tagID.String())
	}
	b.TagIDs = append(b.TagIDs, tagID)
	b.touch()
	b.Record(TagAdded{BugID: b.ID, TagID: tagID})
	return nil
}

// RemoveTag detaches a tag id and records TagRemoved. A tag that is
// not attached fails with ErrItemNotFound.
func (b *Bug) RemoveTag(tagID uuid.UUID) error {
	if b.RecordStatus == RecordStatusDeleted {
		return bugline.NewNotFoundError("bug", b.ID)
	}
	for i, id := range b.TagIDs {
		if id == tagID {
			b.TagIDs = append(b.TagIDs[:i], b.TagIDs[i+1:]...)
			b.touch()
			b.Record(TagRemoved{BugID: b.ID, TagID: tagID})
			return nil
		}
	}
	return bugline.NewNotFoundError("tag", tagID)
}

// Clone returns a deep copy with an empty pending-event queue.
func (b *Bug) Clone() *Bug {
	c := *b
	c.AggregateBase = bugline.AggregateBase{}
	if b.AssigneeID != nil {
		id := *b.AssigneeID
		c.AssigneeID = &id
	}
	if b.Images != nil {
		c.Images = make([]string, len(b.Images))
		copy(c.Images, b.Images)
	}
	if b.Comments != nil {
		c.Comments = make([]*Comment, len(b.Comments))
		for i, cm := range b.Comments {
			c.Comments[i] = cm.clone()
		}
	}
	if b.TagIDs != nil {
		c.TagIDs = make([]uuid.UUID, len(b.TagIDs))
		copy(c.TagIDs, b.TagIDs)
	}
	return &c
}

// ReplayBug rebuilds a bug's state from its event history. The
// pending-event queue of the result is empty.
func ReplayBug(id uuid.UUID, events []bugline.Event) (*Bug, error) {
	b := &Bug{Entity: Entity{ID: id}}
	for _, ev := range events {
		if err := ApplyBugEvent(b, ev); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ApplyBugEvent merges an event's fields into the target bug. Fields
// absent from the event (nil on update variants) are left untouched.
// Used for replay and testing, not live dispatch.
func ApplyBugEvent(b *Bug, ev bugline.Event) error {
	switch e := ev.(type) {
	case BugCreated:
		b.ID = e.BugID
		b.Title = e.Title
		b.AuthorID = e.AuthorID
		b.AssigneeID = e.AssigneeID
		b.Description = e.Description
		b.Environment = e.Environment
		b.Urgency = e.Urgency
		b.Status = e.Status
		b.RecordStatus = e.RecordStatus
		b.Version = e.Version
		b.Images = e.Images
	case BugUpdated:
		if e.Title != nil {
			b.Title = *e.Title
		}
		if e.AssigneeID != nil {
			b.AssigneeID = e.AssigneeID
		}
		if e.Description != nil {
			b.Description = *e.Description
		}
		if e.Environment != nil {
			b.Environment = *e.Environment
		}
		if e.Urgency != nil {
			b.Urgency = *e.Urgency
		}
		if e.Status != nil {
			b.Status = *e.Status
		}
		if e.Images != nil {
			b.Images = e.Images
		}
		b.Edited = true
		b.Version = e.Version
	case BugSoftDeleted:
		b.RecordStatus = RecordStatusDeleted
		b.Version = e.Version
	case CommentCreated:
		b.Comments = append(b.Comments, &Comment{
			Entity:   Entity{ID: e.CommentID},
			BugID:    e.BugID,
			AuthorID: e.AuthorID,
			Text:     e.Text,
		})
	case CommentUpdated:
		if c := b.findComment(e.CommentID); c != nil {
			c.Text = e.Text
			c.Edited = true
		}
	case CommentDeleted:
		for i, c := range b.Comments {
			if c.ID == e.CommentID {
				b.Comments = append(b.Comments[:i], b.Comments[i+1:]...)
				break
			}
		}
	case CommentUpvoted:
		if c := b.findComment(e.CommentID); c != nil {
			c.VoteCount = e.VoteCount
		}
	case CommentDownvoted:
		if c := b.findComment(e.CommentID); c != nil {
			c.VoteCount = e.VoteCount
		}
	case TagAdded:
		if !b.HasTag(e.TagID) {
			b.TagIDs = append(b.TagIDs, e.TagID)
		}
	case TagRemoved:
		for i, id := range b.TagIDs {
			if id == e.TagID {
				b.TagIDs = append(b.TagIDs[:i], b.TagIDs[i+1:]...)
				break
			}
		}
	default:
		return bugline.ErrUnknownMessage
	}
	return nil
}
