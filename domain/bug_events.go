package domain

import (
	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

// Bug event names.
const (
	EventBugCreated       = "bug.created"
	EventBugUpdated       = "bug.updated"
	EventBugSoftDeleted   = "bug.soft_deleted"
	EventCommentCreated   = "comment.created"
	EventCommentUpdated   = "comment.updated"
	EventCommentDeleted   = "comment.deleted"
	EventCommentUpvoted   = "comment.upvoted"
	EventCommentDownvoted = "comment.downvoted"
	EventTagAdded         = "bug.tag_added"
	EventTagRemoved       = "bug.tag_removed"
)

// BugCreated is emitted when a bug report is filed.
type BugCreated struct {
	BugID        uuid.UUID
	Title        string
	AuthorID     uuid.UUID
	AssigneeID   *uuid.UUID
	Description  string
	Environment  Environment
	Urgency      Urgency
	Status       BugStatus
	RecordStatus RecordStatus
	Version      int
	Images       []string
}

// EventName returns "bug.created".
func (BugCreated) EventName() string { return EventBugCreated }

// Payload returns the stored representation of the event.
func (e BugCreated) Payload() map[string]any {
	m := map[string]any{
		"bug_id":        e.BugID.String(),
		"title":         e.Title,
		"author_id":     e.AuthorID.String(),
		"description":   e.Description,
		"environment":   string(e.Environment),
		"urgency":       string(e.Urgency),
		"status":        string(e.Status),
		"record_status": string(e.RecordStatus),
		"version":       e.Version,
	}
	if e.AssigneeID != nil {
		m["assignee_id"] = e.AssigneeID.String()
	}
	if e.Images != nil {
		m["images"] = append([]string(nil), e.Images...)
	}
	return m
}

// BugUpdated is emitted when report fields change. Nil fields were not
// part of the update and are omitted from the payload. Version is the
// version the bug reached with this mutation.
type BugUpdated struct {
	BugID       uuid.UUID
	Title       *string
	AssigneeID  *uuid.UUID
	Description *string
	Environment *Environment
	Urgency     *Urgency
	Status      *BugStatus
	Images      []string
	Version     int
}

// EventName returns "bug.updated".
func (BugUpdated) EventName() string { return EventBugUpdated }

// Payload returns the stored representation of the event.
func (e BugUpdated) Payload() map[string]any {
	m := map[string]any{
		"bug_id":  e.BugID.String(),
		"version": e.Version,
	}
	if e.Title != nil {
		m["title"] = *e.Title
	}
	if e.AssigneeID != nil {
		m["assignee_id"] = e.AssigneeID.String()
	}
	if e.Description != nil {
		m["description"] = *e.Description
	}
	if e.Environment != nil {
		m["environment"] = string(*e.Environment)
	}
	if e.Urgency != nil {
		m["urgency"] = string(*e.Urgency)
	}
	if e.Status != nil {
		m["status"] = string(*e.Status)
	}
	if e.Images != nil {
		m["images"] = append([]string(nil), e.Images...)
	}
	return m
}

// BugSoftDeleted is emitted when a report is soft-deleted.
type BugSoftDeleted struct {
	BugID   uuid.UUID
	Version int
}

// EventName returns "bug.soft_deleted".
func (BugSoftDeleted) EventName() string { return EventBugSoftDeleted }

// Payload returns the stored representation of the event.
func (e BugSoftDeleted) Payload() map[string]any {
	return map[string]any{
		"bug_id":        e.BugID.String(),
		"record_status": string(RecordStatusDeleted),
		"version":       e.Version,
	}
}

// CommentCreated is emitted when a comment is attached to a bug.
type CommentCreated struct {
	CommentID uuid.UUID
	BugID     uuid.UUID
	AuthorID  uuid.UUID
	Text      string
}

// EventName returns "comment.created".
func (CommentCreated) EventName() string { return EventCommentCreated }

// Payload returns the stored representation of the event.
func (e CommentCreated) Payload() map[string]any {
	return map[string]any{
		"comment_id": e.CommentID.String(),
		"bug_id":     e.BugID.String(),
		"author_id":  e.AuthorID.String(),
		"text":       e.Text,
	}
}

// CommentUpdated is emitted when a comment's text is edited.
type CommentUpdated struct {
	CommentID uuid.UUID
	BugID     uuid.UUID
	Text      string
}

// EventName returns "comment.updated".
func (CommentUpdated) EventName() string { return EventCommentUpdated }

// Payload returns the stored representation of the event.
func (e CommentUpdated) Payload() map[string]any {
	return map[string]any{
		"comment_id": e.CommentID.String(),
		"bug_id":     e.BugID.String(),
		"text":       e.Text,
		"edited":     true,
	}
}

// CommentDeleted is emitted when a comment is removed from a bug.
type CommentDeleted struct {
	CommentID uuid.UUID
	BugID     uuid.UUID
}

// EventName returns "comment.deleted".
func (CommentDeleted) EventName() string { return EventCommentDeleted }

// Payload returns the stored representation of the event.
func (e CommentDeleted) Payload() map[string]any {
	return map[string]any{
		"comment_id": e.CommentID.String(),
		"bug_id":     e.BugID.String(),
	}
}

// CommentUpvoted is emitted when a comment receives an upvote.
// VoteCount is the count the comment reached with this vote.
type CommentUpvoted struct {
	CommentID uuid.UUID
	BugID     uuid.UUID
	VoteCount int
}

// EventName returns "comment.upvoted".
func (CommentUpvoted) EventName() string { return EventCommentUpvoted }

// Payload returns the stored representation of the event.
func (e CommentUpvoted) Payload() map[string]any {
	return map[string]any{
		"comment_id": e.CommentID.String(),
		"bug_id":     e.BugID.String(),
		"vote_count": e.VoteCount,
	}
}

// CommentDownvoted is emitted when a comment receives a downvote.
type CommentDownvoted struct {
	CommentID uuid.UUID
	BugID     uuid.UUID
	VoteCount int
}

// EventName returns "comment.downvoted".
func (CommentDownvoted) EventName() string { return EventCommentDownvoted }

// Payload returns the stored representation of the event.
func (e CommentDownvoted) Payload() map[string]any {
	return map[string]any{
		"comment_id": e.CommentID.String(),
		"bug_id":     e.BugID.String(),
		"vote_count": e.VoteCount,
	}
}

// TagAdded is emitted when a tag is attached to a bug.
type TagAdded struct {
	BugID uuid.UUID
	TagID uuid.UUID
}

// EventName returns "bug.tag_added".
func (TagAdded) EventName() string { return EventTagAdded }

// Payload returns the stored representation of the event.
func (e TagAdded) Payload() map[string]any {
	return map[string]any{
		"bug_id": e.BugID.String(),
		"tag_id": e.TagID.String(),
	}
}

// TagRemoved is emitted when a tag is detached from a bug.
type TagRemoved struct {
	BugID uuid.UUID
	TagID uuid.UUID
}

// EventName returns "bug.tag_removed".
func (TagRemoved) EventName() string { return EventTagRemoved }

// Payload returns the stored representation of the event.
func (e TagRemoved) Payload() map[string]any {
	return map[string]any{
		"bug_id": e.BugID.String(),
		"tag_id": e.TagID.String(),
	}
}

func decodeBugCreated(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "bug_id")
	if err != nil {
		return nil, err
	}
	title, err := payloadString(m, "title")
	if err != nil {
		return nil, err
	}
	authorID, err := payloadUUID(m, "author_id")
	if err != nil {
		return nil, err
	}
	assigneeID, err := payloadOptUUID(m, "assignee_id")
	if err != nil {
		return nil, err
	}
	description, err := payloadString(m, "description")
	if err != nil {
		return nil, err
	}
	env, err := payloadString(m, "environment")
	if err != nil {
		return nil, err
	}
	urgency, err := payloadString(m, "urgency")
	if err != nil {
		return nil, err
	}
	status, err := payloadString(m, "status")
	if err != nil {
		return nil, err
	}
	recordStatus, err := payloadString(m, "record_status")
	if err != nil {
		return nil, err
	}
	version, err := payloadInt(m, "version")
	if err != nil {
		return nil, err
	}
	return BugCreated{
		BugID:        id,
		Title:        title,
		AuthorID:     authorID,
		AssigneeID:   assigneeID,
		Description:  description,
		Environment:  Environment(env),
		Urgency:      Urgency(urgency),
		Status:       BugStatus(status),
		RecordStatus: RecordStatus(recordStatus),
		Version:      version,
		Images:       payloadStrings(m, "images"),
	}, nil
}

func decodeBugUpdated(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "bug_id")
	if err != nil {
		return nil, err
	}
	version, err := payloadInt(m, "version")
	if err != nil {
		return nil, err
	}
	assigneeID, err := payloadOptUUID(m, "assignee_id")
	if err != nil {
		return nil, err
	}
	ev := BugUpdated{
		BugID:       id,
		Title:       payloadOptString(m, "title"),
		AssigneeID:  assigneeID,
		Description: payloadOptString(m, "description"),
		Images:      payloadStrings(m, "images"),
		Version:     version,
	}
	if s := payloadOptString(m, "environment"); s != nil {
		env := Environment(*s)
		ev.Environment = &env
	}
	if s := payloadOptString(m, "urgency"); s != nil {
		u := Urgency(*s)
		ev.Urgency = &u
	}
	if s := payloadOptString(m, "status"); s != nil {
		st := BugStatus(*s)
		ev.Status = &st
	}
	return ev, nil
}

func decodeBugSoftDeleted(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "bug_id")
	if err != nil {
		return nil, err
	}
	version, err := payloadInt(m, "version")
	if err != nil {
		return nil, err
	}
	return BugSoftDeleted{BugID: id, Version: version}, nil
}

func decodeCommentCreated(m map[string]any) (bugline.Event, error) {
	commentID, err := payloadUUID(m, "comment_id")
	if err != nil {
		return nil, err
	}
	bugID, err := payloadUUID(m, "bug_id")
	if err != nil {
		return nil, err
	}
	authorID, err := payloadUUID(m, "author_id")
	if err != nil {
		return nil, err
	}
	text, err := payloadString(m, "text")
	if err != nil {
		return nil, err
	}
	return CommentCreated{
		CommentID: commentID,
		BugID:     bugID,
		AuthorID:  authorID,
		Text:      text,
	}, nil
}

func decodeCommentUpdated(m map[string]any) (bugline.Event, error) {
	commentID, err := payloadUUID(m, "comment_id")
	if err != nil {
		return nil, err
	}
	bugID, err := payloadUUID(m, "bug_id")
	if err != nil {
		return nil, err
	}
	text, err := payloadString(m, "text")
	if err != nil {
		return nil, err
	}
	return CommentUpdated{CommentID: commentID, BugID: bugID, Text: text}, nil
}

func decodeCommentDeleted(m map[string]any) (bugline.Event, error) {
	commentID, err := payloadUUID(m, "comment_id")
	if err != nil {
		return nil, err
	}
	bugID, err := payloadUUID(m, "bug_id")
	if err != nil {
		return nil, err
	}
	return CommentDeleted{CommentID: commentID, BugID: bugID}, nil
}

func decodeCommentVote(m map[string]any) (uuid.UUID, uuid.UUID, int, error) {
	commentID, err := payloadUUID(m, "comment_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, 0, err
	}
	bugID, err := payloadUUID(m, "bug_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, 0, err
	}
	count, err := payloadInt(m, "vote_count")
	if err != nil {
		return uuid.Nil, uuid.Nil, 0, err
	}
	return commentID, bugID, count, nil
}

func decodeCommentUpvoted(m map[string]any) (bugline.Event, error) {
	commentID, bugID, count, err := decodeCommentVote(m)
	if err != nil {
		return nil, err
	}
	return CommentUpvoted{CommentID: commentID, BugID: bugID, VoteCount: count}, nil
}

func decodeCommentDownvoted(m map[string]any) (bugline.Event, error) {
	commentID, bugID, count, err := decodeCommentVote(m)
	if err != nil {
		return nil, err
	}
	return CommentDownvoted{CommentID: commentID, BugID: bugID, VoteCount: count}, nil
}

func decodeTagPair(m map[string]any) (uuid.UUID, uuid.UUID, error) {
	bugID, err := payloadUUID(m, "bug_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	tagID, err := payloadUUID(m, "tag_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return bugID, tagID, nil
}

func decodeTagAdded(m map[string]any) (bugline.Event, error) {
	bugID, tagID, err := decodeTagPair(m)
	if err != nil {
		return nil, err
	}
	return TagAdded{BugID: bugID, TagID: tagID}, nil
}

func decodeTagRemoved(m map[string]any) (bugline.Event, error) {
	bugID, tagID, err := decodeTagPair(m)
	if err != nil {
		return nil, err
	}
	return TagRemoved{BugID: bugID, TagID: tagID}, nil
}

// RegisterEvents installs the decoders for every event variant into an
// event registry so stored records can be rehydrated for replay.
func RegisterEvents(r *bugline.EventRegistry) {
	r.Register(EventUserCreated, decodeUserCreated)
	r.Register(EventUserUpdated, decodeUserUpdated)
	r.Register(EventUserSoftDeleted, decodeUserSoftDeleted)
	r.Register(EventBugCreated, decodeBugCreated)
	r.Register(EventBugUpdated, decodeBugUpdated)
	r.Register(EventBugSoftDeleted, decodeBugSoftDeleted)
	r.Register(EventCommentCreated, decodeCommentCreated)
	r.Register(EventCommentUpdated, decodeCommentUpdated)
	r.Register(EventCommentDeleted, decodeCommentDeleted)
	r.Register(EventCommentUpvoted, decodeCommentUpvoted)
	r.Register(EventCommentDownvoted, decodeCommentDownvoted)
	r.Register(EventTagAdded, decodeTagAdded)
	r.Register(EventTagRemoved, decodeTagRemoved)
	r.Register(EventTagCreated, decodeTagCreated)
}
