package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// Command names.
const (
	CmdCreateUser        = "user.create"
	CmdUpdateUser        = "user.update"
	CmdSoftDeleteUser    = "user.soft_delete"
	CmdLogin             = "auth.login"
	CmdRefreshToken      = "auth.refresh"
	CmdCreateBug         = "bug.create"
	CmdUpdateBug         = "bug.update"
	CmdSoftDeleteBug     = "bug.soft_delete"
	CmdCreateComment     = "comment.create"
	CmdUpdateComment     = "comment.update"
	CmdSoftDeleteComment = "comment.soft_delete"
	CmdUpvoteComment     = "comment.upvote"
	CmdDownvoteComment   = "comment.downvote"
	CmdCreateTag         = "tag.create"
	CmdAddTag            = "bug.add_tag"
	CmdRemoveTag         = "bug.remove_tag"
)

// GrantTypeRefresh is the only grant the refresh endpoint accepts.
const GrantTypeRefresh = "refresh_token"

// CreateUser registers a new account. Password and SecurityAnswer are
// plaintext here; the handler hashes them before anything is stored.
type CreateUser struct {
	Username         string
	Email            string
	Password         string
	UserType         domain.UserType
	IsAdmin          bool
	SecurityQuestion string
	SecurityAnswer   string
}

// CommandName returns "user.create".
func (CreateUser) CommandName() string { return CmdCreateUser }

// Validate checks the command's fields.
func (c CreateUser) Validate() error {
	if c.Username == "" {
		return bugline.NewValidationError(CmdCreateUser, "username", "must not be empty")
	}
	if !strings.Contains(c.Email, "@") {
		return bugline.NewValidationError(CmdCreateUser, "email", "must be a valid address")
	}
	if len(c.Password) < 8 {
		return bugline.NewValidationError(CmdCreateUser, "password", "must be at least 8 characters")
	}
	if !c.UserType.Valid() {
		return bugline.NewValidationError(CmdCreateUser, "user_type", "unknown user type")
	}
	return nil
}

// UpdateUser patches account fields. Nil fields are left unchanged.
type UpdateUser struct {
	ID               uuid.UUID
	Username         *string
	Email            *string
	Password         *string
	UserType         *domain.UserType
	IsAdmin          *bool
	SecurityQuestion *string
	SecurityAnswer   *string
}

// CommandName returns "user.update".
func (UpdateUser) CommandName() string { return CmdUpdateUser }

// Validate checks the command's fields.
func (c UpdateUser) Validate() error {
	if c.ID == uuid.Nil {
		return bugline.NewValidationError(CmdUpdateUser, "id", "must not be empty")
	}
	if c.Email != nil && !strings.Contains(*c.Email, "@") {
		return bugline.NewValidationError(CmdUpdateUser, "email", "must be a valid address")
	}
	if c.Password != nil && len(*c.Password) < 8 {
		return bugline.NewValidationError(CmdUpdateUser, "password", "must be at least 8 characters")
	}
	if c.UserType != nil && !c.UserType.Valid() {
		return bugline.NewValidationError(CmdUpdateUser, "user_type", "unknown user type")
	}
	return nil
}

// SoftDeleteUser marks an account deleted. Deleting an already deleted
// account is a no-op.
type SoftDeleteUser struct {
	ID uuid.UUID
}

// CommandName returns "user.soft_delete".
func (SoftDeleteUser) CommandName() string { return CmdSoftDeleteUser }

// Validate checks the command's fields.
func (c SoftDeleteUser) Validate() error {
	if c.ID == uuid.Nil {
		return bugline.NewValidationError(CmdSoftDeleteUser, "id", "must not be empty")
	}
	return nil
}

// Login exchanges credentials for an access and a refresh token.
type Login struct {
	Email    string
	Password string
}

// CommandName returns "auth.login".
func (Login) CommandName() string { return CmdLogin }

// Validate checks the command's fields.
func (c Login) Validate() error {
	if c.Email == "" {
		return bugline.NewValidationError(CmdLogin, "email", "must not be empty")
	}
	if c.Password == "" {
		return bugline.NewValidationError(CmdLogin, "password", "must not be empty")
	}
	return nil
}

// RefreshToken exchanges a refresh token for a new access token.
type RefreshToken struct {
	RefreshToken string
	GrantType    string
}

// CommandName returns "auth.refresh".
func (RefreshToken) CommandName() string { return CmdRefreshToken }

// Validate checks the command's fields.
func (c RefreshToken) Validate() error {
	if c.RefreshToken == "" {
		return bugline.NewValidationError(CmdRefreshToken, "refresh_token", "must not be empty")
	}
	return nil
}

// CreateBug files a new bug report.
type CreateBug struct {
	Title       string
	AuthorID    uuid.UUID
	AssigneeID  *uuid.UUID
	Description string
	Environment domain.Environment
	Urgency     domain.Urgency
	Images      []string
}

// CommandName returns "bug.create".
func (CreateBug) CommandName() string { return CmdCreateBug }

// Validate checks the command's fields.
func (c CreateBug) Validate() error {
	if c.Title == "" {
		return bugline.NewValidationError(CmdCreateBug, "title", "must not be empty")
	}
	if c.AuthorID == uuid.Nil {
		return bugline.NewValidationError(CmdCreateBug, "author_id", "must not be empty")
	}
	if !c.Environment.Valid() {
		return bugline.NewValidationError(CmdCreateBug, "environment", "unknown environment")
	}
	if !c.Urgency.Valid() {
		return bugline.NewValidationError(CmdCreateBug, "urgency", "unknown urgency")
	}
	return nil
}

// UpdateBug patches a bug report. Only the report's author may update
// it; AuthorID identifies the caller.
type UpdateBug struct {
	ID          uuid.UUID
	AuthorID    uuid.UUID
	Title       *string
	AssigneeID  *uuid.UUID
	Description *string
	Environment *domain.Environment
	Urgency     *domain.Urgency
	Status      *domain.BugStatus
	Images      []string
}

// CommandName returns "bug.update".
func (UpdateBug) CommandName() string { return CmdUpdateBug }

// Validate checks the command's fields.
func (c UpdateBug) Validate() error {
	if c.ID == uuid.Nil {
		return bugline.NewValidationError(CmdUpdateBug, "id", "must not be empty")
	}
	if c.AuthorID == uuid.Nil {
		return bugline.NewValidationError(CmdUpdateBug, "author_id", "must not be empty")
	}
	if c.Environment != nil && !c.Environment.Valid() {
		return bugline.NewValidationError(CmdUpdateBug, "environment", "unknown environment")
	}
	if c.Urgency != nil && !c.Urgency.Valid() {
		return bugline.NewValidationError(CmdUpdateBug, "urgency", "unknown urgency")
	}
	if c.Status != nil && !c.Status.Valid() {
		return bugline.NewValidationError(CmdUpdateBug, "status", "unknown status")
	}
	return nil
}

// SoftDeleteBug marks a bug report deleted. Author-only.
type SoftDeleteBug struct {
	ID       uuid.UUID
	AuthorID uuid.UUID
}

// CommandName returns "bug.soft_delete".
func (SoftDeleteBug) CommandName() string { return CmdSoftDeleteBug }

// Validate checks the command's fields.
func (c SoftDeleteBug) Validate() error {
	if c.ID == uuid.Nil {
		return bugline.NewValidationError(CmdSoftDeleteBug, "id", "must not be empty")
	}
	if c.AuthorID == uuid.Nil {
		return bugline.NewValidationError(CmdSoftDeleteBug, "author_id", "must not be empty")
	}
	return nil
}

// CreateComment attaches a comment to a bug.
type CreateComment struct {
	BugID    uuid.UUID
	AuthorID uuid.UUID
	Text     string
}

// CommandName returns "comment.create".
func (CreateComment) CommandName() string { return CmdCreateComment }

// Validate checks the command's fields.
func (c CreateComment) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdCreateComment, "bug_id", "must not be empty")
	}
	if c.AuthorID == uuid.Nil {
		return bugline.NewValidationError(CmdCreateComment, "author_id", "must not be empty")
	}
	if c.Text == "" {
		return bugline.NewValidationError(CmdCreateComment, "text", "must not be empty")
	}
	return nil
}

// UpdateComment edits a comment's text. Comment-author-only.
type UpdateComment struct {
	BugID     uuid.UUID
	CommentID uuid.UUID
	AuthorID  uuid.UUID
	Text      string
}

// CommandName returns "comment.update".
func (UpdateComment) CommandName() string { return CmdUpdateComment }

// Validate checks the command's fields.
func (c UpdateComment) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdUpdateComment, "bug_id", "must not be empty")
	}
	if c.CommentID == uuid.Nil {
		return bugline.NewValidationError(CmdUpdateComment, "comment_id", "must not be empty")
	}
	if c.Text == "" {
		return bugline.NewValidationError(CmdUpdateComment, "text", "must not be empty")
	}
	return nil
}

// SoftDeleteComment removes a comment from a bug. Comment-author-only.
type SoftDeleteComment struct {
	BugID     uuid.UUID
	CommentID uuid.UUID
	AuthorID  uuid.UUID
}

// CommandName returns "comment.soft_delete".
func (SoftDeleteComment) CommandName() string { return CmdSoftDeleteComment }

// Validate checks the command's fields.
func (c SoftDeleteComment) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdSoftDeleteComment, "bug_id", "must not be empty")
	}
	if c.CommentID == uuid.Nil {
		return bugline.NewValidationError(CmdSoftDeleteComment, "comment_id", "must not be empty")
	}
	return nil
}

// UpvoteComment increments a comment's vote count.
type UpvoteComment struct {
	BugID     uuid.UUID
	CommentID uuid.UUID
}

// CommandName returns "comment.upvote".
func (UpvoteComment) CommandName() string { return CmdUpvoteComment }

// Validate checks the command's fields.
func (c UpvoteComment) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdUpvoteComment, "bug_id", "must not be empty")
	}
	if c.CommentID == uuid.Nil {
		return bugline.NewValidationError(CmdUpvoteComment, "comment_id", "must not be empty")
	}
	return nil
}

// DownvoteComment decrements a comment's vote count.
type DownvoteComment struct {
	BugID     uuid.UUID
	CommentID uuid.UUID
}

// CommandName returns "comment.downvote".
func (DownvoteComment) CommandName() string { return CmdDownvoteComment }

// Validate checks the command's fields.
func (c DownvoteComment) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdDownvoteComment, "bug_id", "must not be empty")
	}
	if c.CommentID == uuid.Nil {
		return bugline.NewValidationError(CmdDownvoteComment, "comment_id", "must not be empty")
	}
	return nil
}

// CreateTag creates a named label.
type CreateTag struct {
	Name string
}

// CommandName returns "tag.create".
func (CreateTag) CommandName() string { return CmdCreateTag }

// Validate checks the command's fields.
func (c CreateTag) Validate() error {
	if c.Name == "" {
		return bugline.NewValidationError(CmdCreateTag, "name", "must not be empty")
	}
	return nil
}

// AddTag attaches an existing tag to a bug.
type AddTag struct {
	BugID uuid.UUID
	TagID uuid.UUID
}

// CommandName returns "bug.add_tag".
func (AddTag) CommandName() string { return CmdAddTag }

// Validate checks the command's fields.
func (c AddTag) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdAddTag, "bug_id", "must not be empty")
	}
	if c.TagID == uuid.Nil {
		return bugline.NewValidationError(CmdAddTag, "tag_id", "must not be empty")
	}
	return nil
}

// RemoveTag detaches a tag from a bug.
type RemoveTag struct {
	BugID uuid.UUID
	TagID uuid.UUID
}

// CommandName returns "bug.remove_tag".
func (RemoveTag) CommandName() string { return CmdRemoveTag }

// Validate checks the command's fields.
func (c RemoveTag) Validate() error {
	if c.BugID == uuid.Nil {
		return bugline.NewValidationError(CmdRemoveTag, "bug_id", "must not be empty")
	}
	if c.TagID == uuid.Nil {
		return bugline.NewValidationError(CmdRemoveTag, "tag_id", "must not be empty")
	}
	return nil
}
