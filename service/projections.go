package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// Projections maintain the denormalized read models. They run as event
// handlers on the bus: best-effort, after the triggering mutation has
// committed. A projection failure is logged by the bus and never
// affects the command result.

func projectUserCreated(ctx context.Context, ev domain.UserCreated, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	now := time.Now().UTC()
	view := &domain.UserReadModel{
		ID:       ev.UserID,
		CreateDT: now,
		UpdateDT: now,
		Username: ev.Username,
		Email:    ev.Email,
		UserType: ev.UserType,
		Status:   ev.Status,
		IsAdmin:  ev.IsAdmin,
	}
	if err := uow.ReadModels().PutUser(ctx, view); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func projectUserUpdated(ctx context.Context, ev domain.UserUpdated, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetUser(ctx, ev.UserID)
	if err != nil {
		// The insert projection may have failed; nothing to merge onto.
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	if ev.Username != nil {
		view.Username = *ev.Username
	}
	if ev.Email != nil {
		view.Email = *ev.Email
	}
	if ev.UserType != nil {
		view.UserType = *ev.UserType
	}
	if ev.IsAdmin != nil {
		view.IsAdmin = *ev.IsAdmin
	}
	view.UpdateDT = time.Now().UTC()

	if err := uow.ReadModels().PutUser(ctx, view); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropUser(ctx, ev.UserID)
	return nil
}

func projectUserSoftDeleted(ctx context.Context, ev domain.UserSoftDeleted, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetUser(ctx, ev.UserID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	view.Status = domain.RecordStatusDeleted
	view.UpdateDT = time.Now().UTC()

	if err := uow.ReadModels().PutUser(ctx, view); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropUser(ctx, ev.UserID)
	return nil
}

// usernameOf resolves a user's username for denormalization, returning
// "" when the user cannot be loaded.
func usernameOf(ctx context.Context, uow domain.UnitOfWork, id uuid.UUID) string {
	u, err := uow.Users().Get(ctx, id)
	if err != nil {
		return ""
	}
	return u.Username
}

func projectBugCreated(ctx context.Context, ev domain.BugCreated, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	now := time.Now().UTC()
	view := &domain.BugReadModel{
		ID:             ev.BugID,
		CreateDT:       now,
		UpdateDT:       now,
		Title:          ev.Title,
		AuthorID:       ev.AuthorID,
		AssigneeID:     ev.AssigneeID,
		Description:    ev.Description,
		Environment:    ev.Environment,
		Urgency:        ev.Urgency,
		Status:         ev.Status,
		RecordStatus:   ev.RecordStatus,
		Images:         ev.Images,
		Version:        ev.Version,
		AuthorUsername: usernameOf(ctx, uow, ev.AuthorID),
	}
	if ev.AssigneeID != nil {
		view.AssigneeUsername = usernameOf(ctx, uow, *ev.AssigneeID)
	}
	if err := uow.ReadModels().PutBug(ctx, view); err != nil {
		return err
	}

	if author, err := uow.ReadModels().GetUser(ctx, ev.AuthorID); err == nil {
		author.BugsRaisedCount++
		if err := uow.ReadModels().PutUser(ctx, author); err != nil {
			return err
		}
	}
	if ev.AssigneeID != nil {
		if assignee, err := uow.ReadModels().GetUser(ctx, *ev.AssigneeID); err == nil {
			assignee.BugsAssignedCount++
			if err := uow.ReadModels().PutUser(ctx, assignee); err != nil {
				return err
			}
		}
	}
	return uow.Commit(ctx)
}

func projectBugUpdated(ctx context.Context, ev domain.BugUpdated, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetBug(ctx, ev.BugID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	if ev.Title != nil {
		view.Title = *ev.Title
	}
	if ev.AssigneeID != nil {
		view.AssigneeID = ev.AssigneeID
		view.AssigneeUsername = usernameOf(ctx, uow, *ev.AssigneeID)
	}
	if ev.Description != nil {
		view.Description = *ev.Description
	}
	if ev.Environment != nil {
		view.Environment = *ev.Environment
	}
	if ev.Urgency != nil {
		view.Urgency = *ev.Urgency
	}
	if ev.Status != nil {
		view.Status = *ev.Status
	}
	if ev.Images != nil {
		view.Images = ev.Images
	}
	view.Edited = true
	view.Version = ev.Version
	view.UpdateDT = time.Now().UTC()

	if err := uow.ReadModels().PutBug(ctx, view); err != nil {
		return err
	}

	if ev.Status != nil && *ev.Status == domain.BugStatusResolved {
		if author, err := uow.ReadModels().GetUser(ctx, view.AuthorID); err == nil {
			author.BugsClosedCount++
			if err := uow.ReadModels().PutUser(ctx, author); err != nil {
				return err
			}
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropBug(ctx, ev.BugID)
	return nil
}

func projectBugSoftDeleted(ctx context.Context, ev domain.BugSoftDeleted, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetBug(ctx, ev.BugID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	view.RecordStatus = domain.RecordStatusDeleted
	view.Version = ev.Version
	view.UpdateDT = time.Now().UTC()

	if err := uow.ReadModels().PutBug(ctx, view); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropBug(ctx, ev.BugID)
	return nil
}

func projectCommentCreated(ctx context.Context, ev domain.CommentCreated, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	now := time.Now().UTC()
	view := &domain.CommentReadModel{
		ID:             ev.CommentID,
		BugID:          ev.BugID,
		CreateDT:       now,
		UpdateDT:       now,
		Text:           ev.Text,
		AuthorID:       ev.AuthorID,
		AuthorUsername: usernameOf(ctx, uow, ev.AuthorID),
	}
	if err := uow.ReadModels().PutComment(ctx, view); err != nil {
		return err
	}

	if bug, err := uow.ReadModels().GetBug(ctx, ev.BugID); err == nil {
		bug.CommentCount++
		if err := uow.ReadModels().PutBug(ctx, bug); err != nil {
			return err
		}
	}
	if author, err := uow.ReadModels().GetUser(ctx, ev.AuthorID); err == nil {
		author.CommentCount++
		if err := uow.ReadModels().PutUser(ctx, author); err != nil {
			return err
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropBug(ctx, ev.BugID)
	return nil
}

func projectCommentUpdated(ctx context.Context, ev domain.CommentUpdated, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetComment(ctx, ev.CommentID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	view.Text = ev.Text
	view.Edited = true
	view.UpdateDT = time.Now().UTC()

	if err := uow.ReadModels().PutComment(ctx, view); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func projectCommentDeleted(ctx context.Context, ev domain.CommentDeleted, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	if err := uow.ReadModels().DeleteComment(ctx, ev.CommentID); err != nil {
		return err
	}
	if bug, err := uow.ReadModels().GetBug(ctx, ev.BugID); err == nil && bug.CommentCount > 0 {
		bug.CommentCount--
		if err := uow.ReadModels().PutBug(ctx, bug); err != nil {
			return err
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropBug(ctx, ev.BugID)
	return nil
}

func projectCommentVote(ctx context.Context, commentID uuid.UUID, count int, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	view.VoteCount = count
	view.UpdateDT = time.Now().UTC()

	if err := uow.ReadModels().PutComment(ctx, view); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func projectCommentUpvoted(ctx context.Context, ev domain.CommentUpvoted, d Deps) error {
	return projectCommentVote(ctx, ev.CommentID, ev.VoteCount, d)
}

func projectCommentDownvoted(ctx context.Context, ev domain.CommentDownvoted, d Deps) error {
	return projectCommentVote(ctx, ev.CommentID, ev.VoteCount, d)
}

func projectTagAdded(ctx context.Context, ev domain.TagAdded, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetBug(ctx, ev.BugID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	for _, id := range view.TagIDs {
		if id == ev.TagID {
			return nil
		}
	}
	view.TagIDs = append(view.TagIDs, ev.TagID)

	if err := uow.ReadModels().PutBug(ctx, view); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropBug(ctx, ev.BugID)
	return nil
}

func projectTagRemoved(ctx context.Context, ev domain.TagRemoved, d Deps) error {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Release()

	view, err := uow.ReadModels().GetBug(ctx, ev.BugID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil
		}
		return err
	}
	for i, id := range view.TagIDs {
		if id == ev.TagID {
			view.TagIDs = append(view.TagIDs[:i], view.TagIDs[i+1:]...)
			break
		}
	}

	if err := uow.ReadModels().PutBug(ctx, view); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	d.dropBug(ctx, ev.BugID)
	return nil
}
