package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

func createBug(ctx context.Context, cmd CreateBug, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug := domain.NewBug(cmd.Title, cmd.AuthorID, cmd.AssigneeID, cmd.Description, cmd.Environment, cmd.Urgency, cmd.Images)
	if err := uow.Bugs().Add(ctx, bug); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return bug.ID, nil
}

func updateBug(ctx context.Context, cmd UpdateBug, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if bug.AuthorID != cmd.AuthorID {
		return nil, fmt.Errorf("%w: only the author may edit this report", bugline.ErrForbidden)
	}

	if err := bug.Update(bugPatchOf(cmd)); err != nil {
		return nil, err
	}
	if bug.HasPendingEvents() {
		rec, err := bugline.RecordOf(bug)
		if err != nil {
			return nil, err
		}
		uow.EventStore().Add(rec)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return bug.ID, nil
}

func softDeleteBug(ctx context.Context, cmd SoftDeleteBug, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if bug.AuthorID != cmd.AuthorID {
		return nil, fmt.Errorf("%w: only the author may delete this report", bugline.ErrForbidden)
	}

	if err := bug.SoftDelete(); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func createComment(ctx context.Context, cmd CreateComment, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, cmd.BugID)
	if err != nil {
		return nil, err
	}
	comment, err := bug.AddComment(cmd.AuthorID, cmd.Text)
	if err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return comment.ID, nil
}

func findOwnedComment(bug *domain.Bug, commentID uuid.UUID, authorID uuid.UUID) (*domain.Comment, error) {
	var comment *domain.Comment
	for _, c := range bug.Comments {
		if c.ID == commentID {
			comment = c
			break
		}
	}
	if comment == nil {
		return nil, bugline.NewNotFoundError("comment", commentID)
	}
	if comment.AuthorID != authorID {
		return nil, fmt.Errorf("%w: only the author may edit this comment", bugline.ErrForbidden)
	}
	return comment, nil
}

func updateComment(ctx context.Context, cmd UpdateComment, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, cmd.BugID)
	if err != nil {
		return nil, err
	}
	if _, err := findOwnedComment(bug, cmd.CommentID, cmd.AuthorID); err != nil {
		return nil, err
	}

	if _, err := bug.UpdateComment(cmd.CommentID, cmd.Text); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return cmd.CommentID, nil
}

func softDeleteComment(ctx context.Context, cmd SoftDeleteComment, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, cmd.BugID)
	if err != nil {
		return nil, err
	}
	if _, err := findOwnedComment(bug, cmd.CommentID, cmd.AuthorID); err != nil {
		return nil, err
	}

	if err := bug.RemoveComment(cmd.CommentID); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func upvoteComment(ctx context.Context, cmd UpvoteComment, d Deps) (any, error) {
	return voteComment(ctx, cmd.BugID, cmd.CommentID, d, (*domain.Bug).UpvoteComment)
}

func downvoteComment(ctx context.Context, cmd DownvoteComment, d Deps) (any, error) {
	return voteComment(ctx, cmd.BugID, cmd.CommentID, d, (*domain.Bug).DownvoteComment)
}

func voteComment(ctx context.Context, bugID, commentID uuid.UUID, d Deps, vote func(*domain.Bug, uuid.UUID) error) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, bugID)
	if err != nil {
		return nil, err
	}
	if err := vote(bug, commentID); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return commentID, nil
}

func createTag(ctx context.Context, cmd CreateTag, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	if _, err := uow.Tags().GetByName(ctx, cmd.Name); err == nil {
		return nil, bugline.NewDuplicateRecordError("tag", "name", cmd.Name)
	} else if !errors.Is(err, bugline.ErrItemNotFound) {
		return nil, err
	}

	tag := domain.NewTag(cmd.Name)
	if err := uow.Tags().Add(ctx, tag); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(tag)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return tag.ID, nil
}

func addTag(ctx context.Context, cmd AddTag, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	// The tag must exist before it can be attached.
	if _, err := uow.Tags().Get(ctx, cmd.TagID); err != nil {
		return nil, err
	}
	bug, err := uow.Bugs().Get(ctx, cmd.BugID)
	if err != nil {
		return nil, err
	}
	if err := bug.AddTag(cmd.TagID); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func removeTag(ctx context.Context, cmd RemoveTag, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	bug, err := uow.Bugs().Get(ctx, cmd.BugID)
	if err != nil {
		return nil, err
	}
	if err := bug.RemoveTag(cmd.TagID); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(bug)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}
