package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bugline/bugline"
)

// LoginResult is the payload returned by a successful login.
type LoginResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshResult is the payload returned by a successful token refresh.
type RefreshResult struct {
	Token string `json:"token"`
}

func createUser(ctx context.Context, cmd CreateUser, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	existing, err := uow.Users().GetByEmail(ctx, cmd.Email)
	if err != nil && !errors.Is(err, bugline.ErrItemNotFound) {
		return nil, err
	}
	if err == nil && !existing.Deleted() {
		return nil, bugline.NewDuplicateRecordError("user", "email", cmd.Email)
	}

	passwordHash, err := d.Hasher.Hash(cmd.Password)
	if err != nil {
		return nil, err
	}
	answerHash, err := d.Hasher.Hash(cmd.SecurityAnswer)
	if err != nil {
		return nil, err
	}

	user := domainNewUser(cmd, passwordHash, answerHash)
	if err := uow.Users().Add(ctx, user); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(user)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return user.ID, nil
}

func updateUser(ctx context.Context, cmd UpdateUser, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	user, err := uow.Users().Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	patch, err := userPatchOf(cmd, d.Hasher)
	if err != nil {
		return nil, err
	}
	if err := user.Update(patch); err != nil {
		return nil, err
	}
	if user.HasPendingEvents() {
		rec, err := bugline.RecordOf(user)
		if err != nil {
			return nil, err
		}
		uow.EventStore().Add(rec)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return user.ID, nil
}

func softDeleteUser(ctx context.Context, cmd SoftDeleteUser, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	user, err := uow.Users().Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	// Deleting an already deleted account is a no-op, not an error.
	if user.Deleted() {
		return nil, nil
	}

	if err := user.SoftDelete(); err != nil {
		return nil, err
	}
	rec, err := bugline.RecordOf(user)
	if err != nil {
		return nil, err
	}
	uow.EventStore().Add(rec)

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func login(ctx context.Context, cmd Login, d Deps) (any, error) {
	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	user, err := uow.Users().GetByEmail(ctx, cmd.Email)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil, fmt.Errorf("%w: email or password is incorrect", bugline.ErrUnauthorized)
		}
		return nil, err
	}
	if err := d.Hasher.Verify(user.PasswordHash, cmd.Password); err != nil {
		return nil, fmt.Errorf("%w: email or password is incorrect", bugline.ErrUnauthorized)
	}
	if user.Deleted() {
		return nil, bugline.NewNotFoundError("user", user.ID)
	}

	// Transparent hash upgrade on successful verification.
	if d.Hasher.NeedsRehash(user.PasswordHash) {
		rehashed, err := d.Hasher.Hash(cmd.Password)
		if err == nil {
			user.RehashPassword(rehashed)
			if err := uow.Commit(ctx); err != nil {
				return nil, err
			}
		}
	}

	token, err := d.Tokens.IssueAccessToken(Claims{
		Subject:  user.ID,
		Email:    user.Email,
		UserType: user.UserType,
		Admin:    user.IsAdmin,
	})
	if err != nil {
		return nil, err
	}
	refresh, err := d.Tokens.IssueRefreshToken(user.ID, user.UserType)
	if err != nil {
		return nil, err
	}
	return LoginResult{Token: token, RefreshToken: refresh}, nil
}

func refreshToken(ctx context.Context, cmd RefreshToken, d Deps) (any, error) {
	if cmd.GrantType != GrantTypeRefresh {
		return nil, fmt.Errorf("%w: incorrect grant type", bugline.ErrForbidden)
	}

	userID, err := d.Tokens.ValidateRefreshToken(cmd.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bugline.ErrForbidden, err)
	}

	uow := d.UoW
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	user, err := uow.Users().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, bugline.ErrItemNotFound) {
			return nil, fmt.Errorf("%w: user not found", bugline.ErrForbidden)
		}
		return nil, err
	}
	if user.Deleted() {
		return nil, fmt.Errorf("%w: user is deleted", bugline.ErrForbidden)
	}

	token, err := d.Tokens.IssueAccessToken(Claims{
		Subject:  user.ID,
		Email:    user.Email,
		UserType: user.UserType,
		Admin:    user.IsAdmin,
	})
	if err != nil {
		return nil, err
	}
	return RefreshResult{Token: token}, nil
}
