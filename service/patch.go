package service

import (
	"github.com/bugline/bugline/domain"
)

func domainNewUser(cmd CreateUser, passwordHash, answerHash string) *domain.User {
	return domain.NewUser(
		cmd.Username,
		cmd.Email,
		passwordHash,
		cmd.UserType,
		cmd.IsAdmin,
		cmd.SecurityQuestion,
		answerHash,
	)
}

// userPatchOf converts the command's optional fields into a domain
// patch, hashing the credential fields on the way through.
func userPatchOf(cmd UpdateUser, hasher PasswordHasher) (domain.UserPatch, error) {
	p := domain.UserPatch{
		Username:         cmd.Username,
		Email:            cmd.Email,
		UserType:         cmd.UserType,
		IsAdmin:          cmd.IsAdmin,
		SecurityQuestion: cmd.SecurityQuestion,
	}
	if cmd.Password != nil {
		hash, err := hasher.Hash(*cmd.Password)
		if err != nil {
			return domain.UserPatch{}, err
		}
		p.PasswordHash = &hash
	}
	if cmd.SecurityAnswer != nil {
		hash, err := hasher.Hash(*cmd.SecurityAnswer)
		if err != nil {
			return domain.UserPatch{}, err
		}
		p.SecurityAnswerHash = &hash
	}
	return p, nil
}

func bugPatchOf(cmd UpdateBug) domain.BugPatch {
	return domain.BugPatch{
		Title:       cmd.Title,
		AssigneeID:  cmd.AssigneeID,
		Description: cmd.Description,
		Environment: cmd.Environment,
		Urgency:     cmd.Urgency,
		Status:      cmd.Status,
		Images:      cmd.Images,
	}
}
