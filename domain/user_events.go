package domain

import (
	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

// User event names.
const (
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserSoftDeleted = "user.soft_deleted"
)

// UserCreated is emitted when a new account is registered. Credential
// fields carry encoded hashes, never plaintext.
type UserCreated struct {
	UserID             uuid.UUID
	Username           string
	Email              string
	PasswordHash       string
	UserType           UserType
	Status             RecordStatus
	IsAdmin            bool
	SecurityQuestion   string
	SecurityAnswerHash string
}

// EventName returns "user.created".
func (UserCreated) EventName() string { return EventUserCreated }

// Payload returns the stored representation of the event.
func (e UserCreated) Payload() map[string]any {
	return map[string]any{
		"user_id":              e.UserID.String(),
		"username":             e.Username,
		"email":                e.Email,
		"password_hash":        e.PasswordHash,
		"user_type":            string(e.UserType),
		"status":               string(e.Status),
		"is_admin":             e.IsAdmin,
		"security_question":    e.SecurityQuestion,
		"security_answer_hash": e.SecurityAnswerHash,
	}
}

// UserUpdated is emitted when account fields change. Nil fields were
// not part of the update and are omitted from the payload.
type UserUpdated struct {
	UserID             uuid.UUID
	Username           *string
	Email              *string
	PasswordHash       *string
	UserType           *UserType
	IsAdmin            *bool
	SecurityQuestion   *string
	SecurityAnswerHash *string
}

// EventName returns "user.updated".
func (UserUpdated) EventName() string { return EventUserUpdated }

// Payload returns the stored representation of the event.
func (e UserUpdated) Payload() map[string]any {
	m := map[string]any{
		"user_id": e.UserID.String(),
	}
	if e.Username != nil {
		m["username"] = *e.Username
	}
	if e.Email != nil {
		m["email"] = *e.Email
	}
	if e.PasswordHash != nil {
		m["password_hash"] = *e.PasswordHash
	}
	if e.UserType != nil {
		m["user_type"] = string(*e.UserType)
	}
	if e.IsAdmin != nil {
		m["is_admin"] = *e.IsAdmin
	}
	if e.SecurityQuestion != nil {
		m["security_question"] = *e.SecurityQuestion
	}
	if e.SecurityAnswerHash != nil {
		m["security_answer_hash"] = *e.SecurityAnswerHash
	}
	return m
}

// UserSoftDeleted is emitted when an account is soft-deleted.
type UserSoftDeleted struct {
	UserID uuid.UUID
}

// EventName returns "user.soft_deleted".
func (UserSoftDeleted) EventName() string { return EventUserSoftDeleted }

// Payload returns the stored representation of the event.
func (e UserSoftDeleted) Payload() map[string]any {
	return map[string]any{
		"user_id": e.UserID.String(),
		"status":  string(RecordStatusDeleted),
	}
}

func decodeUserCreated(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "user_id")
	if err != nil {
		return nil, err
	}
	username, err := payloadString(m, "username")
	if err != nil {
		return nil, err
	}
	email, err := payloadString(m, "email")
	if err != nil {
		return nil, err
	}
	passwordHash, err := payloadString(m, "password_hash")
	if err != nil {
		return nil, err
	}
	userType, err := payloadString(m, "user_type")
	if err != nil {
		return nil, err
	}
	status, err := payloadString(m, "status")
	if err != nil {
		return nil, err
	}
	isAdmin, err := payloadBool(m, "is_admin")
	if err != nil {
		return nil, err
	}
	question, err := payloadString(m, "security_question")
	if err != nil {
		return nil, err
	}
	answerHash, err := payloadString(m, "security_answer_hash")
	if err != nil {
		return nil, err
	}
	return UserCreated{
		UserID:             id,
		Username:           username,
		Email:              email,
		PasswordHash:       passwordHash,
		UserType:           UserType(userType),
		Status:             RecordStatus(status),
		IsAdmin:            isAdmin,
		SecurityQuestion:   question,
		SecurityAnswerHash: answerHash,
	}, nil
}

func decodeUserUpdated(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "user_id")
	if err != nil {
		return nil, err
	}
	ev := UserUpdated{
		UserID:             id,
		Username:           payloadOptString(m, "username"),
		Email:              payloadOptString(m, "email"),
		PasswordHash:       payloadOptString(m, "password_hash"),
		SecurityQuestion:   payloadOptString(m, "security_question"),
		SecurityAnswerHash: payloadOptString(m, "security_answer_hash"),
	}
	if s := payloadOptString(m, "user_type"); s != nil {
		t := UserType(*s)
		ev.UserType = &t
	}
	if _, ok := m["is_admin"]; ok {
		admin, err := payloadBool(m, "is_admin")
		if err != nil {
			return nil, err
		}
		ev.IsAdmin = &admin
	}
	return ev, nil
}

func decodeUserSoftDeleted(m map[string]any) (bugline.Event, error) {
	id, err := payloadUUID(m, "user_id")
	if err != nil {
		return nil, err
	}
	return UserSoftDeleted{UserID: id}, nil
}
