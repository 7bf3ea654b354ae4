package domain

import (
	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

// User is an aggregate root representing an account that can report
// bugs, comment, and vote. Password and security answer are stored as
// encoded hashes; the domain never sees plaintext.
type User struct {
	bugline.AggregateBase
	Entity

	Username           string
	Email              string
	PasswordHash       string
	UserType           UserType
	Status             RecordStatus
	IsAdmin            bool
	SecurityQuestion   string
	SecurityAnswerHash string
}

// NewUser creates an active user and records UserCreated.
func NewUser(username, email, passwordHash string, userType UserType, isAdmin bool, securityQuestion, securityAnswerHash string) *User {
	u := &User{
		Entity:             newEntity(),
		Username:           username,
		Email:              email,
		PasswordHash:       passwordHash,
		UserType:           userType,
		Status:             RecordStatusActive,
		IsAdmin:            isAdmin,
		SecurityQuestion:   securityQuestion,
		SecurityAnswerHash: securityAnswerHash,
	}
	u.Record(UserCreated{
		UserID:             u.ID,
		Username:           username,
		Email:              email,
		PasswordHash:       passwordHash,
		UserType:           userType,
		Status:             RecordStatusActive,
		IsAdmin:            isAdmin,
		SecurityQuestion:   securityQuestion,
		SecurityAnswerHash: securityAnswerHash,
	})
	return u
}

// UserPatch holds the optional field updates for User.Update. Nil
// fields are left unchanged.
type UserPatch struct {
	Username           *string
	Email              *string
	PasswordHash       *string
	UserType           *UserType
	IsAdmin            *bool
	SecurityQuestion   *string
	SecurityAnswerHash *string
}

func (p UserPatch) empty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil &&
		p.UserType == nil && p.IsAdmin == nil &&
		p.SecurityQuestion == nil && p.SecurityAnswerHash == nil
}

// Update applies the non-nil fields of the patch and records
// UserUpdated. Updating a deleted user fails with ErrItemNotFound.
// An empty patch is a no-op and records nothing.
func (u *User) Update(p UserPatch) error {
	if u.Status == RecordStatusDeleted {
		return bugline.NewNotFoundError("user", u.ID)
	}
	if p.empty() {
		return nil
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.UserType != nil {
		u.UserType = *p.UserType
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.SecurityQuestion != nil {
		u.SecurityQuestion = *p.SecurityQuestion
	}
	if p.SecurityAnswerHash != nil {
		u.SecurityAnswerHash = *p.SecurityAnswerHash
	}
	u.touch()
	u.Record(UserUpdated{
		UserID:             u.ID,
		Username:           p.Username,
		Email:              p.Email,
		PasswordHash:       p.PasswordHash,
		UserType:           p.UserType,
		IsAdmin:            p.IsAdmin,
		SecurityQuestion:   p.SecurityQuestion,
		SecurityAnswerHash: p.SecurityAnswerHash,
	})
	return nil
}

// SoftDelete marks the user deleted and records UserSoftDeleted.
// Deleting twice fails with ErrItemNotFound.
func (u *User) SoftDelete() error {
	if u.Status == RecordStatusDeleted {
		return bugline.NewNotFoundError("user", u.ID)
	}
	u.Status = RecordStatusDeleted
	u.touch()
	u.Record(UserSoftDeleted{UserID: u.ID})
	return nil
}

// RehashPassword swaps the stored hash for a freshly computed one.
// Hash maintenance is not domain-significant, so no event is recorded.
func (u *User) RehashPassword(passwordHash string) {
	u.PasswordHash = passwordHash
	u.touch()
}

// Deleted reports whether the user has been soft-deleted.
func (u *User) Deleted() bool {
	return u.Status == RecordStatusDeleted
}

// Clone returns a deep copy with an empty pending-event queue.
func (u *User) Clone() *User {
	c := *u
	c.AggregateBase = bugline.AggregateBase{}
	return &c
}

// ReplayUser rebuilds a user's state from its event history. The
// pending-event queue of the result is empty.
func ReplayUser(id uuid.UUID, events []bugline.Event) (*User, error) {
	u := &User{Entity: Entity{ID: id}}
	for _, ev := range events {
		if err := ApplyUserEvent(u, ev); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ApplyUserEvent merges an event's fields into the target user.
// Fields absent from the event (nil on update variants) are left
// untouched. Used for replay and testing, not live dispatch.
func ApplyUserEvent(u *User, ev bugline.Event) error {
	switch e := ev.(type) {
	case UserCreated:
		u.ID = e.UserID
		u.Username = e.Username
		u.Email = e.Email
		u.PasswordHash = e.PasswordHash
		u.UserType = e.UserType
		u.Status = e.Status
		u.IsAdmin = e.IsAdmin
		u.SecurityQuestion = e.SecurityQuestion
		u.SecurityAnswerHash = e.SecurityAnswerHash
	case UserUpdated:
		if e.Username != nil {
			u.Username = *e.Username
		}
		if e.Email != nil {
			u.Email = *e.Email
		}
		if e.PasswordHash != nil {
			u.PasswordHash = *e.PasswordHash
		}
		if e.UserType != nil {
			u.UserType = *e.UserType
		}
		if e.IsAdmin != nil {
			u.IsAdmin = *e.IsAdmin
		}
		if e.SecurityQuestion != nil {
			u.SecurityQuestion = *e.SecurityQuestion
		}
		if e.SecurityAnswerHash != nil {
			u.SecurityAnswerHash = *e.SecurityAnswerHash
		}
	case UserSoftDeleted:
		u.Status = RecordStatusDeleted
	default:
		return bugline.ErrUnknownMessage
	}
	return nil
}
