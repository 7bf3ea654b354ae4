package domain

// UserType classifies the engineering role of a user.
type UserType string

// User types.
const (
	UserTypeBackend  UserType = "backend"
	UserTypeFrontend UserType = "frontend"
	UserTypeDevOps   UserType = "devops"
	UserTypeQA       UserType = "qa"
	UserTypePM       UserType = "pm"
)

// Valid reports whether the value is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeBackend, UserTypeFrontend, UserTypeDevOps, UserTypeQA, UserTypePM:
		return true
	}
	return false
}

// Environment identifies where a bug was observed.
type Environment string

// Environments.
const (
	EnvCI      Environment = "ci"
	EnvCD      Environment = "cd"
	EnvDev     Environment = "development"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "production"
)

// Valid reports whether the value is a known environment.
func (e Environment) Valid() bool {
	switch e {
	case EnvCI, EnvCD, EnvDev, EnvStaging, EnvProd:
		return true
	}
	return false
}

// Urgency grades how quickly a bug needs attention.
type Urgency string

// Urgencies.
const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether the value is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// BugStatus is the workflow state of a bug report.
// The workflow moves forward only: new → in_progress → ready → resolved.
type BugStatus string

// Bug statuses, in workflow order.
const (
	BugStatusNew        BugStatus = "new"
	BugStatusInProgress BugStatus = "in_progress"
	BugStatusReady      BugStatus = "ready"
	BugStatusResolved   BugStatus = "resolved"
)

// Valid reports whether the value is a known bug status.
func (s BugStatus) Valid() bool {
	return s.order() >= 0
}

func (s BugStatus) order() int {
	switch s {
	case BugStatusNew:
		return 0
	case BugStatusInProgress:
		return 1
	case BugStatusReady:
		return 2
	case BugStatusResolved:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether the workflow allows moving from s to
// next. Staying put is allowed; moving backwards is not.
func (s BugStatus) CanTransitionTo(next BugStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.order() >= s.order()
}

// RecordStatus is the soft-delete state of a record.
// active → deleted is terminal and monotonic.
type RecordStatus string

// Record statuses.
const (
	RecordStatusActive  RecordStatus = "active"
	RecordStatusDeleted RecordStatus = "deleted"
)

// Valid reports whether the value is a known record status.
func (s RecordStatus) Valid() bool {
	return s == RecordStatusActive || s == RecordStatusDeleted
}
