package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBugStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from BugStatus
		to   BugStatus
		want bool
	}{
		{"new to in_progress", BugStatusNew, BugStatusInProgress, true},
		{"new to resolved skips ahead", BugStatusNew, BugStatusResolved, true},
		{"ready to ready stays put", BugStatusReady, BugStatusReady, true},
		{"ready to in_progress moves back", BugStatusReady, BugStatusInProgress, false},
		{"resolved to new moves back", BugStatusResolved, BugStatusNew, false},
		{"unknown target", BugStatusNew, BugStatus("wontfix"), false},
		{"unknown source", BugStatus("triaged"), BugStatusReady, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, UserTypeQA.Valid())
	assert.False(t, UserType("intern").Valid())
	assert.True(t, EnvProd.Valid())
	assert.False(t, Environment("local").Valid())
	assert.True(t, UrgencyLow.Valid())
	assert.False(t, Urgency("critical").Valid())
	assert.True(t, RecordStatusDeleted.Valid())
	assert.False(t, RecordStatus("archived").Valid())
}
