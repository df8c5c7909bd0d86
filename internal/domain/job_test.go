package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_Defaults(t *testing.T) {
	j := NewJob("create a git aliases skill", "", "user-1", time.Hour)
	assert.Equal(t, StatusPending, j.Status)
	assert.True(t, j.ExpiresAt.After(j.CreatedAt))
	assert.NotEmpty(t, j.ID)
}

func TestGenerateID_Unique(t *testing.T) {
	a := GenerateID("job")
	b := GenerateID("job")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "job_")
}

func TestJob_Transition_LegalPath(t *testing.T) {
	j := NewJob("t", "", "", time.Hour)
	require.NoError(t, j.Transition(StatusRunning))
	require.NoError(t, j.Transition(StatusPendingHITL))
	require.NoError(t, j.Transition(StatusRunning))
	require.NoError(t, j.Transition(StatusCompleted))
}

func TestJob_Transition_IllegalFromPending(t *testing.T) {
	j := NewJob("t", "", "", time.Hour)
	err := j.Transition(StatusCompleted)
	assert.Error(t, err)
	assert.Equal(t, StatusPending, j.Status)
}

func TestJob_Transition_TerminalIsSink(t *testing.T) {
	j := NewJob("t", "", "", time.Hour)
	require.NoError(t, j.Transition(StatusRunning))
	require.NoError(t, j.Transition(StatusFailed))
	err := j.Transition(StatusRunning)
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, j.Status)
}

func TestNormalizeAction_UnknownFallsBackToProceed(t *testing.T) {
	assert.Equal(t, ActionProceed, NormalizeAction("whatever"))
	assert.Equal(t, ActionRevise, NormalizeAction("revise"))
	assert.Equal(t, ActionCancel, NormalizeAction("cancel"))
}
