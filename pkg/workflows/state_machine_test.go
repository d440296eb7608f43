package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachine(t *testing.T) {
	sm := NewStateMachine(map[string][]string{
		"pending":  {"approved", "rejected"},
		"approved": {},
		"rejected": {},
	})

	assert.True(t, sm.CanTransition("pending", "approved"))
	assert.True(t, sm.CanTransition("pending", "rejected"))
	assert.False(t, sm.CanTransition("approved", "rejected"))
	assert.False(t, sm.CanTransition("unknown", "approved"))

	assert.NoError(t, sm.Transition("pending", "rejected"))
	assert.Error(t, sm.Transition("rejected", "pending"))

	assert.ElementsMatch(t, []string{"approved", "rejected"}, sm.GetAllowedTransitions("pending"))
	assert.Empty(t, sm.GetAllowedTransitions("unknown"))

	assert.True(t, sm.IsTerminal("approved"))
	assert.False(t, sm.IsTerminal("pending"))
	assert.False(t, sm.IsTerminal("unknown"))
}
