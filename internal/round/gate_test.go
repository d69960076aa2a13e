package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateToggle(t *testing.T) {
	g := Gate{Controller: "ADMIN", Enforce: true}
	s := newTestRound(t)

	require.ErrorIs(t, g.Toggle(s, owner), ErrUnauthorizedAccess)
	require.ErrorIs(t, g.Toggle(s, ""), ErrUnauthorizedAccess)
	assert.True(t, s.Active)

	require.NoError(t, g.Toggle(s, "ADMIN"))
	assert.False(t, s.Active)
	require.ErrorIs(t, g.Check(s), ErrRoundNotActive)

	require.NoError(t, g.Toggle(s, "ADMIN"))
	require.NoError(t, g.Check(s))
}

func TestGateToggle_OwnerWhenNoController(t *testing.T) {
	g := Gate{}
	s := newTestRound(t)

	require.ErrorIs(t, g.Toggle(s, alice), ErrUnauthorizedAccess)
	require.NoError(t, g.Toggle(s, owner))
	assert.False(t, s.Active)
}

func TestGateCheck_NotEnforced(t *testing.T) {
	s := newTestRound(t)
	s.Active = false
	assert.NoError(t, Gate{}.Check(s))
}
