package round

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDeposit(t *testing.T) {
	s := newTestRound(t)

	require.NoError(t, s.AddDeposit(alice, 100, t0+5))
	require.NoError(t, s.AddDeposit(bob, 300, t0+6))

	assert.Equal(t, uint64(400), s.TotalDeposit)
	require.Len(t, s.Depositors, 2)
	assert.Equal(t, Depositor{Identity: alice, Amount: 100, DepositedAt: t0 + 5, LockedUntil: t0 + 5 + 3600}, s.Depositors[0])
	assert.Equal(t, s.DepositSum(), s.TotalDeposit)
}

func TestAddDeposit_TopUpKeepsOneEntry(t *testing.T) {
	s := newTestRound(t)
	require.NoError(t, s.AddDeposit(alice, 100, t0))
	require.NoError(t, s.AddDeposit(alice, 50, t0+10))

	require.Len(t, s.Depositors, 1)
	assert.Equal(t, uint64(150), s.Depositors[0].Amount)
	assert.Equal(t, t0+10+3600, s.Depositors[0].LockedUntil)
	assert.Equal(t, uint64(150), s.TotalDeposit)
}

func TestAddDeposit_Capacity(t *testing.T) {
	s := newTestRound(t)
	for i := 0; i < MaxDepositors; i++ {
		require.NoError(t, s.AddDeposit(Identity(fmt.Sprintf("D%d", i)), 1, t0))
	}
	before := s.Clone()

	err := s.AddDeposit("LATE", 1, t0)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, s)

	// existing identities can still top up
	require.NoError(t, s.AddDeposit("D3", 1, t0))
}

func TestAddDeposit_Rejects(t *testing.T) {
	s := newTestRound(t)
	require.ErrorIs(t, s.AddDeposit(alice, 0, t0), ErrInvalidAmount)

	require.NoError(t, s.AddDeposit(alice, math.MaxUint64-1, t0))
	require.ErrorIs(t, s.AddDeposit(bob, 2, t0), ErrAmountOverflow)
	assert.Len(t, s.Depositors, 1)
}

func TestVotingPower(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 70}, alice)

	power, err := s.VotingPower(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), power)

	_, err = s.VotingPower(bob)
	require.ErrorIs(t, err, ErrNotAParticipant)
}
