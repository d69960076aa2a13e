package round

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const t0 uint64 = 1_700_000_000

const (
	owner Identity = "OWNER"
	alice Identity = "ALICE"
	bob   Identity = "BOB"
	carol Identity = "CAROL"
)

type move struct {
	From, To Identity
	Amount   uint64
}

type fakeFunds struct {
	moves []move
	err   error
}

func (f *fakeFunds) Transfer(_ context.Context, from, to Identity, amount uint64) error {
	if f.err != nil {
		return f.err
	}
	f.moves = append(f.moves, move{From: from, To: to, Amount: amount})
	return nil
}

var errNoFunds = errors.New("insufficient funds")

type fakeClock struct {
	sec uint64
}

func (c *fakeClock) Now() time.Time { return time.Unix(int64(c.sec), 0) }

func (c *fakeClock) Set(sec uint64) { c.sec = sec }

func defaultParams() InitParams {
	return InitParams{
		Name:                "memes",
		TimeLimit:           3600,
		BaseFeePercent:      10,
		DepositSharePercent: 50,
	}
}

func newTestRound(t *testing.T) *RoundState {
	t.Helper()
	s, err := NewRoundState(owner, defaultParams(), t0)
	require.NoError(t, err)
	return s
}

// withDepositors returns a round where each identity staked the matching amount.
func withDepositors(t *testing.T, stakes map[Identity]uint64, order ...Identity) *RoundState {
	t.Helper()
	s := newTestRound(t)
	for _, id := range order {
		require.NoError(t, s.AddDeposit(id, stakes[id], t0))
	}
	return s
}

func weekDraft(typ ProposalType, options ...string) ProposalDraft {
	return ProposalDraft{
		Title:        "change",
		Description:  "vote on it",
		Type:         typ,
		Options:      options,
		VotingPeriod: MinVotingPeriod,
	}
}
