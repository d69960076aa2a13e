package round

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProposal_VotingPeriodBoundary(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)

	d := weekDraft(ChangeBaseFee, "5", "20")
	d.VotingPeriod = 604799
	_, err := s.CreateProposal(alice, d, t0)
	require.ErrorIs(t, err, ErrInvalidVotingPeriod)
	assert.Empty(t, s.Proposals)

	d.VotingPeriod = 604800
	id, err := s.CreateProposal(alice, d, t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	p, ok := s.Proposal(id)
	require.True(t, ok)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, t0, p.StartTime)
	assert.Equal(t, t0+604800, p.EndTime)
	assert.Empty(t, p.Votes)
}

func TestCreateProposal_IDsIncrease(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)
	for want := uint64(0); want < MaxProposals; want++ {
		id, err := s.CreateProposal(alice, weekDraft(ChangeTimeLimit, "60"), t0)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	before := s.Clone()
	_, err := s.CreateProposal(alice, weekDraft(ChangeTimeLimit, "60"), t0)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, s)
}

func TestCreateProposal_Rejects(t *testing.T) {
	long := func(n int) string { return strings.Repeat("x", n) }
	tests := []struct {
		name     string
		proposer Identity
		mutate   func(*ProposalDraft)
		want     error
	}{
		{"non depositor", bob, func(*ProposalDraft) {}, ErrNotAParticipant},
		{"fourth option", alice, func(d *ProposalDraft) { d.Options = []string{"a", "b", "c", "d"} }, ErrCapacityExceeded},
		{"no options", alice, func(d *ProposalDraft) { d.Options = nil }, ErrNoOptions},
		{"option too long", alice, func(d *ProposalDraft) { d.Options = []string{long(MaxOptionLen + 1)} }, ErrFieldTooLong},
		{"title too long", alice, func(d *ProposalDraft) { d.Title = long(MaxTitleLen + 1) }, ErrFieldTooLong},
		{"description too long", alice, func(d *ProposalDraft) { d.Description = long(MaxDescriptionLen + 1) }, ErrFieldTooLong},
		{"unknown type", alice, func(d *ProposalDraft) { d.Type = ProposalType(9) }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)
			d := weekDraft(ChangeAiModeration, "on", "off")
			tt.mutate(&d)
			before := s.Clone()

			_, err := s.CreateProposal(tt.proposer, d, t0)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s)
		})
	}
}

func TestCastVote(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 100, bob: 300}, alice, bob)
	id, err := s.CreateProposal(alice, weekDraft(ChangeBaseFee, "5", "20"), t0)
	require.NoError(t, err)

	require.NoError(t, s.CastVote(bob, id, 1, t0+10))
	p, _ := s.Proposal(id)
	require.Len(t, p.Votes, 1)
	assert.Equal(t, Vote{Voter: bob, OptionIndex: 1, VotingPower: 300}, p.Votes[0])

	// power is snapshotted
	require.NoError(t, s.AddDeposit(bob, 1000, t0+20))
	p, _ = s.Proposal(id)
	assert.Equal(t, uint64(300), p.Votes[0].VotingPower)
}

func TestCastVote_AlreadyVotedLeavesTally(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 100}, alice)
	id, err := s.CreateProposal(alice, weekDraft(ChangeBaseFee, "5", "20"), t0)
	require.NoError(t, err)
	require.NoError(t, s.CastVote(alice, id, 0, t0))

	p, _ := s.Proposal(id)
	tallyBefore, totalBefore := p.Tally()

	require.ErrorIs(t, s.CastVote(alice, id, 1, t0), ErrAlreadyVoted)
	p, _ = s.Proposal(id)
	tally, total := p.Tally()
	assert.Equal(t, tallyBefore, tally)
	assert.Equal(t, totalBefore, total)
}

func TestCastVote_Rejects(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 100, bob: 5}, alice, bob)
	id, err := s.CreateProposal(alice, weekDraft(ChangeBaseFee, "5", "20"), t0)
	require.NoError(t, err)
	end := t0 + MinVotingPeriod

	tests := []struct {
		name   string
		voter  Identity
		id     uint64
		option int
		now    uint64
		want   error
	}{
		{"non depositor", carol, id, 0, t0, ErrNotAParticipant},
		{"unknown proposal", alice, 42, 0, t0, ErrProposalNotFound},
		{"after end", alice, id, 0, end + 1, ErrVotingPeriodEnded},
		{"option out of range", alice, id, 2, t0, ErrInvalidOptionIndex},
		{"negative option", alice, id, -1, t0, ErrInvalidOptionIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Clone()
			require.ErrorIs(t, s.CastVote(tt.voter, tt.id, tt.option, tt.now), tt.want)
			assert.Equal(t, before, s)
		})
	}

	// voting exactly at end_time is still allowed
	require.NoError(t, s.CastVote(bob, id, 0, end))
}

func TestCastVote_NotActive(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 100, bob: 5}, alice, bob)
	id, err := s.CreateProposal(alice, weekDraft(ChangeBaseFee, "5"), t0)
	require.NoError(t, err)
	s.Proposals[0].Status = StatusExecuted

	require.ErrorIs(t, s.CastVote(bob, id, 0, t0), ErrProposalNotActive)
}

func TestCastVote_Capacity(t *testing.T) {
	s := newTestRound(t)
	for i := 0; i <= MaxVotesPerProposal; i++ {
		require.NoError(t, s.AddDeposit(Identity(fmt.Sprintf("V%d", i)), 1, t0))
	}
	id, err := s.CreateProposal("V0", weekDraft(ChangeTimeLimit, "60"), t0)
	require.NoError(t, err)
	for i := 0; i < MaxVotesPerProposal; i++ {
		require.NoError(t, s.CastVote(Identity(fmt.Sprintf("V%d", i)), id, 0, t0))
	}
	require.ErrorIs(t, s.CastVote(Identity(fmt.Sprintf("V%d", MaxVotesPerProposal)), id, 0, t0), ErrCapacityExceeded)
}

func TestProposalTypeText(t *testing.T) {
	for typ := range proposalTypeNames {
		b, err := typ.MarshalText()
		require.NoError(t, err)
		var back ProposalType
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, typ, back)
	}
	_, err := ParseProposalType("raise_taxes")
	assert.Error(t, err)
}
