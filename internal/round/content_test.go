package round

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitContent_RefreshesDeadline(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)

	require.NoError(t, s.SubmitContent(alice, "gm", "ipfs://x", t0+1000))
	assert.Equal(t, t0+1000+3600, s.TimeoutTimestamp)

	require.NoError(t, s.SubmitContent(alice, "gm again", "", t0+2000))
	assert.Equal(t, t0+2000+3600, s.TimeoutTimestamp)

	require.Len(t, s.Contents, 2)
	e := s.Contents[0]
	assert.Equal(t, alice, e.Author)
	assert.Equal(t, uint64(0), e.VoteCount)
	assert.Equal(t, ChallengeAmount, e.ChallengeAmount)
	assert.Equal(t, t0+1000, e.SubmittedAt)
}

func TestSubmitContent_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		author Identity
		text   string
		uri    string
		want   error
	}{
		{"non depositor", bob, "hi", "", ErrNotAParticipant},
		{"text too long", alice, strings.Repeat("a", MaxTextLen+1), "", ErrFieldTooLong},
		{"uri too long", alice, "hi", strings.Repeat("u", MaxMediaURILen+1), ErrFieldTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)
			before := s.Clone()
			err := s.SubmitContent(tt.author, tt.text, tt.uri, t0+1)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s)
		})
	}
}

func TestSubmitContent_BoundaryLengthsAccepted(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)
	require.NoError(t, s.SubmitContent(alice, strings.Repeat("a", MaxTextLen), strings.Repeat("u", MaxMediaURILen), t0))
}

func TestSubmitContent_Capacity(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 10}, alice)
	for i := 0; i < MaxContents; i++ {
		require.NoError(t, s.SubmitContent(alice, fmt.Sprintf("c%d", i), "", t0))
	}
	before := s.Clone()
	require.ErrorIs(t, s.SubmitContent(alice, "one more", "", t0+50), ErrCapacityExceeded)
	assert.Equal(t, before, s)
}

func TestEndorseContent(t *testing.T) {
	s := withDepositors(t, map[Identity]uint64{alice: 10, bob: 20}, alice, bob)
	require.NoError(t, s.SubmitContent(alice, "a", "", t0))

	require.NoError(t, s.EndorseContent(bob, 0))
	require.NoError(t, s.EndorseContent(alice, 0))
	assert.Equal(t, uint64(2), s.Contents[0].VoteCount)

	require.ErrorIs(t, s.EndorseContent(bob, 0), ErrAlreadyVoted)
	require.ErrorIs(t, s.EndorseContent(carol, 0), ErrNotAParticipant)
	require.ErrorIs(t, s.EndorseContent(bob, 1), ErrInvalidContentIndex)
	require.ErrorIs(t, s.EndorseContent(bob, -1), ErrInvalidContentIndex)
	assert.Equal(t, uint64(2), s.Contents[0].VoteCount)
}
