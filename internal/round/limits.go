package round

import (
	"fmt"
	"math"
)

// Storage quotas. Settlement scans are linear in these bounds.
const (
	MaxDepositors       = 10
	MaxContents         = 5
	MaxProposals        = 3
	MaxVotesPerProposal = 5
	MaxOptions          = 3
	MaxEndorsements     = MaxDepositors

	MaxNameLen        = 32
	MaxTextLen        = 64
	MaxMediaURILen    = 64
	MaxTitleLen       = 16
	MaxDescriptionLen = 32
	MaxOptionLen      = 8

	// MinVotingPeriod is one week in seconds.
	MinVotingPeriod uint64 = 7 * 24 * 60 * 60

	// ChallengeAmount is the fixed fee charged per content submission.
	ChallengeAmount uint64 = 100_000_000

	MaxPercent = 100

	// MaxTimestamp bounds timestamps and time limits so they fit a signed
	// 64-bit column.
	MaxTimestamp uint64 = math.MaxInt64
)

func checkCapacity(what string, n, max int) error {
	if n >= max {
		return fmt.Errorf("%w: %s (max %d)", ErrCapacityExceeded, what, max)
	}
	return nil
}

func checkLen(field, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrFieldTooLong, field, len(value), max)
	}
	return nil
}
