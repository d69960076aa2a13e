package round

import "errors"

var (
	ErrNotAParticipant     = errors.New("not a participant")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrInvalidVotingPeriod = errors.New("invalid voting period")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrProposalNotActive   = errors.New("proposal is not active")
	ErrVotingPeriodEnded   = errors.New("voting period has ended")
	ErrInvalidOptionIndex  = errors.New("invalid option index")
	ErrAlreadyVoted        = errors.New("already voted")
	ErrTimeoutNotReached   = errors.New("timeout not reached")
	ErrRoundNotActive      = errors.New("round is not active")
	ErrUnauthorizedAccess  = errors.New("unauthorized access")
	ErrFieldTooLong        = errors.New("field too long")

	ErrNoOptions           = errors.New("proposal needs at least one option")
	ErrInvalidContentIndex = errors.New("invalid content index")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAmountOverflow      = errors.New("amount overflow")
	ErrInvalidConfig       = errors.New("invalid round config")
)
