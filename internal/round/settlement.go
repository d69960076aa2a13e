package round

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// ConfigChanges are the config values staged by proposal resolution. Nil
// fields were not changed.
type ConfigChanges struct {
	TimeLimit      *uint64 `json:"time_limit,omitempty"`
	BaseFeePercent *uint64 `json:"base_fee_percent,omitempty"`
	AiModeration   *bool   `json:"ai_moderation,omitempty"`
}

func (c ConfigChanges) Empty() bool {
	return c.TimeLimit == nil && c.BaseFeePercent == nil && c.AiModeration == nil
}

// Resolution describes what happened to one expired proposal.
type Resolution struct {
	ProposalID    uint64         `json:"proposal_id"`
	Type          ProposalType   `json:"type"`
	Status        ProposalStatus `json:"status"`
	TotalVotes    uint64         `json:"total_votes"`
	WinningOption int            `json:"winning_option"`
	WinningText   string         `json:"winning_text,omitempty"`
	Accepted      bool           `json:"accepted"`
}

// Reward is the split owed for the round's winning content. The engine only
// computes it; moving value is up to the funds-transfer collaborator.
type Reward struct {
	Winner        Identity `json:"winner"`
	ContentIndex  int      `json:"content_index"`
	VoteCount     uint64   `json:"vote_count"`
	TotalDeposit  uint64   `json:"total_deposit"`
	BaseFeeAmount uint64   `json:"base_fee_amount"`
	QualityShare  uint64   `json:"quality_share"`
}

// Settlement reports one process_timeout run.
type Settlement struct {
	Key         Key           `json:"key"`
	SettledAt   uint64        `json:"settled_at"`
	Resolutions []Resolution  `json:"resolutions"`
	Changes     ConfigChanges `json:"changes"`
	Reward      *Reward       `json:"reward,omitempty"`
	NextTimeout uint64        `json:"next_timeout"`
}

// ProcessTimeout settles the round: it resolves expired proposals, commits
// their staged config changes as one batch, computes the reward for the
// winning content and resets the round. It fails with ErrTimeoutNotReached,
// leaving s untouched, until now reaches the timeout.
func (s *RoundState) ProcessTimeout(now uint64) (*Settlement, error) {
	if now < s.TimeoutTimestamp {
		return nil, fmt.Errorf("%w: %d < %d", ErrTimeoutNotReached, now, s.TimeoutTimestamp)
	}

	out := &Settlement{Key: s.Key(), SettledAt: now}

	// Step 1: evaluate every expired proposal before committing anything.
	for i := range s.Proposals {
		p := &s.Proposals[i]
		if p.Status != StatusActive || now <= p.EndTime {
			continue
		}
		out.Resolutions = append(out.Resolutions, resolveProposal(p, &out.Changes))
	}
	for _, r := range out.Resolutions {
		s.proposal(r.ProposalID).Status = r.Status
	}
	if out.Changes.TimeLimit != nil {
		s.Config.TimeLimit = *out.Changes.TimeLimit
	}
	if out.Changes.BaseFeePercent != nil {
		s.Config.BaseFeePercent = *out.Changes.BaseFeePercent
	}
	if out.Changes.AiModeration != nil {
		s.Config.AiModeration = *out.Changes.AiModeration
	}

	// Step 2: reward for the winning content.
	if w := winningContent(s.Contents); w >= 0 {
		baseFee := mulPercent(s.TotalDeposit, s.Config.BaseFeePercent)
		out.Reward = &Reward{
			Winner:        s.Contents[w].Author,
			ContentIndex:  w,
			VoteCount:     s.Contents[w].VoteCount,
			TotalDeposit:  s.TotalDeposit,
			BaseFeeAmount: baseFee,
			QualityShare:  mulPercent(baseFee, uint64(s.Config.DepositSharePercent)),
		}
	}

	// Step 3: reset.
	s.TimeoutTimestamp = addClamp(now, s.Config.TimeLimit)
	s.TotalDeposit = 0
	s.Contents = nil
	for i := range s.Depositors {
		s.Depositors[i].Amount = 0
	}
	out.NextTimeout = s.TimeoutTimestamp
	return out, nil
}

// resolveProposal tallies p and stages its effect into changes. Later calls
// overwrite earlier staged values for the same field.
func resolveProposal(p *Proposal, changes *ConfigChanges) Resolution {
	res := Resolution{ProposalID: p.ID, Type: p.Type, WinningOption: -1}

	perOption, total := p.Tally()
	res.TotalVotes = total
	if total == 0 {
		res.Status = StatusCompleted
		return res
	}

	winner := firstMax(perOption)
	option := p.Options[winner]
	res.WinningOption = winner
	res.WinningText = option
	res.Status = StatusExecuted

	switch p.Type {
	case ChangeTimeLimit:
		if v, err := parseOption(option); err == nil && v <= MaxTimestamp {
			changes.TimeLimit = &v
			res.Accepted = true
		}
	case ChangeBaseFee:
		if v, err := parseOption(option); err == nil && v <= MaxPercent {
			changes.BaseFeePercent = &v
			res.Accepted = true
		}
	case ChangeAiModeration:
		on := strings.EqualFold(option, "on")
		changes.AiModeration = &on
		res.Accepted = true
	case ContentQualityRating:
		// scored elsewhere
	}
	return res
}

// parseOption reads an unsigned decimal option. One leading '+' is allowed.
func parseOption(option string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(option, "+"), 10, 64)
}

// firstMax returns the first index holding a value strictly greater than all
// values before it. Ties go to the lower index.
func firstMax(values []uint64) int {
	best, highest := 0, uint64(0)
	for i, v := range values {
		if v > highest {
			best, highest = i, v
		}
	}
	return best
}

// winningContent returns the index of the entry with the strictly greatest
// vote count, the first entry winning ties, or -1 when there is no content.
func winningContent(contents []ContentEntry) int {
	best := -1
	for i := range contents {
		if best < 0 || contents[i].VoteCount > contents[best].VoteCount {
			best = i
		}
	}
	return best
}

// mulPercent returns floor(amount * pct / 100) without intermediate overflow.
func mulPercent(amount, pct uint64) uint64 {
	if pct > MaxPercent {
		pct = MaxPercent
	}
	hi, lo := bits.Mul64(amount, pct)
	q, _ := bits.Div64(hi, lo, MaxPercent)
	return q
}

// addClamp returns now+d, saturating at MaxTimestamp.
func addClamp(now, d uint64) uint64 {
	if now > MaxTimestamp || d > MaxTimestamp-now {
		return MaxTimestamp
	}
	return now + d
}
