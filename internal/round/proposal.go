package round

import (
	"fmt"
	"math"
)

// ProposalDraft carries the caller-supplied fields of a new proposal.
type ProposalDraft struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Type         ProposalType `json:"type"`
	Options      []string     `json:"options"`
	VotingPeriod uint64       `json:"voting_period"`
}

func (d ProposalDraft) validate(now uint64) error {
	if d.VotingPeriod < MinVotingPeriod {
		return fmt.Errorf("%w: %ds is shorter than %ds", ErrInvalidVotingPeriod, d.VotingPeriod, MinVotingPeriod)
	}
	if d.VotingPeriod > math.MaxUint64-now {
		return fmt.Errorf("%w: %ds overflows the clock", ErrInvalidVotingPeriod, d.VotingPeriod)
	}
	if _, ok := proposalTypeNames[d.Type]; !ok {
		return fmt.Errorf("%w: unknown proposal type %d", ErrInvalidConfig, uint8(d.Type))
	}
	if err := checkLen("title", d.Title, MaxTitleLen); err != nil {
		return err
	}
	if err := checkLen("description", d.Description, MaxDescriptionLen); err != nil {
		return err
	}
	if len(d.Options) == 0 {
		return ErrNoOptions
	}
	if len(d.Options) > MaxOptions {
		return fmt.Errorf("%w: options (max %d)", ErrCapacityExceeded, MaxOptions)
	}
	for i, o := range d.Options {
		if err := checkLen(fmt.Sprintf("option %d", i), o, MaxOptionLen); err != nil {
			return err
		}
	}
	return nil
}

// CreateProposal validates the draft, stores it as Active and returns its id.
func (s *RoundState) CreateProposal(proposer Identity, d ProposalDraft, now uint64) (uint64, error) {
	if !s.IsDepositor(proposer) {
		return 0, fmt.Errorf("%w: %s", ErrNotAParticipant, proposer)
	}
	if err := d.validate(now); err != nil {
		return 0, err
	}
	if err := checkCapacity("proposals", len(s.Proposals), MaxProposals); err != nil {
		return 0, err
	}

	id := s.NextProposalID
	s.Proposals = append(s.Proposals, Proposal{
		ID:          id,
		Proposer:    proposer,
		Title:       d.Title,
		Description: d.Description,
		Type:        d.Type,
		Options:     append([]string(nil), d.Options...),
		StartTime:   now,
		EndTime:     now + d.VotingPeriod,
		Votes:       []Vote{},
		Status:      StatusActive,
	})
	s.NextProposalID++
	return id, nil
}

// CastVote records a final vote weighted by the voter's current stake.
func (s *RoundState) CastVote(voter Identity, proposalID uint64, optionIndex int, now uint64) error {
	power, err := s.VotingPower(voter)
	if err != nil {
		return err
	}
	p := s.proposal(proposalID)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	if p.Status != StatusActive {
		return fmt.Errorf("%w: %d is %s", ErrProposalNotActive, proposalID, p.Status)
	}
	if now > p.EndTime {
		return fmt.Errorf("%w: %d ended at %d", ErrVotingPeriodEnded, proposalID, p.EndTime)
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return fmt.Errorf("%w: %d", ErrInvalidOptionIndex, optionIndex)
	}
	for _, v := range p.Votes {
		if v.Voter == voter {
			return fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, voter, proposalID)
		}
	}
	if err := checkCapacity("votes", len(p.Votes), MaxVotesPerProposal); err != nil {
		return err
	}

	p.Votes = append(p.Votes, Vote{
		Voter:       voter,
		OptionIndex: uint8(optionIndex),
		VotingPower: power,
	})
	return nil
}

// Proposal looks up a proposal by id.
func (s *RoundState) Proposal(id uint64) (Proposal, bool) {
	if p := s.proposal(id); p != nil {
		return *p, true
	}
	return Proposal{}, false
}

func (s *RoundState) proposal(id uint64) *Proposal {
	for i := range s.Proposals {
		if s.Proposals[i].ID == id {
			return &s.Proposals[i]
		}
	}
	return nil
}

// Tally sums voting power per option.
func (p *Proposal) Tally() (perOption []uint64, total uint64) {
	perOption = make([]uint64, len(p.Options))
	for _, v := range p.Votes {
		if int(v.OptionIndex) >= len(perOption) {
			continue
		}
		perOption[v.OptionIndex] += v.VotingPower
		total += v.VotingPower
	}
	return perOption, total
}
