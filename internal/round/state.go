// Package round implements the round lifecycle: stake bookkeeping, content
// competition, governance proposals, the active gate and settlement at expiry.
//
// All operations act on a single RoundState. Callers are expected to serialize
// operations per record; Engine makes each operation all-or-nothing.
package round

import (
	"fmt"
	"strings"
)

// Identity is an authenticated participant address.
type Identity string

// Key addresses a round record by owner and name.
type Key struct {
	Owner Identity `json:"owner"`
	Name  string   `json:"name"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Owner, k.Name)
}

// ParseKey parses "owner/name".
func ParseKey(s string) (Key, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" {
		return Key{}, fmt.Errorf("invalid round key %q: want owner/name", s)
	}
	return Key{Owner: Identity(owner), Name: name}, nil
}

// CustodyAccount is the identity that holds a round's deposits and fees.
func (k Key) CustodyAccount() Identity {
	return Identity("round:" + k.String())
}

type ProposalType uint8

const (
	ChangeTimeLimit ProposalType = iota
	ChangeBaseFee
	ChangeAiModeration
	ContentQualityRating
)

var proposalTypeNames = map[ProposalType]string{
	ChangeTimeLimit:      "change_time_limit",
	ChangeBaseFee:        "change_base_fee",
	ChangeAiModeration:   "change_ai_moderation",
	ContentQualityRating: "content_quality_rating",
}

func (t ProposalType) String() string {
	if s, ok := proposalTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("proposal_type(%d)", uint8(t))
}

// ParseProposalType accepts the snake_case names produced by String.
func ParseProposalType(s string) (ProposalType, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for t, name := range proposalTypeNames {
		if name == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown proposal type %q", s)
}

func (t ProposalType) MarshalText() ([]byte, error) {
	if _, ok := proposalTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown proposal type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ProposalType) UnmarshalText(b []byte) error {
	v, err := ParseProposalType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type ProposalStatus uint8

const (
	StatusActive ProposalStatus = iota
	StatusCompleted
	StatusExecuted
)

func (s ProposalStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusExecuted:
		return "executed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s ProposalStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ProposalStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*s = StatusActive
	case "completed":
		*s = StatusCompleted
	case "executed":
		*s = StatusExecuted
	default:
		return fmt.Errorf("unknown proposal status %q", string(b))
	}
	return nil
}

// RoundConfig holds the governable parameters of a round.
type RoundConfig struct {
	Name                string   `json:"name"`
	TimeLimit           uint64   `json:"time_limit"`
	BaseFeePercent      uint64   `json:"base_fee_percent"`
	FeeMultiplier       uint8    `json:"fee_multiplier"`
	AiModeration        bool     `json:"ai_moderation"`
	DepositSharePercent uint8    `json:"deposit_share_percent"`
	Owner               Identity `json:"owner"`
}

type Depositor struct {
	Identity    Identity `json:"identity"`
	Amount      uint64   `json:"amount"`
	DepositedAt uint64   `json:"deposited_at"`
	LockedUntil uint64   `json:"locked_until"`
}

type ContentEntry struct {
	Author          Identity   `json:"author"`
	Text            string     `json:"text"`
	MediaURI        string     `json:"media_uri"`
	SubmittedAt     uint64     `json:"submitted_at"`
	VoteCount       uint64     `json:"vote_count"`
	ChallengeAmount uint64     `json:"challenge_amount"`
	Endorsers       []Identity `json:"endorsers,omitempty"`
}

type Vote struct {
	Voter       Identity `json:"voter"`
	OptionIndex uint8    `json:"option_index"`
	VotingPower uint64   `json:"voting_power"`
}

type Proposal struct {
	ID          uint64         `json:"id"`
	Proposer    Identity       `json:"proposer"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        ProposalType   `json:"type"`
	Options     []string       `json:"options"`
	StartTime   uint64         `json:"start_time"`
	EndTime     uint64         `json:"end_time"`
	Votes       []Vote         `json:"votes"`
	Status      ProposalStatus `json:"status"`
}

// RoundState is the aggregate record every operation mutates. It is created
// once by Initialize and reset in place by settlement.
type RoundState struct {
	Config           RoundConfig    `json:"config"`
	TimeoutTimestamp uint64         `json:"timeout_timestamp"`
	TotalDeposit     uint64         `json:"total_deposit"`
	Active           bool           `json:"active"`
	NextProposalID   uint64         `json:"next_proposal_id"`
	Depositors       []Depositor    `json:"depositors"`
	Contents         []ContentEntry `json:"contents"`
	Proposals        []Proposal     `json:"proposals"`
}

func (s *RoundState) Key() Key {
	return Key{Owner: s.Config.Owner, Name: s.Config.Name}
}

// Clone returns a deep copy.
func (s *RoundState) Clone() *RoundState {
	c := *s
	c.Depositors = cloneSlice(s.Depositors)
	if s.Contents != nil {
		c.Contents = make([]ContentEntry, len(s.Contents))
		for i, e := range s.Contents {
			e.Endorsers = cloneSlice(e.Endorsers)
			c.Contents[i] = e
		}
	}
	if s.Proposals != nil {
		c.Proposals = make([]Proposal, len(s.Proposals))
		for i, p := range s.Proposals {
			p.Options = cloneSlice(p.Options)
			p.Votes = cloneSlice(p.Votes)
			c.Proposals[i] = p
		}
	}
	return &c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
