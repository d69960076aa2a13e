package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"round-curator/internal/identity"
	"round-curator/internal/round"
)

// Actions carried in identity.Envelope.Action.
const (
	ActionInitialize     = "initialize"
	ActionDeposit        = "deposit"
	ActionSubmitContent  = "submit_content"
	ActionEndorseContent = "endorse_content"
	ActionCreateProposal = "create_proposal"
	ActionCastVote       = "cast_vote"
	ActionToggleActive   = "toggle_active"
	ActionProcessTimeout = "process_timeout"
)

// InitializeCmd creates a round owned by the signer.
type InitializeCmd struct {
	round.InitParams
}

// RoundCmd addresses an existing round; toggle_active and process_timeout
// take nothing else.
type RoundCmd struct {
	Round round.Key `json:"round"`
}

func (c RoundCmd) key() round.Key { return c.Round }

type DepositCmd struct {
	RoundCmd
	Amount uint64 `json:"amount"`
}

type SubmitContentCmd struct {
	RoundCmd
	Text     string `json:"text"`
	MediaURI string `json:"media_uri"`
}

type EndorseContentCmd struct {
	RoundCmd
	ContentIndex int `json:"content_index"`
}

type CreateProposalCmd struct {
	RoundCmd
	round.ProposalDraft
}

type CastVoteCmd struct {
	RoundCmd
	ProposalID  uint64 `json:"proposal_id"`
	OptionIndex int    `json:"option_index"`
}

// NewEnvelope encodes cmd and signs it for action.
func NewEnvelope(key identity.Key, action string, cmd any) (identity.Envelope, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return identity.Envelope{}, fmt.Errorf("encode %s: %w", action, err)
	}
	return key.Sign(action, payload)
}

func decode(env identity.Envelope, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(env.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedCommand, env.Action, err)
	}
	if k, ok := dst.(interface{ key() round.Key }); ok {
		if key := k.key(); key.Owner == "" || key.Name == "" {
			return fmt.Errorf("%w: %s: round owner and name are required", ErrMalformedCommand, env.Action)
		}
	}
	return nil
}
