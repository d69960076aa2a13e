package round

import (
	"context"
	"fmt"
	"time"
)

// Transfer moves value between parties. Implementations must either move the
// full amount or fail without effect.
type Transfer interface {
	Transfer(ctx context.Context, from, to Identity, amount uint64) error
}

// Clock supplies "now" for every deadline comparison.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Unix converts t to the unix-second timestamps stored in RoundState.
func Unix(t time.Time) uint64 {
	if sec := t.Unix(); sec > 0 {
		return uint64(sec)
	}
	return 0
}

// InitParams are the arguments to Initialize.
type InitParams struct {
	Name                string `json:"name"`
	TimeLimit           uint64 `json:"time_limit"`
	BaseFeePercent      uint64 `json:"base_fee_percent"`
	FeeMultiplier       uint8  `json:"fee_multiplier"`
	AiModeration        bool   `json:"ai_moderation"`
	DepositSharePercent uint8  `json:"deposit_share_percent"`
}

// NewRoundState validates p and returns an active round whose first deadline
// is now + time_limit.
func NewRoundState(owner Identity, p InitParams, now uint64) (*RoundState, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidConfig)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if err := checkLen("name", p.Name, MaxNameLen); err != nil {
		return nil, err
	}
	if p.TimeLimit == 0 {
		return nil, fmt.Errorf("%w: time_limit must be positive", ErrInvalidConfig)
	}
	if now > MaxTimestamp || p.TimeLimit > MaxTimestamp-now {
		return nil, fmt.Errorf("%w: time_limit %d runs past %d", ErrInvalidConfig, p.TimeLimit, MaxTimestamp)
	}
	if p.BaseFeePercent > MaxPercent {
		return nil, fmt.Errorf("%w: base_fee_percent %d > %d", ErrInvalidConfig, p.BaseFeePercent, MaxPercent)
	}
	if p.DepositSharePercent > MaxPercent {
		return nil, fmt.Errorf("%w: deposit_share_percent %d > %d", ErrInvalidConfig, p.DepositSharePercent, MaxPercent)
	}
	multiplier := p.FeeMultiplier
	if multiplier == 0 {
		multiplier = 1
	}
	return &RoundState{
		Config: RoundConfig{
			Name:                p.Name,
			TimeLimit:           p.TimeLimit,
			BaseFeePercent:      p.BaseFeePercent,
			FeeMultiplier:       multiplier,
			AiModeration:        p.AiModeration,
			DepositSharePercent: p.DepositSharePercent,
			Owner:               owner,
		},
		TimeoutTimestamp: addClamp(now, p.TimeLimit),
		Active:           true,
	}, nil
}

// Engine runs round operations as all-or-nothing transitions: each operation
// works on a clone and copies it back only when every step, including the
// funds transfer, succeeded.
type Engine struct {
	gate  Gate
	funds Transfer
	clock Clock
}

func NewEngine(gate Gate, funds Transfer, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{gate: gate, funds: funds, clock: clock}
}

func (e *Engine) now() uint64 {
	return Unix(e.clock.Now())
}

func (e *Engine) apply(s *RoundState, fn func(next *RoundState) error) error {
	next := s.Clone()
	if err := fn(next); err != nil {
		return err
	}
	*s = *next
	return nil
}

func (e *Engine) transfer(ctx context.Context, from, to Identity, amount uint64) error {
	if e.funds == nil {
		return fmt.Errorf("no funds-transfer collaborator configured")
	}
	if err := e.funds.Transfer(ctx, from, to, amount); err != nil {
		return fmt.Errorf("transfer %d from %s to %s: %w", amount, from, to, err)
	}
	return nil
}

func (e *Engine) Initialize(owner Identity, p InitParams) (*RoundState, error) {
	return NewRoundState(owner, p, e.now())
}

// Deposit stakes amount for caller, moving it into the round's custody.
func (e *Engine) Deposit(ctx context.Context, s *RoundState, caller Identity, amount uint64) error {
	return e.apply(s, func(next *RoundState) error {
		if err := e.gate.Check(next); err != nil {
			return err
		}
		if err := next.AddDeposit(caller, amount, e.now()); err != nil {
			return err
		}
		return e.transfer(ctx, caller, next.Key().CustodyAccount(), amount)
	})
}

// SubmitContent enters a content entry and charges the challenge fee.
func (e *Engine) SubmitContent(ctx context.Context, s *RoundState, caller Identity, text, mediaURI string) error {
	return e.apply(s, func(next *RoundState) error {
		if err := e.gate.Check(next); err != nil {
			return err
		}
		if err := next.SubmitContent(caller, text, mediaURI, e.now()); err != nil {
			return err
		}
		return e.transfer(ctx, caller, next.Key().CustodyAccount(), ChallengeAmount)
	})
}

func (e *Engine) EndorseContent(s *RoundState, caller Identity, index int) error {
	return e.apply(s, func(next *RoundState) error {
		if err := e.gate.Check(next); err != nil {
			return err
		}
		return next.EndorseContent(caller, index)
	})
}

func (e *Engine) CreateProposal(s *RoundState, caller Identity, d ProposalDraft) (uint64, error) {
	var id uint64
	err := e.apply(s, func(next *RoundState) error {
		if err := e.gate.Check(next); err != nil {
			return err
		}
		var err error
		id, err = next.CreateProposal(caller, d, e.now())
		return err
	})
	return id, err
}

func (e *Engine) CastVote(s *RoundState, caller Identity, proposalID uint64, optionIndex int) error {
	return e.apply(s, func(next *RoundState) error {
		if err := e.gate.Check(next); err != nil {
			return err
		}
		return next.CastVote(caller, proposalID, optionIndex, e.now())
	})
}

// ProcessTimeout settles the round if its deadline has passed.
func (e *Engine) ProcessTimeout(s *RoundState) (*Settlement, error) {
	var out *Settlement
	err := e.apply(s, func(next *RoundState) error {
		var err error
		out, err = next.ProcessTimeout(e.now())
		return err
	})
	return out, err
}

func (e *Engine) ToggleActive(s *RoundState, caller Identity) error {
	return e.apply(s, func(next *RoundState) error {
		return e.gate.Toggle(next, caller)
	})
}
