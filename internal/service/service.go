// Package service turns signed envelopes into round transitions. Every call
// runs inside one store transaction, so the state change, the custody
// transfer and any settlement record commit or fail together.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"round-curator/internal/db"
	"round-curator/internal/identity"
	"round-curator/internal/logger"
	"round-curator/internal/models"
	"round-curator/internal/round"
)

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrMalformedCommand = errors.New("malformed command")
)

// Outcome is what a dispatched call produced.
type Outcome struct {
	Action     string
	Caller     round.Identity
	Round      *round.RoundState
	ProposalID *uint64
	Settlement *round.Settlement
}

type Service struct {
	store db.Store
	gate  round.Gate
	clock round.Clock
	log   *logger.Logger
	newID func() string
}

func New(store db.Store, gate round.Gate, clock round.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = round.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store: store,
		gate:  gate,
		clock: clock,
		log:   log,
		newID: uuid.NewString,
	}
}

// Dispatch verifies env and runs its action on behalf of the signer.
func (s *Service) Dispatch(ctx context.Context, env identity.Envelope) (*Outcome, error) {
	caller, err := identity.Verify(env)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Action: env.Action, Caller: caller}

	switch env.Action {
	case ActionInitialize:
		var cmd InitializeCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, err = s.initialize(ctx, caller, cmd.InitParams)

	case ActionDeposit:
		var cmd DepositCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, err = s.apply(ctx, cmd.Round, func(ctx context.Context, eng *round.Engine, st *round.RoundState) error {
			return eng.Deposit(ctx, st, caller, cmd.Amount)
		})

	case ActionSubmitContent:
		var cmd SubmitContentCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, err = s.apply(ctx, cmd.Round, func(ctx context.Context, eng *round.Engine, st *round.RoundState) error {
			return eng.SubmitContent(ctx, st, caller, cmd.Text, cmd.MediaURI)
		})

	case ActionEndorseContent:
		var cmd EndorseContentCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, err = s.apply(ctx, cmd.Round, func(_ context.Context, eng *round.Engine, st *round.RoundState) error {
			return eng.EndorseContent(st, caller, cmd.ContentIndex)
		})

	case ActionCreateProposal:
		var cmd CreateProposalCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		var id uint64
		out.Round, err = s.apply(ctx, cmd.Round, func(_ context.Context, eng *round.Engine, st *round.RoundState) error {
			var err error
			id, err = eng.CreateProposal(st, caller, cmd.ProposalDraft)
			return err
		})
		if err == nil {
			out.ProposalID = &id
		}

	case ActionCastVote:
		var cmd CastVoteCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, err = s.apply(ctx, cmd.Round, func(_ context.Context, eng *round.Engine, st *round.RoundState) error {
			return eng.CastVote(st, caller, cmd.ProposalID, cmd.OptionIndex)
		})

	case ActionToggleActive:
		var cmd RoundCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, err = s.apply(ctx, cmd.Round, func(_ context.Context, eng *round.Engine, st *round.RoundState) error {
			return eng.ToggleActive(st, caller)
		})

	case ActionProcessTimeout:
		var cmd RoundCmd
		if err := decode(env, &cmd); err != nil {
			return nil, err
		}
		out.Round, out.Settlement, err = s.settle(ctx, cmd.Round, s.clock)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}

	if err != nil {
		s.log.Debug("call rejected", "action", env.Action, "caller", caller, "err", err)
		return nil, err
	}
	s.log.Info("call applied", "action", env.Action, "caller", caller, "round", out.Round.Key())
	return out, nil
}

func (s *Service) initialize(ctx context.Context, owner round.Identity, p round.InitParams) (*round.RoundState, error) {
	st, err := round.NewEngine(s.gate, nil, s.clock).Initialize(owner, p)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

type opFunc func(ctx context.Context, eng *round.Engine, st *round.RoundState) error

func (s *Service) apply(ctx context.Context, key round.Key, op opFunc) (*round.RoundState, error) {
	return s.store.Update(ctx, key, func(tx db.Tx, st *round.RoundState) error {
		return op(ctx, round.NewEngine(s.gate, tx, s.clock), st)
	})
}

func (s *Service) settle(ctx context.Context, key round.Key, clock round.Clock) (*round.RoundState, *round.Settlement, error) {
	var out *round.Settlement
	st, err := s.store.Update(ctx, key, func(tx db.Tx, st *round.RoundState) error {
		var err error
		out, err = round.NewEngine(s.gate, tx, clock).ProcessTimeout(st)
		if err != nil {
			return err
		}
		return tx.RecordSettlement(ctx, models.NewSettlementRecord(s.newID(), out))
	})
	if err != nil {
		return nil, nil, err
	}
	if r := out.Reward; r != nil {
		s.log.Info("round settled", "round", key, "winner", r.Winner, "base_fee", r.BaseFeeAmount, "quality_share", r.QualityShare)
	} else {
		s.log.Info("round settled", "round", key, "winner", "none")
	}
	return st, out, nil
}

// Settle runs process_timeout for key against the service clock. Anyone may
// settle, so no envelope is needed.
func (s *Service) Settle(ctx context.Context, key round.Key) (*round.Settlement, error) {
	_, out, err := s.settle(ctx, key, s.clock)
	return out, err
}

// SettleDue settles every round whose deadline is at or before now, using
// now as the clock. Rounds settled concurrently by another caller are
// skipped; other failures are joined and returned after the rest ran.
func (s *Service) SettleDue(ctx context.Context, now time.Time) ([]*round.Settlement, error) {
	keys, err := s.store.Due(ctx, round.Unix(now))
	if err != nil {
		return nil, err
	}
	at := round.ClockFunc(func() time.Time { return now })

	var (
		done []*round.Settlement
		errs []error
	)
	for _, key := range keys {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, out, err := s.settle(ctx, key, at)
		switch {
		case err == nil:
			done = append(done, out)
		case errors.Is(err, round.ErrTimeoutNotReached):
			s.log.Debug("round no longer due", "round", key)
		default:
			s.log.Error("settle failed", "round", key, "err", err)
			errs = append(errs, fmt.Errorf("settle %s: %w", key, err))
		}
	}
	return done, errors.Join(errs...)
}

func (s *Service) Round(ctx context.Context, key round.Key) (*round.RoundState, error) {
	return s.store.Get(ctx, key)
}

func (s *Service) Settlements(ctx context.Context, key round.Key) ([]models.SettlementRecord, error) {
	return s.store.Settlements(ctx, key)
}

// Fund credits account out of band, standing in for an external deposit.
func (s *Service) Fund(ctx context.Context, account round.Identity, amount uint64) error {
	if amount == 0 {
		return round.ErrInvalidAmount
	}
	if err := s.store.Credit(ctx, account, amount); err != nil {
		return err
	}
	s.log.Info("account funded", "account", account, "amount", amount)
	return nil
}

func (s *Service) Balance(ctx context.Context, account round.Identity) (uint64, error) {
	return s.store.Balance(ctx, account)
}
