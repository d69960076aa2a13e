package db

import (
	"context"
	"errors"

	"round-curator/internal/models"
	"round-curator/internal/round"
)

var (
	ErrRoundNotFound     = errors.New("round not found")
	ErrRoundExists       = errors.New("round already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Tx is what an Update callback sees of the enclosing transaction. Transfers
// and settlement records made through it commit or roll back together with
// the round.
type Tx interface {
	round.Transfer
	RecordSettlement(ctx context.Context, rec models.SettlementRecord) error
}

// Store persists round records and custody balances. Update serializes
// transitions per round: concurrent updates of the same key run one after
// the other, each seeing the previous one's committed state.
type Store interface {
	Create(ctx context.Context, s *round.RoundState) error
	Get(ctx context.Context, key round.Key) (*round.RoundState, error)
	Update(ctx context.Context, key round.Key, fn func(tx Tx, s *round.RoundState) error) (*round.RoundState, error)
	// Due lists rounds whose timeout is at or before now.
	Due(ctx context.Context, now uint64) ([]round.Key, error)
	Settlements(ctx context.Context, key round.Key) ([]models.SettlementRecord, error)

	Credit(ctx context.Context, account round.Identity, amount uint64) error
	Balance(ctx context.Context, account round.Identity) (uint64, error)
}
