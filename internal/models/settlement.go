package models

import (
	"time"

	"round-curator/internal/round"
)

// PayoutPending marks a reward that has not been disbursed yet.
const PayoutPending = "pending"

// SettlementRecord keeps the outcome of one process_timeout run. Rounds with
// a winning content entry carry a payout that stays pending until the funds
// collaborator disburses it.
type SettlementRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	Owner         string `gorm:"size:128;index:ix_settlement_round"`
	Name          string `gorm:"size:32;index:ix_settlement_round"`
	SettledAt     uint64 `gorm:"index"`
	NextTimeout   uint64
	Winner        string `gorm:"size:128;index"`
	ContentIndex  int
	TotalDeposit  uint64
	BaseFeeAmount uint64
	QualityShare  uint64
	PayoutStatus  string              `gorm:"size:16;index"`
	Resolutions   []round.Resolution  `gorm:"type:jsonb;serializer:json"`
	Changes       round.ConfigChanges `gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time
}

// NewSettlementRecord flattens a settlement report. id must be unique.
func NewSettlementRecord(id string, out *round.Settlement) SettlementRecord {
	rec := SettlementRecord{
		ID:           id,
		Owner:        string(out.Key.Owner),
		Name:         out.Key.Name,
		SettledAt:    out.SettledAt,
		NextTimeout:  out.NextTimeout,
		ContentIndex: -1,
		Resolutions:  out.Resolutions,
		Changes:      out.Changes,
	}
	if r := out.Reward; r != nil {
		rec.Winner = string(r.Winner)
		rec.ContentIndex = r.ContentIndex
		rec.TotalDeposit = r.TotalDeposit
		rec.BaseFeeAmount = r.BaseFeeAmount
		rec.QualityShare = r.QualityShare
		rec.PayoutStatus = PayoutPending
	}
	return rec
}
