package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"round-curator/internal/models"
	"round-curator/internal/round"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps rounds in the rounds table. Update locks the round row
// (SELECT ... FOR UPDATE) for the whole transaction, which is what serializes
// transitions against a record.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func whereKey(tx *gorm.DB, key round.Key) *gorm.DB {
	return tx.Where("owner = ? AND name = ?", string(key.Owner), key.Name)
}

func (s *GormStore) Create(ctx context.Context, st *round.RoundState) error {
	rec := models.NewRoundRecord(st)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&rec)
	if res.Error != nil {
		return fmt.Errorf("create round %s: %w", st.Key(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRoundExists, st.Key())
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, key round.Key) (*round.RoundState, error) {
	var rec models.RoundRecord
	if err := whereKey(s.db.WithContext(ctx), key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, key)
		}
		return nil, fmt.Errorf("load round %s: %w", key, err)
	}
	return rec.State(), nil
}

func (s *GormStore) Update(ctx context.Context, key round.Key, fn func(tx Tx, st *round.RoundState) error) (*round.RoundState, error) {
	var out *round.RoundState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.RoundRecord
		err := whereKey(tx.Clauses(clause.Locking{Strength: "UPDATE"}), key).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrRoundNotFound, key)
		}
		if err != nil {
			return fmt.Errorf("lock round %s: %w", key, err)
		}

		st := rec.State()
		if err := fn(&gormTx{tx: tx}, st); err != nil {
			return err
		}
		rec.Apply(st)
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("save round %s: %w", key, err)
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) Due(ctx context.Context, now uint64) ([]round.Key, error) {
	var recs []models.RoundRecord
	err := s.db.WithContext(ctx).
		Select("owner", "name").
		Where("timeout_timestamp <= ?", now).
		Order("timeout_timestamp").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list due rounds: %w", err)
	}
	keys := make([]round.Key, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, round.Key{Owner: round.Identity(r.Owner), Name: r.Name})
	}
	return keys, nil
}

func (s *GormStore) Settlements(ctx context.Context, key round.Key) ([]models.SettlementRecord, error) {
	var recs []models.SettlementRecord
	if err := whereKey(s.db.WithContext(ctx), key).Order("settled_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list settlements %s: %w", key, err)
	}
	return recs, nil
}

func (s *GormStore) Credit(ctx context.Context, account round.Identity, amount uint64) error {
	return credit(s.db.WithContext(ctx), account, amount)
}

func (s *GormStore) Balance(ctx context.Context, account round.Identity) (uint64, error) {
	var b models.Balance
	err := s.db.WithContext(ctx).Where("account = ?", string(account)).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balance %s: %w", account, err)
	}
	return b.Amount, nil
}

func credit(tx *gorm.DB, account round.Identity, amount uint64) error {
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"amount":     gorm.Expr("balances.amount + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&models.Balance{Account: string(account), Amount: amount}).Error
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	return nil
}

// gormTx moves custody balances inside the round's transaction.
type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) Transfer(ctx context.Context, from, to round.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}
	res := t.tx.WithContext(ctx).
		Model(&models.Balance{}).
		Where("account = ? AND amount >= ?", string(from), amount).
		Update("amount", gorm.Expr("amount - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("debit %s: %w", from, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s needs %d", ErrInsufficientFunds, from, amount)
	}
	return credit(t.tx.WithContext(ctx), to, amount)
}

func (t *gormTx) RecordSettlement(ctx context.Context, rec models.SettlementRecord) error {
	if err := t.tx.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record settlement %s: %w", rec.ID, err)
	}
	return nil
}
