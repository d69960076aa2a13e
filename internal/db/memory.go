package db

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"round-curator/internal/models"
	"round-curator/internal/round"
)

// MemoryStore is an in-process Store used when DATABASE_URL is unset and in
// tests. A single mutex serializes every Update, which is stricter than the
// per-row locking of GormStore.
type MemoryStore struct {
	mu          sync.Mutex
	rounds      map[round.Key]*round.RoundState
	balances    map[round.Identity]uint64
	settlements []models.SettlementRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:   make(map[round.Key]*round.RoundState),
		balances: make(map[round.Identity]uint64),
	}
}

func (m *MemoryStore) Create(_ context.Context, s *round.RoundState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.Key()
	if _, ok := m.rounds[key]; ok {
		return fmt.Errorf("%w: %s", ErrRoundExists, key)
	}
	m.rounds[key] = s.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key round.Key) (*round.RoundState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rounds[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, key)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, key round.Key, fn func(tx Tx, s *round.RoundState) error) (*round.RoundState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rounds[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, key)
	}

	tx := &memoryTx{balances: make(map[round.Identity]uint64, len(m.balances))}
	for k, v := range m.balances {
		tx.balances[k] = v
	}
	next := cur.Clone()
	if err := fn(tx, next); err != nil {
		return nil, err
	}

	m.rounds[key] = next
	m.balances = tx.balances
	m.settlements = append(m.settlements, tx.settlements...)
	return next.Clone(), nil
}

func (m *MemoryStore) Due(_ context.Context, now uint64) ([]round.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*round.RoundState
	for _, s := range m.rounds {
		if s.TimeoutTimestamp <= now {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].TimeoutTimestamp != due[j].TimeoutTimestamp {
			return due[i].TimeoutTimestamp < due[j].TimeoutTimestamp
		}
		return due[i].Key().String() < due[j].Key().String()
	})
	keys := make([]round.Key, 0, len(due))
	for _, s := range due {
		keys = append(keys, s.Key())
	}
	return keys, nil
}

func (m *MemoryStore) Settlements(_ context.Context, key round.Key) ([]models.SettlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.SettlementRecord
	for i := len(m.settlements) - 1; i >= 0; i-- {
		rec := m.settlements[i]
		if rec.Owner == string(key.Owner) && rec.Name == key.Name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) Credit(_ context.Context, account round.Identity, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[account] > math.MaxUint64-amount {
		return fmt.Errorf("credit %s: %w", account, round.ErrAmountOverflow)
	}
	m.balances[account] += amount
	return nil
}

func (m *MemoryStore) Balance(_ context.Context, account round.Identity) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

// memoryTx stages balance moves and settlement records until Update commits.
type memoryTx struct {
	balances    map[round.Identity]uint64
	settlements []models.SettlementRecord
}

func (t *memoryTx) Transfer(_ context.Context, from, to round.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if t.balances[from] < amount {
		return fmt.Errorf("%w: %s needs %d", ErrInsufficientFunds, from, amount)
	}
	if t.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("credit %s: %w", to, round.ErrAmountOverflow)
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

func (t *memoryTx) RecordSettlement(_ context.Context, rec models.SettlementRecord) error {
	t.settlements = append(t.settlements, rec)
	return nil
}
