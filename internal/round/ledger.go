package round

import (
	"fmt"
	"math"
)

// AddDeposit records stake for id. A repeat depositor tops up its existing
// entry; a new identity takes a slot.
func (s *RoundState) AddDeposit(id Identity, amount, now uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: deposit must be positive", ErrInvalidAmount)
	}
	if s.TotalDeposit > math.MaxUint64-amount {
		return fmt.Errorf("%w: total deposit", ErrAmountOverflow)
	}
	lockedUntil := now + s.Config.TimeLimit

	if i := s.depositorIndex(id); i >= 0 {
		d := &s.Depositors[i]
		d.Amount += amount
		d.DepositedAt = now
		d.LockedUntil = lockedUntil
		s.TotalDeposit += amount
		return nil
	}

	if err := checkCapacity("depositors", len(s.Depositors), MaxDepositors); err != nil {
		return err
	}
	s.Depositors = append(s.Depositors, Depositor{
		Identity:    id,
		Amount:      amount,
		DepositedAt: now,
		LockedUntil: lockedUntil,
	})
	s.TotalDeposit += amount
	return nil
}

// VotingPower returns the amount currently recorded for id.
func (s *RoundState) VotingPower(id Identity) (uint64, error) {
	i := s.depositorIndex(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotAParticipant, id)
	}
	return s.Depositors[i].Amount, nil
}

func (s *RoundState) IsDepositor(id Identity) bool {
	return s.depositorIndex(id) >= 0
}

func (s *RoundState) depositorIndex(id Identity) int {
	for i := range s.Depositors {
		if s.Depositors[i].Identity == id {
			return i
		}
	}
	return -1
}

// DepositSum adds up the recorded depositor amounts.
func (s *RoundState) DepositSum() uint64 {
	var sum uint64
	for _, d := range s.Depositors {
		sum += d.Amount
	}
	return sum
}
