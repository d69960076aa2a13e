// Package models defines the database models for round persistence.
package models

import (
	"time"

	"round-curator/internal/round"
)

// RoundRecord stores one RoundState, addressed by (owner, name).
type RoundRecord struct {
	ID                  uint   `gorm:"primaryKey"`
	Owner               string `gorm:"size:128;uniqueIndex:ux_owner_name;not null"`
	Name                string `gorm:"size:32;uniqueIndex:ux_owner_name;not null"`
	TimeLimit           uint64
	BaseFeePercent      uint64
	FeeMultiplier       uint8
	AiModeration        bool
	DepositSharePercent uint8
	TimeoutTimestamp    uint64 `gorm:"index"`
	TotalDeposit        uint64
	Active              bool `gorm:"index"`
	NextProposalID      uint64
	Depositors          []round.Depositor    `gorm:"type:jsonb;serializer:json"`
	Contents            []round.ContentEntry `gorm:"type:jsonb;serializer:json"`
	Proposals           []round.Proposal     `gorm:"type:jsonb;serializer:json"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (RoundRecord) TableName() string {
	return "rounds"
}

// NewRoundRecord copies s into a new record.
func NewRoundRecord(s *round.RoundState) RoundRecord {
	var r RoundRecord
	r.Apply(s)
	return r
}

// Apply overwrites every round field of r with s, keeping the row id.
func (r *RoundRecord) Apply(s *round.RoundState) {
	r.Owner = string(s.Config.Owner)
	r.Name = s.Config.Name
	r.TimeLimit = s.Config.TimeLimit
	r.BaseFeePercent = s.Config.BaseFeePercent
	r.FeeMultiplier = s.Config.FeeMultiplier
	r.AiModeration = s.Config.AiModeration
	r.DepositSharePercent = s.Config.DepositSharePercent
	r.TimeoutTimestamp = s.TimeoutTimestamp
	r.TotalDeposit = s.TotalDeposit
	r.Active = s.Active
	r.NextProposalID = s.NextProposalID
	r.Depositors = s.Depositors
	r.Contents = s.Contents
	r.Proposals = s.Proposals
}

// State converts the record back into a RoundState.
func (r RoundRecord) State() *round.RoundState {
	return &round.RoundState{
		Config: round.RoundConfig{
			Name:                r.Name,
			TimeLimit:           r.TimeLimit,
			BaseFeePercent:      r.BaseFeePercent,
			FeeMultiplier:       r.FeeMultiplier,
			AiModeration:        r.AiModeration,
			DepositSharePercent: r.DepositSharePercent,
			Owner:               round.Identity(r.Owner),
		},
		TimeoutTimestamp: r.TimeoutTimestamp,
		TotalDeposit:     r.TotalDeposit,
		Active:           r.Active,
		NextProposalID:   r.NextProposalID,
		Depositors:       r.Depositors,
		Contents:         r.Contents,
		Proposals:        r.Proposals,
	}
}
