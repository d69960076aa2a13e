package models

import "time"

// Balance is the custody balance of one account: a participant identity or a
// round custody account.
type Balance struct {
	Account   string `gorm:"primaryKey;size:256"`
	Amount    uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
