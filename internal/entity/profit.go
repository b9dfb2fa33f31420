package entity

import "time"

// Profit is the append-only audit row written per settled investment.
type Profit struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	SignalID         uint      `gorm:"index;not null" json:"signal_id"`
	Amount           float64   `gorm:"type:numeric(16,2);not null" json:"amount"`
	Profit           float64   `gorm:"type:numeric(16,2);not null" json:"profit"`
	ReinvestedAmount float64   `gorm:"not null;default:0" json:"reinvested_amount"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Profit) TableName() string {
	return "profits"
}
