package entity

import (
	"database/sql"
	"time"
)

// Signal is a time-boxed investable opportunity. New investments are accepted
// strictly before JoinUntil; at or after ExpiresAt the settlement engine draws
// the outcome and sets IsSuccessful exactly once.
type Signal struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"index;not null" json:"name"`
	JoinUntil     time.Time    `gorm:"not null" json:"join_until"`
	ExpiresAt     time.Time    `gorm:"not null" json:"expires_at"`
	BurnChance    float64      `gorm:"not null" json:"burn_chance"`
	ProfitPercent float64      `gorm:"not null" json:"profit_percent"`
	SignalCost    float64      `gorm:"not null" json:"signal_cost"`
	IsSuccessful  sql.NullBool `json:"is_successful"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`

	Investments []SignalInvestment `gorm:"foreignKey:SignalID" json:"investments,omitempty"`
}

func (Signal) TableName() string {
	return "signals"
}

// OpenForJoin reports whether new investments are still accepted at now.
// The boundary instant itself is closed.
func (s *Signal) OpenForJoin(now time.Time) bool {
	return now.Before(s.JoinUntil)
}

// Expired reports whether the signal is due for settlement at now.
func (s *Signal) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
