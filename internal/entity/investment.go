package entity

import (
	"database/sql"
	"time"
)

// SignalInvestment records one user's commitment into one signal. The unique
// index on (signal_id, user_id) is the backstop against concurrent double
// joins. IsChecked and Profit are written exactly once by settlement.
type SignalInvestment struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	SignalID  uint         `gorm:"uniqueIndex:idx_investment_signal_user;not null" json:"signal_id"`
	UserID    uint         `gorm:"uniqueIndex:idx_investment_signal_user;not null" json:"user_id"`
	Amount    float64      `gorm:"not null" json:"amount"`
	Profit    sql.NullBool `json:"profit"`
	IsChecked bool         `gorm:"not null;default:false" json:"is_checked"`
	AutoMode  bool         `gorm:"not null;default:false" json:"auto_mode"`
	InWork    int          `gorm:"not null;default:0" json:"in_work"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (SignalInvestment) TableName() string {
	return "signal_investments"
}
