package entity

// Balance is the four-way ledger held per user. Main holds free funds, Trade
// holds funds available to invest, Frozen holds funds temporarily locked and
// Earned accumulates realized profit for display. All four are non-negative;
// mutations go through the ledger service only.
type Balance struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	UserID uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	Main   float64 `gorm:"column:main_balance;not null;default:0" json:"main"`
	Trade  float64 `gorm:"column:trade_balance;not null;default:0" json:"trade"`
	Frozen float64 `gorm:"column:frozen_balance;not null;default:0" json:"frozen"`
	Earned float64 `gorm:"column:earned_balance;not null;default:0" json:"earned"`
}

func (Balance) TableName() string {
	return "balances"
}
