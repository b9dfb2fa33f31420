package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction is the append-only audit row written alongside every balance
// mutation. It is the only reconciliation mechanism for the ledger.
type Transaction struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Amount    float64        `gorm:"not null" json:"amount"`
	Type      string         `gorm:"column:transaction_type;size:50;not null" json:"transaction_type"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
