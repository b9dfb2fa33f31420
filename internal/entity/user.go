package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	Username            string       `gorm:"size:255" json:"username"`
	Plan                int          `gorm:"not null;default:0" json:"plan"`
	ReinvestPercent     int          `gorm:"not null;default:0" json:"reinvest_percent"`
	InWork              int          `gorm:"not null;default:0" json:"in_work"`
	AutoModeEnabled     bool         `gorm:"not null;default:false" json:"auto_mode_enabled"`
	AutoModeLockedUntil sql.NullTime `json:"auto_mode_locked_until"`
	CreatedAt           time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"autoUpdateTime" json:"updated_at"`

	Balance *Balance `gorm:"foreignKey:UserID" json:"balance,omitempty"`
}

func (User) TableName() string {
	return "users"
}
