package dto

import "time"

// CreateRandomSignalRequest is the DTO for creating a randomized signal.
type CreateRandomSignalRequest struct {
	Name string `json:"name"`
}

// CreateCustomSignalRequest is the DTO for creating a signal with
// caller-supplied parameters. The burn chance is derived server-side.
type CreateCustomSignalRequest struct {
	Name          string  `json:"name"`
	JoinSeconds   int     `json:"join_seconds"`
	ActiveSeconds int     `json:"active_seconds"`
	ProfitPercent float64 `json:"profit_percent"`
	SignalCost    float64 `json:"signal_cost"`
}

// SignalResponse is the DTO for API responses containing signal details.
type SignalResponse struct {
	ID            uint      `json:"signal_id"`
	Name          string    `json:"name"`
	JoinUntil     time.Time `json:"join_until"`
	ExpiresAt     time.Time `json:"expires_at"`
	BurnChance    float64   `json:"burn_chance"`
	ProfitPercent float64   `json:"profit_percent"`
	SignalCost    float64   `json:"signal_cost"`
}

// JoinSignalRequest is the DTO for joining a signal.
type JoinSignalRequest struct {
	UserID   uint `json:"user_id"`
	SignalID uint `json:"signal_id"`
}

// JoinSignalResponse reports the outcome of a join attempt. Expected
// failures come back with Success false and a reason instead of an error
// status.
type JoinSignalResponse struct {
	Success  bool    `json:"success"`
	Reason   string  `json:"reason,omitempty"`
	SignalID uint    `json:"signal_id,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// InvestmentResponse is the DTO for one investment row.
type InvestmentResponse struct {
	ID        uint      `json:"id"`
	SignalID  uint      `json:"signal_id"`
	Amount    float64   `json:"amount"`
	Profit    *bool     `json:"profit"`
	AutoMode  bool      `json:"auto_mode"`
	CreatedAt time.Time `json:"created_at"`
}

// AutoModeResponse reports the state of an enable/disable attempt.
type AutoModeResponse struct {
	Success     bool       `json:"success"`
	Reason      string     `json:"reason,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}
