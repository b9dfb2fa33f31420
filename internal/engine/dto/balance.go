package dto

import "time"

// AmountRequest carries a single amount for deposit and transfer operations.
type AmountRequest struct {
	Amount float64 `json:"amount"`
}

// BalanceResponse is the DTO for the four-way balance of one user.
type BalanceResponse struct {
	UserID uint    `json:"user_id"`
	Main   float64 `json:"main"`
	Trade  float64 `json:"trade"`
	Frozen float64 `json:"frozen"`
	Earned float64 `json:"earned"`
}

// UnfreezeResponse reports the released amount after an unfreeze.
type UnfreezeResponse struct {
	UnfrozenAmount float64 `json:"unfrozen_amount"`
}

// TransactionResponse is the DTO for one audit transaction row.
type TransactionResponse struct {
	ID        uint      `json:"id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"transaction_type"`
	CreatedAt time.Time `json:"created_at"`
}
