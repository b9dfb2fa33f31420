package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"signals-pool/internal/entity"
	"signals-pool/internal/engine/repository"
	"signals-pool/pkg/common"
	"signals-pool/pkg/logger"

	"gorm.io/datatypes"
)

// BalanceField names one of the four ledger accounts.
type BalanceField int

const (
	FieldMain BalanceField = iota
	FieldTrade
	FieldFrozen
	FieldEarned
)

func (f BalanceField) String() string {
	switch f {
	case FieldMain:
		return "main"
	case FieldTrade:
		return "trade"
	case FieldFrozen:
		return "frozen"
	case FieldEarned:
		return "earned"
	}
	return "unknown"
}

// LedgerService owns every mutation of the four-way balance ledger. The
// request-facing operations open their own transaction; the exported Credit,
// Debit, Freeze and CreditEarned primitives run inside the transaction
// registry handed to them by the settlement engine, the investment ledger or
// the auto-mode processor, and each writes an audit transaction row.
type LedgerService interface {
	GetBalance(ctx context.Context, userID uint) (*entity.Balance, error)
	Deposit(ctx context.Context, userID uint, amount float64) (*entity.Balance, error)
	TransferToTrade(ctx context.Context, userID uint, amount float64) error
	TransferToMain(ctx context.Context, userID uint, amount float64) error
	Unfreeze(ctx context.Context, userID uint) (float64, error)
	ListTransactions(ctx context.Context, userID uint) ([]entity.Transaction, error)

	Credit(ctx context.Context, r repository.Registry, userID uint, field BalanceField, amount float64, txType string, meta map[string]interface{}) error
	Debit(ctx context.Context, r repository.Registry, userID uint, field BalanceField, amount float64, txType string, meta map[string]interface{}) error
	Freeze(ctx context.Context, r repository.Registry, userID uint, amount float64, meta map[string]interface{}) error
	CreditEarned(ctx context.Context, r repository.Registry, userID uint, profit float64, meta map[string]interface{}) error
}

// NewLedgerService creates a new balance ledger service.
func NewLedgerService(registry repository.Registry, log *logger.Logger, settings Settings) LedgerService {
	return &ledgerService{registry: registry, logger: log, settings: settings}
}

type ledgerService struct {
	registry repository.Registry
	logger   *logger.Logger
	settings Settings
}

func (s *ledgerService) GetBalance(ctx context.Context, userID uint) (*entity.Balance, error) {
	return s.registry.Balances().FindByUserID(ctx, userID)
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID uint) ([]entity.Transaction, error) {
	return s.registry.Transactions().FindByUserID(ctx, userID)
}

// Deposit credits the main account. This is the ledger side of a top-up; the
// payment gateway itself lives outside this service.
func (s *ledgerService) Deposit(ctx context.Context, userID uint, amount float64) (*entity.Balance, error) {
	if amount <= 0 {
		return nil, entity.Validationf("amount must be greater than zero")
	}
	var balance *entity.Balance
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		if err := s.Credit(ctx, r, userID, FieldMain, amount, common.TxTypeDeposit, nil); err != nil {
			return err
		}
		var err error
		balance, err = r.Balances().FindByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// TransferToTrade moves amount from main into trade and then freezes the same
// amount out of main, producing the double-hold released later by Unfreeze.
// The freeze leg is skipped when main cannot cover it. This sequencing
// reproduces upstream behavior and is intentionally not normalized here.
func (s *ledgerService) TransferToTrade(ctx context.Context, userID uint, amount float64) error {
	if amount <= 0 {
		return entity.Validationf("amount must be greater than zero")
	}
	return s.registry.Atomic(ctx, func(r repository.Registry) error {
		if err := s.Debit(ctx, r, userID, FieldMain, amount, common.TxTypeTradeTransfer, nil); err != nil {
			return err
		}
		if err := s.Credit(ctx, r, userID, FieldTrade, amount, common.TxTypeTradeTransfer, nil); err != nil {
			return err
		}
		if err := s.Freeze(ctx, r, userID, amount, nil); err != nil {
			if err == entity.ErrInsufficientFunds {
				s.logger.Warn("transfer freeze skipped, main balance exhausted",
					logger.Field("user_id", userID), logger.Field("amount", amount))
				return nil
			}
			return err
		}
		return nil
	})
}

// TransferToMain moves amount from trade back into main.
func (s *ledgerService) TransferToMain(ctx context.Context, userID uint, amount float64) error {
	if amount <= 0 {
		return entity.Validationf("amount must be greater than zero")
	}
	return s.registry.Atomic(ctx, func(r repository.Registry) error {
		if err := s.Debit(ctx, r, userID, FieldTrade, amount, common.TxTypeTradeTransfer, nil); err != nil {
			return err
		}
		return s.Credit(ctx, r, userID, FieldMain, amount, common.TxTypeTradeTransfer, nil)
	})
}

// Unfreeze releases the entire frozen balance into trade and returns the
// released amount.
func (s *ledgerService) Unfreeze(ctx context.Context, userID uint) (float64, error) {
	var released float64
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		balance, err := r.Balances().FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if balance.Frozen <= 0 {
			return entity.Validationf("no frozen balance to release")
		}
		released = balance.Frozen
		if err := s.Debit(ctx, r, userID, FieldFrozen, released, common.TxTypeUnfreeze, nil); err != nil {
			return err
		}
		return s.Credit(ctx, r, userID, FieldTrade, released, common.TxTypeUnfreeze, nil)
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// Credit adds amount to the named account and writes the audit row.
func (s *ledgerService) Credit(ctx context.Context, r repository.Registry, userID uint, field BalanceField, amount float64, txType string, meta map[string]interface{}) error {
	if amount < 0 {
		return entity.Validationf("credit amount must be non-negative")
	}
	balance, err := r.Balances().FindByUserIDForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	s.apply(balance, field, amount)
	if err := r.Balances().Update(ctx, balance); err != nil {
		return err
	}
	return s.audit(ctx, r, userID, amount, txType, meta)
}

// Debit removes amount from the named account, failing with
// ErrInsufficientFunds rather than driving the account negative.
func (s *ledgerService) Debit(ctx context.Context, r repository.Registry, userID uint, field BalanceField, amount float64, txType string, meta map[string]interface{}) error {
	if amount < 0 {
		return entity.Validationf("debit amount must be non-negative")
	}
	balance, err := r.Balances().FindByUserIDForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if s.fieldValue(balance, field) < amount {
		return entity.ErrInsufficientFunds
	}
	s.apply(balance, field, -amount)
	if err := r.Balances().Update(ctx, balance); err != nil {
		return err
	}
	return s.audit(ctx, r, userID, -amount, txType, meta)
}

// Freeze moves amount from main into frozen under a single audit row.
func (s *ledgerService) Freeze(ctx context.Context, r repository.Registry, userID uint, amount float64, meta map[string]interface{}) error {
	if amount < 0 {
		return entity.Validationf("freeze amount must be non-negative")
	}
	balance, err := r.Balances().FindByUserIDForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if balance.Main < amount {
		return entity.ErrInsufficientFunds
	}
	balance.Main -= amount
	balance.Frozen += amount
	if err := r.Balances().Update(ctx, balance); err != nil {
		return err
	}
	return s.audit(ctx, r, userID, amount, common.TxTypeFreeze, meta)
}

// CreditEarned records realized profit on the informational earned account
// and cascades the referral bonus to the user's inviter, if any.
func (s *ledgerService) CreditEarned(ctx context.Context, r repository.Registry, userID uint, profit float64, meta map[string]interface{}) error {
	if profit <= 0 {
		return nil
	}
	if err := s.Credit(ctx, r, userID, FieldEarned, profit, common.TxTypeSettlement, meta); err != nil {
		return err
	}

	referral, err := r.Referrals().FindByUserID(ctx, userID)
	if err != nil {
		if err == entity.ErrNotFound {
			return nil
		}
		return err
	}
	if referral.ReferrerID == 0 {
		return nil
	}
	bonus := Round2(profit * s.settings.ReferralBonusRate)
	if bonus <= 0 {
		return nil
	}
	bonusMeta := map[string]interface{}{"referred_user_id": userID}
	if err := s.Credit(ctx, r, referral.ReferrerID, FieldMain, bonus, common.TxTypeReferralBonus, bonusMeta); err != nil {
		if err == entity.ErrNotFound {
			s.logger.Warn("referrer has no balance row, bonus dropped",
				logger.Field("referrer_id", referral.ReferrerID))
			return nil
		}
		return err
	}
	return nil
}

func (s *ledgerService) apply(balance *entity.Balance, field BalanceField, delta float64) {
	switch field {
	case FieldMain:
		balance.Main += delta
	case FieldTrade:
		balance.Trade += delta
	case FieldFrozen:
		balance.Frozen += delta
	case FieldEarned:
		balance.Earned += delta
	}
}

func (s *ledgerService) fieldValue(balance *entity.Balance, field BalanceField) float64 {
	switch field {
	case FieldMain:
		return balance.Main
	case FieldTrade:
		return balance.Trade
	case FieldFrozen:
		return balance.Frozen
	case FieldEarned:
		return balance.Earned
	}
	return 0
}

func (s *ledgerService) audit(ctx context.Context, r repository.Registry, userID uint, amount float64, txType string, meta map[string]interface{}) error {
	row := &entity.Transaction{
		UserID: userID,
		Amount: amount,
		Type:   txType,
	}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal transaction metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return r.Transactions().Create(ctx, row)
}

// Round2 rounds to two decimal places, the precision of every ledger amount.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
