package service

import (
	"context"

	"signals-pool/internal/entity"
	"signals-pool/internal/engine/repository"
	"signals-pool/pkg/common"
	"signals-pool/pkg/logger"
	"signals-pool/pkg/utils"
)

// InvestmentService is the investment ledger: it records a user's commitment
// into a signal and exposes the user's investment history.
type InvestmentService interface {
	Join(ctx context.Context, userID, signalID uint) (*entity.SignalInvestment, error)
	ListInvestments(ctx context.Context, userID uint) ([]entity.SignalInvestment, error)
}

// NewInvestmentService creates a new investment ledger service.
func NewInvestmentService(registry repository.Registry, ledger LedgerService, log *logger.Logger, clock utils.Clock) InvestmentService {
	return &investmentService{
		registry: registry,
		ledger:   ledger,
		logger:   log,
		clock:    clock,
	}
}

type investmentService struct {
	registry repository.Registry
	ledger   LedgerService
	logger   *logger.Logger
	clock    utils.Clock
}

// Join commits the signal's entry cost from the user's trade balance and
// records the investment. All checks and mutations run in one transaction;
// the unique index on (signal, user) closes the race two concurrent joins
// would otherwise slip through.
func (s *investmentService) Join(ctx context.Context, userID, signalID uint) (*entity.SignalInvestment, error) {
	var investment *entity.SignalInvestment
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		signal, err := r.Signals().FindByID(ctx, signalID)
		if err != nil {
			return err
		}
		// A repeat join is reported as such even when the window has since
		// closed or the balance has run dry. The unique index below stays as
		// the backstop for the concurrent case this read cannot see.
		if _, err := r.Investments().FindByUserAndSignal(ctx, userID, signalID); err == nil {
			return entity.ErrAlreadyJoined
		} else if err != entity.ErrNotFound {
			return err
		}
		if !signal.OpenForJoin(s.clock.Now()) {
			return entity.ErrSignalClosed
		}

		meta := map[string]interface{}{"signal_id": signalID}
		if err := s.ledger.Debit(ctx, r, userID, FieldTrade, signal.SignalCost, common.TxTypeSignalJoin, meta); err != nil {
			return err
		}

		user.InWork++
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}

		investment = &entity.SignalInvestment{
			SignalID: signalID,
			UserID:   userID,
			Amount:   signal.SignalCost,
			InWork:   1,
		}
		return r.Investments().Create(ctx, investment)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user joined signal",
		logger.Field("user_id", userID),
		logger.Field("signal_id", signalID),
		logger.Field("amount", investment.Amount))
	return investment, nil
}

// ListInvestments returns the user's investments ordered by creation time.
func (s *investmentService) ListInvestments(ctx context.Context, userID uint) ([]entity.SignalInvestment, error) {
	if _, err := s.registry.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.registry.Investments().FindByUserID(ctx, userID)
}
