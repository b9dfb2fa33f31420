package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"signals-pool/internal/entity"
	"signals-pool/internal/engine/repository"
	"signals-pool/pkg/common"
	"signals-pool/pkg/logger"
	"signals-pool/pkg/telegram"
	"signals-pool/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// SettlementService resolves expired signals: it draws each outcome once,
// distributes profit, reinvestment and referral bonus to every investor and
// replenishes the static slate afterwards. One transaction per signal; a
// crash mid-settlement leaves the signal unresolved and selectable again on
// the next pass.
type SettlementService interface {
	Start(ctx context.Context)
	ProcessSignals(ctx context.Context) error
}

// NewSettlementService creates a new settlement engine. redisClient and
// notifier may be nil; locking and operator summaries are then skipped.
func NewSettlementService(
	registry repository.Registry,
	ledger LedgerService,
	signals SignalService,
	redisClient *redis.Client,
	notifier telegram.Notifier,
	log *logger.Logger,
	settings Settings,
	clock utils.Clock,
	rnd utils.Rand,
) SettlementService {
	return &settlementService{
		registry:    registry,
		ledger:      ledger,
		signals:     signals,
		redisClient: redisClient,
		notifier:    notifier,
		logger:      log,
		settings:    settings,
		clock:       clock,
		rnd:         rnd,
	}
}

type settlementService struct {
	registry    repository.Registry
	ledger      LedgerService
	signals     SignalService
	redisClient *redis.Client
	notifier    telegram.Notifier
	logger      *logger.Logger
	settings    Settings
	clock       utils.Clock
	rnd         utils.Rand
}

// signalResult accumulates per-signal figures for logging and the operator
// summary. Populated inside the settlement transaction, read after commit.
type signalResult struct {
	settled     bool
	name        string
	success     bool
	investments int
	profitPaid  float64
	reinvested  float64
}

// Start runs the settlement loop until ctx is cancelled. A failed pass is
// retried after the shorter error backoff instead of the regular interval.
func (s *settlementService) Start(ctx context.Context) {
	s.logger.Info("settlement engine started",
		logger.Field("interval", s.settings.SettlementInterval.String()))
	for {
		delay := s.settings.SettlementInterval
		if err := s.ProcessSignals(ctx); err != nil {
			s.logger.Error("settlement pass failed", logger.ErrorField(err))
			delay = s.settings.SettlementErrorBackoff
		}
		select {
		case <-ctx.Done():
			s.logger.Info("settlement engine stopping")
			return
		case <-time.After(delay):
		}
	}
}

// ProcessSignals runs one settlement pass: every signal past its expiry with
// no outcome yet is settled in its own transaction, so a failure on one
// signal never rolls back another. The batch finishes by refreshing the
// static slate.
func (s *settlementService) ProcessSignals(ctx context.Context) error {
	release, acquired, err := s.acquirePassLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug("settlement pass skipped, lock held elsewhere")
		return nil
	}
	defer release()

	now := s.clock.Now()
	ids, err := s.registry.Signals().FindExpiredUnresolved(ctx, now)
	if err != nil {
		return err
	}

	summary := telegram.SettlementSummary{StartedAt: now}
	for _, id := range ids {
		result, err := s.settleSignal(ctx, id)
		if err != nil {
			// Isolated: the outcome was never committed, so the signal stays
			// selectable and is retried on the next pass.
			s.logger.Error("signal settlement failed, will retry next pass",
				logger.Field("signal_id", id), logger.ErrorField(err))
			continue
		}
		if !result.settled {
			continue
		}
		summary.SignalsResolved++
		if result.success {
			summary.SignalsSucceeded++
		} else {
			summary.SignalsFailed++
			summary.FailedSignalNames = append(summary.FailedSignalNames, result.name)
		}
		summary.InvestmentsSet += result.investments
		summary.TotalProfitPaid += result.profitPaid
		summary.TotalReinvested += result.reinvested
		s.publishSettledEvent(ctx, id, result)
	}

	if err := s.signals.RefreshStaticSlate(ctx); err != nil {
		return err
	}

	if summary.SignalsResolved > 0 {
		s.notify(ctx, summary)
	}
	return nil
}

// settleSignal resolves one signal in a single transaction. The signal is
// re-selected under a row lock with the unresolved predicate, so a signal
// settled (or being settled) elsewhere since the batch query is skipped.
func (s *settlementService) settleSignal(ctx context.Context, signalID uint) (signalResult, error) {
	var result signalResult
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		signal, err := r.Signals().LockForSettlement(ctx, signalID, s.clock.Now())
		if err != nil {
			if err == entity.ErrNotFound {
				return nil
			}
			return err
		}

		success := s.rnd.Float64() > signal.BurnChance
		signal.IsSuccessful = sql.NullBool{Bool: success, Valid: true}
		if err := r.Signals().Update(ctx, signal); err != nil {
			return err
		}

		investments, err := r.Investments().FindBySignalID(ctx, signal.ID)
		if err != nil {
			return err
		}
		for i := range investments {
			if investments[i].IsChecked {
				continue
			}
			if err := s.settleInvestment(ctx, r, signal, &investments[i], success, &result); err != nil {
				return err
			}
		}

		if !success {
			// Defensive sweep: anything the main loop left unchecked is
			// flagged as lost without financial effect.
			for i := range investments {
				if investments[i].IsChecked {
					continue
				}
				investments[i].Profit = sql.NullBool{Bool: false, Valid: true}
				if err := r.Investments().Update(ctx, &investments[i]); err != nil {
					return err
				}
			}
		}

		result.settled = true
		result.name = signal.Name
		result.success = success
		return nil
	})
	if err != nil {
		return signalResult{}, err
	}
	if result.settled {
		s.logger.Info("signal settled",
			logger.Field("signal_id", signalID),
			logger.Field("name", result.name),
			logger.Field("success", result.success),
			logger.Field("investments", result.investments))
	}
	return result, nil
}

func (s *settlementService) settleInvestment(ctx context.Context, r repository.Registry, signal *entity.Signal, inv *entity.SignalInvestment, success bool, result *signalResult) error {
	user, err := r.Users().FindByID(ctx, inv.UserID)
	if err != nil {
		if err == entity.ErrNotFound {
			s.logger.Warn("investor missing, investment skipped",
				logger.Field("user_id", inv.UserID),
				logger.Field("investment_id", inv.ID))
			return nil
		}
		return err
	}

	profit := Round2(inv.Amount * (s.settings.ProfitMultiplier - 1))
	totalEarned := inv.Amount + profit
	reinvestAmount := Round2(profit * float64(user.ReinvestPercent) / 100)

	meta := map[string]interface{}{
		"signal_id":     signal.ID,
		"investment_id": inv.ID,
	}
	if success {
		if err := s.ledger.Credit(ctx, r, user.ID, FieldFrozen, totalEarned, common.TxTypeSettlement, meta); err != nil {
			return err
		}
		// Reinvestment keys off the signal outcome, not the per-investment
		// flag written below. Upstream behavior, kept as observed.
		if err := s.ledger.Credit(ctx, r, user.ID, FieldTrade, reinvestAmount, common.TxTypeSettlement, meta); err != nil {
			return err
		}
		if err := s.ledger.CreditEarned(ctx, r, user.ID, profit, meta); err != nil {
			return err
		}
		result.profitPaid += profit
		result.reinvested += reinvestAmount
	}

	inv.Profit = sql.NullBool{Bool: success, Valid: true}
	if err := r.Profits().Create(ctx, &entity.Profit{
		UserID:           user.ID,
		SignalID:         signal.ID,
		Amount:           inv.Amount,
		Profit:           profit,
		ReinvestedAmount: reinvestAmount,
	}); err != nil {
		return err
	}

	if user.InWork > 0 && user.InWork <= user.Plan {
		inv.InWork--
		user.InWork--
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
	}

	inv.IsChecked = true
	if err := r.Investments().Update(ctx, inv); err != nil {
		return err
	}
	result.investments++
	return nil
}

// acquirePassLock takes the Redis lease that keeps a second engine instance
// from running a concurrent pass. Without Redis configured the pass runs
// unguarded (single-instance deployment).
func (s *settlementService) acquirePassLock(ctx context.Context) (func(), bool, error) {
	if s.redisClient == nil {
		return func() {}, true, nil
	}
	ok, err := s.redisClient.SetNX(ctx, common.RedisKeySettlementLock, s.clock.Now().UnixNano(), s.settings.PassLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if err := s.redisClient.Del(context.WithoutCancel(ctx), common.RedisKeySettlementLock).Err(); err != nil {
			s.logger.Warn("failed to release settlement lock", logger.ErrorField(err))
		}
	}, true, nil
}

func (s *settlementService) publishSettledEvent(ctx context.Context, signalID uint, result signalResult) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"signal_id":   signalID,
		"name":        result.name,
		"success":     result.success,
		"investments": result.investments,
		"settled_at":  s.clock.Now(),
	})
	if err != nil {
		s.logger.Error("failed to marshal settled event", logger.ErrorField(err))
		return
	}
	if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSignalSettled,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: 10000,
		Approx: true,
	}).Err(); err != nil {
		s.logger.Error("failed to publish settled event",
			logger.Field("signal_id", signalID), logger.ErrorField(err))
	}
}

func (s *settlementService) notify(ctx context.Context, summary telegram.SettlementSummary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(ctx, telegram.FormatSettlementSummary(summary)); err != nil {
		s.logger.Warn("failed to send settlement summary", logger.ErrorField(err))
	}
}
