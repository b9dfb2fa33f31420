package service

import (
	"context"
	"database/sql"
	"time"

	"signals-pool/internal/entity"
	"signals-pool/internal/engine/repository"
	"signals-pool/pkg/common"
	"signals-pool/pkg/logger"
	"signals-pool/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// AutoModeService enrolls opted-in users into signals without manual action
// and owns the enable/disable operations with their minimum lock period. The
// lock exists to stop enable/disable flapping around settlement boundaries.
type AutoModeService interface {
	Start(ctx context.Context)
	ProcessUsers(ctx context.Context) error
	Enable(ctx context.Context, userID uint) (time.Time, error)
	Disable(ctx context.Context, userID uint) (time.Time, error)
}

// NewAutoModeService creates a new auto-mode processor. redisClient may be
// nil; pass locking is then skipped.
func NewAutoModeService(
	registry repository.Registry,
	ledger LedgerService,
	redisClient *redis.Client,
	log *logger.Logger,
	settings Settings,
	clock utils.Clock,
	rnd utils.Rand,
) AutoModeService {
	return &autoModeService{
		registry:    registry,
		ledger:      ledger,
		redisClient: redisClient,
		logger:      log,
		settings:    settings,
		clock:       clock,
		rnd:         rnd,
	}
}

type autoModeService struct {
	registry    repository.Registry
	ledger      LedgerService
	redisClient *redis.Client
	logger      *logger.Logger
	settings    Settings
	clock       utils.Clock
	rnd         utils.Rand
}

// Start runs the auto-mode loop on its own cadence until ctx is cancelled.
func (s *autoModeService) Start(ctx context.Context) {
	s.logger.Info("auto-mode processor started",
		logger.Field("interval", s.settings.AutoModeInterval.String()))
	ticker := time.NewTicker(s.settings.AutoModeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-mode processor stopping")
			return
		case <-ticker.C:
			if err := s.ProcessUsers(ctx); err != nil {
				s.logger.Error("auto-mode pass failed", logger.ErrorField(err))
			}
		}
	}
}

// ProcessUsers enrolls every opted-in user into an eligible signal. Each user
// is handled in an isolated transaction; a failure logs and moves on.
func (s *autoModeService) ProcessUsers(ctx context.Context) error {
	release, acquired, err := s.acquirePassLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug("auto-mode pass skipped, lock held elsewhere")
		return nil
	}
	defer release()

	users, err := s.registry.Users().FindAutoModeEnabled(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if err := s.enrollUser(ctx, &users[i]); err != nil {
			s.logger.Error("auto-mode enrollment failed",
				logger.Field("user_id", users[i].ID), logger.ErrorField(err))
		}
	}
	return nil
}

// enrollUser finds or synthesizes an eligible signal and enrolls the user,
// debiting the main balance directly. Soft conditions (low balance, already
// invested) skip the user without error.
func (s *autoModeService) enrollUser(ctx context.Context, user *entity.User) error {
	return s.registry.Atomic(ctx, func(r repository.Registry) error {
		balance, err := r.Balances().FindByUserID(ctx, user.ID)
		if err != nil {
			if err == entity.ErrNotFound {
				s.logger.Warn("auto-mode user has no balance row", logger.Field("user_id", user.ID))
				return nil
			}
			return err
		}
		if balance.Main < s.settings.AutoModeMinBalance {
			s.logger.Debug("auto-mode user below minimum balance",
				logger.Field("user_id", user.ID), logger.Field("main", balance.Main))
			return nil
		}

		now := s.clock.Now()
		signal, err := r.Signals().FindFirstUnresolved(ctx, now)
		if err != nil {
			if err != entity.ErrNotFound {
				return err
			}
			signal, err = s.synthesizeSignal(ctx, r, now)
			if err != nil {
				return err
			}
		}

		if _, err := r.Investments().FindByUserAndSignal(ctx, user.ID, signal.ID); err == nil {
			return nil
		} else if err != entity.ErrNotFound {
			return err
		}

		meta := map[string]interface{}{"signal_id": signal.ID}
		if err := s.ledger.Debit(ctx, r, user.ID, FieldMain, signal.SignalCost, common.TxTypeAutoJoin, meta); err != nil {
			if err == entity.ErrInsufficientFunds {
				s.logger.Debug("auto-mode user cannot cover signal cost",
					logger.Field("user_id", user.ID), logger.Field("cost", signal.SignalCost))
				return nil
			}
			return err
		}

		investment := &entity.SignalInvestment{
			SignalID: signal.ID,
			UserID:   user.ID,
			Amount:   signal.SignalCost,
			AutoMode: true,
		}
		if err := r.Investments().Create(ctx, investment); err != nil {
			if err == entity.ErrAlreadyJoined {
				return nil
			}
			return err
		}
		s.logger.Info("auto-mode user enrolled",
			logger.Field("user_id", user.ID), logger.Field("signal_id", signal.ID))
		return nil
	})
}

// synthesizeSignal creates the low-risk signal auto mode falls back to when
// nothing is active: burn 1-5%, profit 5-15%, cost 100-200, five minutes to
// join, one hour active.
func (s *autoModeService) synthesizeSignal(ctx context.Context, r repository.Registry, now time.Time) (*entity.Signal, error) {
	signal := &entity.Signal{
		Name:          common.AutoSignalName,
		JoinUntil:     now.Add(5 * time.Minute),
		ExpiresAt:     now.Add(time.Hour),
		BurnChance:    0.01 + s.rnd.Float64()*0.04,
		ProfitPercent: 0.05 + s.rnd.Float64()*0.10,
		SignalCost:    float64(100 + s.rnd.IntN(101)),
	}
	if err := r.Signals().Create(ctx, signal); err != nil {
		return nil, err
	}
	s.logger.Info("auto signal synthesized",
		logger.Field("signal_id", signal.ID),
		logger.Field("burn_chance", signal.BurnChance),
		logger.Field("cost", signal.SignalCost))
	return signal, nil
}

// Enable opts the user into auto mode, joins the soonest-closing open signal
// immediately and sets the minimum lock before opt-out.
func (s *autoModeService) Enable(ctx context.Context, userID uint) (time.Time, error) {
	var lockedUntil time.Time
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.AutoModeEnabled {
			return entity.Validationf("auto mode is already enabled")
		}

		now := s.clock.Now()
		signal, err := r.Signals().FindFirstOpen(ctx, now)
		if err != nil {
			if err == entity.ErrNotFound {
				return entity.Validationf("no open signals available")
			}
			return err
		}

		meta := map[string]interface{}{"signal_id": signal.ID}
		if err := s.ledger.Debit(ctx, r, userID, FieldTrade, signal.SignalCost, common.TxTypeAutoJoin, meta); err != nil {
			return err
		}
		user.InWork++

		investment := &entity.SignalInvestment{
			SignalID: signal.ID,
			UserID:   userID,
			Amount:   signal.SignalCost,
			AutoMode: true,
			InWork:   1,
		}
		if err := r.Investments().Create(ctx, investment); err != nil {
			return err
		}

		lockedUntil = now.Add(s.settings.AutoModeLock)
		user.AutoModeEnabled = true
		user.AutoModeLockedUntil = sql.NullTime{Time: lockedUntil, Valid: true}
		return r.Users().Update(ctx, user)
	})
	if err != nil {
		return time.Time{}, err
	}
	s.logger.Info("auto mode enabled",
		logger.Field("user_id", userID), logger.Field("locked_until", lockedUntil))
	return lockedUntil, nil
}

// Disable opts the user out of auto mode. Before the lock expires the attempt
// fails with ErrAutoModeLocked and the lock timestamp is returned so callers
// can echo it.
func (s *autoModeService) Disable(ctx context.Context, userID uint) (time.Time, error) {
	var lockedUntil time.Time
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.AutoModeEnabled {
			return entity.Validationf("auto mode is already disabled")
		}
		if user.AutoModeLockedUntil.Valid && s.clock.Now().Before(user.AutoModeLockedUntil.Time) {
			lockedUntil = user.AutoModeLockedUntil.Time
			return entity.ErrAutoModeLocked
		}
		user.AutoModeEnabled = false
		user.AutoModeLockedUntil = sql.NullTime{}
		return r.Users().Update(ctx, user)
	})
	if err != nil {
		return lockedUntil, err
	}
	s.logger.Info("auto mode disabled", logger.Field("user_id", userID))
	return time.Time{}, nil
}

func (s *autoModeService) acquirePassLock(ctx context.Context) (func(), bool, error) {
	if s.redisClient == nil {
		return func() {}, true, nil
	}
	ok, err := s.redisClient.SetNX(ctx, common.RedisKeyAutoModeLock, s.clock.Now().UnixNano(), s.settings.PassLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if err := s.redisClient.Del(context.WithoutCancel(ctx), common.RedisKeyAutoModeLock).Err(); err != nil {
			s.logger.Warn("failed to release auto-mode lock", logger.ErrorField(err))
		}
	}, true, nil
}
