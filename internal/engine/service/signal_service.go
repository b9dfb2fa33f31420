package service

import (
	"context"
	"fmt"
	"time"

	"signals-pool/internal/entity"
	"signals-pool/internal/engine/repository"
	"signals-pool/pkg/common"
	"signals-pool/pkg/logger"
	"signals-pool/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
)

// maxSignalSeconds caps join and active windows at ten years, guarding
// against overflow and garbage input.
const maxSignalSeconds = 10 * 365 * 24 * 60 * 60

const openSignalsCacheKey = "open-signals"

// CustomSignalParams are the caller-supplied parameters for a custom signal.
// The burn chance is never caller-supplied; it is derived from the profit so
// a high-reward signal cannot be crafted risk-free.
type CustomSignalParams struct {
	Name          string
	JoinSeconds   int
	ActiveSeconds int
	ProfitPercent float64
	SignalCost    float64
}

// SignalService manages the signal lifecycle: creation of random, custom and
// static-slate signals, and the open-signal listing.
type SignalService interface {
	CreateSignal(ctx context.Context, name string, joinSeconds, activeSeconds int, burnChance, profitPercent, cost float64) (*entity.Signal, error)
	CreateRandomSignal(ctx context.Context, name string) (*entity.Signal, error)
	CreateCustomSignal(ctx context.Context, params CustomSignalParams) (*entity.Signal, error)
	RefreshStaticSlate(ctx context.Context) error
	ListOpenSignals(ctx context.Context, userID uint) ([]entity.Signal, error)
}

// NewSignalService creates a new signal lifecycle service.
func NewSignalService(registry repository.Registry, log *logger.Logger, settings Settings, clock utils.Clock, rnd utils.Rand) SignalService {
	return &signalService{
		registry: registry,
		logger:   log,
		settings: settings,
		clock:    clock,
		rnd:      rnd,
		cache:    gocache.New(settings.OpenSignalsCacheTTL, time.Minute),
	}
}

type signalService struct {
	registry repository.Registry
	logger   *logger.Logger
	settings Settings
	clock    utils.Clock
	rnd      utils.Rand
	cache    *gocache.Cache
}

// CreateSignal creates a signal whose join window closes joinSeconds from now
// and whose outcome is decided activeSeconds after that.
func (s *signalService) CreateSignal(ctx context.Context, name string, joinSeconds, activeSeconds int, burnChance, profitPercent, cost float64) (*entity.Signal, error) {
	if joinSeconds <= 0 || activeSeconds <= 0 {
		return nil, entity.Validationf("join and active windows must be positive")
	}
	if joinSeconds > maxSignalSeconds || activeSeconds > maxSignalSeconds {
		return nil, entity.Validationf("join and active windows must not exceed ten years")
	}

	now := s.clock.Now()
	joinUntil := now.Add(time.Duration(joinSeconds) * time.Second)
	signal := &entity.Signal{
		Name:          name,
		JoinUntil:     joinUntil,
		ExpiresAt:     joinUntil.Add(time.Duration(activeSeconds) * time.Second),
		BurnChance:    burnChance,
		ProfitPercent: profitPercent,
		SignalCost:    cost,
	}
	if err := s.registry.Signals().Create(ctx, signal); err != nil {
		return nil, err
	}
	s.logger.Info("signal created",
		logger.Field("signal_id", signal.ID),
		logger.Field("name", name),
		logger.Field("join_until", signal.JoinUntil),
		logger.Field("expires_at", signal.ExpiresAt))
	return signal, nil
}

// CreateRandomSignal creates a signal with randomized parameters. Risk is
// correlated with reward: the burn chance is derived from the rolled profit.
func (s *signalService) CreateRandomSignal(ctx context.Context, name string) (*entity.Signal, error) {
	joinSeconds := 60 + s.rnd.IntN(541)      // 1-10 minutes
	activeSeconds := 600 + s.rnd.IntN(3001)  // 10-60 minutes
	profit := 0.04 + s.rnd.Float64()*0.56    // 4-60%
	cost := float64(100 + s.rnd.IntN(901))   // 100-1000
	burn := s.deriveBurnChance(profit)
	return s.CreateSignal(ctx, name, joinSeconds, activeSeconds, burn, profit, cost)
}

// CreateCustomSignal creates a signal from caller-supplied parameters after
// bounds validation.
func (s *signalService) CreateCustomSignal(ctx context.Context, params CustomSignalParams) (*entity.Signal, error) {
	if params.ProfitPercent < 0.04 || params.ProfitPercent > 0.60 {
		return nil, entity.Validationf("profit percent must be between 0.04 and 0.60")
	}
	if params.SignalCost < 100 || params.SignalCost > 1000 {
		return nil, entity.Validationf("signal cost must be between 100 and 1000")
	}
	burn := s.deriveBurnChance(params.ProfitPercent)
	return s.CreateSignal(ctx, params.Name, params.JoinSeconds, params.ActiveSeconds, burn, params.ProfitPercent, params.SignalCost)
}

// RefreshStaticSlate replaces all unresolved static signals with a fresh
// fixed-size batch. Delete-then-insert inside one transaction keeps the call
// idempotent: repeated refreshes never leak duplicate slate rows.
func (s *signalService) RefreshStaticSlate(ctx context.Context) error {
	now := s.clock.Now()
	err := s.registry.Atomic(ctx, func(r repository.Registry) error {
		if err := r.Signals().DeleteUnresolvedByNamePrefix(ctx, common.StaticSignalPrefix); err != nil {
			return err
		}
		for i := 0; i < s.settings.StaticSlateSize; i++ {
			profit := 0.04 + s.rnd.Float64()*0.56
			signal := &entity.Signal{
				Name:          fmt.Sprintf("%s %d", common.StaticSignalPrefix, i+1),
				JoinUntil:     now.Add(15 * time.Minute),
				ExpiresAt:     now.Add(15 * time.Minute).Add(20 * time.Minute),
				BurnChance:    s.deriveBurnChance(profit),
				ProfitPercent: profit,
				SignalCost:    float64(100 + s.rnd.IntN(101)),
			}
			if err := r.Signals().Create(ctx, signal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("static slate refreshed", logger.Field("size", s.settings.StaticSlateSize))
	return nil
}

// ListOpenSignals returns the signals a user may still join, limited by the
// user's plan tier. Results are cached briefly per limit to keep the hot read
// path off the database.
func (s *signalService) ListOpenSignals(ctx context.Context, userID uint) ([]entity.Signal, error) {
	user, err := s.registry.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit := planSignalLimit(user.Plan)

	cacheKey := fmt.Sprintf("%s:%d", openSignalsCacheKey, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]entity.Signal), nil
	}
	signals, err := s.registry.Signals().FindOpen(ctx, s.clock.Now(), limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey, signals, gocache.DefaultExpiration)
	return signals, nil
}

// deriveBurnChance correlates risk with reward: 50-150% of the profit
// fraction, clamped to the configured floor and ceiling.
func (s *signalService) deriveBurnChance(profit float64) float64 {
	burn := profit * (0.5 + s.rnd.Float64())
	if burn < s.settings.BurnChanceMin {
		burn = s.settings.BurnChanceMin
	}
	if burn > s.settings.BurnChanceMax {
		burn = s.settings.BurnChanceMax
	}
	return burn
}

func planSignalLimit(plan int) int {
	switch plan {
	case 1:
		return 4
	case 2:
		return 5
	default:
		return 2
	}
}
