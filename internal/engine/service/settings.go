package service

import (
	"fmt"
	"time"

	"signals-pool/internal/engine/config"
)

// Settings carries every tunable the engine components need, resolved from the
// raw configuration once at startup so the components themselves never touch
// global state.
type Settings struct {
	SettlementInterval     time.Duration
	SettlementErrorBackoff time.Duration
	AutoModeInterval       time.Duration
	PassLockTTL            time.Duration
	ProfitMultiplier       float64
	AutoModeMinBalance     float64
	AutoModeLock           time.Duration
	StaticSlateSize        int
	ReferralBonusRate      float64
	BurnChanceMin          float64
	BurnChanceMax          float64
	OpenSignalsCacheTTL    time.Duration
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		SettlementInterval:     60 * time.Second,
		SettlementErrorBackoff: 10 * time.Second,
		AutoModeInterval:       60 * time.Second,
		PassLockTTL:            50 * time.Second,
		ProfitMultiplier:       1.01,
		AutoModeMinBalance:     10,
		AutoModeLock:           3 * time.Minute,
		StaticSlateSize:        9,
		ReferralBonusRate:      0.01,
		BurnChanceMin:          0.05,
		BurnChanceMax:          0.90,
		OpenSignalsCacheTTL:    5 * time.Second,
	}
}

// SettingsFromConfig resolves Settings from the engine configuration,
// falling back to defaults for unset values.
func SettingsFromConfig(cfg config.Engine) (Settings, error) {
	s := DefaultSettings()

	durations := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.SettlementInterval, "settlement_interval", &s.SettlementInterval},
		{cfg.SettlementErrorBackoff, "settlement_error_backoff", &s.SettlementErrorBackoff},
		{cfg.AutoModeInterval, "auto_mode_interval", &s.AutoModeInterval},
		{cfg.PassLockTTL, "pass_lock_ttl", &s.PassLockTTL},
		{cfg.AutoModeLock, "auto_mode_lock", &s.AutoModeLock},
		{cfg.OpenSignalsCacheTTL, "open_signals_cache_ttl", &s.OpenSignalsCacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if cfg.ProfitMultiplier > 0 {
		s.ProfitMultiplier = cfg.ProfitMultiplier
	}
	if cfg.AutoModeMinBalance > 0 {
		s.AutoModeMinBalance = cfg.AutoModeMinBalance
	}
	if cfg.StaticSlateSize > 0 {
		s.StaticSlateSize = cfg.StaticSlateSize
	}
	if cfg.ReferralBonusRate > 0 {
		s.ReferralBonusRate = cfg.ReferralBonusRate
	}
	if cfg.BurnChanceMin > 0 {
		s.BurnChanceMin = cfg.BurnChanceMin
	}
	if cfg.BurnChanceMax > 0 {
		s.BurnChanceMax = cfg.BurnChanceMax
	}
	return s, nil
}
