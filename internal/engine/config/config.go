package config

import (
	"signals-pool/pkg/config"
)

// Engine holds the settlement engine configuration.
type Engine struct {
	SettlementInterval     string  `mapstructure:"settlement_interval"`
	SettlementErrorBackoff string  `mapstructure:"settlement_error_backoff"`
	AutoModeInterval       string  `mapstructure:"auto_mode_interval"`
	PassLockTTL            string  `mapstructure:"pass_lock_ttl"`
	ProfitMultiplier       float64 `mapstructure:"profit_multiplier"`
	AutoModeMinBalance     float64 `mapstructure:"auto_mode_min_balance"`
	AutoModeLock           string  `mapstructure:"auto_mode_lock"`
	StaticSlateSize        int     `mapstructure:"static_slate_size"`
	StaticSlateCron        string  `mapstructure:"static_slate_cron"`
	ReferralBonusRate      float64 `mapstructure:"referral_bonus_rate"`
	BurnChanceMin          float64 `mapstructure:"burn_chance_min"`
	BurnChanceMax          float64 `mapstructure:"burn_chance_max"`
	OpenSignalsCacheTTL    string  `mapstructure:"open_signals_cache_ttl"`
}

// Telegram holds the operator notification settings.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the engine service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Engine   Engine          `mapstructure:"engine"`
	Telegram Telegram        `mapstructure:"telegram"`
}

// Load loads the engine configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
