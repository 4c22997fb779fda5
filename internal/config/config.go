package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	PollInterval time.Duration  `mapstructure:"poll_interval"`
	Delta        DeltaConfig    `mapstructure:"delta"`
	Engine       EngineConfig   `mapstructure:"engine"`
	Storage      StorageConfig  `mapstructure:"storage"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
	Logging      LoggingConfig  `mapstructure:"logging"`
}

// DeltaConfig holds Delta Exchange API configuration
type DeltaConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	ProductSymbol  string        `mapstructure:"product_symbol"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// EngineConfig holds decision-engine behavior configuration
type EngineConfig struct {
	MoveThresholdPct  float64 `mapstructure:"move_threshold_pct"`
	AMCaptureTime     string  `mapstructure:"am_capture_time"`
	PMCaptureTime     string  `mapstructure:"pm_capture_time"`
	Timezone          string  `mapstructure:"timezone"`
	UpTargetPremium   float64 `mapstructure:"up_target_premium"`
	UpTargetLots      int     `mapstructure:"up_target_lots"`
	DownTargetPremium float64 `mapstructure:"down_target_premium"`
	DownTargetLots    int     `mapstructure:"down_target_lots"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"`
	MaxDecisions int    `mapstructure:"max_decisions"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("BTC_SENTRY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Sub-second polling so the one-second capture windows are not skipped
	v.SetDefault("poll_interval", "500ms")

	// Delta Exchange defaults
	v.SetDefault("delta.api_url", "https://api.delta.exchange")
	v.SetDefault("delta.product_symbol", "BTCUSDT")
	v.SetDefault("delta.timeout", "10s")
	v.SetDefault("delta.max_retries", 3)
	v.SetDefault("delta.retry_delay_base", "1s")

	// Engine defaults
	v.SetDefault("engine.move_threshold_pct", 1.5)
	v.SetDefault("engine.am_capture_time", "05:29:59")
	v.SetDefault("engine.pm_capture_time", "17:29:59")
	v.SetDefault("engine.timezone", "Asia/Kolkata")
	v.SetDefault("engine.up_target_premium", 200.0)
	v.SetDefault("engine.up_target_lots", 20)
	v.SetDefault("engine.down_target_premium", 100.0)
	v.SetDefault("engine.down_target_lots", 15)

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/btcsentry.db")
	v.SetDefault("storage.max_decisions", 1000)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be at least 100ms")
	}
	if c.PollInterval > time.Second {
		return fmt.Errorf("poll_interval must not exceed 1s (capture windows are one second wide)")
	}

	// Validate Delta config
	if c.Delta.APIURL == "" {
		return fmt.Errorf("delta.api_url is required")
	}
	if c.Delta.ProductSymbol == "" {
		return fmt.Errorf("delta.product_symbol is required")
	}
	if c.Delta.Timeout < time.Second {
		return fmt.Errorf("delta.timeout must be at least 1 second")
	}
	if c.Delta.MaxRetries < 1 {
		return fmt.Errorf("delta.max_retries must be at least 1")
	}

	// Validate Engine config
	if c.Engine.MoveThresholdPct <= 0 {
		return fmt.Errorf("engine.move_threshold_pct must be positive")
	}
	if _, err := time.Parse("15:04:05", c.Engine.AMCaptureTime); err != nil {
		return fmt.Errorf("engine.am_capture_time must be HH:MM:SS: %w", err)
	}
	if _, err := time.Parse("15:04:05", c.Engine.PMCaptureTime); err != nil {
		return fmt.Errorf("engine.pm_capture_time must be HH:MM:SS: %w", err)
	}
	if c.Engine.AMCaptureTime == c.Engine.PMCaptureTime {
		return fmt.Errorf("engine capture times must differ")
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("engine.timezone is not a valid IANA zone: %w", err)
	}
	if c.Engine.UpTargetPremium <= 0 || c.Engine.DownTargetPremium <= 0 {
		return fmt.Errorf("engine target premiums must be positive")
	}
	if c.Engine.UpTargetLots < 1 || c.Engine.DownTargetLots < 1 {
		return fmt.Errorf("engine target lots must be at least 1")
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxDecisions < 1 {
		return fmt.Errorf("storage.max_decisions must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
