package application

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rs/zerolog/log"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/gates"
	"github.com/trendgate/trendgate/internal/httpapi"
)

// Config is the top-level service configuration. Every field has a working
// default; an absent file means defaults, a present file overrides per key.
type Config struct {
	Symbols             []string `yaml:"symbols"`
	Timeframes          []string `yaml:"timeframes"`
	TickIntervalSeconds int      `yaml:"tick_interval_seconds"`

	ThresholdsFile string `yaml:"thresholds_file"`

	RedisAddr   string `yaml:"redis_addr"`
	PostgresDSN string `yaml:"postgres_dsn"`

	HTTP httpapi.Config `yaml:"http"`
}

// DefaultConfig returns the local single-node defaults
func DefaultConfig() Config {
	return Config{
		Symbols:             []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		Timeframes:          []string{"15m", "1h", "4h"},
		TickIntervalSeconds: 5,
		ThresholdsFile:      "config/thresholds.yaml",
		HTTP:                httpapi.DefaultConfig(),
	}
}

// LoadConfig reads the YAML file over defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the watcher cannot run with
func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: no symbols")
	}
	if c.TickIntervalSeconds <= 0 {
		return fmt.Errorf("config: tick_interval_seconds must be positive")
	}
	if _, err := c.ParsedTimeframes(); err != nil {
		return err
	}
	return nil
}

// LoadThresholds reads the gate thresholds file. A missing file falls back
// to the built-in defaults; a present but invalid one is a hard error.
func (c Config) LoadThresholds() (gates.Thresholds, error) {
	t, err := gates.LoadThresholds(c.ThresholdsFile)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", c.ThresholdsFile).Msg("thresholds file not found, using defaults")
		return gates.DefaultThresholds(), nil
	}
	return t, err
}

// TickInterval returns the price tick cadence
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// ParsedTimeframes converts the configured timeframe strings
func (c Config) ParsedTimeframes() ([]domain.Timeframe, error) {
	if len(c.Timeframes) == 0 {
		return nil, fmt.Errorf("config: no timeframes")
	}
	out := make([]domain.Timeframe, 0, len(c.Timeframes))
	for _, s := range c.Timeframes {
		tf, err := domain.ParseTimeframe(s)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		out = append(out, tf)
	}
	return out, nil
}
