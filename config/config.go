package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"smoothie-happy/board"
)

// Keys shared by the config file, the environment and the CLI flags
const (
	KeyAddress      = "board.address"
	KeyTimeout      = "board.timeout"
	KeyMaxAttempts  = "board.max_attempts"
	KeyAttemptDelay = "board.attempt_delay"
	KeyBreakTimeout = "board.break_timeout"
	KeyLogLevel     = "log.level"
	KeyMetricsAddr  = "metrics.addr"
)

// Config holds the resolved configuration
type Config struct {
	Board struct {
		Address      string
		Timeout      time.Duration
		MaxAttempts  int
		AttemptDelay time.Duration
		BreakTimeout time.Duration
	}
	Log struct {
		Level string
	}
	Metrics struct {
		Addr string
	}
}

// New returns a viper instance with defaults, environment bindings and
// config file search paths set
func New() *viper.Viper {
	v := viper.New()

	defaults := board.DefaultSettings()
	v.SetDefault(KeyAddress, "")
	v.SetDefault(KeyTimeout, defaults.Timeout)
	v.SetDefault(KeyMaxAttempts, defaults.MaxAttempts)
	v.SetDefault(KeyAttemptDelay, defaults.AttemptDelay)
	v.SetDefault(KeyBreakTimeout, defaults.BreakTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetricsAddr, "")

	// Environment variables
	v.BindEnv(KeyAddress, "SMOOTHIE_ADDRESS")
	v.BindEnv(KeyTimeout, "SMOOTHIE_TIMEOUT")
	v.BindEnv(KeyMaxAttempts, "SMOOTHIE_MAX_ATTEMPTS")
	v.BindEnv(KeyAttemptDelay, "SMOOTHIE_ATTEMPT_DELAY")
	v.BindEnv(KeyBreakTimeout, "SMOOTHIE_BREAK_TIMEOUT")
	v.BindEnv(KeyLogLevel, "SMOOTHIE_LOG_LEVEL")
	v.BindEnv(KeyMetricsAddr, "SMOOTHIE_METRICS_ADDR")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths := []string{
		".",
		"$HOME/.smoothie-happy",
	}
	for _, path := range configPaths {
		v.AddConfigPath(os.ExpandEnv(path))
	}

	return v
}

// Load reads the config file, cfgFile when set or the first one found in
// the search paths, and resolves every key. A missing config file is
// not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Board.Address = v.GetString(KeyAddress)
	cfg.Board.Timeout = v.GetDuration(KeyTimeout)
	cfg.Board.MaxAttempts = v.GetInt(KeyMaxAttempts)
	cfg.Board.AttemptDelay = v.GetDuration(KeyAttemptDelay)
	cfg.Board.BreakTimeout = v.GetDuration(KeyBreakTimeout)
	cfg.Log.Level = v.GetString(KeyLogLevel)
	cfg.Metrics.Addr = v.GetString(KeyMetricsAddr)

	if cfg.Board.Timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %v", KeyTimeout, cfg.Board.Timeout)
	}
	return cfg, nil
}

// Settings returns the board settings described by the config
func (c *Config) Settings() board.Settings {
	return board.Settings{
		Timeout:      c.Board.Timeout,
		MaxAttempts:  c.Board.MaxAttempts,
		AttemptDelay: c.Board.AttemptDelay,
		BreakTimeout: c.Board.BreakTimeout,
	}
}
