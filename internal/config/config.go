package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// ErrInvalidConfig is returned when a loaded configuration cannot be used to
// start a server.
var ErrInvalidConfig = errors.New("invalid configuration")

// MinSweepIntervalMs is the smallest accepted expired-entry sweep interval.
const MinSweepIntervalMs = 1000

var logLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

type Config struct {
	// Network
	ListenHost string `toml:"listen_host" env:"HERON_LISTEN_HOST"`
	Port       int    `toml:"port" env:"HERON_PORT"`

	// Worker pool
	InitWorkers         int `toml:"init_workers" env:"HERON_INIT_WORKERS"`
	MaxWorkers          int `toml:"max_workers" env:"HERON_MAX_WORKERS"`
	WorkerIdleTimeoutMs int `toml:"worker_idle_timeout_ms" env:"HERON_WORKER_IDLE_TIMEOUT_MS"`

	// Limits
	MaxValueBytes int `toml:"max_value_bytes" env:"HERON_MAX_VALUE_BYTES"`

	// Expiry
	SweepIntervalMs int `toml:"sweep_interval_ms" env:"HERON_SWEEP_INTERVAL_MS"`

	// Logging
	LogLevel           string `toml:"log_level" env:"HERON_LOG_LEVEL"`
	LogFile            string `toml:"log_file" env:"HERON_LOG_FILE"`
	SlowlogThresholdMs int    `toml:"slowlog_threshold_ms" env:"HERON_SLOWLOG_THRESHOLD_MS"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenHost:          "0.0.0.0",
		Port:                9010,
		InitWorkers:         4,
		MaxWorkers:          64,
		WorkerIdleTimeoutMs: 60000,
		MaxValueBytes:       16 * 1024 * 1024, // 16 MiB
		SweepIntervalMs:     10000,
		LogLevel:            "INFO",
		LogFile:             "",
		SlowlogThresholdMs:  50,
	}
}

// LoadConfig builds a Config from defaults, the TOML file at path (if it
// exists), an optional .env file and HERON_* environment variables, in that
// order of precedence. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidConfig, path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting the server depends on at startup.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return invalid("port should be between 0 and 65535, got %d", c.Port)
	}
	if c.InitWorkers < 1 {
		return invalid("init_workers should be >= 1, got %d", c.InitWorkers)
	}
	if c.MaxWorkers < 1 {
		return invalid("max_workers should be >= 1, got %d", c.MaxWorkers)
	}
	if c.MaxWorkers < c.InitWorkers {
		return invalid("max_workers (%d) should be >= init_workers (%d)", c.MaxWorkers, c.InitWorkers)
	}
	if c.WorkerIdleTimeoutMs < 0 {
		return invalid("worker_idle_timeout_ms should be >= 0, got %d", c.WorkerIdleTimeoutMs)
	}
	if c.SweepIntervalMs < MinSweepIntervalMs {
		return invalid("sweep_interval_ms should be >= %d, got %d", MinSweepIntervalMs, c.SweepIntervalMs)
	}
	if c.MaxValueBytes < 1 {
		return invalid("max_value_bytes should be >= 1, got %d", c.MaxValueBytes)
	}
	if !lo.Contains(logLevels, strings.ToUpper(c.LogLevel)) {
		return invalid("log_level should be one of %s, got %q", strings.Join(logLevels, "|"), c.LogLevel)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.Port))
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

func (c *Config) WorkerIdleTimeout() time.Duration {
	return time.Duration(c.WorkerIdleTimeoutMs) * time.Millisecond
}

func (c *Config) SlowlogThreshold() time.Duration {
	return time.Duration(c.SlowlogThresholdMs) * time.Millisecond
}

func (c *Config) String() string {
	return fmt.Sprintf("port=%d, initWorkers=%d, maxWorkers=%d, sweepInterval=%dms",
		c.Port, c.InitWorkers, c.MaxWorkers, c.SweepIntervalMs)
}
