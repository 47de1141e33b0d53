package config

import (
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/roadwatch/internal/errors"
)

const (
	DefaultLogLevel = "info"

	defaultInterval     = 2
	defaultCapacity     = 10
	defaultFlashSeconds = 3

	defaultEscalateAbove = 1.5
	defaultEscalateBelow = 2.0 / 3.0

	defaultListen      = ":9090"
	defaultTelemetryDB = "/var/lib/roadwatch/telemetry.db"
	defaultEntityID    = "driver-1"
	defaultRedisPrefix = "roadwatch:samples:"
)

// Config is the daemon configuration, merged from defaults, the TOML
// config file and command-line flags (flags win).
type Config struct {
	// Interval is the detector tick cadence in seconds.
	Interval int `mapstructure:"interval"`
	// Capacity bounds per-entity alert history.
	Capacity int `mapstructure:"capacity"`
	// DedupeWindow is the alert suppression window in ticks.
	DedupeWindow int `mapstructure:"dedupe_window"`
	// FlashSeconds is the display flash duration.
	FlashSeconds int `mapstructure:"flash_seconds"`

	EscalateAbove float64 `mapstructure:"escalate_above"`
	EscalateBelow float64 `mapstructure:"escalate_below"`

	LogLevel string `mapstructure:"log_level"`

	Telemetry   bool   `mapstructure:"telemetry"`
	TelemetryDB string `mapstructure:"telemetry_db"`

	Listen string `mapstructure:"listen"`

	// EntityID is the entity the daemon monitors.
	EntityID string `mapstructure:"entity_id"`

	// RedisAddr switches sample ingestion from the built-in simulation to
	// Redis lists when set.
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("roadwatch", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Int("interval", defaultInterval, "Seconds between detector ticks")
	fs.Int("capacity", defaultCapacity, "Alert history capacity")
	fs.Int("dedupe-window", 0, "Alert dedupe window in ticks")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("telemetry", false, "Enable tick telemetry recording")
	fs.String("telemetry-db", defaultTelemetryDB, "Path to telemetry database")
	fs.String("listen", defaultListen, "HTTP listen address")
	fs.String("entity", defaultEntityID, "Entity to monitor")
	fs.String("redis-addr", "", "Redis address for sample ingestion (empty: simulate)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("capacity", defaultCapacity)
	v.SetDefault("dedupe_window", 0)
	v.SetDefault("flash_seconds", defaultFlashSeconds)
	v.SetDefault("escalate_above", defaultEscalateAbove)
	v.SetDefault("escalate_below", defaultEscalateBelow)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry", false)
	v.SetDefault("telemetry_db", defaultTelemetryDB)
	v.SetDefault("listen", defaultListen)
	v.SetDefault("entity_id", defaultEntityID)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", defaultRedisPrefix)

	bindings := map[string]string{
		"interval":      "interval",
		"capacity":      "capacity",
		"dedupe_window": "dedupe-window",
		"log_level":     "log-level",
		"telemetry":     "telemetry",
		"telemetry_db":  "telemetry-db",
		"listen":        "listen",
		"entity_id":     "entity",
		"redis_addr":    "redis-addr",
	}
	for key, flagName := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("ROADWATCH_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("roadwatch")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Capacity <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "capacity must be positive")
	}
	if c.DedupeWindow < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "dedupe_window must not be negative")
	}
	if c.FlashSeconds <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "flash_seconds must be positive")
	}
	if c.EscalateAbove <= 0 || c.EscalateBelow <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "escalation ratios must be positive")
	}
	if !validLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "telemetry_db is required when telemetry is enabled")
	}

	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}
