// Package config loads the server configuration: an optional YAML file, defaults, and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/spicycabbage/spotdiff/internal/game"
)

// EnvPrefix is prepended to the environment variables overriding a configuration key:
// server.addr is overridden by SPOTDIFF_SERVER_ADDR.
const EnvPrefix = "SPOTDIFF"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Payment PaymentConfig `mapstructure:"payment"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
}

type ServerConfig struct {
	// Addr to listen on. Empty means an automatic port on localhost.
	Addr         string        `mapstructure:"addr"`
	WebDir       string        `mapstructure:"web_dir"` // Static assets served under /web/.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GameConfig struct {
	// LevelsFile replaces the built-in levels if set.
	LevelsFile          string        `mapstructure:"levels_file"`
	LevelDuration       time.Duration `mapstructure:"level_duration"`
	WrongClickPenalty   time.Duration `mapstructure:"wrong_click_penalty"`
	TimeBoost           time.Duration `mapstructure:"time_boost"`
	CompleteDelay       time.Duration `mapstructure:"complete_delay"`
	WarnAt              time.Duration `mapstructure:"warn_at"`
	PointsPerDifference int           `mapstructure:"points_per_difference"`
	StartingTime        int           `mapstructure:"starting_time"`
	StartingHints       int           `mapstructure:"starting_hints"`
	StartingSkips       int           `mapstructure:"starting_skips"`
}

type PaymentConfig struct {
	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	Currency            string `mapstructure:"currency"`
}

// Enabled reports whether a payment provider is configured.
func (c PaymentConfig) Enabled() bool {
	return c.StripeSecretKey != ""
}

type RedisConfig struct {
	// Addr of the Redis server keeping the pending powerup grants. Empty keeps them in memory.
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LedgerConfig struct {
	// Path of the SQLite database recording granted transactions.
	Path string `mapstructure:"path"`
}

// Rules converts the game section to the session rules.
func (c GameConfig) Rules() game.Rules {
	return game.Rules{
		LevelDuration:       c.LevelDuration,
		WrongClickPenalty:   c.WrongClickPenalty,
		TimeBoost:           c.TimeBoost,
		CompleteDelay:       c.CompleteDelay,
		WarnAt:              c.WarnAt,
		PointsPerDifference: c.PointsPerDifference,
		StartingPowerups: game.Powerups{
			Time:  c.StartingTime,
			Hints: c.StartingHints,
			Skips: c.StartingSkips,
		},
	}
}

// Load reads the configuration from the YAML file at configPath, if not empty, applying the
// defaults for missing keys and the environment overrides on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if port := v.GetString("port"); port != "" && cfg.Server.Addr == "" {
		cfg.Server.Addr = ":" + port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Validate checks the values that would make the game unplayable.
func (c *Config) Validate() error {
	var errs []error
	g := c.Game
	if g.LevelDuration < time.Second {
		errs = append(errs, fmt.Errorf("game.level_duration must be at least 1s, got %s", g.LevelDuration))
	}
	if g.WrongClickPenalty < 0 || g.TimeBoost < 0 || g.CompleteDelay < 0 || g.WarnAt < 0 {
		errs = append(errs, errors.New("game durations must not be negative"))
	}
	if g.StartingTime < 0 || g.StartingHints < 0 || g.StartingSkips < 0 {
		errs = append(errs, errors.New("starting powerups must not be negative"))
	}
	if c.Payment.Enabled() && c.Payment.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("payment.stripe_webhook_secret is required with a Stripe secret key"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "")
	v.SetDefault("server.web_dir", "web")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	rules := game.DefaultRules()
	v.SetDefault("game.levels_file", "")
	v.SetDefault("game.level_duration", rules.LevelDuration)
	v.SetDefault("game.wrong_click_penalty", rules.WrongClickPenalty)
	v.SetDefault("game.time_boost", rules.TimeBoost)
	v.SetDefault("game.complete_delay", rules.CompleteDelay)
	v.SetDefault("game.warn_at", rules.WarnAt)
	v.SetDefault("game.points_per_difference", rules.PointsPerDifference)
	v.SetDefault("game.starting_time", rules.StartingPowerups.Time)
	v.SetDefault("game.starting_hints", rules.StartingPowerups.Hints)
	v.SetDefault("game.starting_skips", rules.StartingPowerups.Skips)

	v.SetDefault("payment.stripe_secret_key", "")
	v.SetDefault("payment.stripe_webhook_secret", "")
	v.SetDefault("payment.currency", "usd")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*24*time.Hour)

	v.SetDefault("ledger.path", "spotdiff.db")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the hosting platforms, without the prefix.
	_ = v.BindEnv("payment.stripe_secret_key", EnvPrefix+"_PAYMENT_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY")
	_ = v.BindEnv("payment.stripe_webhook_secret", EnvPrefix+"_PAYMENT_STRIPE_WEBHOOK_SECRET", "STRIPE_WEBHOOK_SECRET")
	_ = v.BindEnv("redis.addr", EnvPrefix+"_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("port", "PORT")
}
