// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver            string `yaml:"driver"`
	Filename          string `yaml:"filename"`
	BusyTimeoutMillis int    `yaml:"busy_timeout_ms"`
}

type BookingConfig struct {
	// Bookings cannot be cancelled once their start is closer than this.
	CancellationCutoff time.Duration `yaml:"cancellation_cutoff"`
	CheckInOpensBefore time.Duration `yaml:"check_in_opens_before"`
	CheckInClosesAfter time.Duration `yaml:"check_in_closes_after"`
}

type SweeperConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Cron          string        `yaml:"cron"`
	BlockDuration time.Duration `yaml:"block_duration"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

type RateLimitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Window           time.Duration `yaml:"window"`
	MaxWritesPerUser int           `yaml:"max_writes_per_user"`
	MaxWritesPerIP   int           `yaml:"max_writes_per_ip"`
	// Trust X-Forwarded-For / X-Real-IP from a fronting proxy.
	TrustProxy bool `yaml:"trust_proxy"`
}

type EventsConfig struct {
	Exchange string `yaml:"exchange"`
	AMQPURL  string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		Timezone        string        `yaml:"timezone"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Events    EventsConfig    `yaml:"events"`
}

// Defaults returns the values applied before the YAML file is read.
func Defaults() Config {
	var cfg Config
	cfg.App.Name = "courtside"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.App.ShutdownTimeout = 30 * time.Second
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/courtside.db"
	cfg.Database.BusyTimeoutMillis = 5000
	cfg.Booking.CancellationCutoff = 24 * time.Hour
	cfg.Booking.CheckInOpensBefore = 15 * time.Minute
	cfg.Booking.CheckInClosesAfter = 30 * time.Minute
	cfg.Sweeper.Enabled = true
	cfg.Sweeper.Cron = "0 * * * *"
	cfg.Sweeper.BlockDuration = 30 * 24 * time.Hour
	cfg.Sweeper.JobTimeout = 5 * time.Minute
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Window = time.Minute
	cfg.RateLimit.MaxWritesPerUser = 30
	cfg.RateLimit.MaxWritesPerIP = 120
	cfg.Events.Exchange = "courtside.events"
	return cfg
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Events.AMQPURL = os.Getenv("AMQP_URL")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.Timezone != "" && c.App.Timezone != "Local" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
		}
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Booking.CancellationCutoff < 0 {
		return fmt.Errorf("booking cancellation cutoff must not be negative")
	}
	if c.Booking.CheckInOpensBefore < 0 || c.Booking.CheckInClosesAfter < 0 {
		return fmt.Errorf("booking check-in window must not be negative")
	}

	if c.Sweeper.Enabled {
		if _, err := cron.ParseStandard(c.Sweeper.Cron); err != nil {
			return fmt.Errorf("invalid sweeper cron %q: %w", c.Sweeper.Cron, err)
		}
		if c.Sweeper.BlockDuration <= 0 {
			return fmt.Errorf("sweeper block duration must be positive")
		}
		if c.Sweeper.JobTimeout <= 0 {
			return fmt.Errorf("sweeper job timeout must be positive")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.MaxWritesPerUser <= 0 || c.RateLimit.MaxWritesPerIP <= 0 {
			return fmt.Errorf("rate limit maximums must be positive")
		}
	}

	if c.Events.AMQPURL != "" && c.Events.Exchange == "" {
		return fmt.Errorf("events exchange is required when AMQP_URL is set")
	}

	return nil
}
