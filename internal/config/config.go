// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultBackendTimeout   = 10 * time.Second
	defaultPollInterval     = 10 * time.Second
	defaultVisibilityTTL    = 30 * time.Second
	defaultSessionTTL       = 8 * time.Hour
	defaultLookaheadDays    = 14
	defaultSlotMinutes      = 30
	defaultPhoneRegion      = "US"
	defaultLoginPerMinute   = 10
	defaultLoginBurst       = 5
	defaultBookingPerMinute = 6
	defaultBookingBurst     = 3
)

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		StaticDir   string `yaml:"static_dir"`
	} `yaml:"app"`

	Backend BackendConfig `yaml:"backend"`

	Dashboard struct {
		PollInterval  time.Duration `yaml:"poll_interval"`
		VisibilityTTL time.Duration `yaml:"visibility_ttl"`
	} `yaml:"dashboard"`

	Booking struct {
		LookaheadDays int    `yaml:"lookahead_days"`
		SlotMinutes   int    `yaml:"slot_minutes"`
		PhoneRegion   string `yaml:"phone_region"`
	} `yaml:"booking"`

	Session struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	RateLimit struct {
		LoginPerMinute       int  `yaml:"login_per_minute"`
		LoginBurst           int  `yaml:"login_burst"`
		ReservationPerMinute int  `yaml:"reservation_per_minute"`
		ReservationBurst     int  `yaml:"reservation_burst"`
		TrustProxy           bool `yaml:"trust_proxy"`
	} `yaml:"rate_limit"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
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

	// The backend location differs per deployment, so the environment wins.
	if value := strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")); value != "" {
		cfg.Backend.BaseURL = value
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes yaml configuration and fills in defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = defaultBackendTimeout
	}
	if c.Dashboard.PollInterval == 0 {
		c.Dashboard.PollInterval = defaultPollInterval
	}
	if c.Dashboard.VisibilityTTL == 0 {
		c.Dashboard.VisibilityTTL = defaultVisibilityTTL
	}
	if c.Booking.LookaheadDays == 0 {
		c.Booking.LookaheadDays = defaultLookaheadDays
	}
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = defaultSlotMinutes
	}
	if c.Booking.PhoneRegion == "" {
		c.Booking.PhoneRegion = defaultPhoneRegion
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if c.RateLimit.LoginPerMinute == 0 {
		c.RateLimit.LoginPerMinute = defaultLoginPerMinute
	}
	if c.RateLimit.LoginBurst == 0 {
		c.RateLimit.LoginBurst = defaultLoginBurst
	}
	if c.RateLimit.ReservationPerMinute == 0 {
		c.RateLimit.ReservationPerMinute = defaultBookingPerMinute
	}
	if c.RateLimit.ReservationBurst == 0 {
		c.RateLimit.ReservationBurst = defaultBookingBurst
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend base_url must be an absolute URL")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout must not be negative")
	}
	if c.Dashboard.PollInterval < time.Second {
		return fmt.Errorf("dashboard poll_interval must be at least 1s")
	}
	if c.Booking.SlotMinutes <= 0 || c.Booking.SlotMinutes > 24*60 {
		return fmt.Errorf("booking slot_minutes must be between 1 and 1440")
	}
	if c.Booking.LookaheadDays <= 0 {
		return fmt.Errorf("booking lookahead_days must be greater than 0")
	}
	if len(c.Booking.PhoneRegion) != 2 {
		return fmt.Errorf("booking phone_region must be a two-letter region code")
	}

	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("unsupported environment: %s", c.App.Environment)
	}

	return nil
}

// IsDevelopment reports whether the portal runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
