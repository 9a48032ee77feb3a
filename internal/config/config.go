// Package config loads relay configuration from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/incident-relay/internal/notifications"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: RELAY_WEBHOOK__AVATAR_URL sets webhook.avatar_url.
const EnvPrefix = "RELAY_"

// Store drivers.
const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

// dotEnvFiles are read in order; earlier files and the real environment win.
var dotEnvFiles = []string{".env", ".env.local"}

// Config is the complete relay configuration.
type Config struct {
	StatusPage   StatusPageConfig  `koanf:"statuspage"`
	Webhook      WebhookConfig     `koanf:"webhook"`
	Check        CheckConfig       `koanf:"check"`
	Colors       ColorsConfig      `koanf:"colors"`
	Translations map[string]string `koanf:"translations"`
	Store        StoreConfig       `koanf:"store"`
	Server       ServerConfig      `koanf:"server"`
	Log          LogConfig         `koanf:"log"`
}

// StatusPageConfig describes the watched status page.
type StatusPageConfig struct {
	URL     string        `koanf:"url" validate:"required,http_url"`
	Name    string        `koanf:"name" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// WebhookConfig describes the outgoing webhook.
type WebhookConfig struct {
	URL       string        `koanf:"url" validate:"required,http_url"`
	Username  string        `koanf:"username"`
	AvatarURL string        `koanf:"avatar_url" validate:"omitempty,http_url"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimit float64       `koanf:"rate_limit" validate:"gte=0"` // requests per second, 0 disables pacing
}

// CheckConfig controls polling.
type CheckConfig struct {
	Interval time.Duration `koanf:"interval" validate:"gte=10s"`
}

// ColorsConfig holds embed colours as #RRGGBB strings.
type ColorsConfig struct {
	Resolved  string `koanf:"resolved" validate:"rgbhex"`
	Critical  string `koanf:"critical" validate:"rgbhex"`
	Major     string `koanf:"major" validate:"rgbhex"`
	Minor     string `koanf:"minor" validate:"rgbhex"`
	Scheduled string `koanf:"scheduled" validate:"rgbhex"`
	Unknown   string `koanf:"unknown" validate:"rgbhex"`
}

// StoreConfig selects and configures the tracked incident store.
type StoreConfig struct {
	Driver          string        `koanf:"driver" validate:"oneof=file postgres"`
	Path            string        `koanf:"path" validate:"required_if=Driver file"`
	DatabaseURL     string        `koanf:"database_url" validate:"required_if=Driver postgres"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"gte=1"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"omitempty,numeric"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the configuration used for every key that is not set.
func Default() Config {
	palette := notifications.DefaultPalette()
	return Config{
		StatusPage: StatusPageConfig{
			Timeout: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			Username: "Status Page",
			Timeout:  10 * time.Second,
		},
		Check: CheckConfig{
			Interval: 5 * time.Minute,
		},
		Colors: ColorsConfig{
			Resolved:  formatColor(palette.Resolved),
			Critical:  formatColor(palette.Critical),
			Major:     formatColor(palette.Major),
			Minor:     formatColor(palette.Minor),
			Scheduled: formatColor(palette.Scheduled),
			Unknown:   formatColor(palette.Unknown),
		},
		Store: StoreConfig{
			Driver:          StoreDriverFile,
			Path:            "data/incidents.json",
			MaxOpenConns:    4,
			ConnectAttempts: 5,
			ConnectTimeout:  time.Minute,
		},
		Server: ServerConfig{
			Enabled:           true,
			Host:              "0.0.0.0",
			Port:              "9090",
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty; a named file must exist.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps RELAY_STATUSPAGE__URL to statuspage.url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// loadDotEnv copies variables from .env files into the process environment
// without overriding anything already set.
func loadDotEnv() error {
	for _, name := range dotEnvFiles {
		values, err := godotenv.Read(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); exists {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
		}
	}
	return nil
}

// Validate checks field constraints and the translation keys.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		_, err := parseColor(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("register validation: %w", err)
	}

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := notifications.NewCatalog(c.Translations); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Palette converts the configured colours. Call after Validate.
func (c *Config) Palette() (notifications.Palette, error) {
	var (
		p   notifications.Palette
		err error
	)
	colors := []struct {
		dst *int
		src string
	}{
		{&p.Resolved, c.Colors.Resolved},
		{&p.Critical, c.Colors.Critical},
		{&p.Major, c.Colors.Major},
		{&p.Minor, c.Colors.Minor},
		{&p.Scheduled, c.Colors.Scheduled},
		{&p.Unknown, c.Colors.Unknown},
	}
	for _, color := range colors {
		if *color.dst, err = parseColor(color.src); err != nil {
			return notifications.Palette{}, err
		}
	}
	return p, nil
}

// parseColor accepts #RRGGBB, 0xRRGGBB or RRGGBB.
func parseColor(s string) (int, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return int(n), nil
}

func formatColor(c int) string {
	return fmt.Sprintf("#%06X", c)
}
