package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bissquit/incident-relay/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
statuspage:
  url: https://status.example.com
  name: Example
webhook:
  url: https://discord.com/api/webhooks/1/abc
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileWithDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://status.example.com", cfg.StatusPage.URL)
	assert.Equal(t, "Example", cfg.StatusPage.Name)
	assert.Equal(t, 30*time.Second, cfg.StatusPage.Timeout)
	assert.Equal(t, "Status Page", cfg.Webhook.Username)
	assert.Equal(t, 5*time.Minute, cfg.Check.Interval)
	assert.Equal(t, StoreDriverFile, cfg.Store.Driver)
	assert.Equal(t, "data/incidents.json", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Server.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", minimalYAML+`
check:
  interval: 1m
colors:
  critical: "#112233"
translations:
  checking: "Prüfe {{NAME}}"
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Check.Interval)
	assert.Equal(t, "#112233", cfg.Colors.Critical)
	assert.Equal(t, "Prüfe {{NAME}}", cfg.Translations["checking"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", minimalYAML)
	t.Setenv("RELAY_STATUSPAGE__NAME", "From Env")
	t.Setenv("RELAY_WEBHOOK__AVATAR_URL", "https://example.com/a.png")
	t.Setenv("RELAY_WEBHOOK__RATE_LIMIT", "2.5")
	t.Setenv("RELAY_CHECK__INTERVAL", "90s")
	t.Setenv("RELAY_SERVER__ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "From Env", cfg.StatusPage.Name)
	assert.Equal(t, "https://example.com/a.png", cfg.Webhook.AvatarURL)
	assert.InDelta(t, 2.5, cfg.Webhook.RateLimit, 0.0001)
	assert.Equal(t, 90*time.Second, cfg.Check.Interval)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("RELAY_STATUSPAGE__URL", "https://status.example.com")
	t.Setenv("RELAY_STATUSPAGE__NAME", "Example")
	t.Setenv("RELAY_WEBHOOK__URL", "https://discord.com/api/webhooks/1/abc")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Example", cfg.StatusPage.Name)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dotEnv := writeFile(t, ".env", "RELAY_STATUSPAGE__NAME=FromDotEnv\nRELAY_LOG__LEVEL=warn\n")
	orig := dotEnvFiles
	dotEnvFiles = []string{dotEnv}
	t.Cleanup(func() { dotEnvFiles = orig })

	t.Setenv("RELAY_STATUSPAGE__NAME", "FromEnv")
	// Registered so t.Setenv restores it after loadDotEnv sets it.
	t.Setenv("RELAY_LOG__LEVEL", "")
	require.NoError(t, os.Unsetenv("RELAY_LOG__LEVEL"))

	cfg, err := Load(writeFile(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "FromEnv", cfg.StatusPage.Name)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.StatusPage.URL = "https://status.example.com"
		cfg.StatusPage.Name = "Example"
		cfg.Webhook.URL = "https://discord.com/api/webhooks/1/abc"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing status page url", mutate: func(c *Config) { c.StatusPage.URL = "" }, wantErr: "URL"},
		{name: "missing name", mutate: func(c *Config) { c.StatusPage.Name = "" }, wantErr: "Name"},
		{name: "bad webhook url", mutate: func(c *Config) { c.Webhook.URL = "not a url" }, wantErr: "URL"},
		{name: "interval too short", mutate: func(c *Config) { c.Check.Interval = time.Second }, wantErr: "Interval"},
		{name: "bad colour", mutate: func(c *Config) { c.Colors.Major = "red" }, wantErr: "Major"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "Driver"},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Driver = StoreDriverPostgres }, wantErr: "DatabaseURL"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "Level"},
		{name: "unknown translation key", mutate: func(c *Config) {
			c.Translations = map[string]string{"nope": "x"}
		}, wantErr: "unknown translation keys: nope"},
		{name: "postgres with url", mutate: func(c *Config) {
			c.Store.Driver = StoreDriverPostgres
			c.Store.DatabaseURL = "postgres://relay@localhost/relay"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Palette(t *testing.T) {
	cfg := Default()
	p, err := cfg.Palette()
	require.NoError(t, err)
	assert.Equal(t, notifications.DefaultPalette(), p)

	cfg.Colors.Critical = "0xff0000"
	cfg.Colors.Minor = "00ff00"
	p, err = cfg.Palette()
	require.NoError(t, err)
	assert.Equal(t, 0xFF0000, p.Critical)
	assert.Equal(t, 0x00FF00, p.Minor)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "#57F287", want: 0x57F287},
		{in: "0x3498db", want: 0x3498DB},
		{in: " 000000 ", want: 0},
		{in: "#FFF", wantErr: true},
		{in: "#GGGGGG", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "statuspage.url", envKey("RELAY_STATUSPAGE__URL"))
	assert.Equal(t, "webhook.avatar_url", envKey("RELAY_WEBHOOK__AVATAR_URL"))
	assert.Equal(t, "translations.new_incident", envKey("RELAY_TRANSLATIONS__NEW_INCIDENT"))
}
