package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classy/cmd/security/password"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, EventsNone, cfg.Events.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30*time.Second, cfg.Session.Skew)
	assert.Equal(t, "classy", cfg.Session.Issuer)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfigFile(t, `
http:
  addr: "127.0.0.1:9000"
  timeout: 5s
bcrypt:
  cost: 11
store:
  driver: " Badger "
badger:
  dir: /var/lib/classy
  sync: true
session:
  ttl: 1h
ratelimit:
  rps: 0.5
  burst: 3
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 11, cfg.Bcrypt.Cost)
	assert.Equal(t, StoreBadger, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/classy", cfg.Badger.Dir)
	assert.True(t, cfg.Badger.Sync)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "classy", cfg.Session.Issuer, "unset keys keep defaults")
	assert.InDelta(t, 0.5, cfg.RateLimit.RPS, 1e-9)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfigFile(t, `
http:
  addr: ":9000"
log:
  level: warn
`)
	t.Setenv("CLASSY_HTTP_ADDR", ":7000")
	t.Setenv("CLASSY_LOG_LEVEL", "error")
	t.Setenv("CLASSY_BCRYPT_COST", "12")

	cfg, err := LoadConfig(path, map[string]any{"log.level": "debug"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr, "env overrides file")
	assert.Equal(t, "debug", cfg.Log.Level, "overrides win")
	assert.Equal(t, 12, cfg.Bcrypt.Cost)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.HTTP.Addr = " " }, wantErr: "http.addr"},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "session"},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Driver = StorePostgres }, wantErr: "database.url"},
		{name: "postgres", mutate: func(c *Config) {
			c.Store.Driver = StorePostgres
			c.Database.URL = "postgres://localhost/classy"
		}},
		{name: "badger without dir", mutate: func(c *Config) { c.Store.Driver = StoreBadger }, wantErr: "badger.dir"},
		{name: "redis without url", mutate: func(c *Config) { c.Store.Driver = StoreRedis }, wantErr: "redis.url"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "store.driver"},
		{name: "redis events without url", mutate: func(c *Config) { c.Events.Driver = EventsRedis }, wantErr: "redis events"},
		{name: "memory events", mutate: func(c *Config) { c.Events.Driver = EventsMemory }},
		{name: "unknown events", mutate: func(c *Config) { c.Events.Driver = "kafka" }, wantErr: "events.driver"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConfigValidate_JoinsErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.HTTP.Addr = ""
	cfg.Store.Driver = "mongo"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, strings.Split(err.Error(), "\n"), 2)
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	_, err := ValidateSecurityConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLASSY_BCRYPT_COST")

	cfg.Bcrypt.Cost = password.MaxCost + 1
	_, err = ValidateSecurityConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcrypt.cost must be in")

	cfg.Bcrypt.Cost = password.MinCost
	cfg.Fingerprint.Key = "short"
	_, err = ValidateSecurityConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprint.key")

	cfg.Fingerprint.Key = strings.Repeat("k", 32)
	sec, err := ValidateSecurityConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, password.MinCost, sec.Passwords.Cost)
	assert.True(t, sec.Fingerprints.Keyed())
}
