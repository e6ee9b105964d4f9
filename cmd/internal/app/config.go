package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"classy/cmd/internal/auth/session"
	"classy/cmd/internal/events"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreRedis    = "redis"
)

// Event drivers.
const (
	EventsNone   = "none"
	EventsMemory = "memory"
	EventsRedis  = "redis"
)

// Config contains all runtime configuration. Keys are single words per level
// so that CLASSY_SECTION_KEY maps onto section.key.
type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Log         LogConfig         `koanf:"log"`
	Bcrypt      BcryptConfig      `koanf:"bcrypt"`
	Session     SessionConfig     `koanf:"session"`
	Store       StoreConfig       `koanf:"store"`
	Database    DatabaseConfig    `koanf:"database"`
	Badger      BadgerConfig      `koanf:"badger"`
	Redis       RedisConfig       `koanf:"redis"`
	Events      EventsConfig      `koanf:"events"`
	RateLimit   RateLimitConfig   `koanf:"ratelimit"`
	Fingerprint FingerprintConfig `koanf:"fingerprint"`
}

type HTTPConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
	Idle    time.Duration `koanf:"idle"`
	MaxBody int64         `koanf:"maxbody"`
	// Proxy trusts X-Forwarded-For / X-Real-IP for client addresses.
	Proxy bool `koanf:"proxy"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text or pretty
}

// BcryptConfig has no default cost: the operator must choose one.
type BcryptConfig struct {
	Cost int `koanf:"cost"`
}

type SessionConfig struct {
	TTL    time.Duration `koanf:"ttl"`
	Issuer string        `koanf:"issuer"`
	Skew   time.Duration `koanf:"skew"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	Schema   string `koanf:"schema"`
	MaxConns int32  `koanf:"maxconns"`
	MinConns int32  `koanf:"minconns"`
}

type BadgerConfig struct {
	Dir  string `koanf:"dir"`
	Sync bool   `koanf:"sync"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type EventsConfig struct {
	Driver string `koanf:"driver"`
	Topic  string `koanf:"topic"`
}

type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// FingerprintConfig selects keyed session fingerprints in logs and events.
type FingerprintConfig struct {
	Key string `koanf:"key"`
}

// DefaultConfig returns defaults for everything except the bcrypt cost.
func DefaultConfig() Config {
	sess := session.DefaultConfig()
	return Config{
		HTTP: HTTPConfig{
			Addr:    "0.0.0.0:8080",
			Timeout: 15 * time.Second,
			Idle:    60 * time.Second,
			MaxBody: 1 << 20,
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Session:  SessionConfig{TTL: sess.TTL, Issuer: sess.Issuer, Skew: sess.ClockSkew},
		Store:    StoreConfig{Driver: StoreMemory},
		Database: DatabaseConfig{Schema: "classy", MaxConns: 10},
		Events:   EventsConfig{Driver: EventsNone, Topic: events.DefaultTopic},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
	}
}

// LoadConfig loads defaults, then the optional YAML file, then CLASSY_* env
// vars, then overrides.
func LoadConfig(path string, overrides map[string]any) (Config, error) {
	cfg := DefaultConfig()
	l := NewLoader(WithConfigFile(path), WithOverrides(overrides))
	if err := l.Load(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Events.Driver == "" {
		c.Events.Driver = EventsNone
	}
	if strings.TrimSpace(c.Events.Topic) == "" {
		c.Events.Topic = events.DefaultTopic
	}
}

// SessionConfig returns the session subsystem configuration.
func (c Config) SessionConfig() session.Config {
	return session.Config{Issuer: c.Session.Issuer, TTL: c.Session.TTL, ClockSkew: c.Session.Skew}
}

// Validate checks configuration that does not require secrets or I/O.
// The bcrypt cost and fingerprint key are checked by ValidateSecurityConfig.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if err := c.SessionConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres store"))
		}
	case StoreBadger:
		if c.Badger.Dir == "" {
			errs = append(errs, errors.New("badger.dir is required for the badger store"))
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, postgres, badger, redis", c.Store.Driver))
	}

	switch c.Events.Driver {
	case EventsNone, EventsMemory:
	case EventsRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for redis events"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.driver %q is not one of none, memory, redis", c.Events.Driver))
	}

	switch c.Log.Format {
	case "json", "text", "pretty":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text, pretty", c.Log.Format))
	}

	return errors.Join(errs...)
}
