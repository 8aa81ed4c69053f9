// Package config loads the service configuration: built-in defaults, then an
// optional YAML file, then RAILCLAIM_ environment overrides.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: RAILCLAIM_SERVER__ADDR sets server.addr.
const EnvPrefix = "RAILCLAIM_"

type Config struct {
	Server       Server       `koanf:"server"`
	Log          Log          `koanf:"log"`
	Catalog      Catalog      `koanf:"catalog"`
	Compensation Compensation `koanf:"compensation"`
	Claim        Claim        `koanf:"claim"`
	FX           FX           `koanf:"fx"`
	Store        Store        `koanf:"store"`
	Redis        RedisConfig  `koanf:"redis"`
	Postgres     Postgres     `koanf:"postgres"`
	Audit        Audit        `koanf:"audit"`
	Kafka        Kafka        `koanf:"kafka"`
	Batch        Batch        `koanf:"batch"`
	RateLimit    RateLimit    `koanf:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Catalog points at the catalog document. With Watch set the file is
// reloaded whenever it changes.
type Catalog struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

type Compensation struct {
	MinPayout    float64 `koanf:"min_payout"`
	RefundPolicy string  `koanf:"refund_policy"`
}

type Claim struct {
	FeePercent float64 `koanf:"fee_percent"`
}

// FX holds units of each currency per EUR. Entries override the built-in
// table.
type FX struct {
	Rates map[string]float64 `koanf:"rates"`
}

// Store selects where evaluation records live.
type Store struct {
	Backend string `koanf:"backend"`
}

// RedisConfig enables the record cache when URL is set.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	TTL          time.Duration `koanf:"ttl"`
}

type Postgres struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// Audit selects the audit sink. Buffer > 0 makes publishing asynchronous.
type Audit struct {
	Sink   string `koanf:"sink"`
	Buffer int    `koanf:"buffer"`
}

type Kafka struct {
	Brokers           []string `koanf:"brokers"`
	Topic             string   `koanf:"topic"`
	Partitions        int32    `koanf:"partitions"`
	ReplicationFactor int16    `koanf:"replication_factor"`
}

type Batch struct {
	MaxItems    int `koanf:"max_items"`
	Concurrency int `koanf:"concurrency"`
}

// RateLimit throttles API routes per client IP. The window is shared
// through Redis when it is configured.
type RateLimit struct {
	Enabled bool          `koanf:"enabled"`
	Read    int           `koanf:"read"`
	Write   int           `koanf:"write"`
	Window  time.Duration `koanf:"window"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	SinkNone     = "none"
	SinkMemory   = "memory"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log:          Log{Level: "info", Format: "json"},
		Catalog:      Catalog{Path: "data/catalog.json"},
		Compensation: Compensation{RefundPolicy: "zero_compensation"},
		Claim:        Claim{FeePercent: 25},
		Store:        Store{Backend: BackendMemory},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TTL:          24 * time.Hour,
		},
		Postgres: Postgres{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Audit: Audit{Sink: SinkMemory, Buffer: 256},
		Kafka: Kafka{
			Topic:             "railclaim.audit",
			Partitions:        3,
			ReplicationFactor: 1,
		},
		Batch:     Batch{MaxItems: 100, Concurrency: 8},
		RateLimit: RateLimit{Read: 300, Write: 60, Window: time.Minute},
	}
}

// Load reads the YAML file at path when it exists, overlays the environment
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log.format %q: must be json or text", c.Log.Format)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.Compensation.MinPayout < 0 {
		return fmt.Errorf("compensation.min_payout must be non-negative")
	}
	if c.Claim.FeePercent < 0 || c.Claim.FeePercent > 100 {
		return fmt.Errorf("claim.fee_percent must be between 0 and 100")
	}
	for code, rate := range c.FX.Rates {
		if rate <= 0 {
			return fmt.Errorf("fx.rates.%s must be positive", code)
		}
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid store.backend %q: must be memory or postgres", c.Store.Backend)
	}
	switch c.Audit.Sink {
	case SinkNone, SinkMemory:
	case SinkPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres audit sink")
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.brokers and kafka.topic are required for the kafka audit sink")
		}
	default:
		return fmt.Errorf("invalid audit.sink %q", c.Audit.Sink)
	}
	if c.Audit.Buffer < 0 {
		return fmt.Errorf("audit.buffer must be non-negative")
	}
	if c.Batch.MaxItems <= 0 || c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.max_items and batch.concurrency must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Read < 0 || c.RateLimit.Write < 0 {
			return fmt.Errorf("rate_limit.read and rate_limit.write must be non-negative")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive")
		}
	}
	return nil
}
