// Package config loads the runtime configuration from a YAML file with
// environment-variable overrides. Precedence: defaults, then file, then
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the config file.
const DefaultPath = "bugline.yaml"

// Duration is a time.Duration that marshals to and from the "15m"
// string form in YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts either a duration string or an integer
// nanosecond count.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("config: invalid duration: %w", err)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full runtime configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Redis    Redis    `yaml:"redis"`
	Logging  Logging  `yaml:"logging"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `yaml:"addr"`
}

// Database selects and configures the persistence driver.
type Database struct {
	// Driver is "memory" or "postgres".
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Schema string `yaml:"schema"`

	// EventCodec encodes event-store payloads on the postgres driver:
	// "json" or "msgpack". A store must be read with the codec it was
	// written with.
	EventCodec string `yaml:"event_codec"`
}

// Auth configures hashing and token issuance.
type Auth struct {
	Secret     string   `yaml:"secret"`
	Issuer     string   `yaml:"issuer"`
	AccessTTL  Duration `yaml:"access_ttl"`
	RefreshTTL Duration `yaml:"refresh_ttl"`
}

// Redis configures the optional read-model cache. Empty Addr disables it.
type Redis struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// Logging configures the zap logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the baseline configuration: memory driver, local
// listener, development-only auth secret.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Database: Database{
			Driver:     "memory",
			Schema:     "bugline",
			EventCodec: "json",
		},
		Auth: Auth{
			Secret:     "dev-secret-change-me",
			Issuer:     "bugline",
			AccessTTL:  Duration(15 * time.Minute),
			RefreshTTL: Duration(24 * time.Hour),
		},
		Redis: Redis{
			TTL: Duration(5 * time.Minute),
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the config file at path, if it exists, and applies
// environment overrides. A missing file is not an error; a malformed
// one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults + env only
	case err != nil:
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config as YAML to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("config: postgres driver requires database.url")
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Database.EventCodec {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("config: unknown event codec %q", c.Database.EventCodec)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret must not be empty")
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "BUGLINE_SERVER_ADDR")
	setString(&c.Database.Driver, "BUGLINE_DB_DRIVER")
	setString(&c.Database.URL, "BUGLINE_DB_URL")
	setString(&c.Database.Schema, "BUGLINE_DB_SCHEMA")
	setString(&c.Database.EventCodec, "BUGLINE_DB_EVENT_CODEC")
	setString(&c.Auth.Secret, "BUGLINE_AUTH_SECRET")
	setString(&c.Auth.Issuer, "BUGLINE_AUTH_ISSUER")
	setDuration(&c.Auth.AccessTTL, "BUGLINE_AUTH_ACCESS_TTL")
	setDuration(&c.Auth.RefreshTTL, "BUGLINE_AUTH_REFRESH_TTL")
	setString(&c.Redis.Addr, "BUGLINE_REDIS_ADDR")
	setString(&c.Redis.Password, "BUGLINE_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "BUGLINE_REDIS_DB")
	setDuration(&c.Redis.TTL, "BUGLINE_REDIS_TTL")
	setString(&c.Logging.Level, "BUGLINE_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
