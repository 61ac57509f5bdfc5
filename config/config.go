package config

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (RESTO_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Env      string `default:"development" usage:"Runtime environment: development or production"`
	JWT      JWTConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Admin    AdminConfig
	Shutdown time.Duration `default:"15s" usage:"Maximum graceful shutdown duration"`
}

type JWTConfig struct {
	Secret string        `default:"restaurant_dev_secret_change_me" usage:"HMAC secret used to sign tokens"`
	TTL    time.Duration `default:"24h" usage:"Token lifetime"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver     string        `default:"sqlite" usage:"Store backend: sqlite, postgres or mongo"`
	DSN        string        `default:"restaurant.db" usage:"SQLite path, PostgreSQL DSN or MongoDB URI"`
	Name       string        `default:"restaurant" usage:"MongoDB database name"`
	MaxElapsed time.Duration `default:"0s" usage:"Give up connecting after this long; 0 retries until shutdown" flag:"db-max-elapsed"`
}

type KafkaConfig struct {
	Brokers string `default:"" usage:"Comma separated Kafka brokers; empty disables event publishing"`
	Topic   string `default:"restaurant.orders" usage:"Topic for order events"`
}

// AdminConfig bootstraps the first admin account on startup when set.
type AdminConfig struct {
	Name     string `default:"Administrator" usage:"Bootstrap admin display name"`
	Email    string `default:"" usage:"Bootstrap admin email"`
	Password string `default:"" usage:"Bootstrap admin password"`
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from defaults, config.yaml, RESTO_ environment
// variables and command line flags. Tests pass skipFlags to keep the test
// binary's flags out of the way.
func Load(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RESTO",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/restaurant/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT and JWT_SECRET variables set by
// hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" && os.Getenv("RESTO_JWT_SECRET") == "" {
		c.JWT.Secret = secret
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mongo":
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be positive")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("admin email and password must be set together")
	}
	return nil
}
