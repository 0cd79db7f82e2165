package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BOOKSTORE_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		GRPCAddr string `koanf:"grpc_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout    time.Duration `koanf:"read_timeout"`
		WriteTimeout   time.Duration `koanf:"write_timeout"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
		CORSOrigins    []string      `koanf:"cors_origins"`
	} `koanf:"http"`

	SQLite struct {
		Path        string        `koanf:"path"`
		BusyTimeout time.Duration `koanf:"busy_timeout"`
		Seed        bool          `koanf:"seed"`
	} `koanf:"sqlite"`

	Redis struct {
		Addr           string        `koanf:"addr"`
		Password       string        `koanf:"password"`
		IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
	} `koanf:"redis"`

	Rabbit struct {
		URL      string `koanf:"url"`
		Exchange string `koanf:"exchange"`
	} `koanf:"rabbitmq"`

	Security struct {
		JWTSecret  string        `koanf:"jwt_secret"`
		Issuer     string        `koanf:"issuer"`
		TTL        time.Duration `koanf:"ttl"`
		RefreshTTL time.Duration `koanf:"refresh_ttl"`
		// Optional staff account created at startup when both are set.
		AdminEmail    string `koanf:"admin_email"`
		AdminPassword string `koanf:"admin_password"`
	} `koanf:"security"`

	Catalog struct {
		CacheSize int `koanf:"cache_size"`
	} `koanf:"catalog"`
}

// Defaults is the configuration used when a key is absent from every source.
func Defaults() Config {
	var c Config
	c.App.Name = "bookstore"
	c.App.Env = "dev"
	c.App.HTTPAddr = ":8080"
	c.App.LogLevel = "info"
	c.HTTP.ReadTimeout = 10 * time.Second
	c.HTTP.WriteTimeout = 15 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.RequestTimeout = 5 * time.Second
	c.SQLite.Path = "./data/bookstore.db"
	c.SQLite.BusyTimeout = 5 * time.Second
	c.Redis.IdempotencyTTL = 24 * time.Hour
	c.Rabbit.Exchange = "domain_events"
	c.Security.Issuer = "bookstore"
	c.Security.TTL = 60 * time.Minute
	c.Security.RefreshTTL = 24 * time.Hour
	c.Catalog.CacheSize = 512
	return c
}

// Load layers, lowest to highest precedence: defaults, <dir>/base.yaml,
// <dir>/<envName>.yaml, a .env file, and BOOKSTORE_* environment variables
// (nested keys joined with "__", e.g. BOOKSTORE_SQLITE__PATH).
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")

	base := filepath.Join(dir, "base.yaml")
	if err := k.Load(file.Provider(base), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load base: %w", err)
	}
	if envName != "" {
		// optional for local runs
		_ = k.Load(file.Provider(filepath.Join(dir, envName+".yaml")), yaml.Parser())
	}

	// .env only fills variables that are not already set
	_ = godotenv.Load()

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if c.Security.TTL <= 0 {
		return fmt.Errorf("security.ttl must be positive")
	}
	return nil
}
