// Package config loads application settings from config.yml, .env and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when Load is given an empty path.
const DefaultPath = "config.yml"

type ServerConfig struct {
	Port           string        `yaml:"port" validate:"required,numeric"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	RateLimit      int           `yaml:"rate_limit" validate:"gte=0"`
}

// DatabaseConfig holds the MySQL/MariaDB connection parts.
type DatabaseConfig struct {
	Enabled    bool   `yaml:"enabled"`
	User       string `yaml:"user" validate:"required_if=Enabled true"`
	Pass       string `yaml:"pass"`
	Host       string `yaml:"host" validate:"required_if=Enabled true"`
	Port       string `yaml:"port" validate:"omitempty,numeric"`
	Name       string `yaml:"name" validate:"required_if=Enabled true"`
	SkipSchema bool   `yaml:"skip_schema"`
}

type RoutingConfig struct {
	TransferMinutes int     `yaml:"transfer_minutes" validate:"gte=1,lte=30"`
	FuzzyThreshold  float64 `yaml:"fuzzy_threshold" validate:"gt=0,lte=1"`
	TieMargin       float64 `yaml:"tie_margin" validate:"gt=0,lt=1"`
}

type ScraperConfig struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	Fetcher     string        `yaml:"fetcher" validate:"oneof=chrome http"`
	Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=32"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	PageTTL     time.Duration `yaml:"page_ttl" validate:"gte=0"`
	UserAgent   string        `yaml:"user_agent"`
}

// AdminConfig guards the reload and refresh endpoints. An empty password
// hash disables admin login.
type AdminConfig struct {
	Username     string        `yaml:"username" validate:"required"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl" validate:"gt=0"`
}

type CacheConfig struct {
	RouteTTL  time.Duration `yaml:"route_ttl" validate:"gte=0"`
	RouteSize int           `yaml:"route_size" validate:"gte=0"`
}

type SnapshotConfig struct {
	CachePath string `yaml:"cache_path"`
}

// Preferences are user-facing defaults shared by the CLI and the API.
type Preferences struct {
	Language string `yaml:"language" validate:"oneof=ua en"`
	Timezone string `yaml:"timezone" validate:"required"`
	Format   string `yaml:"format" validate:"oneof=full simple json"`
	Compact  bool   `yaml:"compact"`
}

type DebugConfig struct {
	Dashboard bool `yaml:"dashboard"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Routing     RoutingConfig  `yaml:"routing"`
	Scraper     ScraperConfig  `yaml:"scraper"`
	Admin       AdminConfig    `yaml:"admin"`
	Cache       CacheConfig    `yaml:"cache"`
	Snapshot    SnapshotConfig `yaml:"snapshot"`
	Preferences Preferences    `yaml:"preferences"`
	Debug       DebugConfig    `yaml:"debug"`
}

// Default returns the settings used when nothing else is configured.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{Port: "8080", RequestTimeout: 5 * time.Second, RateLimit: 120},
		Database: DatabaseConfig{
			Host: "127.0.0.1",
			Port: "3306",
			Name: "kharkiv_metro",
		},
		Routing: RoutingConfig{TransferMinutes: 3, FuzzyThreshold: 0.75, TieMargin: 0.10},
		Scraper: ScraperConfig{
			BaseURL:     "https://www.metro.kharkiv.ua",
			Fetcher:     "http",
			Concurrency: 10,
			Timeout:     30 * time.Second,
			PageTTL:     6 * time.Hour,
			UserAgent:   "kharkivmetro/1.0",
		},
		Admin:       AdminConfig{Username: "admin", TokenTTL: 12 * time.Hour},
		Cache:       CacheConfig{RouteTTL: 5 * time.Minute, RouteSize: 1024},
		Snapshot:    SnapshotConfig{CachePath: "data/network.gob"},
		Preferences: Preferences{Language: "ua", Timezone: "Europe/Kyiv", Format: "full"},
	}
}

// Load reads path (DefaultPath when empty) over the defaults, applies .env
// and environment overrides, and validates the result. A missing file is
// not an error.
func Load(path string) (AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return AppConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func Validate(cfg AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Preferences.Timezone); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	return nil
}

// Save writes cfg as YAML.
func Save(path string, cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DSN builds the go-sql-driver connection string.
func (d DatabaseConfig) DSN() string {
	port := d.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4,utf8", d.User, d.Pass, d.Host, port, d.Name)
}

// ============================================================================
// ENVIRONMENT
// ============================================================================

func applyEnv(cfg *AppConfig) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &cfg.Server.Port)
	duration("METRO_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	boolean("METRO_DB_ENABLED", &cfg.Database.Enabled)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASS", &cfg.Database.Pass)
	str("DB_HOST", &cfg.Database.Host)
	str("DB_PORT", &cfg.Database.Port)
	str("DB_NAME", &cfg.Database.Name)
	boolean("DB_SKIP_SCHEMA", &cfg.Database.SkipSchema)

	integer("METRO_TRANSFER_MINUTES", &cfg.Routing.TransferMinutes)

	str("METRO_SCRAPER_BASE_URL", &cfg.Scraper.BaseURL)
	str("METRO_SCRAPER_FETCHER", &cfg.Scraper.Fetcher)
	integer("METRO_SCRAPER_CONCURRENCY", &cfg.Scraper.Concurrency)

	str("METRO_ADMIN_USER", &cfg.Admin.Username)
	str("METRO_ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
	str("JWT_SECRET", &cfg.Admin.JWTSecret)
	duration("JWT_TTL", &cfg.Admin.TokenTTL)

	duration("METRO_ROUTE_CACHE_TTL", &cfg.Cache.RouteTTL)
	str("METRO_CACHE_PATH", &cfg.Snapshot.CachePath)

	str("METRO_LANG", &cfg.Preferences.Language)
	str("METRO_TIMEZONE", &cfg.Preferences.Timezone)
	boolean("METRO_DEBUG_DASHBOARD", &cfg.Debug.Dashboard)

	return errors.Join(errs...)
}
