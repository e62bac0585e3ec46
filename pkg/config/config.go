package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration for the bantay server.
type Config struct {
	Addr       string        `env:"BANTAY_ADDR"        envDefault:":8080"`
	BasePath   string        `env:"BANTAY_BASE_PATH"   envDefault:"/api"`
	Secret     string        `env:"BANTAY_SECRET"`
	Issuer     string        `env:"BANTAY_ISSUER"      envDefault:"bantay"`
	AccessTTL  time.Duration `env:"BANTAY_ACCESS_TTL"  envDefault:"5m"`
	RefreshTTL time.Duration `env:"BANTAY_REFRESH_TTL" envDefault:"24h"`

	DatabaseURL string `env:"BANTAY_DATABASE_URL"`
	SQLitePath  string `env:"BANTAY_SQLITE_PATH" envDefault:"bantay.db"`

	GoogleClientID string        `env:"BANTAY_GOOGLE_CLIENT_ID"`
	AppleBundleID  string        `env:"BANTAY_APPLE_BUNDLE_ID"`
	JWKSTTL        time.Duration `env:"BANTAY_JWKS_TTL" envDefault:"1h"`

	PasswordHasher string `env:"BANTAY_PASSWORD_HASHER" envDefault:"argon2id"`
	LogMode        string `env:"BANTAY_LOG_MODE"        envDefault:"dev"`

	BootstrapAdminEmail    string `env:"BANTAY_BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BANTAY_BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment and parses Config from it. Missing files are ignored;
// variables already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// UsePostgres reports whether a Postgres URL was configured; SQLite is used otherwise.
func (c Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
