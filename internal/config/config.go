// internal/config/config.go

// Package config reads process settings from the environment, with command
// line flags taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	DataDir       string
	BooksFile     string
	AdminUser     string
	AdminPassword string
	LogFormat     string
	LogLevel      string
	OTLPEndpoint  string
}

// Load builds a Config from the environment and args (without the program
// name). lookup is normally os.LookupEnv.
func Load(args []string, lookup func(string) (string, bool)) (Config, error) {
	env := func(key, defaultValue string) string {
		if value, exists := lookup(key); exists {
			return value
		}
		return defaultValue
	}

	var cfg Config
	flags := pflag.NewFlagSet("frontdesk", pflag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "addr", env("FRONTDESK_ADDR", ":8080"), "HTTP listen address")
	flags.StringVar(&cfg.DatabaseURL, "database-url", env("DATABASE_URL", ""), "Postgres URL for the journal and snapshots")
	flags.StringVar(&cfg.DataDir, "data-dir", env("FRONTDESK_DATA_DIR", "data"), "snapshot directory when no database is configured")
	flags.StringVar(&cfg.BooksFile, "books", env("FRONTDESK_BOOKS_FILE", "books.txt"), "bookstore catalog file")
	flags.StringVar(&cfg.AdminUser, "admin-user", env("FRONTDESK_ADMIN_USER", "admin"), "bootstrap employee username")
	flags.StringVar(&cfg.AdminPassword, "admin-password", env("FRONTDESK_ADMIN_PASSWORD", ""), "bootstrap employee password")
	flags.StringVar(&cfg.LogFormat, "log-format", env("FRONTDESK_LOG_FORMAT", "text"), "log format: text or json")
	flags.StringVar(&cfg.LogLevel, "log-level", env("FRONTDESK_LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	flags.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", env("OTEL_EXPORTER_OTLP_ENDPOINT", ""), "OTLP/HTTP trace collector; tracing is off when empty")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnvironment is Load against the real process environment.
func FromEnvironment() (Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.BooksFile == "" {
		return fmt.Errorf("bookstore file is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.AdminPassword != "" && c.AdminUser == "" {
		return fmt.Errorf("admin password given without an admin user")
	}
	return nil
}
