package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/coinescrow/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	LogFormat       string        `env:"APP_LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Postgres config.PostgresConfig
	Lock     config.LockConfig
	Retry    config.RetryConfig
}

func (c *apiConfig) Validate() error {
	var errs []error

	if c.Port == 0 {
		errs = append(errs, errors.New("APP_PORT must be non-zero"))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("APP_LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("PG_DSN is required"))
	}
	if c.Lock.LockTimeout <= 0 {
		errs = append(errs, errors.New("PG_LOCK_TIMEOUT must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}
