package envconf

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

type nestedConf struct {
	DSN         string        `env:"ENVCONF_TEST_DSN"`
	LockTimeout time.Duration `env:"ENVCONF_TEST_LOCK_TIMEOUT" envDefault:"3s"`
}

type testConf struct {
	Port     uint16     `env:"ENVCONF_TEST_PORT" envDefault:"8080"`
	Level    slog.Level `env:"ENVCONF_TEST_LEVEL" envDefault:"INFO"`
	Debug    bool       `env:"ENVCONF_TEST_DEBUG" envDefault:"false"`
	Attempts *int       `env:"ENVCONF_TEST_ATTEMPTS" envDefault:"3"`
	Postgres nestedConf
	ignored  string //nolint:unused
}

type validatedConf struct {
	Attempts int `env:"ENVCONF_TEST_VALIDATED" envDefault:"0"`
}

var errNeedAttempts = errors.New("attempts must be positive")

func (c *validatedConf) Validate() error {
	if c.Attempts <= 0 {
		return errNeedAttempts
	}

	return nil
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("ENVCONF_TEST_DSN", "postgres://u:p@localhost:5432/db")
	t.Setenv("ENVCONF_TEST_PORT", "9090")
	t.Setenv("ENVCONF_TEST_LEVEL", "DEBUG")

	cfg := new(testConf)

	err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 9090 {
		t.Fatalf("port: want 9090, got %d", cfg.Port)
	}
	if cfg.Level != slog.LevelDebug {
		t.Fatalf("level: want DEBUG, got %v", cfg.Level)
	}
	if cfg.Debug {
		t.Fatal("debug: want false")
	}
	if cfg.Attempts == nil || *cfg.Attempts != 3 {
		t.Fatalf("attempts: want 3, got %v", cfg.Attempts)
	}
	if cfg.Postgres.DSN != "postgres://u:p@localhost:5432/db" {
		t.Fatalf("dsn: got %q", cfg.Postgres.DSN)
	}
	if cfg.Postgres.LockTimeout != 3*time.Second {
		t.Fatalf("lock timeout: want 3s, got %s", cfg.Postgres.LockTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("ENVCONF_TEST_DSN", "")

	err := Load(new(testConf))
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("want ErrMissingRequired, got %v", err)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("ENVCONF_TEST_DSN", "x")
	t.Setenv("ENVCONF_TEST_LOCK_TIMEOUT", "soon")

	err := Load(new(testConf))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_Validator(t *testing.T) {
	err := Load(new(validatedConf))
	if !errors.Is(err, errNeedAttempts) {
		t.Fatalf("want validation error, got %v", err)
	}

	t.Setenv("ENVCONF_TEST_VALIDATED", "2")

	cfg := new(validatedConf)

	err = Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Attempts != 2 {
		t.Fatalf("attempts: want 2, got %d", cfg.Attempts)
	}
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	if Load(nil) == nil {
		t.Fatal("expected error for nil destination")
	}
	if Load(testConf{}) == nil {
		t.Fatal("expected error for non-pointer destination")
	}
}
