package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// LockConfig bounds how long a transaction may wait on a row lock or a
// single statement before Postgres aborts it.
type LockConfig struct {
	LockTimeout      time.Duration `env:"PG_LOCK_TIMEOUT" envDefault:"3s"`
	StatementTimeout time.Duration `env:"PG_STATEMENT_TIMEOUT" envDefault:"10s"`
}

type RetryConfig struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"50ms"`
}
