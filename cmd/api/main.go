package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/coinescrow/internal/api"
	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/services/balance"
	"github.com/fastprodman/coinescrow/internal/services/deal"
	"github.com/fastprodman/coinescrow/internal/services/escrow"
	"github.com/fastprodman/coinescrow/pkg/envconf"
	"github.com/fastprodman/coinescrow/pkg/shutdownqueue"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// A missing .env is fine; variables already set in the environment win.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error {
		slog.Info("Close database pool")
		return dbConns.Close()
	})

	// --- Services ---
	balanceSrv := balance.New(dbConns, cfg.Lock)
	services := api.Services{
		Deals:   deal.New(dbConns, balanceSrv, cfg.Lock),
		Escrows: escrow.New(dbConns, balanceSrv, cfg.Lock),
		Balance: balanceSrv,
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, services, cfg.Retry, log)

	// Registered after the pool so it shuts down first.
	shutdownqueue.Add("http", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
