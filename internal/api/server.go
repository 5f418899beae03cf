package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fastprodman/coinescrow/internal/config"
)

// NewServer creates and returns a configured *http.Server for the escrow API.
func NewServer(port uint16, svc Services, rc config.RetryConfig, log *slog.Logger) *http.Server {
	mux := NewRouter(svc, rc, log)

	addr := fmt.Sprintf(":%d", port)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
}
