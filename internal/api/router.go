package api

import (
	"log/slog"
	"net/http"

	"github.com/fastprodman/coinescrow/internal/config"
	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc Services, rc config.RetryConfig, log *slog.Logger) http.Handler {
	h := NewHandler(svc, rc)
	r := chi.NewRouter()

	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/conversations/{conversationId}", func(r chi.Router) {
		r.Post("/confirm", h.ConfirmDealHandler)
		r.Get("/deal", h.GetDealStateHandler)
	})

	r.Route("/escrows", func(r chi.Router) {
		r.Get("/", h.ListEscrowsHandler)
		r.Get("/{escrowId}", h.GetEscrowHandler)
		r.Post("/{escrowId}/resolve", h.ResolveEscrowHandler)
	})

	r.Get("/requests/{requestId}/escrow", h.GetRequestEscrowHandler)

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Post("/charge", h.ChargeHandler)
		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/balance/verify", h.VerifyBalanceHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
	})

	return r
}
