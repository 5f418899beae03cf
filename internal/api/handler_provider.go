package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fastprodman/coinescrow/internal/config"
	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/repos/conversations"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
	"github.com/fastprodman/coinescrow/internal/repos/users"
	"github.com/fastprodman/coinescrow/internal/retry"
	"github.com/fastprodman/coinescrow/internal/services/balance"
	"github.com/fastprodman/coinescrow/internal/services/deal"
	"github.com/fastprodman/coinescrow/internal/services/escrow"
	"github.com/go-chi/chi/v5"
)

type DealService interface {
	ConfirmDeal(ctx context.Context, conversationID, userID int64) (deal.DealState, error)
	DealState(ctx context.Context, conversationID int64) (deal.DealState, error)
}

type EscrowService interface {
	Resolve(ctx context.Context, escrowID int64, outcome escrow.Outcome) (escrow.Resolution, error)
	Get(ctx context.Context, escrowID int64) (escrows.Escrow, error)
	FindByRequest(ctx context.Context, requestID int64) (escrows.Escrow, error)
	ListByStatus(ctx context.Context, status escrows.Status, limit int) ([]escrows.Escrow, error)
}

type BalanceService interface {
	Charge(ctx context.Context, userID, amount int64, description string) (ledger.Entry, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ListTransactions(ctx context.Context, userID int64, cursor string, limit int) (balance.TransactionPage, error)
	VerifyBalance(ctx context.Context, userID int64) (balance.Reconciliation, error)
}

// Services bundles what the handlers call into.
type Services struct {
	Deals   DealService
	Escrows EscrowService
	Balance BalanceService
}

// HandlerProvider exposes the services as HTTP handlers.
type HandlerProvider struct {
	svc   Services
	retry config.RetryConfig
}

// NewHandler returns a new Handler provider.
func NewHandler(svc Services, rc config.RetryConfig) *HandlerProvider {
	return &HandlerProvider{svc: svc, retry: rc}
}

// --- Helpers ---

// withRetry re-runs a state-changing call that failed on a lock timeout.
// Every such call is idempotent or rolled back entirely on failure.
func (h *HandlerProvider) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, h.retry, fn)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, r, http.StatusConflict, "insufficient balance")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, r, http.StatusConflict, "invalid state")
	case errors.Is(err, domain.ErrLockTimeout):
		logging.FromContext(r.Context()).Warn("giving up after lock timeouts", "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusServiceUnavailable, "resource busy, retry later")
	default:
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func notFoundMessage(err error) string {
	for _, target := range []struct {
		err error
		msg string
	}{
		{escrows.ErrEscrowNotFound, "escrow not found"},
		{users.ErrUserNotFound, "user not found"},
		{conversations.ErrConversationNotFound, "conversation not found"},
		{conversations.ErrParticipantNotFound, "participant not found"},
		{requests.ErrRequestNotFound, "service request not found"},
	} {
		if errors.Is(err, target.err) {
			return target.msg
		}
	}

	return "not found"
}

// parseIDParam reads a positive integer chi route parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}

	return parsePositive(name, raw)
}

func parsePositive(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}

	return id, nil
}

// parseLimit reads the optional ?limit= query parameter. Out-of-range
// values are clamped by the services.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit")
	}

	return limit, nil
}

// decodeBody limits the body size and rejects unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}
