package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
	"github.com/fastprodman/coinescrow/internal/services/balance"
)

// ChargeHandler handles POST /users/{userId}/charge
func (h *HandlerProvider) ChargeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid userId in path")
		return
	}

	var req chargeRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var entry ledger.Entry

	err = h.withRetry(r.Context(), func(ctx context.Context) error {
		entry, err = h.svc.Balance.Charge(ctx, userID, req.Amount, req.Description)
		return err
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toEntry(entry))
}

// GetBalanceHandler handles GET /users/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid userId in path")
		return
	}

	bal, err := h.svc.Balance.GetBalance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, balanceResponse{UserID: userID, Balance: bal})
}

// ListTransactionsHandler handles GET /users/{userId}/transactions?cursor=&limit=
func (h *HandlerProvider) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid userId in path")
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.svc.Balance.ListTransactions(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toTransactions(userID, page))
}

// VerifyBalanceHandler handles GET /users/{userId}/balance/verify. Drift is
// reported in the body, not as an error status.
func (h *HandlerProvider) VerifyBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid userId in path")
		return
	}

	rec, err := h.svc.Balance.VerifyBalance(r.Context(), userID)
	switch {
	case errors.Is(err, balance.ErrBalanceMismatch):
		logging.FromContext(r.Context()).Warn("balance drift detected",
			"user_id", userID, "cached", rec.Cached, "ledger", rec.Ledger)
	case err != nil:
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, verifyResponse{
		UserID:     userID,
		Cached:     rec.Cached,
		Ledger:     rec.Ledger,
		Consistent: rec.Consistent(),
	})
}
