package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	"github.com/fastprodman/coinescrow/internal/services/escrow"
)

// ResolveEscrowHandler handles POST /escrows/{escrowId}/resolve
func (h *HandlerProvider) ResolveEscrowHandler(w http.ResponseWriter, r *http.Request) {
	escrowID, err := parseIDParam(r, "escrowId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req resolveRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := escrow.ParseOutcome(req.Outcome)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var res escrow.Resolution

	err = h.withRetry(r.Context(), func(ctx context.Context) error {
		res, err = h.svc.Escrows.Resolve(ctx, escrowID, outcome)
		return err
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, resolveResponse{Escrow: res.Escrow, Applied: res.Applied})
}

// GetEscrowHandler handles GET /escrows/{escrowId}
func (h *HandlerProvider) GetEscrowHandler(w http.ResponseWriter, r *http.Request) {
	escrowID, err := parseIDParam(r, "escrowId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.svc.Escrows.Get(r.Context(), escrowID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, e)
}

// ListEscrowsHandler handles GET /escrows?status=HOLD&limit=N
func (h *HandlerProvider) ListEscrowsHandler(w http.ResponseWriter, r *http.Request) {
	status := escrows.StatusHold
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = escrows.Status(strings.ToUpper(raw))
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.svc.Escrows.ListByStatus(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if list == nil {
		list = []escrows.Escrow{}
	}

	writeJSON(w, r, http.StatusOK, escrowListResponse{Escrows: list})
}

// GetRequestEscrowHandler handles GET /requests/{requestId}/escrow
func (h *HandlerProvider) GetRequestEscrowHandler(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseIDParam(r, "requestId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.svc.Escrows.FindByRequest(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, e)
}
