package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/coinescrow/internal/services/deal"
)

// UserIDHeader carries the authenticated caller's user id, set by the
// gateway in front of this service.
const UserIDHeader = "X-User-ID"

// ConfirmDealHandler handles POST /conversations/{conversationId}/confirm
func (h *HandlerProvider) ConfirmDealHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, err := parseIDParam(r, "conversationId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := parsePositive(UserIDHeader, r.Header.Get(UserIDHeader))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing or invalid "+UserIDHeader+" header")
		return
	}

	var ds deal.DealState

	err = h.withRetry(r.Context(), func(ctx context.Context) error {
		ds, err = h.svc.Deals.ConfirmDeal(ctx, conversationID, userID)
		return err
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toDealState(ds))
}

// GetDealStateHandler handles GET /conversations/{conversationId}/deal
func (h *HandlerProvider) GetDealStateHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, err := parseIDParam(r, "conversationId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := h.svc.Deals.DealState(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toDealState(ds))
}
