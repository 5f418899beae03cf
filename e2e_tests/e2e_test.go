//go:build e2e

// Package e2etests runs against a live stack: migrator with APP_ENV=DEV
// (seed data: users 1..3, request 7 priced 80 between requester 1 and
// provider 2, conversation 1) and the API on localhost:8080. Run on a
// freshly seeded database.
package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

const (
	baseURL   = "http://localhost:8080"
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

type dealState struct {
	State        string      `json:"state"`
	Confirmed    int         `json:"confirmed"`
	Participants int         `json:"participants"`
	Escrow       *escrowView `json:"escrow"`
}

type escrowView struct {
	ID               int64  `json:"id"`
	ServiceRequestID int64  `json:"serviceRequestId"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
}

func TestE2E_DealToPayout(t *testing.T) {
	waitUntilReady(t)

	var escrowID int64

	t.Run("requester_confirms_first", func(t *testing.T) {
		var ds dealState
		code := call(t, http.MethodPost, "/conversations/1/confirm", nil, 1, &ds)
		if code != http.StatusOK {
			t.Fatalf("confirm: want 200, got %d", code)
		}
		if ds.State != "PARTIALLY_CONFIRMED" || ds.Confirmed != 1 || ds.Participants != 2 {
			t.Fatalf("unexpected state: %+v", ds)
		}
	})

	t.Run("requester_reconfirm_is_noop", func(t *testing.T) {
		var ds dealState
		code := call(t, http.MethodPost, "/conversations/1/confirm", nil, 1, &ds)
		if code != http.StatusOK || ds.State != "PARTIALLY_CONFIRMED" || ds.Confirmed != 1 {
			t.Fatalf("reconfirm: %d %+v", code, ds)
		}
	})

	t.Run("provider_confirm_creates_escrow", func(t *testing.T) {
		var ds dealState
		code := call(t, http.MethodPost, "/conversations/1/confirm", nil, 2, &ds)
		if code != http.StatusOK {
			t.Fatalf("confirm: want 200, got %d", code)
		}
		if ds.State != "ESCROW_CREATED" || ds.Escrow == nil {
			t.Fatalf("unexpected state: %+v", ds)
		}
		if ds.Escrow.ServiceRequestID != 7 || ds.Escrow.Amount != 80 || ds.Escrow.Status != "HOLD" {
			t.Fatalf("unexpected escrow: %+v", ds.Escrow)
		}
		escrowID = ds.Escrow.ID

		if got := getBalance(t, 1); got != 120 {
			t.Fatalf("requester balance: want 120, got %d", got)
		}
	})

	t.Run("escrow_lookup_by_request", func(t *testing.T) {
		var e escrowView
		code := call(t, http.MethodGet, "/requests/7/escrow", nil, 0, &e)
		if code != http.StatusOK || e.ID != escrowID {
			t.Fatalf("lookup: %d %+v", code, e)
		}
	})

	t.Run("release_pays_provider_once", func(t *testing.T) {
		var res struct {
			Escrow  escrowView `json:"escrow"`
			Applied bool       `json:"applied"`
		}

		path := fmt.Sprintf("/escrows/%d/resolve", escrowID)

		code := call(t, http.MethodPost, path, map[string]string{"outcome": "RELEASE"}, 0, &res)
		if code != http.StatusOK || !res.Applied || res.Escrow.Status != "RELEASED" {
			t.Fatalf("release: %d %+v", code, res)
		}

		code = call(t, http.MethodPost, path, map[string]string{"outcome": "REFUND"}, 0, &res)
		if code != http.StatusOK || res.Applied || res.Escrow.Status != "RELEASED" {
			t.Fatalf("second resolve must be a no-op: %d %+v", code, res)
		}

		if got := getBalance(t, 2); got != 80 {
			t.Fatalf("provider balance: want 80, got %d", got)
		}
		if got := getBalance(t, 1); got != 120 {
			t.Fatalf("requester balance: want 120, got %d", got)
		}
	})

	t.Run("ledgers_replay_to_balances", func(t *testing.T) {
		for _, uid := range []int64{1, 2} {
			var v struct {
				Consistent bool `json:"consistent"`
			}
			code := call(t, http.MethodGet, fmt.Sprintf("/users/%d/balance/verify", uid), nil, 0, &v)
			if code != http.StatusOK || !v.Consistent {
				t.Fatalf("user %d verify: %d %+v", uid, code, v)
			}
		}
	})

	t.Run("requester_history_newest_first", func(t *testing.T) {
		var page struct {
			Entries []struct {
				Type          string `json:"type"`
				BalanceBefore int64  `json:"balanceBefore"`
				BalanceAfter  int64  `json:"balanceAfter"`
			} `json:"entries"`
		}
		code := call(t, http.MethodGet, "/users/1/transactions", nil, 0, &page)
		if code != http.StatusOK || len(page.Entries) != 2 {
			t.Fatalf("transactions: %d %+v", code, page)
		}
		d := page.Entries[0]
		if d.Type != "DEDUCT" || d.BalanceBefore != 200 || d.BalanceAfter != 120 {
			t.Fatalf("unexpected newest entry: %+v", d)
		}
	})
}

func TestE2E_ChargeAndValidation(t *testing.T) {
	waitUntilReady(t)

	t.Run("user3_charge", func(t *testing.T) {
		before := getBalance(t, 3)
		code := call(t, http.MethodPost, "/users/3/charge",
			map[string]any{"amount": 50, "description": "e2e"}, 0, nil)
		if code != http.StatusOK {
			t.Fatalf("charge: want 200, got %d", code)
		}
		if got := getBalance(t, 3); got != before+50 {
			t.Fatalf("after charge: want %d, got %d", before+50, got)
		}
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		code := call(t, http.MethodPost, "/users/3/charge", map[string]any{"amount": 0}, 0, nil)
		if code != http.StatusBadRequest {
			t.Fatalf("zero charge: want 400, got %d", code)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		code := call(t, http.MethodGet, "/users/999999/balance", nil, 0, nil)
		if code != http.StatusNotFound {
			t.Fatalf("unknown user: want 404, got %d", code)
		}
	})

	t.Run("confirm_without_user_header", func(t *testing.T) {
		code := call(t, http.MethodPost, "/conversations/1/confirm", nil, 0, nil)
		if code != http.StatusBadRequest {
			t.Fatalf("missing header: want 400, got %d", code)
		}
	})

	t.Run("stranger_cannot_confirm", func(t *testing.T) {
		code := call(t, http.MethodPost, "/conversations/1/confirm", nil, 3, nil)
		if code != http.StatusNotFound {
			t.Fatalf("stranger: want 404, got %d", code)
		}
	})
}

/* -------------------- helpers -------------------- */

// call sends body as JSON (if non-nil), sets X-User-ID when userID > 0 and
// decodes a 2xx response into out (if non-nil).
func call(t *testing.T, method, path string, body any, userID int64, out any) int {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(userID))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode/100 == 2 {
		err = json.NewDecoder(resp.Body).Decode(out)
		if err != nil {
			t.Fatalf("decode json: %v", err)
		}
	}

	return resp.StatusCode
}

func getBalance(t *testing.T, userID int64) int64 {
	t.Helper()

	var payload struct {
		UserID  int64 `json:"userId"`
		Balance int64 `json:"balance"`
	}

	code := call(t, http.MethodGet, fmt.Sprintf("/users/%d/balance", userID), nil, 0, &payload)
	if code != http.StatusOK {
		t.Fatalf("GET balance of %d: want 200, got %d", userID, code)
	}
	if payload.UserID != userID {
		t.Fatalf("userId mismatch: want %d, got %d", userID, payload.UserID)
	}

	return payload.Balance
}

// waitUntilReady waits until GET /healthz responds 200 or times out.
func waitUntilReady(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", baseURL, waitReady)
		case <-tick.C:
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
			resp, err := httpClient.Do(req)
			if err != nil {
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}
