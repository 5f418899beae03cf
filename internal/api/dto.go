package api

import (
	"time"

	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
	"github.com/fastprodman/coinescrow/internal/services/balance"
	"github.com/fastprodman/coinescrow/internal/services/deal"
)

type dealStateResponse struct {
	ConversationID int64           `json:"conversationId"`
	RequestID      int64           `json:"requestId"`
	State          deal.State      `json:"state"`
	Confirmed      int             `json:"confirmed"`
	Participants   int             `json:"participants"`
	Escrow         *escrows.Escrow `json:"escrow,omitempty"`
}

func toDealState(ds deal.DealState) dealStateResponse {
	return dealStateResponse{
		ConversationID: ds.ConversationID,
		RequestID:      ds.RequestID,
		State:          ds.State,
		Confirmed:      ds.Confirmed,
		Participants:   ds.Participants,
		Escrow:         ds.Escrow,
	}
}

type resolveRequest struct {
	Outcome string `json:"outcome"`
}

type resolveResponse struct {
	Escrow  escrows.Escrow `json:"escrow"`
	Applied bool           `json:"applied"`
}

type chargeRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type entryResponse struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balanceBefore"`
	BalanceAfter  int64     `json:"balanceAfter"`
	RelatedType   string    `json:"relatedType,omitempty"`
	RelatedID     int64     `json:"relatedId,omitempty"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toEntry(e ledger.Entry) entryResponse {
	out := entryResponse{
		ID:            e.ID,
		Type:          string(e.Type),
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Description:   e.Description,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
	}

	if e.Related != nil {
		out.RelatedType = e.Related.Type
		out.RelatedID = e.Related.ID
	}

	return out
}

type balanceResponse struct {
	UserID  int64 `json:"userId"`
	Balance int64 `json:"balance"`
}

type transactionsResponse struct {
	UserID     int64           `json:"userId"`
	Entries    []entryResponse `json:"entries"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func toTransactions(userID int64, p balance.TransactionPage) transactionsResponse {
	out := transactionsResponse{
		UserID:     userID,
		Entries:    make([]entryResponse, 0, len(p.Entries)),
		NextCursor: p.NextCursor,
	}

	for _, e := range p.Entries {
		out.Entries = append(out.Entries, toEntry(e))
	}

	return out
}

type verifyResponse struct {
	UserID     int64 `json:"userId"`
	Cached     int64 `json:"cached"`
	Ledger     int64 `json:"ledger"`
	Consistent bool  `json:"consistent"`
}

type escrowListResponse struct {
	Escrows []escrows.Escrow `json:"escrows"`
}
