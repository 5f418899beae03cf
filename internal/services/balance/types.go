package balance

import (
	"fmt"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

var (
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	ErrBalanceMismatch = fmt.Errorf("%w: cached balance does not match ledger", domain.ErrInvalidState)
)

// Deduction describes the coins a requester commits to a service request.
type Deduction struct {
	RequestID   int64
	RequesterID int64
	ProviderID  int64
	Amount      int64
}

// Movement is the outcome of one escrow-related balance change: the ledger
// entry written and the escrow as it stands afterwards.
type Movement struct {
	Entry  ledger.Entry
	Escrow escrows.Escrow
}

// Observe records the movement in metrics. Call it only once the enclosing
// transaction has committed.
func (m Movement) Observe() {
	if m.Entry.Type != "" {
		metrics.LedgerEntriesTotal.WithLabelValues(string(m.Entry.Type)).Inc()
	}

	if m.Escrow.Status != "" {
		metrics.EscrowTransitionsTotal.WithLabelValues(string(m.Escrow.Status)).Inc()
	}
}

type TransactionPage struct {
	Entries    []ledger.Entry
	NextCursor string
}

// Reconciliation compares the cached balance with a replay of the ledger.
type Reconciliation struct {
	UserID int64
	Cached int64
	Ledger int64
}

func (r Reconciliation) Consistent() bool {
	return r.Cached == r.Ledger
}

func requestRef(requestID int64) *ledger.Reference {
	return &ledger.Reference{Type: ledger.RelatedServiceRequest, ID: requestID}
}
