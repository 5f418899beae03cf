// Package escrow settles held escrows and answers read-only escrow queries.
package escrow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fastprodman/coinescrow/internal/config"
	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/pagination"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	pgescrows "github.com/fastprodman/coinescrow/internal/repos/escrows/postgres"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
	pgrequests "github.com/fastprodman/coinescrow/internal/repos/requests/postgres"
	"github.com/fastprodman/coinescrow/internal/services/balance"
)

var ErrInvalidOutcome = fmt.Errorf("%w: outcome must be RELEASE or REFUND", domain.ErrValidation)

type Outcome string

const (
	OutcomeRelease Outcome = "RELEASE"
	OutcomeRefund  Outcome = "REFUND"
)

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(s))); o {
	case OutcomeRelease, OutcomeRefund:
		return o, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidOutcome)
	}
}

// Resolution is the escrow after Resolve. Applied is false when the escrow
// had already left HOLD and nothing was changed.
type Resolution struct {
	Escrow  escrows.Escrow
	Applied bool
}

type Resolver struct {
	db       *sql.DB
	escrows  escrows.Escrows
	requests requests.Requests
	balance  *balance.BalanceService
	txOpts   []pgutils.TxOption
}

func New(dbx *sql.DB, bal *balance.BalanceService, lock config.LockConfig) *Resolver {
	return &Resolver{
		db:       dbx,
		escrows:  pgescrows.New(dbx),
		requests: pgrequests.New(dbx),
		balance:  bal,
		txOpts:   pgutils.LockOptions(lock),
	}
}

// Resolve pays the escrow out to the provider (RELEASE) or back to the
// requester (REFUND). The escrow row lock orders concurrent calls; once the
// escrow has left HOLD every later call, whatever its outcome, succeeds
// without moving coins. The guarded request is closed in the same
// transaction if it is still IN_PROGRESS.
func (r *Resolver) Resolve(ctx context.Context, escrowID int64, outcome Outcome) (res Resolution, err error) {
	observe := metrics.ObserveOp("resolve_escrow")
	defer func() { observe(err) }()

	settle, closeAs, err := r.plan(outcome)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve escrow: %w", err)
	}

	log := logging.FromContext(ctx).With("escrow_id", escrowID, "outcome", outcome)

	var moved balance.Movement

	err = pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		e, err := r.escrows.GetForUpdate(ctx, tx, escrowID)
		if err != nil {
			return fmt.Errorf("lock escrow: %w", err)
		}

		if e.Status != escrows.StatusHold {
			res = Resolution{Escrow: e}
			return nil
		}

		req, err := r.requests.LockForUpdate(ctx, tx, e.ServiceRequestID)
		if err != nil {
			return fmt.Errorf("lock request: %w", err)
		}

		moved, err = settle(ctx, tx, e)
		if err != nil {
			return err
		}

		if req.Status == requests.StatusInProgress {
			err = r.requests.Transition(ctx, tx, req.ID, requests.StatusInProgress, closeAs)
			if err != nil {
				return fmt.Errorf("close request: %w", err)
			}
		}

		res = Resolution{Escrow: moved.Escrow, Applied: true}

		return nil
	}, r.txOpts...)
	if err != nil {
		if domain.IsRetryable(err) {
			log.Warn("escrow resolution timed out waiting for a lock", "error", err)
		}

		return Resolution{}, fmt.Errorf("resolve escrow: %w", err)
	}

	if !res.Applied {
		log.Debug("escrow already resolved", "status", res.Escrow.Status)
		return res, nil
	}

	moved.Observe()

	log.Info("escrow resolved",
		"status", res.Escrow.Status,
		"request_id", res.Escrow.ServiceRequestID,
		"amount", res.Escrow.Amount,
	)

	return res, nil
}

func (r *Resolver) plan(outcome Outcome) (
	func(context.Context, *sql.Tx, escrows.Escrow) (balance.Movement, error),
	requests.Status,
	error,
) {
	switch outcome {
	case OutcomeRelease:
		return r.balance.ReleaseToProviderTx, requests.StatusCompleted, nil
	case OutcomeRefund:
		return r.balance.RefundToRequesterTx, requests.StatusCancelled, nil
	default:
		return nil, "", fmt.Errorf("%q: %w", outcome, ErrInvalidOutcome)
	}
}

func (r *Resolver) Get(ctx context.Context, escrowID int64) (escrows.Escrow, error) {
	e, err := r.escrows.Get(ctx, r.db, escrowID)
	if err != nil {
		return escrows.Escrow{}, fmt.Errorf("get escrow: %w", err)
	}

	return e, nil
}

func (r *Resolver) FindByRequest(ctx context.Context, requestID int64) (escrows.Escrow, error) {
	e, err := r.escrows.FindByRequest(ctx, r.db, requestID)
	if err != nil {
		return escrows.Escrow{}, fmt.Errorf("find escrow by request: %w", err)
	}

	return e, nil
}

// ListByStatus returns up to limit escrows in the given status, newest
// first. limit is clamped like any other page size.
func (r *Resolver) ListByStatus(ctx context.Context, status escrows.Status, limit int) ([]escrows.Escrow, error) {
	list, err := r.escrows.ListByStatus(ctx, status, pagination.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}

	return list, nil
}
