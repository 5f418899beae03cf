package balance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
)

// DeductToEscrow runs DeductToEscrowTx in its own transaction. It leaves
// the service request's status alone; deal.Coordinator moves it to
// IN_PROGRESS in the same transaction as the deduction.
func (s *BalanceService) DeductToEscrow(ctx context.Context, d Deduction) (m Movement, err error) {
	observe := metrics.ObserveOp("deduct_to_escrow")
	defer func() { observe(err) }()

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		m, err = s.DeductToEscrowTx(ctx, tx, d)
		return err
	}, s.txOpts...)
	if err != nil {
		return Movement{}, fmt.Errorf("deduct to escrow: %w", err)
	}

	m.Observe()

	return m, nil
}

// DeductToEscrowTx takes d.Amount from the requester, records the DEDUCT
// entry and creates the escrow, all inside tx. Either all three happen or
// the caller's rollback undoes them.
func (s *BalanceService) DeductToEscrowTx(ctx context.Context, tx *sql.Tx, d Deduction) (Movement, error) {
	n := escrows.NewEscrow{
		ServiceRequestID: d.RequestID,
		RequesterID:      d.RequesterID,
		ProviderID:       d.ProviderID,
		Amount:           d.Amount,
	}

	err := n.Validate()
	if err != nil {
		return Movement{}, err
	}

	entry, err := s.debit(ctx, tx, d.RequesterID, d.Amount, requestRef(d.RequestID),
		fmt.Sprintf("escrow hold for service request #%d", d.RequestID))
	if err != nil {
		return Movement{}, err
	}

	e, err := s.escrows.Create(ctx, tx, n)
	if err != nil {
		return Movement{}, fmt.Errorf("create escrow: %w", err)
	}

	return Movement{Entry: entry, Escrow: e}, nil
}

// ReleaseToProvider locks the escrow and pays it out to the provider. An
// IN_PROGRESS service request is completed in the same transaction.
func (s *BalanceService) ReleaseToProvider(ctx context.Context, escrowID int64) (Movement, error) {
	return s.resolve(ctx, "release_to_provider", escrowID, s.ReleaseToProviderTx, requests.StatusCompleted)
}

// RefundToRequester locks the escrow and returns it to the requester. An
// IN_PROGRESS service request is cancelled in the same transaction.
func (s *BalanceService) RefundToRequester(ctx context.Context, escrowID int64) (Movement, error) {
	return s.resolve(ctx, "refund_to_requester", escrowID, s.RefundToRequesterTx, requests.StatusCancelled)
}

// ReleaseToProviderTx credits the provider with the escrowed amount, appends
// a PAYOUT entry and marks the escrow RELEASED. e must be locked by tx and
// still in HOLD.
func (s *BalanceService) ReleaseToProviderTx(ctx context.Context, tx *sql.Tx, e escrows.Escrow) (Movement, error) {
	return s.settle(ctx, tx, e, e.ProviderID, ledger.TypePayout, escrows.StatusReleased,
		fmt.Sprintf("payout for service request #%d", e.ServiceRequestID))
}

// RefundToRequesterTx is ReleaseToProviderTx for the requester side: REFUND
// entry, escrow REFUNDED.
func (s *BalanceService) RefundToRequesterTx(ctx context.Context, tx *sql.Tx, e escrows.Escrow) (Movement, error) {
	return s.settle(ctx, tx, e, e.RequesterID, ledger.TypeRefund, escrows.StatusRefunded,
		fmt.Sprintf("refund for service request #%d", e.ServiceRequestID))
}

func (s *BalanceService) settle(
	ctx context.Context,
	tx *sql.Tx,
	e escrows.Escrow,
	beneficiary int64,
	typ ledger.EntryType,
	to escrows.Status,
	description string,
) (Movement, error) {
	if e.Status != escrows.StatusHold {
		return Movement{}, fmt.Errorf("escrow %d is %s: %w", e.ID, e.Status, escrows.ErrNotHeld)
	}

	entry, err := s.credit(ctx, tx, beneficiary, e.Amount, typ, requestRef(e.ServiceRequestID), description)
	if err != nil {
		return Movement{}, err
	}

	resolved, err := s.escrows.MarkResolved(ctx, tx, e.ID, to, time.Now().UTC())
	if err != nil {
		return Movement{}, fmt.Errorf("mark escrow: %w", err)
	}

	return Movement{Entry: entry, Escrow: resolved}, nil
}

func (s *BalanceService) resolve(
	ctx context.Context,
	op string,
	escrowID int64,
	fn func(context.Context, *sql.Tx, escrows.Escrow) (Movement, error),
	closeAs requests.Status,
) (m Movement, err error) {
	observe := metrics.ObserveOp(op)
	defer func() { observe(err) }()

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		e, err := s.escrows.GetForUpdate(ctx, tx, escrowID)
		if err != nil {
			return fmt.Errorf("lock escrow: %w", err)
		}

		if e.Status != escrows.StatusHold {
			return fmt.Errorf("escrow %d is %s: %w", e.ID, e.Status, escrows.ErrNotHeld)
		}

		// escrow -> request -> user, the order escrow.Resolver locks in.
		req, err := s.requests.LockForUpdate(ctx, tx, e.ServiceRequestID)
		if err != nil {
			return fmt.Errorf("lock request: %w", err)
		}

		m, err = fn(ctx, tx, e)
		if err != nil {
			return err
		}

		if req.Status != requests.StatusInProgress {
			return nil
		}

		err = s.requests.Transition(ctx, tx, req.ID, requests.StatusInProgress, closeAs)
		if err != nil {
			return fmt.Errorf("close request: %w", err)
		}

		return nil
	}, s.txOpts...)
	if err != nil {
		return Movement{}, fmt.Errorf("%s: %w", op, err)
	}

	m.Observe()

	return m, nil
}
