package balance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/config"
	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	pgescrows "github.com/fastprodman/coinescrow/internal/repos/escrows/postgres"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
	pgledger "github.com/fastprodman/coinescrow/internal/repos/ledger/postgres"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
	pgrequests "github.com/fastprodman/coinescrow/internal/repos/requests/postgres"
	"github.com/fastprodman/coinescrow/internal/repos/users"
	pgusers "github.com/fastprodman/coinescrow/internal/repos/users/postgres"
)

// BalanceService performs every mutation of a user's spendable balance.
// Each mutation is paired with a ledger append in the same transaction.
type BalanceService struct {
	db       *sql.DB
	users    users.Users
	ledger   ledger.Ledger
	escrows  escrows.Escrows
	requests requests.Requests
	txOpts   []pgutils.TxOption
}

func New(dbx *sql.DB, lock config.LockConfig) *BalanceService {
	return &BalanceService{
		db:       dbx,
		users:    pgusers.New(dbx),
		ledger:   pgledger.New(dbx),
		escrows:  pgescrows.New(dbx),
		requests: pgrequests.New(dbx),
		txOpts:   pgutils.LockOptions(lock),
	}
}

// Charge credits amount coins to the user and records a CHARGE entry.
func (s *BalanceService) Charge(ctx context.Context, userID, amount int64, description string) (entry ledger.Entry, err error) {
	observe := metrics.ObserveOp("charge")
	defer func() { observe(err) }()

	if amount <= 0 {
		return ledger.Entry{}, fmt.Errorf("charge: %w, got %d", ErrInvalidAmount, amount)
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		entry, err = s.credit(ctx, tx, userID, amount, ledger.TypeCharge, nil, description)
		return err
	}, s.txOpts...)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("charge: %w", err)
	}

	Movement{Entry: entry}.Observe()

	logging.FromContext(ctx).Info("coins charged",
		"user_id", userID,
		"amount", amount,
		"balance", entry.BalanceAfter,
	)

	return entry, nil
}

// GetBalance returns the user's balance (no locks; suitable for the GET endpoint).
func (s *BalanceService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.users.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// credit locks the user row, raises the balance and appends the matching
// entry.
func (s *BalanceService) credit(
	ctx context.Context,
	tx *sql.Tx,
	userID, amount int64,
	typ ledger.EntryType,
	ref *ledger.Reference,
	description string,
) (ledger.Entry, error) {
	before, err := s.users.LockAndGetBalance(ctx, tx, userID)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("lock user %d: %w", userID, err)
	}

	after, err := s.users.IncreaseBalance(ctx, tx, userID, amount)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("increase balance: %w", err)
	}

	entry, err := s.ledger.Append(ctx, tx, ledger.Entry{
		UserID:        userID,
		Type:          typ,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Related:       ref,
		Description:   description,
	})
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("append %s entry: %w", typ, err)
	}

	return entry, nil
}

// debit is credit's mirror. The balance is checked against the locked row
// before anything is written.
func (s *BalanceService) debit(
	ctx context.Context,
	tx *sql.Tx,
	userID, amount int64,
	ref *ledger.Reference,
	description string,
) (ledger.Entry, error) {
	before, err := s.users.LockAndGetBalance(ctx, tx, userID)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("lock user %d: %w", userID, err)
	}

	if before < amount {
		return ledger.Entry{}, fmt.Errorf("pre-check decrease: balance %d, need %d: %w",
			before, amount, users.ErrInsufficientFunds)
	}

	after, err := s.users.DecreaseBalance(ctx, tx, userID, amount)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("decrease balance: %w", err)
	}

	entry, err := s.ledger.Append(ctx, tx, ledger.Entry{
		UserID:        userID,
		Type:          ledger.TypeDeduct,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Related:       ref,
		Description:   description,
	})
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("append DEDUCT entry: %w", err)
	}

	return entry, nil
}
