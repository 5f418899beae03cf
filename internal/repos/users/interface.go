package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
)

var (
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", domain.ErrInsufficientBalance)
	ErrUserNotFound      = fmt.Errorf("%w: user", domain.ErrNotFound)
)

// Users owns the cached spendable balance column. Every mutation must be
// paired with a ledger append in the same transaction by the caller.
type Users interface {
	Exists(ctx context.Context, q pgutils.Querier, userID int64) error
	GetBalance(ctx context.Context, userID int64) (int64, error)
	LockAndGetBalance(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	IncreaseBalance(ctx context.Context, tx *sql.Tx, userID int64, amount int64) (int64, error)
	DecreaseBalance(ctx context.Context, tx *sql.Tx, userID int64, amount int64) (int64, error)
}
