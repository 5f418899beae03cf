package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/repos/users"
)

// DecreaseBalance subtracts amount and returns the new balance. The guard in
// the WHERE clause keeps the balance from going negative even if the caller
// skipped its own pre-check.
func (r *usersRepo) DecreaseBalance(ctx context.Context, tx *sql.Tx, userID int64, amount int64) (int64, error) {
	var after int64

	err := tx.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance - $2
		WHERE id = $1
		  AND balance >= $2
		RETURNING balance
	`, userID, amount).Scan(&after)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrInsufficientFunds
		}

		return 0, fmt.Errorf("decrease balance: %w", err)
	}

	return after, nil
}
