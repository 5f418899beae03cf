package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/repos/users"
)

// IncreaseBalance adds amount and returns the new balance.
func (r *usersRepo) IncreaseBalance(ctx context.Context, tx *sql.Tx, userID int64, amount int64) (int64, error) {
	var after int64

	err := tx.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance + $2
		WHERE id = $1
		RETURNING balance
	`, userID, amount).Scan(&after)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrUserNotFound
		}

		return 0, fmt.Errorf("increase balance: %w", err)
	}

	return after, nil
}
