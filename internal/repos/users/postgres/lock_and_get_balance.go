package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/repos/users"
)

func (r *usersRepo) LockAndGetBalance(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var balance int64

	err := tx.QueryRowContext(ctx, `
		SELECT balance
		FROM users
		WHERE id = $1
		FOR NO KEY UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, users.ErrUserNotFound
		}

		return 0, fmt.Errorf("lock/get balance: %w", err)
	}

	return balance, nil
}
