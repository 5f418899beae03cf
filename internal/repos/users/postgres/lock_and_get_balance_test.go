package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgtestutil"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/users"
)

func TestUsers_LockAndGetBalance(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 0)
	pgtestutil.SeedUser(t, db, 2, 12_345)
	pgtestutil.SeedUser(t, db, 3, 900_000_000_000_000)

	repo := New(db)

	tests := []struct {
		name        string
		userID      int64
		wantBalance int64
		wantErr     error
	}{
		{name: "zero_balance", userID: 1, wantBalance: 0},
		{name: "positive_balance", userID: 2, wantBalance: 12_345},
		{name: "large_balance", userID: 3, wantBalance: 900_000_000_000_000},
		{name: "user_not_found", userID: 999, wantErr: users.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin tx: %v", err)
			}
			defer func() { _ = tx.Rollback() }()

			bal, err := repo.LockAndGetBalance(ctx, tx, tt.userID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %v, got %v (balance=%d)", tt.wantErr, err, bal)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bal != tt.wantBalance {
				t.Fatalf("balance mismatch: want %d, got %d", tt.wantBalance, bal)
			}
		})
	}
}

// A second balance lock on the same row blocks until the first tx commits.
func TestUsers_LockAndGetBalance_LocksRow(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 42, 200)

	repo := New(db)

	ctx1, cancel1 := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel1()

	tx1, err := db.BeginTx(ctx1, nil)
	if err != nil {
		t.Fatalf("begin tx1: %v", err)
	}
	defer func() { _ = tx1.Rollback() }()

	_, err = repo.LockAndGetBalance(ctx1, tx1, 42)
	if err != nil {
		t.Fatalf("tx1 lock/get: %v", err)
	}

	_, err = repo.IncreaseBalance(ctx1, tx1, 42, 50)
	if err != nil {
		t.Fatalf("tx1 increase: %v", err)
	}

	started := make(chan struct{})
	result := make(chan int64, 1)
	errCh := make(chan error, 1)

	go func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()

		tx2, e := db.BeginTx(ctx2, nil)
		if e != nil {
			errCh <- e
			return
		}
		defer func() { _ = tx2.Rollback() }()

		close(started)

		bal, e := repo.LockAndGetBalance(ctx2, tx2, 42)
		if e != nil {
			errCh <- e
			return
		}

		result <- bal
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for tx2 to start")
	}

	select {
	case bal := <-result:
		t.Fatalf("tx2 acquired the lock while tx1 held it (balance=%d)", bal)
	case e := <-errCh:
		t.Fatalf("tx2 error: %v", e)
	case <-time.After(200 * time.Millisecond):
	}

	err = tx1.Commit()
	if err != nil {
		t.Fatalf("commit tx1: %v", err)
	}

	select {
	case bal := <-result:
		if bal != 250 {
			t.Fatalf("tx2 must see tx1's committed balance: want 250, got %d", bal)
		}
	case e := <-errCh:
		t.Fatalf("tx2 error: %v", e)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for tx2 after tx1 commit")
	}
}

// With lock_timeout set, a blocked balance lock gives up with a retryable error.
func TestUsers_LockAndGetBalance_LockTimeout(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 42, 200)

	repo := New(db)

	holder, err := db.BeginTx(t.Context(), nil)
	if err != nil {
		t.Fatalf("begin holder: %v", err)
	}
	defer func() { _ = holder.Rollback() }()

	_, err = repo.LockAndGetBalance(t.Context(), holder, 42)
	if err != nil {
		t.Fatalf("holder lock: %v", err)
	}

	start := time.Now()

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		_, lerr := repo.LockAndGetBalance(t.Context(), tx, 42)
		return lerr
	}, pgutils.WithLockTimeout(100*time.Millisecond))

	if !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("want ErrLockTimeout, got %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Fatalf("lock timeout must be retryable: %v", err)
	}
	if waited := time.Since(start); waited > 3*time.Second {
		t.Fatalf("lock wait not bounded: %s", waited)
	}
}

// The balance lock must not block the key-share lock a foreign key check
// takes on the same user, e.g. an escrow naming the locked user as provider.
func TestUsers_LockAndGetBalance_AllowsForeignKeyChecks(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 100)
	pgtestutil.SeedUser(t, db, 2, 100)

	repo := New(db)

	holder, err := db.BeginTx(t.Context(), nil)
	if err != nil {
		t.Fatalf("begin holder: %v", err)
	}
	defer func() { _ = holder.Rollback() }()

	_, err = repo.LockAndGetBalance(t.Context(), holder, 2)
	if err != nil {
		t.Fatalf("holder lock: %v", err)
	}

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		_, lerr := repo.LockAndGetBalance(t.Context(), tx, 1)
		if lerr != nil {
			return lerr
		}

		var requestID int64

		lerr = tx.QueryRowContext(t.Context(), `
			INSERT INTO service_requests (requester_id, title, price)
			VALUES (1, 'reciprocal', 10)
			RETURNING id
		`).Scan(&requestID)
		if lerr != nil {
			return lerr
		}

		// provider_id references users(2), which the holder has locked.
		_, lerr = tx.ExecContext(t.Context(), `
			INSERT INTO conversations (service_request_id, provider_id)
			VALUES ($1, 2)
		`, requestID)
		return lerr
	}, pgutils.WithLockTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("key share on a balance-locked user must not wait: %v", err)
	}
}
