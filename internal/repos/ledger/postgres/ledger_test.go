package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgtestutil"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

func appendEntry(t *testing.T, db *sql.DB, repo *ledgerRepo, e ledger.Entry) (ledger.Entry, error) {
	t.Helper()

	var stored ledger.Entry

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		var aerr error
		stored, aerr = repo.Append(t.Context(), tx, e)
		return aerr
	})

	return stored, err
}

func TestLedger_Append(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 0)

	repo := New(db)

	ref := &ledger.Reference{Type: ledger.RelatedServiceRequest, ID: 7}

	stored, err := appendEntry(t, db, repo, ledger.Entry{
		UserID: 1, Type: ledger.TypeCharge, Amount: 50,
		BalanceBefore: 100, BalanceAfter: 150,
		Related: ref, Description: "test",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if stored.ID == 0 || stored.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned: %+v", stored)
	}
	if stored.Status != ledger.StatusCompleted {
		t.Fatalf("default status: want COMPLETED, got %s", stored.Status)
	}
	if stored.Related == nil || *stored.Related != *ref {
		t.Fatalf("related reference lost: %+v", stored.Related)
	}

	n, err := repo.CountByRelated(t.Context(), db, ledger.TypeCharge, *ref)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count by related: want 1, got %d", n)
	}
}

func TestLedger_Append_RejectsInvalid(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 0)

	repo := New(db)

	tests := []struct {
		name  string
		entry ledger.Entry
	}{
		{name: "zero_amount", entry: ledger.Entry{UserID: 1, Type: ledger.TypeCharge, Amount: 0, BalanceBefore: 10, BalanceAfter: 10}},
		{name: "inconsistent_after", entry: ledger.Entry{UserID: 1, Type: ledger.TypeDeduct, Amount: 5, BalanceBefore: 10, BalanceAfter: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := appendEntry(t, db, repo, tt.entry)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}

	if sum := pgtestutil.LedgerSum(t, db, 1); sum != 0 {
		t.Fatalf("rejected entries must not be stored, sum=%d", sum)
	}
}

// The table CHECK backs up Validate for writers that bypass the repo.
func TestLedger_CheckConstraint(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 0)

	_, err := db.Exec(`
		INSERT INTO ledger_entries (user_id, type, amount, balance_before, balance_after)
		VALUES (1, 'DEDUCT', 5, 10, 15)
	`)
	if !errors.Is(pgutils.Classify(err), domain.ErrValidation) {
		t.Fatalf("want check violation, got %v", err)
	}
}

func TestLedger_IsAppendOnly(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 100)

	_, err := db.Exec(`UPDATE ledger_entries SET description = 'edited' WHERE user_id = 1`)
	if err == nil {
		t.Fatal("expected update to be rejected")
	}

	_, err = db.Exec(`DELETE FROM ledger_entries WHERE user_id = 1`)
	if err == nil {
		t.Fatal("expected delete to be rejected")
	}

	if sum := pgtestutil.LedgerSum(t, db, 1); sum != 100 {
		t.Fatalf("ledger changed: sum=%d", sum)
	}
}

func TestLedger_ListForUser_NewestFirst(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 0)
	pgtestutil.SeedUser(t, db, 2, 0)

	repo := New(db)

	balance := int64(0)
	for i := int64(1); i <= 5; i++ {
		_, err := appendEntry(t, db, repo, ledger.Entry{
			UserID: 1, Type: ledger.TypeCharge, Amount: i,
			BalanceBefore: balance, BalanceAfter: balance + i,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		balance += i
	}

	_, err := appendEntry(t, db, repo, ledger.Entry{
		UserID: 2, Type: ledger.TypeCharge, Amount: 99, BalanceBefore: 0, BalanceAfter: 99,
	})
	if err != nil {
		t.Fatalf("append other user: %v", err)
	}

	first, err := repo.ListForUser(context.Background(), 1, ledger.Page{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("want 3 entries, got %d", len(first))
	}
	for i, want := range []int64{5, 4, 3} {
		if first[i].Amount != want {
			t.Fatalf("entry %d: want amount %d, got %d", i, want, first[i].Amount)
		}
	}

	rest, err := repo.ListForUser(context.Background(), 1, ledger.Page{BeforeID: first[2].ID, Limit: 10})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest) != 2 || rest[0].Amount != 2 || rest[1].Amount != 1 {
		t.Fatalf("unexpected second page: %+v", rest)
	}

	sum, err := repo.SumForUser(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != 15 {
		t.Fatalf("sum: want 15, got %d", sum)
	}
}

// Entry ids and cursors are BIGINT; paging must not narrow them to int4.
func TestLedger_ListForUser_BeforeIDBeyondInt32(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	pgtestutil.SeedUser(t, db, 1, 0)

	repo := New(db)

	_, err := db.Exec(`SELECT setval(pg_get_serial_sequence('ledger_entries', 'id'), $1)`, int64(1)<<35)
	if err != nil {
		t.Fatalf("advance id sequence: %v", err)
	}

	var ids []int64
	for i := int64(1); i <= 3; i++ {
		e, err := appendEntry(t, db, repo, ledger.Entry{
			UserID: 1, Type: ledger.TypeCharge, Amount: 1,
			BalanceBefore: i - 1, BalanceAfter: i,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ids = append(ids, e.ID)
	}

	tests := []struct {
		name     string
		beforeID int64
		wantLen  int
	}{
		{name: "cursor_past_every_entry", beforeID: 1 << 40, wantLen: 3},
		{name: "cursor_on_large_id", beforeID: ids[2], wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListForUser(t.Context(), 1, ledger.Page{BeforeID: tt.beforeID, Limit: 10})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("want %d entries, got %d", tt.wantLen, len(got))
			}
			for _, e := range got {
				if e.ID >= tt.beforeID {
					t.Fatalf("entry %d not before cursor %d", e.ID, tt.beforeID)
				}
			}
		})
	}
}
