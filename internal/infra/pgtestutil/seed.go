package pgtestutil

import (
	"database/sql"
	"testing"
)

// Deal is the fixture created by SeedDeal.
type Deal struct {
	RequestID      int64
	ConversationID int64
	RequesterID    int64
	ProviderID     int64
	Price          int64
}

// SeedUser inserts a user holding balance coins. A positive balance is
// backed by a CHARGE ledger entry so replaying the ledger matches the
// cached balance.
func SeedUser(t *testing.T, db *sql.DB, id, balance int64) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO users (id, balance) VALUES ($1, $2)`, id, balance)
	if err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}

	if balance == 0 {
		return
	}

	_, err = db.Exec(`
		INSERT INTO ledger_entries (user_id, type, amount, balance_before, balance_after, description)
		VALUES ($1, 'CHARGE', $2, 0, $2, 'seed')
	`, id, balance)
	if err != nil {
		t.Fatalf("seed ledger for user %d: %v", id, err)
	}
}

// SeedDeal creates an OPEN service request owned by requesterID, and an
// active conversation about it between the requester, the provider and any
// extra participants. All users must already exist.
func SeedDeal(t *testing.T, db *sql.DB, requesterID, providerID, price int64, extra ...int64) Deal {
	t.Helper()

	d := Deal{RequesterID: requesterID, ProviderID: providerID, Price: price}

	err := db.QueryRow(`
		INSERT INTO service_requests (requester_id, title, price)
		VALUES ($1, 'test request', $2)
		RETURNING id
	`, requesterID, price).Scan(&d.RequestID)
	if err != nil {
		t.Fatalf("seed request: %v", err)
	}

	err = db.QueryRow(`
		INSERT INTO conversations (service_request_id, provider_id)
		VALUES ($1, $2)
		RETURNING id
	`, d.RequestID, providerID).Scan(&d.ConversationID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	participants := append([]int64{requesterID, providerID}, extra...)
	for _, uid := range participants {
		_, err = db.Exec(`
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
		`, d.ConversationID, uid)
		if err != nil {
			t.Fatalf("seed participant %d: %v", uid, err)
		}
	}

	return d
}

// RequestStatus reads a service request's status directly.
func RequestStatus(t *testing.T, db *sql.DB, requestID int64) string {
	t.Helper()

	var status string

	err := db.QueryRow(`SELECT status FROM service_requests WHERE id = $1`, requestID).Scan(&status)
	if err != nil {
		t.Fatalf("read request status: %v", err)
	}

	return status
}

// LedgerSum replays a user's ledger: credits minus deductions.
func LedgerSum(t *testing.T, db *sql.DB, userID int64) int64 {
	t.Helper()

	var sum int64

	err := db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN type = 'DEDUCT' THEN -amount ELSE amount END), 0)::BIGINT
		FROM ledger_entries
		WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		t.Fatalf("ledger sum: %v", err)
	}

	return sum
}

// CachedBalance reads users.balance directly.
func CachedBalance(t *testing.T, db *sql.DB, userID int64) int64 {
	t.Helper()

	var bal int64

	err := db.QueryRow(`SELECT balance FROM users WHERE id = $1`, userID).Scan(&bal)
	if err != nil {
		t.Fatalf("cached balance: %v", err)
	}

	return bal
}

// CountEntries counts ledger entries of one type tagged to a service request.
func CountEntries(t *testing.T, db *sql.DB, entryType string, requestID int64) int {
	t.Helper()

	var n int

	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE type = $1 AND related_type = 'service_request' AND related_id = $2
	`, entryType, requestID).Scan(&n)
	if err != nil {
		t.Fatalf("count entries: %v", err)
	}

	return n
}
