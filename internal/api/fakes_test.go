package api

import (
	"context"

	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
	"github.com/fastprodman/coinescrow/internal/services/balance"
	"github.com/fastprodman/coinescrow/internal/services/deal"
	"github.com/fastprodman/coinescrow/internal/services/escrow"
)

type fakeDeals struct {
	confirm func(conversationID, userID int64) (deal.DealState, error)
	state   func(conversationID int64) (deal.DealState, error)
}

func (f *fakeDeals) ConfirmDeal(_ context.Context, conversationID, userID int64) (deal.DealState, error) {
	return f.confirm(conversationID, userID)
}

func (f *fakeDeals) DealState(_ context.Context, conversationID int64) (deal.DealState, error) {
	return f.state(conversationID)
}

type fakeEscrows struct {
	resolve func(escrowID int64, outcome escrow.Outcome) (escrow.Resolution, error)
	get     func(escrowID int64) (escrows.Escrow, error)
	byReq   func(requestID int64) (escrows.Escrow, error)
	list    func(status escrows.Status, limit int) ([]escrows.Escrow, error)
}

func (f *fakeEscrows) Resolve(_ context.Context, escrowID int64, outcome escrow.Outcome) (escrow.Resolution, error) {
	return f.resolve(escrowID, outcome)
}

func (f *fakeEscrows) Get(_ context.Context, escrowID int64) (escrows.Escrow, error) {
	return f.get(escrowID)
}

func (f *fakeEscrows) FindByRequest(_ context.Context, requestID int64) (escrows.Escrow, error) {
	return f.byReq(requestID)
}

func (f *fakeEscrows) ListByStatus(_ context.Context, status escrows.Status, limit int) ([]escrows.Escrow, error) {
	return f.list(status, limit)
}

type fakeBalance struct {
	charge func(userID, amount int64, description string) (ledger.Entry, error)
	get    func(userID int64) (int64, error)
	list   func(userID int64, cursor string, limit int) (balance.TransactionPage, error)
	verify func(userID int64) (balance.Reconciliation, error)
}

func (f *fakeBalance) Charge(_ context.Context, userID, amount int64, description string) (ledger.Entry, error) {
	return f.charge(userID, amount, description)
}

func (f *fakeBalance) GetBalance(_ context.Context, userID int64) (int64, error) {
	return f.get(userID)
}

func (f *fakeBalance) ListTransactions(_ context.Context, userID int64, cursor string, limit int) (balance.TransactionPage, error) {
	return f.list(userID, cursor, limit)
}

func (f *fakeBalance) VerifyBalance(_ context.Context, userID int64) (balance.Reconciliation, error) {
	return f.verify(userID)
}
