// Package deal records per-participant deal confirmations and, once every
// active participant has confirmed, moves the agreed price from the
// requester into an escrow exactly once.
package deal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/config"
	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/logging"
	"github.com/fastprodman/coinescrow/internal/infra/metrics"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/conversations"
	pgconversations "github.com/fastprodman/coinescrow/internal/repos/conversations/postgres"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
	pgescrows "github.com/fastprodman/coinescrow/internal/repos/escrows/postgres"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
	pgrequests "github.com/fastprodman/coinescrow/internal/repos/requests/postgres"
	"github.com/fastprodman/coinescrow/internal/services/balance"
)

type Coordinator struct {
	db            *sql.DB
	conversations conversations.Conversations
	requests      requests.Requests
	escrows       escrows.Escrows
	balance       *balance.BalanceService
	txOpts        []pgutils.TxOption
	now           func() time.Time
}

func New(dbx *sql.DB, bal *balance.BalanceService, lock config.LockConfig) *Coordinator {
	return &Coordinator{
		db:            dbx,
		conversations: pgconversations.New(dbx),
		requests:      pgrequests.New(dbx),
		escrows:       pgescrows.New(dbx),
		balance:       bal,
		txOpts:        pgutils.LockOptions(lock),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmDeal records userID's confirmation in the conversation. When every
// active participant has confirmed, it deducts the request price from the
// requester into a new escrow and moves the request to IN_PROGRESS.
//
// The confirmation is committed on its own, before the transition. If the
// transition fails (for example on insufficient balance) the flag stays
// set and the request stays OPEN; calling ConfirmDeal again after the
// cause is fixed retries the transition. Repeated calls never rewrite the
// participant row and never create a second escrow, and a repeat call on a
// request that was closed without an escrow returns the state, not an error.
func (c *Coordinator) ConfirmDeal(ctx context.Context, conversationID, userID int64) (ds DealState, err error) {
	observe := metrics.ObserveOp("confirm_deal")
	defer func() {
		observe(err)

		result := string(ds.State)
		if err != nil {
			result = "error"
		}
		metrics.DealConfirmationsTotal.WithLabelValues(result).Inc()
	}()

	log := logging.FromContext(ctx).With("conversation_id", conversationID, "user_id", userID)

	var (
		conv    conversations.Conversation
		tally   conversations.Tally
		already bool
	)

	err = pgutils.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var err error

		// Serializes confirmations of this conversation so that exactly one
		// of two racing confirmers sees the complete count.
		conv, err = c.conversations.LockForUpdate(ctx, tx, conversationID)
		if err != nil {
			return fmt.Errorf("lock conversation: %w", err)
		}

		if conv.Status != conversations.StatusActive {
			return fmt.Errorf("conversation %d is %s: %w", conv.ID, conv.Status, conversations.ErrConversationInactive)
		}

		p, err := c.conversations.GetParticipant(ctx, tx, conversationID, userID)
		if err != nil {
			return fmt.Errorf("get participant: %w", err)
		}

		if !p.Active {
			return fmt.Errorf("user %d: %w", userID, conversations.ErrParticipantInactive)
		}

		already = p.DealConfirmed
		if !already {
			err = c.conversations.ConfirmParticipant(ctx, tx, conversationID, userID, c.now())
			if err != nil {
				return fmt.Errorf("confirm participant: %w", err)
			}
		}

		tally, err = c.conversations.CountConfirmations(ctx, tx, conversationID)
		if err != nil {
			return fmt.Errorf("count confirmations: %w", err)
		}

		return nil
	}, c.txOpts...)
	if err != nil {
		return DealState{}, fmt.Errorf("confirm deal: %w", err)
	}

	if already {
		log.Debug("participant already confirmed")
	} else {
		log.Info("deal confirmed by participant", "confirmed", tally.Confirmed, "participants", tally.Total)
	}

	if !tally.Complete() {
		return deriveState(conv, tally, nil), nil
	}

	e, err := c.createEscrow(ctx, conv)
	switch {
	case err == nil:
	case already && errors.Is(err, requests.ErrStatusChanged):
		// A repeat confirmation reports the current state even when the
		// request was closed before any escrow was created.
		log.Debug("request left OPEN without an escrow", "error", err)
		return deriveState(conv, tally, nil), nil
	default:
		return DealState{}, fmt.Errorf("confirm deal: %w", err)
	}

	return deriveState(conv, tally, &e), nil
}

// createEscrow runs the guarded OPEN -> IN_PROGRESS transition. The request
// row lock orders concurrent callers; whoever comes second finds the escrow
// already in place and returns it.
func (c *Coordinator) createEscrow(ctx context.Context, conv conversations.Conversation) (escrows.Escrow, error) {
	log := logging.FromContext(ctx).With("conversation_id", conv.ID, "request_id", conv.ServiceRequestID)

	var (
		held    escrows.Escrow
		moved   balance.Movement
		created bool
	)

	err := pgutils.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		req, err := c.requests.LockForUpdate(ctx, tx, conv.ServiceRequestID)
		if err != nil {
			return fmt.Errorf("lock request: %w", err)
		}

		held, err = c.escrows.FindByRequest(ctx, tx, req.ID)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, escrows.ErrEscrowNotFound):
			return fmt.Errorf("find escrow: %w", err)
		}

		if req.Status != requests.StatusOpen {
			return fmt.Errorf("request %d is %s: %w", req.ID, req.Status, requests.ErrStatusChanged)
		}

		moved, err = c.balance.DeductToEscrowTx(ctx, tx, balance.Deduction{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			ProviderID:  conv.ProviderID,
			Amount:      req.Price,
		})
		if err != nil {
			return fmt.Errorf("deduct to escrow: %w", err)
		}

		err = c.requests.Transition(ctx, tx, req.ID, requests.StatusOpen, requests.StatusInProgress)
		if err != nil {
			return fmt.Errorf("start request: %w", err)
		}

		held = moved.Escrow
		created = true

		return nil
	}, c.txOpts...)
	if err != nil {
		if domain.IsRetryable(err) {
			log.Warn("escrow transition timed out waiting for a lock", "error", err)
		} else {
			log.Info("escrow transition aborted", "error", err)
		}

		return escrows.Escrow{}, err
	}

	if !created {
		log.Debug("escrow already exists", "escrow_id", held.ID)
		return held, nil
	}

	moved.Observe()

	log.Info("escrow created",
		"escrow_id", held.ID,
		"requester_id", held.RequesterID,
		"amount", held.Amount,
	)

	return held, nil
}

// DealState reports the conversation's derived state without changing it.
func (c *Coordinator) DealState(ctx context.Context, conversationID int64) (DealState, error) {
	var ds DealState

	opts := append([]pgutils.TxOption{pgutils.WithIsolation(sql.LevelRepeatableRead)}, c.txOpts...)

	err := pgutils.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		conv, err := c.conversations.Get(ctx, tx, conversationID)
		if err != nil {
			return err
		}

		tally, err := c.conversations.CountConfirmations(ctx, tx, conversationID)
		if err != nil {
			return err
		}

		var held *escrows.Escrow

		e, err := c.escrows.FindByRequest(ctx, tx, conv.ServiceRequestID)
		switch {
		case err == nil:
			held = &e
		case !errors.Is(err, escrows.ErrEscrowNotFound):
			return fmt.Errorf("find escrow: %w", err)
		}

		ds = deriveState(conv, tally, held)

		return nil
	}, opts...)
	if err != nil {
		return DealState{}, fmt.Errorf("deal state: %w", err)
	}

	return ds, nil
}
