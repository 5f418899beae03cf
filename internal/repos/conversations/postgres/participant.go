package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/conversations"
)

func (r *conversationsRepo) GetParticipant(ctx context.Context, q pgutils.Querier, conversationID, userID int64) (conversations.Participant, error) {
	var (
		p           conversations.Participant
		confirmedAt sql.NullTime
	)

	err := q.QueryRowContext(ctx, `
		SELECT conversation_id, user_id, active, deal_confirmed, confirmed_at
		FROM conversation_participants
		WHERE conversation_id = $1
		  AND user_id = $2
	`, conversationID, userID).Scan(&p.ConversationID, &p.UserID, &p.Active, &p.DealConfirmed, &confirmedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conversations.Participant{}, conversations.ErrParticipantNotFound
		}

		return conversations.Participant{}, fmt.Errorf("get participant: %w", err)
	}

	if confirmedAt.Valid {
		p.ConfirmedAt = &confirmedAt.Time
	}

	return p, nil
}

func (r *conversationsRepo) ConfirmParticipant(ctx context.Context, tx *sql.Tx, conversationID, userID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE conversation_participants
		SET deal_confirmed = TRUE, confirmed_at = $3
		WHERE conversation_id = $1
		  AND user_id = $2
		  AND NOT deal_confirmed
	`, conversationID, userID, at)
	if err != nil {
		return fmt.Errorf("confirm participant: %w", err)
	}

	return nil
}

func (r *conversationsRepo) CountConfirmations(ctx context.Context, q pgutils.Querier, conversationID int64) (conversations.Tally, error) {
	var t conversations.Tally

	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE deal_confirmed), COUNT(*)
		FROM conversation_participants
		WHERE conversation_id = $1
		  AND active
	`, conversationID).Scan(&t.Confirmed, &t.Total)
	if err != nil {
		return conversations.Tally{}, fmt.Errorf("count confirmations: %w", err)
	}

	return t, nil
}
