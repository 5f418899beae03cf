package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/conversations"
)

const conversationColumns = `id, service_request_id, provider_id, status`

func (r *conversationsRepo) Get(ctx context.Context, q pgutils.Querier, id int64) (conversations.Conversation, error) {
	return getConversation(ctx, q, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE id = $1
	`, id)
}

func (r *conversationsRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (conversations.Conversation, error) {
	return getConversation(ctx, tx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE id = $1
		FOR NO KEY UPDATE
	`, id)
}

func getConversation(ctx context.Context, q pgutils.Querier, query string, id int64) (conversations.Conversation, error) {
	var c conversations.Conversation

	err := q.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.ServiceRequestID, &c.ProviderID, &c.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conversations.Conversation{}, conversations.ErrConversationNotFound
		}

		return conversations.Conversation{}, fmt.Errorf("get conversation: %w", pgutils.Classify(err))
	}

	return c, nil
}
