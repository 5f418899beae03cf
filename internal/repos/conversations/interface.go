// Package conversations is the Conversation/Participant collaborator: it
// supplies the active participants of a conversation and persists each
// participant's deal-confirmation flag.
package conversations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
)

var (
	ErrConversationNotFound = fmt.Errorf("%w: conversation", domain.ErrNotFound)
	ErrParticipantNotFound  = fmt.Errorf("%w: participant", domain.ErrNotFound)
	ErrConversationInactive = fmt.Errorf("%w: conversation is not active", domain.ErrInvalidState)
	ErrParticipantInactive  = fmt.Errorf("%w: participant is not active", domain.ErrInvalidState)
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

type Conversation struct {
	ID               int64
	ServiceRequestID int64
	ProviderID       int64
	Status           Status
}

type Participant struct {
	ConversationID int64
	UserID         int64
	Active         bool
	DealConfirmed  bool
	ConfirmedAt    *time.Time
}

// Tally counts the active participants of a conversation.
type Tally struct {
	Confirmed int
	Total     int
}

func (t Tally) Complete() bool {
	return t.Total > 0 && t.Confirmed == t.Total
}

type Conversations interface {
	Get(ctx context.Context, q pgutils.Querier, id int64) (Conversation, error)
	// LockForUpdate locks the conversation row until tx ends.
	LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (Conversation, error)
	GetParticipant(ctx context.Context, q pgutils.Querier, conversationID, userID int64) (Participant, error)
	// ConfirmParticipant sets the deal flag once; confirming an already
	// confirmed participant leaves the row untouched.
	ConfirmParticipant(ctx context.Context, tx *sql.Tx, conversationID, userID int64, at time.Time) error
	CountConfirmations(ctx context.Context, q pgutils.Querier, conversationID int64) (Tally, error)
}
