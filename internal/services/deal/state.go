package deal

import (
	"github.com/fastprodman/coinescrow/internal/repos/conversations"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

// State is derived from the participants' confirmation flags and from
// whether the guarded request already has an escrow.
type State string

const (
	StateNoneConfirmed      State = "NONE_CONFIRMED"
	StatePartiallyConfirmed State = "PARTIALLY_CONFIRMED"
	StateEscrowCreated      State = "ESCROW_CREATED"
)

type DealState struct {
	ConversationID int64
	RequestID      int64
	State          State
	Confirmed      int
	Participants   int
	// Escrow is set once State is StateEscrowCreated.
	Escrow *escrows.Escrow
}

func deriveState(conv conversations.Conversation, tally conversations.Tally, e *escrows.Escrow) DealState {
	ds := DealState{
		ConversationID: conv.ID,
		RequestID:      conv.ServiceRequestID,
		Confirmed:      tally.Confirmed,
		Participants:   tally.Total,
		Escrow:         e,
	}

	switch {
	case e != nil:
		ds.State = StateEscrowCreated
	case tally.Confirmed == 0:
		ds.State = StateNoneConfirmed
	default:
		ds.State = StatePartiallyConfirmed
	}

	return ds
}
