package conversations

import (
	"database/sql"

	"github.com/fastprodman/coinescrow/internal/repos/conversations"
)

var _ conversations.Conversations = (*conversationsRepo)(nil)

type conversationsRepo struct{ db *sql.DB }

func New(db *sql.DB) *conversationsRepo {
	return &conversationsRepo{db: db}
}
