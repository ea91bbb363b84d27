package interfaces

import (
	"context"

	"github.com/moneta-lab/moneta/pkg/domain/model"
)

// ConversationRepository defines the interface for chat history persistence.
// Every message belongs to exactly one conversation and every attachment to
// exactly one message.
type ConversationRepository interface {
	// Create creates a new conversation context for a user
	Create(ctx context.Context, userID model.UserID, title string) (*model.Conversation, error)

	// Get retrieves a conversation by ID
	Get(ctx context.Context, id model.ConversationID) (*model.Conversation, error)

	// ListByUser retrieves conversations for a user, most recent first
	ListByUser(ctx context.Context, userID model.UserID) ([]*model.Conversation, error)

	// AppendMessage appends a message (with attachments) to a conversation.
	// Messages keep their append order via an explicit sequence index.
	AppendMessage(ctx context.Context, id model.ConversationID, msg *model.Message) (*model.Message, error)

	// AppendTurn appends a user message and the assistant reply as one
	// atomic unit. Either both messages land or neither does.
	AppendTurn(ctx context.Context, id model.ConversationID, user, assistant *model.Message) error

	// Messages retrieves all messages of a conversation, oldest first, each
	// reconstituted with its attachments.
	Messages(ctx context.Context, id model.ConversationID) ([]*model.Message, error)
}
