package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
)

// CreateConversation opens a new durable conversation for a user
func (uc *UseCase) CreateConversation(ctx context.Context, userID model.UserID, title string) (*model.Conversation, error) {
	if uc.repo == nil {
		return nil, goerr.New("no repository configured")
	}
	return uc.repo.Conversation().Create(ctx, userID, title)
}

// ListConversations returns a user's conversations, most recent first
func (uc *UseCase) ListConversations(ctx context.Context, userID model.UserID) ([]*model.Conversation, error) {
	if uc.repo == nil {
		return nil, goerr.New("no repository configured")
	}
	return uc.repo.Conversation().ListByUser(ctx, userID)
}

// ConversationMessages returns the full message history of a conversation,
// oldest first.
func (uc *UseCase) ConversationMessages(ctx context.Context, id model.ConversationID) ([]*model.Message, error) {
	if uc.repo == nil {
		return nil, goerr.New("no repository configured")
	}
	return uc.repo.Conversation().Messages(ctx, id)
}
