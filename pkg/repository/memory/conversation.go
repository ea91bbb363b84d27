package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

type conversationRepository struct {
	mu            sync.RWMutex
	conversations map[model.ConversationID]*model.Conversation
	messages      map[model.ConversationID][]*model.Message
}

func newConversationRepository() *conversationRepository {
	return &conversationRepository{
		conversations: make(map[model.ConversationID]*model.Conversation),
		messages:      make(map[model.ConversationID][]*model.Message),
	}
}

func (r *conversationRepository) Create(ctx context.Context, userID model.UserID, title string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv := &model.Conversation{
		ID:        model.NewConversationID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now(),
	}
	r.conversations[conv.ID] = conv

	result := *conv
	return &result, nil
}

func (r *conversationRepository) Get(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
	}

	result := *conv
	return &result, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID model.UserID) ([]*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Conversation
	for _, conv := range r.conversations {
		if conv.UserID != userID {
			continue
		}
		c := *conv
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *conversationRepository) AppendMessage(ctx context.Context, id model.ConversationID, msg *model.Message) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
	}

	stored := msg.Clone()
	if stored.ID == "" {
		stored.ID = model.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.messages[id] = append(r.messages[id], stored)

	return stored.Clone(), nil
}

func (r *conversationRepository) AppendTurn(ctx context.Context, id model.ConversationID, user, assistant *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
	}

	pair := make([]*model.Message, 0, 2)
	for _, msg := range []*model.Message{user, assistant} {
		stored := msg.Clone()
		if stored.ID == "" {
			stored.ID = model.NewMessageID()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		pair = append(pair, stored)
	}
	r.messages[id] = append(r.messages[id], pair...)

	return nil
}

func (r *conversationRepository) Messages(ctx context.Context, id model.ConversationID) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[id]; !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
	}

	msgs := r.messages[id]
	result := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		result[i] = m.Clone()
	}
	return result, nil
}
