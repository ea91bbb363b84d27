// Package memory provides an in-memory implementation of the repository
// interfaces. It is intended for tests and local development; nothing is
// persisted across restarts.
package memory

import (
	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
)

// Repository is an in-memory implementation of interfaces.Repository.
type Repository struct {
	users         *userRepository
	conversations *conversationRepository
}

var _ interfaces.Repository = (*Repository)(nil)

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{
		users:         newUserRepository(),
		conversations: newConversationRepository(),
	}
}

func (r *Repository) User() interfaces.UserRepository {
	return r.users
}

func (r *Repository) Conversation() interfaces.ConversationRepository {
	return r.conversations
}

func (r *Repository) Close() error {
	return nil
}
