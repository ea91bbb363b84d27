package interfaces

import (
	"context"

	"github.com/moneta-lab/moneta/pkg/domain/model"
)

// UserRepository defines the interface for User data persistence
type UserRepository interface {
	// Create creates a new user. Username must be unique.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id model.UserID) (*model.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
