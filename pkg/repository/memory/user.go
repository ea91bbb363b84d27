package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

type userRepository struct {
	mu         sync.RWMutex
	users      map[model.UserID]*model.User
	byUsername map[string]model.UserID
}

func newUserRepository() *userRepository {
	return &userRepository{
		users:      make(map[model.UserID]*model.User),
		byUsername: make(map[string]model.UserID),
	}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return nil, goerr.Wrap(types.ErrConflict, "username is taken",
			goerr.V("username", user.Username))
	}

	created := *user
	if created.ID == "" {
		created.ID = model.NewUserID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	r.users[created.ID] = &created
	r.byUsername[created.Username] = created.ID

	result := created
	return &result, nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "user not found", goerr.V("id", id))
	}

	result := *user
	return &result, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "user not found",
			goerr.V("username", username))
	}

	result := *r.users[id]
	return &result, nil
}
