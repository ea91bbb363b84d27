package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

type userRepository struct {
	db *sql.DB
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	created := *user
	if created.ID == "" {
		created.ID = model.NewUserID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, name, password, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(created.ID), created.Username, created.Name, created.Password, created.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, goerr.Wrap(types.ErrConflict, "username is taken",
				goerr.V("username", created.Username))
		}
		return nil, goerr.Wrap(err, "failed to insert user",
			goerr.T(types.ErrTagPersistence), goerr.V("username", created.Username))
	}

	return &created, nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, name, password, created_at FROM users WHERE id = ?`,
		string(id),
	)
	return scanUser(row, "id", string(id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, name, password, created_at FROM users WHERE username = ?`,
		username,
	)
	return scanUser(row, "username", username)
}

func scanUser(row *sql.Row, key, value string) (*model.User, error) {
	var user model.User
	var id string
	err := row.Scan(&id, &user.Username, &user.Name, &user.Password, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "user not found", goerr.V(key, value))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan user",
			goerr.T(types.ErrTagPersistence), goerr.V(key, value))
	}
	user.ID = model.UserID(id)
	return &user, nil
}
