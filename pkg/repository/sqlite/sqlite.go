// Package sqlite persists users and chat history in a local SQLite
// database via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	password   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, created_at);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	UNIQUE(conversation_id, seq)
);

CREATE TABLE IF NOT EXISTS attachments (
	message_id TEXT NOT NULL REFERENCES messages(id),
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	data       BLOB NOT NULL,
	PRIMARY KEY(message_id, position)
);
`

// Repository is a SQLite-backed implementation of interfaces.Repository
type Repository struct {
	db            *sql.DB
	users         *userRepository
	conversations *conversationRepository
}

var _ interfaces.Repository = (*Repository)(nil)

// New opens (or creates) the database at path and ensures the schema
// exists. Pass ":memory:" for an ephemeral database.
func New(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database",
			goerr.T(types.ErrTagPersistence), goerr.V("path", path))
	}

	// modernc.org/sqlite does not support concurrent writers on one
	// connection pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to initialize database schema",
			goerr.T(types.ErrTagPersistence), goerr.V("path", path))
	}

	return &Repository{
		db:            db,
		users:         &userRepository{db: db},
		conversations: &conversationRepository{db: db},
	}, nil
}

func (r *Repository) User() interfaces.UserRepository {
	return r.users
}

func (r *Repository) Conversation() interfaces.ConversationRepository {
	return r.conversations
}

func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database",
			goerr.T(types.ErrTagPersistence))
	}
	return nil
}
