package model

import (
	"time"

	"github.com/google/uuid"
)

// UserID is the unique identifier of a user
type UserID string

// NewUserID generates a new random user ID
func NewUserID() UserID {
	return UserID(uuid.New().String())
}

// User is an account that owns conversations. Password holds a derived
// credential, never plaintext; it is redacted from logs.
type User struct {
	ID        UserID    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
