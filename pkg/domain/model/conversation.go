package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationID is the unique identifier of a conversation
type ConversationID string

// NewConversationID generates a new random conversation ID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// Conversation is a named chat thread owned by a user
type Conversation struct {
	ID        ConversationID `json:"id"`
	UserID    UserID         `json:"user_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
}
