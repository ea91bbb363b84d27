package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/moneta-lab/moneta/pkg/domain/types"
)

// MessageID is the unique identifier of a message
type MessageID string

// NewMessageID generates a new random message ID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// FileRef is a file attached to a message, carried by value. Data is the
// raw file content.
type FileRef struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Message is one turn entry in a conversation
type Message struct {
	ID          MessageID  `json:"id"`
	Role        types.Role `json:"role"`
	Content     string     `json:"content"`
	Attachments []FileRef  `json:"attachments,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewMessage creates a message with a fresh ID and timestamp
func NewMessage(role types.Role, content string) *Message {
	return &Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Clone returns a deep copy of the message, including attachment bytes
func (m *Message) Clone() *Message {
	clone := *m
	if m.Attachments != nil {
		clone.Attachments = make([]FileRef, len(m.Attachments))
		for i, f := range m.Attachments {
			data := make([]byte, len(f.Data))
			copy(data, f.Data)
			clone.Attachments[i] = FileRef{Name: f.Name, Data: data}
		}
	}
	return &clone
}
