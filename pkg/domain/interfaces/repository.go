package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	User() UserRepository
	Conversation() ConversationRepository

	// Close releases the underlying storage resources
	Close() error
}
