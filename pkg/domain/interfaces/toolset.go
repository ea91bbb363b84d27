package interfaces

import (
	"context"

	"github.com/m-mizutani/gollem"
)

// ToolSet is a scoped connection to an external tool process. A ToolSet is
// acquired for a single orchestrator turn and must be closed on every exit
// path; it is never shared across concurrent turns.
type ToolSet interface {
	// Tools returns the discovered tools as model-invocable functions
	Tools(ctx context.Context) ([]gollem.Tool, error)

	// Close tears down the connection and the underlying process channel
	Close() error
}

// ToolConnector opens ToolSet connections. Implemented by the MCP-backed
// registry; a nil connector disables tool calling for the agent.
type ToolConnector interface {
	Connect(ctx context.Context) (ToolSet, error)
}
