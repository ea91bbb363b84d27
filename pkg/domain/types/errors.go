package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures across layers so callers can branch on the
// kind of failure without matching sentinel errors.
var (
	// ErrTagConfiguration marks invalid or unsupported configuration,
	// detected before any remote call is made.
	ErrTagConfiguration = goerr.NewTag("configuration")

	// ErrTagEmbedding marks embedding model failures
	ErrTagEmbedding = goerr.NewTag("embedding")

	// ErrTagPersistence marks storage and snapshot failures
	ErrTagPersistence = goerr.NewTag("persistence")

	// ErrTagTool marks tool discovery and invocation failures. Tool
	// invocation errors are recoverable: they are reported back to the
	// model rather than aborting the turn.
	ErrTagTool = goerr.NewTag("tool")

	// ErrTagModelUnavailable marks failures of the chat model itself,
	// which do abort the turn.
	ErrTagModelUnavailable = goerr.NewTag("model_unavailable")
)

// Repository sentinel errors, shared by all implementations
var (
	ErrNotFound = goerr.New("not found")
	ErrConflict = goerr.New("already exists")
)
