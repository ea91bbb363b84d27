package usecase

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/service/index"
	"github.com/moneta-lab/moneta/pkg/service/prompt"
	"github.com/moneta-lab/moneta/pkg/service/session"
)

// DefaultMaxIterations bounds the model/tool loop of one turn
const DefaultMaxIterations = 10

// DefaultSearchLimit is the number of retrieved chunks injected into the
// prompt per turn
const DefaultSearchLimit = 2

// UseCase drives agent turns: retrieval, prompt assembly, the model/tool
// loop and turn memorization.
type UseCase struct {
	llm       gollem.LLMClient
	index     *index.Index
	repo      interfaces.Repository
	tools     interfaces.ToolConnector
	sessions  *session.Store
	assembler *prompt.Assembler

	instructions  string
	indexDir      string
	searchLimit   int
	maxIterations int
}

// Option configures a UseCase
type Option func(*UseCase)

// WithRepository enables durable chat history persistence
func WithRepository(repo interfaces.Repository) Option {
	return func(uc *UseCase) {
		uc.repo = repo
	}
}

// WithToolConnector enables tool calling via the given connector
func WithToolConnector(tc interfaces.ToolConnector) Option {
	return func(uc *UseCase) {
		uc.tools = tc
	}
}

// WithInstructions sets extra system prompt instructions
func WithInstructions(instructions string) Option {
	return func(uc *UseCase) {
		uc.instructions = instructions
	}
}

// WithIndexDir enables index snapshots: documents added through the use
// case are persisted to dir.
func WithIndexDir(dir string) Option {
	return func(uc *UseCase) {
		uc.indexDir = dir
	}
}

// WithSearchLimit sets how many retrieved chunks are injected per turn
func WithSearchLimit(limit int) Option {
	return func(uc *UseCase) {
		uc.searchLimit = limit
	}
}

// WithMaxIterations bounds the model/tool loop of one turn
func WithMaxIterations(n int) Option {
	return func(uc *UseCase) {
		uc.maxIterations = n
	}
}

// New creates a UseCase. The LLM client, index, session store and prompt
// assembler are required; repository and tool connector are optional.
func New(llm gollem.LLMClient, idx *index.Index, sessions *session.Store, assembler *prompt.Assembler, opts ...Option) (*UseCase, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required")
	}
	if idx == nil {
		return nil, goerr.New("embedding index is required")
	}
	if sessions == nil {
		return nil, goerr.New("session store is required")
	}
	if assembler == nil {
		return nil, goerr.New("prompt assembler is required")
	}

	uc := &UseCase{
		llm:           llm,
		index:         idx,
		sessions:      sessions,
		assembler:     assembler,
		searchLimit:   DefaultSearchLimit,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.maxIterations <= 0 {
		return nil, goerr.New("max iterations must be positive",
			goerr.V("max_iterations", uc.maxIterations))
	}
	return uc, nil
}
