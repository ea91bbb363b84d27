package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/service/index"
	"github.com/moneta-lab/moneta/pkg/service/prompt"
	"github.com/moneta-lab/moneta/pkg/service/session"
	"github.com/moneta-lab/moneta/pkg/usecase"
)

// Agent holds CLI flags for agent turn behavior
type Agent struct {
	instructionsFile string
	tokenBudget      int
	maxIterations    int
	searchLimit      int
	sessionCapacity  int
}

// Flags returns CLI flags for agent configuration
func (a *Agent) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "instructions-file",
			Usage:       "File with extra system prompt instructions",
			Sources:     cli.EnvVars("MONETA_INSTRUCTIONS_FILE"),
			Destination: &a.instructionsFile,
		},
		&cli.IntFlag{
			Name:        "token-budget",
			Usage:       "Token budget for the assembled prompt",
			Value:       prompt.DefaultTokenBudget,
			Sources:     cli.EnvVars("MONETA_TOKEN_BUDGET"),
			Destination: &a.tokenBudget,
		},
		&cli.IntFlag{
			Name:        "max-iterations",
			Usage:       "Upper bound on model/tool iterations per turn",
			Value:       usecase.DefaultMaxIterations,
			Sources:     cli.EnvVars("MONETA_MAX_ITERATIONS"),
			Destination: &a.maxIterations,
		},
		&cli.IntFlag{
			Name:        "search-limit",
			Usage:       "Number of retrieved chunks injected per turn",
			Value:       usecase.DefaultSearchLimit,
			Sources:     cli.EnvVars("MONETA_SEARCH_LIMIT"),
			Destination: &a.searchLimit,
		},
		&cli.IntFlag{
			Name:        "session-capacity",
			Usage:       "Number of chat sessions kept in memory",
			Value:       session.DefaultCapacity,
			Sources:     cli.EnvVars("MONETA_SESSION_CAPACITY"),
			Destination: &a.sessionCapacity,
		},
	}
}

// Configure builds the use case from the flags plus the already configured
// collaborators. Instructions from the profile are used when no
// instructions file is given.
func (a *Agent) Configure(llm gollem.LLMClient, idx *index.Index, indexDir string, repo interfaces.Repository, connector interfaces.ToolConnector, profileInstructions string) (*usecase.UseCase, error) {
	instructions := profileInstructions
	if a.instructionsFile != "" {
		data, err := os.ReadFile(a.instructionsFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read instructions file",
				goerr.V("path", a.instructionsFile))
		}
		instructions = string(data)
	}

	assembler, err := prompt.New(prompt.WithTokenBudget(a.tokenBudget))
	if err != nil {
		return nil, err
	}

	opts := []usecase.Option{
		usecase.WithInstructions(instructions),
		usecase.WithIndexDir(indexDir),
		usecase.WithSearchLimit(a.searchLimit),
		usecase.WithMaxIterations(a.maxIterations),
	}
	if repo != nil {
		opts = append(opts, usecase.WithRepository(repo))
	}
	if connector != nil {
		opts = append(opts, usecase.WithToolConnector(connector))
	}

	return usecase.New(llm, idx, session.NewStore(a.sessionCapacity), assembler, opts...)
}
