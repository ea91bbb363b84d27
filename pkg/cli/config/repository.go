package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/repository/memory"
	"github.com/moneta-lab/moneta/pkg/repository/sqlite"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend string
	dbPath  string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("MONETA_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "SQLite database file path",
			Value:       "moneta.db",
			Sources:     cli.EnvVars("MONETA_DB_PATH"),
			Destination: &r.dbPath,
		},
	}
}

// Configure initializes and returns a repository based on the configured
// backend. The caller is responsible for calling Close() on it.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "sqlite":
		repo, err := sqlite.New(r.dbPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", r.dbPath)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend",
			goerr.T(types.ErrTagConfiguration),
			goerr.V("backend", r.backend),
		)
	}
}
