package config

import (
	"github.com/m-mizutani/gollem"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/service/index"
)

// Index holds CLI flags for the embedding index
type Index struct {
	dir       string
	dimension int
}

// Flags returns CLI flags for index configuration
func (x *Index) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "index-dir",
			Usage:       "Directory for index snapshots (in-memory only when empty)",
			Sources:     cli.EnvVars("MONETA_INDEX_DIR"),
			Destination: &x.dir,
		},
		&cli.IntFlag{
			Name:        "index-dimension",
			Usage:       "Embedding vector dimension",
			Value:       index.DefaultDimension,
			Sources:     cli.EnvVars("MONETA_INDEX_DIMENSION"),
			Destination: &x.dimension,
		},
	}
}

// Dir returns the configured snapshot directory
func (x *Index) Dir() string {
	return x.dir
}

// Configure creates an empty index bound to the embedding model
func (x *Index) Configure(llm gollem.LLMClient) (*index.Index, error) {
	return index.New(llm, index.WithDimension(x.dimension))
}
