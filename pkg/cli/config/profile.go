package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/service/chunk"
)

// Profile is the optional TOML application profile. Values not present in
// the file keep their flag defaults.
type Profile struct {
	path string

	Instructions string       `toml:"instructions"`
	Chunking     ChunkProfile `toml:"chunking"`
	ToolServer   ToolProfile  `toml:"tool_server"`
}

// ChunkProfile configures document chunking defaults
type ChunkProfile struct {
	Size      int    `toml:"size"`
	Overlap   int    `toml:"overlap"`
	Separator string `toml:"separator"`
}

// ToolProfile names the tool server command line
type ToolProfile struct {
	Command string `toml:"command"`
}

// Flags returns CLI flags for profile loading
func (p *Profile) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Path to a TOML application profile",
			Sources:     cli.EnvVars("MONETA_PROFILE"),
			Destination: &p.path,
		},
	}
}

// Load reads and validates the profile. Without a --profile flag the
// zero-value profile is returned.
func (p *Profile) Load() error {
	p.Chunking = ChunkProfile{
		Size:      chunk.DefaultSize,
		Overlap:   chunk.DefaultOverlap,
		Separator: chunk.DefaultSeparator,
	}
	if p.path == "" {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read profile",
			goerr.T(types.ErrTagConfiguration), goerr.V("path", p.path))
	}
	if err := toml.Unmarshal(data, p); err != nil {
		return goerr.Wrap(err, "failed to parse profile",
			goerr.T(types.ErrTagConfiguration), goerr.V("path", p.path))
	}

	if _, err := chunk.New(p.Chunking.Size, p.Chunking.Overlap, p.Chunking.Separator); err != nil {
		return goerr.Wrap(err, "invalid chunking profile",
			goerr.T(types.ErrTagConfiguration), goerr.V("path", p.path))
	}
	return nil
}
