package config

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/service/tools"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

// Tools holds CLI flags for the external tool server
type Tools struct {
	command string
}

// Flags returns CLI flags for tool server configuration
func (t *Tools) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tool-server",
			Usage:       "Tool server command line, e.g. 'moneta tools' (tool calling disabled when empty)",
			Sources:     cli.EnvVars("MONETA_TOOL_SERVER"),
			Destination: &t.command,
		},
	}
}

// SetCommand overrides the command line, used when the profile provides one
func (t *Tools) SetCommand(command string) {
	if t.command == "" {
		t.command = command
	}
}

// Configure builds the tool connector. Returns nil when no tool server is
// configured; the agent then runs without tool calling.
func (t *Tools) Configure(version string) (interfaces.ToolConnector, error) {
	if t.command == "" {
		logging.Default().Info("No tool server configured, tool calling disabled")
		return nil, nil
	}

	fields := strings.Fields(t.command)
	registry, err := tools.New(fields[0], fields[1:], tools.WithVersion(version))
	if err != nil {
		return nil, err
	}

	logging.Default().Info("Tool server configured", "command", t.command)
	return registry, nil
}
