package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	mcpctrl "github.com/moneta-lab/moneta/pkg/controller/mcp"
	"github.com/moneta-lab/moneta/pkg/service/market"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

func cmdTools(version string) *cli.Command {
	var chartDir string

	return &cli.Command{
		Name:  "tools",
		Usage: "Run the finance tool server (MCP over stdio)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "chart-dir",
				Usage:       "Directory rendered price charts are written into",
				Value:       ".",
				Sources:     cli.EnvVars("MONETA_CHART_DIR"),
				Destination: &chartDir,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			server, err := mcpctrl.New(market.New(), version, mcpctrl.WithChartDir(chartDir))
			if err != nil {
				return err
			}

			logging.Default().Info("Starting finance tool server", "chart_dir", chartDir)
			return server.Run(ctx)
		},
	}
}
