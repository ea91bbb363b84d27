package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/moneta-lab/moneta/pkg/cli/config"
	httpctrl "github.com/moneta-lab/moneta/pkg/controller/http"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var llmCfg config.LLM
	var repoCfg config.Repository
	var indexCfg config.Index
	var agentCfg config.Agent
	var toolsCfg config.Tools
	var sentryCfg config.Sentry
	var profileCfg config.Profile

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MONETA_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, indexCfg.Flags()...)
	flags = append(flags, agentCfg.Flags()...)
	flags = append(flags, toolsCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, profileCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := profileCfg.Load(); err != nil {
				return err
			}
			toolsCfg.SetCommand(profileCfg.ToolServer.Command)

			sentryClose, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer sentryClose()

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			idx, err := indexCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to configure index")
			}

			connector, err := toolsCfg.Configure(version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure tool server")
			}

			uc, err := agentCfg.Configure(llmClient, idx, indexCfg.Dir(), repo, connector, profileCfg.Instructions)
			if err != nil {
				return goerr.Wrap(err, "failed to configure agent")
			}
			if err := uc.RestoreIndex(ctx); err != nil {
				return goerr.Wrap(err, "failed to restore index snapshot")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egCtx := errgroup.WithContext(sigCtx)
			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return goerr.Wrap(err, "HTTP server failed")
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logging.Default().Info("Shutting down HTTP server")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return eg.Wait()
		},
	}
}
