package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/cli/config"
	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/usecase"
)

func cmdChat(version string) *cli.Command {
	var check bool
	var llmCfg config.LLM
	var indexCfg config.Index
	var agentCfg config.Agent
	var toolsCfg config.Tools
	var profileCfg config.Profile

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "check",
			Usage:       "Verify model connectivity with a single round trip and exit",
			Destination: &check,
		},
	}
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, indexCfg.Flags()...)
	flags = append(flags, agentCfg.Flags()...)
	flags = append(flags, toolsCfg.Flags()...)
	flags = append(flags, profileCfg.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive chat session in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := profileCfg.Load(); err != nil {
				return err
			}
			toolsCfg.SetCommand(profileCfg.ToolServer.Command)

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			idx, err := indexCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to configure index")
			}

			connector, err := toolsCfg.Configure(version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure tool server")
			}

			uc, err := agentCfg.Configure(llmClient, idx, indexCfg.Dir(), nil, connector, profileCfg.Instructions)
			if err != nil {
				return goerr.Wrap(err, "failed to configure agent")
			}

			if check {
				reply, err := uc.Ping(ctx)
				if err != nil {
					return goerr.Wrap(err, "connection check failed")
				}
				color.Green("OK: %s", reply)
				return nil
			}

			if err := uc.RestoreIndex(ctx); err != nil {
				return goerr.Wrap(err, "failed to restore index snapshot")
			}

			return runREPL(ctx, uc)
		},
	}
}

func runREPL(ctx context.Context, uc *usecase.UseCase) error {
	sessionID := uuid.New().String()
	promptColor := color.New(color.FgCyan, color.Bold)
	answerColor := color.New(color.FgGreen)
	noteColor := color.New(color.FgYellow)

	noteColor.Println("Type a question, '/attach <path>' to index a file, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/attach "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
			data, err := os.ReadFile(path)
			if err != nil {
				color.Red("cannot read %s: %v", path, err)
				continue
			}
			err = uc.AddDocuments(ctx, []model.Document{{
				Content:  string(data),
				Metadata: map[string]string{"filename": path},
			}})
			if err != nil {
				color.Red("failed to index %s: %v", path, err)
				continue
			}
			noteColor.Printf("indexed %s\n", path)
			continue
		}

		result, err := uc.Chat(ctx, usecase.ChatRequest{
			SessionID: sessionID,
			Question:  line,
		})
		if err != nil {
			color.Red("error: %v", err)
			continue
		}

		if len(result.ToolCalls) > 0 {
			noteColor.Printf("tools: %s\n", strings.Join(result.ToolCalls, ", "))
		}
		answerColor.Println(result.Text)
		fmt.Println()
	}

	return scanner.Err()
}
