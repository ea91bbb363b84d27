package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/claude"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/domain/types"
)

// LLM holds configuration for the chat/embedding model client
type LLM struct {
	provider string
	apiKey   string
	model    string

	geminiProject  string
	geminiLocation string
}

// Flags returns CLI flags for LLM configuration
func (l *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (openai, claude or gemini)",
			Value:       "openai",
			Sources:     cli.EnvVars("MONETA_LLM_PROVIDER"),
			Destination: &l.provider,
		},
		&cli.StringFlag{
			Name:        "llm-api-key",
			Usage:       "API key for the LLM provider",
			Sources:     cli.EnvVars("MONETA_LLM_API_KEY"),
			Destination: &l.apiKey,
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "Model name override (provider default when empty)",
			Sources:     cli.EnvVars("MONETA_LLM_MODEL"),
			Destination: &l.model,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID (gemini provider only)",
			Sources:     cli.EnvVars("MONETA_GEMINI_PROJECT"),
			Destination: &l.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location (gemini provider only)",
			Value:       "us-central1",
			Sources:     cli.EnvVars("MONETA_GEMINI_LOCATION"),
			Destination: &l.geminiLocation,
		},
	}
}

// LogAttrs returns log attributes for the LLM configuration. The API key
// is never included.
func (l *LLM) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("provider", l.provider),
		slog.String("model", l.model),
	}
}

// Configure creates the LLM client for the selected provider. Unsupported
// providers fail here, before any network access happens.
func (l *LLM) Configure(ctx context.Context) (gollem.LLMClient, error) {
	switch l.provider {
	case "openai":
		if l.apiKey == "" {
			return nil, goerr.New("llm-api-key is required for openai provider",
				goerr.T(types.ErrTagConfiguration))
		}
		var opts []openai.Option
		if l.model != "" {
			opts = append(opts, openai.WithModel(l.model))
		}
		client, err := openai.New(ctx, l.apiKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	case "claude":
		if l.apiKey == "" {
			return nil, goerr.New("llm-api-key is required for claude provider",
				goerr.T(types.ErrTagConfiguration))
		}
		var opts []claude.Option
		if l.model != "" {
			opts = append(opts, claude.WithModel(l.model))
		}
		client, err := claude.New(ctx, l.apiKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Claude client")
		}
		return client, nil

	case "gemini":
		if l.geminiProject == "" {
			return nil, goerr.New("gemini-project is required for gemini provider",
				goerr.T(types.ErrTagConfiguration))
		}
		client, err := gemini.New(ctx, l.geminiProject, l.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	default:
		return nil, goerr.New("unsupported LLM provider",
			goerr.T(types.ErrTagConfiguration),
			goerr.V("provider", l.provider),
		)
	}
}
