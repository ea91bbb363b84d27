package config_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/moneta-lab/moneta/pkg/cli/config"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

func TestLLMConfigure(t *testing.T) {
	t.Run("unsupported provider fails before any network access", func(t *testing.T) {
		cfg := config.NewLLMForTest("palm", "some-key", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err).Required()
		gt.Bool(t, goerr.HasTag(err, types.ErrTagConfiguration)).True()
		gt.Bool(t, strings.Contains(err.Error(), "unsupported LLM provider")).True()
	})

	t.Run("openai requires api key", func(t *testing.T) {
		cfg := config.NewLLMForTest("openai", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err).Required()
		gt.Bool(t, goerr.HasTag(err, types.ErrTagConfiguration)).True()
	})

	t.Run("claude requires api key", func(t *testing.T) {
		cfg := config.NewLLMForTest("claude", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err).Required()
		gt.Bool(t, goerr.HasTag(err, types.ErrTagConfiguration)).True()
	})

	t.Run("gemini requires project", func(t *testing.T) {
		cfg := config.NewLLMForTest("gemini", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err).Required()
		gt.Bool(t, goerr.HasTag(err, types.ErrTagConfiguration)).True()
	})

	t.Run("log attributes never carry the api key", func(t *testing.T) {
		cfg := config.NewLLMForTest("openai", "sk-very-secret", "gpt-4o-mini")
		for _, attr := range cfg.LogAttrs() {
			gt.Bool(t, strings.Contains(attr.Value.String(), "sk-very-secret")).False()
		}
	})

	t.Run("returns flags", func(t *testing.T) {
		cfg := config.NewLLMForTest("", "", "")
		gt.Value(t, len(cfg.Flags())).Equal(5)
	})
}

func TestRepositoryConfigure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("memory", "")
		repo, err := cfg.Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite backend", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("sqlite", t.TempDir()+"/test.db")
		repo, err := cfg.Configure(t.Context())
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("invalid backend", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("postgres", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err).Required()
		gt.Bool(t, goerr.HasTag(err, types.ErrTagConfiguration)).True()
	})
}
