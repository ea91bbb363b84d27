package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/moneta-lab/moneta/pkg/cli/config"
	"github.com/moneta-lab/moneta/pkg/service/chunk"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestProfileLoad(t *testing.T) {
	t.Run("no profile keeps defaults", func(t *testing.T) {
		p := config.NewProfileForTest("")
		gt.NoError(t, p.Load()).Required()
		gt.Value(t, p.Instructions).Equal("")
		gt.Value(t, p.Chunking.Size).Equal(chunk.DefaultSize)
		gt.Value(t, p.Chunking.Overlap).Equal(chunk.DefaultOverlap)
		gt.Value(t, p.Chunking.Separator).Equal(chunk.DefaultSeparator)
	})

	t.Run("full profile", func(t *testing.T) {
		path := writeProfile(t, `
instructions = "Answer in formal English. Cite data sources."

[chunking]
size = 500
overlap = 50
separator = "\n\n"

[tool_server]
command = "moneta tools"
`)
		p := config.NewProfileForTest(path)
		gt.NoError(t, p.Load()).Required()
		gt.Value(t, p.Instructions).Equal("Answer in formal English. Cite data sources.")
		gt.Value(t, p.Chunking.Size).Equal(500)
		gt.Value(t, p.Chunking.Overlap).Equal(50)
		gt.Value(t, p.Chunking.Separator).Equal("\n\n")
		gt.Value(t, p.ToolServer.Command).Equal("moneta tools")
	})

	t.Run("partial profile keeps remaining defaults", func(t *testing.T) {
		path := writeProfile(t, `
[chunking]
size = 800
`)
		p := config.NewProfileForTest(path)
		gt.NoError(t, p.Load()).Required()
		gt.Value(t, p.Chunking.Size).Equal(800)
		gt.Value(t, p.Chunking.Overlap).Equal(chunk.DefaultOverlap)
		gt.Value(t, p.Chunking.Separator).Equal(chunk.DefaultSeparator)
	})

	t.Run("missing file", func(t *testing.T) {
		p := config.NewProfileForTest(filepath.Join(t.TempDir(), "missing.toml"))
		gt.Error(t, p.Load())
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := writeProfile(t, `instructions = [broken`)
		p := config.NewProfileForTest(path)
		gt.Error(t, p.Load())
	})

	t.Run("invalid chunking is rejected", func(t *testing.T) {
		path := writeProfile(t, `
[chunking]
size = 100
overlap = 100
`)
		p := config.NewProfileForTest(path)
		gt.Error(t, p.Load())
	})
}
