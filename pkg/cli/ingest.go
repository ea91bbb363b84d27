package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/moneta-lab/moneta/pkg/cli/config"
	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/service/index"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

func cmdIngest() *cli.Command {
	var llmCfg config.LLM
	var indexCfg config.Index
	var profileCfg config.Profile

	var flags []cli.Flag
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, indexCfg.Flags()...)
	flags = append(flags, profileCfg.Flags()...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Chunk, embed and index text files into the knowledge index",
		ArgsUsage: "<file> [<file>...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return goerr.New("at least one file is required")
			}
			if indexCfg.Dir() == "" {
				return goerr.New("index-dir is required for ingest")
			}
			if err := profileCfg.Load(); err != nil {
				return err
			}

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			idx, err := indexCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to configure index")
			}

			// Extend an existing snapshot instead of starting over
			if err := idx.Load(indexCfg.Dir()); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				logging.Default().Debug("no index snapshot found, starting fresh", "dir", indexCfg.Dir())
			}

			var docs []model.Document
			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					return goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
				}
				docs = append(docs, model.Document{
					Content:  string(data),
					Metadata: map[string]string{"filename": path},
				})
			}

			chunking := profileCfg.Chunking
			if err := idx.Add(ctx, docs,
				index.WithChunkSize(chunking.Size),
				index.WithChunkOverlap(chunking.Overlap),
				index.WithSeparator(chunking.Separator),
			); err != nil {
				return err
			}

			if err := idx.Save(indexCfg.Dir()); err != nil {
				return err
			}

			logging.Default().Info("ingest completed",
				"files", len(docs),
				"index_size", idx.Size(),
				"dir", indexCfg.Dir(),
			)
			return nil
		},
	}
}
