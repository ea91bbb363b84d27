package usecase

import (
	"context"
	"errors"
	"io/fs"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

// AddDocuments chunks and indexes documents, then snapshots the index when
// a snapshot directory is configured.
func (uc *UseCase) AddDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := uc.index.Add(ctx, docs); err != nil {
		return err
	}

	if uc.indexDir != "" {
		if err := uc.index.Save(uc.indexDir); err != nil {
			return err
		}
	}

	logging.From(ctx).Info("indexed documents",
		"documents", len(docs),
		"index_size", uc.index.Size(),
	)
	return nil
}

// RestoreIndex loads a previously saved index snapshot if one exists. A
// missing snapshot is not an error; the index simply starts empty.
func (uc *UseCase) RestoreIndex(ctx context.Context) error {
	if uc.indexDir == "" {
		return nil
	}
	if err := uc.index.Load(uc.indexDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.From(ctx).Debug("no index snapshot found", "dir", uc.indexDir)
			return nil
		}
		return err
	}

	logging.From(ctx).Info("restored index snapshot",
		"dir", uc.indexDir,
		"index_size", uc.index.Size(),
	)
	return nil
}
