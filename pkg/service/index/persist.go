package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

const snapshotFile = "index.json"

type snapshot struct {
	Dimension int             `json:"dimension"`
	NextID    int64           `json:"next_id"`
	Entries   []snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	ID       int64             `json:"id"`
	Vector   []float32         `json:"vector"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Save serializes the full index (vectors, chunk content and metadata) into
// dir. A later Load with the same embedding model reproduces identical
// search results.
func (x *Index) Save(dir string) error {
	x.mu.RLock()
	snap := snapshot{
		Dimension: x.dimension,
		NextID:    x.nextID,
		Entries:   make([]snapshotEntry, len(x.entries)),
	}
	for i, e := range x.entries {
		snap.Entries[i] = snapshotEntry{
			ID:       e.id,
			Vector:   e.vector,
			Content:  e.chunk.Content,
			Metadata: e.chunk.Metadata,
		}
	}
	x.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create index directory",
			goerr.T(types.ErrTagPersistence), goerr.V("dir", dir))
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return goerr.Wrap(err, "failed to encode index snapshot",
			goerr.T(types.ErrTagPersistence))
	}

	path := filepath.Join(dir, snapshotFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write index snapshot",
			goerr.T(types.ErrTagPersistence), goerr.V("path", path))
	}
	return nil
}

// Load restores a previously saved index state from dir, replacing the
// current contents. The snapshot dimension must match the configured one.
func (x *Index) Load(dir string) error {
	path := filepath.Join(dir, snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return goerr.Wrap(err, "failed to read index snapshot",
			goerr.T(types.ErrTagPersistence), goerr.V("path", path))
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return goerr.Wrap(err, "index snapshot is corrupt",
			goerr.T(types.ErrTagPersistence), goerr.V("path", path))
	}
	if snap.Dimension != x.dimension {
		return goerr.New("index snapshot dimension mismatch",
			goerr.T(types.ErrTagPersistence),
			goerr.V("snapshot", snap.Dimension),
			goerr.V("index", x.dimension),
		)
	}

	entries := make([]entry, len(snap.Entries))
	for i, se := range snap.Entries {
		if len(se.Vector) != snap.Dimension {
			return goerr.New("index snapshot vector dimension mismatch",
				goerr.T(types.ErrTagPersistence),
				goerr.V("id", se.ID),
				goerr.V("got", len(se.Vector)),
			)
		}
		entries[i] = entry{
			id:     se.ID,
			vector: se.Vector,
			chunk: model.Chunk{
				Content:  se.Content,
				Metadata: se.Metadata,
			},
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = entries
	x.nextID = snap.NextID
	if x.nextID < 1 {
		x.nextID = 1
	}
	return nil
}
