package chunk

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/moneta-lab/moneta/pkg/domain/model"
)

// Default splitting parameters
const (
	DefaultSize      = 1000
	DefaultOverlap   = 200
	DefaultSeparator = "\n"
)

// Splitter splits documents into overlapping, length-bounded chunks. The
// separator is applied first, then consecutive pieces are greedily packed so
// that joining all chunk cores (each chunk minus its leading overlap)
// reconstructs the source content exactly.
type Splitter struct {
	size      int
	overlap   int
	separator string
}

// New creates a Splitter. Zero values fall back to the defaults.
func New(size, overlap int, separator string) (*Splitter, error) {
	if size == 0 {
		size = DefaultSize
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	if size < 0 {
		return nil, goerr.New("chunk size must be positive", goerr.V("size", size))
	}
	if overlap < 0 {
		return nil, goerr.New("chunk overlap must not be negative", goerr.V("overlap", overlap))
	}
	if overlap >= size {
		return nil, goerr.New("chunk overlap must be smaller than chunk size",
			goerr.V("size", size), goerr.V("overlap", overlap))
	}
	return &Splitter{size: size, overlap: overlap, separator: separator}, nil
}

// Split chunks a document. Content is never dropped: a single piece longer
// than the chunk size is preserved whole as its own chunk.
func (s *Splitter) Split(doc model.Document) []model.Chunk {
	if doc.Content == "" {
		return nil
	}

	cores := s.packCores(doc.Content)

	chunks := make([]model.Chunk, 0, len(cores))
	for i, core := range cores {
		content := core
		if i > 0 && s.overlap > 0 {
			prev := cores[i-1]
			ov := s.overlap
			if ov > len(prev) {
				ov = len(prev)
			}
			content = prev[len(prev)-ov:] + core
		}
		chunks = append(chunks, model.Chunk{
			Content:  content,
			Metadata: model.CloneMetadata(doc.Metadata),
		})
	}
	return chunks
}

// packCores splits on the separator and greedily joins pieces. Cores after
// the first start with the separator so that their plain concatenation
// equals the source content.
func (s *Splitter) packCores(content string) []string {
	pieces := strings.Split(content, s.separator)

	// Capacity left for the core of a follow-up chunk, after the overlap
	// prefix is accounted for.
	capacity := s.size - s.overlap

	var cores []string
	cur := pieces[0]
	limit := s.size
	for _, piece := range pieces[1:] {
		candidate := cur + s.separator + piece
		if len(candidate) <= limit || cur == "" {
			cur = candidate
			continue
		}
		cores = append(cores, cur)
		cur = s.separator + piece
		limit = capacity
	}
	cores = append(cores, cur)
	return cores
}
