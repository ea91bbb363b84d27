package model

// Document is a source text to be indexed, with free-form metadata that is
// carried through to every chunk derived from it.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Chunk is a length-bounded piece of a document. Adjacent chunks from the
// same document overlap by a configured number of characters.
type Chunk struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CloneMetadata returns an independent copy of a metadata map. A nil map
// stays nil.
func CloneMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	clone := make(map[string]string, len(md))
	for k, v := range md {
		clone[k] = v
	}
	return clone
}
