package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"docgenius/types"
)

const indexFileName = "index.json"

type persistedChunk struct {
	Chunk     types.Chunk `json:"chunk"`
	Embedding []float32   `json:"embedding"`
}

type persistedIndex struct {
	Chunks []persistedChunk `json:"chunks"`
}

// Save writes the index to dir. The write goes through a temp file and a
// rename so a crash never leaves a half-written index behind.
func (m *Memory) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	m.mu.RLock()
	out := persistedIndex{Chunks: make([]persistedChunk, len(m.chunks))}
	for i := range m.chunks {
		out.Chunks[i] = persistedChunk{Chunk: m.chunks[i], Embedding: m.vectors[i]}
	}
	m.mu.RUnlock()

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp := filepath.Join(dir, indexFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, indexFileName))
}

// Load reads a persisted index from dir. A missing file is not an error;
// it returns a nil index.
func Load(dir string) (*Memory, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var in persistedIndex
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}

	chunks := make([]types.Chunk, len(in.Chunks))
	vectors := make([][]float32, len(in.Chunks))
	for i, pc := range in.Chunks {
		chunks[i] = pc.Chunk
		vectors[i] = pc.Embedding
	}
	return NewMemory(chunks, vectors)
}
