// Package index builds and serves the vector index of document chunks.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docgenius/types"
)

// Memory is a brute-force cosine-similarity index. It is immutable after
// construction; a rebuild creates a new Memory and swaps it into the session
// as a whole.
type Memory struct {
	mu      sync.RWMutex
	chunks  []types.Chunk
	vectors [][]float32
}

func NewMemory(chunks []types.Chunk, vectors [][]float32) (*Memory, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(vectors) > 0 {
		dim := len(vectors[0])
		for i, v := range vectors {
			if len(v) != dim {
				return nil, fmt.Errorf("vector %d dimension mismatch: %d != %d", i, len(v), dim)
			}
		}
	}
	return &Memory{chunks: chunks, vectors: vectors}, nil
}

// Search returns the topK chunks most similar to the query vector, best
// first. Fewer than topK chunks means all of them come back.
func (m *Memory) Search(_ context.Context, vec []float32, topK int) ([]types.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]types.ScoredChunk, len(m.chunks))
	for i := range m.chunks {
		scored[i] = types.ScoredChunk{
			Chunk: m.chunks[i],
			Score: cosine(vec, m.vectors[i]),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
