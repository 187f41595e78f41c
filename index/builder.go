package index

import (
	"context"
	"log/slog"
	"sync"

	"docgenius/model"
	"docgenius/session"
	"docgenius/types"

	"github.com/google/uuid"
)

// Builder embeds chunks and installs the resulting index into a session.
// Rebuilds are atomic: either the new index is fully built and installed or
// the previous one stays. A rebuild requested while an older one for the
// same session is still embedding wins via a per-session monotonic
// generation counter; the stale build's result is discarded. Builds for
// different sessions never affect each other.
type Builder struct {
	embedder   model.Embedder
	store      *PgIndex // optional durable backend
	persistDir string
	logger     *slog.Logger

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewBuilder(embedder model.Embedder) *Builder {
	return &Builder{
		embedder:    embedder,
		logger:      slog.Default(),
		generations: make(map[uuid.UUID]uint64),
	}
}

// WithPersistDir makes every successful memory-index rebuild also write the
// index to dir so it can be reloaded after a restart.
func (b *Builder) WithPersistDir(dir string) *Builder {
	b.persistDir = dir
	return b
}

// WithStore routes rebuilds into a pgvector-backed index instead of the
// in-memory one.
func (b *Builder) WithStore(store *PgIndex) *Builder {
	b.store = store
	return b
}

// Rebuild embeds the chunks and replaces the session's index. The embedding
// calls run outside any lock; only the install is serialized.
func (b *Builder) Rebuild(ctx context.Context, sess *session.Session, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return types.ErrEmptyCorpus
	}
	b.mu.Lock()
	b.generations[sess.ID]++
	gen := b.generations[sess.ID]
	b.mu.Unlock()

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	if b.store != nil {
		return b.installStore(ctx, sess, gen, chunks, vectors)
	}
	return b.installMemory(sess, gen, chunks, vectors)
}

func (b *Builder) installMemory(sess *session.Session, gen uint64, chunks []types.Chunk, vectors [][]float32) error {
	idx, err := NewMemory(chunks, vectors)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generations[sess.ID] {
		return types.ErrBuildSuperseded
	}
	sess.SetIndex(idx)
	b.logger.Info("index installed", "session", sess.ID, "chunks", idx.Len())

	if b.persistDir != "" {
		if err := idx.Save(b.persistDir); err != nil {
			b.logger.Warn("index persistence failed", "dir", b.persistDir, "error", err)
		}
	}
	return nil
}

func (b *Builder) installStore(ctx context.Context, sess *session.Session, gen uint64, chunks []types.Chunk, vectors [][]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generations[sess.ID] {
		return types.ErrBuildSuperseded
	}
	if err := b.store.Replace(ctx, sess.ID, chunks, vectors); err != nil {
		return err
	}
	// A newer request for this session may have arrived while the
	// transaction ran; it will replace the rows again in its turn, so only
	// the install is skipped.
	if gen != b.generations[sess.ID] {
		return types.ErrBuildSuperseded
	}
	sess.SetIndex(b.store.ForSession(sess.ID))
	b.logger.Info("index installed", "session", sess.ID, "chunks", len(chunks), "backend", "pgvector")
	return nil
}

// Restore loads a previously persisted memory index into the session, if
// one exists under the builder's persist dir.
func (b *Builder) Restore(sess *session.Session) error {
	if b.persistDir == "" {
		return nil
	}
	idx, err := Load(b.persistDir)
	if err != nil {
		return err
	}
	if idx != nil {
		sess.SetIndex(idx)
		b.logger.Info("index restored", "session", sess.ID, "chunks", idx.Len(), "dir", b.persistDir)
	}
	return nil
}
