package index

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"docgenius/session"
	"docgenius/types"

	"github.com/google/uuid"
)

func chunk(source string, idx int, content string) types.Chunk {
	return types.Chunk{ID: uuid.New(), Source: source, Index: idx, Content: content}
}

func TestMemory_SearchTopKOrdering(t *testing.T) {
	chunks := []types.Chunk{
		chunk("a.txt", 0, "banana"),
		chunk("a.txt", 1, "refund"),
		chunk("a.txt", 2, "weather"),
	}
	vectors := [][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.7, 0.7, 0},
	}
	idx, err := NewMemory(chunks, vectors)
	if err != nil {
		t.Fatal(err)
	}

	got, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Content != "refund" {
		t.Errorf("best match should be refund, got %q", got[0].Content)
	}
	if got[1].Content != "weather" {
		t.Errorf("second match should be weather, got %q", got[1].Content)
	}
	if got[0].Score < got[1].Score {
		t.Error("results must be ordered best first")
	}
}

func TestMemory_SearchFewerChunksThanK(t *testing.T) {
	idx, _ := NewMemory([]types.Chunk{chunk("a", 0, "only")}, [][]float32{{1, 0}})
	got, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected all chunks back, got %d", len(got))
	}
}

func TestNewMemory_RejectsMismatch(t *testing.T) {
	if _, err := NewMemory([]types.Chunk{chunk("a", 0, "x")}, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
	_, err := NewMemory(
		[]types.Chunk{chunk("a", 0, "x"), chunk("a", 1, "y")},
		[][]float32{{1, 0}, {1, 0, 0}},
	)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

type fakeEmbedder struct {
	vec      []float32
	err      error
	calls    atomic.Int32
	blockFor int32         // which call (1-based) should block
	started  chan struct{} // closed when the blocking call is reached
	release  chan struct{} // closed to unblock
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	call := e.calls.Add(1)
	if call == e.blockFor {
		close(e.started)
		<-e.release
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func TestBuilder_EmptyCorpus(t *testing.T) {
	sess := session.New(types.Config{})
	old, _ := NewMemory([]types.Chunk{chunk("a", 0, "kept")}, [][]float32{{1}})
	sess.SetIndex(old)

	b := NewBuilder(&fakeEmbedder{vec: []float32{1}})
	err := b.Rebuild(context.Background(), sess, nil)
	if !errors.Is(err, types.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if sess.CurrentIndex() != session.Index(old) {
		t.Fatal("old index must remain installed")
	}
}

func TestBuilder_EmbeddingFailureLeavesOldIndex(t *testing.T) {
	sess := session.New(types.Config{})
	old, _ := NewMemory([]types.Chunk{chunk("a", 0, "kept")}, [][]float32{{1}})
	sess.SetIndex(old)

	b := NewBuilder(&fakeEmbedder{err: errors.New("quota exceeded")})
	err := b.Rebuild(context.Background(), sess, []types.Chunk{chunk("b", 0, "new")})
	if err == nil {
		t.Fatal("expected embedding failure")
	}
	if sess.CurrentIndex() != session.Index(old) {
		t.Fatal("old index must remain installed after a failed build")
	}
}

func TestBuilder_InstallsNewIndex(t *testing.T) {
	sess := session.New(types.Config{})
	b := NewBuilder(&fakeEmbedder{vec: []float32{1, 0}})
	chunks := []types.Chunk{chunk("a", 0, "um"), chunk("a", 1, "dois")}

	if err := b.Rebuild(context.Background(), sess, chunks); err != nil {
		t.Fatal(err)
	}
	idx := sess.CurrentIndex()
	if idx == nil || idx.Len() != 2 {
		t.Fatalf("expected installed index with 2 chunks, got %v", idx)
	}
}

func TestBuilder_StaleBuildDoesNotInstall(t *testing.T) {
	sess := session.New(types.Config{})
	embedder := &fakeEmbedder{
		vec:      []float32{1, 0},
		blockFor: 1,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	b := NewBuilder(embedder)

	var wg sync.WaitGroup
	wg.Add(1)
	var staleErr error
	go func() {
		defer wg.Done()
		staleErr = b.Rebuild(context.Background(), sess, []types.Chunk{chunk("old", 0, "stale corpus")})
	}()

	// Wait for the first build to reach the embedder, then run a newer one.
	<-embedder.started
	if err := b.Rebuild(context.Background(), sess, []types.Chunk{
		chunk("new", 0, "fresh"), chunk("new", 1, "corpus"),
	}); err != nil {
		t.Fatal(err)
	}

	close(embedder.release)
	wg.Wait()

	if !errors.Is(staleErr, types.ErrBuildSuperseded) {
		t.Fatalf("stale build should report ErrBuildSuperseded, got %v", staleErr)
	}
	if got := sess.CurrentIndex().Len(); got != 2 {
		t.Fatalf("session must hold the newest build (2 chunks), got %d", got)
	}
}

func TestPersist_SaveLoadRoundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	chunks := []types.Chunk{chunk("doc.pdf", 0, "The refund period is 30 days.")}
	vectors := [][]float32{{0.6, 0.8}}
	idx, _ := NewMemory(chunks, vectors)

	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.Len() != 1 {
		t.Fatalf("expected loaded index with 1 chunk, got %v", loaded)
	}

	got, err := loaded.Search(context.Background(), []float32{0.6, 0.8}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Content != "The refund period is 30 days." {
		t.Errorf("unexpected content %q", got[0].Content)
	}
	if got[0].ID != chunks[0].ID {
		t.Error("chunk IDs must survive the roundtrip")
	}
}

func TestPersist_LoadMissingDirIsNil(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nothing-here"))
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatal("missing index file should load as nil")
	}
}

func TestBuilder_IndependentSessionBuildsDoNotCancelEachOther(t *testing.T) {
	sessA := session.New(types.Config{})
	sessB := session.New(types.Config{})
	embedder := &fakeEmbedder{
		vec:      []float32{1, 0},
		blockFor: 1,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	b := NewBuilder(embedder)

	var wg sync.WaitGroup
	wg.Add(1)
	var errA error
	go func() {
		defer wg.Done()
		errA = b.Rebuild(context.Background(), sessA, []types.Chunk{chunk("a.txt", 0, "corpus A")})
	}()

	// Session B initializes while A is still embedding.
	<-embedder.started
	if err := b.Rebuild(context.Background(), sessB, []types.Chunk{
		chunk("b.txt", 0, "corpus"), chunk("b.txt", 1, "B"),
	}); err != nil {
		t.Fatal(err)
	}

	close(embedder.release)
	wg.Wait()

	if errA != nil {
		t.Fatalf("session A's build must not be affected by session B's init, got %v", errA)
	}
	if got := sessA.CurrentIndex().Len(); got != 1 {
		t.Fatalf("session A must hold its own index (1 chunk), got %d", got)
	}
	if got := sessB.CurrentIndex().Len(); got != 2 {
		t.Fatalf("session B must hold its own index (2 chunks), got %d", got)
	}
}

func TestPgIndex_ForSessionViewsAreScoped(t *testing.T) {
	p := &PgIndex{counts: map[uuid.UUID]int64{}}
	a, b := uuid.New(), uuid.New()
	p.counts[a] = 3

	idxA := p.ForSession(a)
	idxB := p.ForSession(b)
	if idxA.Len() != 3 {
		t.Errorf("session a view should report its own 3 chunks, got %d", idxA.Len())
	}
	if idxB.Len() != 0 {
		t.Errorf("session b view must not see session a's chunks, got %d", idxB.Len())
	}
}
