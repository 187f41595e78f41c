package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docgenius/session"
	"docgenius/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgIndex is a pgvector-backed chunk store that survives process restarts.
// Rows are keyed by session, so each session holds its own corpus; the
// queryable surface is the per-session view returned by ForSession. Replace
// rewrites one session's rows inside a transaction, so concurrent searches
// see either that session's old corpus or its new one.
type PgIndex struct {
	pool   *pgxpool.Pool
	dim    int
	logger *slog.Logger

	mu     sync.Mutex
	counts map[uuid.UUID]int64
}

func NewPgIndex(ctx context.Context, connStr string, dim int) (*PgIndex, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if dim <= 0 {
		dim = 768
	}
	return &PgIndex{
		pool:   pool,
		dim:    dim,
		logger: slog.Default(),
		counts: make(map[uuid.UUID]int64),
	}, nil
}

func (p *PgIndex) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunks (
        id UUID PRIMARY KEY,
        session_id UUID NOT NULL,
        source TEXT NOT NULL,
        position INT NOT NULL,
        content TEXT NOT NULL,
        embedding vector(%d)
    );

    CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100);

    CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);
    CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
    `, p.dim)
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return err
	}

	rows, err := p.pool.Query(ctx, "SELECT session_id, count(*) FROM chunks GROUP BY session_id")
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var sid uuid.UUID
		var count int64
		if err := rows.Scan(&sid, &count); err != nil {
			return err
		}
		counts[sid] = count
	}
	if err := rows.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.counts = counts
	p.mu.Unlock()
	return nil
}

// ForSession returns the session-scoped index view to install on that
// session. Views over different sessions never see each other's chunks.
func (p *PgIndex) ForSession(sessionID uuid.UUID) session.Index {
	return &pgSessionIndex{store: p, sessionID: sessionID}
}

// Replace discards one session's indexed chunks and inserts its new corpus
// in a single transaction. Other sessions' rows are untouched.
func (p *PgIndex) Replace(ctx context.Context, sessionID uuid.UUID, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE session_id = $1", sessionID); err != nil {
		return err
	}
	for i, ch := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, session_id, source, position, content, embedding) VALUES ($1, $2, $3, $4, $5, $6)`,
			ch.ID, sessionID, ch.Source, ch.Index, ch.Content, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	p.counts[sessionID] = int64(len(chunks))
	p.mu.Unlock()
	return nil
}

func (p *PgIndex) search(ctx context.Context, sessionID uuid.UUID, vec []float32, topK int) ([]types.ScoredChunk, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if topK <= 0 {
		topK = 5
	}

	query := `
        SELECT id, source, position, content, 1 - (embedding <=> $1) AS score
        FROM chunks
        WHERE session_id = $2 AND embedding IS NOT NULL
        ORDER BY embedding <=> $1
        LIMIT $3
    `
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vec), sessionID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.ScoredChunk
	for rows.Next() {
		var sc types.ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.Source, &sc.Index, &sc.Content, &sc.Score); err != nil {
			return nil, err
		}
		chunks = append(chunks, sc)
	}
	return chunks, rows.Err()
}

func (p *PgIndex) lenFor(sessionID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.counts[sessionID])
}

func (p *PgIndex) Close() {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
}

// pgSessionIndex adapts one session's slice of the shared chunk table to
// the Index interface a Session expects.
type pgSessionIndex struct {
	store     *PgIndex
	sessionID uuid.UUID
}

func (v *pgSessionIndex) Search(ctx context.Context, vec []float32, topK int) ([]types.ScoredChunk, error) {
	return v.store.search(ctx, v.sessionID, vec, topK)
}

func (v *pgSessionIndex) Len() int {
	return v.store.lenFor(v.sessionID)
}
