// Package session holds the per-interaction state: the ordered conversation
// history, its rolling summary and the currently installed vector index.
// There are no ambient globals; every operation receives a Session.
package session

import (
	"context"
	"sync"
	"time"

	"docgenius/types"

	"github.com/google/uuid"
)

// Index is the similarity-search surface a Session owns. The index package
// provides the implementations.
type Index interface {
	Search(ctx context.Context, vec []float32, topK int) ([]types.ScoredChunk, error)
	Len() int
}

type Session struct {
	ID uuid.UUID

	mu         sync.Mutex
	turns      []types.ConversationTurn
	summary    string
	summarized int // count of leading turns already folded into the summary
	index      Index

	keepRecent  int
	tokenLimit  int
	countTokens func(string) int
}

func New(cfg types.Config) *Session {
	keep := cfg.KeepRecentTurns
	if keep <= 0 {
		keep = 4
	}
	limit := cfg.SummaryTokenLimit
	if limit <= 0 {
		limit = 1500
	}
	return &Session{
		ID:         uuid.New(),
		keepRecent: keep,
		tokenLimit: limit,
	}
}

// Append adds one turn at the end of the history. Turns are never edited or
// removed afterwards.
func (s *Session) Append(role types.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, types.ConversationTurn{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
}

// History returns the full chronological transcript.
func (s *Session) History() []types.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Summary returns the rolling condensation of the turns that Compact has
// folded so far. Empty until the history outgrows the token limit.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// SetIndex installs a freshly built index, fully replacing the previous one.
// Readers either see the old index or the new one, never a mix.
func (s *Session) SetIndex(idx Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = idx
}

// CurrentIndex returns the installed index or nil.
func (s *Session) CurrentIndex() Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Manager is a uuid-keyed session registry for the HTTP layer.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	cfg      types.Config
}

func NewManager(cfg types.Config) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		cfg:      cfg,
	}
}

func (m *Manager) Create() *Session {
	sess := New(m.cfg)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return sess
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
