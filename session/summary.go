package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"docgenius/model"
	"docgenius/types"

	"github.com/pkoukk/tiktoken-go"
)

const summaryPrompt = `Condense the conversation below into a short summary that preserves every fact, decision and open question. Write plain prose, no preamble.

Current summary:
%s

New turns:
%s

Updated summary:`

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// defaultTokenCounter counts prompt tokens the way the generation model
// does. When the encoding cannot be loaded it falls back to a bytes/4
// estimate so summarization still bounds prompt growth.
func defaultTokenCounter(text string) int {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err == nil {
			tokenizer = enc
		}
	})
	if tokenizer == nil {
		return len(text) / 4
	}
	return len(tokenizer.Encode(text, nil, nil))
}

// Compact folds the oldest unsummarized turns into the rolling summary once
// the unsummarized history exceeds the token limit. The most recent turns
// always stay verbatim. History itself is never truncated; only the
// summarization cursor advances.
func (s *Session) Compact(ctx context.Context, gen model.Generator) error {
	s.mu.Lock()
	counter := s.countTokens
	if counter == nil {
		counter = defaultTokenCounter
	}

	unsummarized := s.turns[s.summarized:]
	if counter(transcript(unsummarized)) <= s.tokenLimit {
		s.mu.Unlock()
		return nil
	}

	cut := len(s.turns) - s.keepRecent
	if cut <= s.summarized {
		s.mu.Unlock()
		return nil
	}
	fold := s.turns[s.summarized:cut]
	prompt := fmt.Sprintf(summaryPrompt, orNone(s.summary), transcript(fold))
	prevSummary := s.summary
	s.mu.Unlock()

	// The remote call runs unlocked; a failed call leaves the session as it
	// was and the verbatim turns remain available.
	updated, err := gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("summarize history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: the session is used by one interaction at a time, but a
	// stale fold must not clobber a newer one.
	if s.summary != prevSummary || cut <= s.summarized {
		return nil
	}
	s.summary = strings.TrimSpace(updated)
	s.summarized = cut
	return nil
}

// SetTokenCounter overrides the token counter, primarily for tests and for
// callers whose generation model uses a different encoding.
func (s *Session) SetTokenCounter(fn func(string) int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countTokens = fn
}

func transcript(turns []types.ConversationTurn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
