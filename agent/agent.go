// Package agent routes each question between answering directly and
// retrieving document context first, and keeps the session transcript
// consistent with what actually happened.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"docgenius/model"
	"docgenius/session"
	"docgenius/types"

	"github.com/pkoukk/tiktoken-go"
)

// SystemPrompt instructs the generator how to behave for every request.
const SystemPrompt = `You are a helpful assistant for questions about the user's documents.
Answer clearly and to the point, without adding any additional information.
When context is supplied, answer only from that context; if it does not contain the answer, say you have no information on the question.`

type Agent struct {
	embedder  model.Embedder
	generator model.Generator
	topK      int
	logger    *slog.Logger
}

func New(embedder model.Embedder, generator model.Generator, topK int) *Agent {
	if topK <= 0 {
		topK = 5
	}
	return &Agent{
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		logger:    slog.Default(),
	}
}

// Answer handles one question against one session. The user turn is
// recorded up front; the assistant turn only after a successful generation,
// so a failed call never leaves an orphaned answer in the history.
func (a *Agent) Answer(ctx context.Context, sess *session.Session, question string) (*types.AnswerResult, error) {
	return a.answer(ctx, sess, question, a.topK)
}

// AnswerK is Answer with a per-request top-k override.
func (a *Agent) AnswerK(ctx context.Context, sess *session.Session, question string, topK int) (*types.AnswerResult, error) {
	if topK <= 0 {
		topK = a.topK
	}
	return a.answer(ctx, sess, question, topK)
}

func (a *Agent) answer(ctx context.Context, sess *session.Session, question string, topK int) (*types.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	sess.Append(types.RoleUser, question)

	sources, err := a.retrieve(ctx, sess, question, topK)
	if errors.Is(err, types.ErrIndexUnavailable) {
		a.logger.Debug("no index on session, answering directly", "session", sess.ID)
		sources, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	var prompt string
	if len(sources) > 0 {
		prompt = groundedPrompt(question, sess.Summary(), sources)
	} else {
		prompt = directPrompt(question, sess.Summary())
	}
	a.logPromptSize(prompt, len(sources))

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	sess.Append(types.RoleAssistant, text)

	// Summarization keeps future prompts bounded; a failure here only
	// means the next prompt carries more verbatim turns.
	if err := sess.Compact(ctx, a.generator); err != nil {
		a.logger.Warn("history compaction failed", "session", sess.ID, "error", err)
	}

	return &types.AnswerResult{
		Text:    text,
		Sources: sources,
		Direct:  len(sources) == 0,
	}, nil
}

// retrieve returns the context chunks for the question. Small talk and an
// index with nothing to return yield nil chunks; a session without an index
// yields types.ErrIndexUnavailable, which the caller routes to the direct
// path instead of surfacing.
func (a *Agent) retrieve(ctx context.Context, sess *session.Session, question string, topK int) ([]types.ScoredChunk, error) {
	if IsGreeting(question) {
		return nil, nil
	}
	idx := sess.CurrentIndex()
	if idx == nil {
		return nil, types.ErrIndexUnavailable
	}

	vec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	sources, err := idx.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return sources, nil
}

func groundedPrompt(question, summary string, sources []types.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Answer the question based on the documents below.\n\n")
	if summary != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Documents:\n")
	for i, src := range sources {
		fmt.Fprintf(&sb, "Excerpt %d (%s):\n%s\n\n", i+1, src.Source, src.Content)
	}
	sb.WriteString("Question:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func directPrompt(question, summary string) string {
	if summary == "" {
		return question
	}
	return fmt.Sprintf("Conversation so far:\n%s\n\nQuestion:\n%s\n\nAnswer:", summary, question)
}

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

func (a *Agent) logPromptSize(prompt string, sources int) {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err == nil {
			tokenizer = enc
		}
	})
	if tokenizer == nil {
		a.logger.Debug("prompt built", "bytes", len(prompt), "sources", sources)
		return
	}
	a.logger.Debug("prompt built",
		"tokens", len(tokenizer.Encode(prompt, nil, nil)),
		"bytes", len(prompt),
		"sources", sources,
	)
}
