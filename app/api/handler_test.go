package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"docgenius/agent"
	"docgenius/index"
	"docgenius/session"
	"docgenius/store"
	"docgenius/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string) (string, error) {
	return "ok", nil
}

func TestHandleCreateSession_CorruptPersistedIndexStillCreatesSession(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	uploads, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sessions := session.NewManager(types.Config{})
	builder := index.NewBuilder(stubEmbedder{}).WithPersistDir(dir)
	ag := agent.New(stubEmbedder{}, stubGenerator{}, 2)
	h := NewChatHandler(types.Config{}, uploads, builder, sessions, ag)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/sessions", h.HandleCreateSession)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/sessions", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 despite a corrupt persisted index, got %d", resp.StatusCode)
	}

	var body struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	sess, ok := sessions.Get(body.SessionID)
	if !ok {
		t.Fatal("the returned session id must resolve in the manager")
	}
	if sess.CurrentIndex() != nil {
		t.Error("a failed restore must leave the session without an index")
	}
}
