package api

import (
	"log/slog"
	"time"

	"docgenius/agent"
	"docgenius/index"
	"docgenius/ingest"
	"docgenius/session"
	"docgenius/store"
	"docgenius/textsplit"
	"docgenius/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ChatHandler struct {
	cfg      types.Config
	uploads  *store.FileStore
	ingestor *ingest.Ingestor
	builder  *index.Builder
	sessions *session.Manager
	agent    *agent.Agent
	logger   *slog.Logger
}

func NewChatHandler(
	cfg types.Config,
	uploads *store.FileStore,
	builder *index.Builder,
	sessions *session.Manager,
	ag *agent.Agent,
) *ChatHandler {
	return &ChatHandler{
		cfg:      cfg,
		uploads:  uploads,
		ingestor: ingest.New(),
		builder:  builder,
		sessions: sessions,
		agent:    ag,
		logger:   slog.Default(),
	}
}

func (h *ChatHandler) HandleCreateSession(c *fiber.Ctx) error {
	sess := h.sessions.Create()
	// A previously persisted index, if any, serves the session until its
	// first init. A failed restore only costs that head start; the session
	// itself is fine.
	if err := h.builder.Restore(sess); err != nil {
		h.logger.Warn("persisted index restore failed", "session", sess.ID, "error", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session_id": sess.ID})
}

// HandleInit (re)initializes the chatbot for one session: extract the
// current uploads, chunk them and rebuild the index from scratch.
func (h *ChatHandler) HandleInit(c *fiber.Ctx) error {
	sess, err := h.session(c.Params("id"))
	if err != nil {
		return err
	}

	params := types.InitParams{}
	if len(c.Body()) > 0 {
		if c.BodyParser(&params) != nil {
			return ErrBadRequest()
		}
		if errors := types.Validate(&params); len(errors) > 0 {
			return NewValidationError(errors)
		}
	}
	size := params.ChunkSize
	if size == 0 {
		size = h.cfg.ChunkSize
	}
	overlap := params.ChunkOverlap
	if params.ChunkOverlap == 0 {
		overlap = h.cfg.ChunkOverlap
	}

	splitter, err := textsplit.New(size, overlap)
	if err != nil {
		return err
	}

	docs, err := h.uploads.List()
	if err != nil {
		return err
	}

	texts, warnings := h.ingestor.Ingest(c.Context(), docs)
	chunks := splitter.Split(texts)

	if err := h.builder.Rebuild(c.Context(), sess, chunks); err != nil {
		return err
	}

	resp := types.InitResponse{
		Documents: len(texts),
		Chunks:    len(chunks),
	}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return c.JSON(resp)
}

func (h *ChatHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	sess, err := h.session(params.SessionID)
	if err != nil {
		return err
	}

	result, err := h.agent.AnswerK(c.Context(), sess, params.Prompt, params.TopK)
	if err != nil {
		return err
	}

	resp := types.AskResponse{
		Answer:    result.Text,
		Direct:    result.Direct,
		Sources:   make([]types.Source, len(result.Sources)),
		Timestamp: time.Now(),
	}
	for i, src := range result.Sources {
		resp.Sources[i] = types.Source{
			Document: src.Source,
			Index:    src.Index,
			Text:     src.Content,
			Score:    src.Score,
		}
	}
	return c.JSON(resp)
}

func (h *ChatHandler) HandleHistory(c *fiber.Ctx) error {
	sess, err := h.session(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"history": sess.History(),
		"summary": sess.Summary(),
	})
}

func (h *ChatHandler) session(raw string) (*session.Session, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, NewError(fiber.StatusBadRequest, "invalid session id")
	}
	sess, ok := h.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound(id, "session")
	}
	return sess, nil
}
