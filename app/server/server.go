package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"docgenius/agent"
	"docgenius/app/api"
	"docgenius/index"
	"docgenius/model"
	"docgenius/session"
	"docgenius/store"
	"docgenius/types"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	cfg        types.Config
	logger     *slog.Logger
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		listenAddr: cfg.ServerAddr,
		cfg:        cfg,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	uploads, err := store.NewFileStore(s.cfg.UploadDir)
	if err != nil {
		log.Fatal("error to create upload store: ", err)
	}

	embedder := model.NewOllamaEmbedder()
	generator := model.NewOllamaGenerator(agent.SystemPrompt)

	builder := index.NewBuilder(embedder)
	if s.cfg.IndexDir != "" {
		builder = builder.WithPersistDir(s.cfg.IndexDir)
	}
	if os.Getenv("PG_HOST") != "" {
		pg, err := newPgIndex(context.Background())
		if err != nil {
			log.Fatal("error to connect to Postgres database: ", err)
		}
		builder = builder.WithStore(pg)
		defer pg.Close()
	}

	var (
		app         = fiber.New(config)
		sessions    = session.NewManager(s.cfg)
		ag          = agent.New(embedder, generator, s.cfg.TopK)
		chatHandler = api.NewChatHandler(s.cfg, uploads, builder, sessions, ag)
		fileHandler = api.NewFileHandler(uploads)
		check       = app.Group("/check")
		apiv1       = app.Group("/api/v1")
	)

	check.Get("/healthy", api.NewCheckHandler().HandleHealthy)
	apiv1.Post("/files", fileHandler.HandleUpload)
	apiv1.Post("/sessions", chatHandler.HandleCreateSession)
	apiv1.Post("/sessions/:id/init", chatHandler.HandleInit)
	apiv1.Get("/sessions/:id/history", chatHandler.HandleHistory)
	apiv1.Post("/ask", chatHandler.HandleAsk)

	if err := app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}

func newPgIndex(ctx context.Context) (*index.PgIndex, error) {
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	dim, _ := strconv.Atoi(os.Getenv("EMBEDDING_DIM"))

	pg, err := index.NewPgIndex(ctx, connStr, dim)
	if err != nil {
		return nil, err
	}
	if err := pg.Init(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}
