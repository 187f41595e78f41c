package types

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type FileKind string

const (
	FilePDF  FileKind = "pdf"
	FileText FileKind = "text"
)

// UploadedDocument is a raw file handed to the ingestor. It lives only for
// the duration of one ingest call.
type UploadedDocument struct {
	Name string
	Kind FileKind
	Data []byte
}

// ExtractedText is the plain text of one successfully processed document.
type ExtractedText struct {
	Source string
	Text   string
}

// Chunk is the unit of embedding and retrieval. Immutable once created.
type Chunk struct {
	ID      uuid.UUID
	Source  string
	Index   int
	Content string
}

// ScoredChunk is a chunk returned by similarity search together with its
// cosine similarity to the query.
type ScoredChunk struct {
	Chunk
	Score float64
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message of the dialog, appended in strict
// chronological order and never edited.
type ConversationTurn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// AnswerResult is what the agent returns for one question.
type AnswerResult struct {
	Text    string
	Sources []ScoredChunk
	Direct  bool // answered without consulting the index
}

type Config struct {
	ServerAddr        string
	UploadDir         string
	IndexDir          string
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	KeepRecentTurns   int
	SummaryTokenLimit int
}

// ConfigFromEnv reads the runtime configuration from environment variables,
// falling back to the canonical defaults.
func ConfigFromEnv() Config {
	return Config{
		ServerAddr:        envStr("SERVER_ADDR", ":3000"),
		UploadDir:         envStr("UPLOAD_DIR", "./files"),
		IndexDir:          os.Getenv("INDEX_DIR"),
		ChunkSize:         envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      envInt("CHUNK_OVERLAP", 200),
		TopK:              envInt("TOP_K", 5),
		KeepRecentTurns:   envInt("KEEP_RECENT_TURNS", 4),
		SummaryTokenLimit: envInt("SUMMARY_TOKEN_LIMIT", 1500),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
