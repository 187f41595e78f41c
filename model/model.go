// Package model holds the clients for the external embedding and
// text-generation services. Both are plain fallible remote calls: no retry
// policy lives here, a failed call fails that operation only.
package model

import (
	"context"
	"fmt"
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ServiceError wraps a failed remote call with the service that failed.
type ServiceError struct {
	Service string // "embedding" or "generation"
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
