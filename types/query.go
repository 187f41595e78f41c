package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

// AskParams is the body of POST /api/v1/ask.
type AskParams struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Prompt    string `json:"prompt" validate:"required"`
	TopK      int    `json:"top_k" validate:"omitempty,gt=0"`
}

func (params *AskParams) Validate() map[string]string {
	return validateStruct(params)
}

// InitParams is the body of POST /api/v1/sessions/:id/init.
type InitParams struct {
	ChunkSize    int `json:"chunk_size" validate:"omitempty,gt=0"`
	ChunkOverlap int `json:"chunk_overlap" validate:"omitempty,gte=0"`
}

func (params *InitParams) Validate() map[string]string {
	return validateStruct(params)
}

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

// AskResponse is the payload returned for one answered question.
type AskResponse struct {
	Answer    string    `json:"answer"`
	Direct    bool      `json:"direct"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	Document string  `json:"document"`
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// InitResponse reports the outcome of an index (re)build.
type InitResponse struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Warnings  []string `json:"warnings,omitempty"`
}
