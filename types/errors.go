package types

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus means there were no chunks to index. The previous
	// index, if any, stays installed.
	ErrEmptyCorpus = errors.New("empty corpus: no chunks to index")

	// ErrIndexUnavailable means a query arrived while the session has no
	// index. Callers route such questions to the direct-answer path.
	ErrIndexUnavailable = errors.New("no index attached to session")

	// ErrBuildSuperseded is returned by an index build that finished after
	// a newer build was requested. Its result is discarded.
	ErrBuildSuperseded = errors.New("index build superseded by a newer request")
)

// InvalidConfigError reports chunking parameters that cannot produce a
// terminating split.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// ExtractionWarning records a single file that failed text extraction.
// Warnings are collected per batch and never abort the remaining files.
type ExtractionWarning struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

func (w ExtractionWarning) Error() string {
	return fmt.Sprintf("extract %s: %v", w.Name, w.Err)
}

func (w ExtractionWarning) Unwrap() error { return w.Err }
