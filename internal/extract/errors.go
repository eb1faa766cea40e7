// Package extract implements the multi-strategy taxonomy extraction engine:
// format sniffing, title normalization, ordered dedup, the LLM extraction
// calls with validated JSON output, the per-format strategies, and
// the router that ties them together.
package extract

import (
	"errors"
	"fmt"
)

// Stage identifies where in the pipeline a failure happened. It is carried on
// file-level errors so callers can report what broke without parsing
// messages.
type Stage string

const (
	StageFormat      Stage = "format_detection"
	StageRecognition Stage = "page_recognition"
	StageValidation  Stage = "schema_validation"
	StageTranslation Stage = "translation"
)

// ErrRetriesExhausted marks an LLM call whose output never passed schema
// validation within the retry ceiling. Unlike a page-level recognition
// failure it is fatal for the whole file.
var ErrRetriesExhausted = errors.New("llm response validation retries exhausted")

// FileError is a file-level extraction failure. Page-level problems never
// become FileErrors; they are logged and skipped inside the strategies.
type FileError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("extraction failed at %s for %s: %v", e.Stage, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func fileErr(stage Stage, path string, err error) *FileError {
	return &FileError{Stage: stage, Path: path, Err: err}
}
