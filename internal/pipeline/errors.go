package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/local/scansort/internal/ocr"
)

// InputError marks a source file that could not be read or decoded.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string { return fmt.Sprintf("input %s: %v", e.Path, e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// EngineError marks a failed, unavailable or timed-out recognizer call.
type EngineError struct {
	Mode string // text, pdf, tsv, osd
	Err  error
}

func (e *EngineError) Error() string { return fmt.Sprintf("engine %s: %v", e.Mode, e.Err) }
func (e *EngineError) Unwrap() error { return e.Err }

// FSError marks a failed artifact write, move or merge.
type FSError struct {
	Op   string
	Path string
	Err  error
}

func (e *FSError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *FSError) Unwrap() error { return e.Err }

// Classify maps an error to its reporting kind: input, engine, fs, unknown.
func Classify(err error) string {
	var in *InputError
	var en *EngineError
	var fe *FSError
	switch {
	case errors.As(err, &in):
		return "input"
	case errors.As(err, &en):
		return "engine"
	case errors.As(err, &fe):
		return "fs"
	}
	if errors.Is(err, ocr.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return "engine"
	}
	return "unknown"
}
