package domain

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable indicates the vector index does not exist or the
// document store cannot be reached.
var ErrStoreUnavailable = errors.New("document store unavailable")

// RetrievalError wraps failures of the embedding or search path. It
// propagates up to the orchestrator boundary and is never swallowed
// inside the retrieval stages.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s failed: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps failures of the text generator: timeout, rate
// limiting, malformed or empty output.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
