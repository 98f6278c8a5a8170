package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals invalid chunking parameters, an unknown setting
	// or a collection whose dimension does not match the embedder.
	ErrConfiguration = errors.New("configuration error")
	// ErrStoreUnavailable signals that the vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrAdapterUnavailable signals an embedding or generation provider failure.
	ErrAdapterUnavailable = errors.New("adapter unavailable")
	// ErrInvalidRequest signals an event payload that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDocumentUnreadable signals a document that could not be opened or parsed.
	ErrDocumentUnreadable = errors.New("document unreadable")
)

// StageError reports which pipeline step failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the failing step name. A nil err stays nil.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) && se.Stage == stage {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// IsTransient reports whether retrying the operation may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrAdapterUnavailable)
}
