package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a request is missing required fields or
// carries values that cannot be processed.
var ErrInvalidInput = errors.New("invalid input")

// StageError records which ingestion stage a document failed in. The stage
// name is persisted on the document record for later inspection.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion failed at stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
