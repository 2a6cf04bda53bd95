// File: internal/services/ingest/errors.go
package ingest

import "fmt"

type ErrorType string

const (
    ErrTypeValidation ErrorType = "VALIDATION"
    ErrTypeParse      ErrorType = "PARSE"
    ErrTypeStore      ErrorType = "STORE"
)

// IngestError describes a failure while converting an uploaded file into a
// queryable store.
type IngestError struct {
    Type      ErrorType
    Operation string
    Message   string
    Cause     error
}

func (e *IngestError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("Ingest %s error in %s: %s (caused by: %v)",
            e.Type, e.Operation, e.Message, e.Cause)
    }
    return fmt.Sprintf("Ingest %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *IngestError) Unwrap() error {
    return e.Cause
}

func NewValidationError(operation, msg string) *IngestError {
    return &IngestError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewParseError(operation, msg string, cause error) *IngestError {
    return &IngestError{Type: ErrTypeParse, Operation: operation, Message: msg, Cause: cause}
}

func NewStoreError(operation, msg string, cause error) *IngestError {
    return &IngestError{Type: ErrTypeStore, Operation: operation, Message: msg, Cause: cause}
}
