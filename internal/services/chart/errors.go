// File: internal/services/chart/errors.go
package chart

import "fmt"

type ErrorType string

const (
    ErrTypeValidation ErrorType = "VALIDATION"
    ErrTypeExecution  ErrorType = "EXECUTION"
    ErrTypeSave       ErrorType = "SAVE"
    ErrTypeTimeout    ErrorType = "TIMEOUT"
)

// RenderError covers any failure while executing chart code or persisting
// the resulting artifact.
type RenderError struct {
    Type      ErrorType
    Operation string
    Message   string
    Cause     error
}

func (e *RenderError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("Render %s error in %s: %s (caused by: %v)",
            e.Type, e.Operation, e.Message, e.Cause)
    }
    return fmt.Sprintf("Render %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *RenderError) Unwrap() error {
    return e.Cause
}

func newRenderError(t ErrorType, operation, msg string, cause error) *RenderError {
    return &RenderError{Type: t, Operation: operation, Message: msg, Cause: cause}
}
