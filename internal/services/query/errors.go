// File: internal/services/query/errors.go
package query

import "fmt"

type ErrorType string

const (
    ErrTypeValidation ErrorType = "VALIDATION"
    ErrTypeExecution  ErrorType = "EXECUTION"
    ErrTypeStore      ErrorType = "STORE"
)

// QueryError covers malformed SQL, runtime constraint violations and store
// access failures.
type QueryError struct {
    Type      ErrorType
    Operation string
    Message   string
    Cause     error
}

func (e *QueryError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("Query %s error in %s: %s (caused by: %v)",
            e.Type, e.Operation, e.Message, e.Cause)
    }
    return fmt.Sprintf("Query %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *QueryError) Unwrap() error {
    return e.Cause
}

func NewExecutionError(operation, msg string, cause error) *QueryError {
    return &QueryError{Type: ErrTypeExecution, Operation: operation, Message: msg, Cause: cause}
}

func NewStoreError(operation, msg string, cause error) *QueryError {
    return &QueryError{Type: ErrTypeStore, Operation: operation, Message: msg, Cause: cause}
}
