// File: internal/services/errors.go
package services

import "fmt"

type ServiceErrorType string

const (
    ErrTypeValidation   ServiceErrorType = "VALIDATION"
    ErrTypeNotFound     ServiceErrorType = "NOT_FOUND"
    ErrTypeUnauthorized ServiceErrorType = "UNAUTHORIZED"
    ErrTypeConflict     ServiceErrorType = "CONFLICT"
    ErrTypeInternal     ServiceErrorType = "INTERNAL"
)

// ServiceError is the failure type surfaced to handlers; Type maps onto an
// HTTP status there.
type ServiceError struct {
    Type      ServiceErrorType
    Operation string
    Message   string
    Cause     error
}

func (e *ServiceError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("Service %s error in %s: %s (caused by: %v)",
            e.Type, e.Operation, e.Message, e.Cause)
    }
    return fmt.Sprintf("Service %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ServiceError) Unwrap() error {
    return e.Cause
}

func NewValidationError(operation, msg string) *ServiceError {
    return &ServiceError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewNotFoundError(operation, msg string) *ServiceError {
    return &ServiceError{Type: ErrTypeNotFound, Operation: operation, Message: msg}
}

func NewUnauthorizedError(operation string, userID, resourceID uint) *ServiceError {
    return &ServiceError{
        Type:      ErrTypeUnauthorized,
        Operation: operation,
        Message:   fmt.Sprintf("user %d cannot access resource %d", userID, resourceID),
    }
}

func NewConflictError(operation, msg string) *ServiceError {
    return &ServiceError{Type: ErrTypeConflict, Operation: operation, Message: msg}
}

func NewInternalError(operation, msg string, cause error) *ServiceError {
    return &ServiceError{Type: ErrTypeInternal, Operation: operation, Message: msg, Cause: cause}
}
