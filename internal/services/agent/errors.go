// File: internal/services/agent/errors.go
package agent

import "fmt"

type ErrorType string

const (
    ErrTypeConfig      ErrorType = "CONFIG"
    ErrTypeValidation  ErrorType = "VALIDATION"
    ErrTypeGateway     ErrorType = "GATEWAY"
    ErrTypeExtraction  ErrorType = "EXTRACTION"
    ErrTypeQuery       ErrorType = "QUERY"
    ErrTypeRender      ErrorType = "RENDER"
    ErrTypePlaceholder ErrorType = "PLACEHOLDER"
    ErrTypeIteration   ErrorType = "ITERATION"
    ErrTypeStore       ErrorType = "STORE"
)

// AgentError is the loop's failure taxonomy. Gateway errors propagate to the
// caller; every other type terminates the loop with an assistant-visible
// message instead.
type AgentError struct {
    Type      ErrorType
    Operation string
    Message   string
    ChatID    uint
    Cause     error
}

func (e *AgentError) Error() string {
    if e.Cause != nil {
        return fmt.Sprintf("Agent %s error in %s: %s (caused by: %v)",
            e.Type, e.Operation, e.Message, e.Cause)
    }
    return fmt.Sprintf("Agent %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AgentError) Unwrap() error {
    return e.Cause
}

func NewValidationError(operation, msg string) *AgentError {
    return &AgentError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewGatewayError(operation string, cause error) *AgentError {
    return &AgentError{Type: ErrTypeGateway, Operation: operation, Message: "language model call failed", Cause: cause}
}

func NewExtractionError(operation, msg string) *AgentError {
    return &AgentError{Type: ErrTypeExtraction, Operation: operation, Message: msg}
}

func NewPlaceholderError(msg string, cause error) *AgentError {
    return &AgentError{Type: ErrTypePlaceholder, Operation: "placeholder", Message: msg, Cause: cause}
}
