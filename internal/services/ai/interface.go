// File: internal/services/ai/interface.go
package ai

import "context"

// Turn roles in a model context window.
const (
    RoleUser      = "user"
    RoleAssistant = "assistant"
)

// Turn is one role/content pair of prior conversation history.
type Turn struct {
    Role    string
    Content string
}

// Gateway wraps a single request/response call to the language model. The
// implementation owns history truncation under the configured token budget.
// Replies carry protocol markers that must be classified whole, so there is
// no streaming variant.
type Gateway interface {
    // Complete builds system prompt + trimmed history + new user message and
    // issues one model call. An empty systemPrompt omits the system turn; a
    // nil history is treated as empty.
    Complete(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error)
}
