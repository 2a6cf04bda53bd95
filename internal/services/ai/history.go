// File: internal/services/ai/history.go
package ai

// estimateTokens approximates the token cost of a text as len/4. The same
// estimate the context helpers use elsewhere; good enough for a trim budget.
func estimateTokens(text string) int {
    return len(text) / 4
}

// TrimHistory drops prior turns from the oldest forward until the estimated
// token cost of the remainder fits budget. The kept window always starts on a
// user turn so the model never sees an assistant reply without its question.
// The system turn is handled by the caller and never passes through here.
func TrimHistory(history []Turn, budget int) []Turn {
    if len(history) == 0 {
        return nil
    }

    total := 0
    start := len(history)
    for i := len(history) - 1; i >= 0; i-- {
        cost := estimateTokens(history[i].Content)
        if total+cost > budget {
            break
        }
        total += cost
        start = i
    }

    // Start the kept window on a user turn.
    for start < len(history) && history[start].Role != RoleUser {
        start++
    }

    if start >= len(history) {
        return nil
    }
    return history[start:]
}
