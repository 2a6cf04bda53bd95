// File: internal/services/agent/sqlgen.go
package agent

import (
    "context"
    "fmt"
    "strings"
)

const sqlSystemPrompt = "You are the best assistant that translates natural language questions " +
    "into SQL queries. Use the SQLite dialect. Refer only to the tables and columns " +
    "listed in the provided database schema; if the question cannot be answered from " +
    "them, ask for clarification instead of guessing. " +
    "Output ONLY the SQL between ```sql``` fences."

// SQLGenerator turns a natural-language question plus a schema description
// into one SQL statement via a single gateway call. Validation is left to
// the query executor.
type SQLGenerator struct {
    gateway CompletionGateway
}

func NewSQLGenerator(gateway CompletionGateway) *SQLGenerator {
    return &SQLGenerator{gateway: gateway}
}

func (g *SQLGenerator) Generate(ctx context.Context, question, schemaText string) (string, error) {
    userMessage := fmt.Sprintf(
        "Database schema:\n%s\n\nConvert the following question into SQL and wrap it in ```sql``` fences:\nQuestion: %s",
        schemaText, question,
    )

    reply, err := g.gateway.Complete(ctx, sqlSystemPrompt, nil, userMessage)
    if err != nil {
        return "", err
    }

    if sqlText, ok := ExtractSQLFence(reply); ok {
        return sqlText, nil
    }
    // No fence: fall back to the trimmed raw reply and let the executor
    // decide whether it is SQL.
    return strings.TrimSpace(reply), nil
}
