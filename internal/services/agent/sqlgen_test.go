// File: internal/services/agent/sqlgen_test.go
package agent

import (
    "context"
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hyewonk/go-datatalk/internal/services/ai"
)

type gatewayCall struct {
    systemPrompt string
    message      string
}

// fakeGateway replays scripted replies in order and records every call.
type fakeGateway struct {
    replies []string
    err     error
    calls   []gatewayCall
}

func (g *fakeGateway) Complete(_ context.Context, systemPrompt string, _ []ai.Turn, message string) (string, error) {
    g.calls = append(g.calls, gatewayCall{systemPrompt: systemPrompt, message: message})
    if g.err != nil {
        return "", g.err
    }
    if len(g.calls) > len(g.replies) {
        return "", errors.New("fakeGateway: script exhausted")
    }
    return g.replies[len(g.calls)-1], nil
}

const testSchema = "Database: store.db\nTables:\n- sales: day TEXT, amount REAL"

func TestGenerateExtractsFencedSQL(t *testing.T) {
    gw := &fakeGateway{replies: []string{"Sure:\n```sql\nSELECT SUM(amount) FROM sales;\n```"}}
    gen := NewSQLGenerator(gw)

    sql, err := gen.Generate(context.Background(), "total sales", testSchema)
    require.NoError(t, err)
    assert.Equal(t, "SELECT SUM(amount) FROM sales;", sql)

    require.Len(t, gw.calls, 1)
    assert.Contains(t, gw.calls[0].message, testSchema)
    assert.Contains(t, gw.calls[0].message, "total sales")
}

func TestGenerateFallsBackToRawReply(t *testing.T) {
    gw := &fakeGateway{replies: []string{"  SELECT day FROM sales;  "}}
    gen := NewSQLGenerator(gw)

    sql, err := gen.Generate(context.Background(), "which days", testSchema)
    require.NoError(t, err)
    assert.Equal(t, "SELECT day FROM sales;", sql)
}

func TestGeneratePropagatesGatewayError(t *testing.T) {
    gw := &fakeGateway{err: errors.New("upstream down")}
    gen := NewSQLGenerator(gw)

    _, err := gen.Generate(context.Background(), "total sales", testSchema)
    assert.Error(t, err)
}
