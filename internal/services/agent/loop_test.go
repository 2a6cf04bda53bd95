// File: internal/services/agent/loop_test.go
package agent

import (
    "context"
    "errors"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hyewonk/go-datatalk/internal/domain"
    "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    "github.com/hyewonk/go-datatalk/internal/services/query"
)

type fakeStore struct {
    messages []domain.Message
    err      error
}

func (s *fakeStore) Create(_ context.Context, message *domain.Message) (*domain.Message, error) {
    if s.err != nil {
        return nil, s.err
    }
    s.messages = append(s.messages, *message)
    return message, nil
}

func (s *fakeStore) byRole(role string) []domain.Message {
    var out []domain.Message
    for _, m := range s.messages {
        if m.Role == role {
            out = append(out, m)
        }
    }
    return out
}

type fakeQueries struct {
    result  *query.Result
    err     error
    lastSQL string
    calls   int
}

func (q *fakeQueries) Execute(_ context.Context, _, sqlText string) (*query.Result, error) {
    q.calls++
    q.lastSQL = sqlText
    if q.err != nil {
        return nil, q.err
    }
    return q.result, nil
}

type fakeCharts struct {
    err      error
    lastCode string
    lastPath string
    calls    int
}

func (c *fakeCharts) Render(_ context.Context, code, outputPath string) error {
    c.calls++
    c.lastCode = code
    c.lastPath = outputPath
    return c.err
}

type fakeDatasets struct {
    dataset *domain.Dataset
    err     error
    calls   int
}

func (d *fakeDatasets) LatestCompletedByUserID(_ context.Context, _ uint) (*domain.Dataset, error) {
    d.calls++
    if d.err != nil {
        return nil, d.err
    }
    return d.dataset, nil
}

type loopFixture struct {
    loop     *Loop
    gateway  *fakeGateway
    store    *fakeStore
    queries  *fakeQueries
    charts   *fakeCharts
    datasets *fakeDatasets
}

func newLoopFixture(t *testing.T, replies []string) *loopFixture {
    t.Helper()

    gw := &fakeGateway{replies: replies}
    store := &fakeStore{}
    queries := &fakeQueries{result: &query.Result{
        Select:  true,
        Columns: []string{"total"},
        Rows:    [][]string{{"1234000"}},
    }}
    charts := &fakeCharts{}
    datasets := &fakeDatasets{err: dataset.ErrDatasetNotFound}

    config := DefaultConfig()
    config.ChartDir = t.TempDir()

    loop, err := NewLoop(config, gw, NewSQLGenerator(gw), queries, charts, store, datasets, nopLogger{})
    require.NoError(t, err)

    return &loopFixture{loop: loop, gateway: gw, store: store, queries: queries, charts: charts, datasets: datasets}
}

func completedDataset() *domain.Dataset {
    return &domain.Dataset{
        UserID:     1,
        Name:       "store",
        StorePath:  "data/stores/store.db",
        SchemaText: testSchema,
        Status:     domain.DatasetStatusCompleted,
    }
}

func baseRequest() Request {
    return Request{
        ChatID:       7,
        UserID:       1,
        SystemPrompt: "You are a data analyst.",
        Dataset:      completedDataset(),
        Message:      "어제 매출이 얼마야?",
    }
}

func TestRunPlainFinalAnswer(t *testing.T) {
    f := newLoopFixture(t, []string{"Yesterday's total sales were 1,234,000 won. [END]"})

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Equal(t, "Yesterday's total sales were 1,234,000 won.", res.Text)
    assert.Empty(t, res.ImageURL)

    require.Len(t, f.gateway.calls, 1)
    assert.Equal(t, "어제 매출이 얼마야?", f.gateway.calls[0].message)

    // One user message, one assistant message, no tool records.
    assert.Len(t, f.store.byRole(domain.RoleUser), 1)
    assert.Len(t, f.store.byRole(domain.RoleAssistant), 1)
    assert.Empty(t, f.store.byRole(domain.RoleTool))
}

func TestRunGatewayFailurePersistsNothing(t *testing.T) {
    f := newLoopFixture(t, nil)
    f.gateway.err = errors.New("rate limited")

    _, err := f.loop.Run(context.Background(), baseRequest())
    require.Error(t, err)

    var agentErr *AgentError
    require.ErrorAs(t, err, &agentErr)
    assert.Equal(t, ErrTypeGateway, agentErr.Type)
    assert.Empty(t, f.store.messages)
}

func TestRunSQLRoundTrip(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:SQL] total sales for yesterday",
        "```sql\nSELECT SUM(amount) FROM sales WHERE day = '{{get_date(day_diff=-1)}}';\n```",
        "Total sales came to 1,234,000. [END]",
    })

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Equal(t, "Total sales came to 1,234,000.", res.Text)

    // The date placeholder in the synthesized SQL was resolved before
    // execution.
    assert.Equal(t, 1, f.queries.calls)
    assert.NotContains(t, f.queries.lastSQL, "{{")
    assert.Contains(t, f.queries.lastSQL, "WHERE day = '")

    // The second loop turn fed the preview back as the next message.
    require.Len(t, f.gateway.calls, 3)
    assert.Contains(t, f.gateway.calls[2].message, "Query result:")
    assert.Contains(t, f.gateway.calls[2].message, "1234000")

    // Raw tool reply, synthesized SQL and preview are all on record.
    toolMsgs := f.store.byRole(domain.RoleTool)
    require.Len(t, toolMsgs, 3)
    assert.Contains(t, toolMsgs[1].Content, "SQL: SELECT SUM(amount)")
    assert.Contains(t, toolMsgs[2].Content, "Result preview:")
}

func TestRunSQLWithoutAnyDataset(t *testing.T) {
    f := newLoopFixture(t, []string{"[TOOL:SQL] total sales"})
    req := baseRequest()
    req.Dataset = nil

    res, err := f.loop.Run(context.Background(), req)
    require.NoError(t, err)
    assert.Equal(t, msgNoDataset, res.Text)
    assert.Equal(t, 1, f.datasets.calls)
    assert.Zero(t, f.queries.calls)
}

func TestRunSQLFallsBackToLatestCompletedDataset(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:SQL] total sales",
        "```sql\nSELECT SUM(amount) FROM sales;\n```",
        "Done. [END]",
    })
    f.datasets.err = nil
    f.datasets.dataset = completedDataset()
    req := baseRequest()
    req.Dataset = nil

    _, err := f.loop.Run(context.Background(), req)
    require.NoError(t, err)
    assert.Equal(t, 1, f.datasets.calls)
    assert.Equal(t, 1, f.queries.calls)
}

func TestRunSQLOnUnusableDataset(t *testing.T) {
    f := newLoopFixture(t, []string{"[TOOL:SQL] total sales"})
    req := baseRequest()
    req.Dataset.Status = domain.DatasetStatusProcessing

    res, err := f.loop.Run(context.Background(), req)
    require.NoError(t, err)
    assert.Equal(t, msgNoDataset, res.Text)
    assert.Zero(t, f.queries.calls)
}

func TestRunSQLEmptyResultShortCircuits(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:SQL] sales for 2099",
        "```sql\nSELECT * FROM sales WHERE day = '2099-01-01';\n```",
    })
    f.queries.result = &query.Result{Select: true, Columns: []string{"day"}}

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Equal(t, msgNoRows, res.Text)
    // The loop stopped without a third model turn.
    assert.Len(t, f.gateway.calls, 2)
}

func TestRunSQLExecutionFailureIsTerminal(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:SQL] total sales",
        "```sql\nSELECT nope FROM missing;\n```",
    })
    f.queries.err = errors.New("no such table: missing")

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Contains(t, res.Text, "could not be executed")
    assert.Contains(t, res.Text, "no such table")
}

func TestRunPlotRoundTrip(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:PLOT]\n```go\npackage main\n\nfunc Draw() {}\n```",
        "Here is the chart of daily sales. [END]",
    })

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Equal(t, "Here is the chart of daily sales.", res.Text)
    assert.True(t, strings.HasPrefix(res.ImageURL, "/charts/"))
    assert.True(t, strings.HasSuffix(res.ImageURL, ".png"))

    assert.Equal(t, 1, f.charts.calls)
    assert.Contains(t, f.charts.lastCode, "func Draw()")

    // The terminal assistant message carries the artifact reference.
    assistant := f.store.byRole(domain.RoleAssistant)
    require.Len(t, assistant, 1)
    assert.Equal(t, res.ImageURL, assistant[0].ImageURL)
}

func TestRunPlotWithoutFenceIsTerminal(t *testing.T) {
    f := newLoopFixture(t, []string{"[TOOL:PLOT] just draw something"})

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Contains(t, res.Text, "had to stop")
    assert.Zero(t, f.charts.calls)
}

func TestRunPlotRenderFailureIsTerminal(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:PLOT]\n```go\nfunc Draw() {}\n```",
    })
    f.charts.err = errors.New("nothing was drawn")

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Contains(t, res.Text, "could not be rendered")
    assert.Empty(t, res.ImageURL)
}

func TestRunAskUserStopsTheLoop(t *testing.T) {
    f := newLoopFixture(t, []string{"Which store do you mean? [ASK_USER]"})

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Equal(t, "Which store do you mean?", res.Text)
    assert.Len(t, f.gateway.calls, 1)
}

func TestRunContinueFeedsNudgeAndAccumulates(t *testing.T) {
    f := newLoopFixture(t, []string{
        "First half of the analysis. [CONTINUE]",
        "Second half of the analysis. [END]",
    })

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Equal(t, "Second half of the analysis.", res.Text)

    require.Len(t, f.gateway.calls, 2)
    assert.Equal(t, "Continue.", f.gateway.calls[1].message)

    // Both halves were persisted as assistant messages.
    assert.Len(t, f.store.byRole(domain.RoleAssistant), 2)
}

func TestRunIdenticalContinueRepliesExhaust(t *testing.T) {
    f := newLoopFixture(t, []string{
        "Same partial answer. [CONTINUE]",
        "Same partial answer. [CONTINUE]",
    })

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Contains(t, res.Text, "cut short")
    assert.Len(t, f.gateway.calls, 2)
}

func TestRunIterationCapAppendsTruncationNotice(t *testing.T) {
    replies := []string{
        "Part one. [CONTINUE]",
        "Part two. [CONTINUE]",
        "Part three. [CONTINUE]",
    }
    f := newLoopFixture(t, replies)
    f.loop.config.MaxIterations = 3

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Len(t, f.gateway.calls, 3)
    assert.Contains(t, res.Text, "Part three.")
    assert.Contains(t, res.Text, "turn limit")
}

func TestRunExhaustionAfterToolTurnHidesMarkers(t *testing.T) {
    f := newLoopFixture(t, []string{
        "[TOOL:SQL] total sales yesterday",
        "```sql\nSELECT SUM(amount) FROM sales\n```",
    })
    f.loop.config.MaxIterations = 1

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.NotContains(t, res.Text, "[TOOL:SQL]")
    assert.Contains(t, res.Text, "turn limit")
    assert.Equal(t, res.Text, strings.TrimSpace(res.Text))
}

func TestRunResolvesDatePlaceholdersInFinalAnswer(t *testing.T) {
    f := newLoopFixture(t, []string{
        "As of {{get_date()}}, sales look healthy. [END]",
    })

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.NotContains(t, res.Text, "{{")
    assert.Contains(t, res.Text, "sales look healthy")
}

func TestRunUnknownResolverIsTerminal(t *testing.T) {
    f := newLoopFixture(t, []string{
        "Sales on {{get_timestamp(day_diff=0)}} were flat. [END]",
    })

    res, err := f.loop.Run(context.Background(), baseRequest())
    require.NoError(t, err)
    assert.Contains(t, res.Text, "had to stop")
}

func TestRunValidatesRequest(t *testing.T) {
    f := newLoopFixture(t, nil)

    _, err := f.loop.Run(context.Background(), Request{UserID: 1, Message: "hi"})
    assert.Error(t, err)

    _, err = f.loop.Run(context.Background(), Request{ChatID: 1, UserID: 1})
    assert.Error(t, err)
    assert.Empty(t, f.store.messages)
}
