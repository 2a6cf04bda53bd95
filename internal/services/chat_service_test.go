// File: internal/services/chat_service_test.go
package services

import (
    "context"
    "errors"
    "path/filepath"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/glebarez/sqlite"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/gorm"
    gormlogger "gorm.io/gorm/logger"

    "github.com/hyewonk/go-datatalk/internal/domain"
    chatrepo "github.com/hyewonk/go-datatalk/internal/repository/chat"
    datasetrepo "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    messagerepo "github.com/hyewonk/go-datatalk/internal/repository/message"
    "github.com/hyewonk/go-datatalk/internal/services/agent"
    "github.com/hyewonk/go-datatalk/internal/services/ai"
    "github.com/hyewonk/go-datatalk/internal/services/query"
)

type recordedCall struct {
    system  string
    history []ai.Turn
    message string
}

// scriptedGateway replays canned replies in order. Title generation runs on
// its own goroutine, so those calls are answered by system prompt instead of
// position to keep the script deterministic.
type scriptedGateway struct {
    mu         sync.Mutex
    replies    []string
    titleReply string
    err        error
    calls      []recordedCall
    next       int
}

func (g *scriptedGateway) Complete(_ context.Context, system string, history []ai.Turn, message string) (string, error) {
    g.mu.Lock()
    defer g.mu.Unlock()

    g.calls = append(g.calls, recordedCall{system, history, message})
    if system == titleSystemPrompt {
        return g.titleReply, nil
    }
    if g.err != nil {
        return "", g.err
    }
    if g.next >= len(g.replies) {
        return "", errors.New("scriptedGateway: script exhausted")
    }
    reply := g.replies[g.next]
    g.next++
    return reply, nil
}

func (g *scriptedGateway) callFor(message string) (recordedCall, bool) {
    g.mu.Lock()
    defer g.mu.Unlock()
    for _, c := range g.calls {
        if c.message == message {
            return c, true
        }
    }
    return recordedCall{}, false
}

func (g *scriptedGateway) callCount() int {
    g.mu.Lock()
    defer g.mu.Unlock()
    return len(g.calls)
}

type noRender struct{}

func (noRender) Render(context.Context, string, string) error { return nil }

type chatFixture struct {
    service  *ChatService
    gateway  *scriptedGateway
    messages messagerepo.MessageRepository
    chats    chatrepo.ChatRepository
    datasets datasetrepo.DatasetRepository
}

func newChatFixture(t *testing.T, replies []string) *chatFixture {
    t.Helper()

    db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
        Logger: gormlogger.Default.LogMode(gormlogger.Silent),
    })
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(&domain.Chat{}, &domain.Message{}, &domain.Dataset{}))

    chats := chatrepo.NewChatRepository(db)
    messages := messagerepo.NewMessageRepository(db)
    datasets := datasetrepo.NewDatasetRepository(db)

    gateway := &scriptedGateway{replies: replies, titleReply: "generated title"}
    agentConfig := agent.DefaultConfig()
    agentConfig.ChartDir = t.TempDir()
    loop, err := agent.NewLoop(agentConfig, gateway, agent.NewSQLGenerator(gateway),
        query.NewExecutor(), noRender{}, messages, datasets, &NoOpLogger{})
    require.NoError(t, err)

    service, err := NewChatService(chats, messages, datasets, loop, gateway, &NoOpLogger{})
    require.NoError(t, err)

    return &chatFixture{service: service, gateway: gateway, messages: messages, chats: chats, datasets: datasets}
}

func waitForTitle(t *testing.T, f *chatFixture, chatID uint, want string) {
    t.Helper()
    deadline := time.Now().Add(2 * time.Second)
    for time.Now().Before(deadline) {
        chat, err := f.chats.FindByID(context.Background(), chatID)
        require.NoError(t, err)
        if chat.Title == want {
            return
        }
        time.Sleep(10 * time.Millisecond)
    }
    t.Fatalf("chat %d never got title %q", chatID, want)
}

func TestStartChatPersistsOpeningTurnOnce(t *testing.T) {
    f := newChatFixture(t, []string{"Total sales were 1,234,000. [END]"})

    chat, result, err := f.service.StartChat(context.Background(), 1, "매출이 얼마야?", nil)
    require.NoError(t, err)
    require.NotNil(t, chat)
    assert.Equal(t, "Total sales were 1,234,000.", result.Text)
    assert.Equal(t, "매출이 얼마야?", chat.Title)

    messages, err := f.messages.FindByChatID(context.Background(), chat.ID)
    require.NoError(t, err)
    require.Len(t, messages, 2)
    assert.Equal(t, domain.RoleUser, messages[0].Role)
    assert.Equal(t, "매출이 얼마야?", messages[0].Content)
    assert.Equal(t, domain.RoleAssistant, messages[1].Role)

    waitForTitle(t, f, chat.ID, "generated title")
}

func TestStartChatRejectsUnprocessedDataset(t *testing.T) {
    f := newChatFixture(t, nil)

    ds, err := f.datasets.Create(context.Background(), &domain.Dataset{
        UserID: 1, Name: "pending", Status: domain.DatasetStatusProcessing,
    })
    require.NoError(t, err)

    _, _, err = f.service.StartChat(context.Background(), 1, "hello", &ds.ID)
    require.Error(t, err)

    var svcErr *ServiceError
    require.ErrorAs(t, err, &svcErr)
    assert.Equal(t, ErrTypeValidation, svcErr.Type)
    assert.Zero(t, f.gateway.callCount())
}

func TestStartChatRejectsForeignDataset(t *testing.T) {
    f := newChatFixture(t, nil)

    ds, err := f.datasets.Create(context.Background(), &domain.Dataset{
        UserID: 2, Name: "other", Status: domain.DatasetStatusCompleted,
    })
    require.NoError(t, err)

    _, _, err = f.service.StartChat(context.Background(), 1, "hello", &ds.ID)
    var svcErr *ServiceError
    require.ErrorAs(t, err, &svcErr)
    assert.Equal(t, ErrTypeUnauthorized, svcErr.Type)
}

func TestContinueChatExcludesToolRecordsFromHistory(t *testing.T) {
    f := newChatFixture(t, []string{
        "First answer. [END]",
        "Second answer. [END]",
    })

    chat, _, err := f.service.StartChat(context.Background(), 1, "first question", nil)
    require.NoError(t, err)

    // Plant a tool record the way a tool-using turn would.
    _, err = f.messages.Create(context.Background(), &domain.Message{
        ChatID: chat.ID, Role: domain.RoleTool, Content: "SQL: SELECT 1",
    })
    require.NoError(t, err)

    result, err := f.service.ContinueChat(context.Background(), 1, chat.ID, "second question")
    require.NoError(t, err)
    assert.Equal(t, "Second answer.", result.Text)

    call, ok := f.gateway.callFor("second question")
    require.True(t, ok)
    require.Len(t, call.history, 2)
    for _, turn := range call.history {
        assert.NotContains(t, turn.Content, "SELECT 1")
    }
}

func TestContinueChatRejectsForeignChat(t *testing.T) {
    f := newChatFixture(t, []string{"Answer. [END]"})

    chat, _, err := f.service.StartChat(context.Background(), 1, "mine", nil)
    require.NoError(t, err)

    _, err = f.service.ContinueChat(context.Background(), 2, chat.ID, "yours?")
    var svcErr *ServiceError
    require.ErrorAs(t, err, &svcErr)
    assert.Equal(t, ErrTypeUnauthorized, svcErr.Type)
}

func TestDeleteChatRemovesMessages(t *testing.T) {
    f := newChatFixture(t, []string{"Answer. [END]"})

    chat, _, err := f.service.StartChat(context.Background(), 1, "to be deleted", nil)
    require.NoError(t, err)

    require.NoError(t, f.service.DeleteChat(context.Background(), 1, chat.ID))

    count, err := f.messages.CountByChatID(context.Background(), chat.ID)
    require.NoError(t, err)
    assert.Zero(t, count)

    _, err = f.service.GetChatMessages(context.Background(), 1, chat.ID)
    assert.Error(t, err)
}

func TestStartChatTruncatesLongTitles(t *testing.T) {
    long := strings.Repeat("가", 150)
    f := newChatFixture(t, []string{"Answer. [END]"})

    chat, _, err := f.service.StartChat(context.Background(), 1, long, nil)
    require.NoError(t, err)
    assert.Len(t, []rune(chat.Title), maxTitleLength)

    waitForTitle(t, f, chat.ID, "generated title")
}
