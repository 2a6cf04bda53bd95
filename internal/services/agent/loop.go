// File: internal/services/agent/loop.go
package agent

import (
    "context"
    "errors"
    "fmt"
    "path/filepath"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/hyewonk/go-datatalk/internal/domain"
    "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    "github.com/hyewonk/go-datatalk/internal/services/ai"
    "github.com/hyewonk/go-datatalk/internal/services/query"
)

// Fixed terminal messages for the soft failure paths.
const (
    msgNoDataset = "There is no processed dataset to query yet. Please upload a data file and wait for processing to finish."
    msgNoRows    = "The query returned no rows. There is no data matching that question."

    truncationNotice = "\n\n(The answer was cut short because the conversation reached its turn limit. Ask a follow-up question to continue.)"
)

// CompletionGateway is the single model call the loop depends on.
type CompletionGateway interface {
    Complete(ctx context.Context, systemPrompt string, history []ai.Turn, message string) (string, error)
}

// QueryExecutor runs SQL against a dataset store.
type QueryExecutor interface {
    Execute(ctx context.Context, storePath, sqlText string) (*query.Result, error)
}

// ChartRenderer executes plotting code and writes the artifact.
type ChartRenderer interface {
    Render(ctx context.Context, code, outputPath string) error
}

// MessageStore appends messages to the conversation record. Insertion order
// is the ordering guarantee later turns rebuild context from.
type MessageStore interface {
    Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
}

// DatasetResolver finds a fallback dataset when the chat has none bound.
type DatasetResolver interface {
    LatestCompletedByUserID(ctx context.Context, userID uint) (*domain.Dataset, error)
}

// Request is one user turn against a conversation.
type Request struct {
    ChatID       uint
    UserID       uint
    SystemPrompt string
    // Dataset is the chat-bound dataset, or nil to fall back to the user's
    // most recently completed one at dispatch time.
    Dataset *domain.Dataset
    // History is the prior conversation, tool messages already excluded.
    History []ai.Turn
    Message string
    // MessagePersisted marks the user message as already stored, as when
    // chat creation wrote the opening message transactionally.
    MessagePersisted bool
}

// Result is the terminal outcome of a loop run.
type Result struct {
    Text     string
    ImageURL string
}

// Loop drives the turn-by-turn protocol: call the model, classify the reply,
// dispatch tools, feed results back, and stop on a terminal reply or the
// iteration cap. It runs synchronously; the cap is the only bound on total
// duration.
type Loop struct {
    config   *Config
    gateway  CompletionGateway
    sqlgen   *SQLGenerator
    queries  QueryExecutor
    charts   ChartRenderer
    messages MessageStore
    datasets DatasetResolver
    logger   Logger
    now      func() time.Time
}

// Logger is the key/value logging interface shared across services.
type Logger interface {
    Info(msg string, keysAndValues ...interface{})
    Error(msg string, keysAndValues ...interface{})
    Debug(msg string, keysAndValues ...interface{})
    Warn(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func NewLoop(
    config *Config,
    gateway CompletionGateway,
    sqlgen *SQLGenerator,
    queries QueryExecutor,
    charts ChartRenderer,
    messages MessageStore,
    datasets DatasetResolver,
    logger Logger,
) (*Loop, error) {
    if config == nil {
        config = DefaultConfig()
    }
    if err := config.Validate(); err != nil {
        return nil, &AgentError{Type: ErrTypeConfig, Operation: "constructor", Message: err.Error()}
    }
    if gateway == nil {
        return nil, NewValidationError("constructor", "completion gateway is required")
    }
    if sqlgen == nil {
        return nil, NewValidationError("constructor", "SQL generator is required")
    }
    if queries == nil {
        return nil, NewValidationError("constructor", "query executor is required")
    }
    if charts == nil {
        return nil, NewValidationError("constructor", "chart renderer is required")
    }
    if messages == nil {
        return nil, NewValidationError("constructor", "message store is required")
    }
    if datasets == nil {
        return nil, NewValidationError("constructor", "dataset resolver is required")
    }
    if logger == nil {
        logger = nopLogger{}
    }

    return &Loop{
        config:   config,
        gateway:  gateway,
        sqlgen:   sqlgen,
        queries:  queries,
        charts:   charts,
        messages: messages,
        datasets: datasets,
        logger:   logger,
        now:      time.Now,
    }, nil
}

// Run executes one user turn to a terminal state. Gateway failures propagate
// as errors without persisting a partial turn; every other failure becomes an
// assistant-visible terminal message so the conversation stays coherent.
func (l *Loop) Run(ctx context.Context, req Request) (*Result, error) {
    if req.ChatID == 0 || req.UserID == 0 {
        return nil, NewValidationError("run", "chat ID and user ID are required")
    }
    if req.Message == "" {
        return nil, NewValidationError("run", "message cannot be empty")
    }

    turns := make([]ai.Turn, len(req.History))
    copy(turns, req.History)

    pending := req.Message
    userPersisted := req.MessagePersisted

    // lastText holds the most recent user-facing assistant text. Tool
    // dispatches never update it; their marker-bearing replies must not
    // surface in an exhaustion terminal.
    var lastText string
    var imageURL string
    var prevReply string

    for i := 0; i < l.config.MaxIterations; i++ {
        raw, err := l.gateway.Complete(ctx, req.SystemPrompt, turns, pending)
        if err != nil {
            return nil, NewGatewayError("complete", err)
        }

        // The turn is now underway; record the user message that opened it.
        if !userPersisted {
            if err := l.persist(ctx, req.ChatID, domain.RoleUser, req.Message, ""); err != nil {
                return nil, err
            }
            userPersisted = true
        }

        // Date placeholders may sit inside tool payloads, so substitution
        // happens on every reply before marker matching.
        resolved, err := SubstituteDates(raw, l.now())
        if err != nil {
            return l.failTerminal(ctx, req.ChatID, imageURL,
                NewPlaceholderError("malformed date expression in model reply", err))
        }

        reply := Classify(resolved)
        l.logger.Debug("model reply classified", "chat_id", req.ChatID, "iteration", i, "kind", reply.Kind.String())

        switch reply.Kind {
        case KindSQL:
            toolResult, res, err := l.dispatchSQL(ctx, req, resolved, reply.Payload)
            if err != nil {
                return nil, err
            }
            if res != nil {
                return res, nil
            }
            turns = append(turns,
                ai.Turn{Role: ai.RoleUser, Content: pending},
                ai.Turn{Role: ai.RoleAssistant, Content: resolved},
            )
            pending = toolResult

        case KindPlot:
            toolResult, url, res, err := l.dispatchPlot(ctx, req, resolved, imageURL)
            if err != nil {
                return nil, err
            }
            if res != nil {
                return res, nil
            }
            imageURL = url
            turns = append(turns,
                ai.Turn{Role: ai.RoleUser, Content: pending},
                ai.Turn{Role: ai.RoleAssistant, Content: resolved},
            )
            pending = toolResult

        case KindAskUser:
            if err := l.persist(ctx, req.ChatID, domain.RoleAssistant, reply.Text, imageURL); err != nil {
                return nil, err
            }
            return &Result{Text: reply.Text, ImageURL: imageURL}, nil

        case KindContinue:
            // No progress detection beyond the identical-reply check: a
            // model that repeats itself verbatim is burning budget, not
            // elaborating.
            if resolved == prevReply {
                l.logger.Warn("identical continue reply detected", "chat_id", req.ChatID, "iteration", i)
                return l.exhaust(ctx, req.ChatID, reply.Text, imageURL)
            }
            if err := l.persist(ctx, req.ChatID, domain.RoleAssistant, reply.Text, ""); err != nil {
                return nil, err
            }
            turns = append(turns,
                ai.Turn{Role: ai.RoleUser, Content: pending},
                ai.Turn{Role: ai.RoleAssistant, Content: resolved},
            )
            pending = "Continue."
            lastText = reply.Text

        case KindFinal:
            if err := l.persist(ctx, req.ChatID, domain.RoleAssistant, reply.Text, imageURL); err != nil {
                return nil, err
            }
            return &Result{Text: reply.Text, ImageURL: imageURL}, nil
        }

        prevReply = resolved
    }

    return l.exhaust(ctx, req.ChatID, lastText, imageURL)
}

// dispatchSQL runs the SQL tool. It returns either the tool-result text to
// feed back to the model, or a terminal Result for the soft/hard failure
// short-circuits.
func (l *Loop) dispatchSQL(ctx context.Context, req Request, rawReply, question string) (string, *Result, error) {
    if err := l.persist(ctx, req.ChatID, domain.RoleTool, rawReply, ""); err != nil {
        return "", nil, err
    }

    ds := req.Dataset
    if ds == nil {
        resolvedDS, err := l.datasets.LatestCompletedByUserID(ctx, req.UserID)
        if err != nil {
            if errors.Is(err, dataset.ErrDatasetNotFound) {
                res, perr := l.terminal(ctx, req.ChatID, msgNoDataset, "")
                return "", res, perr
            }
            return "", nil, err
        }
        ds = resolvedDS
    }
    // A bound dataset may have been observed mid-ingestion; pending,
    // processing and failed are uniformly unusable.
    if !ds.Usable() {
        res, err := l.terminal(ctx, req.ChatID, msgNoDataset, "")
        return "", res, err
    }

    sqlText, err := l.sqlgen.Generate(ctx, question, ds.SchemaText)
    if err != nil {
        return "", nil, NewGatewayError("synthesize", err)
    }
    // Synthesized SQL may carry placeholders the reply-level pass never saw.
    sqlText, err = SubstituteDates(sqlText, l.now())
    if err != nil {
        res, perr := l.failTerminal(ctx, req.ChatID, "",
            NewPlaceholderError("malformed date expression in synthesized SQL", err))
        return "", res, perr
    }
    if err := l.persist(ctx, req.ChatID, domain.RoleTool, "SQL: "+sqlText, ""); err != nil {
        return "", nil, err
    }

    result, err := l.queries.Execute(ctx, ds.StorePath, sqlText)
    if err != nil {
        l.logger.Error("query execution failed", "chat_id", req.ChatID, "error", err)
        text := fmt.Sprintf("The query could not be executed: %v", err)
        res, perr := l.terminal(ctx, req.ChatID, text, "")
        return "", res, perr
    }
    if result.Empty() {
        res, perr := l.terminal(ctx, req.ChatID, msgNoRows, "")
        return "", res, perr
    }

    preview := result.Preview(5)
    if err := l.persist(ctx, req.ChatID, domain.RoleTool, "Result preview:\n"+preview, ""); err != nil {
        return "", nil, err
    }

    return "Query result:\n" + preview, nil, nil
}

// dispatchPlot runs the chart tool, returning the tool-result text and the
// artifact URL, or a terminal Result on failure.
func (l *Loop) dispatchPlot(ctx context.Context, req Request, rawReply, priorImageURL string) (string, string, *Result, error) {
    if err := l.persist(ctx, req.ChatID, domain.RoleTool, rawReply, ""); err != nil {
        return "", "", nil, err
    }

    code, ok := ExtractGoFence(rawReply)
    if !ok {
        res, err := l.failTerminal(ctx, req.ChatID, priorImageURL,
            NewExtractionError("plot", "chart request carried no fenced Go code"))
        return "", "", res, err
    }

    fileName := uuid.New().String() + ".png"
    outputPath := filepath.Join(l.config.ChartDir, fileName)
    if err := l.charts.Render(ctx, code, outputPath); err != nil {
        l.logger.Error("chart rendering failed", "chat_id", req.ChatID, "error", err)
        text := fmt.Sprintf("The chart could not be rendered: %v", err)
        res, perr := l.terminal(ctx, req.ChatID, text, "")
        return "", "", res, perr
    }

    imageURL := l.config.ChartURLPrefix + fileName
    if err := l.persist(ctx, req.ChatID, domain.RoleTool, "Chart saved: "+imageURL, imageURL); err != nil {
        return "", "", nil, err
    }

    toolResult := "The chart was rendered and saved. Reference it as " + imageURL + " in your answer."
    return toolResult, imageURL, nil, nil
}

// terminal persists an assistant message and ends the loop with it.
func (l *Loop) terminal(ctx context.Context, chatID uint, text, imageURL string) (*Result, error) {
    if err := l.persist(ctx, chatID, domain.RoleAssistant, text, imageURL); err != nil {
        return nil, err
    }
    return &Result{Text: text, ImageURL: imageURL}, nil
}

// failTerminal records a hard tool failure as an assistant-visible message.
func (l *Loop) failTerminal(ctx context.Context, chatID uint, imageURL string, agentErr *AgentError) (*Result, error) {
    l.logger.Error("loop terminated by tool failure", "chat_id", chatID, "error", agentErr)
    text := fmt.Sprintf("I ran into a problem and had to stop: %s", agentErr.Message)
    return l.terminal(ctx, chatID, text, imageURL)
}

// exhaust ends the loop with the iteration-cap truncation notice appended to
// whatever partial text exists.
func (l *Loop) exhaust(ctx context.Context, chatID uint, lastText, imageURL string) (*Result, error) {
    text := strings.TrimSpace(lastText + truncationNotice)
    l.logger.Warn("iteration budget exhausted", "chat_id", chatID)
    return l.terminal(ctx, chatID, text, imageURL)
}

func (l *Loop) persist(ctx context.Context, chatID uint, role, content, imageURL string) error {
    _, err := l.messages.Create(ctx, &domain.Message{
        ChatID:   chatID,
        Role:     role,
        Content:  content,
        ImageURL: imageURL,
    })
    if err != nil {
        return &AgentError{Type: ErrTypeStore, Operation: "persist", Message: "failed to persist message", ChatID: chatID, Cause: err}
    }
    return nil
}
