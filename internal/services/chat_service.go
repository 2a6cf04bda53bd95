// File: internal/services/chat_service.go
package services

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/hyewonk/go-datatalk/internal/domain"
    chatrepo "github.com/hyewonk/go-datatalk/internal/repository/chat"
    datasetrepo "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    messagerepo "github.com/hyewonk/go-datatalk/internal/repository/message"
    "github.com/hyewonk/go-datatalk/internal/services/agent"
    "github.com/hyewonk/go-datatalk/internal/services/ai"
)

const (
    maxTitleLength = 100
    titleTimeout   = 15 * time.Second

    titleSystemPrompt = "You write a short title (at most six words, no quotes) " +
        "for a conversation that starts with the given message. " +
        "Answer in the language of the message."
)

// ChatService owns conversation lifecycle: creation with the opening turn,
// follow-up turns through the agent loop, listing, history and deletion.
type ChatService struct {
    chatRepo    chatrepo.ChatRepository
    messageRepo messagerepo.MessageRepository
    datasetRepo datasetrepo.DatasetRepository
    loop        *agent.Loop
    prompts     *agent.PromptTable
    gateway     agent.CompletionGateway
    logger      Logger
}

func NewChatService(
    chatRepo chatrepo.ChatRepository,
    messageRepo messagerepo.MessageRepository,
    datasetRepo datasetrepo.DatasetRepository,
    loop *agent.Loop,
    gateway agent.CompletionGateway,
    logger Logger,
) (*ChatService, error) {
    if chatRepo == nil {
        return nil, NewValidationError("constructor", "chat repository is required")
    }
    if messageRepo == nil {
        return nil, NewValidationError("constructor", "message repository is required")
    }
    if datasetRepo == nil {
        return nil, NewValidationError("constructor", "dataset repository is required")
    }
    if loop == nil {
        return nil, NewValidationError("constructor", "agent loop is required")
    }
    if gateway == nil {
        return nil, NewValidationError("constructor", "completion gateway is required")
    }
    if logger == nil {
        logger = &NoOpLogger{}
    }

    return &ChatService{
        chatRepo:    chatRepo,
        messageRepo: messageRepo,
        datasetRepo: datasetRepo,
        loop:        loop,
        prompts:     agent.DefaultPromptTable(),
        gateway:     gateway,
        logger:      logger,
    }, nil
}

// StartChat creates a conversation from its opening message and runs the
// first agent turn. When datasetID is non-nil the dataset must belong to the
// user and be fully processed; chats are never bound to half-ingested data.
func (s *ChatService) StartChat(ctx context.Context, userID uint, message string, datasetID *uint) (*domain.Chat, *agent.Result, error) {
    message = strings.TrimSpace(message)
    if message == "" {
        return nil, nil, NewValidationError("start_chat", "message cannot be empty")
    }

    var ds *domain.Dataset
    if datasetID != nil {
        found, err := s.getOwnedDataset(ctx, userID, *datasetID, "start_chat")
        if err != nil {
            return nil, nil, err
        }
        if !found.Usable() {
            return nil, nil, NewValidationError("start_chat", "dataset has not finished processing")
        }
        ds = found
    }

    newChat := &domain.Chat{UserID: userID, DatasetID: datasetID, Title: truncateTitle(message)}
    created, err := s.chatRepo.CreateWithFirstMessage(ctx, newChat, message)
    if err != nil {
        return nil, nil, NewInternalError("start_chat", "could not create chat", err)
    }

    go s.generateTitle(created.ID, message)

    result, err := s.loop.Run(ctx, agent.Request{
        ChatID:           created.ID,
        UserID:           userID,
        SystemPrompt:     s.systemPrompt(ds),
        Dataset:          ds,
        Message:          message,
        MessagePersisted: true,
    })
    if err != nil {
        // The chat and its opening message survive a gateway failure; the
        // user can retry with a follow-up.
        return created, nil, err
    }

    return created, result, nil
}

// ContinueChat runs one follow-up turn against an existing conversation.
func (s *ChatService) ContinueChat(ctx context.Context, userID, chatID uint, message string) (*agent.Result, error) {
    message = strings.TrimSpace(message)
    if message == "" {
        return nil, NewValidationError("continue_chat", "message cannot be empty")
    }

    chat, err := s.getOwnedChat(ctx, userID, chatID, "continue_chat")
    if err != nil {
        return nil, err
    }

    var ds *domain.Dataset
    if chat.DatasetID != nil {
        ds, err = s.getOwnedDataset(ctx, userID, *chat.DatasetID, "continue_chat")
        if err != nil {
            return nil, err
        }
    }

    history, err := s.loadHistory(ctx, chatID)
    if err != nil {
        return nil, err
    }

    result, err := s.loop.Run(ctx, agent.Request{
        ChatID:       chatID,
        UserID:       userID,
        SystemPrompt: s.systemPrompt(ds),
        Dataset:      ds,
        History:      history,
        Message:      message,
    })
    if err != nil {
        return nil, err
    }

    if err := s.chatRepo.TouchUpdatedAt(ctx, chatID); err != nil {
        s.logger.Warn("failed to bump chat recency", "chat_id", chatID, "error", err)
    }

    return result, nil
}

func (s *ChatService) GetUserChats(ctx context.Context, userID uint) ([]domain.Chat, error) {
    chats, err := s.chatRepo.FindByUserID(ctx, userID)
    if err != nil {
        return nil, NewInternalError("get_user_chats", "could not list chats", err)
    }
    return chats, nil
}

// GetChatMessages returns the user-visible transcript; tool records are
// internal and stay out of it.
func (s *ChatService) GetChatMessages(ctx context.Context, userID, chatID uint) ([]domain.Message, error) {
    if _, err := s.getOwnedChat(ctx, userID, chatID, "get_chat_messages"); err != nil {
        return nil, err
    }
    messages, err := s.messageRepo.FindByChatID(ctx, chatID, domain.RoleTool)
    if err != nil {
        return nil, NewInternalError("get_chat_messages", "could not load messages", err)
    }
    return messages, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID uint) error {
    if _, err := s.getOwnedChat(ctx, userID, chatID, "delete_chat"); err != nil {
        return err
    }
    if err := s.messageRepo.DeleteByChatID(ctx, chatID); err != nil {
        return NewInternalError("delete_chat", "could not delete messages", err)
    }
    if err := s.chatRepo.Delete(ctx, chatID, userID); err != nil {
        return NewInternalError("delete_chat", "could not delete chat", err)
    }
    return nil
}

// systemPrompt selects the category prompt and splices in the schema when a
// dataset is bound up front. The general prompt covers the fallback case.
func (s *ChatService) systemPrompt(ds *domain.Dataset) string {
    if ds == nil {
        return s.prompts.ForCategory(domain.CategoryGeneral)
    }
    return agent.WithSchema(s.prompts.ForCategory(ds.Category), ds.SchemaText)
}

// loadHistory rebuilds the model-facing conversation from the message log.
func (s *ChatService) loadHistory(ctx context.Context, chatID uint) ([]ai.Turn, error) {
    messages, err := s.messageRepo.FindByChatID(ctx, chatID, domain.RoleTool)
    if err != nil {
        return nil, NewInternalError("load_history", "could not load messages", err)
    }

    turns := make([]ai.Turn, 0, len(messages))
    for _, m := range messages {
        switch m.Role {
        case domain.RoleUser:
            turns = append(turns, ai.Turn{Role: ai.RoleUser, Content: m.Content})
        case domain.RoleAssistant:
            turns = append(turns, ai.Turn{Role: ai.RoleAssistant, Content: m.Content})
        }
    }
    return turns, nil
}

// generateTitle asks the model for a concise title after creation; the
// truncated opening message already serves until (and if) it lands.
func (s *ChatService) generateTitle(chatID uint, message string) {
    ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
    defer cancel()

    title, err := s.gateway.Complete(ctx, titleSystemPrompt, nil, message)
    if err != nil {
        s.logger.Warn("title generation failed", "chat_id", chatID, "error", err)
        return
    }
    title = truncateTitle(strings.Trim(strings.TrimSpace(title), `"`))
    if title == "" {
        return
    }
    if err := s.chatRepo.UpdateTitle(ctx, chatID, title); err != nil {
        s.logger.Warn("failed to store generated title", "chat_id", chatID, "error", err)
    }
}

func (s *ChatService) getOwnedChat(ctx context.Context, userID, chatID uint, operation string) (*domain.Chat, error) {
    chat, err := s.chatRepo.FindByID(ctx, chatID)
    if err != nil {
        if errors.Is(err, chatrepo.ErrChatNotFound) {
            return nil, NewNotFoundError(operation, "chat not found")
        }
        return nil, NewInternalError(operation, "could not load chat", err)
    }
    if chat.UserID != userID {
        return nil, NewUnauthorizedError(operation, userID, chatID)
    }
    return chat, nil
}

func (s *ChatService) getOwnedDataset(ctx context.Context, userID, datasetID uint, operation string) (*domain.Dataset, error) {
    ds, err := s.datasetRepo.FindByID(ctx, datasetID)
    if err != nil {
        if errors.Is(err, datasetrepo.ErrDatasetNotFound) {
            return nil, NewNotFoundError(operation, "dataset not found")
        }
        return nil, NewInternalError(operation, "could not load dataset", err)
    }
    if ds.UserID != userID {
        return nil, NewUnauthorizedError(operation, userID, datasetID)
    }
    return ds, nil
}

func truncateTitle(s string) string {
    runes := []rune(s)
    if len(runes) <= maxTitleLength {
        return s
    }
    return string(runes[:maxTitleLength])
}
