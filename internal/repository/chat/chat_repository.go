package chat

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "unicode/utf8"

    "github.com/hyewonk/go-datatalk/internal/domain"
    "gorm.io/gorm"
)

var ErrChatNotFound = errors.New("chat not found")
var ErrUnauthorizedAccess = errors.New("unauthorized access to chat")

type gormChatRepository struct {
    db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
    return &gormChatRepository{db: db}
}

// CreateWithFirstMessage creates the chat and its opening user message
// atomically. A half-created conversation would break context rebuilding on
// later turns.
func (r *gormChatRepository) CreateWithFirstMessage(ctx context.Context, chat *domain.Chat, firstMessage string) (*domain.Chat, error) {
    if err := r.validateChatInput(chat); err != nil {
        log.Printf("[ChatRepository] Validation failed: %v", err)
        return nil, fmt.Errorf("validation failed: %w", err)
    }
    if strings.TrimSpace(firstMessage) == "" {
        return nil, errors.New("first message cannot be empty")
    }

    err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        if err := tx.Create(chat).Error; err != nil {
            return err
        }
        msg := &domain.Message{
            ChatID:  chat.ID,
            Role:    domain.RoleUser,
            Content: firstMessage,
        }
        return tx.Create(msg).Error
    })
    if err != nil {
        log.Printf("[ChatRepository] Database error during chat creation for user ID %d: %v", chat.UserID, err)
        return nil, errors.New("database error creating chat")
    }

    log.Printf("[ChatRepository] Chat created successfully with ID: %d for user: %d", chat.ID, chat.UserID)
    return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID uint) (*domain.Chat, error) {
    if chatID == 0 {
        return nil, errors.New("invalid chat ID")
    }

    var chat domain.Chat
    err := r.db.WithContext(ctx).First(&chat, chatID).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrChatNotFound
        }
        log.Printf("[ChatRepository] Database error in FindByID for chat ID %d: %v", chatID, err)
        return nil, errors.New("database error fetching chat")
    }
    return &chat, nil
}

func (r *gormChatRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error) {
    if userID == 0 {
        return nil, errors.New("invalid user ID")
    }

    var chats []domain.Chat
    err := r.db.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("updated_at DESC, id DESC").
        Find(&chats).Error

    if err != nil {
        log.Printf("[ChatRepository] Database error finding chats for user ID %d: %v", userID, err)
        return nil, errors.New("database error fetching chats")
    }

    return chats, nil
}

// UpdateTitle replaces the provisional title assigned at creation. Only the
// title field is touched; messages are append-only.
func (r *gormChatRepository) UpdateTitle(ctx context.Context, chatID uint, title string) error {
    if chatID == 0 {
        return errors.New("invalid chat ID")
    }
    if strings.TrimSpace(title) == "" {
        return errors.New("title cannot be empty")
    }

    result := r.db.WithContext(ctx).
        Model(&domain.Chat{}).
        Where("id = ?", chatID).
        Update("title", title)

    if result.Error != nil {
        log.Printf("[ChatRepository] Database error updating title for chat ID %d: %v", chatID, result.Error)
        return errors.New("database error updating chat title")
    }
    if result.RowsAffected == 0 {
        return ErrChatNotFound
    }
    return nil
}

func (r *gormChatRepository) Delete(ctx context.Context, chatID, userID uint) error {
    if chatID == 0 || userID == 0 {
        return errors.New("invalid chat ID or user ID")
    }

    result := r.db.WithContext(ctx).
        Where("id = ? AND user_id = ?", chatID, userID).
        Delete(&domain.Chat{})

    if result.Error != nil {
        log.Printf("[ChatRepository] Database error deleting chat ID %d for user ID %d: %v", chatID, userID, result.Error)
        return errors.New("database error deleting chat")
    }

    if result.RowsAffected == 0 {
        return ErrUnauthorizedAccess
    }

    log.Printf("[ChatRepository] Chat deleted successfully: ID %d for user %d", chatID, userID)
    return nil
}

func (r *gormChatRepository) TouchUpdatedAt(ctx context.Context, chatID uint) error {
    if chatID == 0 {
        return errors.New("invalid chat ID")
    }

    result := r.db.WithContext(ctx).
        Model(&domain.Chat{}).
        Where("id = ?", chatID).
        Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP"))

    if result.Error != nil {
        log.Printf("[ChatRepository] Database error updating timestamp for chat ID %d: %v", chatID, result.Error)
        return errors.New("database error updating chat timestamp")
    }

    if result.RowsAffected == 0 {
        return ErrChatNotFound
    }

    return nil
}

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
    if chat == nil {
        return errors.New("chat cannot be nil")
    }
    if chat.UserID == 0 {
        return errors.New("chat must have a valid user ID")
    }
    // Titles are multibyte in practice, so the limit counts runes, not bytes.
    if utf8.RuneCountInString(chat.Title) > 255 {
        return errors.New("chat title too long")
    }
    return nil
}
