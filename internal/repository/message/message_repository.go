package message

import (
    "context"
    "errors"
    "fmt"
    "log"

    "github.com/hyewonk/go-datatalk/internal/domain"
    "gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
    db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
    return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
    if err := r.validateMessageInput(message); err != nil {
        log.Printf("[MessageRepository] Validation failed: %v", err)
        return nil, fmt.Errorf("validation failed: %w", err)
    }

    err := r.db.WithContext(ctx).Create(message).Error
    if err != nil {
        log.Printf("[MessageRepository] Database error during message creation for chat ID %d: %v", message.ChatID, err)
        return nil, errors.New("database error creating message")
    }

    return message, nil
}

// FindByChatID returns messages ordered by insertion. Append order is the
// sole ordering guarantee later turns rely on when rebuilding context.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID uint, excludeRoles ...string) ([]domain.Message, error) {
    if chatID == 0 {
        return nil, errors.New("invalid chat ID")
    }

    q := r.db.WithContext(ctx).
        Where("chat_id = ?", chatID).
        Order("id asc")
    if len(excludeRoles) > 0 {
        q = q.Where("role NOT IN ?", excludeRoles)
    }

    var messages []domain.Message
    if err := q.Find(&messages).Error; err != nil {
        log.Printf("[MessageRepository] Database error finding messages for chat ID %d: %v", chatID, err)
        return nil, errors.New("database error fetching messages")
    }

    return messages, nil
}

func (r *gormMessageRepository) CountByChatID(ctx context.Context, chatID uint) (int64, error) {
    if chatID == 0 {
        return 0, errors.New("invalid chat ID")
    }

    var count int64
    err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&count).Error
    if err != nil {
        log.Printf("[MessageRepository] Database error counting messages for chat ID %d: %v", chatID, err)
        return 0, errors.New("database error counting messages")
    }

    return count, nil
}

func (r *gormMessageRepository) DeleteByChatID(ctx context.Context, chatID uint) error {
    if chatID == 0 {
        return errors.New("invalid chat ID")
    }

    result := r.db.WithContext(ctx).
        Where("chat_id = ?", chatID).
        Delete(&domain.Message{})

    if result.Error != nil {
        log.Printf("[MessageRepository] Database error deleting messages for chat ID %d: %v", chatID, result.Error)
        return errors.New("database error deleting messages")
    }

    log.Printf("[MessageRepository] Deleted %d messages for chat %d", result.RowsAffected, chatID)
    return nil
}

func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
    if message == nil {
        return errors.New("message cannot be nil")
    }
    if message.ChatID == 0 {
        return errors.New("message must have a valid chat ID")
    }
    switch message.Role {
    case domain.RoleUser, domain.RoleAssistant, domain.RoleTool:
    default:
        return fmt.Errorf("invalid message role: %q", message.Role)
    }
    if message.Content == "" {
        return errors.New("message content cannot be empty")
    }
    return nil
}
