package chat

import (
    "context"

    "github.com/hyewonk/go-datatalk/internal/domain"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
    // CreateWithFirstMessage creates the chat and its first user message in
    // one transaction, so a conversation never exists without its opening turn.
    CreateWithFirstMessage(ctx context.Context, chat *domain.Chat, firstMessage string) (*domain.Chat, error)
    FindByID(ctx context.Context, id uint) (*domain.Chat, error)
    FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error)
    UpdateTitle(ctx context.Context, chatID uint, title string) error
    Delete(ctx context.Context, chatID uint, userID uint) error
    TouchUpdatedAt(ctx context.Context, chatID uint) error
}
