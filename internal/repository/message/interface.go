package message

import (
	"context"

	"github.com/hyewonk/go-datatalk/internal/domain"
)

// MessageRepository handles the append-only message log of a chat.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	// FindByChatID returns messages in append order. Roles listed in
	// excludeRoles are filtered out; history views and rebuilt model context
	// pass domain.RoleTool here.
	FindByChatID(ctx context.Context, chatID uint, excludeRoles ...string) ([]domain.Message, error)
	CountByChatID(ctx context.Context, chatID uint) (int64, error)
	DeleteByChatID(ctx context.Context, chatID uint) error
}
