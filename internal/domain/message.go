// File: internal/domain/message.go
package domain

import "time"

// Message roles. Tool messages record raw model output, synthesized SQL and
// result previews for audit; they are excluded from user-facing history and
// from the context rebuilt on later turns.
const (
    RoleUser      = "user"
    RoleAssistant = "assistant"
    RoleTool      = "tool"
)

// Message represents a single message within a chat. Immutable once created.
type Message struct {
    ID        uint      `gorm:"primarykey" json:"id"`
    ChatID    uint      `json:"chat_id" gorm:"not null"`
    Role      string    `json:"role" gorm:"not null"`
    Content   string    `json:"content" gorm:"not null"`
    ImageURL  string    `json:"image_url,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}
