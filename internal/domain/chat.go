// File: internal/domain/chat.go
package domain

import "time"

// Chat represents a single conversation thread. A chat may be bound to one
// dataset; when DatasetID is nil the agent falls back to the owner's most
// recently completed dataset at query time.
type Chat struct {
    ID        uint      `gorm:"primarykey" json:"id"`
    UserID    uint      `gorm:"not null" json:"user_id"`
    DatasetID *uint     `json:"dataset_id,omitempty"`
    Title     string    `json:"title"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}
