// File: internal/domain/dataset.go
package domain

import "time"

// Dataset ingestion status. Written once by the background ingestion task,
// read-only from the request path.
const (
    DatasetStatusPending    = "pending"
    DatasetStatusProcessing = "processing"
    DatasetStatusCompleted  = "completed"
    DatasetStatusFailed     = "failed"
)

// Dataset business categories, used to select a system prompt variant.
const (
    CategoryGeneral = 0
    CategoryRetail  = 1
    CategoryFood    = 2
    CategoryFashion = 3
)

// Dataset is an uploaded tabular file converted into a queryable SQLite store
// plus a textual schema description for the SQL synthesizer.
type Dataset struct {
    ID           uint      `gorm:"primarykey" json:"id"`
    UserID       uint      `gorm:"not null" json:"user_id"`
    Name         string    `gorm:"not null" json:"name"`
    OriginalFile string    `json:"-"`
    StorePath    string    `json:"-"`
    SchemaText   string    `json:"schema_text,omitempty"`
    Category     int       `json:"category"`
    Status       string    `gorm:"not null;default:pending" json:"status"`
    LastError    string    `json:"last_error,omitempty"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}

// Usable reports whether the dataset can serve queries. Pending, processing
// and failed datasets are uniformly unusable.
func (d *Dataset) Usable() bool {
    return d.Status == DatasetStatusCompleted
}
