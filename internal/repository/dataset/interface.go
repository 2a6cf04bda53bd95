package dataset

import (
	"context"

	"github.com/hyewonk/go-datatalk/internal/domain"
)

// DatasetRepository handles dataset records. The status field is written by
// the background ingestion task and read from the request path.
type DatasetRepository interface {
	Create(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error)
	FindByID(ctx context.Context, id uint) (*domain.Dataset, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.Dataset, error)
	// LatestCompletedByUserID returns the owner's most recently completed
	// dataset, or ErrDatasetNotFound when none exists.
	LatestCompletedByUserID(ctx context.Context, userID uint) (*domain.Dataset, error)
	UpdateStatus(ctx context.Context, id uint, status, lastError string) error
	// SetResult records the ingestion output and marks the dataset completed.
	SetResult(ctx context.Context, id uint, storePath, schemaText string) error
	Delete(ctx context.Context, id uint, userID uint) error
}
