package dataset

import (
    "context"
    "errors"
    "fmt"
    "log"

    "github.com/hyewonk/go-datatalk/internal/domain"
    "gorm.io/gorm"
)

var ErrDatasetNotFound = errors.New("dataset not found")
var ErrUnauthorizedDatasetAccess = errors.New("unauthorized access to dataset")

type gormDatasetRepository struct {
    db *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) DatasetRepository {
    return &gormDatasetRepository{db: db}
}

func (r *gormDatasetRepository) Create(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
    if err := r.validateDatasetInput(ds); err != nil {
        log.Printf("[DatasetRepository] Validation failed: %v", err)
        return nil, fmt.Errorf("validation failed: %w", err)
    }
    if ds.Status == "" {
        ds.Status = domain.DatasetStatusPending
    }

    err := r.db.WithContext(ctx).Create(ds).Error
    if err != nil {
        log.Printf("[DatasetRepository] Database error during dataset creation for user ID %d: %v", ds.UserID, err)
        return nil, errors.New("database error creating dataset")
    }

    log.Printf("[DatasetRepository] Dataset created successfully with ID: %d for user: %d", ds.ID, ds.UserID)
    return ds, nil
}

func (r *gormDatasetRepository) FindByID(ctx context.Context, id uint) (*domain.Dataset, error) {
    if id == 0 {
        return nil, errors.New("invalid dataset ID")
    }

    var ds domain.Dataset
    err := r.db.WithContext(ctx).First(&ds, id).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrDatasetNotFound
        }
        log.Printf("[DatasetRepository] Database error in FindByID for dataset ID %d: %v", id, err)
        return nil, errors.New("database error fetching dataset")
    }
    return &ds, nil
}

func (r *gormDatasetRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.Dataset, error) {
    if userID == 0 {
        return nil, errors.New("invalid user ID")
    }

    var datasets []domain.Dataset
    err := r.db.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("created_at DESC, id DESC").
        Find(&datasets).Error

    if err != nil {
        log.Printf("[DatasetRepository] Database error finding datasets for user ID %d: %v", userID, err)
        return nil, errors.New("database error fetching datasets")
    }

    return datasets, nil
}

func (r *gormDatasetRepository) LatestCompletedByUserID(ctx context.Context, userID uint) (*domain.Dataset, error) {
    if userID == 0 {
        return nil, errors.New("invalid user ID")
    }

    var ds domain.Dataset
    err := r.db.WithContext(ctx).
        Where("user_id = ? AND status = ?", userID, domain.DatasetStatusCompleted).
        Order("updated_at DESC, id DESC").
        First(&ds).Error

    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrDatasetNotFound
        }
        log.Printf("[DatasetRepository] Database error finding latest completed dataset for user ID %d: %v", userID, err)
        return nil, errors.New("database error fetching dataset")
    }

    return &ds, nil
}

func (r *gormDatasetRepository) UpdateStatus(ctx context.Context, id uint, status, lastError string) error {
    if id == 0 {
        return errors.New("invalid dataset ID")
    }
    switch status {
    case domain.DatasetStatusPending, domain.DatasetStatusProcessing,
        domain.DatasetStatusCompleted, domain.DatasetStatusFailed:
    default:
        return fmt.Errorf("invalid dataset status: %q", status)
    }

    result := r.db.WithContext(ctx).
        Model(&domain.Dataset{}).
        Where("id = ?", id).
        Updates(map[string]interface{}{"status": status, "last_error": lastError})

    if result.Error != nil {
        log.Printf("[DatasetRepository] Database error updating status for dataset ID %d: %v", id, result.Error)
        return errors.New("database error updating dataset status")
    }
    if result.RowsAffected == 0 {
        return ErrDatasetNotFound
    }
    return nil
}

func (r *gormDatasetRepository) SetResult(ctx context.Context, id uint, storePath, schemaText string) error {
    if id == 0 {
        return errors.New("invalid dataset ID")
    }
    if storePath == "" || schemaText == "" {
        return errors.New("store path and schema text are required")
    }

    result := r.db.WithContext(ctx).
        Model(&domain.Dataset{}).
        Where("id = ?", id).
        Updates(map[string]interface{}{
            "store_path":  storePath,
            "schema_text": schemaText,
            "status":      domain.DatasetStatusCompleted,
            "last_error":  "",
        })

    if result.Error != nil {
        log.Printf("[DatasetRepository] Database error recording result for dataset ID %d: %v", id, result.Error)
        return errors.New("database error recording dataset result")
    }
    if result.RowsAffected == 0 {
        return ErrDatasetNotFound
    }

    log.Printf("[DatasetRepository] Dataset %d marked completed", id)
    return nil
}

func (r *gormDatasetRepository) Delete(ctx context.Context, id, userID uint) error {
    if id == 0 || userID == 0 {
        return errors.New("invalid dataset ID or user ID")
    }

    result := r.db.WithContext(ctx).
        Where("id = ? AND user_id = ?", id, userID).
        Delete(&domain.Dataset{})

    if result.Error != nil {
        log.Printf("[DatasetRepository] Database error deleting dataset ID %d for user ID %d: %v", id, userID, result.Error)
        return errors.New("database error deleting dataset")
    }
    if result.RowsAffected == 0 {
        return ErrUnauthorizedDatasetAccess
    }

    log.Printf("[DatasetRepository] Dataset deleted successfully: ID %d for user %d", id, userID)
    return nil
}

func (r *gormDatasetRepository) validateDatasetInput(ds *domain.Dataset) error {
    if ds == nil {
        return errors.New("dataset cannot be nil")
    }
    if ds.UserID == 0 {
        return errors.New("dataset must have a valid user ID")
    }
    if ds.Name == "" {
        return errors.New("dataset name is required")
    }
    return nil
}
