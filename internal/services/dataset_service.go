// File: internal/services/dataset_service.go
package services

import (
    "context"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/hyewonk/go-datatalk/internal/domain"
    datasetrepo "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    "github.com/hyewonk/go-datatalk/internal/services/ingest"
)

const (
    uploadsSubdir = "uploads"
    storesSubdir  = "stores"

    ingestTimeout = 5 * time.Minute
)

// DatasetService accepts tabular uploads and runs ingestion in the
// background. The request path only ever observes the dataset status.
type DatasetService struct {
    datasetRepo datasetrepo.DatasetRepository
    ingestor    *ingest.Ingestor
    dataDir     string
    logger      Logger
}

func NewDatasetService(datasetRepo datasetrepo.DatasetRepository, ingestor *ingest.Ingestor, dataDir string, logger Logger) (*DatasetService, error) {
    if datasetRepo == nil {
        return nil, NewValidationError("constructor", "dataset repository is required")
    }
    if ingestor == nil {
        return nil, NewValidationError("constructor", "ingestor is required")
    }
    if dataDir == "" {
        return nil, NewValidationError("constructor", "data directory is required")
    }
    if logger == nil {
        logger = &NoOpLogger{}
    }
    return &DatasetService{datasetRepo: datasetRepo, ingestor: ingestor, dataDir: dataDir, logger: logger}, nil
}

// Upload stores the raw file, records a pending dataset and starts ingestion
// in the background. The returned channel closes when ingestion finishes,
// whatever the outcome; callers poll the dataset status for the result.
func (s *DatasetService) Upload(ctx context.Context, userID uint, fileName string, category int, src io.Reader) (*domain.Dataset, <-chan struct{}, error) {
    ext := strings.ToLower(filepath.Ext(fileName))
    if ext != ".csv" && ext != ".xlsx" {
        return nil, nil, NewValidationError("upload", fmt.Sprintf("unsupported file type %q, expected .csv or .xlsx", ext))
    }
    if category < domain.CategoryGeneral || category > domain.CategoryFashion {
        return nil, nil, NewValidationError("upload", fmt.Sprintf("unknown category %d", category))
    }

    uploadDir := filepath.Join(s.dataDir, uploadsSubdir)
    if err := os.MkdirAll(uploadDir, 0o755); err != nil {
        return nil, nil, NewInternalError("upload", "could not create upload directory", err)
    }

    id := uuid.New().String()
    uploadPath := filepath.Join(uploadDir, id+ext)
    dst, err := os.Create(uploadPath)
    if err != nil {
        return nil, nil, NewInternalError("upload", "could not store uploaded file", err)
    }
    if _, err := io.Copy(dst, src); err != nil {
        dst.Close()
        os.Remove(uploadPath)
        return nil, nil, NewInternalError("upload", "could not store uploaded file", err)
    }
    if err := dst.Close(); err != nil {
        os.Remove(uploadPath)
        return nil, nil, NewInternalError("upload", "could not store uploaded file", err)
    }

    ds := &domain.Dataset{
        UserID:       userID,
        Name:         strings.TrimSuffix(filepath.Base(fileName), ext),
        OriginalFile: uploadPath,
        Category:     category,
        Status:       domain.DatasetStatusPending,
    }
    created, err := s.datasetRepo.Create(ctx, ds)
    if err != nil {
        os.Remove(uploadPath)
        return nil, nil, NewInternalError("upload", "could not create dataset record", err)
    }

    storePath := filepath.Join(s.dataDir, storesSubdir, id+".db")
    done := make(chan struct{})
    go s.runIngestion(created.ID, uploadPath, storePath, done)

    return created, done, nil
}

// runIngestion is the background half of Upload. It owns the status
// transitions pending -> processing -> completed|failed.
func (s *DatasetService) runIngestion(datasetID uint, uploadPath, storePath string, done chan<- struct{}) {
    defer close(done)

    ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
    defer cancel()

    if err := s.datasetRepo.UpdateStatus(ctx, datasetID, domain.DatasetStatusProcessing, ""); err != nil {
        s.logger.Error("failed to mark dataset processing", "dataset_id", datasetID, "error", err)
        return
    }

    schema, err := s.ingestor.Ingest(ctx, uploadPath, storePath)
    if err != nil {
        s.logger.Error("ingestion failed", "dataset_id", datasetID, "error", err)
        if uerr := s.datasetRepo.UpdateStatus(ctx, datasetID, domain.DatasetStatusFailed, err.Error()); uerr != nil {
            s.logger.Error("failed to mark dataset failed", "dataset_id", datasetID, "error", uerr)
        }
        return
    }

    if err := s.datasetRepo.SetResult(ctx, datasetID, storePath, schema); err != nil {
        s.logger.Error("failed to record ingestion result", "dataset_id", datasetID, "error", err)
        return
    }
    s.logger.Info("dataset ingested", "dataset_id", datasetID, "store", storePath)
}

func (s *DatasetService) List(ctx context.Context, userID uint) ([]domain.Dataset, error) {
    datasets, err := s.datasetRepo.FindByUserID(ctx, userID)
    if err != nil {
        return nil, NewInternalError("list_datasets", "could not list datasets", err)
    }
    return datasets, nil
}

func (s *DatasetService) Get(ctx context.Context, userID, datasetID uint) (*domain.Dataset, error) {
    ds, err := s.datasetRepo.FindByID(ctx, datasetID)
    if err != nil {
        if errors.Is(err, datasetrepo.ErrDatasetNotFound) {
            return nil, NewNotFoundError("get_dataset", "dataset not found")
        }
        return nil, NewInternalError("get_dataset", "could not load dataset", err)
    }
    if ds.UserID != userID {
        return nil, NewUnauthorizedError("get_dataset", userID, datasetID)
    }
    return ds, nil
}

// Delete removes the record and both backing files. File removal is best
// effort; an orphaned file is preferable to a record that cannot die.
func (s *DatasetService) Delete(ctx context.Context, userID, datasetID uint) error {
    ds, err := s.Get(ctx, userID, datasetID)
    if err != nil {
        return err
    }
    if err := s.datasetRepo.Delete(ctx, datasetID, userID); err != nil {
        return NewInternalError("delete_dataset", "could not delete dataset", err)
    }
    for _, path := range []string{ds.OriginalFile, ds.StorePath} {
        if path == "" {
            continue
        }
        if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
            s.logger.Warn("failed to remove dataset file", "dataset_id", datasetID, "path", path, "error", err)
        }
    }
    return nil
}
