// File: internal/services/dataset_service_test.go
package services

import (
    "context"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/glebarez/sqlite"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/gorm"
    gormlogger "gorm.io/gorm/logger"

    "github.com/hyewonk/go-datatalk/internal/domain"
    datasetrepo "github.com/hyewonk/go-datatalk/internal/repository/dataset"
    "github.com/hyewonk/go-datatalk/internal/services/ingest"
)

// The service-layer loggers must keep satisfying the ingestor's local
// logging interface.
var (
    _ ingest.Logger = (*ProductionLogger)(nil)
    _ ingest.Logger = (*NoOpLogger)(nil)
)

func newDatasetFixture(t *testing.T) (*DatasetService, datasetrepo.DatasetRepository, string) {
    t.Helper()

    dataDir := t.TempDir()
    db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
        Logger: gormlogger.Default.LogMode(gormlogger.Silent),
    })
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(&domain.Dataset{}))

    repo := datasetrepo.NewDatasetRepository(db)
    service, err := NewDatasetService(repo, ingest.NewIngestor(nil), dataDir, &NoOpLogger{})
    require.NoError(t, err)
    return service, repo, dataDir
}

func awaitIngestion(t *testing.T, done <-chan struct{}) {
    t.Helper()
    select {
    case <-done:
    case <-time.After(10 * time.Second):
        t.Fatal("ingestion never finished")
    }
}

func TestUploadIngestsCSVInBackground(t *testing.T) {
    service, repo, dataDir := newDatasetFixture(t)

    csv := "day,amount\n2024-05-13,1000\n2024-05-14,2500\n"
    ds, done, err := service.Upload(context.Background(), 1, "sales.csv", domain.CategoryRetail, strings.NewReader(csv))
    require.NoError(t, err)
    assert.Equal(t, domain.DatasetStatusPending, ds.Status)
    assert.Equal(t, "sales", ds.Name)
    assert.Equal(t, domain.CategoryRetail, ds.Category)

    awaitIngestion(t, done)

    loaded, err := repo.FindByID(context.Background(), ds.ID)
    require.NoError(t, err)
    assert.Equal(t, domain.DatasetStatusCompleted, loaded.Status)
    assert.Contains(t, loaded.SchemaText, "day TEXT, amount INTEGER")
    assert.True(t, strings.HasPrefix(loaded.StorePath, dataDir))

    _, err = os.Stat(loaded.StorePath)
    require.NoError(t, err)

    latest, err := repo.LatestCompletedByUserID(context.Background(), 1)
    require.NoError(t, err)
    assert.Equal(t, ds.ID, latest.ID)
}

func TestUploadMarksMalformedFileFailed(t *testing.T) {
    service, repo, _ := newDatasetFixture(t)

    // Valid extension, but not a workbook.
    ds, done, err := service.Upload(context.Background(), 1, "broken.xlsx", domain.CategoryGeneral, strings.NewReader("not an xlsx"))
    require.NoError(t, err)
    awaitIngestion(t, done)

    loaded, err := repo.FindByID(context.Background(), ds.ID)
    require.NoError(t, err)
    assert.Equal(t, domain.DatasetStatusFailed, loaded.Status)
    assert.NotEmpty(t, loaded.LastError)
    assert.False(t, loaded.Usable())
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
    service, _, _ := newDatasetFixture(t)

    _, _, err := service.Upload(context.Background(), 1, "notes.txt", domain.CategoryGeneral, strings.NewReader("x"))
    var svcErr *ServiceError
    require.ErrorAs(t, err, &svcErr)
    assert.Equal(t, ErrTypeValidation, svcErr.Type)
}

func TestUploadRejectsUnknownCategory(t *testing.T) {
    service, _, _ := newDatasetFixture(t)

    _, _, err := service.Upload(context.Background(), 1, "sales.csv", 9, strings.NewReader("a\n1\n"))
    var svcErr *ServiceError
    require.ErrorAs(t, err, &svcErr)
    assert.Equal(t, ErrTypeValidation, svcErr.Type)
}

func TestDeleteRemovesBackingFiles(t *testing.T) {
    service, _, _ := newDatasetFixture(t)

    ds, done, err := service.Upload(context.Background(), 1, "sales.csv", domain.CategoryGeneral,
        strings.NewReader("a\n1\n"))
    require.NoError(t, err)
    awaitIngestion(t, done)

    loaded, err := service.Get(context.Background(), 1, ds.ID)
    require.NoError(t, err)
    storePath := loaded.StorePath

    require.NoError(t, service.Delete(context.Background(), 1, ds.ID))

    _, err = os.Stat(storePath)
    assert.True(t, os.IsNotExist(err))
    _, err = service.Get(context.Background(), 1, ds.ID)
    assert.Error(t, err)
}

func TestGetEnforcesOwnership(t *testing.T) {
    service, repo, _ := newDatasetFixture(t)

    ds, err := repo.Create(context.Background(), &domain.Dataset{UserID: 2, Name: "theirs"})
    require.NoError(t, err)

    _, err = service.Get(context.Background(), 1, ds.ID)
    var svcErr *ServiceError
    require.ErrorAs(t, err, &svcErr)
    assert.Equal(t, ErrTypeUnauthorized, svcErr.Type)
}
