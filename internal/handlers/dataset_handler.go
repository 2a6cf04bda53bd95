// File: internal/handlers/dataset_handler.go
package handlers

import (
    "net/http"
    "strconv"

    "github.com/hyewonk/go-datatalk/internal/services"
)

// maxUploadBytes bounds the multipart form size for dataset uploads.
const maxUploadBytes = 32 << 20

type DatasetHandler struct {
    DatasetService *services.DatasetService
}

func NewDatasetHandler(ds *services.DatasetService) *DatasetHandler {
    return &DatasetHandler{DatasetService: ds}
}

// Upload accepts a multipart form with a "file" part and an optional
// "category" field, stores the file and starts background ingestion. The
// response carries the pending dataset; clients poll for completion.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
    if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
        writeError(w, "Invalid or oversized upload", http.StatusBadRequest)
        return
    }

    file, header, err := r.FormFile("file")
    if err != nil {
        writeError(w, "File part is required", http.StatusBadRequest)
        return
    }
    defer file.Close()

    category := 0
    if raw := r.FormValue("category"); raw != "" {
        category, err = strconv.Atoi(raw)
        if err != nil {
            writeError(w, "Category must be an integer", http.StatusBadRequest)
            return
        }
    }

    ds, _, err := h.DatasetService.Upload(r.Context(), userID, header.Filename, category, file)
    if err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusAccepted, ds)
}

func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    datasets, err := h.DatasetService.List(r.Context(), userID)
    if err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, datasets)
}

// Get returns one dataset, typically polled while ingestion runs.
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    datasetID, err := pathID(r, "id")
    if err != nil {
        writeError(w, "Invalid dataset ID", http.StatusBadRequest)
        return
    }

    ds, err := h.DatasetService.Get(r.Context(), userID, datasetID)
    if err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, ds)
}

func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    datasetID, err := pathID(r, "id")
    if err != nil {
        writeError(w, "Invalid dataset ID", http.StatusBadRequest)
        return
    }

    if err := h.DatasetService.Delete(r.Context(), userID, datasetID); err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
