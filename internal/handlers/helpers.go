// File: internal/handlers/helpers.go
package handlers

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/hyewonk/go-datatalk/internal/middleware"
    "github.com/hyewonk/go-datatalk/internal/services"
)

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
    writeJSON(w, status, map[string]string{"error": message})
}

// userIDFromContext pulls the authenticated user set by the JWT middleware.
func userIDFromContext(r *http.Request) (uint, bool) {
    userID, ok := r.Context().Value(middleware.UserIDKey).(uint)
    return userID, ok
}

// writeServiceError maps the service failure taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
    var svcErr *services.ServiceError
    if !errors.As(err, &svcErr) {
        writeError(w, "Internal server error", http.StatusInternalServerError)
        return
    }
    switch svcErr.Type {
    case services.ErrTypeValidation:
        writeError(w, svcErr.Message, http.StatusBadRequest)
    case services.ErrTypeNotFound:
        writeError(w, svcErr.Message, http.StatusNotFound)
    case services.ErrTypeUnauthorized:
        writeError(w, "Forbidden", http.StatusForbidden)
    case services.ErrTypeConflict:
        writeError(w, svcErr.Message, http.StatusConflict)
    default:
        writeError(w, "Internal server error", http.StatusInternalServerError)
    }
}
