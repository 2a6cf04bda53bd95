// File: internal/handlers/auth_handlers.go
package handlers

import (
    "encoding/json"
    "net/http"
    "regexp"
    "strings"
    "time"

    "github.com/hyewonk/go-datatalk/internal/services"
)

var (
    usernameRegex     = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
    emailRegex        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
    passwordMinLength = 8
)

// AuthHandler holds the dependencies for authentication handlers.
type AuthHandler struct {
    UserService *services.UserService
}

func NewAuthHandler(service *services.UserService) *AuthHandler {
    return &AuthHandler{UserService: service}
}

// Register handles new user registrations.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
    var req struct {
        Username string `json:"username"`
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    username := strings.TrimSpace(req.Username)
    email := strings.TrimSpace(req.Email)
    switch {
    case !usernameRegex.MatchString(username):
        writeError(w, "Username must be 3-20 characters, alphanumeric or underscore.", http.StatusBadRequest)
        return
    case !emailRegex.MatchString(email):
        writeError(w, "Email format invalid.", http.StatusBadRequest)
        return
    case len(req.Password) < passwordMinLength:
        writeError(w, "Password must be at least 8 characters.", http.StatusBadRequest)
        return
    }

    user, err := h.UserService.Register(r.Context(), username, email, req.Password)
    if err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
    var req struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    token, err := h.UserService.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
    if err != nil {
        writeError(w, "Invalid credentials", http.StatusUnauthorized)
        return
    }

    http.SetCookie(w, &http.Cookie{
        Name:     "auth_token",
        Value:    token,
        Path:     "/",
        Expires:  time.Now().Add(24 * time.Hour),
        HttpOnly: true,
        Secure:   true,
        SameSite: http.SameSiteLaxMode,
    })
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
    http.SetCookie(w, &http.Cookie{
        Name:     "auth_token",
        Value:    "",
        Path:     "/",
        Expires:  time.Unix(0, 0),
        HttpOnly: true,
        Secure:   true,
        SameSite: http.SameSiteLaxMode,
    })
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
