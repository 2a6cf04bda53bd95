// File: internal/handlers/chat_handler.go
package handlers

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"

    "github.com/hyewonk/go-datatalk/internal/services"
)

type ChatHandler struct {
    ChatService *services.ChatService
}

func NewChatHandler(cs *services.ChatService) *ChatHandler {
    return &ChatHandler{ChatService: cs}
}

// StartChat opens a conversation from its first message and returns the
// assistant's first reply together with the new chat record.
func (h *ChatHandler) StartChat(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var req struct {
        Message   string `json:"message"`
        DatasetID *uint  `json:"dataset_id,omitempty"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
        writeError(w, "Message is required", http.StatusBadRequest)
        return
    }

    chat, result, err := h.ChatService.StartChat(r.Context(), userID, req.Message, req.DatasetID)
    if err != nil {
        writeServiceError(w, err)
        return
    }

    writeJSON(w, http.StatusCreated, map[string]interface{}{
        "chat":      chat,
        "reply":     result.Text,
        "image_url": result.ImageURL,
    })
}

// SendMessage runs one follow-up turn on an existing chat.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    chatID, err := pathID(r, "id")
    if err != nil {
        writeError(w, "Invalid chat ID", http.StatusBadRequest)
        return
    }

    var req struct {
        Message string `json:"message"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
        writeError(w, "Message is required", http.StatusBadRequest)
        return
    }

    result, err := h.ChatService.ContinueChat(r.Context(), userID, chatID, req.Message)
    if err != nil {
        writeServiceError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "reply":     result.Text,
        "image_url": result.ImageURL,
    })
}

// GetUserChats retrieves all conversations for the authenticated user.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    chats, err := h.ChatService.GetUserChats(r.Context(), userID)
    if err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, chats)
}

// GetChatMessages retrieves the user-visible transcript of one chat.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    chatID, err := pathID(r, "id")
    if err != nil {
        writeError(w, "Invalid chat ID", http.StatusBadRequest)
        return
    }

    messages, err := h.ChatService.GetChatMessages(r.Context(), userID, chatID)
    if err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
    userID, ok := userIDFromContext(r)
    if !ok {
        writeError(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    chatID, err := pathID(r, "id")
    if err != nil {
        writeError(w, "Invalid chat ID", http.StatusBadRequest)
        return
    }

    if err := h.ChatService.DeleteChat(r.Context(), userID, chatID); err != nil {
        writeServiceError(w, err)
        return
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func pathID(r *http.Request, name string) (uint, error) {
    id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
    return uint(id), err
}
