// File: internal/handlers/page_handlers.go
package handlers

import (
    "bytes"
    "html/template"
    "net/http"

    "github.com/yuin/goldmark"
    "github.com/yuin/goldmark/extension"
    "github.com/yuin/goldmark/renderer/html"

    "github.com/hyewonk/go-datatalk/internal/services"
)

// markdown renders assistant replies (tables, lists, code) for the
// transcript page. The table extension matters: query previews are
// markdown tables.
var markdown = goldmark.New(
    goldmark.WithExtensions(extension.GFM),
    goldmark.WithRendererOptions(html.WithHardWraps()),
)

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}
<div class="message message-{{.Role}}">
  <strong>{{.Role}}</strong>
  <div>{{.HTML}}</div>
  {{if .ImageURL}}<img src="{{.ImageURL}}" alt="chart">{{end}}
</div>
{{end}}
</body>
</html>`))

type transcriptMessage struct {
    Role     string
    HTML     template.HTML
    ImageURL string
}

// PageHandler serves the server-rendered chat transcript.
type PageHandler struct {
    ChatService *services.ChatService
}

func NewPageHandler(cs *services.ChatService) *PageHandler {
    return &PageHandler{ChatService: cs}
}

// ShowChatPage renders a chat's history as HTML with markdown content
// converted, chart images inlined.
func (h *PageHandler) ShowChatPage(w http.ResponseWriter, r *http.Request) {
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

    rendered := make([]transcriptMessage, 0, len(messages))
    for _, m := range messages {
        var buf bytes.Buffer
        if err := markdown.Convert([]byte(m.Content), &buf); err != nil {
            buf.Reset()
            buf.WriteString(template.HTMLEscapeString(m.Content))
        }
        rendered = append(rendered, transcriptMessage{
            Role:     m.Role,
            HTML:     template.HTML(buf.String()),
            ImageURL: m.ImageURL,
        })
    }

    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    if err := transcriptTemplate.Execute(w, map[string]interface{}{
        "Title":    "Conversation",
        "Messages": rendered,
    }); err != nil {
        http.Error(w, "Template error", http.StatusInternalServerError)
    }
}
