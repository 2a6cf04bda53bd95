// File: internal/services/agent/classify.go
package agent

import (
    "regexp"
    "strings"
)

// Marker tokens recognized in model output. The system prompt teaches the
// model this protocol; Classify is its single decoder.
//
//   [TOOL:SQL] <question>   leading marker, payload is a natural-language
//                           question for the SQL synthesizer
//   [TOOL:PLOT] ...```go``` leading marker, payload is the fenced Go chart code
//   ... [ASK_USER]          trailing token: the model needs clarification
//   ... [CONTINUE] ...      token anywhere: partial answer, more turns wanted
//   ... [END]               trailing token: final answer
const (
    MarkerSQL     = "[TOOL:SQL]"
    MarkerPlot    = "[TOOL:PLOT]"
    TokenAskUser  = "[ASK_USER]"
    TokenContinue = "[CONTINUE]"
    TokenEnd      = "[END]"
)

// Kind is the closed set of reply classifications.
type Kind int

const (
    KindSQL Kind = iota
    KindPlot
    KindAskUser
    KindContinue
    KindFinal
)

func (k Kind) String() string {
    switch k {
    case KindSQL:
        return "sql_request"
    case KindPlot:
        return "plot_request"
    case KindAskUser:
        return "ask_user"
    case KindContinue:
        return "continue"
    case KindFinal:
        return "final"
    default:
        return "unknown"
    }
}

// Reply is a classified model reply. Payload carries the tool input for
// KindSQL/KindPlot; Text carries the user-facing content for the rest.
type Reply struct {
    Kind    Kind
    Payload string
    Text    string
}

// Classify decodes a raw model reply into exactly one variant. Marker checks
// are first-match-wins in the fixed order SQL, plot, ask-user, continue,
// final, so a reply can never land in two states.
func Classify(raw string) Reply {
    trimmed := strings.TrimSpace(raw)

    if strings.HasPrefix(trimmed, MarkerSQL) {
        return Reply{
            Kind:    KindSQL,
            Payload: strings.TrimSpace(strings.TrimPrefix(trimmed, MarkerSQL)),
            Text:    trimmed,
        }
    }
    if strings.HasPrefix(trimmed, MarkerPlot) {
        return Reply{
            Kind:    KindPlot,
            Payload: strings.TrimSpace(strings.TrimPrefix(trimmed, MarkerPlot)),
            Text:    trimmed,
        }
    }
    if strings.HasSuffix(trimmed, TokenAskUser) {
        return Reply{
            Kind: KindAskUser,
            Text: strings.TrimSpace(strings.TrimSuffix(trimmed, TokenAskUser)),
        }
    }
    if strings.Contains(trimmed, TokenContinue) {
        // The reply is carried verbatim; the token is part of the protocol
        // and stripping it would change what the model said mid-thought.
        return Reply{Kind: KindContinue, Text: trimmed}
    }

    return Reply{
        Kind: KindFinal,
        Text: strings.TrimSpace(strings.TrimSuffix(trimmed, TokenEnd)),
    }
}

var (
    sqlFencePattern = regexp.MustCompile("(?si)```sql\\s*(.*?)\\s*```")
    goFencePattern  = regexp.MustCompile("(?si)```go\\s*(.*?)\\s*```")
)

// ExtractSQLFence returns the content of the first fenced ```sql block.
func ExtractSQLFence(text string) (string, bool) {
    return extractFence(sqlFencePattern, text)
}

// ExtractGoFence returns the content of the first fenced ```go block.
func ExtractGoFence(text string) (string, bool) {
    return extractFence(goFencePattern, text)
}

func extractFence(pattern *regexp.Regexp, text string) (string, bool) {
    match := pattern.FindStringSubmatch(text)
    if match == nil {
        return "", false
    }
    return strings.TrimSpace(match[1]), true
}
