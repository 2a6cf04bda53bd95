// File: internal/services/ai/openai_provider.go
package ai

import (
    "context"

    openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
    config *Config
    client *openai.Client
}

var _ Gateway = (*OpenAIProvider)(nil)

func NewOpenAIProvider(config *Config) *OpenAIProvider {
    clientConfig := openai.DefaultConfig(config.APIKey)
    if config.BaseURL != "" {
        clientConfig.BaseURL = config.BaseURL
    }
    return &OpenAIProvider{
        config: config,
        client: openai.NewClientWithConfig(clientConfig),
    }
}

// buildMessages assembles system + trimmed history + the new user turn.
func (p *OpenAIProvider) buildMessages(systemPrompt string, history []Turn, message string) []openai.ChatCompletionMessage {
    trimmed := TrimHistory(history, p.config.HistoryTokenBudget)

    messages := make([]openai.ChatCompletionMessage, 0, len(trimmed)+2)
    if systemPrompt != "" {
        messages = append(messages, openai.ChatCompletionMessage{
            Role:    openai.ChatMessageRoleSystem,
            Content: systemPrompt,
        })
    }
    for _, turn := range trimmed {
        role := openai.ChatMessageRoleUser
        if turn.Role == RoleAssistant {
            role = openai.ChatMessageRoleAssistant
        }
        messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
    }
    messages = append(messages, openai.ChatCompletionMessage{
        Role:    openai.ChatMessageRoleUser,
        Content: message,
    })
    return messages
}

func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error) {
    ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
    defer cancel()

    resp, err := p.client.CreateChatCompletion(
        ctx,
        openai.ChatCompletionRequest{
            Model:       p.config.Model,
            Messages:    p.buildMessages(systemPrompt, history, message),
            Temperature: p.config.Temperature,
            TopP:        p.config.TopP,
        },
    )

    if err != nil {
        return "", NewProviderError("completion", "failed to create completion", err)
    }

    if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
        return "", &AIError{
            Type:      ErrTypeProvider,
            Operation: "completion",
            Message:   "empty completion response",
        }
    }

    return resp.Choices[0].Message.Content, nil
}
