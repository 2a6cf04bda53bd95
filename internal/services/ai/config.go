// File: internal/services/ai/config.go
package ai

import (
    "fmt"
    "time"
)

type Config struct {
    // LLM Configuration
    APIKey  string
    BaseURL string
    Model   string

    // History Configuration
    // HistoryTokenBudget bounds the trimmed prior-turn window. Tokens are
    // estimated at 4 characters each; no tokenizer dependency.
    HistoryTokenBudget int

    // Performance Configuration
    // Timeout bounds a single completion call. Calls are never retried; a
    // failed call surfaces to the caller as-is.
    Timeout time.Duration

    // Model Parameters
    Temperature float32
    TopP        float32
}

func (c *Config) Validate() error {
    if c.APIKey == "" {
        return fmt.Errorf("LLM_API_KEY is required")
    }
    if c.Model == "" {
        return fmt.Errorf("LLM_MODEL is required")
    }
    if c.HistoryTokenBudget <= 0 {
        return fmt.Errorf("history token budget must be positive")
    }
    if c.Timeout <= 0 {
        return fmt.Errorf("timeout must be positive")
    }
    return nil
}

func DefaultConfig() *Config {
    return &Config{
        Model:              "gpt-4o-mini",
        HistoryTokenBudget: 1024,
        Timeout:            2 * time.Minute,
        Temperature:        0.1,
        TopP:               0.9,
    }
}
