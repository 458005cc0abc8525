package listing

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/artisanhub/artisanhub/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a conversation
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is a Completer that also accepts conversation history
type ChatCompleter interface {
	Completer
	Chat(ctx context.Context, system string, history []Turn, prompt string) (string, error)
}

// NewCompleter builds the configured model client. It returns nil without an
// error when no API key is set, which leaves callers on their fallbacks.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (ChatCompleter, error) {
	if strings.TrimSpace(cfg.ApiKey) == "" {
		return nil, nil
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAIClient(cfg.ApiKey, cfg.BaseURL, cfg.Model, timeout), nil
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.ApiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
