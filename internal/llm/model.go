// Package llm adapts langchaingo chat models to the bot completion backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Mall/internal/config"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

var (
	ErrMissingAPIKey       = errors.New("llm: api key required")
	ErrUnsupportedProvider = errors.New("llm: unsupported provider")
	ErrNoChoices           = errors.New("llm: no response choices")
)

// Model wraps a langchaingo chat model.
type Model struct {
	llm         llms.Model
	modelName   string
	temperature float64
	maxTokens   int
}

func NewModel(cfg config.LLMConfig) (*Model, error) {
	var model llms.Model
	var err error

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
		}
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}

	return &Model{
		llm:         model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends the turns as a chat and returns the first choice.
func (m *Model) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}

	response, err := m.llm.GenerateContent(ctx, toMessages(turns), opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", ErrNoChoices
	}
	return response.Choices[0].Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

func toMessages(turns []domain.Turn) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(turns))
	for _, t := range turns {
		var role llms.ChatMessageType
		switch t.Role {
		case domain.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case domain.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(role, t.Content))
	}
	return out
}

// Unavailable fails every completion, which makes the bot answer with its
// fallback text. It stands in when no backend could be configured.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Complete(context.Context, []domain.Turn) (string, error) {
	if u.Reason != nil {
		return "", fmt.Errorf("completion backend unavailable: %w", u.Reason)
	}
	return "", errors.New("completion backend unavailable")
}
