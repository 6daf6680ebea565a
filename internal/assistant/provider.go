// Package assistant forwards a single question to an external text-generation
// provider and returns the cleaned answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warscope-bot/internal/config"
)

var (
	ErrEmptyReply = errors.New("assistant: empty reply")
	ErrThrottled  = errors.New("assistant: provider throttled")
)

type Provider interface {
	Generate(ctx context.Context, question string) (string, error)
}

// New builds the configured provider, wrapped with the outbound throttle.
func New(cfg config.AssistantConfig) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var provider Provider
	switch cfg.Provider {
	case config.ProviderHuggingFace:
		if cfg.HuggingFaceToken == "" {
			return nil, errors.New("HUGGINGFACE_TOKEN is required for the huggingface provider")
		}
		provider = NewHuggingFace(HuggingFaceConfig{
			Token:       cfg.HuggingFaceToken,
			BaseURL:     cfg.HuggingFaceURL,
			Model:       cfg.HuggingFaceModel,
			Persona:     cfg.Persona,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
		})
	case config.ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		provider = NewOpenAI(OpenAIConfig{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.Model,
			Persona:     cfg.Persona,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported assistant provider %q", cfg.Provider)
	}

	return Limit(provider, cfg.MaxPerMinute), nil
}
