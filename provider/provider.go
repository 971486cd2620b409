package provider

import (
	"context"
	"errors"

	"github.com/docuchat/docuchat/config"
	"github.com/docuchat/docuchat/models"
	openai_provider "github.com/docuchat/docuchat/provider/openai"
)

// Provider is the completion/embedding capability the pipeline depends on.
// Failures are always reported through the error return so callers can tell
// an errored call from a legitimately empty completion.
type Provider interface {
	ChatCompletion(ctx context.Context, model string, messages []models.Message) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates the LLM client from configuration. Only OpenAI-compatible
// endpoints are supported; the base URL decides whether that is OpenAI proper,
// Groq, or a local server.
func NewProvider(cfg config.LLMProvider) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key not configured")
	}
	return openai_provider.NewClient(
		cfg.APIKey,
		cfg.BaseURL,
		cfg.EmbeddingModel,
		cfg.Temperature,
		cfg.MaxTokens,
		cfg.Timeout,
	), nil
}
