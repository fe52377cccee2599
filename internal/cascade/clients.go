package cascade

import (
	"context"

	"github.com/greenlane/catalog-tagger/pkg/anthropic"
	"github.com/greenlane/catalog-tagger/pkg/ollama"
)

// OllamaModel adapts an Ollama client to the ModelClient interface. Used for
// the primary and secondary tiers running against a local daemon.
type OllamaModel struct {
	Client ollama.Client
	Model  string
}

func (m *OllamaModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := m.Client.Generate(ctx, ollama.GenerateRequest{
		Model:  m.Model,
		System: system,
		Prompt: prompt,
		Format: "json",
	})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// AnthropicModel adapts the hosted Anthropic API to the ModelClient
// interface. Used for the tertiary (and recovery) tier.
type AnthropicModel struct {
	Client    anthropic.Client
	Model     string
	MaxTokens int64
	Phase     string
}

func (m *AnthropicModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	maxTokens := m.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	resp, err := m.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(m.Model, m.Phase)
	return resp.Text(), nil
}
