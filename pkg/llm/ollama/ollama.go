// Package ollama provides a translator provider for locally served models,
// built on langchaingo's Ollama client.
package ollama

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/entrhq/brain/pkg/llm"
	"github.com/entrhq/brain/pkg/llm/parser"
	"github.com/entrhq/brain/pkg/types"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.1"

	// DefaultServerURL is the address of a default local Ollama install.
	DefaultServerURL = "http://localhost:11434"
)

// Provider implements llm.Provider on top of any langchaingo model; NewProvider
// wires it to Ollama.
type Provider struct {
	model       llms.Model
	modelInfo   *types.ModelInfo
	temperature *float64
	name        string
}

type settings struct {
	temperature *float64
	model       string
	serverURL   string
}

// ProviderOption configures a Provider.
type ProviderOption func(*settings)

// WithModel sets the model name.
func WithModel(model string) ProviderOption {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithServerURL sets the Ollama server address.
func WithServerURL(u string) ProviderOption {
	return func(s *settings) {
		if u != "" {
			s.serverURL = u
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ProviderOption {
	return func(s *settings) { s.temperature = &t }
}

// NewProvider creates a provider that talks to an Ollama server.
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	s := settings{model: DefaultModel, serverURL: DefaultServerURL}
	for _, opt := range opts {
		opt(&s)
	}

	model, err := lcollama.New(lcollama.WithModel(s.model), lcollama.WithServerURL(s.serverURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	p := NewWithModel(model, s.model)
	p.temperature = s.temperature
	p.modelInfo.Metadata["server_url"] = s.serverURL
	return p, nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, name string) *Provider {
	return &Provider{
		model: model,
		name:  name,
		modelInfo: &types.ModelInfo{
			Provider:          "ollama",
			Name:              name,
			MaxTokens:         4096,
			SupportsStreaming: true,
			Metadata:          map[string]interface{}{},
		},
	}
}

// StreamCompletion streams the model's answer. <think> blocks emitted by
// reasoning models come back as thinking chunks.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	content := convertMessages(messages)
	if len(content) == 0 {
		return nil, fmt.Errorf("ollama: no messages")
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go func() {
		defer close(chunks)

		send := func(c *llm.StreamChunk) bool {
			select {
			case chunks <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		role := string(types.RoleAssistant)
		thinking := parser.NewThinkingParser()
		streamed := false

		callOpts := []llms.CallOption{
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				streamed = true
				if !thinking.Emit(string(chunk), role, send) {
					return ctx.Err()
				}
				return nil
			}),
		}
		if p.temperature != nil {
			callOpts = append(callOpts, llms.WithTemperature(*p.temperature))
		}

		resp, err := p.model.GenerateContent(ctx, content, callOpts...)
		if err != nil {
			send(&llm.StreamChunk{Error: fmt.Errorf("ollama: %w", err)})
			return
		}

		// Models that ignore the streaming callback still return the full text.
		if !streamed && resp != nil && len(resp.Choices) > 0 {
			if !thinking.Emit(resp.Choices[0].Content, role, send) {
				return
			}
		}

		if thinking.EmitFlush(role, send) {
			send(&llm.StreamChunk{Role: role, Finished: true})
		}
	}()

	return chunks, nil
}

// Complete returns the full answer with reasoning stripped.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}
	return llm.Collect(ctx, stream)
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.name
}

func convertMessages(messages []*types.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case types.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case types.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return out
}
