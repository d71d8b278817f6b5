// Package gemini provides a translator provider backed by the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/entrhq/brain/pkg/llm"
	"github.com/entrhq/brain/pkg/llm/parser"
	"github.com/entrhq/brain/pkg/types"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-1.5-flash-latest"

// Provider implements llm.Provider using google.golang.org/genai.
type Provider struct {
	client      *genai.Client
	modelInfo   *types.ModelInfo
	temperature *float32
	model       string
}

type settings struct {
	httpClient  *http.Client
	temperature *float32
	model       string
	baseURL     string
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

// WithBaseURL points the client at a different endpoint, used by tests.
func WithBaseURL(u string) ProviderOption {
	return func(s *settings) { s.baseURL = u }
}

// WithHTTPClient replaces the HTTP client used by the SDK.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(s *settings) { s.httpClient = c }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ProviderOption {
	return func(s *settings) {
		v := float32(t)
		s.temperature = &v
	}
}

// NewProvider creates a Gemini provider. An empty apiKey falls back to
// GEMINI_API_KEY.
func NewProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (provide via config or GEMINI_API_KEY environment variable)")
	}

	s := settings{model: DefaultModel}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions.BaseURL = s.baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Provider{
		client:      client,
		model:       s.model,
		temperature: s.temperature,
		modelInfo: &types.ModelInfo{
			Provider:          "gemini",
			Name:              s.model,
			MaxTokens:         8192,
			SupportsStreaming: true,
			Metadata:          map[string]interface{}{},
		},
	}, nil
}

// StreamCompletion streams the model's answer. Reasoning blocks are emitted as
// thinking chunks.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	system, contents := convertMessages(messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: at least one user message is required")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       p.temperature,
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
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
			if err != nil {
				send(&llm.StreamChunk{Error: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			if text := resp.Text(); text != "" && !thinking.Emit(text, role, send) {
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
	return p.model
}

// convertMessages splits system messages into a single system instruction and
// maps the rest onto Gemini's user/model roles.
func convertMessages(messages []*types.Message) (*genai.Content, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			system = append(system, msg.Content)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}
