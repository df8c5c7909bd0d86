package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/soochol/skillsmith/internal/config"
)

// GeminiClient uses the google.golang.org/genai Go SDK directly, the same
// dependency and client-construction shape as the teacher's
// internal/model/gemini_text.go, narrowed to this package's non-streaming
// Client capability.
type GeminiClient struct {
	name    string
	apiKey  string
	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiClient constructs a Gemini client for the given provider name.
func NewGeminiClient(name, apiKey string) *GeminiClient {
	return &GeminiClient{name: name, apiKey: apiKey}
}

func (g *GeminiClient) Name() string { return g.name }

func (g *GeminiClient) ensureClient(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if err := g.ensureClient(ctx); err != nil {
		return Response{}, fmt.Errorf("gemini: client init failed: %w", err)
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contentsFor(req), cfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}, fmt.Errorf("gemini: empty response")
	}

	var text string
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}

	u := Usage{Latency: time.Since(start)}
	if resp.UsageMetadata != nil {
		u.InputTokens = resp.UsageMetadata.PromptTokenCount
		u.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return Response{Text: text, Usage: u}, nil
}

func init() {
	RegisterProvider("gemini", func(name string, cfg config.ProviderConfig) Client {
		return NewGeminiClient(name, cfg.APIKey)
	})
}
