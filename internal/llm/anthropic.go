package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/soochol/skillsmith/internal/config"
)

// defaultAnthropicMaxTokens mirrors the teacher's hard-coded
// internal/model/anthropic.go default for requests that don't specify one.
const defaultAnthropicMaxTokens = 4096

// AnthropicClient wraps the official anthropic-sdk-go client. Where the
// teacher's own internal/model/anthropic.go hand-rolled the Messages API
// over net/http (a perfectly fine way to learn the wire format once), this
// package instead pulls in the real SDK the rest of the example pack
// already carries as a direct dependency, the more idiomatic Go choice
// when a maintained client library exists.
type AnthropicClient struct {
	name   string
	client anthropic.Client
}

// NewAnthropicClient constructs an Anthropic client for the given provider name.
func NewAnthropicClient(name, apiKey string) *AnthropicClient {
	return &AnthropicClient{
		name:   name,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (a *AnthropicClient) Name() string { return a.name }

func (a *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	maxTokens := int64(defaultAnthropicMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return Response{
		Text: text,
		Usage: Usage{
			InputTokens:  int32(msg.Usage.InputTokens),
			OutputTokens: int32(msg.Usage.OutputTokens),
			Latency:      time.Since(start),
		},
	}, nil
}

func init() {
	RegisterProvider("anthropic", func(name string, cfg config.ProviderConfig) Client {
		return NewAnthropicClient(name, cfg.APIKey)
	})
}
