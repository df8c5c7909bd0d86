// Package llm is the provider adapter layer underneath internal/operator's
// Signatures and Modules. It deliberately exposes a much smaller surface
// than the teacher's adkmodel.LLM: a single non-streaming Complete call.
// Spec operators render a prompt, invoke the LM once, and parse the reply
// into declared fields — there is no interactive tool-use loop here, so
// the teacher's iter.Seq2 streaming machinery has no job to do.
package llm

import (
	"context"
	"time"

	"google.golang.org/genai"
)

// Request is one operator invocation's rendered input.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  *float64
	MaxTokens    *int
}

// Usage records the resource cost of one Complete call (spec §4.2).
type Usage struct {
	InputTokens  int32
	OutputTokens int32
	Latency      time.Duration
}

// Response is Complete's result: the raw reply text plus usage.
type Response struct {
	Text  string
	Usage Usage
}

// Client is the minimal capability a provider must offer: render request in,
// reply text out. Providers that hold richer native types internally (genai
// Content/Part, Anthropic content blocks) convert to and from this shape at
// their boundary.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// contentsFor builds the single-user-turn genai.Content slice the Gemini
// provider passes to GenerateContent.
func contentsFor(req Request) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
}
