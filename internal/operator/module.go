package operator

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/llm"
)

// Module wraps a Signature with domain post-processing: input
// sanitization, result validation, and structured logging (spec §4.2).
// This is the Go-idiomatic "compose rather than inherit" rendering spec §9
// calls for: a small helper taking a signature, a sanitizer, and a
// validator, returning a callable — not a base-class hierarchy.
type Module[In any, Out any] struct {
	Signature domain.Signature
	Client    llm.Client
	Model     string

	// Sanitize truncates/normalizes In before rendering; nil skips this step.
	Sanitize func(In) In
	// ToFields converts In into the named values the Signature's input
	// fields reference when rendering the prompt.
	ToFields func(In) map[string]string
	// Validate checks Out's required fields are present; nil skips this step.
	Validate func(Out) error

	Temperature *float64
	MaxTokens   *int
	Retry       RetryPolicy
}

func (m *Module[In, Out]) retryPolicy() RetryPolicy {
	if m.Retry == (RetryPolicy{}) {
		return DefaultRetryPolicy
	}
	return m.Retry
}

// Run is the blocking entry point: render, invoke, parse, validate.
func (m *Module[In, Out]) Run(ctx context.Context, in In) (Out, llm.Usage, error) {
	var zero Out

	if m.Sanitize != nil {
		in = m.Sanitize(in)
	}
	fields := m.ToFields(in)
	prompt := RenderPrompt(m.Signature, fields)

	req := llm.Request{
		Model:       m.Model,
		Prompt:      prompt,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
	}

	resp, err := callWithRetry(ctx, m.retryPolicy(), m.Signature.SignatureID, func(ctx context.Context) (llm.Response, error) {
		r, callErr := m.Client.Complete(ctx, req)
		if callErr != nil {
			return llm.Response{}, apierr.Wrap(classifyLMError(callErr), "lm call failed", callErr)
		}
		return r, nil
	})
	if err != nil {
		return zero, llm.Usage{}, err
	}

	jsonText, err := extractJSONObject(resp.Text)
	if err != nil {
		return zero, resp.Usage, apierr.Wrap(apierr.LMPermanent, "no JSON object found in LM reply", err)
	}

	var out Out
	if err := json.Unmarshal([]byte(jsonText), &out); err != nil {
		return zero, resp.Usage, apierr.Wrap(apierr.LMPermanent, "malformed JSON in LM reply", err)
	}

	if m.Validate != nil {
		if err := m.Validate(out); err != nil {
			return zero, resp.Usage, apierr.Wrap(apierr.LMPermanent, "LM output failed validation", err)
		}
	}

	slog.Info("operator: completed", "signature", m.Signature.SignatureID, "version", m.Signature.Version,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens, "latency", resp.Usage.Latency)
	return out, resp.Usage, nil
}

// result carries RunSuspending's eventual outcome across its channel.
type result[Out any] struct {
	Value Out
	Usage llm.Usage
	Err   error
}

// Suspend is a handle to an in-flight RunSuspending call. It models spec
// §5's "every LM call is a suspension point": the caller is not blocked at
// the call site and instead awaits the result at its own next suspension
// point, by calling Await.
type Suspend[Out any] struct {
	ch <-chan result[Out]
}

// Await blocks until the underlying Run completes or ctx is cancelled.
func (s *Suspend[Out]) Await(ctx context.Context) (Out, llm.Usage, error) {
	var zero Out
	select {
	case r := <-s.ch:
		return r.Value, r.Usage, r.Err
	case <-ctx.Done():
		return zero, llm.Usage{}, ctx.Err()
	}
}

// RunSuspending is the cooperative-suspension entry point: it starts Run in
// the background and returns immediately, letting independent modules
// within a phase be dispatched concurrently (spec §4.2/§5) before the
// engine awaits them all at a single barrier.
func (m *Module[In, Out]) RunSuspending(ctx context.Context, in In) *Suspend[Out] {
	ch := make(chan result[Out], 1)
	go func() {
		out, usage, err := m.Run(ctx, in)
		ch <- result[Out]{Value: out, Usage: usage, Err: err}
	}()
	return &Suspend[Out]{ch: ch}
}
