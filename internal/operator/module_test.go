package operator

import (
	"context"
	"errors"
	"testing"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a scripted llm.Client used to drive Module tests without a
// network call.
type fakeClient struct {
	name      string
	responses []llm.Response
	errs      []error
	calls     int
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func TestModule_Run_ParsesJSONReply(t *testing.T) {
	client := &fakeClient{name: "fake", responses: []llm.Response{
		{Text: "```json\n{\"intent\": \"build an async python reference\"}\n```"},
	}}
	m := NewAnalyzeIntent(ModuleDeps{Client: client, Model: "fake/model"})

	out, _, err := m.Run(context.Background(), AnalyzeIntentIn{TaskDescription: "make a python skill"})
	require.NoError(t, err)
	assert.Equal(t, "build an async python reference", out.Intent)
}

func TestModule_Run_ValidationFailure(t *testing.T) {
	client := &fakeClient{name: "fake", responses: []llm.Response{{Text: `{"intent": ""}`}}}
	m := NewAnalyzeIntent(ModuleDeps{Client: client, Model: "fake/model"})

	_, _, err := m.Run(context.Background(), AnalyzeIntentIn{TaskDescription: "x"})
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.LMPermanent))
}

func TestModule_Run_RetriesTransientThenSucceeds(t *testing.T) {
	client := &fakeClient{
		name: "fake",
		errs: []error{errors.New("rate_limit"), nil},
		responses: []llm.Response{
			{}, {Text: `{"intent": "ok"}`},
		},
	}
	m := NewAnalyzeIntent(ModuleDeps{Client: client, Model: "fake/model"})
	m.Retry = RetryPolicy{MaxRetries: 3, InitialDelay: 0, BackoffFactor: 1, MaxDelay: 0}

	out, _, err := m.Run(context.Background(), AnalyzeIntentIn{TaskDescription: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Intent)
	assert.Equal(t, 2, client.calls)
}

func TestModule_RunSuspending_AwaitReturnsResult(t *testing.T) {
	client := &fakeClient{name: "fake", responses: []llm.Response{{Text: `{"intent": "ok"}`}}}
	m := NewAnalyzeIntent(ModuleDeps{Client: client, Model: "fake/model"})

	s := m.RunSuspending(context.Background(), AnalyzeIntentIn{TaskDescription: "x"})
	out, _, err := s.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Intent)
}

func TestRenderPrompt_IncludesInstructionAndFields(t *testing.T) {
	sig := domain.Signature{
		Instruction: "Do the thing.",
		Inputs:      []domain.Field{{Name: "a", Description: "desc"}},
		Outputs:     []domain.Field{{Name: "b", Description: "out desc", Type: "string"}},
	}
	prompt := RenderPrompt(sig, map[string]string{"a": "value"})
	assert.Contains(t, prompt, "Do the thing.")
	assert.Contains(t, prompt, "value")
	assert.Contains(t, prompt, `"b"`)
}
