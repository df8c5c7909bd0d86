package tuner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/llm"
	"github.com/soochol/skillsmith/internal/operator"
)

type fakeClient struct {
	responses []llm.Response
	calls     int
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func testSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "generate_skill_content",
		Version:     1,
		Instruction: "Write a skill document from the given plan.",
	}
}

func TestTune_AcceptsCandidateThatClearsImprovementBar(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Text: `{"failure_description": "outputs omit required frontmatter fields"}`},
		{Text: `{"candidate_instruction": "Write a skill document and always include required frontmatter fields."}`},
	}}
	tu := New(operator.ModuleDeps{Client: client, Model: "fake/model"})

	reEval := func(ctx context.Context, candidate string) (float64, error) { return 0.9, nil }

	result, err := tu.Tune(context.Background(), testSignature(), []string{"bad output"}, []float64{0.5, 0.6}, reEval)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 2, result.Signature.Version)
	assert.Contains(t, result.Signature.Instruction, "frontmatter")
	assert.Equal(t, 0.9, result.History.Score)
}

func TestTune_RejectsCandidateThatDoesNotClearImprovementBar(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Text: `{"failure_description": "outputs are slightly verbose"}`},
		{Text: `{"candidate_instruction": "Write a skill document and try to be a bit more concise."}`},
	}}
	tu := New(operator.ModuleDeps{Client: client, Model: "fake/model"})

	reEval := func(ctx context.Context, candidate string) (float64, error) { return 0.52, nil }

	result, err := tu.Tune(context.Background(), testSignature(), []string{"ok output"}, []float64{0.5, 0.5}, reEval)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, testSignature().Instruction, result.Signature.Instruction)
}

func TestTune_RejectsDegenerateCandidateWithoutCallingReEvaluate(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Text: `{"failure_description": "outputs are bad"}`},
		{Text: `{"candidate_instruction": "short"}`},
	}}
	tu := New(operator.ModuleDeps{Client: client, Model: "fake/model"})

	called := false
	reEval := func(ctx context.Context, candidate string) (float64, error) {
		called = true
		return 1.0, nil
	}

	result, err := tu.Tune(context.Background(), testSignature(), []string{"bad output"}, []float64{0.4}, reEval)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.False(t, called, "re-evaluate must not run when structural validation rejects the candidate")
}

func TestTune_PropagatesReEvaluateError(t *testing.T) {
	client := &fakeClient{responses: []llm.Response{
		{Text: `{"failure_description": "outputs are bad"}`},
		{Text: `{"candidate_instruction": "Write a skill document with clearer section headings throughout."}`},
	}}
	tu := New(operator.ModuleDeps{Client: client, Model: "fake/model"})

	reEval := func(ctx context.Context, candidate string) (float64, error) {
		return 0, assert.AnError
	}

	_, err := tu.Tune(context.Background(), testSignature(), []string{"bad output"}, []float64{0.4}, reEval)
	require.Error(t, err)
}
