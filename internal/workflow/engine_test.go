package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/skillsmith/internal/cache"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/jobstore"
	"github.com/soochol/skillsmith/internal/llm"
	"github.com/soochol/skillsmith/internal/operator"
	"github.com/soochol/skillsmith/internal/taxonomy"
	"github.com/soochol/skillsmith/internal/tuner"
)

// scriptedRule answers every call whose prompt contains marker, returning
// the i-th queued response for the i-th matching call (the last response
// repeats once the queue is exhausted).
type scriptedRule struct {
	marker    string
	responses []string
	calls     int
}

// scriptedClient is a fake llm.Client that routes on each operator's
// instruction text, which RenderPrompt always places at the prompt's start —
// the same routing seam operator.Module's own tests use, extended to cover
// every operator a full workflow run touches.
type scriptedClient struct {
	mu    sync.Mutex
	rules []*scriptedRule
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instruction, _, _ := strings.Cut(req.Prompt, "\n")
	for _, r := range c.rules {
		if !strings.Contains(instruction, r.marker) {
			continue
		}
		idx := r.calls
		r.calls++
		if idx >= len(r.responses) {
			idx = len(r.responses) - 1
		}
		return llm.Response{Text: r.responses[idx]}, nil
	}
	return llm.Response{}, fmt.Errorf("scriptedClient: no rule matches prompt: %.120s", req.Prompt)
}

func baseRules() []*scriptedRule {
	return []*scriptedRule{
		{marker: "extract the concrete requirements", responses: []string{
			`{"requirements": ["document common git aliases"], "ambiguities": []}`,
		}},
		{marker: "Summarize the underlying intent", responses: []string{
			`{"intent": "help the user configure useful git aliases"}`,
		}},
		{marker: "Choose the most appropriate taxonomy path", responses: []string{
			`{"taxonomy_path": "development/tools/git/aliases"}`,
		}},
		{marker: "Identify any existing skills", responses: []string{
			`{"dependencies": []}`,
		}},
		{marker: "Synthesize a content plan", responses: []string{
			`{"plan": "1. intro 2. common aliases 3. setup"}`,
		}},
		{marker: "Write the skill artifact's Markdown content", responses: []string{
			`{"name": "git-aliases", "description": "Common git aliases and how to configure them", "body": "# Git Aliases\n\nA solid set of git aliases saves a lot of typing across everyday workflows and this body is long enough to look like a real artifact."}`,
		}},
		{marker: "Check the artifact against structural", responses: []string{
			`{"pass": true, "score": 0.9, "critical_issues": [], "warnings": []}`,
		}},
		{marker: "Score the artifact across each quality dimension", responses: []string{
			`{"skill_quality": 0.9, "semantic_f1": 0.9, "entity_f1": 0.9, "readability": 0.9, "coverage": 0.9}`,
		}},
	}
}

func newTestEngine(t *testing.T, client *scriptedClient) (*Engine, *jobstore.Store, *hitl.Coordinator) {
	t.Helper()
	store := jobstore.New(jobstore.NewMemDurable(), 50, time.Hour, time.Minute)
	coordinator := hitl.New(store, []byte("test-signing-key"))
	taxonomyMgr := taxonomy.NewManager(t.TempDir(), nil)
	opDeps := operator.ModuleDeps{Client: client, Model: "scripted/model"}

	engine := New(Deps{
		Store:       store,
		Coordinator: coordinator,
		Taxonomy:    taxonomyMgr,
		Cache:       cache.NewGuarded(),
		Tuner:       tuner.New(opDeps),
		Operators:   opDeps,
		JobTTL:      time.Hour,
	})
	return engine, store, coordinator
}

func waitForStatus(t *testing.T, store *jobstore.Store, jobID string, want domain.Status, timeout time.Duration) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		job, err := store.Get(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status == want || job.Status.Terminal() {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s: timed out waiting for status %s, last status %s", jobID, want, job.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForPrompt(t *testing.T, coordinator *hitl.Coordinator, jobID string, timeout time.Duration) *domain.HITLPrompt {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		prompt, err := coordinator.Peek(context.Background(), jobID)
		require.NoError(t, err)
		if prompt != nil {
			return prompt
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s: timed out waiting for a HITL prompt", jobID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCreateSkill_HappyPathCompletesWithoutHITL(t *testing.T) {
	client := &scriptedClient{rules: baseRules()}
	engine, store, _ := newTestEngine(t, client)

	jobID, err := engine.CreateSkill(context.Background(), CreateSkillRequest{
		TaskDescription: "I want a skill documenting useful git aliases",
		Style:           domain.StyleComprehensive,
	})
	require.NoError(t, err)

	job := waitForStatus(t, store, jobID, domain.StatusCompleted, 2*time.Second)
	require.Equal(t, domain.StatusCompleted, job.Status)
	require.NotNil(t, job.FinalScore)
	assert.InDelta(t, 0.9, *job.FinalScore, 0.001)
	require.NotNil(t, job.Draft)
	assert.Equal(t, "git-aliases", job.Draft.Metadata.Name)
	assert.Equal(t, "development/tools/git/aliases", job.Draft.Metadata.SkillID)

	meta, body, err := engine.taxonomy.LoadSkill("development/tools/git/aliases")
	require.NoError(t, err)
	assert.Equal(t, "git-aliases", meta.Name)
	assert.Contains(t, body, "Git Aliases")
}

func TestCreateSkill_ClarificationFlowMergesAnswersThenCompletes(t *testing.T) {
	rules := baseRules()
	rules[0] = &scriptedRule{marker: "extract the concrete requirements", responses: []string{
		`{"requirements": ["document git aliases"], "ambiguities": ["unclear whether this targets bash or zsh completion setups as well"]}`,
	}}
	rules = append(rules, &scriptedRule{marker: "Write concise clarifying questions", responses: []string{
		`{"questions": ["Should this cover shell completion too?"]}`,
	}})
	// SynthesizePlan runs once before clarification and once after merging answers.
	for _, r := range rules {
		if r.marker == "Synthesize a content plan" {
			r.responses = []string{
				`{"plan": "1. intro 2. common aliases"}`,
				`{"plan": "1. intro 2. common aliases 3. shell completion notes"}`,
			}
		}
	}

	client := &scriptedClient{rules: rules}
	engine, store, coordinator := newTestEngine(t, client)

	jobID, err := engine.CreateSkill(context.Background(), CreateSkillRequest{
		TaskDescription: "I want a skill documenting useful git aliases",
		Style:           domain.StyleComprehensive,
	})
	require.NoError(t, err)

	prompt := waitForPrompt(t, coordinator, jobID, 2*time.Second)
	assert.Equal(t, domain.HITLClarify, prompt.Type)
	require.Len(t, prompt.Questions, 1)

	require.NoError(t, coordinator.Respond(context.Background(), jobID, prompt.PromptKey, domain.HITLResponse{
		PromptKey: prompt.PromptKey,
		Action:    domain.ActionProceed,
		Feedback:  "No, bash only is fine.",
	}))

	job := waitForStatus(t, store, jobID, domain.StatusCompleted, 2*time.Second)
	require.Equal(t, domain.StatusCompleted, job.Status)
	require.NotNil(t, job.Understanding)
	assert.Contains(t, job.Understanding.Plan, "shell completion notes")
	assert.Equal(t, "No, bash only is fine.", job.Understanding.ClarifyingAnswers["Should this cover shell completion too?"])
}

func TestCreateSkill_CancelDuringClarificationStopsJobWithoutError(t *testing.T) {
	rules := baseRules()
	rules[0] = &scriptedRule{marker: "extract the concrete requirements", responses: []string{
		`{"requirements": ["document git aliases"], "ambiguities": ["unclear whether this targets bash or zsh completion setups as well"]}`,
	}}
	rules = append(rules, &scriptedRule{marker: "Write concise clarifying questions", responses: []string{
		`{"questions": ["Should this cover shell completion too?"]}`,
	}})

	client := &scriptedClient{rules: rules}
	engine, store, coordinator := newTestEngine(t, client)

	jobID, err := engine.CreateSkill(context.Background(), CreateSkillRequest{
		TaskDescription: "I want a skill documenting useful git aliases",
		Style:           domain.StyleComprehensive,
	})
	require.NoError(t, err)

	waitForPrompt(t, coordinator, jobID, 2*time.Second)
	require.NoError(t, engine.Cancel(context.Background(), jobID))

	job := waitForStatus(t, store, jobID, domain.StatusCancelled, 2*time.Second)
	assert.Equal(t, domain.StatusCancelled, job.Status)
	assert.Nil(t, job.Error)
}

func TestCreateSkill_PreviewReviseIncorporatesFeedbackThenCompletes(t *testing.T) {
	rules := baseRules()
	rules = append(rules, &scriptedRule{marker: "Revise the draft to incorporate the user's feedback", responses: []string{
		`{"body": "# Git Aliases\n\nRevised body incorporating the requested shortening and still long enough to be realistic content."}`,
	}})

	client := &scriptedClient{rules: rules}
	engine, store, coordinator := newTestEngine(t, client)

	jobID, err := engine.CreateSkill(context.Background(), CreateSkillRequest{
		TaskDescription: "I want a skill documenting useful git aliases",
		Style:           domain.StyleComprehensive,
		EnablePreview:   true,
	})
	require.NoError(t, err)

	prompt := waitForPrompt(t, coordinator, jobID, 2*time.Second)
	assert.Equal(t, domain.HITLPreview, prompt.Type)
	require.NoError(t, coordinator.Respond(context.Background(), jobID, prompt.PromptKey, domain.HITLResponse{
		PromptKey: prompt.PromptKey,
		Action:    domain.ActionRevise,
		Feedback:  "Please make it shorter.",
	}))

	prompt2 := waitForPrompt(t, coordinator, jobID, 2*time.Second)
	require.NoError(t, coordinator.Respond(context.Background(), jobID, prompt2.PromptKey, domain.HITLResponse{
		PromptKey: prompt2.PromptKey,
		Action:    domain.ActionProceed,
	}))

	job := waitForStatus(t, store, jobID, domain.StatusCompleted, 2*time.Second)
	require.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.Revisions)
	assert.Contains(t, job.Draft.Body, "Revised body")
}

func TestTuneAndRegenerate_RecordsSignatureHistory(t *testing.T) {
	rules := baseRules()
	rules = append(rules,
		&scriptedRule{marker: "Analyze the low-scoring outputs", responses: []string{
			`{"failure_description": "the body is too short and skips setup steps"}`,
		}},
		&scriptedRule{marker: "Propose a revised instruction", responses: []string{
			`{"candidate_instruction": "Write the skill artifact's Markdown content, and always include a setup section."}`,
		}},
	)
	client := &scriptedClient{rules: rules}
	engine, store, _ := newTestEngine(t, client)

	jobID, err := engine.CreateSkill(context.Background(), CreateSkillRequest{
		TaskDescription: "I want a skill documenting useful git aliases",
		Style:           domain.StyleComprehensive,
	})
	require.NoError(t, err)
	waitForStatus(t, store, jobID, domain.StatusCompleted, 2*time.Second)

	understanding := &domain.Understanding{Plan: "1. intro 2. common aliases 3. setup"}
	draft, err := engine.tuneAndRegenerate(context.Background(), jobID, understanding, domain.StyleComprehensive, "too short", 0.4)
	require.NoError(t, err)
	require.NotNil(t, draft)

	history := engine.GenerateSignatureHistory()
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Version)
	assert.Equal(t, 0.9, history[0].Score)
	assert.Contains(t, history[0].Instruction, "setup section")
}
