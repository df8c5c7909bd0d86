package skillsmith

import (
	"context"
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
	"github.com/soochol/skillsmith/internal/workflow"
)

// stubClient answers every operator call with a fixed reply. The tests here
// leave it empty, so a workflow started through the facade fails in Phase 1
// without reaching a checkpoint —
// this package's tests exercise the facade boundary, not the workflow
// engine's internals (already covered by internal/workflow's own tests).
type stubClient struct {
	text string
}

func (c *stubClient) Name() string { return "stub" }

func (c *stubClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: c.text}, nil
}

func newTestService(t *testing.T, client llm.Client) (*Service, *jobstore.Store, *hitl.Coordinator) {
	t.Helper()
	store := jobstore.New(jobstore.NewMemDurable(), 50, time.Hour, time.Minute)
	coordinator := hitl.New(store, []byte("test-signing-key"))
	taxonomyMgr := taxonomy.NewManager(t.TempDir(), nil)
	opDeps := operator.ModuleDeps{Client: client, Model: "stub/model"}

	engine := workflow.New(workflow.Deps{
		Store:       store,
		Coordinator: coordinator,
		Taxonomy:    taxonomyMgr,
		Cache:       cache.NewGuarded(),
		Tuner:       tuner.New(opDeps),
		Operators:   opDeps,
		JobTTL:      time.Hour,
	})
	svc := New(engine, coordinator, taxonomyMgr)
	return svc, store, coordinator
}

func TestService_CreateSkill_ValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t, &stubClient{})

	_, err := svc.CreateSkill(context.Background(), workflow.CreateSkillRequest{TaskDescription: ""})
	require.Error(t, err)

	_, err = svc.CreateSkill(context.Background(), workflow.CreateSkillRequest{TaskDescription: "a valid description"})
	require.NoError(t, err)
}

func TestService_JobStatus_StripsInternalCounters(t *testing.T) {
	svc, store, _ := newTestService(t, &stubClient{})
	jobID, err := svc.CreateSkill(context.Background(), workflow.CreateSkillRequest{TaskDescription: "a valid description"})
	require.NoError(t, err)

	// Simulate a job that has accumulated internal bookkeeping.
	_, err = store.Update(context.Background(), jobID, func(j *domain.Job) error {
		j.Refinements = 2
		j.Revisions = 1
		j.PromptSeq = 3
		return nil
	})
	require.NoError(t, err)

	view, err := svc.JobStatus(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, view.ID)
	// JobView has no Refinements/Revisions/PromptSeq fields at all: the
	// struct itself enforces spec §6's "minus internal counters" contract.
}

func TestService_PeekPrompt_EmptyWhenNoneOutstanding(t *testing.T) {
	svc, store, _ := newTestService(t, &stubClient{})
	job := domain.NewJob("task", "", "", time.Hour)
	require.NoError(t, store.Create(context.Background(), job))

	result, err := svc.PeekPrompt(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestService_SubmitResponse_StaleKeyReturnsConflict(t *testing.T) {
	svc, store, coordinator := newTestService(t, &stubClient{})
	job := domain.NewJob("task", "", "", time.Hour)
	require.NoError(t, job.Transition(domain.StatusRunning))
	require.NoError(t, store.Create(context.Background(), job))

	_, err := coordinator.Publish(context.Background(), job.ID, hitl.PromptSpec{
		Type: domain.HITLClarify, Questions: []string{"which language?"},
	})
	require.NoError(t, err)

	err = svc.SubmitResponse(context.Background(), job.ID, SubmitResponseRequest{
		PromptKey: "not-the-real-key",
		Action:    "proceed",
	})
	var stale *domain.StalePromptKeyError
	assert.ErrorAs(t, err, &stale)
}

func TestService_SubmitResponse_ClassifiesFreeTypedWords(t *testing.T) {
	svc, store, coordinator := newTestService(t, &stubClient{})
	job := domain.NewJob("task", "", "", time.Hour)
	require.NoError(t, job.Transition(domain.StatusRunning))
	require.NoError(t, store.Create(context.Background(), job))

	prompt, err := coordinator.Publish(context.Background(), job.ID, hitl.PromptSpec{
		Type: domain.HITLClarify, Questions: []string{"which language?"},
	})
	require.NoError(t, err)

	err = svc.SubmitResponse(context.Background(), job.ID, SubmitResponseRequest{
		PromptKey: prompt.PromptKey,
		Action:    "looks good",
	})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
}

func TestService_KeywordConfig_MatchesPublishedMap(t *testing.T) {
	svc, _, _ := newTestService(t, &stubClient{})
	assert.Equal(t, domain.KeywordMap, svc.KeywordConfig())
}

func TestService_ExportTaxonomy_EmptyTreeProducesEmptyDocument(t *testing.T) {
	svc, _, _ := newTestService(t, &stubClient{})
	out, err := svc.ExportTaxonomy()
	require.NoError(t, err)
	assert.Contains(t, string(out), "<available_skills")
}
