package hitl

import (
	"context"
	"sync"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/jobstore"
)

// Coordinator mediates between a suspended workflow and an external
// responder (spec §4.5). It owns the one ExecutionHandle every job's
// publish/await/respond cycle resumes through — the channel-per-wait-key
// primitive grounded on domain.ExecutionHandle's WaitForResume/Resume shape.
type Coordinator struct {
	store  *jobstore.Store
	signer *PromptSigner
	handle *domain.ExecutionHandle

	mu        sync.Mutex
	responses map[string]domain.HITLResponse
}

// New constructs a Coordinator backed by store, signing prompt keys with
// signingKey.
func New(store *jobstore.Store, signingKey []byte) *Coordinator {
	return &Coordinator{
		store:     store,
		signer:    NewPromptSigner(signingKey),
		handle:    domain.NewExecutionHandle(),
		responses: make(map[string]domain.HITLResponse),
	}
}

// PromptSpec is the type-dependent structured payload a caller wants
// published; exactly one of Questions/Summary/Draft/Report is set per spec
// §3's HITL Prompt payload union.
type PromptSpec struct {
	Type      domain.HITLPromptType
	Questions []string
	Summary   string
	Draft     *domain.Draft
	Report    *domain.ValidationReport
}

// Publish stores spec's prompt on the job, advances its sequence, and
// transitions it to pending_hitl (spec §4.5 "Publish"). It returns the
// published prompt, whose PromptKey is the minted prompt key.
func (c *Coordinator) Publish(ctx context.Context, jobID string, spec PromptSpec) (*domain.HITLPrompt, error) {
	var prompt *domain.HITLPrompt
	_, err := c.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.PendingPrompt != nil {
			return apierr.Newf(apierr.Conflict, "job %q already has an outstanding prompt", jobID)
		}
		seq := j.PromptSeq + 1
		key, err := c.signer.Sign(jobID, seq)
		if err != nil {
			return apierr.Wrap(apierr.PersistenceError, "sign prompt key", err)
		}
		j.PromptSeq = seq
		prompt = &domain.HITLPrompt{
			Type:      spec.Type,
			PromptKey: key,
			Seq:       seq,
			Questions: spec.Questions,
			Summary:   spec.Summary,
			Draft:     spec.Draft,
			Report:    spec.Report,
		}
		j.PendingPrompt = prompt
		return j.Transition(domain.StatusPendingHITL)
	})
	if err != nil {
		return nil, err
	}
	return prompt, nil
}

// Peek returns the job's outstanding prompt, or (nil, nil) if there is
// none — spec §4.5's "Poll" operation, idempotent and safe under
// concurrent readers since it only reads the job.
func (c *Coordinator) Peek(ctx context.Context, jobID string) (*domain.HITLPrompt, error) {
	job, err := c.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.PendingPrompt, nil
}

// Respond verifies promptKey is signed, unexpired in intent (i.e. matches
// the job's current prompt exactly), and the job is in pending_hitl, then
// atomically records the response and resumes the waiting workflow (spec
// §4.5's "Respond", the at-most-once delivery invariant). A mismatched or
// already-consumed key returns a *domain.StalePromptKeyError without
// mutating anything.
func (c *Coordinator) Respond(ctx context.Context, jobID, promptKey string, response domain.HITLResponse) error {
	boundJobID, _, err := c.signer.Verify(promptKey)
	if err != nil || boundJobID != jobID {
		return &domain.StalePromptKeyError{JobID: jobID, Given: promptKey}
	}

	action := response.Action
	job, err := c.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.Status != domain.StatusPendingHITL || j.PendingPrompt == nil || j.PendingPrompt.PromptKey != promptKey {
			return &domain.StalePromptKeyError{JobID: jobID, Given: promptKey}
		}
		j.PendingPrompt = nil
		if action == domain.ActionCancel {
			return j.Transition(domain.StatusCancelled)
		}
		return j.Transition(domain.StatusRunning)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.responses[jobID] = response
	c.mu.Unlock()

	c.handle.Resume(jobID)
	_ = job
	return nil
}

// Cancel transitions job to cancelled from any non-terminal state and wakes
// any goroutine awaiting a HITL response for it, so a cancellation issued
// outside the HITL response path (spec §5's cancel_job) still unblocks a
// suspended workflow at its next suspension point.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	_, err := c.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.Status.Terminal() {
			return nil
		}
		if j.Status == domain.StatusPendingHITL {
			j.PendingPrompt = nil
		}
		return j.Transition(domain.StatusCancelled)
	})
	if err != nil {
		return err
	}
	c.handle.Resume(jobID)
	return nil
}

// Await blocks until jobID's outstanding prompt is answered (or the job is
// cancelled), returning the response that resumed it. This is the
// workflow-side half of spec §4.5's suspend/resume contract: "the contract
// is only that a response arriving after publication eventually unblocks
// the workflow."
func (c *Coordinator) Await(ctx context.Context, jobID string) (domain.HITLResponse, error) {
	ch := c.handle.WaitForResume(jobID)
	select {
	case <-ch:
		c.mu.Lock()
		resp, ok := c.responses[jobID]
		delete(c.responses, jobID)
		c.mu.Unlock()
		if ok {
			return resp, nil
		}
		// Woken with no stashed response: either cancel_job fired directly,
		// or this is a stale wakeup from an earlier publish/respond cycle.
		job, err := c.store.Get(ctx, jobID)
		if err == nil && job.Status == domain.StatusCancelled {
			return domain.HITLResponse{Action: domain.ActionCancel}, apierr.New(apierr.Cancelled, "job cancelled while awaiting HITL response")
		}
		return domain.HITLResponse{}, apierr.New(apierr.Cancelled, "resumed with no recorded response")
	case <-ctx.Done():
		return domain.HITLResponse{}, ctx.Err()
	}
}
