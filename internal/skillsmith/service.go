// Package skillsmith is the Service Facade spec §2 lists as its own
// component (distinct from the Three-Phase Workflow Engine it wraps):
// "expose workflow as a single create_skill entry point." It is the
// transport-free Go boundary the (out-of-scope, per spec §1) HTTP layer
// calls into, the same role internal/api/run.go's runWorkflow handler
// plays calling into the teacher's services.WorkflowService one layer up —
// here pushed one layer further down so no transport concern leaks into
// the boundary itself.
package skillsmith

import (
	"context"

	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/taxonomy"
	"github.com/soochol/skillsmith/internal/workflow"
)

// Service is the single facade external callers (an HTTP handler, a CLI
// command, a test) construct everything else through.
type Service struct {
	engine      *workflow.Engine
	coordinator *hitl.Coordinator
	taxonomy    *taxonomy.Manager
}

// New wires a Service from its already-constructed dependencies. Building
// those dependencies (config, job store, LM registry, ...) is the caller's
// job — the same split cmd/skillsmithd/main.go's serve() function follows
// from the teacher's cmd/upal/main.go.
func New(engine *workflow.Engine, coordinator *hitl.Coordinator, taxonomy *taxonomy.Manager) *Service {
	return &Service{engine: engine, coordinator: coordinator, taxonomy: taxonomy}
}

// CreateSkill is spec §4.3's entry point, re-exported at the facade
// boundary (spec §6's "Skill-creation request" contract).
func (s *Service) CreateSkill(ctx context.Context, req workflow.CreateSkillRequest) (string, error) {
	return s.engine.CreateSkill(ctx, req)
}

// CancelJob cancels a job from outside the workflow (spec §5's cancel_job).
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	return s.engine.Cancel(ctx, jobID)
}

// JobView is the client-facing projection of a Job (spec §6: "Job status
// request: returns the full Job record minus internal counters"). The
// refinement/revision/prompt-sequence counters are workflow bookkeeping, not
// part of the job's externally meaningful state.
type JobView struct {
	ID               string                   `json:"id"`
	Status           domain.Status            `json:"status"`
	TaskDescription  string                   `json:"task_description"`
	UserContext      string                   `json:"user_context,omitempty"`
	UserID           string                   `json:"user_id,omitempty"`
	Progress         domain.Progress          `json:"progress"`
	ValidationReport *domain.ValidationReport `json:"validation_report,omitempty"`
	PendingPrompt    *domain.HITLPrompt       `json:"pending_prompt,omitempty"`
	FinalScore       *float64                 `json:"final_score,omitempty"`
	Error            *domain.JobError         `json:"error,omitempty"`
	CreatedAt        string                   `json:"created_at"`
	UpdatedAt        string                   `json:"updated_at"`
	ExpiresAt        string                   `json:"expires_at"`
}

// JobStatus returns job's client-facing view (spec §6's "Job status
// request").
func (s *Service) JobStatus(ctx context.Context, jobID string) (JobView, error) {
	job, err := s.engine.GetJob(ctx, jobID)
	if err != nil {
		return JobView{}, err
	}
	return toJobView(job), nil
}

func toJobView(job *domain.Job) JobView {
	const rfc3339 = "2006-01-02T15:04:05Z07:00"
	return JobView{
		ID:               job.ID,
		Status:           job.Status,
		TaskDescription:  job.TaskDescription,
		UserContext:      job.UserContext,
		UserID:           job.UserID,
		Progress:         job.Progress,
		ValidationReport: job.ValidationReport,
		PendingPrompt:    job.PendingPrompt,
		FinalScore:       job.FinalScore,
		Error:            job.Error,
		CreatedAt:        job.CreatedAt.Format(rfc3339),
		UpdatedAt:        job.UpdatedAt.Format(rfc3339),
		ExpiresAt:        job.ExpiresAt.Format(rfc3339),
	}
}

// PeekPromptResult is spec §6's "Peek prompt" response: `{type, payload,
// prompt_key}` or empty.
type PeekPromptResult struct {
	Found  bool
	Prompt *domain.HITLPrompt
}

// PeekPrompt polls jobID's outstanding HITL prompt (spec §4.5's "Poll").
func (s *Service) PeekPrompt(ctx context.Context, jobID string) (PeekPromptResult, error) {
	prompt, err := s.coordinator.Peek(ctx, jobID)
	if err != nil {
		return PeekPromptResult{}, err
	}
	if prompt == nil {
		return PeekPromptResult{Found: false}, nil
	}
	return PeekPromptResult{Found: true, Prompt: prompt}, nil
}

// SubmitResponseRequest is spec §6's submit_response request body:
// `{prompt_key, action, feedback?}`. action may be a raw client-typed word
// (spec §4.5's keyword classification) or one of the three canonical
// action tags directly.
type SubmitResponseRequest struct {
	PromptKey string
	Action    string
	Feedback  string
}

// SubmitResponse resolves jobID's outstanding prompt (spec §4.5's
// "Respond"). Unrecognized action words classify via the published
// keyword list before falling back to Proceed.
func (s *Service) SubmitResponse(ctx context.Context, jobID string, req SubmitResponseRequest) error {
	action := domain.HITLAction(req.Action)
	if action != domain.ActionProceed && action != domain.ActionRevise && action != domain.ActionCancel {
		var err error
		action, err = hitl.ClassifyFreeText(req.Action)
		if err != nil {
			action = domain.ActionProceed
		}
	}
	return s.coordinator.Respond(ctx, jobID, req.PromptKey, domain.HITLResponse{
		PromptKey: req.PromptKey,
		Action:    action,
		Feedback:  req.Feedback,
	})
}

// KeywordConfig returns the server-published action→keyword mapping (spec
// §6's "Keyword config", client-cacheable for 1 hour).
func (s *Service) KeywordConfig() map[domain.HITLAction][]string {
	return domain.KeywordMap
}

// ExportTaxonomy renders the discovery document consumer agents poll (spec
// §6's "Taxonomy XML export").
func (s *Service) ExportTaxonomy() ([]byte, error) {
	return s.taxonomy.ExportXML()
}

// SignatureHistory returns generate_skill_content's tuning version history,
// oldest first (spec §3's "a version history records score deltas across
// tuning iterations", spec §4.6's "record every version with its score in
// the signature history").
func (s *Service) SignatureHistory() []domain.VersionRecord {
	return s.engine.GenerateSignatureHistory()
}
