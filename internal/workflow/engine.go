// Package workflow implements the three-phase skill-creation workflow
// (spec §4.3): Understanding, Generation, Validation. The Engine is the
// sole writer of Job state transitions — operators receive inputs by value
// and return structured results; only the engine applies updates through
// the Job Store, the ownership split spec §3 fixes and the teacher's own
// split between internal/engine (orchestration) and internal/agents
// (leaf computation) mirrors.
package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/cache"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/jobstore"
	"github.com/soochol/skillsmith/internal/operator"
	"github.com/soochol/skillsmith/internal/taxonomy"
	"github.com/soochol/skillsmith/internal/tuner"
)

// maxRefinements and maxRevisions are the spec's fixed budgets (§4.3,
// §9's "the source exhibits two spellings of refinement budget... this
// spec fixes 3"). One shared counter bounds the Phase 3 refine-or-tune
// cycle; a separate counter bounds Phase 2's preview-revise loop.
const (
	maxRefinements = 3
	maxRevisions   = 3
)

// Deps bundles everything the Engine needs to construct its operator
// modules and reach the rest of the system (spec §9's "pass a Context
// value through workflow entry points").
type Deps struct {
	Store       *jobstore.Store
	Coordinator *hitl.Coordinator
	Taxonomy    *taxonomy.Manager
	Cache       *cache.Guarded
	Tuner       *tuner.Tuner
	Operators   operator.ModuleDeps
	JobTTL      time.Duration
}

// Engine runs the three-phase workflow body for jobs created through
// CreateSkill.
type Engine struct {
	store       *jobstore.Store
	coordinator *hitl.Coordinator
	taxonomy    *taxonomy.Manager
	cache       *cache.Guarded
	tuner       *tuner.Tuner
	jobTTL      time.Duration

	genDeps    operator.ModuleDeps
	genMu      sync.RWMutex
	genSig     domain.Signature       // current (possibly tuned) generate_skill_content signature
	genHistory []domain.VersionRecord // every tuning iteration's outcome, oldest first (spec §3/§4.6)

	gatherRequirements         *operator.Module[operator.GatherRequirementsIn, operator.GatherRequirementsOut]
	analyzeIntent              *operator.Module[operator.AnalyzeIntentIn, operator.AnalyzeIntentOut]
	findTaxonomyPath           *operator.Module[operator.FindTaxonomyPathIn, operator.FindTaxonomyPathOut]
	analyzeDependencies        *operator.Module[operator.AnalyzeDependenciesIn, operator.AnalyzeDependenciesOut]
	synthesizePlan             *operator.Module[operator.SynthesizePlanIn, operator.SynthesizePlanOut]
	generateClarifyingQuestion *operator.Module[operator.GenerateClarifyingQuestionsIn, operator.GenerateClarifyingQuestionsOut]
	incorporateFeedback        *operator.Module[operator.IncorporateFeedbackIn, operator.IncorporateFeedbackOut]
	validateCompliance         *operator.Module[operator.ValidateComplianceIn, operator.ValidateComplianceOut]
	assessQuality              *operator.Module[operator.AssessQualityIn, operator.AssessQualityOut]
	refineSkill                *operator.Module[operator.RefineSkillIn, operator.RefineSkillOut]
	detectSkillStyle           *operator.Module[operator.DetectSkillStyleIn, operator.DetectSkillStyleOut]
}

// New constructs an Engine from deps.
func New(deps Deps) *Engine {
	return &Engine{
		store:       deps.Store,
		coordinator: deps.Coordinator,
		taxonomy:    deps.Taxonomy,
		cache:       deps.Cache,
		tuner:       deps.Tuner,
		jobTTL:      deps.JobTTL,

		genDeps: deps.Operators,
		genSig:  operator.GenerateSkillContentSignature(),

		gatherRequirements:         operator.NewGatherRequirements(deps.Operators),
		analyzeIntent:              operator.NewAnalyzeIntent(deps.Operators),
		findTaxonomyPath:           operator.NewFindTaxonomyPath(deps.Operators),
		analyzeDependencies:        operator.NewAnalyzeDependencies(deps.Operators),
		synthesizePlan:             operator.NewSynthesizePlan(deps.Operators),
		generateClarifyingQuestion: operator.NewGenerateClarifyingQuestions(deps.Operators),
		incorporateFeedback:        operator.NewIncorporateFeedback(deps.Operators),
		validateCompliance:         operator.NewValidateCompliance(deps.Operators),
		assessQuality:              operator.NewAssessQuality(deps.Operators),
		refineSkill:                operator.NewRefineSkill(deps.Operators),
		detectSkillStyle:           operator.NewDetectSkillStyle(deps.Operators),
	}
}

// CreateSkillRequest is the Service Facade's create_skill entry contract
// (spec §6), extended with the optional style override scenario 1 of
// spec §8 exercises and an opt-in preview checkpoint (spec §4.3:
// "optionally raises a HITL preview checkpoint").
type CreateSkillRequest struct {
	TaskDescription string
	UserContext     string
	UserID          string
	Style           domain.SkillStyle // empty means detect via DetectSkillStyle
	EnablePreview   bool
}

// CreateSkill creates a job, persists it, and schedules the workflow body
// to run asynchronously, returning immediately with the job id (spec
// §4.3's entry contract).
func (e *Engine) CreateSkill(ctx context.Context, req CreateSkillRequest) (string, error) {
	if l := len(req.TaskDescription); l == 0 || l > 4096 {
		return "", apierr.New(apierr.InvalidInput, "task_description must be 1-4096 characters")
	}
	if len(req.UserContext) > 8192 {
		return "", apierr.New(apierr.InvalidInput, "user_context must be at most 8192 characters")
	}

	job := domain.NewJob(req.TaskDescription, req.UserContext, req.UserID, e.jobTTL)
	if err := e.store.Create(ctx, job); err != nil {
		return "", err
	}

	go e.run(job.ID, req)
	return job.ID, nil
}

// Cancel cancels jobID, cooperatively interrupting the workflow at its
// next suspension point (spec §5).
func (e *Engine) Cancel(ctx context.Context, jobID string) error {
	return e.coordinator.Cancel(ctx, jobID)
}

// GetJob returns the current job record.
func (e *Engine) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return e.store.Get(ctx, jobID)
}

// run is the workflow body. It is launched in its own goroutine by
// CreateSkill and deliberately uses a background context: a job's
// lifetime outlives the request that created it, the same reasoning the
// teacher's engine.Runner applies to its own per-run goroutine.
func (e *Engine) run(jobID string, req CreateSkillRequest) {
	ctx := context.Background()

	job, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		return j.Transition(domain.StatusRunning)
	})
	if err != nil {
		slog.Error("workflow: failed to start job", "job_id", jobID, "err", err)
		return
	}

	understanding, err := e.runPhase1(ctx, job)
	if err != nil {
		e.fail(ctx, jobID, err)
		return
	}

	draft, err := e.runPhase2(ctx, jobID, understanding, req)
	if err != nil {
		e.fail(ctx, jobID, err)
		return
	}

	if err := e.runPhase3(ctx, jobID, understanding, draft); err != nil {
		e.fail(ctx, jobID, err)
		return
	}
}

// fail marks jobID failed unless err signals a cancellation the HITL
// Coordinator has already applied, in which case there is nothing further
// to record (spec §7: cancellation carries no error field).
func (e *Engine) fail(ctx context.Context, jobID string, err error) {
	if apierr.Is(err, apierr.Cancelled) {
		slog.Info("workflow: job stopped by cancellation", "job_id", jobID)
		return
	}

	kind, ok := apierr.KindOf(err)
	if !ok {
		kind = apierr.LMPermanent
	}
	_, uerr := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		if j.Status.Terminal() {
			return nil
		}
		j.Error = &domain.JobError{Kind: string(kind), Message: err.Error()}
		return j.Transition(domain.StatusFailed)
	})
	if uerr != nil {
		slog.Error("workflow: failed to record job failure", "job_id", jobID, "original_err", err, "update_err", uerr)
		return
	}
	slog.Warn("workflow: job failed", "job_id", jobID, "kind", kind, "err", err)
}

// currentGenerateModule builds a fresh GenerateSkillContent module carrying
// whatever signature is currently live — tuned or original. Modules are
// cheap, stateless wrappers, so reconstructing one per call is simpler than
// making *operator.Module itself safe for concurrent signature swaps.
func (e *Engine) currentGenerateModule() *operator.Module[operator.GenerateSkillContentIn, operator.GenerateSkillContentOut] {
	mod := operator.NewGenerateSkillContent(e.genDeps)
	mod.Signature = e.currentGenerateSignature()
	return mod
}

func (e *Engine) currentGenerateSignature() domain.Signature {
	e.genMu.RLock()
	defer e.genMu.RUnlock()
	return e.genSig
}

func (e *Engine) applyTunedGenerateSignature(sig domain.Signature) {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	e.genSig = sig
}

// recordTuningHistory appends record to the signature history, unless it's
// the zero value (the Tuner returns that when a candidate was rejected
// before re-evaluation ever produced a score — spec §4.6's history tracks
// scored versions, not structurally-invalid proposals).
func (e *Engine) recordTuningHistory(record domain.VersionRecord) {
	if record == (domain.VersionRecord{}) {
		return
	}
	e.genMu.Lock()
	defer e.genMu.Unlock()
	e.genHistory = append(e.genHistory, record)
}

// GenerateSignatureHistory returns every generate_skill_content tuning
// iteration recorded so far, oldest first (spec §3's "a version history
// records score deltas across tuning iterations").
func (e *Engine) GenerateSignatureHistory() []domain.VersionRecord {
	e.genMu.RLock()
	defer e.genMu.RUnlock()
	return append([]domain.VersionRecord(nil), e.genHistory...)
}

// nonTrivialAmbiguity reports whether ambiguities contains at least one
// entry whose trimmed length exceeds 10 characters (spec §4.3's exact
// clarify-trigger rule).
func nonTrivialAmbiguity(ambiguities []string) bool {
	for _, a := range ambiguities {
		if len(strings.TrimSpace(a)) > 10 {
			return true
		}
	}
	return false
}

// mapAnswers positionally pairs each clarifying question with one line of
// the user's free-text feedback. This is a deliberately simple mapping —
// the HITL response contract (spec §6) carries feedback as a single
// string, not per-question structured answers, so "one answer per line,
// in question order" is the most direct reading that still lets
// SynthesizePlan's clarifying_answers field cite which question an answer
// resolves.
func mapAnswers(questions []string, feedback string) map[string]string {
	lines := strings.Split(strings.TrimSpace(feedback), "\n")
	answers := make(map[string]string, len(questions))
	for i, q := range questions {
		if i < len(lines) {
			answers[q] = strings.TrimSpace(lines[i])
		} else {
			answers[q] = ""
		}
	}
	return answers
}

// buildMetadata constructs a skill's frontmatter metadata from its
// understanding and the LM-authored description. The frontmatter name
// always comes from taxonomy.NameFromID, never from the LM's own
// generated name: only the deterministic derivation satisfies spec §8
// invariant 6 (name_from_id output matches [a-z][a-z0-9-]{0,63}).
func buildMetadata(understanding *domain.Understanding, description string) domain.SkillMetadata {
	return domain.SkillMetadata{
		SkillID:      understanding.TaxonomyPath,
		Name:         taxonomy.NameFromID(understanding.TaxonomyPath),
		Description:  description,
		Version:      "1.0.0",
		Type:         domain.TypeReference,
		Weight:       domain.WeightMedium,
		LoadPriority: domain.PriorityNormal,
		Dependencies: understanding.Dependencies,
	}
}
