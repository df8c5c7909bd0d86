package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/operator"
)

// runPhase1 runs Phase 1 — Understanding & Planning (spec §4.3). Four
// operators are dispatched concurrently through a single errgroup barrier
// (the teacher's internal/engine.Runner goroutine-per-node plus one join,
// generalized from a DAG of arbitrary nodes down to this phase's fixed
// four), then SynthesizePlan runs sequentially against their combined
// output. If the aggregated ambiguity list warrants it, the workflow
// suspends for a HITL clarify checkpoint before returning.
func (e *Engine) runPhase1(ctx context.Context, job *domain.Job) (*domain.Understanding, error) {
	existingSkills, err := e.taxonomy.ListSkills()
	if err != nil {
		// Listing is a placement aid, not a correctness requirement — Phase 1
		// still proceeds with no existing-skills context rather than failing
		// the whole job over an enumeration error (spec §4.1 failure policy
		// generalized to the caller side).
		existingSkills = nil
	}

	var (
		reqOut   operator.GatherRequirementsOut
		intentOut operator.AnalyzeIntentOut
		pathOut   operator.FindTaxonomyPathOut
		depsOut   operator.AnalyzeDependenciesOut
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, _, err := e.gatherRequirements.Run(gctx, operator.GatherRequirementsIn{
			TaskDescription: job.TaskDescription,
			UserContext:     job.UserContext,
		})
		if err != nil {
			return err
		}
		reqOut = out
		return nil
	})
	g.Go(func() error {
		out, _, err := e.analyzeIntent.Run(gctx, operator.AnalyzeIntentIn{TaskDescription: job.TaskDescription})
		if err != nil {
			return err
		}
		intentOut = out
		return nil
	})
	g.Go(func() error {
		// Intent is intentionally left blank here: FindTaxonomyPath is
		// dispatched in the same concurrent barrier as AnalyzeIntent (spec
		// §4.3: "runs ... concurrently"), so it cannot observe AnalyzeIntent's
		// result within this barrier. The LM places the skill from the task
		// description and existing taxonomy alone.
		out, _, err := e.findTaxonomyPath.Run(gctx, operator.FindTaxonomyPathIn{
			TaskDescription: job.TaskDescription,
			ExistingPaths:   existingSkills,
		})
		if err != nil {
			return err
		}
		pathOut = out
		return nil
	})
	g.Go(func() error {
		out, _, err := e.analyzeDependencies.Run(gctx, operator.AnalyzeDependenciesIn{
			TaskDescription: job.TaskDescription,
			ExistingSkills:  existingSkills,
		})
		if err != nil {
			return err
		}
		depsOut = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	planOut, _, err := e.synthesizePlan.Run(ctx, operator.SynthesizePlanIn{
		Requirements: reqOut.Requirements,
		Intent:       intentOut.Intent,
		TaxonomyPath: pathOut.TaxonomyPath,
		Dependencies: depsOut.Dependencies,
	})
	if err != nil {
		return nil, err
	}

	understanding := &domain.Understanding{
		Requirements: reqOut.Requirements,
		Intent:       intentOut.Intent,
		TaxonomyPath: pathOut.TaxonomyPath,
		Dependencies: depsOut.Dependencies,
		Ambiguities:  reqOut.Ambiguities,
		Plan:         planOut.Plan,
	}

	if nonTrivialAmbiguity(understanding.Ambiguities) {
		questionsOut, _, err := e.generateClarifyingQuestion.Run(ctx, operator.GenerateClarifyingQuestionsIn{
			TaskDescription: job.TaskDescription,
			Ambiguities:     understanding.Ambiguities,
		})
		if err != nil {
			return nil, err
		}

		// spec §8 boundary: an empty question list means no HITL prompt is
		// raised even though ambiguities were reported.
		if len(questionsOut.Questions) > 0 {
			if err := e.persistUnderstanding(ctx, job.ID, understanding, "awaiting clarification", 0.4); err != nil {
				return nil, err
			}

			if _, err := e.coordinator.Publish(ctx, job.ID, hitl.PromptSpec{
				Type:      domain.HITLClarify,
				Questions: questionsOut.Questions,
			}); err != nil {
				return nil, err
			}

			resp, err := e.coordinator.Await(ctx, job.ID)
			if err != nil {
				return nil, err
			}
			if resp.Action == domain.ActionCancel {
				return nil, apierr.New(apierr.Cancelled, "job cancelled during clarification")
			}

			answers := mapAnswers(questionsOut.Questions, resp.Feedback)
			understanding.ClarifyingAnswers = answers

			replanOut, _, err := e.synthesizePlan.Run(ctx, operator.SynthesizePlanIn{
				Requirements:      reqOut.Requirements,
				Intent:            intentOut.Intent,
				TaxonomyPath:      pathOut.TaxonomyPath,
				Dependencies:      depsOut.Dependencies,
				ClarifyingAnswers: answers,
			})
			if err != nil {
				return nil, err
			}
			understanding.Plan = replanOut.Plan
		}
	}

	if err := e.persistUnderstanding(ctx, job.ID, understanding, "understanding complete", 1.0); err != nil {
		return nil, err
	}
	return understanding, nil
}

func (e *Engine) persistUnderstanding(ctx context.Context, jobID string, understanding *domain.Understanding, message string, pct float64) error {
	_, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Understanding = understanding
		j.Progress = domain.Progress{Phase: domain.PhaseUnderstanding, Percentage: pct, Message: message}
		return nil
	})
	return err
}
