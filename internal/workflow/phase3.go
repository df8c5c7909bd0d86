package workflow

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/metrics"
	"github.com/soochol/skillsmith/internal/operator"
)

// evaluation is one Phase 3 scoring pass's result.
type evaluation struct {
	report    domain.ValidationReport
	scores    metrics.Scores
	composite float64
}

// evaluate runs ValidateCompliance and AssessQuality concurrently over
// body and folds them into a style-weighted composite (spec §4.3/§4.6).
func (e *Engine) evaluate(ctx context.Context, body string, style domain.SkillStyle) (evaluation, error) {
	var complianceOut operator.ValidateComplianceOut
	var qualityOut operator.AssessQualityOut

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, _, err := e.validateCompliance.Run(gctx, operator.ValidateComplianceIn{Body: body})
		if err != nil {
			return err
		}
		complianceOut = out
		return nil
	})
	g.Go(func() error {
		out, _, err := e.assessQuality.Run(gctx, operator.AssessQualityIn{Body: body, Style: style})
		if err != nil {
			return err
		}
		qualityOut = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return evaluation{}, err
	}

	scores := metrics.Scores{
		SkillQuality: qualityOut.SkillQuality,
		SemanticF1:   qualityOut.SemanticF1,
		EntityF1:     qualityOut.EntityF1,
		Readability:  qualityOut.Readability,
		Coverage:     qualityOut.Coverage,
	}
	composite, err := metrics.Composite(style, scores)
	if err != nil {
		return evaluation{}, err
	}

	report := domain.ValidationReport{
		Pass:           complianceOut.Pass,
		Score:          composite,
		CriticalIssues: complianceOut.CriticalIssues,
		Warnings:       complianceOut.Warnings,
	}
	return evaluation{report: report, scores: scores, composite: composite}, nil
}

// runPhase3 runs Phase 3 — Validation & Refinement (spec §4.3): score the
// draft, and if it fails or scores below threshold, cycle between
// RefineSkill (accepted on a >=0.05 composite improvement) and the
// Signature Tuner, bounded to maxRefinements rounds. If the budget is
// exhausted still failing, raise a HITL validate checkpoint. On
// acceptance, write the artifact and complete the job.
func (e *Engine) runPhase3(ctx context.Context, jobID string, understanding *domain.Understanding, draft *domain.Draft) error {
	body := draft.Body
	style := draft.Style

	eval, err := e.evaluate(ctx, body, style)
	if err != nil {
		return err
	}

	for round := 0; round < maxRefinements; round++ {
		needsRefine, err := metrics.NeedsRefinement(eval.composite, "")
		if err != nil {
			return err
		}
		if eval.report.Pass && !needsRefine {
			break
		}

		// Compliance-first ordering (spec §9 open question, resolved in
		// DESIGN.md): critical issues surfaced by ValidateCompliance are
		// handed to RefineSkill ahead of AssessQuality's warnings.
		refOut, _, err := e.refineSkill.Run(ctx, operator.RefineSkillIn{
			Body:           body,
			CriticalIssues: eval.report.CriticalIssues,
			Warnings:       eval.report.Warnings,
		})
		if err != nil {
			return err
		}

		candidateEval, err := e.evaluate(ctx, refOut.Body, style)
		if err != nil {
			return err
		}

		if _, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
			j.Refinements++
			return nil
		}); err != nil {
			return err
		}

		if metrics.ImprovementMeetsBar(eval.composite, candidateEval.composite) {
			body = refOut.Body
			draft.Body = body
			eval = candidateEval
			if err := e.persistValidation(ctx, jobID, draft, &eval.report, 0.75); err != nil {
				return err
			}
			continue
		}

		slog.Info("workflow: refinement did not clear improvement bar, invoking signature tuner",
			"job_id", jobID, "old_composite", eval.composite, "new_composite", candidateEval.composite)

		tuned, terr := e.tuneAndRegenerate(ctx, jobID, understanding, style, body, eval.composite)
		if terr != nil {
			return terr
		}
		draft = tuned
		body = draft.Body
		eval, err = e.evaluate(ctx, body, style)
		if err != nil {
			return err
		}
		if err := e.persistValidation(ctx, jobID, draft, &eval.report, 0.75); err != nil {
			return err
		}
	}

	needsRefine, err := metrics.NeedsRefinement(eval.composite, "")
	if err != nil {
		return err
	}
	if !eval.report.Pass || needsRefine {
		newBody, newEval, err := e.runValidateCheckpoint(ctx, jobID, draft, eval)
		if err != nil {
			return err
		}
		body = newBody
		eval = newEval
		draft.Body = body
	}

	return e.finalize(ctx, jobID, understanding, draft, eval)
}

// tuneAndRegenerate runs one Signature Tuner iteration against
// generate_skill_content and regenerates the draft content with whatever
// signature results (tuned, if accepted; unchanged otherwise), per spec
// §4.3's "invoke the Signature Tuner and repeat Phase 2 with the tuned
// operator". The repeat here is the generation call only: the preview
// checkpoint is Phase 2's own concern and is not re-entered mid-refinement.
func (e *Engine) tuneAndRegenerate(ctx context.Context, jobID string, understanding *domain.Understanding, style domain.SkillStyle, lowScoreBody string, lowScore float64) (*domain.Draft, error) {
	reEvaluate := func(ctx context.Context, candidateInstruction string) (float64, error) {
		mod := operator.NewGenerateSkillContent(e.genDeps)
		sig := operator.GenerateSkillContentSignature()
		sig.Instruction = candidateInstruction
		mod.Signature = sig

		out, _, err := mod.Run(ctx, operator.GenerateSkillContentIn{Plan: understanding.Plan, Style: style})
		if err != nil {
			return 0, err
		}
		candidateEval, err := e.evaluate(ctx, out.Body, style)
		if err != nil {
			return 0, err
		}
		return candidateEval.composite, nil
	}

	result, err := e.tuner.Tune(ctx, e.currentGenerateSignature(), []string{lowScoreBody}, []float64{lowScore}, reEvaluate)
	if err != nil {
		return nil, err
	}
	e.recordTuningHistory(result.History)
	if result.Accepted {
		slog.Info("workflow: signature tuner accepted a new generate_skill_content instruction", "job_id", jobID, "version", result.Signature.Version)
		e.applyTunedGenerateSignature(result.Signature)
	}

	genOut, _, err := e.currentGenerateModule().Run(ctx, operator.GenerateSkillContentIn{Plan: understanding.Plan, Style: style})
	if err != nil {
		return nil, err
	}
	draft := &domain.Draft{Style: style, Metadata: buildMetadata(understanding, genOut.Description), Body: genOut.Body}
	if _, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Draft = draft
		return nil
	}); err != nil {
		return nil, err
	}
	return draft, nil
}

// runValidateCheckpoint raises a HITL validate prompt after the
// refinement budget is exhausted (spec §4.3). proceed accepts the draft
// as-is; revise incorporates feedback and re-publishes with a fresh
// report; cancel aborts the job.
func (e *Engine) runValidateCheckpoint(ctx context.Context, jobID string, draft *domain.Draft, eval evaluation) (string, evaluation, error) {
	body := draft.Body
	for {
		report := eval.report
		if _, err := e.coordinator.Publish(ctx, jobID, hitl.PromptSpec{Type: domain.HITLValidate, Report: &report}); err != nil {
			return "", evaluation{}, err
		}
		resp, err := e.coordinator.Await(ctx, jobID)
		if err != nil {
			return "", evaluation{}, err
		}

		switch resp.Action {
		case domain.ActionCancel:
			return "", evaluation{}, apierr.New(apierr.Cancelled, "job cancelled at validation checkpoint")
		case domain.ActionRevise:
			revOut, _, err := e.incorporateFeedback.Run(ctx, operator.IncorporateFeedbackIn{CurrentBody: body, Feedback: resp.Feedback})
			if err != nil {
				return "", evaluation{}, err
			}
			body = revOut.Body
			eval, err = e.evaluate(ctx, body, draft.Style)
			if err != nil {
				return "", evaluation{}, err
			}
			continue
		default: // proceed: accept despite failing validation
			return body, eval, nil
		}
	}
}

func (e *Engine) persistValidation(ctx context.Context, jobID string, draft *domain.Draft, report *domain.ValidationReport, pct float64) error {
	_, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Draft = draft
		j.ValidationReport = report
		j.Progress = domain.Progress{Phase: domain.PhaseValidation, Percentage: pct, Message: "refining"}
		return nil
	})
	return err
}

// finalize writes the accepted artifact to the taxonomy and marks the job
// completed with its final score (spec §4.3: "on acceptance, write the
// artifact... mark the job completed, and record final scores").
func (e *Engine) finalize(ctx context.Context, jobID string, understanding *domain.Understanding, draft *domain.Draft, eval evaluation) error {
	meta := draft.Metadata
	meta.SkillID = understanding.TaxonomyPath
	if err := e.taxonomy.WriteSkill(meta, draft.Body); err != nil {
		return err
	}
	e.cache.Invalidate("taxonomy:*")

	finalScore := eval.composite
	report := eval.report
	_, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Draft = draft
		j.ValidationReport = &report
		j.FinalScore = &finalScore
		j.Progress = domain.Progress{Phase: domain.PhaseValidation, Percentage: 1.0, Message: "completed"}
		return j.Transition(domain.StatusCompleted)
	})
	return err
}
