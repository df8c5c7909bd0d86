package workflow

import (
	"context"
	"log/slog"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/hitl"
	"github.com/soochol/skillsmith/internal/operator"
)

// runPhase2 runs Phase 2 — Content Generation (spec §4.3): generate the
// draft body from the plan, resolve its style, and optionally loop a HITL
// preview checkpoint through bounded revisions.
func (e *Engine) runPhase2(ctx context.Context, jobID string, understanding *domain.Understanding, req CreateSkillRequest) (*domain.Draft, error) {
	style := req.Style
	if style == "" {
		style = domain.StyleComprehensive // neutral default pending detection below
	}

	genOut, _, err := e.currentGenerateModule().Run(ctx, operator.GenerateSkillContentIn{
		Plan:  understanding.Plan,
		Style: style,
	})
	if err != nil {
		return nil, err
	}
	body := genOut.Body

	if req.Style == "" {
		if detected, _, derr := e.detectSkillStyle.Run(ctx, operator.DetectSkillStyleIn{Body: body}); derr == nil {
			style = detected.Style
		} else {
			slog.Warn("workflow: style detection failed, keeping default style", "job_id", jobID, "err", derr)
		}
	}

	draft := &domain.Draft{Style: style, Metadata: buildMetadata(understanding, genOut.Description), Body: body}
	if err := e.persistDraft(ctx, jobID, draft, "draft generated", 0.5); err != nil {
		return nil, err
	}

	if req.EnablePreview {
		if err := e.runPreviewLoop(ctx, jobID, draft); err != nil {
			return nil, err
		}
	}

	return draft, nil
}

// runPreviewLoop publishes a HITL preview checkpoint and applies the
// user's response: proceed ends the loop, cancel aborts the job, and
// revise incorporates feedback and republishes — bounded to maxRevisions
// per job (spec §4.3).
func (e *Engine) runPreviewLoop(ctx context.Context, jobID string, draft *domain.Draft) error {
previewLoop:
	for {
		current, err := e.store.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if current.Revisions >= maxRevisions {
			slog.Warn("workflow: preview revision budget exhausted, proceeding with current draft", "job_id", jobID)
			return nil
		}

		if _, err := e.coordinator.Publish(ctx, jobID, hitl.PromptSpec{Type: domain.HITLPreview, Draft: draft}); err != nil {
			return err
		}
		resp, err := e.coordinator.Await(ctx, jobID)
		if err != nil {
			return err
		}

		switch resp.Action {
		case domain.ActionCancel:
			return apierr.New(apierr.Cancelled, "job cancelled during preview")
		case domain.ActionRevise:
			revOut, _, err := e.incorporateFeedback.Run(ctx, operator.IncorporateFeedbackIn{
				CurrentBody: draft.Body,
				Feedback:    resp.Feedback,
			})
			if err != nil {
				return err
			}
			draft.Body = revOut.Body
			if _, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
				j.Draft = draft
				j.Revisions++
				return nil
			}); err != nil {
				return err
			}
			continue previewLoop
		default: // proceed
			return nil
		}
	}
}

func (e *Engine) persistDraft(ctx context.Context, jobID string, draft *domain.Draft, message string, pct float64) error {
	_, err := e.store.Update(ctx, jobID, func(j *domain.Job) error {
		j.Draft = draft
		j.Progress = domain.Progress{Phase: domain.PhaseGeneration, Percentage: pct, Message: message}
		return nil
	})
	return err
}
