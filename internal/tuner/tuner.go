// Package tuner implements the signature-tuning loop (spec §4.6): when an
// operator's outputs score persistently low, analyze the failure, propose a
// revised instruction, validate it structurally, and accept it only if a
// held-out re-evaluation clears the improvement bar.
package tuner

import (
	"context"
	"log/slog"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/metrics"
	"github.com/soochol/skillsmith/internal/operator"
)

// Tuner runs one signature-tuning iteration per call; the caller (the
// Workflow Engine) enforces the ≤3-iterations-per-job bound, the same split
// of responsibility as operator.RetryPolicy bounding a single call while
// the engine bounds the surrounding refinement loop.
type Tuner struct {
	failureAnalyzer   *operator.Module[operator.FailureAnalyzerIn, operator.FailureAnalyzerOut]
	signatureProposer *operator.Module[operator.SignatureProposerIn, operator.SignatureProposerOut]
}

// New constructs a Tuner backed by deps.
func New(deps operator.ModuleDeps) *Tuner {
	return &Tuner{
		failureAnalyzer:   operator.NewFailureAnalyzer(deps),
		signatureProposer: operator.NewSignatureProposer(deps),
	}
}

// ReEvaluate runs the candidate instruction against a held-out sample and
// returns the resulting composite score. The Workflow Engine supplies this
// since only it knows how to re-run the owning operator end-to-end with a
// substituted instruction.
type ReEvaluate func(ctx context.Context, candidateInstruction string) (float64, error)

// Result is one tuning attempt's outcome.
type Result struct {
	Accepted bool
	Signature domain.Signature // unchanged if not accepted
	History   domain.VersionRecord
}

// Tune analyzes lowScoreOutputs/scores for sig, proposes a candidate
// instruction, validates it structurally, and accepts it only if
// re-evaluation improves the composite score by at least
// metrics.ImprovementBar (spec §4.6).
func (t *Tuner) Tune(ctx context.Context, sig domain.Signature, lowScoreOutputs []string, scores []float64, reEvaluate ReEvaluate) (Result, error) {
	baseline := average(scores)

	failure, _, err := t.failureAnalyzer.Run(ctx, operator.FailureAnalyzerIn{
		SignatureID:     sig.SignatureID,
		LowScoreOutputs: lowScoreOutputs,
		Scores:          scores,
	})
	if err != nil {
		return Result{}, err
	}

	proposal, _, err := t.signatureProposer.Run(ctx, operator.SignatureProposerIn{
		CurrentInstruction: sig.Instruction,
		FailureDescription: failure.FailureDescription,
	})
	if err != nil {
		return Result{}, err
	}

	if err := operator.ValidateCandidateSignature(sig, proposal.CandidateInstruction); err != nil {
		slog.Warn("tuner: candidate signature rejected at validation", "signature", sig.SignatureID, "err", err)
		return Result{Signature: sig}, nil
	}

	newScore, err := reEvaluate(ctx, proposal.CandidateInstruction)
	if err != nil {
		return Result{}, apierr.Wrap(apierr.LMPermanent, "re-evaluate tuned signature candidate", err)
	}

	record := domain.VersionRecord{Version: sig.Version + 1, Instruction: proposal.CandidateInstruction, Score: newScore}

	if !metrics.ImprovementMeetsBar(baseline, newScore) {
		slog.Info("tuner: candidate did not clear improvement bar", "signature", sig.SignatureID, "baseline", baseline, "candidate_score", newScore)
		return Result{Signature: sig, History: record}, nil
	}

	tuned := sig
	tuned.Version = record.Version
	tuned.Instruction = proposal.CandidateInstruction
	slog.Info("tuner: accepted tuned signature", "signature", sig.SignatureID, "version", tuned.Version, "improvement", newScore-baseline)
	return Result{Accepted: true, Signature: tuned, History: record}, nil
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
