package metrics

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// defaultRefinementExpr is the default composite-score cutoff below which
// Phase 3 routes into refinement (spec §4.3/§4.6). It is evaluated through
// expr-lang rather than a hard-coded comparison so the cutoff is swappable
// without a recompile, mirroring the teacher's own use of expr-lang for
// branch-node conditions (internal/agents/branch.go, eval.go).
const defaultRefinementExpr = `composite < 0.75`

// NeedsRefinement evaluates expression (or the spec default if expression
// is empty) against composite. A strictly-below comparison is used per
// spec §8's boundary behavior: exactly 0.75 does not trigger refinement.
func NeedsRefinement(composite float64, expression string) (bool, error) {
	if expression == "" {
		expression = defaultRefinementExpr
	}
	env := map[string]any{"composite": composite}

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("metrics: compile refinement expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("metrics: evaluate refinement expression %q: %w", expression, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("metrics: refinement expression %q did not evaluate to bool", expression)
	}
	return b, nil
}

// ImprovementMeetsBar reports whether newScore beats oldScore by at least
// the spec's acceptance margin (spec §4.3/§4.6: "improves by at least 0.05").
const ImprovementBar = 0.05

func ImprovementMeetsBar(oldScore, newScore float64) bool {
	return newScore-oldScore >= ImprovementBar
}
