package hitl

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/soochol/skillsmith/internal/domain"
)

// classificationOrder fixes the precedence when a free-typed response could
// match more than one action's keyword list (e.g. "no, but make it
// shorter" matching both cancel's "no" and revise's "no, but").
var classificationOrder = []domain.HITLAction{domain.ActionCancel, domain.ActionRevise, domain.ActionProceed}

// ClassifyFreeText maps a client-typed word or phrase to one of the three
// canonical actions using the server-published keyword list
// (domain.KeywordMap), falling back to Proceed for anything that matches no
// list (spec §4.5's robustness rule). Each list is compiled into an
// expr-lang "text contains X or text contains Y..." expression rather than
// a hand-rolled loop, the same swappable-condition style
// internal/metrics/threshold.go uses for the refinement cutoff.
func ClassifyFreeText(raw string) (domain.HITLAction, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return domain.ActionProceed, nil
	}
	env := map[string]any{"text": text}

	for _, action := range classificationOrder {
		keywords := domain.KeywordMap[action]
		if len(keywords) == 0 {
			continue
		}
		matched, err := matchesAny(env, keywords)
		if err != nil {
			return domain.ActionProceed, err
		}
		if matched {
			return action, nil
		}
	}
	return domain.ActionProceed, nil
}

func matchesAny(env map[string]any, keywords []string) (bool, error) {
	clauses := make([]string, len(keywords))
	for i, kw := range keywords {
		clauses[i] = fmt.Sprintf("text contains %q", kw)
	}
	expression := strings.Join(clauses, " or ")

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("hitl: compile keyword expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("hitl: evaluate keyword expression %q: %w", expression, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("hitl: keyword expression %q did not evaluate to bool", expression)
	}
	return b, nil
}
