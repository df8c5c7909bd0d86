package operator

import (
	"fmt"

	"github.com/soochol/skillsmith/internal/llm"
)

// ModuleDeps bundles the construction-time dependencies every operator
// constructor needs: which LM client to call and which model ID to ask it
// for. Generalizes the teacher's per-node BuildDeps (internal/agents) down
// to this package's flatter operator shape.
type ModuleDeps struct {
	Client llm.Client
	Model  string
}

func requireNonEmpty(field string, ok bool) error {
	if !ok {
		return fmt.Errorf("required field %q is empty", field)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
