package operator

import (
	"fmt"
	"strings"

	"github.com/soochol/skillsmith/internal/domain"
)

// RenderPrompt turns a Signature's instruction and declared input fields
// into a single prompt string: the instruction, followed by each input
// field's description and value, followed by an explicit reminder of the
// output contract so the LM's reply can be parsed back deterministically.
func RenderPrompt(sig domain.Signature, inputs map[string]string) string {
	var b strings.Builder
	b.WriteString(sig.Instruction)
	b.WriteString("\n\n")

	for _, f := range sig.Inputs {
		fmt.Fprintf(&b, "## %s\n%s\n\n%s\n\n", f.Name, f.Description, inputs[f.Name])
	}

	b.WriteString("Respond with a single JSON object containing exactly these fields:\n")
	for _, f := range sig.Outputs {
		fmt.Fprintf(&b, "- %q (%s): %s\n", f.Name, f.Type, f.Description)
	}
	return b.String()
}
