package operator

import (
	"fmt"
	"strings"
)

// extractJSONObject pulls the structured-output object out of a raw LM
// completion for Module.Run to unmarshal into Out. Models routinely wrap
// their JSON answer in a ```json fence, or preface it with a line of prose
// ("Here is the result:") before the object starts — spec §4.2's Signature
// contract expects Module.Run to recover the object regardless.
func extractJSONObject(text string) (string, error) {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Skip over '{{' template-variable syntax some prompts echo back in
	// leading prose (e.g. a signature field description quoted verbatim) so
	// it isn't mistaken for the start of the output object.
	start := -1
	for i := 0; i < len(content); i++ {
		if content[i] != '{' {
			continue
		}
		if i+1 < len(content) && content[i+1] == '{' {
			i++
			continue
		}
		start = i
		break
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in LM reply")
	}
	return content[start:], nil
}
