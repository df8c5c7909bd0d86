package domain

import "fmt"

// HITLPromptType selects the kind of structured payload a checkpoint carries.
type HITLPromptType string

const (
	HITLClarify  HITLPromptType = "clarify"
	HITLConfirm  HITLPromptType = "confirm"
	HITLPreview  HITLPromptType = "preview"
	HITLValidate HITLPromptType = "validate"
)

// HITLAction is one of the three canonical actions a responder may take
// (spec §4.5). The UI maps free-typed words to these via a published
// keyword list; unknown words fall back to Proceed.
type HITLAction string

const (
	ActionProceed HITLAction = "proceed"
	ActionRevise  HITLAction = "revise"
	ActionCancel  HITLAction = "cancel"
)

// HITLPrompt is attached to a job while it is in StatusPendingHITL.
type HITLPrompt struct {
	Type HITLPromptType `json:"type"`

	// PromptKey derives from (job_id, seq) and is unique per publication;
	// it is what submit_response must echo back for the at-most-once check.
	PromptKey string `json:"prompt_key"`
	Seq       int    `json:"seq"`

	Questions []string          `json:"questions,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Draft     *Draft            `json:"draft,omitempty"`
	Report    *ValidationReport `json:"report,omitempty"`
}

// HITLResponse is the body of a submit_response call.
type HITLResponse struct {
	PromptKey string     `json:"prompt_key"`
	Action    HITLAction `json:"action"`
	Feedback  string     `json:"feedback,omitempty"`
}

// NormalizeAction maps an arbitrary client-typed action string to one of
// the three canonical actions, defaulting unknown words to Proceed per
// spec §4.5's robustness rule.
func NormalizeAction(raw string) HITLAction {
	switch HITLAction(raw) {
	case ActionRevise:
		return ActionRevise
	case ActionCancel:
		return ActionCancel
	default:
		return ActionProceed
	}
}

// KeywordMap is the server-published canonical action → keyword list
// mapping (spec §6, "Keyword config"), cacheable with a client-side TTL.
var KeywordMap = map[HITLAction][]string{
	ActionProceed: {"proceed", "yes", "ok", "continue", "accept", "looks good"},
	ActionRevise:  {"revise", "change", "fix", "redo", "no, but"},
	ActionCancel:  {"cancel", "stop", "abort", "no"},
}

// StalePromptKeyError is returned when submit_response's prompt key does
// not match the job's current outstanding prompt (spec §4.5, §8 invariant).
type StalePromptKeyError struct {
	JobID string
	Given string
}

func (e *StalePromptKeyError) Error() string {
	return fmt.Sprintf("job %s: stale prompt key %q", e.JobID, e.Given)
}
