package operator

import (
	"strings"

	"github.com/soochol/skillsmith/internal/domain"
)

// --- GenerateSkillContent ---

type GenerateSkillContentIn struct {
	Plan  string
	Style domain.SkillStyle
}

type GenerateSkillContentOut struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Body        string `json:"body"`
}

func GenerateSkillContentSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "generate_skill_content",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "plan", Description: "The structured content plan", Type: "string"},
			{Name: "style", Description: "One of navigation_hub, comprehensive, minimal", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "name", Description: "Kebab-case skill name, 1-64 chars", Type: "string"},
			{Name: "description", Description: "1-1024 char skill description", Type: "string"},
			{Name: "body", Description: "The full Markdown body of the skill artifact", Type: "string"},
		},
		Instruction: "Write the skill artifact's Markdown content following the plan, in the requested style.",
	}
}

func NewGenerateSkillContent(m ModuleDeps) *Module[GenerateSkillContentIn, GenerateSkillContentOut] {
	return &Module[GenerateSkillContentIn, GenerateSkillContentOut]{
		Signature: GenerateSkillContentSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in GenerateSkillContentIn) map[string]string {
			return map[string]string{"plan": in.Plan, "style": string(in.Style)}
		},
		Validate: func(out GenerateSkillContentOut) error {
			if err := requireNonEmpty("name", out.Name != ""); err != nil {
				return err
			}
			if err := requireNonEmpty("description", out.Description != ""); err != nil {
				return err
			}
			return requireNonEmpty("body", out.Body != "")
		},
	}
}

// --- IncorporateFeedback ---

type IncorporateFeedbackIn struct {
	CurrentBody string
	Feedback    string
}

type IncorporateFeedbackOut struct {
	Body string `json:"body"`
}

func IncorporateFeedbackSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "incorporate_feedback",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "current_body", Description: "The current draft body", Type: "string"},
			{Name: "feedback", Description: "The user's revision feedback", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "body", Description: "The revised Markdown body incorporating the feedback", Type: "string"},
		},
		Instruction: "Revise the draft to incorporate the user's feedback, preserving everything not affected by it.",
	}
}

func NewIncorporateFeedback(m ModuleDeps) *Module[IncorporateFeedbackIn, IncorporateFeedbackOut] {
	return &Module[IncorporateFeedbackIn, IncorporateFeedbackOut]{
		Signature: IncorporateFeedbackSignature(),
		Client:    m.Client,
		Model:     m.Model,
		Sanitize: func(in IncorporateFeedbackIn) IncorporateFeedbackIn {
			in.Feedback = strings.TrimSpace(in.Feedback)
			return in
		},
		ToFields: func(in IncorporateFeedbackIn) map[string]string {
			return map[string]string{"current_body": in.CurrentBody, "feedback": in.Feedback}
		},
		Validate: func(out IncorporateFeedbackOut) error {
			return requireNonEmpty("body", out.Body != "")
		},
	}
}
