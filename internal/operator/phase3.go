package operator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soochol/skillsmith/internal/domain"
)

// --- ValidateCompliance ---

type ValidateComplianceIn struct {
	Body string
}

type ValidateComplianceOut struct {
	Pass           bool     `json:"pass"`
	Score          float64  `json:"score"`
	CriticalIssues []string `json:"critical_issues"`
	Warnings       []string `json:"warnings"`
}

func ValidateComplianceSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "validate_compliance",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "body", Description: "The skill artifact's Markdown body", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "pass", Description: "Whether the artifact complies with format/structure rules", Type: "bool"},
			{Name: "score", Description: "Compliance score in [0,1]", Type: "number"},
			{Name: "critical_issues", Description: "Compliance problems that must be fixed", Type: "list"},
			{Name: "warnings", Description: "Non-blocking compliance concerns", Type: "list"},
		},
		Instruction: "Check the artifact against structural and formatting compliance rules for skill documents.",
	}
}

func NewValidateCompliance(m ModuleDeps) *Module[ValidateComplianceIn, ValidateComplianceOut] {
	return &Module[ValidateComplianceIn, ValidateComplianceOut]{
		Signature: ValidateComplianceSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in ValidateComplianceIn) map[string]string {
			return map[string]string{"body": in.Body}
		},
	}
}

// --- AssessQuality ---

type AssessQualityIn struct {
	Body  string
	Style domain.SkillStyle
}

type AssessQualityOut struct {
	SkillQuality float64 `json:"skill_quality"`
	SemanticF1   float64 `json:"semantic_f1"`
	EntityF1     float64 `json:"entity_f1"`
	Readability  float64 `json:"readability"`
	Coverage     float64 `json:"coverage"`
}

func AssessQualitySignature() domain.Signature {
	return domain.Signature{
		SignatureID: "assess_quality",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "body", Description: "The skill artifact's Markdown body", Type: "string"},
			{Name: "style", Description: "The content style this artifact targets", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "skill_quality", Description: "Overall quality sub-score in [0,1]", Type: "number"},
			{Name: "semantic_f1", Description: "Semantic coverage sub-score in [0,1]", Type: "number"},
			{Name: "entity_f1", Description: "Entity coverage sub-score in [0,1]", Type: "number"},
			{Name: "readability", Description: "Readability sub-score in [0,1]", Type: "number"},
			{Name: "coverage", Description: "Requirement coverage sub-score in [0,1]", Type: "number"},
		},
		Instruction: "Score the artifact across each quality dimension independently, in [0,1].",
	}
}

func NewAssessQuality(m ModuleDeps) *Module[AssessQualityIn, AssessQualityOut] {
	return &Module[AssessQualityIn, AssessQualityOut]{
		Signature: AssessQualitySignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in AssessQualityIn) map[string]string {
			return map[string]string{"body": in.Body, "style": string(in.Style)}
		},
	}
}

// --- RefineSkill ---

type RefineSkillIn struct {
	Body           string
	CriticalIssues []string
	Warnings       []string
}

type RefineSkillOut struct {
	Body string `json:"body"`
}

func RefineSkillSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "refine_skill",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "body", Description: "The current draft body", Type: "string"},
			{Name: "critical_issues", Description: "Comma-separated critical issues to fix", Type: "string"},
			{Name: "warnings", Description: "Comma-separated non-blocking warnings to consider", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "body", Description: "The refined Markdown body", Type: "string"},
		},
		Instruction: "Refine the draft to resolve the critical issues and, where reasonable, the warnings.",
	}
}

func NewRefineSkill(m ModuleDeps) *Module[RefineSkillIn, RefineSkillOut] {
	return &Module[RefineSkillIn, RefineSkillOut]{
		Signature: RefineSkillSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in RefineSkillIn) map[string]string {
			return map[string]string{
				"body":            in.Body,
				"critical_issues": strings.Join(in.CriticalIssues, ", "),
				"warnings":        strings.Join(in.Warnings, ", "),
			}
		},
		Validate: func(out RefineSkillOut) error {
			return requireNonEmpty("body", out.Body != "")
		},
	}
}

// --- DetectSkillStyle ---

type DetectSkillStyleIn struct {
	Body string
}

type DetectSkillStyleOut struct {
	Style      domain.SkillStyle `json:"style"`
	Confidence float64           `json:"confidence"`
	Rationale  string            `json:"rationale"`
}

func DetectSkillStyleSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "detect_skill_style",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "body", Description: "The skill artifact's Markdown body", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "style", Description: "One of navigation_hub, comprehensive, minimal", Type: "string"},
			{Name: "confidence", Description: "Confidence in [0,1]", Type: "number"},
			{Name: "rationale", Description: "Short rationale for the chosen style", Type: "string"},
		},
		Instruction: "Classify this skill artifact's content style.",
	}
}

func NewDetectSkillStyle(m ModuleDeps) *Module[DetectSkillStyleIn, DetectSkillStyleOut] {
	return &Module[DetectSkillStyleIn, DetectSkillStyleOut]{
		Signature: DetectSkillStyleSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in DetectSkillStyleIn) map[string]string {
			return map[string]string{"body": in.Body}
		},
		Validate: func(out DetectSkillStyleOut) error {
			switch out.Style {
			case domain.StyleNavigationHub, domain.StyleComprehensive, domain.StyleMinimal:
				return nil
			default:
				return requireNonEmpty("style", false)
			}
		},
	}
}

// --- FailureAnalyzer ---

type FailureAnalyzerIn struct {
	SignatureID    string
	LowScoreOutputs []string
	Scores          []float64
}

type FailureAnalyzerOut struct {
	FailureDescription string `json:"failure_description"`
}

func FailureAnalyzerSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "failure_analyzer",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "target_signature", Description: "The signature id whose outputs are scoring low", Type: "string"},
			{Name: "low_score_outputs", Description: "Comma-separated sample of low-scoring outputs", Type: "string"},
			{Name: "scores", Description: "Comma-separated scores for each sample", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "failure_description", Description: "A structured description of why these outputs scored low", Type: "string"},
		},
		Instruction: "Analyze the low-scoring outputs and describe the pattern of failure precisely.",
	}
}

func NewFailureAnalyzer(m ModuleDeps) *Module[FailureAnalyzerIn, FailureAnalyzerOut] {
	return &Module[FailureAnalyzerIn, FailureAnalyzerOut]{
		Signature: FailureAnalyzerSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in FailureAnalyzerIn) map[string]string {
			scores := make([]string, len(in.Scores))
			for i, s := range in.Scores {
				scores[i] = formatScore(s)
			}
			return map[string]string{
				"target_signature":  in.SignatureID,
				"low_score_outputs": strings.Join(in.LowScoreOutputs, " ||| "),
				"scores":            strings.Join(scores, ", "),
			}
		},
		Validate: func(out FailureAnalyzerOut) error {
			return requireNonEmpty("failure_description", out.FailureDescription != "")
		},
	}
}

// --- SignatureProposer ---

type SignatureProposerIn struct {
	CurrentInstruction string
	FailureDescription string
}

type SignatureProposerOut struct {
	CandidateInstruction string `json:"candidate_instruction"`
}

func SignatureProposerSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "signature_proposer",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "current_instruction", Description: "The operator's current instruction text", Type: "string"},
			{Name: "failure_description", Description: "The failure analysis describing what's going wrong", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "candidate_instruction", Description: "A revised instruction string addressing the failure", Type: "string"},
		},
		Instruction: "Propose a revised instruction for this operator that addresses the described failure, keeping the same input/output field names.",
	}
}

func NewSignatureProposer(m ModuleDeps) *Module[SignatureProposerIn, SignatureProposerOut] {
	return &Module[SignatureProposerIn, SignatureProposerOut]{
		Signature: SignatureProposerSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in SignatureProposerIn) map[string]string {
			return map[string]string{
				"current_instruction": in.CurrentInstruction,
				"failure_description": in.FailureDescription,
			}
		},
		Validate: func(out SignatureProposerOut) error {
			return requireNonEmpty("candidate_instruction", out.CandidateInstruction != "")
		},
	}
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// --- SignatureValidator ---
//
// Unlike the rest of the Phase 3 catalogue, SignatureValidator is not an LM
// call: spec §4.2 describes it as checking "the candidate is well-formed
// (same field names, non-degenerate instructions)", which is a deterministic
// structural check over two instruction strings — an LM
// round-trip would add latency and nondeterminism for no benefit, so this
// is a plain function, the same way the teacher validates branch-node
// config deterministically rather than asking a model.

// ValidateCandidateSignature checks that candidateInstruction is a
// well-formed replacement for current's instruction: non-empty, different
// from the current text, and at least 10 characters long. Only the
// instruction text is checked; it is not scanned for field names, and the
// input/output field lists stay those of current when a tuned candidate is
// adopted.
func ValidateCandidateSignature(current domain.Signature, candidateInstruction string) error {
	trimmed := strings.TrimSpace(candidateInstruction)
	if trimmed == "" {
		return fmt.Errorf("candidate instruction is empty")
	}
	if trimmed == strings.TrimSpace(current.Instruction) {
		return fmt.Errorf("candidate instruction is identical to the current one")
	}
	if len(trimmed) < 10 {
		return fmt.Errorf("candidate instruction %q is degenerate (too short)", trimmed)
	}
	return nil
}
