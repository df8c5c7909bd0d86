package operator

import (
	"strings"

	"github.com/soochol/skillsmith/internal/domain"
)

// --- GatherRequirements ---

type GatherRequirementsIn struct {
	TaskDescription string
	UserContext     string
}

type GatherRequirementsOut struct {
	Requirements []string `json:"requirements"`
	// Ambiguities lists aspects of the request GatherRequirements could not
	// pin down from the task description alone; the Workflow Engine
	// aggregates these across Phase 1 to decide whether a HITL clarify
	// checkpoint is warranted (spec §4.3).
	Ambiguities []string `json:"ambiguities"`
}

func GatherRequirementsSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "gather_requirements",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "task_description", Description: "The user's free-form skill request", Type: "string"},
			{Name: "user_context", Description: "Optional additional context supplied by the user", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "requirements", Description: "A list of concrete requirements the skill must satisfy", Type: "list"},
		},
		Instruction: "Read the task description and extract the concrete requirements a skill artifact must satisfy to fulfill it.",
	}
}

func NewGatherRequirements(m ModuleDeps) *Module[GatherRequirementsIn, GatherRequirementsOut] {
	return &Module[GatherRequirementsIn, GatherRequirementsOut]{
		Signature: GatherRequirementsSignature(),
		Client:    m.Client,
		Model:     m.Model,
		Sanitize: func(in GatherRequirementsIn) GatherRequirementsIn {
			in.TaskDescription = truncate(strings.TrimSpace(in.TaskDescription), 4096)
			in.UserContext = truncate(strings.TrimSpace(in.UserContext), 8192)
			return in
		},
		ToFields: func(in GatherRequirementsIn) map[string]string {
			return map[string]string{"task_description": in.TaskDescription, "user_context": in.UserContext}
		},
		Validate: func(out GatherRequirementsOut) error {
			return requireNonEmpty("requirements", len(out.Requirements) > 0)
		},
	}
}

// --- AnalyzeIntent ---

type AnalyzeIntentIn struct {
	TaskDescription string
}

type AnalyzeIntentOut struct {
	Intent string `json:"intent"`
}

func AnalyzeIntentSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "analyze_intent",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "task_description", Description: "The user's free-form skill request", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "intent", Description: "One-sentence statement of what capability the user wants", Type: "string"},
		},
		Instruction: "Summarize the underlying intent of this skill request in a single sentence.",
	}
}

func NewAnalyzeIntent(m ModuleDeps) *Module[AnalyzeIntentIn, AnalyzeIntentOut] {
	return &Module[AnalyzeIntentIn, AnalyzeIntentOut]{
		Signature: AnalyzeIntentSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in AnalyzeIntentIn) map[string]string {
			return map[string]string{"task_description": in.TaskDescription}
		},
		Validate: func(out AnalyzeIntentOut) error {
			return requireNonEmpty("intent", out.Intent != "")
		},
	}
}

// --- FindTaxonomyPath ---

type FindTaxonomyPathIn struct {
	TaskDescription string
	Intent          string
	ExistingPaths   []string
}

type FindTaxonomyPathOut struct {
	TaxonomyPath string `json:"taxonomy_path"`
}

func FindTaxonomyPathSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "find_taxonomy_path",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "task_description", Description: "The user's free-form skill request", Type: "string"},
			{Name: "intent", Description: "The summarized intent", Type: "string"},
			{Name: "existing_paths", Description: "Comma-separated list of existing taxonomy paths, for consistent placement", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "taxonomy_path", Description: "A slash-delimited taxonomy path for this skill, e.g. development/languages/python/async", Type: "string"},
		},
		Instruction: "Choose the most appropriate taxonomy path for this skill, reusing existing branches where sensible.",
	}
}

func NewFindTaxonomyPath(m ModuleDeps) *Module[FindTaxonomyPathIn, FindTaxonomyPathOut] {
	return &Module[FindTaxonomyPathIn, FindTaxonomyPathOut]{
		Signature: FindTaxonomyPathSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in FindTaxonomyPathIn) map[string]string {
			return map[string]string{
				"task_description": in.TaskDescription,
				"intent":           in.Intent,
				"existing_paths":   strings.Join(in.ExistingPaths, ", "),
			}
		},
		Validate: func(out FindTaxonomyPathOut) error {
			return requireNonEmpty("taxonomy_path", out.TaxonomyPath != "")
		},
	}
}

// --- AnalyzeDependencies ---

type AnalyzeDependenciesIn struct {
	TaskDescription string
	Requirements    []string
	ExistingSkills  []string
}

type AnalyzeDependenciesOut struct {
	Dependencies []string `json:"dependencies"`
}

func AnalyzeDependenciesSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "analyze_dependencies",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "task_description", Description: "The user's free-form skill request", Type: "string"},
			{Name: "requirements", Description: "Comma-separated requirements list", Type: "string"},
			{Name: "existing_skills", Description: "Comma-separated list of existing skill identifiers", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "dependencies", Description: "Identifiers of other skills this one depends on, if any", Type: "list"},
		},
		Instruction: "Identify any existing skills this new skill should declare as a dependency.",
	}
}

func NewAnalyzeDependencies(m ModuleDeps) *Module[AnalyzeDependenciesIn, AnalyzeDependenciesOut] {
	return &Module[AnalyzeDependenciesIn, AnalyzeDependenciesOut]{
		Signature: AnalyzeDependenciesSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in AnalyzeDependenciesIn) map[string]string {
			return map[string]string{
				"task_description": in.TaskDescription,
				"requirements":      strings.Join(in.Requirements, ", "),
				"existing_skills":   strings.Join(in.ExistingSkills, ", "),
			}
		},
	}
}

// --- SynthesizePlan ---

type SynthesizePlanIn struct {
	Requirements []string
	Intent       string
	TaxonomyPath string
	Dependencies []string
	// ClarifyingAnswers is non-nil only on the post-HITL re-run (spec §4.3:
	// "merge the user's answers into the requirements and re-run
	// SynthesizePlan only").
	ClarifyingAnswers map[string]string
}

type SynthesizePlanOut struct {
	Plan string `json:"plan"`
}

func SynthesizePlanSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "synthesize_plan",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "requirements", Description: "Comma-separated requirements list", Type: "string"},
			{Name: "intent", Description: "The summarized intent", Type: "string"},
			{Name: "taxonomy_path", Description: "The chosen taxonomy path", Type: "string"},
			{Name: "dependencies", Description: "Comma-separated dependency skill identifiers", Type: "string"},
			{Name: "clarifying_answers", Description: "Any user answers to prior clarifying questions, if this is a re-run", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "plan", Description: "A structured outline of the sections the generated skill content should cover", Type: "string"},
		},
		Instruction: "Synthesize a content plan for the skill artifact from the understanding gathered so far.",
	}
}

func NewSynthesizePlan(m ModuleDeps) *Module[SynthesizePlanIn, SynthesizePlanOut] {
	return &Module[SynthesizePlanIn, SynthesizePlanOut]{
		Signature: SynthesizePlanSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in SynthesizePlanIn) map[string]string {
			var answers []string
			for q, a := range in.ClarifyingAnswers {
				answers = append(answers, q+": "+a)
			}
			return map[string]string{
				"requirements":        strings.Join(in.Requirements, ", "),
				"intent":              in.Intent,
				"taxonomy_path":       in.TaxonomyPath,
				"dependencies":        strings.Join(in.Dependencies, ", "),
				"clarifying_answers":  strings.Join(answers, "; "),
			}
		},
		Validate: func(out SynthesizePlanOut) error {
			return requireNonEmpty("plan", out.Plan != "")
		},
	}
}

// --- GenerateClarifyingQuestions ---

type GenerateClarifyingQuestionsIn struct {
	TaskDescription string
	Ambiguities     []string
}

type GenerateClarifyingQuestionsOut struct {
	Questions []string `json:"questions"`
}

func GenerateClarifyingQuestionsSignature() domain.Signature {
	return domain.Signature{
		SignatureID: "generate_clarifying_questions",
		Version:     1,
		Inputs: []domain.Field{
			{Name: "task_description", Description: "The user's free-form skill request", Type: "string"},
			{Name: "ambiguities", Description: "Comma-separated list of ambiguous aspects identified", Type: "string"},
		},
		Outputs: []domain.Field{
			{Name: "questions", Description: "Specific questions to ask the user to resolve the ambiguities", Type: "list"},
		},
		Instruction: "Write concise clarifying questions that would resolve the listed ambiguities.",
	}
}

func NewGenerateClarifyingQuestions(m ModuleDeps) *Module[GenerateClarifyingQuestionsIn, GenerateClarifyingQuestionsOut] {
	return &Module[GenerateClarifyingQuestionsIn, GenerateClarifyingQuestionsOut]{
		Signature: GenerateClarifyingQuestionsSignature(),
		Client:    m.Client,
		Model:     m.Model,
		ToFields: func(in GenerateClarifyingQuestionsIn) map[string]string {
			return map[string]string{
				"task_description": in.TaskDescription,
				"ambiguities":      strings.Join(in.Ambiguities, ", "),
			}
		},
	}
}
