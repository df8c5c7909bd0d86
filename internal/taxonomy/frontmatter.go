package taxonomy

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
)

// includePattern matches "{{include name}}" template markers in a skill
// body, resolved against a supplementary-files map — the same marker
// syntax the teacher's internal/skills package uses for its framework
// snippets, generalized here to any skill's own capabilities/examples
// subtree rather than a single shared prompt registry.
var includePattern = regexp.MustCompile(`\{\{include\s+([a-zA-Z0-9_./-]+)\}\}`)

type frontmatterDoc struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Metadata    frontmatterMetadata  `yaml:"metadata"`
}

type frontmatterMetadata struct {
	SkillID string `yaml:"skill_id"`
	Version string `yaml:"version"`
	Type    string `yaml:"type"`
	Weight  string `yaml:"weight"`
}

// splitFrontmatter separates the "---"-delimited YAML-like header from the
// Markdown body, the same delimiter convention as the teacher's
// parseFrontmatter but keeping the full block for structured yaml.v3
// parsing rather than a single line-scan for "name:".
func splitFrontmatter(content string) (frontmatter, body string, err error) {
	content = strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(content, "---") {
		return "", "", apierr.New(apierr.MalformedArtifact, "missing frontmatter block")
	}
	rest := content[3:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", "", apierr.New(apierr.MalformedArtifact, "unterminated frontmatter block")
	}
	frontmatter = rest[:idx]
	body = strings.TrimSpace(rest[idx+4:])
	return frontmatter, body, nil
}

// ParseArtifact parses a full SKILL.md document into SkillMetadata and body.
func ParseArtifact(content string) (domain.SkillMetadata, string, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return domain.SkillMetadata{}, "", err
	}

	var doc frontmatterDoc
	if err := yaml.Unmarshal([]byte(fm), &doc); err != nil {
		return domain.SkillMetadata{}, "", apierr.Wrap(apierr.MalformedArtifact, "parse frontmatter YAML", err)
	}

	meta := domain.SkillMetadata{
		SkillID:     doc.Metadata.SkillID,
		Name:        doc.Name,
		Description: doc.Description,
		Version:     doc.Metadata.Version,
		Type:        domain.SkillType(doc.Metadata.Type),
		Weight:      domain.SkillWeight(doc.Metadata.Weight),
	}
	if err := validateRequired(meta); err != nil {
		return domain.SkillMetadata{}, "", err
	}
	return meta, body, nil
}

func validateRequired(m domain.SkillMetadata) error {
	if m.Name == "" {
		return apierr.New(apierr.MalformedArtifact, "frontmatter missing required field: name")
	}
	if len(m.Name) > 64 {
		return apierr.New(apierr.MalformedArtifact, "name exceeds 64 characters")
	}
	if m.Description == "" {
		return apierr.New(apierr.MalformedArtifact, "frontmatter missing required field: description")
	}
	if len(m.Description) > 1024 {
		return apierr.New(apierr.MalformedArtifact, "description exceeds 1024 characters")
	}
	if m.SkillID == "" {
		return apierr.New(apierr.MalformedArtifact, "frontmatter missing required field: metadata.skill_id")
	}
	return nil
}

// RenderArtifact is ParseArtifact's inverse: it produces the full SKILL.md
// document text from metadata and a body.
func RenderArtifact(meta domain.SkillMetadata, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\n")
	fmt.Fprintf(&b, "name: %s\n", meta.Name)
	fmt.Fprintf(&b, "description: %s\n", meta.Description)
	fmt.Fprintf(&b, "metadata:\n")
	fmt.Fprintf(&b, "  skill_id: %s\n", meta.SkillID)
	fmt.Fprintf(&b, "  version: %s\n", meta.Version)
	fmt.Fprintf(&b, "  type: %s\n", meta.Type)
	fmt.Fprintf(&b, "  weight: %s\n", meta.Weight)
	fmt.Fprintf(&b, "---\n\n")
	b.WriteString(body)
	return b.String()
}

// ResolveIncludes replaces "{{include name}}" markers with the content
// named in supplements; unresolved markers are left as-is.
func ResolveIncludes(content string, supplements map[string]string) string {
	return includePattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := includePattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if replacement, ok := supplements[sub[1]]; ok {
			return replacement
		}
		return match
	})
}
