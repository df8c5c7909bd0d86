package taxonomy

import "github.com/soochol/skillsmith/internal/domain"

func skillMetaFixture(skillID string) domain.SkillMetadata {
	return domain.SkillMetadata{
		SkillID:     skillID,
		Name:        NameFromID(skillID),
		Description: "A test skill fixture.",
		Version:     "0.1.0",
		Type:        domain.TypeReference,
		Weight:      domain.WeightLight,
	}
}
