package metrics

import (
	"math"
	"testing"

	"github.com/soochol/skillsmith/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeights_SumToOne(t *testing.T) {
	for _, style := range []domain.SkillStyle{domain.StyleNavigationHub, domain.StyleComprehensive, domain.StyleMinimal} {
		w, err := WeightsFor(style)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, w.sum(), 1e-9, style)
		assert.True(t, w.Quality >= 0 && w.Semantic >= 0 && w.Entity >= 0 && w.Readability >= 0 && w.Coverage >= 0)
	}
}

func TestComposite_Minimal(t *testing.T) {
	s := Scores{SkillQuality: 1, SemanticF1: 1, EntityF1: 1, Readability: 1, Coverage: 1}
	c, err := Composite(domain.StyleMinimal, s)
	require.NoError(t, err)
	assert.True(t, math.Abs(c-1.0) < 1e-9)
}

func TestNeedsRefinement_BoundaryAtExactly075(t *testing.T) {
	needs, err := NeedsRefinement(0.75, "")
	require.NoError(t, err)
	assert.False(t, needs, "exactly 0.75 must not trigger refinement")

	needs, err = NeedsRefinement(0.749999999, "")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestImprovementMeetsBar(t *testing.T) {
	assert.True(t, ImprovementMeetsBar(0.60, 0.82))
	assert.False(t, ImprovementMeetsBar(0.60, 0.64))
	assert.True(t, ImprovementMeetsBar(0.60, 0.65))
}
