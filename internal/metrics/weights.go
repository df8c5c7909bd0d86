// Package metrics implements the style-weighted composite scoring spec §4.6
// defines: a fixed weight table per content style over the metric family
// {skill_quality, semantic_f1, entity_f1, readability, coverage}.
package metrics

import (
	"fmt"

	"github.com/soochol/skillsmith/internal/domain"
)

// Scores holds one evaluation's per-metric sub-scores, each in [0,1].
type Scores struct {
	SkillQuality float64
	SemanticF1   float64
	EntityF1     float64
	Readability  float64
	Coverage     float64
}

// Weights is a style's weight vector over the metric family, normalized to
// sum to 1.0.
type Weights struct {
	Quality     float64
	Semantic    float64
	Entity      float64
	Readability float64
	Coverage    float64
}

// styleWeights are the specification-fixed constants from spec §4.6's
// table; they are literal Go maps, not loaded from config, since they are
// part of the spec itself rather than an operator setting.
var styleWeights = map[domain.SkillStyle]Weights{
	domain.StyleNavigationHub: {Quality: 0.30, Semantic: 0.15, Entity: 0.05, Readability: 0.35, Coverage: 0.15},
	domain.StyleComprehensive: {Quality: 0.25, Semantic: 0.25, Entity: 0.20, Readability: 0.20, Coverage: 0.10},
	domain.StyleMinimal:       {Quality: 0.20, Semantic: 0.50, Entity: 0.15, Readability: 0.10, Coverage: 0.05},
}

// WeightsFor returns the fixed weight vector for style.
func WeightsFor(style domain.SkillStyle) (Weights, error) {
	w, ok := styleWeights[style]
	if !ok {
		return Weights{}, fmt.Errorf("metrics: unknown style %q", style)
	}
	return w, nil
}

// sum returns the vector's total, used by the invariant check in tests
// (spec §8 invariant 3: weight vectors are non-negative and sum to 1.0).
func (w Weights) sum() float64 {
	return w.Quality + w.Semantic + w.Entity + w.Readability + w.Coverage
}

// Composite computes Σ wᵢ·sᵢ for style against s.
func Composite(style domain.SkillStyle, s Scores) (float64, error) {
	w, err := WeightsFor(style)
	if err != nil {
		return 0, err
	}
	return w.Quality*s.SkillQuality +
		w.Semantic*s.SemanticF1 +
		w.Entity*s.EntityF1 +
		w.Readability*s.Readability +
		w.Coverage*s.Coverage, nil
}
