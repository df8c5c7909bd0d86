package hitl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/skillsmith/internal/domain"
)

func TestClassifyFreeText_MapsKnownKeywords(t *testing.T) {
	cases := map[string]domain.HITLAction{
		"yes, looks good":    domain.ActionProceed,
		"please fix the tone": domain.ActionRevise,
		"cancel this":         domain.ActionCancel,
		"stop":                domain.ActionCancel,
	}
	for text, want := range cases {
		got, err := ClassifyFreeText(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, "text=%q", text)
	}
}

func TestClassifyFreeText_UnknownWordDefaultsToProceed(t *testing.T) {
	got, err := ClassifyFreeText("sounds great to me")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionProceed, got)
}

func TestClassifyFreeText_CancelTakesPrecedenceOverRevise(t *testing.T) {
	// "no, but" matches revise's keyword list; "no" alone matches cancel.
	// classificationOrder puts cancel first, so "no, but shorter" still
	// resolves to cancel since it contains the standalone word "no".
	got, err := ClassifyFreeText("no, but make it shorter")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCancel, got)
}

func TestClassifyFreeText_Empty(t *testing.T) {
	got, err := ClassifyFreeText("   ")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionProceed, got)
}
