package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/quizbank/internal/strategy"
)

func TestPresetsAreValid(t *testing.T) {
	for _, name := range strategy.Names() {
		s, err := strategy.Preset(name)
		require.NoError(t, err, name)
		assert.NoError(t, s.Validate(), name)
		assert.Equal(t, name, s.Name)
	}
}

func TestPresetUnknown(t *testing.T) {
	_, err := strategy.Preset("nope")
	assert.ErrorIs(t, err, strategy.ErrUnknownPreset)
}

func TestDefault(t *testing.T) {
	s := strategy.Default()
	assert.Equal(t, strategy.Aggressive, s.Name)
	assert.Equal(t, 60, s.FingerprintLen)
}

func TestPresetReturnsCopies(t *testing.T) {
	a, _ := strategy.Preset(strategy.Boundary)
	a.Detectors[0] = "changed"

	b, _ := strategy.Preset(strategy.Boundary)
	assert.Equal(t, strategy.DetectAnswerMarker, b.Detectors[0])
}

func TestValidateRejects(t *testing.T) {
	s := strategy.Default()
	s.Detectors = []string{"answer_marker", "answer_marker", "guess"}
	s.QuestionMin = 10
	s.QuestionMax = 5
	s.Similarity = 1.5

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown detector")
	assert.Contains(t, err.Error(), "listed twice")
	assert.Contains(t, err.Error(), "question length range")
	assert.Contains(t, err.Error(), "similarity")
}
