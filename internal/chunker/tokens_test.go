package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicEstimator(t *testing.T) {
	e := NewHeuristicEstimator()

	assert.Equal(t, 0, e.Estimate(""))
	assert.Equal(t, 1, e.Estimate("ab"))
	assert.Equal(t, 1, e.Estimate("abcd"))
	assert.Equal(t, 10, e.Estimate("0123456789012345678901234567890123456789"))

	// A zero divisor falls back to the default
	zero := HeuristicEstimator{CharsPerToken: 0}
	assert.Equal(t, 2, zero.Estimate("01234567"))
}

func TestWordEstimator(t *testing.T) {
	e := NewWordEstimator()

	assert.Equal(t, 0, e.Estimate(""))
	assert.Equal(t, 1, e.Estimate("   "))
	assert.Equal(t, 3, e.Estimate("one word"))             // ceil(2 * 1.3)
	assert.Equal(t, 13, e.Estimate("a b c d e f g h i j")) // ceil(10 * 1.3)
}

func TestEstimatorByName(t *testing.T) {
	assert.IsType(t, HeuristicEstimator{}, EstimatorByName(""))
	assert.IsType(t, HeuristicEstimator{}, EstimatorByName(EstimatorHeuristic))
	assert.IsType(t, WordEstimator{}, EstimatorByName(EstimatorWord))

	assert.True(t, ValidEstimatorName(""))
	assert.True(t, ValidEstimatorName("heuristic"))
	assert.True(t, ValidEstimatorName("word"))
	assert.False(t, ValidEstimatorName("bpe"))
}
