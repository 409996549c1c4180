package chunker

import (
	"math"
	"strings"
)

// TokenEstimator approximates the model-token count of a text span. Estimates
// are used only for sizing decisions. Implementations must be deterministic,
// stateless, and return at least 1 for any non-empty input.
type TokenEstimator interface {
	Estimate(text string) int
}

// DefaultCharsPerToken is the length heuristic used when no exact tokenizer
// is available: roughly four characters per token for Latin-script text.
const DefaultCharsPerToken = 4

// HeuristicEstimator estimates tokens from character count. It is the
// always-available fallback strategy.
type HeuristicEstimator struct {
	CharsPerToken int
}

// NewHeuristicEstimator returns the default length-based estimator
func NewHeuristicEstimator() HeuristicEstimator {
	return HeuristicEstimator{CharsPerToken: DefaultCharsPerToken}
}

func (e HeuristicEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	cpt := e.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	tokens := len(text) / cpt
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// DefaultTokensPerWord reflects that subword tokenizers emit slightly more
// than one token per word on average.
const DefaultTokensPerWord = 1.3

// WordEstimator estimates tokens from whitespace-separated word count
type WordEstimator struct {
	TokensPerWord float64
}

// NewWordEstimator returns the word-count estimator
func NewWordEstimator() WordEstimator {
	return WordEstimator{TokensPerWord: DefaultTokensPerWord}
}

func (e WordEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	tpw := e.TokensPerWord
	if tpw <= 0 {
		tpw = DefaultTokensPerWord
	}
	words := len(strings.Fields(text))
	if words == 0 {
		// Non-empty but whitespace-only still counts as something
		return 1
	}
	return int(math.Ceil(float64(words) * tpw))
}

// Estimator strategy names selectable from configuration
const (
	EstimatorHeuristic = "heuristic"
	EstimatorWord      = "word"
)

// ValidEstimatorName reports whether name selects a known strategy
func ValidEstimatorName(name string) bool {
	switch name {
	case "", EstimatorHeuristic, EstimatorWord:
		return true
	}
	return false
}

// EstimatorByName returns the named token estimation strategy. Empty or
// unknown names fall back to the length heuristic.
func EstimatorByName(name string) TokenEstimator {
	if name == EstimatorWord {
		return NewWordEstimator()
	}
	return NewHeuristicEstimator()
}
