package chunker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Defaults for chunking options
const (
	DefaultMaxTokens        = 512
	DefaultOverlapSentences = 1
	DefaultWorkers          = 2
)

// ErrEmptyInput is returned when the input text has no content to chunk
var ErrEmptyInput = errors.New("input text is empty")

// Options configures a BatchProcessor
type Options struct {
	// MaxTokens is the per-chunk token budget. A single sentence that alone
	// exceeds it is kept as its own over-budget chunk rather than dropped.
	MaxTokens int

	// OverlapSentences is how many trailing sentences of a closed chunk seed
	// the next chunk, preserving context across the boundary.
	OverlapSentences int

	// Workers bounds the pool size in concurrent processing mode
	Workers int

	// Estimator is the token counting strategy; the length heuristic is used
	// when nil
	Estimator TokenEstimator
}

// DefaultOptions returns the standard chunking configuration
func DefaultOptions() Options {
	return Options{
		MaxTokens:        DefaultMaxTokens,
		OverlapSentences: DefaultOverlapSentences,
		Workers:          DefaultWorkers,
	}
}

// BatchProcessor splits text into chunks and merges corrected chunks back
// into one document
type BatchProcessor struct {
	maxTokens        int
	overlapSentences int
	workers          int
	estimator        TokenEstimator
}

// NewBatchProcessor validates options and creates a processor
func NewBatchProcessor(opts Options) (*BatchProcessor, error) {
	if opts.MaxTokens < 1 {
		return nil, fmt.Errorf("maxTokens must be at least 1, got %d", opts.MaxTokens)
	}
	if opts.OverlapSentences < 0 {
		return nil, fmt.Errorf("overlapSentences must not be negative, got %d", opts.OverlapSentences)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	est := opts.Estimator
	if est == nil {
		est = NewHeuristicEstimator()
	}
	return &BatchProcessor{
		maxTokens:        opts.MaxTokens,
		overlapSentences: opts.OverlapSentences,
		workers:          workers,
		estimator:        est,
	}, nil
}

// Chunk splits text into sentence-aligned chunks under the token budget.
// Consecutive chunks share OverlapSentences sentences of context; the actual
// character overlap used by Merge is computed afterwards as a plain string
// overlap between neighboring chunk texts.
func (p *BatchProcessor) Chunk(text string) ([]TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, ErrEmptyInput
	}

	tokens := make([]int, len(sentences))
	for i, s := range sentences {
		tokens[i] = p.estimator.Estimate(s.Text)
	}

	var chunks []TextChunk
	current := []int{} // sentence indices in the open chunk
	running := 0
	seedLen := 0 // leading sentences of current carried over as overlap

	closeChunk := func() {
		first, last := current[0], current[len(current)-1]
		chunkText := text[sentences[first].Start:sentences[last].End]
		chunks = append(chunks, TextChunk{
			Text:          chunkText,
			Index:         len(chunks),
			StartPos:      sentences[first].Start,
			EndPos:        sentences[last].End,
			SentenceStart: first,
			SentenceEnd:   last,
			TokenCount:    p.estimator.Estimate(chunkText),
		})
	}

	for i := range sentences {
		// Close only once the chunk holds at least one sentence beyond its
		// seed, so an over-budget seed cannot produce a chunk with no new
		// content
		if len(current) > seedLen && running+tokens[i] > p.maxTokens {
			closeChunk()

			// Seed the next chunk with the tail of the one just closed
			overlap := p.overlapSentences
			if overlap > len(current) {
				overlap = len(current)
			}
			seed := current[len(current)-overlap:]
			current = append([]int{}, seed...)
			seedLen = len(current)
			running = 0
			for _, si := range current {
				running += tokens[si]
			}
		}
		current = append(current, i)
		running += tokens[i]
	}
	if len(current) > seedLen {
		closeChunk()
	}

	computeOverlaps(chunks)
	return chunks, nil
}

// computeOverlaps records, per consecutive pair, the longest suffix of chunk
// i that equals a prefix of chunk i+1. Merge relies on this value, not on the
// sentence count used while seeding.
func computeOverlaps(chunks []TextChunk) {
	for i := 0; i+1 < len(chunks); i++ {
		n := longestSuffixPrefix(chunks[i].Text, chunks[i+1].Text)
		chunks[i].OverlapEnd = n
		chunks[i+1].OverlapStart = n
	}
}

func longestSuffixPrefix(a, b string) int {
	maxLen := len(a)
	if len(b) < maxLen {
		maxLen = len(b)
	}
	for n := maxLen; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}

// Merge reassembles corrected chunks into one document, trimming duplicated
// overlap content at each boundary. Correction can reword text inside the
// overlap region, so the cut prefers the sentence-ending punctuation nearest
// the recorded overlap boundary over a fixed-length cut.
func (p *BatchProcessor) Merge(results []ChunkProcessingResult) (string, error) {
	if len(results) == 0 {
		return "", errors.New("no chunk results to merge")
	}

	ordered := make([]ChunkProcessingResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Chunk.Index < ordered[j].Chunk.Index
	})

	parts := make([]string, 0, len(ordered))
	first := strings.TrimSpace(ordered[0].CorrectedText)
	if first != "" {
		parts = append(parts, first)
	}

	for i := 1; i < len(ordered); i++ {
		text := ordered[i].CorrectedText
		if overlap := ordered[i].Chunk.OverlapStart; overlap > 0 {
			text = text[overlapCut(text, overlap):]
		}
		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return collapseWhitespace(strings.Join(parts, " ")), nil
}

// overlapCut returns the byte position after the duplicated overlap at the
// start of text. It searches a slack window around the overlap boundary for
// the nearest sentence-ending punctuation and cuts there, falling back to a
// hard character cut at the boundary.
func overlapCut(text string, overlap int) int {
	if overlap >= len(text) {
		return len(text)
	}

	window := overlap + overlap/2 + 16
	if window > len(text) {
		window = len(text)
	}

	best := -1
	bestDist := window + 1
	for idx, r := range text[:window] {
		if !isSentenceEnd(r) {
			continue
		}
		end := idx + 1
		dist := end - overlap
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = end
		}
	}

	if best < 0 {
		return overlap
	}
	// Move past whitespace following the punctuation
	for best < len(text) && (text[best] == ' ' || text[best] == '\t' || text[best] == '\n' || text[best] == '\r') {
		best++
	}
	return best
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
