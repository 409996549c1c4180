// Package chunker splits long transcripts into sentence-aligned,
// context-overlapping chunks that fit a token budget, drives their correction
// sequentially or concurrently, and merges the corrected chunks back into a
// single document without duplicating overlap text.
package chunker

import (
	"context"
	"time"
)

// TextChunk is one sentence-aligned span of the input text
type TextChunk struct {
	Text  string
	Index int // 0-based, contiguous

	// Character offsets into the original text
	StartPos int
	EndPos   int

	// Characters shared with the neighboring chunks, computed after all
	// chunks exist as a plain string overlap
	OverlapStart int // shared with the previous chunk
	OverlapEnd   int // shared with the next chunk

	// Sentence indices covered, inclusive
	SentenceStart int
	SentenceEnd   int

	TokenCount int
}

// ChunkProcessingResult is the outcome of correcting one chunk. On failure
// CorrectedText holds the original chunk text so the merge step always has
// something to place at that position.
type ChunkProcessingResult struct {
	Chunk          TextChunk
	CorrectedText  string
	ProcessingTime time.Duration
	Err            error
}

// Success reports whether the chunk was corrected without error
func (r ChunkProcessingResult) Success() bool {
	return r.Err == nil
}

// CorrectFunc corrects one chunk of text. It may be slow and may fail; the
// chunker treats it as opaque.
type CorrectFunc func(ctx context.Context, text string) (string, error)

// ProgressFunc receives one call per completed chunk (success or failure).
// In sequential mode calls arrive in index order, in concurrent mode in
// completion order.
type ProgressFunc func(current, total int, status string)
