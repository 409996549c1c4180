package chunker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/utils"
)

// correctChunk runs fn on one chunk and always produces a usable result: on
// failure the corrected text falls back to the original chunk text.
func correctChunk(ctx context.Context, chunk TextChunk, fn CorrectFunc) ChunkProcessingResult {
	start := time.Now()

	corrected, err := fn(ctx, chunk.Text)
	elapsed := time.Since(start)

	if err != nil {
		return ChunkProcessingResult{
			Chunk:          chunk,
			CorrectedText:  chunk.Text,
			ProcessingTime: elapsed,
			Err:            err,
		}
	}
	if corrected == "" {
		// An empty correction would drop this chunk's text in the merge
		corrected = chunk.Text
	}
	return ChunkProcessingResult{
		Chunk:          chunk,
		CorrectedText:  corrected,
		ProcessingTime: elapsed,
	}
}

// ProcessSequential corrects chunks one at a time in index order, reporting
// progress after each. Individual failures degrade to the original chunk
// text and never abort the batch.
func (p *BatchProcessor) ProcessSequential(ctx context.Context, chunks []TextChunk, fn CorrectFunc, progress ProgressFunc) []ChunkProcessingResult {
	total := len(chunks)
	results := make([]ChunkProcessingResult, 0, total)

	for i, chunk := range chunks {
		var result ChunkProcessingResult
		if err := ctx.Err(); err != nil {
			result = ChunkProcessingResult{
				Chunk:         chunk,
				CorrectedText: chunk.Text,
				Err:           err,
			}
		} else {
			result = correctChunk(ctx, chunk, fn)
		}
		results = append(results, result)

		if result.Err != nil {
			utils.LogWarning("Chunk %d/%d failed, keeping original text: %v", i+1, total, result.Err)
		} else {
			utils.LogVerbose("Corrected chunk %d/%d in %.1fs", i+1, total, result.ProcessingTime.Seconds())
		}
		if progress != nil {
			progress(i+1, total, chunkStatus(result, i+1, total))
		}
	}

	return results
}

// ProcessConcurrent corrects chunks with a bounded worker pool. Progress is
// reported per completion event in completion order; the returned results are
// re-sorted by chunk index so completion order never determines output order.
func (p *BatchProcessor) ProcessConcurrent(ctx context.Context, chunks []TextChunk, fn CorrectFunc, progress ProgressFunc) []ChunkProcessingResult {
	total := len(chunks)
	results := make([]ChunkProcessingResult, total)

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk TextChunk) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var result ChunkProcessingResult
			if err := ctx.Err(); err != nil {
				result = ChunkProcessingResult{
					Chunk:         chunk,
					CorrectedText: chunk.Text,
					Err:           err,
				}
			} else {
				result = correctChunk(ctx, chunk, fn)
			}
			results[i] = result

			progressMu.Lock()
			completed++
			current := completed
			if result.Err != nil {
				utils.LogWarning("Chunk %d failed, keeping original text: %v", chunk.Index, result.Err)
			}
			if progress != nil {
				progress(current, total, chunkStatus(result, current, total))
			}
			progressMu.Unlock()
		}(i, chunk)
	}
	wg.Wait()

	// chunks arrive in index order, so results is already index-sorted
	return results
}

func chunkStatus(result ChunkProcessingResult, current, total int) string {
	if result.Err != nil {
		return fmt.Sprintf("chunk %d of %d failed (kept original text)", current, total)
	}
	return fmt.Sprintf("corrected chunk %d of %d", current, total)
}
