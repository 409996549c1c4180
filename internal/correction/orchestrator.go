// Package correction drives a full transcript correction request: it obtains
// the correction engine from the resource manager (swapping the transcription
// engine out when needed), chunks the input, corrects the chunks, and merges
// the results back into one document.
package correction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/chunker"
	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// Correction levels accepted by the engine
const (
	LevelLight    = "light"
	LevelStandard = "standard"
	LevelThorough = "thorough"
)

// Corrector is the loaded correction engine's handle as the orchestrator
// sees it. The textgen service registers an implementation as the
// correction-class instance handle.
type Corrector interface {
	Correct(ctx context.Context, text, level, language string) (string, error)
}

// Request describes one correction run
type Request struct {
	Text     string
	Level    string // light, standard or thorough; standard when empty
	Language string

	// Chunking parameters; zero values fall back to chunker defaults
	MaxTokens        int
	OverlapSentences int
	Estimator        string // token estimation strategy (heuristic, word)

	// Concurrent dispatches chunks to a bounded worker pool instead of
	// correcting them in index order
	Concurrent bool
	Workers    int

	// KeepResident leaves the correction engine loaded after the run so a
	// follow-up request skips the load
	KeepResident bool

	LoadConfig resources.LoadConfig
	Progress   chunker.ProgressFunc
}

// Result is the outcome of one correction run
type Result struct {
	Text         string
	ChunkCount   int
	FailedChunks []int // chunk indices that fell back to original text
	Duration     time.Duration
}

// FullyCorrected reports whether every chunk was corrected
func (r Result) FullyCorrected() bool {
	return len(r.FailedChunks) == 0
}

// Orchestrator owns the correction pipeline. It holds the process-wide
// resource manager by reference; construct it at the composition root.
type Orchestrator struct {
	manager *resources.Manager
}

// NewOrchestrator creates an orchestrator backed by the given manager
func NewOrchestrator(manager *resources.Manager) *Orchestrator {
	return &Orchestrator{manager: manager}
}

// Run executes one correction request. Partial chunk failures degrade to the
// original text and are reported in the result; only configuration and
// resource errors abort the run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, chunker.ErrEmptyInput
	}
	if req.Level == "" {
		req.Level = LevelStandard
	}

	opts := chunker.DefaultOptions()
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	if req.OverlapSentences > 0 {
		opts.OverlapSentences = req.OverlapSentences
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if !chunker.ValidEstimatorName(req.Estimator) {
		return Result{}, fmt.Errorf("unknown token estimator: %s", req.Estimator)
	}
	opts.Estimator = chunker.EstimatorByName(req.Estimator)

	processor, err := chunker.NewBatchProcessor(opts)
	if err != nil {
		return Result{}, fmt.Errorf("invalid chunking options: %w", err)
	}

	corrector, err := o.acquireCorrector(ctx, req.LoadConfig)
	if err != nil {
		return Result{}, err
	}
	if !req.KeepResident {
		defer o.manager.Release(resources.ClassCorrection)
	}

	chunks, err := processor.Chunk(req.Text)
	if err != nil {
		return Result{}, fmt.Errorf("failed to chunk text: %w", err)
	}
	utils.LogVerbose("Split transcript into %d chunk(s)", len(chunks))

	fn := func(ctx context.Context, text string) (string, error) {
		return corrector.Correct(ctx, text, req.Level, req.Language)
	}

	start := time.Now()
	var results []chunker.ChunkProcessingResult
	if req.Concurrent {
		results = processor.ProcessConcurrent(ctx, chunks, fn, req.Progress)
	} else {
		results = processor.ProcessSequential(ctx, chunks, fn, req.Progress)
	}

	merged, err := processor.Merge(results)
	if err != nil {
		return Result{}, fmt.Errorf("failed to merge corrected chunks: %w", err)
	}

	var failed []int
	for _, r := range results {
		if !r.Success() {
			failed = append(failed, r.Chunk.Index)
		}
	}
	if len(failed) > 0 {
		utils.LogWarning("Correction partially applied: %d of %d chunk(s) kept original text",
			len(failed), len(chunks))
	}

	return Result{
		Text:         merged,
		ChunkCount:   len(chunks),
		FailedChunks: failed,
		Duration:     time.Since(start),
	}, nil
}

// acquireCorrector makes the correction engine resident and returns its
// handle. When the transcription engine holds the memory budget it is swapped
// out first.
func (o *Orchestrator) acquireCorrector(ctx context.Context, cfg resources.LoadConfig) (Corrector, error) {
	if o.manager.IsLoaded(resources.ClassTranscription) && !o.manager.IsLoaded(resources.ClassCorrection) {
		if err := o.manager.Swap(ctx, resources.ClassTranscription, resources.ClassCorrection, cfg); err != nil {
			return nil, fmt.Errorf("failed to swap to correction engine: %w", err)
		}
	} else if err := o.manager.Acquire(ctx, resources.ClassCorrection, cfg); err != nil {
		return nil, fmt.Errorf("failed to load correction engine: %w", err)
	}

	handle, ok := o.manager.Handle(resources.ClassCorrection)
	if !ok {
		return nil, fmt.Errorf("correction engine not loaded")
	}
	corrector, ok := handle.(Corrector)
	if !ok {
		return nil, fmt.Errorf("correction engine handle does not implement Corrector (got %T)", handle)
	}
	return corrector, nil
}
