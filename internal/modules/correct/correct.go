// Package correct post-corrects a transcript with the resource-managed local
// text model, chunking long inputs and merging the corrected chunks.
package correct

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scribeflow/scribeflow/internal/chunker"
	"github.com/scribeflow/scribeflow/internal/correction"
	"github.com/scribeflow/scribeflow/internal/mod"
	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// Module implements the transcript correction step
type Module struct {
	orchestrator *correction.Orchestrator
}

// Params contains the parameters for transcript correction
type Params struct {
	Input            string `json:"input"`            // Path to input transcript file
	Output           string `json:"output"`           // Path to output directory
	OutputFileName   string `json:"outputFileName"`   // Custom output file name (without extension)
	OutputSuffix     string `json:"outputSuffix"`     // Suffix for corrected files (default: "_corrected")
	ModelPath        string `json:"modelPath"`        // Path to the correction model
	Level            string `json:"level"`            // Correction level: light, standard, thorough
	Language         string `json:"language"`         // Transcript language hint
	MaxTokens        int    `json:"maxTokens"`        // Token budget per chunk (default: 512)
	OverlapSentences int    `json:"overlapSentences"` // Sentences of context between chunks (default: 1)
	Estimator        string `json:"estimator"`        // Token estimation strategy: heuristic or word
	Concurrent       bool   `json:"concurrent"`       // Correct chunks with a worker pool
	Workers          int    `json:"workers"`          // Pool size for concurrent mode
	Threads          int    `json:"threads"`          // Engine threads (0 = engine default)
	KeepLoaded       bool   `json:"keepLoaded"`       // Leave the engine resident after this step
}

// New creates a new correct module backed by the given resource manager
func New(manager *resources.Manager) mod.Module {
	return &Module{orchestrator: correction.NewOrchestrator(manager)}
}

// Name returns the module name
func (m *Module) Name() string {
	return "correct_transcript"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := mod.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Input, p.Output, ""); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}

	switch p.Level {
	case "", correction.LevelLight, correction.LevelStandard, correction.LevelThorough:
	default:
		return fmt.Errorf("unsupported correction level: %s", p.Level)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("maxTokens must not be negative")
	}
	if !chunker.ValidEstimatorName(p.Estimator) {
		return fmt.Errorf("unsupported token estimator: %s", p.Estimator)
	}
	if p.ModelPath == "" {
		return fmt.Errorf("modelPath is required")
	}
	return nil
}

// Execute corrects the input transcript file
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (mod.ModuleResult, error) {
	var p Params
	if err := mod.ParseParams(params, &p); err != nil {
		return mod.ModuleResult{}, err
	}

	if p.OutputSuffix == "" {
		p.OutputSuffix = "_corrected"
	}

	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	fileInfo, err := os.Stat(resolvedInput)
	if err != nil {
		return mod.ModuleResult{}, fmt.Errorf("input file not found: %w", err)
	}
	if fileInfo.IsDir() {
		return mod.ModuleResult{}, fmt.Errorf("input must be a file, not a directory: %s", resolvedInput)
	}

	if !utils.IsTextFile(resolvedInput) {
		return mod.ModuleResult{}, fmt.Errorf("file %s appears to be binary, not a text file", resolvedInput)
	}
	transcript, err := utils.ReadTextFile(resolvedInput)
	if err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to read transcript file: %w", err)
	}

	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := m.outputPath(resolvedInput, p)

	utils.LogInfo("Correcting %s...", filepath.Base(resolvedInput))
	result, err := m.orchestrator.Run(ctx, correction.Request{
		Text:             transcript,
		Level:            p.Level,
		Language:         p.Language,
		MaxTokens:        p.MaxTokens,
		OverlapSentences: p.OverlapSentences,
		Estimator:        p.Estimator,
		Concurrent:       p.Concurrent,
		Workers:          p.Workers,
		KeepResident:     p.KeepLoaded,
		LoadConfig: resources.LoadConfig{
			ModelPath: p.ModelPath,
			Language:  p.Language,
			Threads:   p.Threads,
		},
		Progress: func(current, total int, status string) {
			utils.LogVerbose("[%d/%d] %s", current, total, status)
		},
	})
	if err != nil {
		return mod.ModuleResult{}, fmt.Errorf("correction failed: %w", err)
	}

	if err := utils.WriteTextFile(outputPath, result.Text+"\n"); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to write output file: %w", err)
	}

	if result.FullyCorrected() {
		utils.LogSuccess("Corrected file %s -> %s", resolvedInput, outputPath)
	} else {
		utils.LogWarning("Corrected file %s -> %s (%d of %d chunks kept original text)",
			resolvedInput, outputPath, len(result.FailedChunks), result.ChunkCount)
	}

	return mod.ModuleResult{
		Outputs: map[string]string{
			"corrected": outputPath,
		},
		Statistics: map[string]interface{}{
			"chunks":       result.ChunkCount,
			"failedChunks": result.FailedChunks,
			"level":        p.Level,
			"processTime":  result.Duration.Seconds(),
			"finishedAt":   time.Now().Format(time.RFC3339),
		},
	}, nil
}

func (m *Module) outputPath(inputPath string, p Params) string {
	if p.OutputFileName != "" {
		return filepath.Join(p.Output, p.OutputFileName+".txt")
	}
	baseFilename := filepath.Base(inputPath)
	baseFilename = baseFilename[:len(baseFilename)-len(filepath.Ext(baseFilename))]
	return filepath.Join(p.Output, baseFilename+p.OutputSuffix+".txt")
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() mod.ModuleIO {
	return mod.ModuleIO{
		RequiredInputs: []mod.ModuleInput{
			{
				Name:        "input",
				Description: "Path to input transcript file",
				Patterns:    []string{".txt", ".srt"},
				Type:        string(mod.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Path to output directory",
				Type:        string(mod.InputTypeDirectory),
			},
			{
				Name:        "modelPath",
				Description: "Path to the correction model file",
				Type:        string(mod.InputTypeData),
			},
		},
		OptionalInputs: []mod.ModuleInput{
			{
				Name:        "level",
				Description: "Correction level (light, standard, thorough)",
				Type:        string(mod.InputTypeData),
			},
			{
				Name:        "language",
				Description: "Transcript language hint",
				Type:        string(mod.InputTypeData),
			},
			{
				Name:        "maxTokens",
				Description: "Token budget per correction chunk",
				Type:        string(mod.InputTypeData),
			},
			{
				Name:        "estimator",
				Description: "Token estimation strategy (heuristic, word)",
				Type:        string(mod.InputTypeData),
			},
		},
		ProducedOutputs: []mod.ModuleOutput{
			{
				Name:        "corrected",
				Description: "Corrected transcript file",
				Patterns:    []string{".txt"},
				Type:        string(mod.OutputTypeFile),
			},
		},
	}
}
