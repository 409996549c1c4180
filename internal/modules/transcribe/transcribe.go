// Package transcribe runs speech-to-text on an audio file through the
// resource-managed transcription engine.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scribeflow/scribeflow/internal/format"
	"github.com/scribeflow/scribeflow/internal/mod"
	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/services/whisper"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// Module implements the transcription step. The resource manager is injected
// at construction; loading the engine, mutual exclusion against the
// correction engine, and teardown are all its concern.
type Module struct {
	manager *resources.Manager
}

// Params contains the parameters for transcription
type Params struct {
	Input          string `json:"input"`          // Path to input audio file
	Output         string `json:"output"`         // Path to output directory
	ModelPath      string `json:"modelPath"`      // Path to the transcription model
	Language       string `json:"language"`       // Language for transcription (default: "auto")
	OutputFormat   string `json:"outputFormat"`   // txt, srt, vtt or json (default: "txt")
	OutputFileName string `json:"outputFileName"` // Custom output file name (without extension)
	Threads        int    `json:"threads"`        // Engine threads (0 = engine default)
	KeepLoaded     bool   `json:"keepLoaded"`     // Leave the engine resident after this step
}

// New creates a new transcribe module backed by the given resource manager
func New(manager *resources.Manager) mod.Module {
	return &Module{manager: manager}
}

// Name returns the module name
func (m *Module) Name() string {
	return "transcribe"
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

	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	fileInfo, err := os.Stat(resolvedInput)
	if err == nil && !fileInfo.IsDir() {
		if err := utils.ValidateFileExtension(resolvedInput, []string{".wav", ".mp3", ".m4a", ".aac", ".flac"}); err != nil {
			return err
		}
	}

	if p.OutputFormat != "" && !format.ValidFormat(p.OutputFormat) {
		return fmt.Errorf("unsupported output format: %s", p.OutputFormat)
	}
	if p.ModelPath == "" {
		return fmt.Errorf("modelPath is required")
	}
	return nil
}

// Execute transcribes the input audio file
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (mod.ModuleResult, error) {
	var p Params
	if err := mod.ParseParams(params, &p); err != nil {
		return mod.ModuleResult{}, err
	}

	if p.Language == "" {
		p.Language = "auto"
	}
	if p.OutputFormat == "" {
		p.OutputFormat = format.FormatTXT
	}

	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	cfg := resources.LoadConfig{
		ModelPath: p.ModelPath,
		Language:  p.Language,
		Threads:   p.Threads,
	}
	if err := m.manager.Acquire(ctx, resources.ClassTranscription, cfg); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to load transcription engine: %w", err)
	}
	if !p.KeepLoaded {
		defer m.manager.Release(resources.ClassTranscription)
	}

	handle, ok := m.manager.Handle(resources.ClassTranscription)
	if !ok {
		return mod.ModuleResult{}, fmt.Errorf("transcription engine not loaded")
	}
	transcriber, ok := handle.(whisper.Transcriber)
	if !ok {
		return mod.ModuleResult{}, fmt.Errorf("transcription engine handle does not implement Transcriber (got %T)", handle)
	}

	utils.LogInfo("Transcribing %s...", filepath.Base(resolvedInput))
	start := time.Now()

	opts := whisper.TranscribeOptions{}
	if p.Language != "auto" {
		opts.Language = p.Language
	}
	result, err := transcriber.Transcribe(ctx, resolvedInput, opts)
	if err != nil {
		return mod.ModuleResult{}, fmt.Errorf("transcription failed: %w", err)
	}
	elapsed := time.Since(start)

	rendered, err := format.Render(result, p.OutputFormat)
	if err != nil {
		return mod.ModuleResult{}, err
	}

	outputPath := m.outputPath(resolvedInput, p)
	if err := utils.WriteTextFile(outputPath, rendered); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to write transcript: %w", err)
	}

	utils.LogSuccess("Transcribed %s -> %s (%.1fs)", resolvedInput, outputPath, elapsed.Seconds())
	return mod.ModuleResult{
		Outputs: map[string]string{
			"transcript": outputPath,
		},
		Statistics: map[string]interface{}{
			"language":      result.Language,
			"segments":      len(result.Segments),
			"audioDuration": result.Duration,
			"processTime":   elapsed.Seconds(),
		},
	}, nil
}

func (m *Module) outputPath(inputPath string, p Params) string {
	base := p.OutputFileName
	if base == "" {
		filename := filepath.Base(inputPath)
		base = filename[:len(filename)-len(filepath.Ext(filename))]
	}
	return filepath.Join(p.Output, base+"."+p.OutputFormat)
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() mod.ModuleIO {
	return mod.ModuleIO{
		RequiredInputs: []mod.ModuleInput{
			{
				Name:        "input",
				Description: "Path to input audio file",
				Patterns:    []string{".wav", ".mp3", ".m4a", ".aac", ".flac"},
				Type:        string(mod.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Path to output directory",
				Type:        string(mod.InputTypeDirectory),
			},
			{
				Name:        "modelPath",
				Description: "Path to the transcription model file",
				Type:        string(mod.InputTypeData),
			},
		},
		OptionalInputs: []mod.ModuleInput{
			{
				Name:        "language",
				Description: "Transcription language or auto",
				Type:        string(mod.InputTypeData),
			},
			{
				Name:        "outputFormat",
				Description: "Transcript output format (txt, srt, vtt, json)",
				Type:        string(mod.InputTypeData),
			},
		},
		ProducedOutputs: []mod.ModuleOutput{
			{
				Name:        "transcript",
				Description: "Transcript in the requested format",
				Patterns:    []string{".txt", ".srt", ".vtt", ".json"},
				Type:        string(mod.OutputTypeFile),
			},
		},
	}
}
