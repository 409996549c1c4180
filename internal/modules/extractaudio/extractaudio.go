// Package extractaudio extracts a mono 16 kHz WAV track from media files with
// FFmpeg, the input format the transcription engine expects.
package extractaudio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/scribeflow/scribeflow/internal/mod"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// execCommand allows tests to stub exec.Command
var execCommand = exec.Command

// Media extensions accepted as input
var mediaExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".mp3", ".m4a", ".aac", ".flac", ".ogg", ".wav"}

// Module implements the audio extraction step
type Module struct{}

// Params contains the parameters for audio extraction
type Params struct {
	Input      string `json:"input"`      // Path to input media file
	Output     string `json:"output"`     // Path to output directory
	OutputName string `json:"outputName"` // Custom output filename (optional)
	SampleRate int    `json:"sampleRate"` // Sample rate in Hz (default: 16000)
	Channels   int    `json:"channels"`   // Number of audio channels (default: 1)
}

// New creates a new extractaudio module
func New() mod.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "extract_audio"
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
		if err := utils.ValidateFileExtension(resolvedInput, mediaExtensions); err != nil {
			return err
		}
	}

	if p.OutputName != "" {
		if err := utils.ValidateFileExtension(p.OutputName, []string{".wav"}); err != nil {
			return err
		}
	}

	return utils.ValidateRequiredDependency("ffmpeg")
}

// Execute extracts the audio track from the input media file
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (mod.ModuleResult, error) {
	var p Params
	if err := mod.ParseParams(params, &p); err != nil {
		return mod.ModuleResult{}, err
	}

	if p.SampleRate == 0 {
		p.SampleRate = 16000
	}
	if p.Channels == 0 {
		p.Channels = 1
	}
	if p.Output == "" {
		return mod.ModuleResult{}, fmt.Errorf("output directory path is required")
	}

	resolvedInput := utils.ResolveOutputPath(p.Input, p.Output)
	if _, err := os.Stat(resolvedInput); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to access input: %w", err)
	}

	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	audioPath := m.outputPath(resolvedInput, p)
	utils.LogVerbose("Extracting audio from %s to %s", resolvedInput, audioPath)

	cmd := execCommand(
		"ffmpeg",
		"-i", resolvedInput,
		"-vn",
		"-ar", fmt.Sprintf("%d", p.SampleRate),
		"-ac", fmt.Sprintf("%d", p.Channels),
		"-c:a", "pcm_s16le",
		audioPath,
		"-y",
		"-loglevel", "error",
	)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("ffmpeg command failed: %w", err)
	}

	utils.LogSuccess("Extracted audio to %s", audioPath)
	return mod.ModuleResult{
		Outputs: map[string]string{
			"audio": audioPath,
		},
		Statistics: map[string]interface{}{
			"sampleRate": p.SampleRate,
			"channels":   p.Channels,
		},
	}, nil
}

func (m *Module) outputPath(inputPath string, p Params) string {
	if p.OutputName != "" {
		return filepath.Join(p.Output, p.OutputName)
	}
	filename := filepath.Base(inputPath)
	baseName := filename[:len(filename)-len(filepath.Ext(filename))]
	return filepath.Join(p.Output, baseName+".wav")
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() mod.ModuleIO {
	return mod.ModuleIO{
		RequiredInputs: []mod.ModuleInput{
			{
				Name:        "input",
				Description: "Path to input media file",
				Patterns:    mediaExtensions,
				Type:        string(mod.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Path to output directory",
				Type:        string(mod.InputTypeDirectory),
			},
		},
		OptionalInputs: []mod.ModuleInput{
			{
				Name:        "outputName",
				Description: "Custom output filename",
				Type:        string(mod.InputTypeData),
			},
			{
				Name:        "sampleRate",
				Description: "Audio sample rate in Hz",
				Type:        string(mod.InputTypeData),
			},
		},
		ProducedOutputs: []mod.ModuleOutput{
			{
				Name:        "audio",
				Description: "Extracted WAV audio track",
				Patterns:    []string{".wav"},
				Type:        string(mod.OutputTypeFile),
			},
		},
	}
}
