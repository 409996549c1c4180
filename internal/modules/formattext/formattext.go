// Package formattext strips subtitle structure and unwanted patterns from a
// transcript, producing clean plain text ready for correction.
package formattext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/scribeflow/scribeflow/internal/mod"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// srtTimestampRegex matches SRT cue timing lines
var srtTimestampRegex = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}[,.]\d{3}`)

// srtIndexRegex matches SRT cue index lines
var srtIndexRegex = regexp.MustCompile(`^\d+$`)

// Module implements the transcript cleanup step
type Module struct{}

// Params contains the parameters for transcript formatting
type Params struct {
	Input           string   `json:"input"`           // Path to input transcript file
	Output          string   `json:"output"`          // Path to output directory
	RemovePatterns  []string `json:"removePatterns"`  // Regex patterns removed from each line
	CleanFileSuffix string   `json:"cleanFileSuffix"` // Suffix for cleaned files (default: "_clean")
	OutputFileName  string   `json:"outputFileName"`  // Custom output file name (without extension)
}

// New creates a new formattext module
func New() mod.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "format_text"
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

	for _, pattern := range p.RemovePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid removal pattern %s: %w", pattern, err)
		}
	}
	return nil
}

// Execute cleans the input transcript
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (mod.ModuleResult, error) {
	var p Params
	if err := mod.ParseParams(params, &p); err != nil {
		return mod.ModuleResult{}, err
	}

	if p.CleanFileSuffix == "" {
		p.CleanFileSuffix = "_clean"
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

	content, err := utils.ReadTextFile(resolvedInput)
	if err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to read input file: %w", err)
	}

	removeRegexes := make([]*regexp.Regexp, 0, len(p.RemovePatterns))
	for _, pattern := range p.RemovePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return mod.ModuleResult{}, fmt.Errorf("invalid removal pattern %s: %w", pattern, err)
		}
		removeRegexes = append(removeRegexes, re)
	}

	isSRT := strings.ToLower(filepath.Ext(resolvedInput)) == ".srt"
	cleaned := m.cleanLines(content, removeRegexes, isSRT)

	if err := os.MkdirAll(p.Output, 0755); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	outputBaseName := p.OutputFileName
	if outputBaseName == "" {
		filename := filepath.Base(resolvedInput)
		outputBaseName = filename[:len(filename)-len(filepath.Ext(filename))]
	}
	outputPath := filepath.Join(p.Output, outputBaseName+p.CleanFileSuffix+".txt")

	if err := utils.WriteTextFile(outputPath, cleaned); err != nil {
		return mod.ModuleResult{}, fmt.Errorf("failed to write output file: %w", err)
	}

	utils.LogSuccess("Formatted %s -> %s", resolvedInput, outputPath)
	return mod.ModuleResult{
		Outputs: map[string]string{
			"clean": outputPath,
		},
	}, nil
}

// cleanLines removes subtitle structure (for SRT input) and the configured
// patterns from every line
func (m *Module) cleanLines(content string, removeRegexes []*regexp.Regexp, isSRT bool) string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")

		if isSRT {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || srtIndexRegex.MatchString(trimmed) || srtTimestampRegex.MatchString(trimmed) {
				continue
			}
		}

		for _, re := range removeRegexes {
			line = re.ReplaceAllString(line, "")
		}

		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n") + "\n"
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() mod.ModuleIO {
	return mod.ModuleIO{
		RequiredInputs: []mod.ModuleInput{
			{
				Name:        "input",
				Description: "Path to input transcript file",
				Patterns:    []string{".txt", ".srt", ".vtt"},
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
				Name:        "removePatterns",
				Description: "Regex patterns removed from each line",
				Type:        string(mod.InputTypeData),
			},
		},
		ProducedOutputs: []mod.ModuleOutput{
			{
				Name:        "clean",
				Description: "Cleaned plain-text transcript",
				Patterns:    []string{".txt"},
				Type:        string(mod.OutputTypeFile),
			},
		},
	}
}
