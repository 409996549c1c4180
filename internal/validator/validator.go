// Package validator checks that the external tools and model files the
// pipeline depends on are available before any work starts.
package validator

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/utils"
)

// ExternalTool represents an external command-line tool requirement
type ExternalTool struct {
	Name        string
	VersionArgs []string
	Validate    func(output string) bool
}

// requiredTools is a list of external tools that must be installed
var requiredTools = []ExternalTool{
	{
		Name:        "ffmpeg",
		VersionArgs: []string{"-version"},
		Validate: func(output string) bool {
			return strings.Contains(output, "ffmpeg version")
		},
	},
}

// ValidateExternalTools checks if all required external tools are installed
func ValidateExternalTools() error {
	for _, tool := range requiredTools {
		path, err := exec.LookPath(tool.Name)
		if err != nil {
			return fmt.Errorf("tool %s not found in PATH: %w", tool.Name, err)
		}

		cmd := exec.Command(path, tool.VersionArgs...)
		output, err := cmd.Output()
		if err != nil {
			return fmt.Errorf("failed to run %s: %w", tool.Name, err)
		}

		if !tool.Validate(string(output)) {
			return fmt.Errorf("invalid version of %s detected", tool.Name)
		}

		utils.LogVerbose("✓ %s found at %s", tool.Name, path)
	}

	return nil
}

// ValidateEngines checks that the configured inference server binaries exist.
// Engines are checked separately from the required tools because a user may
// run only one half of the pipeline.
func ValidateEngines(cfg *config.Config) error {
	engines := []struct {
		name string
		path string
	}{
		{"whisper-server", cfg.Engines.WhisperServerPath},
		{"llama-server", cfg.Engines.LlamaServerPath},
	}

	for _, engine := range engines {
		path, err := exec.LookPath(engine.path)
		if err != nil {
			return fmt.Errorf("engine binary %s not found: %w", engine.name, err)
		}
		utils.LogVerbose("✓ %s found at %s", engine.name, path)
	}

	return nil
}

// ValidateModels checks that the configured model files exist on disk
func ValidateModels(cfg *config.Config) error {
	models := []struct {
		name string
		path string
	}{
		{"whisper model", cfg.Models.WhisperModel},
		{"LLM model", cfg.Models.LLMModel},
	}

	for _, model := range models {
		if model.path == "" {
			return fmt.Errorf("%s path is not configured", model.name)
		}
		expanded, err := utils.ExpandHomeDir(model.path)
		if err != nil {
			return fmt.Errorf("invalid %s path: %w", model.name, err)
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return fmt.Errorf("%s not found at %s: %w", model.name, expanded, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s path %s is a directory", model.name, expanded)
		}
		utils.LogVerbose("✓ %s found at %s", model.name, expanded)
	}

	return nil
}
