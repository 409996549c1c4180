// Package workflow loads and executes YAML-defined processing pipelines over
// the module registry.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/mod"
	"github.com/scribeflow/scribeflow/internal/utils"

	"gopkg.in/yaml.v3"
)

// Step represents a single processing step in a workflow
type Step struct {
	Name       string                 `yaml:"name"`
	Module     string                 `yaml:"module"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// Workflow represents a complete media processing workflow
type Workflow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Input       string `yaml:"input,omitempty"`
	Output      string `yaml:"output"`
	Steps       []Step `yaml:"steps"`

	registry *mod.ModuleRegistry
}

// LoadFromFile loads a workflow definition from a YAML file. The registry is
// injected so modules that need the resource manager are constructed at the
// composition root.
func LoadFromFile(path string, registry *mod.ModuleRegistry) (*Workflow, error) {
	workflow := &Workflow{registry: registry}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	if err := yaml.Unmarshal(data, workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}

	if err := workflow.ValidateStructure(); err != nil {
		return nil, fmt.Errorf("invalid workflow configuration: %w", err)
	}
	return workflow, nil
}

// SetInputPath overrides the input path defined in the workflow file
func (w *Workflow) SetInputPath(path string) {
	w.Input = path
}

// ValidateStructure checks the basic workflow structure without touching
// modules
func (w *Workflow) ValidateStructure() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("at least one processing step is required")
	}
	return nil
}

// ValidateBeforeRun performs a complete validation including module
// parameters
func (w *Workflow) ValidateBeforeRun() error {
	if err := w.ValidateStructure(); err != nil {
		return err
	}
	if w.Output == "" {
		return fmt.Errorf("output path is required")
	}

	if w.Input != "" {
		fileInfo, err := os.Stat(w.Input)
		if err != nil {
			return fmt.Errorf("input file does not exist: %w", err)
		}
		if fileInfo.IsDir() {
			return fmt.Errorf("input must be a file, not a directory")
		}
	}

	for i, step := range w.Steps {
		if step.Module == "" {
			return fmt.Errorf("module name is required for step %d", i+1)
		}
		module, err := w.registry.Get(step.Module)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		params := w.stepParams(step, i, w.Output)
		if err := module.Validate(params); err != nil {
			return fmt.Errorf("invalid parameters for step %d (%s): %w", i+1, step.Module, err)
		}
	}
	return nil
}

// Execute runs every step in sequence, storing results in a timestamped
// directory under the configured output path
func (w *Workflow) Execute(ctx context.Context) error {
	if err := w.ValidateBeforeRun(); err != nil {
		return fmt.Errorf("workflow validation failed: %w", err)
	}

	utils.LogInfo("Starting workflow: %s", w.Name)

	timestamp := time.Now().Format("20060102-150405")
	outputDir := filepath.Join(w.Output, fmt.Sprintf("%s-%s", sanitizeName(w.Name), timestamp))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	utils.LogDebug("Results will be stored in: %s", outputDir)

	for i, step := range w.Steps {
		stepName := step.Name
		if stepName == "" {
			stepName = fmt.Sprintf("Step %d", i+1)
		}

		utils.LogInfo("Executing %s (module: %s)", stepName, step.Module)

		module, err := w.registry.Get(step.Module)
		if err != nil {
			return fmt.Errorf("failed to get module for step %s: %w", stepName, err)
		}

		params := w.stepParams(step, i, outputDir)
		result, err := module.Execute(ctx, params)
		if err != nil {
			utils.LogError("Failed to execute step %s: %v", stepName, err)
			return fmt.Errorf("failed to execute step %s: %w", stepName, err)
		}

		for name, path := range result.Outputs {
			utils.LogVerbose("Step %s produced %s: %s", stepName, name, path)
		}
		utils.LogSuccess("Completed %s", stepName)
	}

	utils.LogSuccess("Workflow completed: %s", w.Name)
	return nil
}

// stepParams assembles the effective parameter map for one step: variable
// substitution plus default input/output wiring
func (w *Workflow) stepParams(step Step, index int, outputDir string) map[string]interface{} {
	params := make(map[string]interface{})
	for k, v := range step.Parameters {
		if str, ok := v.(string); ok && strings.Contains(str, "${output}") {
			v = strings.ReplaceAll(str, "${output}", outputDir)
		}
		params[k] = v
	}

	if _, ok := params["input"]; !ok {
		if index == 0 && w.Input != "" {
			params["input"] = w.Input
		} else {
			// Later steps default to consuming the shared output directory
			params["input"] = outputDir
		}
	}
	if _, ok := params["output"]; !ok {
		params["output"] = outputDir
	}

	// Combine a directory input with an explicit file name when provided
	if inputDir, ok := params["input"].(string); ok {
		if info, err := os.Stat(inputDir); err == nil && info.IsDir() {
			if inputFileName, ok := params["inputFileName"].(string); ok {
				params["input"] = filepath.Join(inputDir, inputFileName)
			}
		}
	}

	return params
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	return name
}
