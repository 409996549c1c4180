package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecLookPath allows tests to stub exec.LookPath
var ExecLookPath = exec.LookPath

// ValidationError is a parameter validation failure with field context
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateInputPath validates an input path, handling both files and directories
func ValidateInputPath(input, output string, inputFileName string) error {
	if input == "" {
		return &ValidationError{
			Field:   "input",
			Message: "input path is required",
		}
	}

	// Files inside the output directory are produced by earlier steps and
	// may not exist yet at validation time
	if output != "" && strings.Contains(input, output) || strings.Contains(input, "${output}") {
		return nil
	}

	if inputFileName != "" {
		dir := filepath.Dir(input)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return &ValidationError{
				Field:   "input",
				Message: fmt.Sprintf("input directory does not exist: %s", dir),
				Err:     err,
			}
		}
		return nil
	}

	fileInfo, err := os.Stat(input)
	if err != nil {
		return &ValidationError{
			Field:   "input",
			Message: "input path does not exist",
			Err:     err,
		}
	}

	if fileInfo.IsDir() && inputFileName == "" {
		return &ValidationError{
			Field:   "input",
			Message: "input is a directory but no inputFileName specified",
		}
	}

	return nil
}

// ValidateOutputPath validates an output path, creating the directory if needed
func ValidateOutputPath(output string) error {
	if output == "" {
		return &ValidationError{
			Field:   "output",
			Message: "output path is required",
		}
	}

	if err := os.MkdirAll(output, 0755); err != nil {
		return &ValidationError{
			Field:   "output",
			Message: "failed to create output directory",
			Err:     err,
		}
	}

	return nil
}

// ResolveOutputPath resolves the ${output} variable in paths
func ResolveOutputPath(path, outputDir string) string {
	if strings.Contains(path, "${output}") {
		return strings.ReplaceAll(path, "${output}", outputDir)
	}
	return path
}

// ValidateRequiredDependency checks that a required command is on PATH
func ValidateRequiredDependency(cmd string) error {
	if _, err := ExecLookPath(cmd); err != nil {
		return &ValidationError{
			Field:   cmd,
			Message: fmt.Sprintf("%s not found in PATH", cmd),
			Err:     err,
		}
	}
	return nil
}

// ValidateFileExtension checks that a file has one of the allowed extensions
func ValidateFileExtension(filePath string, allowedExts []string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, allowedExt := range allowedExts {
		if ext == allowedExt {
			return nil
		}
	}
	return &ValidationError{
		Field:   "file",
		Message: fmt.Sprintf("unsupported file extension %s (allowed: %s)", ext, strings.Join(allowedExts, ", ")),
	}
}
