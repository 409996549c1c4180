package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribeflow/scribeflow/internal/utils"
	"github.com/scribeflow/scribeflow/internal/validator"
	"github.com/scribeflow/scribeflow/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	workflowFilePath  string
	inputFileOverride string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a processing workflow",
	Long:  `Execute a transcription and correction workflow defined in a YAML file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate that external dependencies are installed
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("dependency validation failed: %w", err)
		}

		_, manager, err := newRuntime()
		if err != nil {
			return err
		}
		defer manager.ReleaseAll()

		registry, err := newRegistry(manager)
		if err != nil {
			return err
		}

		wf, err := workflow.LoadFromFile(workflowFilePath, registry)
		if err != nil {
			return fmt.Errorf("failed to load workflow: %w", err)
		}

		// Override input file if specified
		if inputFileOverride != "" {
			fileInfo, err := os.Stat(inputFileOverride)
			if err != nil {
				return fmt.Errorf("input file does not exist: %s", inputFileOverride)
			}
			if fileInfo.IsDir() {
				return fmt.Errorf("input must be a file, not a directory: %s", inputFileOverride)
			}

			wf.SetInputPath(inputFileOverride)
			utils.LogInfo("Using input file from CLI: %s", inputFileOverride)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := wf.Execute(ctx); err != nil {
			return fmt.Errorf("workflow execution failed: %w", err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&workflowFilePath, "workflow", "w", "", "Path to workflow YAML file (required)")
	runCmd.Flags().StringVarP(&inputFileOverride, "input", "i", "", "Input file path (overrides the one in workflow file)")
	_ = runCmd.MarkFlagRequired("workflow")
	rootCmd.AddCommand(runCmd)
}
