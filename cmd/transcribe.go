package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribeflow/scribeflow/internal/modules/transcribe"
	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/spf13/cobra"
)

var (
	transcribeInput    string
	transcribeOutput   string
	transcribeLanguage string
	transcribeFormat   string
	transcribeKeep     bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio file",
	Long:  `Run speech-to-text on a single audio file without a workflow file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, manager, err := newRuntime()
		if err != nil {
			return err
		}
		defer manager.ReleaseAll()

		module := transcribe.New(manager)
		params := map[string]interface{}{
			"input":        transcribeInput,
			"output":       transcribeOutput,
			"modelPath":    cfg.Models.WhisperModel,
			"language":     transcribeLanguage,
			"outputFormat": transcribeFormat,
			"keepLoaded":   transcribeKeep,
		}

		if err := module.Validate(params); err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := module.Execute(ctx, params)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}

		for name, path := range result.Outputs {
			utils.LogSuccess("Wrote %s: %s", name, path)
		}
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeInput, "input", "i", "", "Input audio file (required)")
	transcribeCmd.Flags().StringVarP(&transcribeOutput, "output", "o", ".", "Output directory")
	transcribeCmd.Flags().StringVarP(&transcribeLanguage, "language", "g", "auto", "Language hint for transcription")
	transcribeCmd.Flags().StringVarP(&transcribeFormat, "format", "f", "txt", "Output format: txt, srt, vtt or json")
	transcribeCmd.Flags().BoolVarP(&transcribeKeep, "keep-loaded", "k", false, "Leave the engine loaded after the run")
	_ = transcribeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(transcribeCmd)
}
