package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribeflow/scribeflow/internal/modules/correct"
	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/spf13/cobra"
)

var (
	correctInput      string
	correctOutput     string
	correctLevel      string
	correctLanguage   string
	correctMaxTokens  int
	correctOverlap    int
	correctEstimator  string
	correctConcurrent bool
	correctWorkers    int
	correctKeep       bool
)

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Correct a transcript file",
	Long: `Run LLM-based correction on a transcript text file. Long transcripts
are chunked on sentence boundaries and merged back after correction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, manager, err := newRuntime()
		if err != nil {
			return err
		}
		defer manager.ReleaseAll()

		module := correct.New(manager)
		params := map[string]interface{}{
			"input":            correctInput,
			"output":           correctOutput,
			"modelPath":        cfg.Models.LLMModel,
			"level":            correctLevel,
			"language":         correctLanguage,
			"maxTokens":        correctMaxTokens,
			"overlapSentences": correctOverlap,
			"estimator":        correctEstimator,
			"concurrent":       correctConcurrent,
			"workers":          correctWorkers,
			"threads":          cfg.Engines.Threads,
			"keepLoaded":       correctKeep,
		}
		if correctMaxTokens == 0 {
			params["maxTokens"] = cfg.Chunker.MaxTokens
		}
		if correctWorkers == 0 {
			params["workers"] = cfg.Chunker.Workers
		}
		if correctEstimator == "" {
			params["estimator"] = cfg.Chunker.Estimator
		}

		if err := module.Validate(params); err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := module.Execute(ctx, params)
		if err != nil {
			return fmt.Errorf("correction failed: %w", err)
		}

		for name, path := range result.Outputs {
			utils.LogSuccess("Wrote %s: %s", name, path)
		}
		return nil
	},
}

func init() {
	correctCmd.Flags().StringVarP(&correctInput, "input", "i", "", "Input transcript file (required)")
	correctCmd.Flags().StringVarP(&correctOutput, "output", "o", ".", "Output directory")
	correctCmd.Flags().StringVarP(&correctLevel, "level", "e", "standard", "Correction level: light, standard or thorough")
	correctCmd.Flags().StringVarP(&correctLanguage, "language", "g", "", "Transcript language hint")
	correctCmd.Flags().IntVarP(&correctMaxTokens, "max-tokens", "t", 0, "Token budget per chunk (0 = configured default)")
	correctCmd.Flags().IntVarP(&correctOverlap, "overlap", "s", 1, "Sentences of shared context between chunks")
	correctCmd.Flags().StringVar(&correctEstimator, "estimator", "", "Token estimation strategy: heuristic or word (empty = configured default)")
	correctCmd.Flags().BoolVarP(&correctConcurrent, "concurrent", "p", false, "Correct chunks with a worker pool")
	correctCmd.Flags().IntVarP(&correctWorkers, "workers", "j", 0, "Worker pool size (0 = configured default)")
	correctCmd.Flags().BoolVarP(&correctKeep, "keep-loaded", "k", false, "Leave the engine loaded after the run")
	_ = correctCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(correctCmd)
}
