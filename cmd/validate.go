package cmd

import (
	"fmt"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/utils"
	"github.com/scribeflow/scribeflow/internal/validator"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate environment setup",
	Long:  `Check if all required external tools, engines and models are properly set up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.LogInfo("Validating environment...")

		cfg, err := config.Load(configFilePath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		utils.LogSuccess("Configuration: OK")

		// Validate external tools (ffmpeg)
		if err := validator.ValidateExternalTools(); err != nil {
			return fmt.Errorf("external tools validation failed: %w", err)
		}
		utils.LogSuccess("External tools: OK")

		// Validate the inference server binaries
		if err := validator.ValidateEngines(cfg); err != nil {
			return fmt.Errorf("engine validation failed: %w", err)
		}
		utils.LogSuccess("Engines: OK")

		// Validate the model files
		if err := validator.ValidateModels(cfg); err != nil {
			return fmt.Errorf("model validation failed: %w", err)
		}
		utils.LogSuccess("Models: OK")

		utils.LogSuccess("Environment validation completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
