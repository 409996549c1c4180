package cmd

import (
	"fmt"
	"time"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/mod"
	"github.com/scribeflow/scribeflow/internal/modules/correct"
	"github.com/scribeflow/scribeflow/internal/modules/extractaudio"
	"github.com/scribeflow/scribeflow/internal/modules/formattext"
	"github.com/scribeflow/scribeflow/internal/modules/transcribe"
	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/services/textgen"
	"github.com/scribeflow/scribeflow/internal/services/whisper"
	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/spf13/cobra"
)

var (
	// verbosityLevel is the command-line flag for setting the log level
	verbosityLevel string
	configFilePath string
)

var rootCmd = &cobra.Command{
	Use:   "scribeflow",
	Short: "Local transcription and transcript correction pipelines",
	Long: `ScribeFlow runs speech-to-text and LLM transcript correction fully
locally, sharing system memory between the two engines so only one heavy
model is resident at a time.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set the global log level based on the flag
		logLevel := utils.LogLevelFromString(verbosityLevel)
		utils.SetLogLevel(logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global flags
	rootCmd.PersistentFlags().StringVarP(&verbosityLevel, "log-level", "l", "normal",
		"Set the logging verbosity level: quiet, normal, verbose, debug")
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "",
		"Path to configuration file (default: ~/.scribeflow/config.yaml)")
}

// newRuntime builds the configuration and the process-wide resource manager.
// Every command that touches an engine goes through here so there is exactly
// one manager per process.
func newRuntime() (*config.Config, *resources.Manager, error) {
	cfg, err := config.Load(configFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loaders := map[resources.Class]resources.LoaderFunc{
		resources.ClassTranscription: whisper.Loader(cfg.Engines.WhisperServerPath, cfg.Engines.WhisperPort),
		resources.ClassCorrection:    textgen.Loader(cfg.Engines.LlamaServerPath, cfg.Engines.LlamaPort),
	}

	manager := resources.NewManager(loaders,
		resources.WithGracePeriod(time.Duration(cfg.Resources.GracePeriodSec)*time.Second),
		resources.WithSettleInterval(time.Duration(cfg.Resources.SettleIntervalSec)*time.Second),
		resources.WithThresholds(cfg.Resources.WarnThreshold, cfg.Resources.CriticalThreshold),
	)
	return cfg, manager, nil
}

// newRegistry registers every pipeline module against the given manager
func newRegistry(manager *resources.Manager) (*mod.ModuleRegistry, error) {
	registry := mod.NewModuleRegistry()
	modules := []mod.Module{
		extractaudio.New(),
		transcribe.New(manager),
		correct.New(manager),
		formattext.New(),
	}
	for _, m := range modules {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register module %s: %w", m.Name(), err)
		}
	}
	return registry, nil
}

// llmLoadConfig assembles the load configuration for the correction engine
func llmLoadConfig(cfg *config.Config) resources.LoadConfig {
	return resources.LoadConfig{
		ModelPath: cfg.Models.LLMModel,
		Threads:   cfg.Engines.Threads,
	}
}

// whisperLoadConfig assembles the load configuration for the transcription
// engine
func whisperLoadConfig(cfg *config.Config, language string) resources.LoadConfig {
	return resources.LoadConfig{
		ModelPath: cfg.Models.WhisperModel,
		Language:  language,
		Threads:   cfg.Engines.Threads,
	}
}
