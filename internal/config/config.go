// Package config holds the application configuration loaded from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/scribeflow/scribeflow/internal/chunker"
	"github.com/scribeflow/scribeflow/internal/utils"

	"gopkg.in/yaml.v3"
)

// ModelsConfig points to the model files used by the engines
type ModelsConfig struct {
	WhisperModel string `yaml:"whisperModel"`
	LLMModel     string `yaml:"llmModel"`
}

// EnginesConfig configures the local inference server binaries
type EnginesConfig struct {
	WhisperServerPath string `yaml:"whisperServerPath"`
	WhisperPort       int    `yaml:"whisperPort"`
	LlamaServerPath   string `yaml:"llamaServerPath"`
	LlamaPort         int    `yaml:"llamaPort"`
	Threads           int    `yaml:"threads"`
}

// ResourcesConfig tunes the resource manager and memory monitor
type ResourcesConfig struct {
	WarnThreshold      float64 `yaml:"warnThreshold"`
	CriticalThreshold  float64 `yaml:"criticalThreshold"`
	GracePeriodSec     int     `yaml:"gracePeriodSec"`
	SettleIntervalSec  int     `yaml:"settleIntervalSec"`
	MonitorIntervalSec int     `yaml:"monitorIntervalSec"`
}

// ChunkerConfig sets the default text chunking parameters
type ChunkerConfig struct {
	MaxTokens        int    `yaml:"maxTokens"`
	OverlapSentences int    `yaml:"overlapSentences"`
	Workers          int    `yaml:"workers"`
	Estimator        string `yaml:"estimator"` // heuristic or word
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Address string `yaml:"address"`
}

// Config is the root application configuration
type Config struct {
	Models    ModelsConfig    `yaml:"models"`
	Engines   EnginesConfig   `yaml:"engines"`
	Resources ResourcesConfig `yaml:"resources"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns a configuration with sensible defaults for a local setup
func Default() *Config {
	return &Config{
		Engines: EnginesConfig{
			WhisperServerPath: "whisper-server",
			WhisperPort:       8572,
			LlamaServerPath:   "llama-server",
			LlamaPort:         8573,
		},
		Resources: ResourcesConfig{
			WarnThreshold:      0.80,
			CriticalThreshold:  0.90,
			GracePeriodSec:     10,
			SettleIntervalSec:  2,
			MonitorIntervalSec: 30,
		},
		Chunker: ChunkerConfig{
			MaxTokens:        512,
			OverlapSentences: 1,
			Workers:          2,
			Estimator:        chunker.EstimatorHeuristic,
		},
		Server: ServerConfig{
			Address: "127.0.0.1:8571",
		},
	}
}

// Load reads the configuration file at path, falling back to defaults when
// the path is empty or the file does not exist. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			utils.LogDebug("Loaded configuration from %s", path)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scribeflow", "config.yaml")
}

// applyEnv overrides individual settings from SCRIBEFLOW_* environment
// variables
func (c *Config) applyEnv() {
	if v := os.Getenv("SCRIBEFLOW_WHISPER_MODEL"); v != "" {
		c.Models.WhisperModel = v
	}
	if v := os.Getenv("SCRIBEFLOW_LLM_MODEL"); v != "" {
		c.Models.LLMModel = v
	}
	if v := os.Getenv("SCRIBEFLOW_WHISPER_SERVER"); v != "" {
		c.Engines.WhisperServerPath = v
	}
	if v := os.Getenv("SCRIBEFLOW_LLAMA_SERVER"); v != "" {
		c.Engines.LlamaServerPath = v
	}
	if v := os.Getenv("SCRIBEFLOW_SERVER_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("SCRIBEFLOW_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engines.Threads = n
		}
	}
}

func (c *Config) validate() error {
	if c.Resources.WarnThreshold <= 0 || c.Resources.WarnThreshold >= 1 {
		return fmt.Errorf("warnThreshold must be between 0 and 1, got %v", c.Resources.WarnThreshold)
	}
	if c.Resources.CriticalThreshold <= c.Resources.WarnThreshold || c.Resources.CriticalThreshold >= 1 {
		return fmt.Errorf("criticalThreshold must be between warnThreshold and 1, got %v", c.Resources.CriticalThreshold)
	}
	if c.Chunker.MaxTokens < 1 {
		return fmt.Errorf("chunker maxTokens must be at least 1, got %d", c.Chunker.MaxTokens)
	}
	if c.Chunker.OverlapSentences < 0 {
		return fmt.Errorf("chunker overlapSentences must not be negative, got %d", c.Chunker.OverlapSentences)
	}
	if !chunker.ValidEstimatorName(c.Chunker.Estimator) {
		return fmt.Errorf("chunker estimator must be heuristic or word, got %q", c.Chunker.Estimator)
	}
	if c.Engines.WhisperPort <= 0 || c.Engines.LlamaPort <= 0 {
		return fmt.Errorf("engine ports must be positive")
	}
	for _, p := range []string{c.Models.WhisperModel, c.Models.LLMModel} {
		if p == "" {
			continue
		}
		expanded, err := utils.ExpandHomeDir(p)
		if err != nil {
			return fmt.Errorf("invalid model path %s: %w", p, err)
		}
		if strings.TrimSpace(expanded) == "" {
			return fmt.Errorf("model path must not be blank")
		}
	}
	return nil
}
