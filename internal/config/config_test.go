package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8572, cfg.Engines.WhisperPort)
	assert.Equal(t, 8573, cfg.Engines.LlamaPort)
	assert.Equal(t, 0.80, cfg.Resources.WarnThreshold)
	assert.Equal(t, 0.90, cfg.Resources.CriticalThreshold)
	assert.Equal(t, 512, cfg.Chunker.MaxTokens)
	assert.Equal(t, 1, cfg.Chunker.OverlapSentences)
	assert.Equal(t, "heuristic", cfg.Chunker.Estimator)
	assert.Equal(t, "127.0.0.1:8571", cfg.Server.Address)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
models:
  whisperModel: /models/ggml-base.bin
  llmModel: /models/qwen.gguf
engines:
  whisperPort: 9001
  threads: 8
chunker:
  maxTokens: 256
  estimator: word
server:
  address: 0.0.0.0:9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/models/ggml-base.bin", cfg.Models.WhisperModel)
	assert.Equal(t, "/models/qwen.gguf", cfg.Models.LLMModel)
	assert.Equal(t, 9001, cfg.Engines.WhisperPort)
	assert.Equal(t, 8, cfg.Engines.Threads)
	assert.Equal(t, 256, cfg.Chunker.MaxTokens)
	assert.Equal(t, "word", cfg.Chunker.Estimator)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Address)

	// Unset fields keep their defaults
	assert.Equal(t, 8573, cfg.Engines.LlamaPort)
	assert.Equal(t, 0.90, cfg.Resources.CriticalThreshold)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Chunker.MaxTokens)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "models: [broken"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCRIBEFLOW_WHISPER_MODEL", "/env/whisper.bin")
	t.Setenv("SCRIBEFLOW_LLM_MODEL", "/env/llm.gguf")
	t.Setenv("SCRIBEFLOW_SERVER_ADDRESS", "127.0.0.1:7000")
	t.Setenv("SCRIBEFLOW_THREADS", "12")

	path := writeConfig(t, `
models:
  whisperModel: /file/whisper.bin
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file
	assert.Equal(t, "/env/whisper.bin", cfg.Models.WhisperModel)
	assert.Equal(t, "/env/llm.gguf", cfg.Models.LLMModel)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Address)
	assert.Equal(t, 12, cfg.Engines.Threads)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "warn threshold out of range",
			content: `
resources:
  warnThreshold: 1.5
`,
		},
		{
			name: "critical below warn",
			content: `
resources:
  warnThreshold: 0.8
  criticalThreshold: 0.7
`,
		},
		{
			name: "zero max tokens",
			content: `
chunker:
  maxTokens: 0
`,
		},
		{
			name: "negative overlap",
			content: `
chunker:
  overlapSentences: -2
`,
		},
		{
			name: "bad port",
			content: `
engines:
  whisperPort: -1
`,
		},
		{
			name: "unknown estimator",
			content: `
chunker:
  estimator: bpe
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
