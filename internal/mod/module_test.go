package mod

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModule is a minimal Module for registry tests
type stubModule struct {
	name string
}

func (m *stubModule) Name() string  { return m.name }
func (m *stubModule) GetIO() ModuleIO { return ModuleIO{} }
func (m *stubModule) Validate(params map[string]interface{}) error {
	return nil
}
func (m *stubModule) Execute(ctx context.Context, params map[string]interface{}) (ModuleResult, error) {
	return ModuleResult{}, nil
}

func TestModuleRegistry(t *testing.T) {
	registry := NewModuleRegistry()

	require.NoError(t, registry.Register(&stubModule{name: "transcribe"}))
	require.NoError(t, registry.Register(&stubModule{name: "correct_transcript"}))

	// Duplicate names are rejected
	err := registry.Register(&stubModule{name: "transcribe"})
	assert.Error(t, err)

	// Nil and unnamed modules are rejected
	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubModule{name: ""}))

	m, err := registry.Get("transcribe")
	require.NoError(t, err)
	assert.Equal(t, "transcribe", m.Name())

	_, err = registry.Get("missing")
	assert.Error(t, err)
	_, err = registry.Get("")
	assert.Error(t, err)

	assert.Len(t, registry.ListModules(), 2)
}

func TestParseParams(t *testing.T) {
	type params struct {
		Input     string `json:"input"`
		MaxTokens int    `json:"maxTokens"`
		Keep      bool   `json:"keepLoaded"`
	}

	var p params
	err := ParseParams(map[string]interface{}{
		"input":      "/tmp/file.txt",
		"maxTokens":  256,
		"keepLoaded": true,
		"extraneous": "ignored",
	}, &p)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/file.txt", p.Input)
	assert.Equal(t, 256, p.MaxTokens)
	assert.True(t, p.Keep)
}

func TestParseParams_Invalid(t *testing.T) {
	type params struct{}
	var p params

	assert.Error(t, ParseParams(nil, &p))
	assert.Error(t, ParseParams(map[string]interface{}{}, nil))
	assert.Error(t, ParseParams(map[string]interface{}{}, p))

	var notStruct int
	assert.Error(t, ParseParams(map[string]interface{}{}, &notStruct))
}
