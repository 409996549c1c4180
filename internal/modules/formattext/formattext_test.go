package formattext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_Name(t *testing.T) {
	assert.Equal(t, "format_text", New().Name())
}

func TestModule_GetIO(t *testing.T) {
	io := New().GetIO()
	require.Len(t, io.RequiredInputs, 2)
	assert.Equal(t, "input", io.RequiredInputs[0].Name)
	assert.Equal(t, "output", io.RequiredInputs[1].Name)
	require.Len(t, io.ProducedOutputs, 1)
	assert.Equal(t, "clean", io.ProducedOutputs[0].Name)
}

func TestModule_Validate(t *testing.T) {
	module := New()
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid parameters",
			params: map[string]interface{}{
				"input":  filepath.Join(tempDir, "input.txt"),
				"output": tempDir,
			},
			wantErr: false,
		},
		{
			name: "missing input",
			params: map[string]interface{}{
				"output": tempDir,
			},
			wantErr: true,
		},
		{
			name: "invalid removal pattern",
			params: map[string]interface{}{
				"input":          filepath.Join(tempDir, "input.txt"),
				"output":         tempDir,
				"removePatterns": []string{"([unclosed"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := module.Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModule_Execute_SRT(t *testing.T) {
	module := New()
	tempDir := t.TempDir()

	inputPath := filepath.Join(tempDir, "talk.srt")
	content := `1
00:00:00,000 --> 00:00:02,500
Hello world.

2
00:00:02,500 --> 00:00:05,000
Second line here.
`
	require.NoError(t, os.WriteFile(inputPath, []byte(content), 0644))

	result, err := module.Execute(context.Background(), map[string]interface{}{
		"input":  inputPath,
		"output": tempDir,
	})
	require.NoError(t, err)

	outputPath := result.Outputs["clean"]
	assert.Equal(t, filepath.Join(tempDir, "talk_clean.txt"), outputPath)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "Hello world.\nSecond line here.\n", string(data))
}

func TestModule_Execute_RemovePatterns(t *testing.T) {
	module := New()
	tempDir := t.TempDir()

	inputPath := filepath.Join(tempDir, "transcript.txt")
	content := "Hello [music] world.\nA line with (applause) noise.\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(content), 0644))

	result, err := module.Execute(context.Background(), map[string]interface{}{
		"input":           inputPath,
		"output":          tempDir,
		"removePatterns":  []string{`\[.*?\]`, `\(.*?\)`},
		"cleanFileSuffix": "_plain",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(result.Outputs["clean"])
	require.NoError(t, err)
	assert.Equal(t, "Hello  world.\nA line with  noise.\n", string(data))
}

func TestModule_Execute_MissingInput(t *testing.T) {
	module := New()
	tempDir := t.TempDir()

	_, err := module.Execute(context.Background(), map[string]interface{}{
		"input":  filepath.Join(tempDir, "nope.txt"),
		"output": tempDir,
	})
	assert.Error(t, err)
}
