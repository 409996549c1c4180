package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scribeflow/scribeflow/internal/resources"
	"github.com/scribeflow/scribeflow/internal/services/whisper"
	"github.com/scribeflow/scribeflow/internal/services/whisper/mocks"
	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testGB = uint64(1024 * 1024 * 1024)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newTestManager wires a manager whose transcription loader hands out the
// given transcriber
func newTestManager(transcriber whisper.Transcriber) *resources.Manager {
	loaders := map[resources.Class]resources.LoaderFunc{
		resources.ClassTranscription: func(ctx context.Context, class resources.Class, cfg resources.LoadConfig) (resources.Instance, error) {
			return resources.NewEngineInstance(closerFunc(func() error { return nil }), transcriber), nil
		},
	}
	return resources.NewManager(loaders,
		resources.WithMemoryQuerier(&resources.StaticQuerier{Stats: resources.MemoryStats{
			TotalBytes:     32 * testGB,
			AvailableBytes: 24 * testGB,
			UsedBytes:      8 * testGB,
		}}),
		resources.WithSettleInterval(0),
	)
}

func writeAudioFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF0000WAVE"), 0644))
	return path
}

func TestName(t *testing.T) {
	m := New(newTestManager(nil))
	assert.Equal(t, "transcribe", m.Name())
}

func TestGetIO(t *testing.T) {
	io := New(newTestManager(nil)).GetIO()
	assert.Len(t, io.RequiredInputs, 3)
	require.Len(t, io.ProducedOutputs, 1)
	assert.Equal(t, "transcript", io.ProducedOutputs[0].Name)
}

func TestValidate(t *testing.T) {
	tempDir := t.TempDir()
	audioPath := writeAudioFile(t, tempDir, "talk.wav")
	outputDir := filepath.Join(tempDir, "out")

	m := New(newTestManager(nil))

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid parameters",
			params: map[string]interface{}{
				"input":     audioPath,
				"output":    outputDir,
				"modelPath": "/models/ggml-base.bin",
			},
			wantErr: false,
		},
		{
			name: "missing model path",
			params: map[string]interface{}{
				"input":  audioPath,
				"output": outputDir,
			},
			wantErr: true,
		},
		{
			name: "missing input",
			params: map[string]interface{}{
				"output":    outputDir,
				"modelPath": "/models/ggml-base.bin",
			},
			wantErr: true,
		},
		{
			name: "unsupported output format",
			params: map[string]interface{}{
				"input":        audioPath,
				"output":       outputDir,
				"modelPath":    "/models/ggml-base.bin",
				"outputFormat": "pdf",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Validate(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	tempDir := t.TempDir()
	audioPath := writeAudioFile(t, tempDir, "talk.wav")
	outputDir := filepath.Join(tempDir, "out")

	transcriber := mocks.NewTranscriber(t)
	transcriber.On("Transcribe", mock.Anything, audioPath, whisper.TranscribeOptions{Language: "en"}).
		Return(&whisper.TranscribeResult{
			Text:     "Hello world. Second line here.",
			Language: "en",
			Duration: 4.2,
			Segments: []whisper.Segment{
				{ID: 0, Start: 0, End: 2.1, Text: "Hello world."},
				{ID: 1, Start: 2.1, End: 4.2, Text: "Second line here."},
			},
		}, nil)

	manager := newTestManager(transcriber)
	m := New(manager)

	result, err := m.Execute(context.Background(), map[string]interface{}{
		"input":     audioPath,
		"output":    outputDir,
		"modelPath": "/models/ggml-base.bin",
		"language":  "en",
	})
	require.NoError(t, err)

	transcriptPath := result.Outputs["transcript"]
	assert.Equal(t, filepath.Join(outputDir, "talk.txt"), transcriptPath)

	content, err := utils.ReadTextFile(transcriptPath)
	require.NoError(t, err)
	assert.Contains(t, content, "Hello world.")

	assert.Equal(t, "en", result.Statistics["language"])
	assert.Equal(t, 2, result.Statistics["segments"])

	// The engine is released after the step by default
	assert.False(t, manager.IsLoaded(resources.ClassTranscription))
}

func TestExecute_KeepLoaded(t *testing.T) {
	tempDir := t.TempDir()
	audioPath := writeAudioFile(t, tempDir, "talk.wav")
	outputDir := filepath.Join(tempDir, "out")

	transcriber := mocks.NewTranscriber(t)
	transcriber.On("Transcribe", mock.Anything, audioPath, whisper.TranscribeOptions{}).
		Return(&whisper.TranscribeResult{Text: "Hello.", Language: "en"}, nil)

	manager := newTestManager(transcriber)
	m := New(manager)

	_, err := m.Execute(context.Background(), map[string]interface{}{
		"input":      audioPath,
		"output":     outputDir,
		"modelPath":  "/models/ggml-base.bin",
		"keepLoaded": true,
	})
	require.NoError(t, err)
	assert.True(t, manager.IsLoaded(resources.ClassTranscription))

	manager.ReleaseAll()
}

func TestExecute_SRTFormat(t *testing.T) {
	tempDir := t.TempDir()
	audioPath := writeAudioFile(t, tempDir, "talk.wav")
	outputDir := filepath.Join(tempDir, "out")

	transcriber := mocks.NewTranscriber(t)
	transcriber.On("Transcribe", mock.Anything, audioPath, whisper.TranscribeOptions{}).
		Return(&whisper.TranscribeResult{
			Text:     "Hello world.",
			Language: "en",
			Segments: []whisper.Segment{{ID: 0, Start: 0, End: 2.5, Text: "Hello world."}},
		}, nil)

	m := New(newTestManager(transcriber))

	result, err := m.Execute(context.Background(), map[string]interface{}{
		"input":        audioPath,
		"output":       outputDir,
		"modelPath":    "/models/ggml-base.bin",
		"outputFormat": "srt",
	})
	require.NoError(t, err)

	transcriptPath := result.Outputs["transcript"]
	assert.Equal(t, filepath.Join(outputDir, "talk.srt"), transcriptPath)

	content, err := utils.ReadTextFile(transcriptPath)
	require.NoError(t, err)
	assert.Contains(t, content, "00:00:00,000 --> 00:00:02,500")
}

func TestExecute_TranscriptionError(t *testing.T) {
	tempDir := t.TempDir()
	audioPath := writeAudioFile(t, tempDir, "talk.wav")
	outputDir := filepath.Join(tempDir, "out")

	transcriber := mocks.NewTranscriber(t)
	transcriber.On("Transcribe", mock.Anything, audioPath, whisper.TranscribeOptions{}).
		Return(nil, assert.AnError)

	manager := newTestManager(transcriber)
	m := New(manager)

	_, err := m.Execute(context.Background(), map[string]interface{}{
		"input":     audioPath,
		"output":    outputDir,
		"modelPath": "/models/ggml-base.bin",
	})
	assert.ErrorContains(t, err, "transcription failed")
	assert.False(t, manager.IsLoaded(resources.ClassTranscription))
}
