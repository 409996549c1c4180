package whisper

import (
	"context"
)

// Transcriber defines the interface for transcription operations
type Transcriber interface {
	// Transcribe runs speech-to-text on an audio file and returns the full
	// transcript with timed segments
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*TranscribeResult, error)
}

// Ensure Service implements Transcriber
var _ Transcriber = (*Service)(nil)
