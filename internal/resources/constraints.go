// Package resources owns the lifecycle of heavyweight native engines. At most
// one instance per resource class is resident at any time, loading is gated by
// a system memory guard, and swapping between classes is a single observable
// operation.
package resources

import (
	"errors"
	"fmt"
)

// Class identifies a mutually exclusive slot for one heavyweight engine
type Class string

const (
	// ClassTranscription is the speech-to-text engine slot
	ClassTranscription Class = "transcription"
	// ClassCorrection is the text-correction model slot
	ClassCorrection Class = "correction"
)

// ErrUnknownClass is returned for resource classes without a constraints entry
var ErrUnknownClass = errors.New("unknown resource class")

// Valid reports whether the class has a constraints entry
func (c Class) Valid() bool {
	_, ok := defaultConstraints[c]
	return ok
}

// Constraints is the static per-class load policy
type Constraints struct {
	MinMemoryGB       float64 // acquire is refused below this
	PreferredMemoryGB float64
	GPURequired       bool
	MaxConcurrent     int // always 1 today; reserved for future use
}

// defaultConstraints holds the built-in policy per class. Transcription runs a
// native whisper process, correction keeps a quantized text model resident.
var defaultConstraints = map[Class]Constraints{
	ClassTranscription: {
		MinMemoryGB:       2.0,
		PreferredMemoryGB: 4.0,
		GPURequired:       false,
		MaxConcurrent:     1,
	},
	ClassCorrection: {
		MinMemoryGB:       4.0,
		PreferredMemoryGB: 8.0,
		GPURequired:       false,
		MaxConcurrent:     1,
	},
}

// ConstraintsFor returns the load policy for a class
func ConstraintsFor(class Class) (Constraints, error) {
	c, ok := defaultConstraints[class]
	if !ok {
		return Constraints{}, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return c, nil
}
