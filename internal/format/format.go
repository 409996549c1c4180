// Package format serializes timed transcripts into the supported subtitle
// and text output formats.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scribeflow/scribeflow/internal/services/whisper"
)

// Supported output formats
const (
	FormatTXT  = "txt"
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
	FormatJSON = "json"
)

// ValidFormat reports whether name is a supported output format
func ValidFormat(name string) bool {
	switch name {
	case FormatTXT, FormatSRT, FormatVTT, FormatJSON:
		return true
	default:
		return false
	}
}

// Render serializes a transcription result into the named format
func Render(result *whisper.TranscribeResult, format string) (string, error) {
	switch format {
	case FormatTXT:
		return RenderTXT(result), nil
	case FormatSRT:
		return RenderSRT(result), nil
	case FormatVTT:
		return RenderVTT(result), nil
	case FormatJSON:
		return RenderJSON(result)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// RenderTXT returns the plain transcript text
func RenderTXT(result *whisper.TranscribeResult) string {
	text := strings.TrimSpace(result.Text)
	if text != "" {
		return text + "\n"
	}

	// Fall back to joining segments when the engine omits the full text
	var b strings.Builder
	for _, seg := range result.Segments {
		line := strings.TrimSpace(seg.Text)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSRT returns the transcript as SubRip subtitles
func RenderSRT(result *whisper.TranscribeResult) string {
	var b strings.Builder
	for i, seg := range result.Segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(seg.Start), srtTimestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// RenderVTT returns the transcript as WebVTT subtitles
func RenderVTT(result *whisper.TranscribeResult) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range result.Segments {
		fmt.Fprintf(&b, "%s --> %s\n", vttTimestamp(seg.Start), vttTimestamp(seg.End))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// RenderJSON returns the full timed result as indented JSON
func RenderJSON(result *whisper.TranscribeResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return string(data) + "\n", nil
}

// srtTimestamp formats seconds as HH:MM:SS,mmm
func srtTimestamp(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// vttTimestamp formats seconds as HH:MM:SS.mmm
func vttTimestamp(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitTime(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds * 1000)
	ms = total % 1000
	totalSec := total / 1000
	h = totalSec / 3600
	m = (totalSec % 3600) / 60
	s = totalSec % 60
	return h, m, s, ms
}
