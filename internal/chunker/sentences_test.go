package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "First one. Second one. Third one.",
			want: []string{"First one.", "Second one.", "Third one."},
		},
		{
			name: "mixed terminators",
			text: "Really? Yes! Good.",
			want: []string{"Really?", "Yes!", "Good."},
		},
		{
			name: "punctuation runs",
			text: "What?! No way... Fine.",
			want: []string{"What?!", "No way...", "Fine."},
		},
		{
			name: "decimal stays inside sentence",
			text: "Pi is 3.14 roughly. Next sentence.",
			want: []string{"Pi is 3.14 roughly.", "Next sentence."},
		},
		{
			name: "abbreviation stays inside sentence",
			text: "Das gilt z.B. hier. Zweiter Satz.",
			want: []string{"Das gilt z.B. hier.", "Zweiter Satz."},
		},
		{
			name: "trailing text without terminator",
			text: "Complete sentence. trailing fragment",
			want: []string{"Complete sentence.", "trailing fragment"},
		},
		{
			name: "newlines between sentences",
			text: "Line one.\nLine two.\n",
			want: []string{"Line one.", "Line two."},
		},
		{
			name: "leading whitespace",
			text: "   Padded start. End.",
			want: []string{"Padded start.", "End."},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "  \n\t ",
			want: nil,
		},
		{
			name: "multibyte runes",
			text: "Größe zählt hier. Käse schmeckt gut.",
			want: []string{"Größe zählt hier.", "Käse schmeckt gut."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			require.Len(t, got, len(tt.want))
			for i, s := range got {
				assert.Equal(t, tt.want[i], s.Text)
				// Offsets must slice the original exactly
				assert.Equal(t, tt.want[i], tt.text[s.Start:s.End])
			}
		})
	}
}
