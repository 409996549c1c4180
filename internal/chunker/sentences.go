package chunker

import "unicode"

// sentence is one detected sentence with its offsets into the original text
type sentence struct {
	Text  string
	Start int
	End   int
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences segments text on '.', '!' or '?' followed by whitespace (or
// end of input), keeping the punctuation with the preceding sentence. Offsets
// are byte positions into the original text, so slicing the original with
// them reproduces the sentence exactly.
func splitSentences(text string) []sentence {
	var sentences []sentence

	runes := []rune(text)
	// Byte offset of each rune, plus a final entry for len(text)
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += len(string(r))
	}
	offsets[len(runes)] = len(text)

	start := -1 // rune index of current sentence start
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if start < 0 {
			if unicode.IsSpace(r) {
				continue
			}
			start = i
		}

		if !isSentenceEnd(r) {
			continue
		}
		// Swallow a run of terminal punctuation ("?!", "...")
		end := i
		for end+1 < len(runes) && isSentenceEnd(runes[end+1]) {
			end++
		}
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			// Mid-token punctuation like "3.14" or "z.B." stays inside the
			// sentence
			i = end
			continue
		}

		sentences = append(sentences, sentence{
			Text:  text[offsets[start]:offsets[end+1]],
			Start: offsets[start],
			End:   offsets[end+1],
		})
		i = end
		start = -1
	}

	// Trailing text without terminal punctuation is its own sentence
	if start >= 0 {
		endByte := len(text)
		// Trim trailing whitespace from the final span
		e := len(runes)
		for e > start && unicode.IsSpace(runes[e-1]) {
			e--
		}
		endByte = offsets[e]
		if endByte > offsets[start] {
			sentences = append(sentences, sentence{
				Text:  text[offsets[start]:endByte],
				Start: offsets[start],
				End:   endByte,
			})
		}
	}

	return sentences
}
