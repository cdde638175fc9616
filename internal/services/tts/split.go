package tts

import (
	"strings"
	"unicode/utf8"
)

// SplitText breaks text into pieces of at most limit bytes, preferring
// sentence ends, then word boundaries. A single word longer than limit is
// cut on a rune boundary; a rune wider than limit becomes its own piece.
func SplitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := lastBreak(text[:limit], ".!?\n")
		if cut <= 0 {
			cut = lastBreak(text[:limit+1], " ")
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				// limit is narrower than the first rune; emit it whole.
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		if piece := strings.TrimSpace(text[:cut]); piece != "" {
			chunks = append(chunks, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// lastBreak returns the index just past the last break character in s.
func lastBreak(s, chars string) int {
	idx := strings.LastIndexAny(s, chars)
	if idx < 0 {
		return -1
	}
	return idx + 1
}
