package chunk

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SplitText splits text on whitespace and packs the words greedily into
// chunks. A word joins the current chunk while
// len(current)+len(word)+1 <= maxChars, where current carries one trailing
// space per packed word. Lengths are counted in runes.
//
// Empty or whitespace-only text yields no chunks. A word that does not fit
// into an empty chunk is emitted on its own, so no chunk is ever empty and
// words are never cut.
func SplitText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if currentLen+wordLen+1 > maxChars && currentLen > 0 {
			chunks = append(chunks, strings.TrimSuffix(current.String(), " "))
			current.Reset()
			currentLen = 0
		}
		current.WriteString(word)
		current.WriteByte(' ')
		currentLen += wordLen + 1
	}

	if currentLen > 0 {
		chunks = append(chunks, strings.TrimSuffix(current.String(), " "))
	}
	return chunks
}

// JoinChunks is the inverse of SplitText up to whitespace normalization.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, " ")
}

// NormalizeSpace collapses every whitespace run to a single space and trims
// both ends, which is what a SplitText/JoinChunks round trip returns.
func NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NFC returns text in Unicode normalization form C so that composed and
// decomposed accents count as the same number of characters.
func NFC(text string) string {
	return norm.NFC.String(text)
}
