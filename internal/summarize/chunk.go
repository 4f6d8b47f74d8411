package summarize

import (
	"strings"
	"unicode/utf8"
)

// SplitIntoChunks partitions text into whitespace-joined runs of words.
// A word is added to a non-empty chunk only while the running length plus
// the word and its joining space stays within maxChunkLength; otherwise the
// chunk is closed and the word starts the next one. A word longer than
// maxChunkLength occupies a chunk of its own. Lengths count runes.
func SplitIntoChunks(text string, maxChunkLength int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	length := 0
	for _, word := range words {
		n := utf8.RuneCountInString(word)
		if len(current) > 0 && length+n+1 > maxChunkLength {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
		current = append(current, word)
		length += n + 1
	}
	return append(chunks, strings.Join(current, " "))
}
