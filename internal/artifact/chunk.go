// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import "strings"

// ChunkWords splits text on whitespace into pieces of at most width words.
// N words yield ceil(N/width) pieces; blank text yields none.
func ChunkWords(text string, width int) []string {
	if width <= 0 {
		width = 500
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+width-1)/width)
	for start := 0; start < len(words); start += width {
		end := min(start+width, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
