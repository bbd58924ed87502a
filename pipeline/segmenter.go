package pipeline

import "strings"

// MinChunkLength is the minimum accumulated size before a sentence terminator
// closes a fallback chunk.
const MinChunkLength = 50

const specialistTagMarker = "<agent-message"

// Segment re-chunks blocking-fallback output to approximate streaming
// granularity. Rules:
//   - a line containing a specialist tag is its own atomic chunk, never
//     split or merged;
//   - other lines accumulate into a chunk that closes once a sentence
//     terminator (. ! ?) has been seen and the chunk is at least
//     MinChunkLength long;
//   - any trailing accumulation is flushed as a final chunk.
func Segment(text string) []string {
	var chunks []string
	var acc strings.Builder
	sawTerminator := false

	flush := func() {
		if acc.Len() > 0 {
			chunks = append(chunks, acc.String())
			acc.Reset()
			sawTerminator = false
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, specialistTagMarker) {
			flush()
			chunks = append(chunks, line)
			continue
		}

		if acc.Len() > 0 {
			acc.WriteString("\n")
		}
		acc.WriteString(line)
		if strings.ContainsAny(line, ".!?") {
			sawTerminator = true
		}
		if sawTerminator && acc.Len() >= MinChunkLength {
			flush()
		}
	}
	flush()
	return chunks
}
