// Package evidence builds the numbered evidence block handed to the answer model.
//
// Numbering is the contract with the citation resolver: web sources take indices
// 1..W in order, videos continue at W+1 without resetting.
package evidence

import (
	"fmt"
	"strings"

	"github.com/ppiankov/askweb/internal/model"
)

// MaxSourceChars bounds each source's text in the prompt
const MaxSourceChars = 8000

const truncationMarker = "..."

// Assemble renders web sources then video sources as one evidence block
func Assemble(web []model.WebSource, videos []model.VideoSource) string {
	blocks := make([]string, 0, len(web)+len(videos))

	for i, src := range web {
		content := Truncate(strings.TrimSpace(src.Text()), MaxSourceChars)
		blocks = append(blocks, fmt.Sprintf("SOURCE %d (WEB): %s\n%s\n", i+1, src.URL, content))
	}

	start := len(web) + 1
	for i, src := range videos {
		text := Truncate(strings.TrimSpace(src.TranscriptText), MaxSourceChars)
		blocks = append(blocks, fmt.Sprintf("SOURCE %d (YOUTUBE): %s\n%s\n", start+i, src.URL, text))
	}

	return strings.Join(blocks, "\n")
}

// Truncate cuts s to at most max characters and appends "..." when it did
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	// Byte length is an upper bound on rune count
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + truncationMarker
}
