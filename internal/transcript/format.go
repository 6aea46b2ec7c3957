// Package transcript turns time-coded caption segments into text the model can cite.
package transcript

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/askweb/internal/model"
)

// FormatTimestamp renders an offset in seconds as MM:SS, flooring to whole seconds.
// Minutes are not wrapped into hours.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// NewSegment builds a segment with its derived timestamp
func NewSegment(text string, start float64) model.VideoSegment {
	return model.VideoSegment{
		Text:      text,
		Start:     start,
		Timestamp: FormatTimestamp(start),
	}
}

// Format flattens a transcript into one "[MM:SS] text" line per segment.
// A failed transcript yields its failure message unchanged.
func Format(t model.Result[[]model.VideoSegment]) string {
	segments, ok := t.Get()
	if !ok {
		return t.Message()
	}

	var buf strings.Builder
	for _, seg := range segments {
		buf.WriteString("[")
		buf.WriteString(seg.Timestamp)
		buf.WriteString("] ")
		buf.WriteString(seg.Text)
		buf.WriteString("\n")
	}
	return buf.String()
}
