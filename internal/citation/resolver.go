// Package citation links inline "[n]" / "[n][MM:SS]" markers in a generated answer
// to the web pages and videos they cite, and renders the canonical source list.
//
// Everything here is a pure function of its inputs.
package citation

import (
	"fmt"
	"strings"

	"github.com/ppiankov/askweb/internal/model"
	"golang.org/x/net/html"
)

// SourcesHeading separates the answer body from the model's own source list
const SourcesHeading = "SOURCES:"

// Resolution is the output of Resolve
type Resolution struct {
	Answer         string                   // Escaped answer body with markers replaced by anchors
	SourcesSection string                   // Text from "SOURCES:" onward, verbatim
	Earliest       model.EarliestTimestamps // Earliest cited offset per video index
	Citations      []model.Citation         // Every marker in scan order
}

// Split separates the answer body (trimmed) from the trailing SOURCES: section
func Split(answer string) (body, sources string) {
	idx := strings.Index(answer, SourcesHeading)
	if idx < 0 {
		return answer, ""
	}
	return strings.TrimSpace(answer[:idx]), answer[idx:]
}

// Resolve links every citation marker in the answer body.
// The body is HTML-escaped; the generated anchors are the only markup in Answer.
//
// Index i maps to web[i-1] for 1 <= i <= len(web), else to videos[i-len(web)-1].
// Markers outside both ranges are left as plain text and reported as unresolved.
// For videos, a strict MM:SS timestamp adds a time offset to that link and lowers
// the earliest record for the index; other timestamp shapes are ignored.
func Resolve(answer string, web []model.WebSource, videos []model.VideoSource) Resolution {
	body, sources := Split(answer)

	res := Resolution{
		SourcesSection: sources,
		Earliest:       model.EarliestTimestamps{},
	}

	markers := scanMarkers(body)
	if len(markers) == 0 {
		res.Answer = html.EscapeString(body)
		return res
	}

	var out strings.Builder
	out.Grow(len(body) + len(markers)*64)
	last := 0

	for _, m := range markers {
		raw := m.text(body)
		c := resolveMarker(m, raw, web, videos, res.Earliest)
		res.Citations = append(res.Citations, c)

		out.WriteString(html.EscapeString(body[last:m.start]))
		if c.Kind == model.SourceKindUnresolved {
			out.WriteString(html.EscapeString(raw))
		} else {
			out.WriteString(Anchor(c.URL, html.EscapeString(raw)))
		}
		last = m.end
	}
	out.WriteString(html.EscapeString(body[last:]))

	res.Answer = out.String()
	return res
}

func resolveMarker(m marker, raw string, web []model.WebSource, videos []model.VideoSource, earliest model.EarliestTimestamps) model.Citation {
	c := model.Citation{Marker: raw, Index: m.index}

	switch kind, pos := Locate(m.index, len(web), len(videos)); kind {
	case model.SourceKindWeb:
		c.Kind = kind
		c.URL = web[pos].URL

	case model.SourceKindVideo:
		c.Kind = kind
		c.URL = videos[pos].URL
		if m.timestamp == "" {
			break
		}
		seconds, ok := ParseTimestamp(m.timestamp)
		if !ok {
			break
		}
		c.URL = DeepLink(c.URL, seconds)
		c.Seconds = &seconds
		if rec, seen := earliest[m.index]; !seen || seconds < rec.Seconds {
			earliest[m.index] = model.TimestampRecord{Timestamp: m.timestamp, Seconds: seconds}
		}

	default:
		c.Kind = model.SourceKindUnresolved
	}
	return c
}

// Locate maps a 1-based evidence index to a source kind and a 0-based position
// within that kind's list.
func Locate(index, webCount, videoCount int) (model.SourceKind, int) {
	switch {
	case index >= 1 && index <= webCount:
		return model.SourceKindWeb, index - 1
	case index > webCount && index <= webCount+videoCount:
		return model.SourceKindVideo, index - webCount - 1
	default:
		return model.SourceKindUnresolved, -1
	}
}

// DeepLink appends a whole-second time offset to a video URL
func DeepLink(videoURL string, seconds int) string {
	sep := "&"
	if !strings.Contains(videoURL, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%st=%ds", videoURL, sep, seconds)
}

// Anchor renders an inline link that opens in a new tab
func Anchor(href, text string) string {
	return `<a href="` + attrEscaper.Replace(href) + `" target="_blank">` + text + `</a>`
}

// Query separators stay literal so links read the same as the source URLs
var attrEscaper = strings.NewReplacer(`"`, "&quot;", "<", "&lt;", ">", "&gt;")
