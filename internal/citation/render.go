package citation

import (
	"strings"

	"github.com/ppiankov/askweb/internal/model"
	"golang.org/x/net/html"
)

// RenderSources renders every source as an ordered list whose positions match
// the evidence indices: web sources first, then videos. A video with an earliest
// record links to that offset and notes where it starts.
func RenderSources(web []model.WebSource, videos []model.VideoSource, earliest model.EarliestTimestamps) string {
	var buf strings.Builder
	buf.WriteString("<h3>Sources</h3><ol>")

	for _, src := range web {
		writeItem(&buf, src.URL, src.Title, "")
	}

	start := len(web) + 1
	for i, src := range videos {
		href := src.URL
		suffix := ""
		if rec, ok := earliest[start+i]; ok {
			href = DeepLink(src.URL, rec.Seconds)
			suffix = " (starts at " + rec.Timestamp + ")"
		}
		writeItem(&buf, href, src.Title, suffix)
	}

	buf.WriteString("</ol>")
	return buf.String()
}

func writeItem(buf *strings.Builder, href, title, suffix string) {
	buf.WriteString("<li>")
	buf.WriteString(Anchor(href, html.EscapeString(title)+html.EscapeString(suffix)))
	buf.WriteString("</li>")
}
