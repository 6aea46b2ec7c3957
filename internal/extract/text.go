package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText returns the text a reader would see: script, style, noscript,
// template and iframe contents are dropped, and every non-empty text node
// becomes one trimmed line.
func VisibleText(doc *html.Node) string {
	var lines []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "iframe":
				return
			}
		}
		if n.Type == html.CommentNode {
			return
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.Join(lines, "\n")
}

// VisibleTextFromHTML parses a document and returns its visible text
func VisibleTextFromHTML(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	return VisibleText(doc), nil
}

// Truncate caps s at max runes, appending "..." when it cut anything
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
