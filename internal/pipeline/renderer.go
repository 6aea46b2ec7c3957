package pipeline

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ppiankov/askweb/internal/model"
)

// Renderer writes answers as an HTML page, JSON or Markdown
type Renderer struct {
	page *template.Template
}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{page: pageTemplate}
}

// PageData is what the HTML page shows. Answer may be nil (empty form).
type PageData struct {
	Question  string
	Mode      model.Mode
	Answer    *model.Answer
	Error     string
	ShowForm  bool
	ShowDebug bool
}

// AnswerBodyHTML turns the linked answer into paragraphs. AnswerHTML comes from
// citation.Resolve, which escapes the model text and emits only anchors.
func AnswerBodyHTML(a *model.Answer) template.HTML {
	var buf strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(a.AnswerHTML, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		buf.WriteString("<p>")
		buf.WriteString(strings.ReplaceAll(para, "\n", "<br>\n"))
		buf.WriteString("</p>\n")
	}
	return template.HTML(buf.String())
}

// Fragment is the answer body followed by the canonical source list
func Fragment(a *model.Answer) string {
	return string(AnswerBodyHTML(a)) + a.SourcesHTML
}

// WritePage renders the full HTML page
func (r *Renderer) WritePage(w io.Writer, data PageData) error {
	return r.page.Execute(w, data)
}

// RenderHTML writes a standalone page for one answer
func (r *Renderer) RenderHTML(a *model.Answer, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WritePage(w, PageData{Question: a.Question, Mode: a.Mode, Answer: a, ShowDebug: a.Debug != nil})
	})
}

// RenderJSON writes the full answer, sources and citations as JSON
func (r *Renderer) RenderJSON(a *model.Answer, path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// Markdown converts the rendered answer and sources to Markdown
func (r *Renderer) Markdown(a *model.Answer) (string, error) {
	body, err := htmltomarkdown.ConvertString(Fragment(a))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return "# " + a.Question + "\n\n" + strings.TrimSpace(body) + "\n", nil
}

// RenderMarkdown writes the Markdown form of an answer
func (r *Renderer) RenderMarkdown(a *model.Answer, path string) error {
	md, err := r.Markdown(a)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, md)
		return err
	})
}

// RenderSummary prints the answer and sources for a terminal
func (r *Renderer) RenderSummary(w io.Writer, a *model.Answer) {
	md, err := r.Markdown(a)
	if err != nil {
		md = a.RawAnswer + "\n"
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s\n", a.Question)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprint(w, md)
	fmt.Fprintln(w)
	if a.LLM != nil && a.LLM.Provider != "" {
		fmt.Fprintf(w, "  Answered by %s/%s from %d web and %d video sources\n", a.LLM.Provider, a.LLM.Model, len(a.Web), len(a.Videos))
	}
	if a.Debug != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Debug: %d web results, %d video results\n", len(a.Debug.WebResults), len(a.Debug.VideoResults))
		for _, res := range a.Debug.WebResults {
			fmt.Fprintf(w, "    web   %s (%s)\n", res.Title, res.URL)
		}
		for _, res := range a.Debug.VideoResults {
			fmt.Fprintf(w, "    video %s (%s)\n", res.Title, res.URL)
		}
	}
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return write(f)
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"answerBody": AnswerBodyHTML,
	"trusted":    func(s string) template.HTML { return template.HTML(s) },
	"selected": func(current, option model.Mode) template.HTMLAttr {
		if current == option || (current == "" && option == model.ModeBoth) {
			return "checked"
		}
		return ""
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Question}}{{.Question}} · {{end}}Ask the Web &amp; YouTube</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
.answer a { text-decoration: none; }
.error { color: #b00020; }
details pre { white-space: pre-wrap; background: #f6f6f6; padding: .5rem; }
</style>
</head>
<body>
<h1>Ask the Web &amp; YouTube</h1>
{{if .ShowForm}}
<form method="post" action="/ask">
<input type="text" name="q" value="{{.Question}}" size="60" placeholder="Ask a question" required>
<fieldset>
<legend>Include sources from:</legend>
<label><input type="radio" name="mode" value="both" {{selected .Mode "both"}}> Both</label>
<label><input type="radio" name="mode" value="web" {{selected .Mode "web"}}> Web Only</label>
<label><input type="radio" name="mode" value="youtube" {{selected .Mode "youtube"}}> YouTube Only</label>
</fieldset>
<label><input type="checkbox" name="debug" value="1" {{if .ShowDebug}}checked{{end}}> Show Debug Info</label>
<button type="submit">Ask</button>
</form>
{{end}}
{{with .Error}}<p class="error">{{.}}</p>{{end}}
{{with .Answer}}
<h2>{{.Question}}</h2>
<div class="answer">
{{answerBody .}}
</div>
{{trusted .SourcesHTML}}
{{if and $.ShowDebug .Debug}}
<details>
<summary>Debug Info</summary>
<p>Web sources: {{.Debug.WebCount}} · Video sources: {{.Debug.VideoCount}}</p>
<h4>Web search results</h4>
<ul>{{range .Debug.WebResults}}<li><a href="{{.URL}}">{{.Title}}</a>: {{.Snippet}}</li>{{end}}</ul>
<h4>Video search results</h4>
<ul>{{range .Debug.VideoResults}}<li><a href="{{.URL}}">{{.Title}}</a></li>{{end}}</ul>
<h4>Prompt</h4>
<pre>{{.Debug.Prompt}}</pre>
</details>
{{end}}
{{end}}
</body>
</html>
`))
