package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/askweb/internal/llm"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/ppiankov/askweb/internal/transcript"
	"go.uber.org/zap/zaptest"
)

type fakeWeb struct {
	results []model.WebResult
	err     error
}

func (f *fakeWeb) Search(ctx context.Context, query string, max int) ([]model.WebResult, error) {
	return f.results, f.err
}

type fakeVideos struct {
	results []model.VideoResult
	err     error
}

func (f *fakeVideos) Search(ctx context.Context, query string, max int) ([]model.VideoResult, error) {
	return f.results, f.err
}

// fakeArticles returns "body of <url>" after a delay that finishes later URLs first
type fakeArticles struct {
	fail map[string]bool
}

func (f *fakeArticles) Extract(ctx context.Context, rawURL string) model.Result[string] {
	if strings.HasSuffix(rawURL, "/a") {
		time.Sleep(20 * time.Millisecond)
	}
	if f.fail[rawURL] {
		return model.Failure[string]("Error extracting content from " + rawURL + ": boom")
	}
	return model.Success("body of " + rawURL)
}

type fakeTranscripts struct{}

func (fakeTranscripts) Transcript(ctx context.Context, videoID string) model.Result[[]model.VideoSegment] {
	if videoID == "broken" {
		return model.Failure[[]model.VideoSegment]("Error getting transcript: disabled")
	}
	return model.Success([]model.VideoSegment{
		transcript.NewSegment("intro for "+videoID, 0),
		transcript.NewSegment("the key point", 105),
	})
}

type fakeProvider struct {
	mu     sync.Mutex
	text   string
	err    error
	prompt string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	p.prompt = req.Prompt
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerateResponse{Text: p.text, Model: "fake-1", TokensUsed: 42}, nil
}

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func testDeps(provider *fakeProvider) Deps {
	return Deps{
		Web: &fakeWeb{results: []model.WebResult{
			{Title: "Page A", URL: "https://example.com/a", Snippet: "a"},
			{Title: "Page B", URL: "https://example.com/b", Snippet: "b"},
		}},
		Videos: &fakeVideos{results: []model.VideoResult{
			{ID: "vid1", Title: "Video One", URL: "https://www.youtube.com/watch?v=vid1"},
		}},
		Transcripts: fakeTranscripts{},
		Articles:    &fakeArticles{},
		Answerer:    llm.NewAnswererWithProvider(provider, llm.DefaultConfig(), nil),
	}
}

func TestPipeline_Ask_EndToEnd(t *testing.T) {
	provider := &fakeProvider{text: "Go is fast [1]. Covered in a talk [3][01:45]. Also [2].\n\nSOURCES:\n1. Page A"}
	p := New(model.DefaultConfig(), testDeps(provider), zaptest.NewLogger(t))

	answer, err := p.AskWithOptions(context.Background(), "  is go fast?  ", Options{Mode: model.ModeBoth, Debug: true})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if answer.ID == "" {
		t.Error("expected an answer id")
	}
	if answer.Question != "is go fast?" {
		t.Errorf("expected trimmed question, got %q", answer.Question)
	}

	// Search order survives concurrent extraction
	if len(answer.Web) != 2 || answer.Web[0].URL != "https://example.com/a" || answer.Web[1].URL != "https://example.com/b" {
		t.Fatalf("unexpected web sources: %+v", answer.Web)
	}
	if answer.Web[0].Text() != "body of https://example.com/a" {
		t.Errorf("unexpected content: %q", answer.Web[0].Text())
	}
	if len(answer.Videos) != 1 || !strings.Contains(answer.Videos[0].TranscriptText, "[01:45] the key point") {
		t.Fatalf("unexpected videos: %+v", answer.Videos)
	}

	// The video continues the numbering after the web sources
	if !strings.Contains(provider.prompt, "SOURCE 3 (YOUTUBE): https://www.youtube.com/watch?v=vid1") {
		t.Errorf("prompt missing video evidence: %s", provider.prompt)
	}
	if !strings.Contains(provider.prompt, "QUESTION: is go fast?") {
		t.Errorf("prompt missing question")
	}

	if !strings.Contains(answer.AnswerHTML, `<a href="https://www.youtube.com/watch?v=vid1&t=105s" target="_blank">[3][01:45]</a>`) {
		t.Errorf("expected timestamped link, got %q", answer.AnswerHTML)
	}
	if answer.SourcesSection != "SOURCES:\n1. Page A" {
		t.Errorf("unexpected sources section %q", answer.SourcesSection)
	}
	if rec := answer.Earliest[3]; rec.Seconds != 105 {
		t.Errorf("expected earliest 105s for index 3, got %+v", answer.Earliest)
	}
	if !strings.Contains(answer.SourcesHTML, "Video One (starts at 01:45)") {
		t.Errorf("sources list missing earliest offset: %s", answer.SourcesHTML)
	}
	if len(answer.Citations) != 3 {
		t.Errorf("expected 3 citations, got %d", len(answer.Citations))
	}

	if answer.LLM == nil || answer.LLM.Provider != "fake" || answer.LLM.TokensUsed != 42 {
		t.Errorf("unexpected llm info: %+v", answer.LLM)
	}
	if answer.Debug == nil || answer.Debug.WebCount != 2 || answer.Debug.VideoCount != 1 || answer.Debug.Prompt != provider.prompt {
		t.Errorf("unexpected debug info: %+v", answer.Debug)
	}
}

func TestPipeline_Modes(t *testing.T) {
	tests := []struct {
		mode       model.Mode
		wantWeb    int
		wantVideos int
	}{
		{model.ModeBoth, 2, 1},
		{model.ModeWeb, 2, 0},
		{model.ModeYouTube, 0, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			provider := &fakeProvider{text: "ok [1]"}
			p := New(model.DefaultConfig(), testDeps(provider), nil)

			answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: tt.mode})
			if err != nil {
				t.Fatal(err)
			}
			if len(answer.Web) != tt.wantWeb || len(answer.Videos) != tt.wantVideos {
				t.Errorf("got %d web / %d videos, want %d / %d", len(answer.Web), len(answer.Videos), tt.wantWeb, tt.wantVideos)
			}
			if answer.Debug != nil {
				t.Error("debug info must be opt-in")
			}
		})
	}
}

func TestPipeline_YouTubeOnlyNumbersFromOne(t *testing.T) {
	provider := &fakeProvider{text: "From the video [1][00:00]."}
	p := New(model.DefaultConfig(), testDeps(provider), nil)

	answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: model.ModeYouTube})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(provider.prompt, "SOURCE 1 (YOUTUBE)") {
		t.Errorf("expected video to be source 1: %s", provider.prompt)
	}
	if !strings.Contains(answer.AnswerHTML, "watch?v=vid1&t=0s") {
		t.Errorf("expected video link, got %q", answer.AnswerHTML)
	}
}

func TestPipeline_ModelMarkupIsEscapedInPage(t *testing.T) {
	provider := &fakeProvider{text: "Claim <img src=x onerror=alert(1)> [1]. <script>alert(2)</script>"}
	p := New(model.DefaultConfig(), testDeps(provider), nil)

	answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: model.ModeWeb})
	if err != nil {
		t.Fatal(err)
	}

	var page strings.Builder
	if err := NewRenderer().WritePage(&page, PageData{Question: "q", Answer: answer}); err != nil {
		t.Fatal(err)
	}
	out := page.String()
	for _, bad := range []string{"<img src=x", "<script>alert(2)"} {
		if strings.Contains(out, bad) {
			t.Errorf("model markup %q reached the page", bad)
		}
	}
	if !strings.Contains(out, `<a href="https://example.com/a" target="_blank">[1]</a>`) {
		t.Error("citation anchor should still be rendered")
	}
}

func TestPipeline_GenerationFailureBecomesAnswer(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota exceeded")}
	p := New(model.DefaultConfig(), testDeps(provider), nil)

	answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: model.ModeBoth})
	if err != nil {
		t.Fatalf("generation failure must not abort: %v", err)
	}
	if answer.RawAnswer != "Error generating answer: quota exceeded" {
		t.Errorf("unexpected raw answer %q", answer.RawAnswer)
	}
	if answer.AnswerHTML != answer.RawAnswer {
		t.Errorf("failure text should pass through resolve unchanged, got %q", answer.AnswerHTML)
	}
	if !strings.Contains(answer.SourcesHTML, "Page A") {
		t.Error("sources are still rendered after a generation failure")
	}
	if answer.LLM == nil || answer.LLM.Error == "" {
		t.Errorf("expected llm error info, got %+v", answer.LLM)
	}
}

func TestPipeline_MissingCollaborators(t *testing.T) {
	p := New(model.DefaultConfig(), Deps{}, zaptest.NewLogger(t))

	answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: model.ModeBoth})
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Web) != 0 || len(answer.Videos) != 0 {
		t.Errorf("expected no sources, got %+v / %+v", answer.Web, answer.Videos)
	}
	if !strings.HasPrefix(answer.RawAnswer, "Error generating answer: ") {
		t.Errorf("unexpected answer %q", answer.RawAnswer)
	}
	if answer.SourcesHTML != "<h3>Sources</h3><ol></ol>" {
		t.Errorf("unexpected sources html %q", answer.SourcesHTML)
	}
}

func TestPipeline_UpstreamFailuresPassThrough(t *testing.T) {
	provider := &fakeProvider{text: "answer"}
	deps := testDeps(provider)
	deps.Articles = &fakeArticles{fail: map[string]bool{"https://example.com/b": true}}
	deps.Videos = &fakeVideos{results: []model.VideoResult{{ID: "broken", Title: "Broken", URL: "https://www.youtube.com/watch?v=broken"}}}
	p := New(model.DefaultConfig(), deps, nil)

	answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: model.ModeBoth})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Web[1].Content.OK() {
		t.Error("expected failed extraction for page b")
	}
	if !strings.Contains(provider.prompt, "SOURCE 2 (WEB): https://example.com/b\nError extracting content from https://example.com/b: boom") {
		t.Errorf("extraction failure should be evidence text: %s", provider.prompt)
	}
	if answer.Videos[0].TranscriptText != "Error getting transcript: disabled" {
		t.Errorf("unexpected transcript text %q", answer.Videos[0].TranscriptText)
	}
}

func TestPipeline_EmptyHitIdentifiersKeepTheirResults(t *testing.T) {
	provider := &fakeProvider{text: "answer"}
	deps := testDeps(provider)
	deps.Web = &fakeWeb{results: []model.WebResult{{Title: "No URL"}}}
	deps.Videos = &fakeVideos{results: []model.VideoResult{{Title: "No ID"}}}
	p := New(model.DefaultConfig(), deps, nil)

	answer, err := p.AskWithOptions(context.Background(), "q", Options{Mode: model.ModeBoth})
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := answer.Web[0].Content.Get(); !ok || got != "body of " {
		t.Errorf("extraction result was replaced: %+v", answer.Web[0].Content)
	}
	if !answer.Videos[0].Transcript.OK() {
		t.Errorf("transcript result was replaced: %q", answer.Videos[0].TranscriptText)
	}
	for _, text := range []string{answer.Web[0].Text(), answer.Videos[0].TranscriptText} {
		if strings.Contains(text, "context canceled") || strings.Contains(text, "did not run") {
			t.Errorf("unexpected skipped-fetch failure: %q", text)
		}
	}
}

func TestPipeline_SearchErrorsYieldNoSources(t *testing.T) {
	provider := &fakeProvider{text: "answer"}
	deps := testDeps(provider)
	deps.Web = &fakeWeb{err: errors.New("blocked")}
	deps.Videos = &fakeVideos{err: errors.New("quota")}
	p := New(model.DefaultConfig(), deps, nil)

	answer, err := p.AskWithOptions(context.Background(), "q", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Mode != model.ModeBoth {
		t.Errorf("empty mode should default to both, got %s", answer.Mode)
	}
	if len(answer.Web) != 0 || len(answer.Videos) != 0 {
		t.Error("expected no sources after search errors")
	}
}

func TestPipeline_EmptyQuestion(t *testing.T) {
	p := New(nil, Deps{}, nil)
	if _, err := p.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestPipeline_AskUsesConfiguredMode(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.Mode = "web only"
	p := New(cfg, testDeps(&fakeProvider{text: "x"}), nil)

	answer, err := p.Ask(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Mode != model.ModeWeb || len(answer.Videos) != 0 {
		t.Errorf("expected web-only answer, got mode %s with %d videos", answer.Mode, len(answer.Videos))
	}

	cfg.Search.Mode = "sideways"
	if _, err := p.Ask(context.Background(), "q"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
