// Package pipeline answers a question end to end: search, fetch evidence,
// generate a cited answer, then link citations and render the source list.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/askweb/internal/cache"
	"github.com/ppiankov/askweb/internal/citation"
	"github.com/ppiankov/askweb/internal/evidence"
	"github.com/ppiankov/askweb/internal/extract"
	"github.com/ppiankov/askweb/internal/fetch"
	"github.com/ppiankov/askweb/internal/llm"
	"github.com/ppiankov/askweb/internal/metrics"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/ppiankov/askweb/internal/search"
	"github.com/ppiankov/askweb/internal/transcript"
	"github.com/ppiankov/askweb/internal/worker"
	"github.com/ppiankov/askweb/internal/youtube"
	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned for a blank question
var ErrEmptyQuestion = errors.New("question is empty")

// Deps are the collaborators a Pipeline calls. Any of them may be nil, in
// which case that step yields nothing.
type Deps struct {
	Web         search.WebSearcher
	Videos      youtube.VideoSearcher
	Transcripts youtube.TranscriptFetcher
	Articles    extract.ArticleExtractor
	Answerer    *llm.Answerer
}

// Options tune a single question
type Options struct {
	Mode  model.Mode
	Debug bool
}

// Pipeline orchestrates one question at a time and is safe for concurrent use
type Pipeline struct {
	deps   Deps
	config *model.Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a pipeline from explicit collaborators
func New(cfg *model.Config, deps Deps, logger *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		deps:   deps,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// NewPipeline wires the real collaborators from configuration. Collaborators
// that cannot be built (missing API key, unknown provider) are logged and left
// out; the returned error is only for a broken cache backend.
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewFromConfig(cfg, logger.Named("fetch"))

	deps := Deps{
		Web:         search.NewDuckDuckGo(fetcher, cfg.Search, logger.Named("search")),
		Transcripts: youtube.NewTranscriber(fetcher, cfg.YouTube, store, cfg.Cache.DiskTTL, logger.Named("transcript")),
		Articles:    extract.NewExtractor(fetcher, store, cfg.Cache.DiskTTL, logger.Named("extract")),
	}

	videos, err := youtube.NewSearcher(fetcher, cfg.YouTube, logger.Named("youtube"))
	if err != nil {
		logger.Warn("video search disabled", zap.Error(err))
	} else {
		deps.Videos = videos
	}

	answerer, err := llm.NewAnswerer(llm.ConfigFromModel(cfg), logger.Named("llm"))
	if err != nil {
		logger.Warn("answer generation unavailable", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	}
	deps.Answerer = answerer

	return New(cfg, deps, logger), nil
}

// Ask answers a question using the configured mode
func (p *Pipeline) Ask(ctx context.Context, question string) (*model.Answer, error) {
	mode, err := model.ParseMode(p.config.Search.Mode)
	if err != nil {
		return nil, err
	}
	return p.AskWithOptions(ctx, question, Options{Mode: mode, Debug: p.config.Output.IncludeDebug})
}

// AskWithOptions answers a question. Upstream failures never abort: a failed
// search contributes no sources, a failed page or transcript contributes its
// failure message as evidence, and a failed generation becomes the answer text.
func (p *Pipeline) AskWithOptions(ctx context.Context, question string, opts Options) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if opts.Mode == "" {
		opts.Mode = model.ModeBoth
	}

	start := p.now()
	answer := &model.Answer{
		ID:        uuid.NewString(),
		Question:  question,
		Mode:      opts.Mode,
		CreatedAt: start.UTC(),
	}
	log := p.logger.With(zap.String("question_id", answer.ID), zap.String("mode", string(opts.Mode)))
	log.Info("answering question", zap.String("question", question))

	var webResults []model.WebResult
	var videoResults []model.VideoResult

	if opts.Mode.IncludesWeb() {
		webResults = p.searchWeb(ctx, log, question)
		answer.Web = p.gatherWeb(ctx, webResults)
	}
	if opts.Mode.IncludesYouTube() {
		videoResults = p.searchVideos(ctx, log, question)
		answer.Videos = p.gatherVideos(ctx, videoResults)
	}
	log.Info("evidence gathered", zap.Int("web", len(answer.Web)), zap.Int("videos", len(answer.Videos)))

	prompt := llm.BuildPrompt(question, evidence.Assemble(answer.Web, answer.Videos))

	status := "ok"
	generated, info := p.generate(ctx, prompt)
	if !generated.OK() {
		status = "generation_failed"
	}
	answer.RawAnswer = resultText(generated)
	answer.LLM = info
	if info != nil && info.TokensUsed > 0 {
		metrics.LLMTokens.WithLabelValues(info.Provider).Add(float64(info.TokensUsed))
	}

	res := citation.Resolve(answer.RawAnswer, answer.Web, answer.Videos)
	answer.AnswerHTML = res.Answer
	answer.SourcesSection = res.SourcesSection
	answer.Earliest = res.Earliest
	answer.Citations = res.Citations
	answer.SourcesHTML = citation.RenderSources(answer.Web, answer.Videos, res.Earliest)
	for _, c := range res.Citations {
		metrics.CitationsTotal.WithLabelValues(string(c.Kind)).Inc()
	}

	if opts.Debug {
		answer.Debug = &model.DebugInfo{
			WebResults:   webResults,
			VideoResults: videoResults,
			WebCount:     len(answer.Web),
			VideoCount:   len(answer.Videos),
			Prompt:       prompt,
		}
	}

	elapsed := time.Since(start)
	metrics.RecordQuestion(string(opts.Mode), status, elapsed)
	log.Info("question answered",
		zap.String("status", status),
		zap.Int("citations", len(res.Citations)),
		zap.Duration("elapsed", elapsed))

	return answer, nil
}

func (p *Pipeline) searchWeb(ctx context.Context, log *zap.Logger, question string) []model.WebResult {
	if p.deps.Web == nil {
		log.Warn("web search not configured")
		return nil
	}
	results, err := p.deps.Web.Search(ctx, question, p.config.Search.MaxWebResults)
	if err != nil {
		log.Warn("web search failed", zap.Error(err))
		return nil
	}
	return results
}

func (p *Pipeline) searchVideos(ctx context.Context, log *zap.Logger, question string) []model.VideoResult {
	if p.deps.Videos == nil {
		log.Warn("video search not configured")
		return nil
	}
	results, err := p.deps.Videos.Search(ctx, question, p.config.YouTube.MaxResults)
	if err != nil {
		log.Warn("video search failed", zap.Error(err))
		return nil
	}
	return results
}

// gatherWeb extracts every hit concurrently, keeping search order
func (p *Pipeline) gatherWeb(ctx context.Context, results []model.WebResult) []model.WebSource {
	sources, ran := worker.MapRan(ctx, p.config.Concurrency.FetchWorkers, len(results), func(ctx context.Context, i int) model.WebSource {
		r := results[i]
		return model.WebSource{Title: r.Title, URL: r.URL, Content: p.extractArticle(ctx, r.URL)}
	})

	for i := range sources {
		// Slot never ran because ctx ended first
		if !ran[i] {
			sources[i] = model.WebSource{
				Title:   results[i].Title,
				URL:     results[i].URL,
				Content: model.Failuref[string]("Error extracting content from %s: %v", results[i].URL, ctxErr(ctx)),
			}
		}
		metrics.RecordSource(string(model.SourceKindWeb), sources[i].Content.OK())
	}
	return sources
}

func (p *Pipeline) extractArticle(ctx context.Context, rawURL string) model.Result[string] {
	if p.deps.Articles == nil {
		return model.Failuref[string]("Error extracting content from %s: no extractor configured", rawURL)
	}
	return p.deps.Articles.Extract(ctx, rawURL)
}

// gatherVideos downloads every transcript concurrently, keeping search order
func (p *Pipeline) gatherVideos(ctx context.Context, results []model.VideoResult) []model.VideoSource {
	sources, ran := worker.MapRan(ctx, p.config.Concurrency.FetchWorkers, len(results), func(ctx context.Context, i int) model.VideoSource {
		return p.videoSource(results[i], p.fetchTranscript(ctx, results[i].ID))
	})

	for i := range sources {
		if !ran[i] {
			sources[i] = p.videoSource(results[i],
				model.Failure[[]model.VideoSegment](youtube.TranscriptFailurePrefix+ctxErr(ctx).Error()))
		}
		metrics.RecordSource(string(model.SourceKindVideo), sources[i].Transcript.OK())
	}
	return sources
}

func (p *Pipeline) fetchTranscript(ctx context.Context, videoID string) model.Result[[]model.VideoSegment] {
	if p.deps.Transcripts == nil {
		return model.Failure[[]model.VideoSegment](youtube.TranscriptFailurePrefix + "no transcript source configured")
	}
	return p.deps.Transcripts.Transcript(ctx, videoID)
}

func (p *Pipeline) videoSource(r model.VideoResult, t model.Result[[]model.VideoSegment]) model.VideoSource {
	return model.VideoSource{
		ID:             r.ID,
		Title:          r.Title,
		URL:            r.URL,
		Transcript:     t,
		TranscriptText: transcript.Format(t),
	}
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (model.Result[string], *model.LLMInfo) {
	if p.deps.Answerer == nil {
		return model.Failure[string]("Error generating answer: " + llm.ErrNoProvider.Error()),
			&model.LLMInfo{Error: llm.ErrNoProvider.Error()}
	}
	return p.deps.Answerer.Answer(ctx, prompt)
}

// errNotRun explains a skipped fetch when the question context is still live
var errNotRun = errors.New("fetch did not run")

func resultText(r model.Result[string]) string {
	if text, ok := r.Get(); ok {
		return text
	}
	return r.Message()
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errNotRun
}
