package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/askweb/internal/model"
	"github.com/ppiankov/askweb/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outHTML    string
	outJSON    string
	outMD      string
	askDebug   bool
	askTimeout time.Duration
)

// Overrides shared by ask, batch and serve
var (
	searchMode  string
	llmProvider string
	llmModel    string
	userAgent   string
	noCache     bool
	noRobots    bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question with linked citations",
	Long: `Ask searches the web and YouTube for the question, collects article text
and video transcripts, asks the configured language model for an answer with
inline citations, and links every citation to its source.

Example:
  askweb ask "how do solar panels work"
  askweb ask "what is a monad" --mode web --md answer.md
  askweb ask "how to sharpen a chisel" --mode youtube --html answer.html --debug`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&outHTML, "html", "", "output HTML path (optional)")
	askCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	askCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	askCmd.Flags().BoolVar(&askDebug, "debug", false, "include search results and the prompt in the output")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 3*time.Minute, "overall timeout for the question")
	addPipelineFlags(askCmd)
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&searchMode, "mode", "", "sources to use: both, web, youtube (default from config)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (gemini, openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&noRobots, "no-robots", false, "do not consult robots.txt before fetching articles")
}

// applyPipelineFlags layers command-line overrides onto the loaded config
func applyPipelineFlags(cfg *model.Config) error {
	if searchMode != "" {
		mode, err := model.ParseMode(searchMode)
		if err != nil {
			return err
		}
		cfg.Search.Mode = string(mode)
	}
	if llmProvider != "" && !strings.EqualFold(llmProvider, cfg.LLM.Provider) {
		cfg.LLM.Provider = llmProvider
		// Keys and models are per provider
		cfg.LLM.APIKey = ""
		cfg.LLM.Model = ""
		applyEnvKeys(cfg, os.Getenv)
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots {
		cfg.HTTP.RespectRobots = false
	}
	return nil
}

// buildPipeline loads config, applies flags and wires the pipeline
func buildPipeline() (*model.Config, *pipeline.Pipeline, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := applyPipelineFlags(cfg); err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create pipeline: %w", err)
	}
	return cfg, p, logger, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("empty question")
	}

	cfg, p, logger, err := buildPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mode, err := model.ParseMode(cfg.Search.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Question: %s\n", question)
		fmt.Fprintf(os.Stderr, "Mode: %s\n", mode)
		fmt.Fprintf(os.Stderr, "LLM: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "⚙️  Searching and gathering sources...\n")
	}

	answer, err := p.AskWithOptions(ctx, question, pipeline.Options{
		Mode:  mode,
		Debug: askDebug || cfg.Output.IncludeDebug,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Collected %d web sources\n", len(answer.Web))
		fmt.Fprintf(os.Stderr, "✓ Collected %d videos\n", len(answer.Videos))
		fmt.Fprintf(os.Stderr, "✓ Linked %d citations\n", len(answer.Citations))
		if answer.LLM != nil && answer.LLM.Error == "" {
			fmt.Fprintf(os.Stderr, "✓ Generated answer using %s/%s\n", answer.LLM.Provider, answer.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	renderer := pipeline.NewRenderer()
	renderer.RenderSummary(os.Stdout, answer)

	return writeOutputs(renderer, answer, outHTML, outJSON, outMD)
}

func writeOutputs(r *pipeline.Renderer, answer *model.Answer, htmlPath, jsonPath, mdPath string) error {
	outputs := []struct {
		path   string
		render func(*model.Answer, string) error
	}{
		{htmlPath, r.RenderHTML},
		{jsonPath, r.RenderJSON},
		{mdPath, r.RenderMarkdown},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := out.render(answer, out.path); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", out.path)
		}
	}
	return nil
}
