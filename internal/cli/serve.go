package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/askweb/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ask form and JSON API over HTTP",
	Long: `Serve starts a small web UI for asking questions.

Endpoints:
  GET  /            ask form
  POST /ask         answer page with linked citations and sources
  GET  /api/ask?q=  answer as JSON (optional mode, debug)
  GET  /healthz     liveness
  GET  /metrics     Prometheus metrics

Example:
  askweb serve
  askweb serve --addr 127.0.0.1:9000 --llm-provider openai`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().DurationVar(&serveTimeout, "ask-timeout", 3*time.Minute, "timeout for each question")
	addPipelineFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, p, logger, err := buildPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	fmt.Fprintf(os.Stderr, "✓ askweb listening on %s\n", addr)
	if err := server.New(p, serveTimeout, logger).Start(cmd.Context(), addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
