package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/askweb/internal/logging"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "askweb",
	Short: "askweb - answer questions from the web and YouTube with linked citations",
	Long: `askweb answers a natural-language question using evidence gathered from
web search results and YouTube transcripts.

The answer cites its sources inline as [n] or [n][MM:SS]. Every marker is
linked to the page or video it cites, and video citations jump to the
cited moment.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Cancelling ctx stops in-flight questions.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("askweb %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.askweb/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	v := viper.GetViper()
	if err := setupViper(v, cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing configuration: %v\n", err)
		return
	}

	// A missing default config file is fine; an explicit one must load
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
		return
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}
}

// setupViper registers defaults, the config file location and ASKWEB_* env binding
func setupViper(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// ASKWEB_LLM_PROVIDER -> llm.provider
	v.SetEnvPrefix("ASKWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := flatten(model.DefaultConfig())
	if err != nil {
		return err
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Optional keys have no default, so AutomaticEnv alone would not see them on Unmarshal
	for _, key := range optionalKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

var optionalKeys = []string{
	"http.http_proxy", "http.https_proxy", "http.no_proxy",
	"search.endpoint",
	"youtube.api_key", "youtube.data_api_endpoint", "youtube.watch_endpoint",
	"llm.api_key", "llm.base_url",
	"cache.redis_addr",
}

// loadConfig builds the effective configuration from the global viper
func loadConfig() (*model.Config, error) {
	return loadConfigFrom(viper.GetViper())
}

func loadConfigFrom(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnvKeys(cfg, os.Getenv)
	return cfg, nil
}

// applyEnvKeys fills credentials from the conventional provider variables
// when the config file and ASKWEB_* left them empty.
func applyEnvKeys(cfg *model.Config, getenv func(string) string) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "gemini", "google":
			cfg.LLM.APIKey = firstNonEmpty(getenv("GEMINI_API_KEY"), getenv("GOOGLE_API_KEY"))
		case "openai":
			cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
	}
	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = getenv("YOUTUBE_API_KEY")
	}
}

// newLogger builds the process logger. Without --verbose only warnings surface,
// so progress lines on stderr stay readable.
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if logLevel == "" && !verbose && level == model.DefaultConfig().Logging.Level {
		level = "warn"
	}
	return logging.New(level, cfg.Logging.Development)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".askweb"), nil
}

// flatten turns a config struct into dotted viper keys via its YAML form
func flatten(cfg *model.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}

	out := make(map[string]any)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			out[key] = val
		}
	}
	walk("", tree)
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
