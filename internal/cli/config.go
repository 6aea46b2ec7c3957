package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/askweb/internal/llm"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var checkProvider bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage askweb configuration",
	Long: `Manage askweb configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (ASKWEB_*, e.g. ASKWEB_LLM_PROVIDER)
3. Config file (~/.askweb/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration (API keys redacted) and whether each credential is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Current Configuration")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Credentials")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		writeCredentialStatus(os.Stdout, cfg)
		fmt.Println()

		if checkProvider {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			fmt.Println(providerStatus(ctx, cfg))
			fmt.Println()
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.askweb/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return err
		}
		configPath := filepath.Join(dir, "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  askweb config show\n")
		fmt.Printf("\nTo customize, edit the file with your preferred editor:\n")
		fmt.Printf("  $EDITOR %s\n", configPath)
		fmt.Printf("\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().BoolVar(&checkProvider, "check", false, "also check that the LLM provider is reachable")
}

// writeDefaultConfig writes the documented default config, refusing to overwrite
func writeDefaultConfig(configPath string) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'askweb config show' to view it, or delete it first to recreate", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	// Helper for writing with error checking
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# askweb Configuration File\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (ASKWEB_*)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")
	printf("%s", yamlData)
	printf("\n# API Keys (recommended to use environment variables instead):\n")
	printf("#   export GEMINI_API_KEY=...\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	printf("#   export YOUTUBE_API_KEY=...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	return err
}

// redacted returns a copy of cfg safe to print
func redacted(cfg *model.Config) *model.Config {
	out := *cfg
	out.LLM.APIKey = mask(cfg.LLM.APIKey)
	out.YouTube.APIKey = mask(cfg.YouTube.APIKey)
	return &out
}

func mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "****"
	}
}

func writeCredentialStatus(w io.Writer, cfg *model.Config) {
	status := func(set bool) string {
		if set {
			return "✓ set"
		}
		return "✗ missing"
	}

	llmKey := cfg.LLM.APIKey != ""
	if cfg.LLM.Provider == "ollama" || cfg.LLM.Provider == "" {
		_, _ = fmt.Fprintf(w, "  LLM (%s):  no API key required\n", orNone(cfg.LLM.Provider))
	} else {
		_, _ = fmt.Fprintf(w, "  LLM (%s):  %s\n", cfg.LLM.Provider, status(llmKey))
	}
	_, _ = fmt.Fprintf(w, "  YouTube Data API:  %s\n", status(cfg.YouTube.APIKey != ""))
	if cfg.YouTube.APIKey == "" {
		_, _ = fmt.Fprintf(w, "    (video sources are skipped without YOUTUBE_API_KEY)\n")
	}
}

// providerStatus builds the configured provider and checks that it answers
func providerStatus(ctx context.Context, cfg *model.Config) string {
	answerer, err := llm.NewAnswerer(llm.ConfigFromModel(cfg), nil)
	if err != nil {
		return fmt.Sprintf("✗ LLM provider: %v", err)
	}
	provider := answerer.Provider()
	if provider == nil {
		return "✗ LLM provider: none configured"
	}
	if !provider.IsAvailable(ctx) {
		return fmt.Sprintf("✗ LLM provider %s is not reachable", provider.Name())
	}
	return fmt.Sprintf("✓ LLM provider %s is reachable", provider.Name())
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
