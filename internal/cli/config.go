package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/compintel/internal/config"
	"github.com/ppiankov/compintel/internal/model"
)

const configHierarchy = `Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (COMPINTEL_*, e.g. COMPINTEL_LLM_PROVIDER)
  3. Vendor key variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY,
     JINA_API_KEY, COINGECKO_API_KEY, OLLAMA_BASE_URL)
  4. Config file (~/.compintel/config.yaml)
  5. Defaults
`

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage compintel configuration",
	Long:  "Manage compintel configuration files and settings.\n\n" + configHierarchy,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long:  `Display the configuration after merging defaults, the config file and environment variables. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFileUsed != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", cfgFileUsed)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults and environment)\n\n")
		}
		return showConfig(cmd.OutOrStdout(), cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.compintel/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.DefaultDir()
		if err != nil {
			return err
		}
		configPath := filepath.Join(dir, "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the resolved configuration:\n")
		fmt.Printf("  compintel config show\n")
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
}

func showConfig(w io.Writer, c *model.Config) error {
	masked := *c
	masked.LLM.APIKey = maskSecret(c.LLM.APIKey)
	masked.Sources.WebSearch.APIKey = maskSecret(c.Sources.WebSearch.APIKey)
	masked.Sources.CoinGecko.APIKey = maskSecret(c.Sources.CoinGecko.APIKey)

	yamlData, err := yaml.Marshal(&masked)
	if err != nil {
		return eris.Wrap(err, "error marshaling config")
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "  Current Configuration")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintln(w, string(yamlData))
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprint(w, configHierarchy)
	fmt.Fprintln(w)
	return nil
}

// writeDefaultConfig creates path with the default configuration. It
// refuses to overwrite an existing file.
func writeDefaultConfig(configPath string) (err error) {
	if _, statErr := os.Stat(configPath); statErr == nil {
		return eris.Errorf("config file already exists: %s\nUse 'compintel config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return eris.Wrap(err, "error creating config directory")
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return eris.Wrap(err, "error marshaling config")
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return eris.Wrap(err, "error creating config file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = eris.Wrap(closeErr, "close config file")
		}
	}()

	// Helper for writing with error checking
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# compintel configuration file\n")
	printf("# See https://github.com/ppiankov/compintel for full documentation\n")
	printf("#\n")
	printf("# llm.provider: openai | anthropic | gemini | ollama (empty disables synthesis)\n")
	printf("# engine.project_matcher: substring | word\n\n")
	printf("%s", yamlData)
	printf("\n# API keys (recommended to use environment variables instead):\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	printf("#   export GEMINI_API_KEY=...\n")
	printf("#   export JINA_API_KEY=jina_...        # web search\n")
	printf("#   export COINGECKO_API_KEY=...        # optional, higher rate limits\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	return err
}

// maskSecret keeps the last four characters of long secrets
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
