package cli

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/config"
	"github.com/ppiankov/compintel/internal/model"
)

// Version is overridden at build time with -ldflags "-X .../cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// Resolved once per invocation by the root pre-run hook
	cfg         *model.Config
	cfgFileUsed string
	logger      *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "compintel",
	Short: "compintel - evidence-grounded competitive intelligence for product ideas",
	Long: `compintel evaluates a product idea against its competitive landscape.

For a supported category it gathers live facts from public data providers
(web search, protocol TVL, DEX liquidity, token market data, token security),
asks a language model for a structured competitive memo, and then checks
every claim in that memo against the evidence actually collected.

Claims that cite no collected evidence are marked uncorroborated. When a
category is unsupported or the model output cannot be trusted, the result
is "not available" with a reason, never a guess.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, file, err := config.Load(cfgFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if verbose {
			c.Output.Verbose = true
			c.Log.Level = "debug"
		}

		l, err := config.InitLogger(c.Log)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}

		cfg, cfgFileUsed, logger = c, file, l
		if verbose && file != "" {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", file)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of compintel.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "compintel %s\n", Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.compintel/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")

	rootCmd.AddCommand(versionCmd)
}
