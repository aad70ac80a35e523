package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/compintel/internal/llm"
	"github.com/ppiankov/compintel/internal/model"
)

var doctorTimeout time.Duration

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check LLM and evidence source configuration",
	Long: `Doctor reports which evidence sources are configured and checks that the
configured LLM provider answers. It makes one availability request to the
LLM provider and none to the evidence sources.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
		defer cancel()

		w := cmd.OutOrStdout()
		printSourceChecks(w, cfg.Sources)

		if !checkLLM(ctx, w, cfg) {
			return eris.Errorf("llm provider %s is not available", providerLabel(cfg.LLM))
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 15*time.Second, "timeout for the LLM availability check")
	rootCmd.AddCommand(doctorCmd)
}

type sourceCheck struct {
	Kind   model.ProviderKind
	Ready  bool
	Detail string
}

// sourceChecks mirrors the conditions under which each adapter reports itself unconfigured
func sourceChecks(s model.SourcesConfig) []sourceCheck {
	endpoint := func(kind model.ProviderKind, e model.EndpointConfig) sourceCheck {
		switch {
		case e.Disabled:
			return sourceCheck{kind, false, "disabled"}
		case e.BaseURL == "":
			return sourceCheck{kind, false, "no base_url"}
		}
		return sourceCheck{kind, true, e.BaseURL}
	}

	web := sourceCheck{model.ProviderWebSearch, true, s.WebSearch.BaseURL}
	if s.WebSearch.APIKey == "" {
		web = sourceCheck{model.ProviderWebSearch, false, "no api key (set JINA_API_KEY)"}
	}

	market := sourceCheck{model.ProviderTokenMarketData, true, s.CoinGecko.BaseURL}
	switch {
	case s.CoinGecko.BaseURL == "":
		market = sourceCheck{model.ProviderTokenMarketData, false, "no base_url"}
	case s.CoinGecko.APIKey == "":
		market.Detail += " (public tier, no api key)"
	}

	security := endpoint(model.ProviderTokenSecurity, s.GoPlus)
	if security.Ready && s.DexScreener.BaseURL == "" {
		security = sourceCheck{model.ProviderTokenSecurity, false, "needs dexscreener base_url for token lookup"}
	}

	return []sourceCheck{
		web,
		endpoint(model.ProviderProtocolTVL, s.DeFiLlama),
		endpoint(model.ProviderOnChainLiquidity, s.DexScreener),
		market,
		security,
	}
}

func printSourceChecks(w io.Writer, s model.SourcesConfig) {
	fmt.Fprintln(w, "Evidence sources:")
	for _, c := range sourceChecks(s) {
		mark := "✓"
		if !c.Ready {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %-10s %s\n", mark, c.Kind, c.Detail)
	}
	fmt.Fprintln(w)
}

// checkLLM builds the configured provider and asks whether it answers.
// An unconfigured provider is reported, not treated as an error.
func checkLLM(ctx context.Context, w io.Writer, c *model.Config) bool {
	fmt.Fprintln(w, "LLM:")

	provider, err := llm.NewProvider(llm.ConfigFromModel(c.LLM, c.HTTP))
	if err != nil {
		fmt.Fprintf(w, "  ✗ %s: %v\n", providerLabel(c.LLM), err)
		return false
	}
	if provider == nil {
		fmt.Fprintln(w, "  - not configured (evaluations will return llm_not_configured)")
		return true
	}

	if !provider.IsAvailable(ctx) {
		fmt.Fprintf(w, "  ✗ %s did not answer\n", providerLabel(c.LLM))
		return false
	}
	fmt.Fprintf(w, "  ✓ %s\n", providerLabel(c.LLM))
	return true
}
