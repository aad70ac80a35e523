package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/pipeline"
)

var (
	ideaDescription   string
	ideaScope         string
	ideaSuccessMetric string
	ideaTargetMetric  string
	ideaCategory      string
	outJSON           string
	outMD             string
	evalTimeout       time.Duration
	noFooter          bool
	llmProvider       string
	llmModel          string
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one product idea against its competitive landscape",
	Long: `Evaluate gathers live evidence for the idea's category, asks the
configured language model for a competitive memo, and grounds every claim
in the evidence collected for this run.

The outcome is written as JSON (stdout unless --json is given) and an
optional Markdown report. A "not available" outcome is a normal result.

Example:
  compintel evaluate -c agent-software \
    -d "An agent that refactors monorepos" \
    --scope "Go and TypeScript repositories" \
    --success-metric "1000 weekly active teams"
  compintel evaluate -c protocol-liquidity -d "..." --scope "..." \
    --success-metric "$50M TVL" --json out.json --md out.md`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	// Idea flags
	evaluateCmd.Flags().StringVarP(&ideaDescription, "description", "d", "", "idea description (required)")
	evaluateCmd.Flags().StringVar(&ideaScope, "scope", "", "idea scope")
	evaluateCmd.Flags().StringVar(&ideaSuccessMetric, "success-metric", "", "how success is measured")
	evaluateCmd.Flags().StringVar(&ideaTargetMetric, "target-metric", "", "target value for the success metric (optional)")
	evaluateCmd.Flags().StringVarP(&ideaCategory, "category", "c", "", "idea category (see 'compintel categories')")
	_ = evaluateCmd.MarkFlagRequired("description")
	_ = evaluateCmd.MarkFlagRequired("category")

	// Output flags
	evaluateCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	evaluateCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	evaluateCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", time.Minute, "overall evaluation timeout")

	// LLM flags
	evaluateCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "override LLM provider (openai, anthropic, gemini, ollama)")
	evaluateCmd.Flags().StringVar(&llmModel, "llm-model", "", "override LLM model name")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	applyLLMOverrides(cfg, llmProvider, llmModel)
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	req := model.EvaluationRequest{
		Description:   ideaDescription,
		Scope:         ideaScope,
		SuccessMetric: ideaSuccessMetric,
		TargetMetric:  ideaTargetMetric,
		Category:      ideaCategory,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), evalTimeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Category: %s\n", req.Category)
		fmt.Fprintf(os.Stderr, "LLM:      %s\n", providerLabel(cfg.LLM))
		fmt.Fprintf(os.Stderr, "Timeout:  %v\n\n", evalTimeout)
	}

	p, err := pipeline.NewPipeline(cfg, logger, nil)
	if err != nil {
		return eris.Wrap(err, "create pipeline")
	}

	outcome := p.Evaluate(ctx, req)

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	renderer.RenderSummary(os.Stderr, outcome)

	if outJSON == "" {
		if err := writeOutcomeJSON(cmd.OutOrStdout(), outcome); err != nil {
			return eris.Wrap(err, "write JSON")
		}
	} else {
		if err := renderer.RenderJSON(outcome, outJSON); err != nil {
			return eris.Wrap(err, "render JSON")
		}
		fmt.Fprintf(os.Stderr, "✓ JSON written to %s\n", outJSON)
	}

	if outMD != "" {
		if err := renderer.RenderMarkdown(outcome, outMD); err != nil {
			return eris.Wrap(err, "render Markdown")
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown written to %s\n", outMD)
	}

	return nil
}

// applyLLMOverrides lets flags replace the configured provider and model
func applyLLMOverrides(c *model.Config, provider, modelName string) {
	if provider != "" && provider != c.LLM.Provider {
		c.LLM.Provider = provider
		// The configured key belongs to the old provider
		c.LLM.APIKey = ""
		c.LLM.BaseURL = ""
		if envKey := providerKeyEnv(provider); envKey != "" {
			c.LLM.APIKey = os.Getenv(envKey)
		}
		if provider == "ollama" {
			c.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
	if modelName != "" {
		c.LLM.Model = modelName
	}
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	case "gemini", "google":
		return "GEMINI_API_KEY"
	}
	return ""
}

func providerLabel(c model.LLMConfig) string {
	if c.Provider == "" {
		return "not configured"
	}
	if c.Model == "" {
		return c.Provider + " (default model)"
	}
	return c.Provider + "/" + c.Model
}

func writeOutcomeJSON(w io.Writer, outcome *model.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}
