package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/pipeline"
	"github.com/ppiankov/compintel/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Evaluate many ideas from a YAML file in parallel",
	Long: `Batch evaluates every idea listed in a YAML file:
- Ideas run concurrently with a configurable worker count
- Each evaluation fans out to its category's providers as usual
- One JSON and one Markdown report is written per idea

File format:
  category: agent-software   # default for ideas that omit one
  ideas:
    - name: refactor-agent
      description: An agent that refactors monorepos
      scope: Go and TypeScript repositories
      success_metric: 1000 weekly active teams

Example:
  compintel batch ideas.yaml
  compintel batch ideas.yaml --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent evaluations (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./compintel-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "override LLM provider (openai, anthropic, gemini, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "override LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	applyLLMOverrides(cfg, llmProvider, llmModel)
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if concurrency > 0 {
		cfg.Concurrency.BatchWorkers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	_, err := processBatchFile(ctx, cfg, args[0], outputDir, os.Stderr)
	return err
}

// batchSummary counts batch results by status
type batchSummary struct {
	Total        int
	OK           int
	NotAvailable int
	WriteErrors  int
}

// processBatchFile evaluates every idea in file and writes per-idea reports to dir
func processBatchFile(ctx context.Context, c *model.Config, file, dir string, w io.Writer) (*batchSummary, error) {
	workers := c.Concurrency.BatchWorkers

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  compintel Batch Evaluation\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Input file:   %s\n", file)
	fmt.Fprintf(w, "  Workers:      %d\n", workers)
	fmt.Fprintf(w, "  Output dir:   %s\n", dir)
	fmt.Fprintf(w, "  LLM:          %s\n", providerLabel(c.LLM))
	fmt.Fprintf(w, "\n")

	entries, err := worker.ReadBatchFile(file)
	if err != nil {
		return nil, eris.Wrap(err, "read batch file")
	}
	fmt.Fprintf(w, "✓ Loaded %d ideas\n\n", len(entries))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create output directory")
	}

	log := logger
	if log == nil {
		log = zap.NewNop()
	}
	p, err := pipeline.NewPipeline(c, log, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create pipeline")
	}

	processor := worker.NewBatchProcessor(p, workers)
	results, err := processor.Process(ctx, entries)
	if err != nil {
		return nil, eris.Wrap(err, "process batch")
	}

	renderer := pipeline.NewRenderer(c.Output.IncludeFooter)
	summary := &batchSummary{Total: len(results)}
	used := make(map[string]int)

	for _, result := range results {
		slug := uniqueSlug(sanitizeFilename(result.Name), used)
		jsonPath := filepath.Join(dir, slug+".json")
		mdPath := filepath.Join(dir, slug+".md")

		if err := renderer.RenderJSON(result.Outcome, jsonPath); err != nil {
			summary.WriteErrors++
			fmt.Fprintf(w, "✗ %s: failed to write JSON: %v\n", result.Name, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Outcome, mdPath); err != nil {
			summary.WriteErrors++
			fmt.Fprintf(w, "✗ %s: failed to write Markdown: %v\n", result.Name, err)
			continue
		}

		if result.Outcome.IsOK() {
			summary.OK++
			fmt.Fprintf(w, "✓ %s (%s, %d claims)\n", result.Name, result.Outcome.Memo.CrowdednessLevel, len(result.Outcome.Memo.Claims))
		} else {
			summary.NotAvailable++
			fmt.Fprintf(w, "- %s: not available (%s)\n", result.Name, result.Outcome.Reason)
		}
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Batch Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Total:          %d ideas\n", summary.Total)
	fmt.Fprintf(w, "  OK:             %d\n", summary.OK)
	fmt.Fprintf(w, "  Not available:  %d\n", summary.NotAvailable)
	if summary.WriteErrors > 0 {
		fmt.Fprintf(w, "  Write errors:   %d\n", summary.WriteErrors)
	}
	fmt.Fprintf(w, "  Output:         %s\n", dir)
	fmt.Fprintf(w, "\n")

	return summary, nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "idea"
	}
	return s
}

// uniqueSlug appends a counter when two ideas sanitize to the same name
func uniqueSlug(slug string, used map[string]int) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
