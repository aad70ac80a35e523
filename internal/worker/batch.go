package worker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/compintel/internal/model"
)

// Evaluator evaluates one idea
type Evaluator interface {
	Evaluate(ctx context.Context, req model.EvaluationRequest) *model.Outcome
}

// BatchResult pairs an idea with its outcome
type BatchResult struct {
	Name    string
	Request model.EvaluationRequest
	Outcome *model.Outcome
}

// BatchProcessor evaluates many ideas with bounded concurrency
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// Process evaluates every entry and returns results in input order.
// A failed evaluation is a not_available outcome, not an error; the
// returned error is only the context's.
func (b *BatchProcessor) Process(ctx context.Context, entries []BatchEntry) ([]*BatchResult, error) {
	results := make([]*BatchResult, len(entries))
	if len(entries) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = &BatchResult{
				Name:    entry.Name,
				Request: entry.Request,
				Outcome: b.evaluator.Evaluate(gctx, entry.Request),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "batch cancelled")
	}
	return results, nil
}

// BatchEntry is one idea in a batch file
type BatchEntry struct {
	Name    string                  `yaml:"name"`
	Request model.EvaluationRequest `yaml:",inline"`
}

// BatchFile is the on-disk batch format
type BatchFile struct {
	Category string       `yaml:"category"` // Default for entries that omit one
	Ideas    []BatchEntry `yaml:"ideas"`
}

// ReadBatchFile loads ideas from a YAML file. Entries without a description
// are skipped; duplicates (same description and category) are dropped.
func ReadBatchFile(filePath string) ([]BatchEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, eris.Wrap(err, "read batch file")
	}

	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "parse batch file")
	}

	var entries []BatchEntry
	seen := make(map[string]bool)

	for i, entry := range file.Ideas {
		if strings.TrimSpace(entry.Request.Description) == "" {
			continue
		}
		if entry.Request.Category == "" {
			entry.Request.Category = file.Category
		}
		if entry.Name == "" {
			entry.Name = defaultEntryName(i)
		}

		key := strings.ToLower(strings.TrimSpace(entry.Request.Description)) + "|" + strings.ToLower(entry.Request.Category)
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, entry)
	}

	return entries, nil
}

func defaultEntryName(i int) string {
	return fmt.Sprintf("idea-%03d", i+1)
}
