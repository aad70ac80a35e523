package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// Renderer writes outcomes as JSON, Markdown and a console summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the outcome as indented JSON to path
func (r *Renderer) RenderJSON(outcome *model.Outcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal outcome")
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the outcome as a Markdown report to path
func (r *Renderer) RenderMarkdown(outcome *model.Outcome, path string) error {
	return writeFile(path, []byte(r.Markdown(outcome)))
}

// Markdown renders the outcome as a Markdown report
func (r *Renderer) Markdown(outcome *model.Outcome) string {
	var b strings.Builder

	if !outcome.IsOK() {
		b.WriteString("# Competitive memo: not available\n\n")
		fmt.Fprintf(&b, "Reason: `%s`\n", outcome.Reason)
		return b.String()
	}

	m := outcome.Memo
	prov := outcome.Provenance

	fmt.Fprintf(&b, "# Competitive memo: %s\n\n", m.CategoryLabel)
	fmt.Fprintf(&b, "- **Crowdedness:** %s\n", m.CrowdednessLevel)
	fmt.Fprintf(&b, "- **Difficulty:** %s\n", verdictText(m.Difficulty))
	fmt.Fprintf(&b, "- **Differentiation:** %s\n", verdictText(m.Differentiation))
	if m.NoiseVsSignal != "" {
		fmt.Fprintf(&b, "- **Noise vs signal:** %s\n", m.NoiseVsSignal)
	}
	b.WriteString("\n")

	if m.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(m.Summary)
		b.WriteString("\n\n")
	}

	if len(m.ReferenceProjects) > 0 {
		b.WriteString("## Reference projects\n\n")
		b.WriteString("| Project | Platform | Metrics | Note |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, project := range m.ReferenceProjects {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				cell(project.Name), cell(project.Platform), cell(metricsText(project.Metrics)), cell(project.Note))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Claims\n\n")
	for _, c := range m.Claims {
		badge := "⚠️ uncorroborated"
		if c.IsCorroborated() {
			badge = "✅ corroborated"
		}
		fmt.Fprintf(&b, "- %s (%s, %s)", c.Text, c.ClaimType, badge)
		if len(c.EvidenceIDs) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(c.EvidenceIDs, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.EvaluatorNotes != "" {
		b.WriteString("## Evaluator notes\n\n")
		b.WriteString(m.EvaluatorNotes)
		b.WriteString("\n\n")
	}

	b.WriteString("## Evidence\n\n")
	if outcome.EvidencePack.Len() == 0 {
		b.WriteString("No evidence was collected.\n")
	}
	for _, item := range outcome.EvidencePack.Evidence {
		fmt.Fprintf(&b, "- `%s` (%s, %s reliability) %s", item.ID, item.ProviderKind.DisplayName(), item.ReliabilityTier, item.Title)
		if item.URL != "" {
			fmt.Fprintf(&b, " <%s>", item.URL)
		}
		b.WriteString("\n")
	}
	if len(prov.UnavailableSources) > 0 {
		names := make([]string, len(prov.UnavailableSources))
		for i, kind := range prov.UnavailableSources {
			names[i] = kind.DisplayName()
		}
		fmt.Fprintf(&b, "\n**Unavailable sources:** %s\n", strings.Join(names, ", "))
	}

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "Request `%s` | category `%s` | generated %s | valid until %s\n",
			prov.RequestID, prov.Category,
			prov.GeneratedAt.Format("2006-01-02 15:04 MST"),
			prov.ValidUntil.Format("2006-01-02 15:04 MST"))
		b.WriteString("\nClaims are corroborated only when they cite evidence collected for this request.\n")
	}

	return b.String()
}

// RenderSummary prints a short console summary
func (r *Renderer) RenderSummary(w io.Writer, outcome *model.Outcome) {
	if !outcome.IsOK() {
		fmt.Fprintf(w, "✗ not available: %s\n", outcome.Reason)
		return
	}

	m := outcome.Memo
	corroborated := 0
	for _, c := range m.Claims {
		if c.IsCorroborated() {
			corroborated++
		}
	}

	fmt.Fprintf(w, "✓ %s (crowdedness: %s)\n", m.CategoryLabel, m.CrowdednessLevel)
	fmt.Fprintf(w, "  Evidence:  %d items", outcome.EvidencePack.Len())
	if n := len(outcome.Provenance.UnavailableSources); n > 0 {
		fmt.Fprintf(w, ", %d sources unavailable", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Claims:    %d (%d corroborated)\n", len(m.Claims), corroborated)
	fmt.Fprintf(w, "  Projects:  %d\n", len(m.ReferenceProjects))
	fmt.Fprintf(w, "  Valid until: %s\n", outcome.Provenance.ValidUntil.Format("2006-01-02 15:04 MST"))
}

func verdictText(v model.Verdict) string {
	if v.Verdict == "" {
		return "n/a"
	}
	if v.Explanation == "" {
		return v.Verdict
	}
	return fmt.Sprintf("%s (%s)", v.Verdict, v.Explanation)
}

func metricsText(m *model.ProjectMetrics) string {
	fields := m.RealFields()
	if len(fields) == 0 {
		return "-"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Label + " " + f.Value
	}
	return strings.Join(parts, ", ")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}
