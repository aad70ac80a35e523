package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/compintel/internal/config"
	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/router"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"evaluate", "batch", "serve", "categories", "doctor", "config", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "compintel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestEvaluateCommand_Flags(t *testing.T) {
	for _, name := range []string{"description", "scope", "success-metric", "target-metric", "category", "json", "md", "llm-provider"} {
		assert.NotNil(t, evaluateCmd.Flags().Lookup(name), "evaluate should have --%s", name)
	}
	assert.Equal(t, "d", evaluateCmd.Flags().Lookup("description").Shorthand)
	assert.Equal(t, "c", evaluateCmd.Flags().Lookup("category").Shorthand)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "compintel "+Version+"\n", buf.String())
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"refactor-agent", "refactor-agent"},
		{"Refactor agent v2", "Refactor-agent-v2"},
		{"a/b\\c:d", "a_b_c_d"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{"   ", "idea"},
		{"..", "idea"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}

	long := sanitizeFilename(string(bytes.Repeat([]byte("x"), 150)))
	assert.Len(t, long, 100)
}

func TestUniqueSlug(t *testing.T) {
	used := make(map[string]int)
	assert.Equal(t, "idea", uniqueSlug("idea", used))
	assert.Equal(t, "idea-2", uniqueSlug("idea", used))
	assert.Equal(t, "other", uniqueSlug("other", used))
	assert.Equal(t, "idea-3", uniqueSlug("idea", used))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "****cdef", maskSecret("sk-0123456789abcdef"))
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	path := filepath.Join(dir, ".compintel", "config.yaml")

	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# compintel configuration file")
	assert.Contains(t, string(data), "synthesis_timeout")

	// The written file loads back to the defaults
	loaded, used, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	def := model.DefaultConfig()
	assert.Equal(t, def.Engine, loaded.Engine)
	assert.Equal(t, def.Sources.Timeout, loaded.Sources.Timeout)
	assert.Equal(t, def.Server, loaded.Server)

	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestShowConfigMasksSecrets(t *testing.T) {
	c := model.DefaultConfig()
	c.LLM.Provider = "openai"
	c.LLM.APIKey = "sk-0123456789abcdef"
	c.Sources.WebSearch.APIKey = "jina_secretsecret"

	var buf bytes.Buffer
	require.NoError(t, showConfig(&buf, c))

	out := buf.String()
	assert.NotContains(t, out, "sk-0123456789abcdef")
	assert.NotContains(t, out, "jina_secretsecret")
	assert.Contains(t, out, "****cdef")
	assert.Contains(t, out, "provider: openai")
	// The caller's config is untouched
	assert.Equal(t, "sk-0123456789abcdef", c.LLM.APIKey)
}

func TestApplyLLMOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	c := model.DefaultConfig()
	c.LLM.Provider = "openai"
	c.LLM.APIKey = "openai-key"

	applyLLMOverrides(c, "anthropic", "claude-haiku-4-5")
	assert.Equal(t, "anthropic", c.LLM.Provider)
	assert.Equal(t, "ant-key", c.LLM.APIKey)
	assert.Equal(t, "claude-haiku-4-5", c.LLM.Model)

	// Same provider keeps the configured key
	c.LLM.APIKey = "explicit"
	applyLLMOverrides(c, "anthropic", "")
	assert.Equal(t, "explicit", c.LLM.APIKey)
	assert.Equal(t, "claude-haiku-4-5", c.LLM.Model)
}

func TestSourceChecks(t *testing.T) {
	s := model.DefaultConfig().Sources
	s.GoPlus.Disabled = true

	checks := make(map[model.ProviderKind]sourceCheck)
	for _, c := range sourceChecks(s) {
		checks[c.Kind] = c
	}

	require.Len(t, checks, 5)
	assert.False(t, checks[model.ProviderWebSearch].Ready)
	assert.True(t, checks[model.ProviderProtocolTVL].Ready)
	assert.True(t, checks[model.ProviderOnChainLiquidity].Ready)
	assert.True(t, checks[model.ProviderTokenMarketData].Ready)
	assert.Contains(t, checks[model.ProviderTokenMarketData].Detail, "public tier")
	assert.False(t, checks[model.ProviderTokenSecurity].Ready)
	assert.Equal(t, "disabled", checks[model.ProviderTokenSecurity].Detail)

	s.WebSearch.APIKey = "jina"
	assert.True(t, sourceChecks(s)[0].Ready)
}

func TestCheckLLM(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		var buf bytes.Buffer
		assert.True(t, checkLLM(context.Background(), &buf, model.DefaultConfig()))
		assert.Contains(t, buf.String(), "not configured")
	})

	t.Run("unknown provider", func(t *testing.T) {
		c := model.DefaultConfig()
		c.LLM.Provider = "mystery"

		var buf bytes.Buffer
		assert.False(t, checkLLM(context.Background(), &buf, c))
		assert.Contains(t, buf.String(), "✗")
	})

	t.Run("ollama answers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/tags", r.URL.Path)
			_, _ = w.Write([]byte(`{"models": []}`))
		}))
		defer server.Close()

		c := model.DefaultConfig()
		c.LLM.Provider = "ollama"
		c.LLM.Model = "qwen2.5"
		c.LLM.BaseURL = server.URL

		var buf bytes.Buffer
		assert.True(t, checkLLM(context.Background(), &buf, c))
		assert.Contains(t, buf.String(), "✓ ollama/qwen2.5")
	})
}

func TestPrintCategories(t *testing.T) {
	var buf bytes.Buffer
	printCategories(&buf, router.Default().Routes())

	out := buf.String()
	assert.Contains(t, out, "protocol-liquidity\n")
	assert.Contains(t, out, "providers: web, tvl, liquidity\n")
	assert.Contains(t, out, "agent-software\n")
}

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
	assert.Equal(t, 8080, resolvePort(0, 8080))
}

func TestProcessBatchFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ideas.yaml")
	outDir := filepath.Join(dir, "reports")

	ideas := `
category: agent-software
ideas:
  - name: refactor agent
    description: An agent that refactors monorepos
    scope: Go and TypeScript repositories
    success_metric: 1000 weekly active teams
  - name: refactor agent
    description: A second idea with the same name
    scope: Python
    success_metric: 100 paying teams
  - name: arcade
    description: A play-to-earn arcade
    scope: Mobile
    success_metric: 10k DAU
    category: gaming
`
	require.NoError(t, os.WriteFile(file, []byte(ideas), 0o644))

	// No LLM configured: every idea is not available without any fetches
	c := model.DefaultConfig()
	c.Concurrency.BatchWorkers = 2

	var log bytes.Buffer
	summary, err := processBatchFile(context.Background(), c, file, outDir, &log)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 0, summary.OK)
	assert.Equal(t, 3, summary.NotAvailable)
	assert.Equal(t, 0, summary.WriteErrors)

	for _, name := range []string{"refactor-agent", "refactor-agent-2", "arcade"} {
		assert.FileExists(t, filepath.Join(outDir, name+".json"))
		assert.FileExists(t, filepath.Join(outDir, name+".md"))
	}

	data, err := os.ReadFile(filepath.Join(outDir, "arcade.json"))
	require.NoError(t, err)
	var outcome model.Outcome
	require.NoError(t, json.Unmarshal(data, &outcome))
	assert.Equal(t, model.StatusNotAvailable, outcome.Status)
	assert.Equal(t, "unsupported_category:gaming", outcome.Reason)

	data, err = os.ReadFile(filepath.Join(outDir, "refactor-agent.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &outcome))
	assert.Equal(t, model.ReasonLLMNotConfigured, outcome.Reason)

	assert.Contains(t, log.String(), "Batch Complete")
}

func TestProcessBatchFile_MissingFile(t *testing.T) {
	dir := t.TempDir()
	var log bytes.Buffer
	_, err := processBatchFile(context.Background(), model.DefaultConfig(), filepath.Join(dir, "nope.yaml"), dir, &log)
	require.Error(t, err)
}
