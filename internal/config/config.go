// Package config resolves the engine configuration and the process logger.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/compintel/internal/model"
)

// EnvPrefix is the prefix of every environment override (COMPINTEL_LLM_PROVIDER, ...)
const EnvPrefix = "COMPINTEL"

// DefaultDir returns the per-user config directory ($HOME/.compintel)
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "config: find home directory")
	}
	return filepath.Join(home, ".compintel"), nil
}

// Load reads configuration from file and environment. An explicit cfgFile
// must exist; otherwise config.yaml is looked up in $HOME/.compintel and the
// working directory and is optional. It returns the resolved config and the
// file it was read from ("" when none).
func Load(cfgFile string) (*model.Config, string, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, model.DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, "", eris.Wrap(err, "config: read file")
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", eris.Wrap(err, "config: unmarshal")
	}

	applyKeyFallbacks(&cfg)

	return &cfg, v.ConfigFileUsed(), nil
}

// setDefaults registers every key so that env overrides reach Unmarshal
func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("sources.timeout", d.Sources.Timeout)
	v.SetDefault("sources.max_results", d.Sources.MaxResults)
	v.SetDefault("sources.web_search.api_key", d.Sources.WebSearch.APIKey)
	v.SetDefault("sources.web_search.base_url", d.Sources.WebSearch.BaseURL)
	v.SetDefault("sources.defillama.base_url", d.Sources.DeFiLlama.BaseURL)
	v.SetDefault("sources.defillama.disabled", d.Sources.DeFiLlama.Disabled)
	v.SetDefault("sources.dexscreener.base_url", d.Sources.DexScreener.BaseURL)
	v.SetDefault("sources.dexscreener.disabled", d.Sources.DexScreener.Disabled)
	v.SetDefault("sources.coingecko.api_key", d.Sources.CoinGecko.APIKey)
	v.SetDefault("sources.coingecko.base_url", d.Sources.CoinGecko.BaseURL)
	v.SetDefault("sources.goplus.base_url", d.Sources.GoPlus.BaseURL)
	v.SetDefault("sources.goplus.disabled", d.Sources.GoPlus.Disabled)
	v.SetDefault("sources.breaker.consecutive_failures", d.Sources.Breaker.ConsecutiveFailures)
	v.SetDefault("sources.breaker.open_timeout", d.Sources.Breaker.OpenTimeout)

	v.SetDefault("engine.synthesis_timeout", d.Engine.SynthesisTimeout)
	v.SetDefault("engine.validity_hours", d.Engine.ValidityHours)
	v.SetDefault("engine.max_evidence_hints", d.Engine.MaxEvidenceHints)
	v.SetDefault("engine.title_max_len", d.Engine.TitleMaxLen)
	v.SetDefault("engine.snippet_max_len", d.Engine.SnippetMaxLen)
	v.SetDefault("engine.claim_max_len", d.Engine.ClaimMaxLen)
	v.SetDefault("engine.max_claims", d.Engine.MaxClaims)
	v.SetDefault("engine.max_backfill_ids", d.Engine.MaxBackfillIDs)
	v.SetDefault("engine.project_matcher", d.Engine.ProjectMatcher)

	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", d.HTTP.NoProxy)

	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)
	v.SetDefault("rate_limiting.idle_ttl", d.RateLimiting.IdleTTL)

	v.SetDefault("concurrency.adapter_workers", d.Concurrency.AdapterWorkers)
	v.SetDefault("concurrency.batch_workers", d.Concurrency.BatchWorkers)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("output.include_footer", d.Output.IncludeFooter)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// applyKeyFallbacks fills credentials from the vendors' conventional env vars
func applyKeyFallbacks(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini", "google":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Sources.WebSearch.APIKey == "" {
		cfg.Sources.WebSearch.APIKey = os.Getenv("JINA_API_KEY")
	}
	if cfg.Sources.CoinGecko.APIKey == "" {
		cfg.Sources.CoinGecko.APIKey = os.Getenv("COINGECKO_API_KEY")
	}
}

// InitLogger builds the process logger and installs it as the zap global.
// Format "console" selects the development encoder; anything else is JSON.
func InitLogger(cfg model.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	levelText := cfg.Level
	if levelText == "" {
		levelText = "info"
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return logger, nil
}
