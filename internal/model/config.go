package model

import "time"

// Config is the complete engine configuration. It is resolved once by the
// CLI layer and passed explicitly into the pipeline and every adapter.
type Config struct {
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Sources      SourcesConfig     `yaml:"sources" mapstructure:"sources"`
	Engine       EngineConfig      `yaml:"engine" mapstructure:"engine"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects and configures the synthesis model
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, gemini, ollama, "" = disabled
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SourcesConfig configures the evidence provider adapters
type SourcesConfig struct {
	Timeout     time.Duration   `yaml:"timeout" mapstructure:"timeout"`         // Per adapter
	MaxResults  int             `yaml:"max_results" mapstructure:"max_results"` // Per adapter
	WebSearch   WebSearchConfig `yaml:"web_search" mapstructure:"web_search"`
	DeFiLlama   EndpointConfig  `yaml:"defillama" mapstructure:"defillama"`
	DexScreener EndpointConfig  `yaml:"dexscreener" mapstructure:"dexscreener"`
	CoinGecko   CoinGeckoConfig `yaml:"coingecko" mapstructure:"coingecko"`
	GoPlus      EndpointConfig  `yaml:"goplus" mapstructure:"goplus"`
	Breaker     BreakerConfig   `yaml:"breaker" mapstructure:"breaker"`
}

// WebSearchConfig configures the web search adapter
type WebSearchConfig struct {
	APIKey  string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CoinGeckoConfig configures the token market data adapter
type CoinGeckoConfig struct {
	APIKey  string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EndpointConfig is a keyless public API endpoint
type EndpointConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Disabled bool   `yaml:"disabled" mapstructure:"disabled"`
}

// BreakerConfig configures the per-adapter circuit breakers
type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"`
}

// EngineConfig holds the synthesis and grounding bounds
type EngineConfig struct {
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout" mapstructure:"synthesis_timeout"`
	ValidityHours    int           `yaml:"validity_hours" mapstructure:"validity_hours"`
	MaxEvidenceHints int           `yaml:"max_evidence_hints" mapstructure:"max_evidence_hints"`
	TitleMaxLen      int           `yaml:"title_max_len" mapstructure:"title_max_len"`
	SnippetMaxLen    int           `yaml:"snippet_max_len" mapstructure:"snippet_max_len"`
	ClaimMaxLen      int           `yaml:"claim_max_len" mapstructure:"claim_max_len"`
	MaxClaims        int           `yaml:"max_claims" mapstructure:"max_claims"`
	MaxBackfillIDs   int           `yaml:"max_backfill_ids" mapstructure:"max_backfill_ids"`
	ProjectMatcher   string        `yaml:"project_matcher" mapstructure:"project_matcher"` // substring, word
}

// HTTPConfig holds outbound HTTP settings shared by all adapters
type HTTPConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig controls per-host outbound request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	IdleTTL           time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	AdapterWorkers int `yaml:"adapter_workers" mapstructure:"adapter_workers"`
	BatchWorkers   int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "", // Disabled until configured
			MaxTokens: 2000,
		},
		Sources: SourcesConfig{
			Timeout:    5 * time.Second,
			MaxResults: 5,
			WebSearch: WebSearchConfig{
				BaseURL: "https://s.jina.ai",
			},
			DeFiLlama: EndpointConfig{
				BaseURL: "https://api.llama.fi",
			},
			DexScreener: EndpointConfig{
				BaseURL: "https://api.dexscreener.com",
			},
			CoinGecko: CoinGeckoConfig{
				BaseURL: "https://api.coingecko.com/api/v3",
			},
			GoPlus: EndpointConfig{
				BaseURL: "https://api.gopluslabs.io",
			},
			Breaker: BreakerConfig{
				ConsecutiveFailures: 5,
				OpenTimeout:         60 * time.Second,
			},
		},
		Engine: EngineConfig{
			SynthesisTimeout: 15 * time.Second,
			ValidityHours:    72,
			MaxEvidenceHints: 40,
			TitleMaxLen:      120,
			SnippetMaxLen:    280,
			ClaimMaxLen:      220,
			MaxClaims:        12,
			MaxBackfillIDs:   3,
			ProjectMatcher:   "substring",
		},
		HTTP: HTTPConfig{
			UserAgent:    "compintel/0.1 (+https://github.com/ppiankov/compintel)",
			MaxBodyBytes: 4_000_000,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
			IdleTTL:           10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			AdapterWorkers: 5,
			BatchWorkers:   4,
		},
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 30 * time.Second,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
