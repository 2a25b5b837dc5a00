package model

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config holds the complete banklab configuration
type Config struct {
	Tickers     []string          `yaml:"tickers" mapstructure:"tickers"`
	DataDir     string            `yaml:"data_dir" mapstructure:"data_dir"`
	Normalize   NormalizeConfig   `yaml:"normalize" mapstructure:"normalize"`
	SEC         SECConfig         `yaml:"sec" mapstructure:"sec"`
	Prices      PricesConfig      `yaml:"prices" mapstructure:"prices"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	KPI         KPIConfig         `yaml:"kpi" mapstructure:"kpi"`
	Quality     QualityConfig     `yaml:"quality" mapstructure:"quality"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// NormalizeConfig controls fact resolution
type NormalizeConfig struct {
	MinFiscalYear int `yaml:"min_fiscal_year" mapstructure:"min_fiscal_year"`
	Workers       int `yaml:"workers" mapstructure:"workers"` // Entities resolved in parallel
}

// SECConfig controls access to SEC EDGAR endpoints
type SECConfig struct {
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"` // SEC requires a contact in the UA
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// PricesConfig controls the daily price download
type PricesConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// HTTPConfig controls outbound HTTP behavior
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls download caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls the per-ticker fetch pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// KPIConfig controls ratio derivation
type KPIConfig struct {
	Annualize      bool `yaml:"annualize" mapstructure:"annualize"`
	PeriodsPerYear int  `yaml:"periods_per_year" mapstructure:"periods_per_year"`
}

// QualityConfig controls the quality checks
type QualityConfig struct {
	BalanceTolerance float64 `yaml:"balance_tolerance" mapstructure:"balance_tolerance"`
	IncludeKPIChecks bool    `yaml:"include_kpi_checks" mapstructure:"include_kpi_checks"`
}

// OutputConfig controls persistence
type OutputConfig struct {
	Formats     []string `yaml:"formats" mapstructure:"formats"` // csv, xlsx
	PostgresURL string   `yaml:"postgres_url,omitempty" mapstructure:"postgres_url"`
	Verbose     bool     `yaml:"-" mapstructure:"verbose"`
}

// LLMConfig controls the optional run summary
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model     string        `yaml:"model,omitempty" mapstructure:"model"`
	APIKey    string        `yaml:"-" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Tickers: []string{"JPM", "MS"},
		DataDir: "data",
		Normalize: NormalizeConfig{
			MinFiscalYear: 2015,
			Workers:       runtime.NumCPU(),
		},
		SEC: SECConfig{
			UserAgent:         "BankLab Research (contact@example.com)",
			RequestsPerSecond: 10,
			Burst:             1,
		},
		Prices: PricesConfig{
			Enabled:           true,
			RequestsPerSecond: 2,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 64 << 20,
			MaxRetries:   3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		KPI: KPIConfig{
			Annualize:      true,
			PeriodsPerYear: 4,
		},
		Quality: QualityConfig{
			BalanceTolerance: 0.01,
			IncludeKPIChecks: true,
		},
		Output: OutputConfig{
			Formats: []string{"csv"},
		},
		LLM: LLMConfig{
			Timeout:   30 * time.Second,
			MaxTokens: 1000,
		},
	}
}

// RawDir is where downloaded source files and the raw-fact table live
func (c *Config) RawDir() string {
	return filepath.Join(c.DataDir, "raw")
}

// ProcessedDir is where derived tables are written
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.DataDir, "processed")
}

// CacheDir is the on-disk download cache
func (c *Config) CacheDir() string {
	return filepath.Join(c.RawDir(), "cache")
}

// ManifestPath is the provenance manifest location
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, "data_manifest.yml")
}

// HasFormat reports whether output format f is enabled
func (c *Config) HasFormat(f string) bool {
	for _, have := range c.Output.Formats {
		if have == f {
			return true
		}
	}
	return false
}
