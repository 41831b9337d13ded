// Package config loads cortex-facts configuration from .cortex/config.yml
// with CORTEX_* environment variable overrides.
package config

import (
	"github.com/mvp-joe/cortex-facts/internal/indexer/parsers"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatJSONL  = "jsonl"
	FormatSQLite = "sqlite"
)

// Config represents the complete cortex-facts configuration.
type Config struct {
	Languages    []string           `yaml:"languages" mapstructure:"languages"` // enabled language tags
	SymbolBudget SymbolBudgetConfig `yaml:"symbol_budget" mapstructure:"symbol_budget"`
	Indexer      IndexerConfig      `yaml:"indexer" mapstructure:"indexer"`
	Paths        PathsConfig        `yaml:"paths" mapstructure:"paths"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// SymbolBudgetConfig holds the file-size tiers used by the selector. Both
// maps are keyed by tier name (tiny, small, medium, large, xlarge, xxlarge,
// huge).
type SymbolBudgetConfig struct {
	Thresholds map[string]int `yaml:"thresholds" mapstructure:"thresholds"` // inclusive upper line bound per tier
	Limits     map[string]int `yaml:"limits" mapstructure:"limits"`         // symbol budget per tier
}

// IndexerConfig sizes the extraction pipeline.
type IndexerConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`       // 0 means one per CPU
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"` // parse cache entries, 0 disables
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for code files
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// OutputConfig selects where extracted facts are written.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // json, jsonl or sqlite
	Path   string `yaml:"path" mapstructure:"path"`     // empty means stdout for json/jsonl
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	budget := scorer.DefaultOptions()
	return &Config{
		Languages: append([]string{}, parsers.Languages...),
		SymbolBudget: SymbolBudgetConfig{
			Thresholds: tierMap(budget.Thresholds),
			Limits:     tierMap(budget.Limits),
		},
		Indexer: IndexerConfig{
			Workers:   0,
			CacheSize: 4096,
		},
		Paths: PathsConfig{
			Code: []string{
				"**/*.py",
				"**/*.php",
				"**/*.java",
				"**/*.ts",
				"**/*.mts",
				"**/*.cts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.mjs",
				"**/*.cjs",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"**/*.min.js",
				"**/*.d.ts",
			},
		},
		Output: OutputConfig{
			Format: FormatJSON,
			Path:   "",
		},
	}
}

// ScorerOptions converts the symbol budget section for the selector.
func (c *Config) ScorerOptions() scorer.Options {
	opts := scorer.Options{
		Thresholds: make(map[scorer.Tier]int, len(c.SymbolBudget.Thresholds)),
		Limits:     make(map[scorer.Tier]int, len(c.SymbolBudget.Limits)),
	}
	for name, n := range c.SymbolBudget.Thresholds {
		opts.Thresholds[scorer.Tier(name)] = n
	}
	for name, n := range c.SymbolBudget.Limits {
		opts.Limits[scorer.Tier(name)] = n
	}
	return opts
}

// LanguageEnabled reports whether tag is in the enabled language set.
func (c *Config) LanguageEnabled(tag string) bool {
	for _, l := range c.Languages {
		if l == tag {
			return true
		}
	}
	return false
}

func tierMap(m map[scorer.Tier]int) map[string]int {
	out := make(map[string]int, len(m))
	for t, n := range m {
		out[string(t)] = n
	}
	return out
}
