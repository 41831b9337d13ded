package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/cortex-facts/internal/indexer/parsers"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .cortex/config.yml when present
// - A partial symbol_budget section keeps the default for other tiers
// - Environment variables override config file values
// - Comma-separated CORTEX_LANGUAGES becomes a list
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() rejects unknown languages and empty language sets
// - Validate() rejects unknown tiers and out-of-order budgets
// - Validate() rejects negative indexer sizes and bad output settings
// - Validate() returns multiple errors for multiple invalid fields
// - ToIndexerConfig() carries paths, languages and pipeline sizes

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	cortexDir := filepath.Join(dir, ".cortex")
	require.NoError(t, os.MkdirAll(cortexDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cortexDir, "config.yml"), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, parsers.Languages, cfg.Languages)
	assert.Equal(t, 100, cfg.SymbolBudget.Thresholds["tiny"])
	assert.Equal(t, 8000, cfg.SymbolBudget.Thresholds["xxlarge"])
	assert.Equal(t, 5, cfg.SymbolBudget.Limits["tiny"])
	assert.Equal(t, 150, cfg.SymbolBudget.Limits["huge"])
	assert.Equal(t, 0, cfg.Indexer.Workers)
	assert.Equal(t, 4096, cfg.Indexer.CacheSize)
	assert.Contains(t, cfg.Paths.Code, "**/*.py")
	assert.Contains(t, cfg.Paths.Ignore, "node_modules/**")
	assert.Equal(t, FormatJSON, cfg.Output.Format)

	assert.NoError(t, Validate(cfg))
	assert.Equal(t, scorer.DefaultOptions().Limit(scorer.TierMedium), cfg.ScorerOptions().Limit(scorer.TierMedium))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Languages, cfg.Languages)
	assert.Equal(t, expected.SymbolBudget, cfg.SymbolBudget)
	assert.Equal(t, expected.Indexer, cfg.Indexer)
	assert.Equal(t, expected.Paths, cfg.Paths)
	assert.Equal(t, expected.Output, cfg.Output)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
languages: [python, java]

indexer:
  workers: 4
  cache_size: 128

paths:
  code:
    - "src/**/*.java"
  ignore:
    - "gen/**"

output:
  format: jsonl
  path: out/facts.jsonl
`)

	cfg, err := LoadConfigFromDir(tempDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"python", "java"}, cfg.Languages)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, 128, cfg.Indexer.CacheSize)
	assert.Equal(t, []string{"src/**/*.java"}, cfg.Paths.Code)
	assert.Equal(t, []string{"gen/**"}, cfg.Paths.Ignore)
	assert.Equal(t, FormatJSONL, cfg.Output.Format)
	assert.Equal(t, "out/facts.jsonl", cfg.Output.Path)
	assert.True(t, cfg.LanguageEnabled("java"))
	assert.False(t, cfg.LanguageEnabled("php"))
}

func TestLoadConfig_MergesSymbolBudgetWithDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
symbol_budget:
  limits:
    tiny: 8
`)

	cfg, err := LoadConfigFromDir(tempDir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.SymbolBudget.Limits["tiny"])
	assert.Equal(t, 10, cfg.SymbolBudget.Limits["small"])
	assert.Equal(t, 100, cfg.SymbolBudget.Thresholds["tiny"])

	opts := cfg.ScorerOptions()
	assert.Equal(t, 8, opts.Limit(scorer.TierTiny))
}

func TestLoadConfig_EnvOverridesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
indexer:
  workers: 4
output:
  format: jsonl
`)

	t.Setenv("CORTEX_INDEXER_WORKERS", "2")
	t.Setenv("CORTEX_OUTPUT_FORMAT", "json")
	t.Setenv("CORTEX_SYMBOL_BUDGET_LIMITS_HUGE", "200")

	cfg, err := LoadConfigFromDir(tempDir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Indexer.Workers)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, 200, cfg.SymbolBudget.Limits["huge"])
}

func TestLoadConfig_EnvLanguagesList(t *testing.T) {
	t.Setenv("CORTEX_LANGUAGES", "php,typescript")

	cfg, err := LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"php", "typescript"}, cfg.Languages)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "languages: [python\nindexer: {")

	_, err := LoadConfigFromDir(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
languages: [python, cobol]
`)

	_, err := LoadConfigFromDir(tempDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLanguage)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no languages", func(c *Config) { c.Languages = nil }, ErrNoLanguages},
		{"unknown language", func(c *Config) { c.Languages = []string{"go"} }, ErrUnknownLanguage},
		{"unknown tier", func(c *Config) { c.SymbolBudget.Limits["enormous"] = 500 }, ErrUnknownTier},
		{"thresholds out of order", func(c *Config) { c.SymbolBudget.Thresholds["small"] = 50 }, scorer.ErrThresholdOrder},
		{"limits out of order", func(c *Config) { c.SymbolBudget.Limits["medium"] = 5 }, scorer.ErrLimitOrder},
		{"negative workers", func(c *Config) { c.Indexer.Workers = -1 }, ErrInvalidWorkers},
		{"negative cache", func(c *Config) { c.Indexer.CacheSize = -10 }, ErrInvalidCacheSize},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, ErrInvalidFormat},
		{"sqlite without path", func(c *Config) { c.Output.Format = FormatSQLite }, ErrMissingOutputPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}

	t.Run("sqlite with path", func(t *testing.T) {
		cfg := Default()
		cfg.Output = OutputConfig{Format: FormatSQLite, Path: "facts.db"}
		assert.NoError(t, Validate(cfg))
	})
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Languages = []string{"cobol"}
	cfg.Indexer.Workers = -2
	cfg.Output.Format = "yaml"

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLanguage)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestToIndexerConfig(t *testing.T) {
	cfg := Default()
	cfg.Languages = []string{"java"}
	cfg.Indexer = IndexerConfig{Workers: 3, CacheSize: 10}

	ic := cfg.ToIndexerConfig("/repo")
	assert.Equal(t, "/repo", ic.RootDir)
	assert.Equal(t, cfg.Paths.Code, ic.CodePatterns)
	assert.Equal(t, cfg.Paths.Ignore, ic.IgnorePatterns)
	assert.Equal(t, []string{"java"}, ic.Languages)
	assert.Equal(t, 3, ic.Workers)
	assert.Equal(t, 10, ic.CacheSize)
}
