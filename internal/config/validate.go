package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/indexer/parsers"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
)

var (
	// ErrUnknownLanguage indicates a language tag with no extractor
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrNoLanguages indicates an empty enabled language set
	ErrNoLanguages = errors.New("no languages enabled")

	// ErrUnknownTier indicates a symbol budget key that is not a tier name
	ErrUnknownTier = errors.New("unknown symbol budget tier")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrMissingOutputPath indicates a format that cannot write to stdout
	ErrMissingOutputPath = errors.New("output path required")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	return errors.Join(
		validateLanguages(cfg.Languages),
		validateSymbolBudget(cfg),
		validateIndexer(&cfg.Indexer),
		validateOutput(&cfg.Output),
	)
}

func validateLanguages(languages []string) error {
	if len(languages) == 0 {
		return fmt.Errorf("%w: at least one language required (valid: %s)", ErrNoLanguages, strings.Join(parsers.Languages, ", "))
	}

	var errs []error
	for _, lang := range languages {
		if !parsers.IsSupported(lang) {
			errs = append(errs, fmt.Errorf("%w: %s (valid: %s)", ErrUnknownLanguage, lang, strings.Join(parsers.Languages, ", ")))
		}
	}
	return errors.Join(errs...)
}

func validateSymbolBudget(cfg *Config) error {
	known := make(map[string]bool, len(scorer.Tiers))
	for _, t := range scorer.Tiers {
		known[string(t)] = true
	}

	var errs []error
	for _, section := range []map[string]int{cfg.SymbolBudget.Thresholds, cfg.SymbolBudget.Limits} {
		for name := range section {
			if !known[name] {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownTier, name))
			}
		}
	}

	if err := cfg.ScorerOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateIndexer(cfg *IndexerConfig) error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	return errors.Join(errs...)
}

func validateOutput(cfg *OutputConfig) error {
	switch strings.ToLower(cfg.Format) {
	case FormatJSON, FormatJSONL:
		return nil
	case FormatSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return fmt.Errorf("%w: sqlite output needs output.path", ErrMissingOutputPath)
		}
		return nil
	}
	return fmt.Errorf("%w: must be 'json', 'jsonl' or 'sqlite', got '%s'", ErrInvalidFormat, cfg.Format)
}
