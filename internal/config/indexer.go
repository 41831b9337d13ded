package config

import (
	"github.com/mvp-joe/cortex-facts/internal/indexer"
)

// ToIndexerConfig converts a Config to an indexer.Config.
// The rootDir parameter specifies the root directory of the codebase to index.
func (c *Config) ToIndexerConfig(rootDir string) *indexer.Config {
	return &indexer.Config{
		RootDir:        rootDir,
		CodePatterns:   c.Paths.Code,
		IgnorePatterns: c.Paths.Ignore,
		Languages:      c.Languages,
		Workers:        c.Indexer.Workers,
		CacheSize:      c.Indexer.CacheSize,
	}
}
