package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/cortex-facts/internal/indexer/parsers"
)

// extensionLanguages maps file extensions to language tags.
var extensionLanguages = map[string]string{
	".py":   parsers.LangPython,
	".php":  parsers.LangPHP,
	".java": parsers.LangJava,
	".ts":   parsers.LangTypeScript,
	".mts":  parsers.LangTypeScript,
	".cts":  parsers.LangTypeScript,
	".tsx":  parsers.LangTSX,
	".js":   parsers.LangJavaScript,
	".jsx":  parsers.LangJavaScript,
	".mjs":  parsers.LangJavaScript,
	".cjs":  parsers.LangJavaScript,
}

// LanguageForPath returns the language tag for a file name, or "" when the
// extension is not recognized.
func LanguageForPath(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery handles file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir        string
	codePatterns   []compiledPattern
	ignorePatterns []compiledPattern
	languages      map[string]bool
}

// NewFileDiscovery creates a new file discovery instance. An empty languages
// list enables every supported language.
func NewFileDiscovery(rootDir string, codePatterns, ignorePatterns, languages []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir:   rootDir,
		languages: make(map[string]bool),
	}

	var err error
	if fd.codePatterns, err = compilePatterns(codePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}

	if len(languages) == 0 {
		languages = parsers.Languages
	}
	for _, lang := range languages {
		fd.languages[lang] = true
	}

	return fd, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var out []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// RootDir returns the directory discovery walks.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// DiscoverFiles walks the directory tree and returns the relative,
// slash-separated paths of matching source files in lexical order.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.Accepts(relPath) {
			files = append(files, relPath)
		}
		return nil
	})

	return files, err
}

// Accepts reports whether a relative path would be discovered: it matches a
// code pattern, no ignore pattern, and maps to an enabled language.
func (fd *FileDiscovery) Accepts(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if fd.shouldIgnore(relPath) {
		return false
	}
	if !fd.matchesAnyPattern(relPath, fd.codePatterns) {
		return false
	}
	return fd.languages[LanguageForPath(relPath)]
}

// Ignores reports whether a relative directory is skipped during discovery.
func (fd *FileDiscovery) Ignores(relDir string) bool {
	return fd.shouldIgnore(filepath.ToSlash(relDir))
}

// Load reads relPaths into source triples. Files that disappeared since
// discovery are skipped.
func (fd *FileDiscovery) Load(relPaths []string) ([]SourceFile, error) {
	files := make([]SourceFile, 0, len(relPaths))
	for _, rel := range relPaths {
		content, err := os.ReadFile(filepath.Join(fd.rootDir, filepath.FromSlash(rel)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		files = append(files, SourceFile{
			Path:     rel,
			Language: LanguageForPath(rel),
			Content:  content,
		})
	}
	return files, nil
}

// Discover runs DiscoverFiles and Load.
func (fd *FileDiscovery) Discover() ([]SourceFile, error) {
	paths, err := fd.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	return fd.Load(paths)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	// Always ignore .cortex directory
	if strings.HasPrefix(relPath, ".cortex/") || relPath == ".cortex" {
		return true
	}

	// Check if the path matches any ignore pattern
	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	pathWithSuffix := relPath + "/**"
	return fd.matchesAnyPattern(pathWithSuffix, fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// A root-level file also matches "**/" patterns with the prefix removed,
	// so "**/*.py" matches "setup.py" as well as "pkg/mod.py".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
