package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/mvp-joe/cortex-facts/internal/indexer/parsers"
	"github.com/mvp-joe/cortex-facts/internal/resolver"
)

var (
	// ErrUnsupportedLanguage indicates a file whose language has no enabled extractor
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrOutsideRoot indicates a path that escapes the project root
	ErrOutsideRoot = errors.New("path outside project root")
)

// BatchSource exposes the most recent indexed batch. indexer.Session
// implements it.
type BatchSource interface {
	Last() *indexer.Result
}

// FileRequest names one file and optionally supplies its content.
type FileRequest struct {
	Path     string  `json:"path"`
	Language string  `json:"language"`
	Content  *string `json:"content"`
}

// Extractor answers single-file requests. Files already in the last batch
// are returned fully linked; anything else is parsed on demand and resolved
// as a batch of one.
type Extractor struct {
	rootDir   string
	languages map[string]bool
	batch     BatchSource

	mu       sync.Mutex
	provider *parsers.Provider
}

// NewExtractor creates an extractor rooted at rootDir. An empty languages
// list enables every supported language; batch may be nil.
func NewExtractor(rootDir string, languages []string, batch BatchSource) *Extractor {
	if len(languages) == 0 {
		languages = parsers.Languages
	}
	enabled := make(map[string]bool, len(languages))
	for _, lang := range languages {
		enabled[lang] = true
	}
	return &Extractor{
		rootDir:   rootDir,
		languages: enabled,
		batch:     batch,
		provider:  parsers.NewProvider(),
	}
}

// Close releases the parser handles.
func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.provider.Close()
}

// Extract returns the facts for one file.
func (e *Extractor) Extract(ctx context.Context, req FileRequest) (*facts.ParseResult, error) {
	path := filepath.ToSlash(filepath.Clean(filepath.FromSlash(req.Path)))

	lang := req.Language
	if lang == "" {
		lang = indexer.LanguageForPath(path)
	}
	if !e.languages[lang] || !parsers.IsSupported(lang) {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnsupportedLanguage, lang, path)
	}

	if req.Content == nil {
		if r := e.fromBatch(path, lang); r != nil {
			return r, nil
		}
	}

	content, err := e.content(path, req.Content)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	raw, err := e.provider.Extract(path, lang, content)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results, err := resolver.Finalize(resolver.ResolveFile(raw))
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (e *Extractor) fromBatch(path, lang string) *facts.ParseResult {
	if e.batch == nil {
		return nil
	}
	last := e.batch.Last()
	if last == nil {
		return nil
	}
	for _, r := range last.Results {
		if r.Path == path && r.Language == lang {
			return r.Clone()
		}
	}
	return nil
}

func (e *Extractor) content(path string, inline *string) ([]byte, error) {
	if inline != nil {
		return []byte(*inline), nil
	}

	root, err := filepath.Abs(e.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	abs := filepath.Join(root, filepath.FromSlash(path))
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
