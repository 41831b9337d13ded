package parsers

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Language tags. The caller supplies them; nothing here guesses a language
// from content.
const (
	LangPython     = "python"
	LangPHP        = "php"
	LangJava       = "java"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJavaScript = "javascript"
)

// Languages lists every supported tag.
var Languages = []string{LangPython, LangPHP, LangJava, LangTypeScript, LangTSX, LangJavaScript}

// Extractor turns a syntax tree into raw facts for one language family.
type Extractor interface {
	Extract(tree *Tree) *extraction.Result
}

// extractors is the closed set of language extractors. TSX and JavaScript
// share the TypeScript extractor.
var extractors = map[string]Extractor{
	LangPython:     pythonExtractor{},
	LangPHP:        phpExtractor{},
	LangJava:       javaExtractor{},
	LangTypeScript: typescriptExtractor{},
	LangTSX:        typescriptExtractor{},
	LangJavaScript: typescriptExtractor{},
}

// IsSupported reports whether lang has an extractor.
func IsSupported(lang string) bool {
	_, ok := extractors[lang]
	return ok
}

// Extract parses content and runs the extractor for lang. Problems with the
// file itself are reported on Result.Error; a Go error means the language tag
// is unknown.
func (p *Provider) Extract(path, lang string, content []byte) (*extraction.Result, error) {
	extractor, ok := extractors[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	src, encErr := decodeSource(content)

	tree, err := p.Parse(lang, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := extractor.Extract(tree)
	result.Path = path
	result.Language = lang
	result.FileLines = countLines(src)
	result.Error = facts.MergeError(encErr, result.Error)
	return result, nil
}

// decodeSource strips a UTF-8 byte order mark and replaces invalid sequences.
// The returned error is non-nil when the input was not valid UTF-8.
func decodeSource(content []byte) ([]byte, *facts.ParseError) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if utf8.Valid(content) {
		return content, nil
	}

	line := 1
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		if r == '\n' {
			line++
		}
		i += size
	}
	clean := []byte(strings.ToValidUTF8(string(content), "�"))
	return clean, facts.NewParseError(facts.ErrEncoding, line, "source is not valid UTF-8")
}

// countLines returns the number of lines in src. A trailing newline does not
// start a new line.
func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte("\n"))
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

// fileState is the mutable state of one extractor run. errLine is the first
// line of the malformed region; nothing at or after it is extracted.
type fileState struct {
	src     []byte
	result  *extraction.Result
	errLine int
}

func newFileState(tree *Tree) *fileState {
	st := &fileState{
		src: tree.Source,
		result: &extraction.Result{
			Symbols:      []facts.Symbol{},
			Imports:      []extraction.ImportDecl{},
			Inheritances: []extraction.RawInheritance{},
			Calls:        []extraction.RawCall{},
		},
	}
	if tree.HasError {
		line := endLine(tree.Root)
		st.errLine = line
		if n := firstError(tree.Root); n != nil {
			line = startLine(n)
			st.errLine = malformedFrom(n)
		}
		st.result.Error = facts.NewParseError(facts.ErrSyntax, line, "syntax error")
	}
	return st
}

func (st *fileState) text(n *sitter.Node) string {
	return extractNodeText(n, st.src)
}

// skip reports whether node must not be visited: error subtrees and anything
// starting at or after the first error.
func (st *fileState) skip(n *sitter.Node) bool {
	if n == nil || n.IsError() || n.IsMissing() {
		return true
	}
	return st.errLine > 0 && startLine(n) >= st.errLine
}

// addSymbol records a declaration unless it lies in the malformed region.
func (st *fileState) addSymbol(sym facts.Symbol) {
	if sym.Name == "" {
		return
	}
	if st.errLine > 0 && sym.LineStart >= st.errLine {
		return
	}
	if sym.Annotations == nil {
		sym.Annotations = []facts.Annotation{}
	}
	if sym.Throws == nil {
		sym.Throws = []string{}
	}
	if sym.LineEnd < sym.LineStart {
		sym.LineEnd = sym.LineStart
	}
	st.result.Symbols = append(st.result.Symbols, sym)
}

func (st *fileState) addImport(imp extraction.ImportDecl) {
	if imp.Names == nil {
		imp.Names = []string{}
	}
	st.result.Imports = append(st.result.Imports, imp)
}

func (st *fileState) addInheritance(child, parent string, line int) {
	parent = stripTypeArgs(parent)
	if child == "" || parent == "" {
		return
	}
	st.result.Inheritances = append(st.result.Inheritances, extraction.RawInheritance{
		Child:  stripTypeArgs(child),
		Parent: parent,
		Line:   line,
	})
}

func (st *fileState) addCall(c extraction.RawCall) {
	st.result.Calls = append(st.result.Calls, c)
}

// unsupported flags a construct that parses but is not modelled.
func (st *fileState) unsupported(n *sitter.Node, what string) {
	st.result.Error = facts.MergeError(st.result.Error,
		facts.NewParseError(facts.ErrUnsupportedConstruct, startLine(n), "%s is not supported", what))
}

// joinName appends a member to a dotted scope.
func joinName(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// lastSegment returns the part of a dotted or backslashed name after the last
// separator.
func lastSegment(name string) string {
	if i := strings.LastIndexAny(name, `.\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
