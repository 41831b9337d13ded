package parsers

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ErrUnsupportedLanguage is returned for a language tag with no grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// grammarFor maps a language tag to its tree-sitter grammar.
func grammarFor(lang string) (*sitter.Language, error) {
	switch lang {
	case LangPython:
		return sitter.NewLanguage(python.Language()), nil
	case LangPHP:
		return sitter.NewLanguage(php.LanguagePHP()), nil
	case LangJava:
		return sitter.NewLanguage(java.Language()), nil
	case LangTypeScript:
		return sitter.NewLanguage(typescript.LanguageTypescript()), nil
	case LangTSX:
		return sitter.NewLanguage(typescript.LanguageTSX()), nil
	case LangJavaScript:
		return sitter.NewLanguage(javascript.Language()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}

// Provider owns one tree-sitter parser per language, created on first use and
// reused for every later file of that language. A Provider belongs to a single
// worker and must not be shared between goroutines.
type Provider struct {
	parsers map[string]*sitter.Parser
}

// NewProvider creates an empty Provider. Parsers are allocated lazily.
func NewProvider() *Provider {
	return &Provider{parsers: make(map[string]*sitter.Parser)}
}

// Tree is a parsed file. The caller must Close it.
type Tree struct {
	tree     *sitter.Tree
	Root     *sitter.Node
	Source   []byte
	Language string
	HasError bool
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// Parse returns the syntax tree for src. Malformed input never fails: the tree
// holds whatever the grammar could recover and HasError is set.
func (p *Provider) Parse(lang string, src []byte) (*Tree, error) {
	parser, err := p.parserFor(lang)
	if err != nil {
		return nil, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source", lang)
	}
	// No content-specific state survives between files.
	parser.Reset()

	root := tree.RootNode()
	return &Tree{
		tree:     tree,
		Root:     root,
		Source:   src,
		Language: lang,
		HasError: root.HasError(),
	}, nil
}

func (p *Provider) parserFor(lang string) (*sitter.Parser, error) {
	if parser, ok := p.parsers[lang]; ok {
		return parser, nil
	}

	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	if err := parser.SetLanguage(grammar); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to load %s grammar: %w", lang, err)
	}
	p.parsers[lang] = parser
	return parser, nil
}

// Close releases every parser the Provider created.
func (p *Provider) Close() {
	for lang, parser := range p.parsers {
		parser.Close()
		delete(p.parsers, lang)
	}
}

// Handles reports how many parser handles have been created.
func (p *Provider) Handles() int {
	return len(p.parsers)
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// startLine returns the 1-based first line of node.
func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// endLine returns the 1-based last line of node. A node that ends at column
// zero finished on the previous line.
func endLine(node *sitter.Node) int {
	end := node.EndPosition()
	line := int(end.Row) + 1
	if end.Column == 0 && end.Row > node.StartPosition().Row {
		line--
	}
	return line
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}

// namedChildren returns the named children of node in order.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		out = append(out, node.NamedChild(uint(i)))
	}
	return out
}

// firstError returns the first ERROR or MISSING node in document order, or
// nil when the tree is clean.
func firstError(root *sitter.Node) *sitter.Node {
	if root == nil || !root.HasError() {
		return nil
	}
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// malformedFrom returns the first line of the region an error node spoils:
// the start of the innermost declaration enclosing it, or the node's own
// line at the top level. Recovery tends to park a MISSING closer at the end
// of the file, well after the construct that was left open.
func malformedFrom(n *sitter.Node) int {
	line := startLine(n)
	for p := n.Parent(); p != nil; p = p.Parent() {
		if isDeclarationNode(p.Kind()) {
			return min(line, startLine(p))
		}
	}
	return line
}

func isDeclarationNode(kind string) bool {
	return strings.HasSuffix(kind, "_declaration") || strings.HasSuffix(kind, "_definition")
}

// stripTypeArgs removes generic arguments from a type reference:
// Box<T> -> Box, Generic[T] -> Generic, Map<K, List<V>>[] -> Map[].
func stripTypeArgs(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '<':
			depth++
			continue
		case '>':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if i := strings.Index(out, "["); i > 0 && !strings.HasSuffix(out, "[]") {
		out = out[:i]
	}
	return strings.TrimSpace(out)
}

// collapseSpace joins a multi-line header into a single line.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// headerText renders the declaration header: the node text up to its body.
func headerText(node, body *sitter.Node, source []byte) string {
	if body == nil {
		return collapseSpace(strings.TrimSuffix(strings.TrimSpace(extractNodeText(node, source)), ";"))
	}
	return collapseSpace(string(source[node.StartByte():body.StartByte()]))
}
