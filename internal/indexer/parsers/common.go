package parsers

import (
	"regexp"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// callContext is the lexical position of a body being walked for calls.
type callContext struct {
	caller string            // local dotted name of the enclosing declaration
	scope  string            // local dotted name of the enclosing type
	locals map[string]string // variable -> declared or inferred type, "" if unknown
	anon   bool              // inside an anonymous class or object literal
}

func (c *callContext) withCaller(caller string) *callContext {
	cp := *c
	cp.caller = caller
	return &cp
}

// localType looks up a local binding. ok is false when name is not local.
func (c *callContext) localType(name string) (string, bool) {
	if c == nil || c.locals == nil {
		return "", false
	}
	t, ok := c.locals[name]
	return t, ok
}

func mergeLocals(outer, inner map[string]string) map[string]string {
	out := make(map[string]string, len(outer)+len(inner))
	for k, v := range outer {
		out[k] = v
	}
	for k, v := range inner {
		out[k] = v
	}
	return out
}

var identifierPath = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// isIdentifierPath reports whether s is a plain dotted identifier chain.
func isIdentifierPath(s string) bool {
	return identifierPath.MatchString(s)
}

// headSegment returns the first segment of a dotted name.
func headSegment(name string) string {
	if i := strings.IndexAny(name, `.\`); i >= 0 {
		return name[:i]
	}
	return name
}

// isCapitalized reports whether name starts with an upper-case letter.
func isCapitalized(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// precedingComment returns the comment block that ends on the line directly
// above node. Consecutive line comments are joined. Returns "" when a blank
// line separates the comment from the declaration.
func (st *fileState) precedingComment(node *sitter.Node, isComment func(*sitter.Node) bool) string {
	var parts []string
	expect := startLine(node)
	for prev := node.PrevSibling(); prev != nil && isComment(prev); prev = prev.PrevSibling() {
		if endLine(prev) < expect-1 {
			break
		}
		parts = append([]string{st.text(prev)}, parts...)
		expect = startLine(prev)
		// A block comment stands alone; only line comments stack.
		if strings.HasPrefix(parts[0], "/*") {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return cleanComment(strings.Join(parts, "\n"))
}

// moduleComment returns the first top-level comment that is not attached to
// a declaration. Scanning stops at the first declaration.
func (st *fileState) moduleComment(root *sitter.Node, isComment, isDecl func(*sitter.Node) bool) string {
	count := int(root.ChildCount())
	for i := 0; i < count; i++ {
		child := root.Child(uint(i))
		if isDecl(child) {
			return ""
		}
		if !isComment(child) {
			continue
		}

		parts := []string{st.text(child)}
		last := child
		j := i + 1
		for ; j < count && !strings.HasPrefix(parts[0], "/*"); j++ {
			next := root.Child(uint(j))
			if !isComment(next) || startLine(next) > endLine(last)+1 {
				break
			}
			parts = append(parts, st.text(next))
			last = next
		}
		if j < count {
			next := root.Child(uint(j))
			if isDecl(next) && startLine(next) <= endLine(last)+1 {
				return ""
			}
		}
		return cleanComment(strings.Join(parts, "\n"))
	}
	return ""
}

// cleanComment strips comment delimiters and leading decoration.
func cleanComment(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/*") {
		text = strings.TrimPrefix(text, "/**")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "///"):
			line = line[3:]
		case strings.HasPrefix(line, "//"):
			line = line[2:]
		case strings.HasPrefix(line, "#"):
			line = line[1:]
		case strings.HasPrefix(line, "*"):
			line = line[1:]
		}
		out = append(out, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// docThrows collects @throws/@exception tags from a doc comment.
func docThrows(doc string) []string {
	var throws []string
	for _, line := range strings.Split(doc, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] != "@throws" && fields[0] != "@exception" {
			continue
		}
		t := strings.Trim(fields[1], "{}")
		for _, alt := range strings.Split(t, "|") {
			if alt != "" {
				throws = append(throws, alt)
			}
		}
	}
	return throws
}

// unquote strips matching string delimiters from a literal.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// countArgs counts the arguments in an argument list node. It returns nil
// when any argument is a spread, since the count is then unknown.
func countArgs(args *sitter.Node, isSpread func(*sitter.Node) bool) *int {
	if args == nil {
		return nil
	}
	n := 0
	for _, child := range namedChildren(args) {
		if strings.Contains(child.Kind(), "comment") {
			continue
		}
		if isSpread(child) {
			return nil
		}
		n++
	}
	return &n
}

// countCreationArgs counts constructor arguments. A creation without an
// argument list, such as `new Foo`, passes none.
func countCreationArgs(args *sitter.Node, isSpread func(*sitter.Node) bool) *int {
	if args == nil {
		zero := 0
		return &zero
	}
	return countArgs(args, isSpread)
}
