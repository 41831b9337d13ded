package parsers

import (
	"strconv"
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// pythonExtractor extracts facts from Python files.
type pythonExtractor struct{}

type pythonWalker struct {
	*fileState
	fields map[string]map[string]string
}

var pythonReflection = map[string]bool{
	"getattr":                 true,
	"eval":                    true,
	"exec":                    true,
	"__import__":              true,
	"importlib.import_module": true,
}

func isPythonComment(n *sitter.Node) bool {
	return n.Kind() == "comment"
}

func isPythonDecl(n *sitter.Node) bool {
	switch n.Kind() {
	case "class_definition", "function_definition", "decorated_definition":
		return true
	}
	return false
}

// Extract walks a Python module.
func (pythonExtractor) Extract(tree *Tree) *extraction.Result {
	w := &pythonWalker{
		fileState: newFileState(tree),
		fields:    make(map[string]map[string]string),
	}
	root := tree.Root

	w.result.ModuleDocstring = w.bodyDocstring(root)
	if w.result.ModuleDocstring == "" {
		w.result.ModuleDocstring = w.moduleComment(root, isPythonComment, isPythonDecl)
	}

	ctx := &callContext{locals: map[string]string{}}
	for _, child := range namedChildren(root) {
		w.walkStatement(child, "", ctx, true)
	}
	return w.result
}

// bodyDocstring returns the string literal that opens a module, class or
// function body.
func (w *pythonWalker) bodyDocstring(body *sitter.Node) string {
	for _, stmt := range namedChildren(body) {
		if isPythonComment(stmt) {
			continue
		}
		if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return ""
		}
		str := stmt.NamedChild(0)
		if str.Kind() != "string" {
			return ""
		}
		return cleanDocstring(w.text(str))
	}
	return ""
}

// cleanDocstring strips quotes and common indentation from a docstring literal.
func cleanDocstring(lit string) string {
	lit = strings.TrimLeft(lit, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) && len(lit) >= 2*len(q) {
			lit = lit[len(q) : len(lit)-len(q)]
			break
		}
	}
	lines := strings.Split(lit, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// walkStatement handles one statement in a module or function body.
// Declarations become symbols; everything else is searched for calls.
func (w *pythonWalker) walkStatement(n *sitter.Node, outer string, ctx *callContext, moduleLevel bool) {
	if w.skip(n) {
		return
	}
	switch n.Kind() {
	case "import_statement", "import_from_statement", "future_import_statement":
		w.extractImport(n)
	case "class_definition":
		w.extractClass(n, n, outer, nil)
	case "function_definition":
		w.extractFunction(n, n, outer, "", nil)
	case "decorated_definition":
		w.extractDecorated(n, outer, "")
	case "print_statement":
		w.unsupported(n, "print statement")
	case "exec_statement":
		w.unsupported(n, "exec statement")
	case "expression_statement":
		if moduleLevel {
			w.extractModuleVariables(n)
		}
		w.walk(n, ctx)
	case "comment":
	default:
		if isPythonCompound(n.Kind()) {
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(uint(i))
				if child.Kind() == "block" {
					for _, stmt := range namedChildren(child) {
						w.walkStatement(stmt, outer, ctx, moduleLevel)
					}
					continue
				}
				if isPythonCompound(child.Kind()) || strings.HasSuffix(child.Kind(), "_clause") {
					w.walkStatement(child, outer, ctx, moduleLevel)
					continue
				}
				w.walk(child, ctx)
			}
			return
		}
		w.walk(n, ctx)
	}
}

func isPythonCompound(kind string) bool {
	switch kind {
	case "if_statement", "for_statement", "while_statement", "try_statement", "with_statement",
		"elif_clause", "else_clause", "except_clause", "finally_clause", "match_statement",
		"case_clause", "except_group_clause":
		return true
	}
	return false
}

// extractImport splits import statements into one Import per bound name.
func (w *pythonWalker) extractImport(n *sitter.Node) {
	line := startLine(n)
	switch n.Kind() {
	case "import_statement":
		for _, name := range namedChildren(n) {
			module, alias := w.importName(name)
			if module == "" {
				continue
			}
			w.addImport(extraction.ImportDecl{
				Import: facts.Import{Module: module, Names: []string{}, Alias: alias},
				Line:   line,
			})
		}
	case "import_from_statement", "future_import_statement":
		module := "__future__"
		if moduleNode := n.ChildByFieldName("module_name"); moduleNode != nil {
			module = w.text(moduleNode)
		}
		if findChildByType(n, "wildcard_import") != nil {
			w.addImport(extraction.ImportDecl{
				Import: facts.Import{Module: module, Names: []string{}, IsFrom: true},
				Line:   line,
			})
			return
		}
		moduleNode := n.ChildByFieldName("module_name")
		for _, name := range namedChildren(n) {
			if moduleNode != nil && name.StartByte() == moduleNode.StartByte() && name.EndByte() == moduleNode.EndByte() {
				continue
			}
			imported, alias := w.importName(name)
			if imported == "" {
				continue
			}
			w.addImport(extraction.ImportDecl{
				Import: facts.Import{Module: module, Names: []string{imported}, Alias: alias, IsFrom: true},
				Line:   line,
			})
		}
	}
}

func (w *pythonWalker) importName(n *sitter.Node) (string, *string) {
	switch n.Kind() {
	case "dotted_name":
		return w.text(n), nil
	case "aliased_import":
		return w.text(n.ChildByFieldName("name")), facts.StringPtr(w.text(n.ChildByFieldName("alias")))
	}
	return "", nil
}

// extractModuleVariables records NAME = value at module level.
func (w *pythonWalker) extractModuleVariables(n *sitter.Node) {
	assign := n.NamedChild(0)
	if assign == nil || assign.Kind() != "assignment" {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	w.addSymbol(facts.Symbol{
		Name:      w.text(left),
		Kind:      facts.KindVariable,
		Signature: collapseSpace(w.text(n)),
		Docstring: w.precedingComment(n, isPythonComment),
		LineStart: startLine(n),
		LineEnd:   endLine(n),
	})
}

// extractDecorated unwraps a decorated class or function.
func (w *pythonWalker) extractDecorated(n *sitter.Node, outer, owner string) {
	var annotations []facts.Annotation
	for _, dec := range findChildrenByType(n, "decorator") {
		annotations = append(annotations, w.extractDecorator(dec))
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return
	}
	switch def.Kind() {
	case "class_definition":
		w.extractClass(def, n, outer, annotations)
	case "function_definition":
		w.extractFunction(def, n, outer, owner, annotations)
	}
}

// extractDecorator converts @name, @a.b or @name(args) to an Annotation.
// Positional arguments are keyed by position.
func (w *pythonWalker) extractDecorator(n *sitter.Node) facts.Annotation {
	ann := facts.Annotation{Arguments: map[string]string{}}
	expr := n.NamedChild(0)
	if expr == nil {
		return ann
	}
	if expr.Kind() != "call" {
		ann.Name = w.text(expr)
		return ann
	}
	ann.Name = w.text(expr.ChildByFieldName("function"))
	pos := 0
	for _, arg := range namedChildren(expr.ChildByFieldName("arguments")) {
		switch arg.Kind() {
		case "comment":
		case "keyword_argument":
			ann.Arguments[w.text(arg.ChildByFieldName("name"))] = unquote(w.text(arg.ChildByFieldName("value")))
		default:
			ann.Arguments[strconv.Itoa(pos)] = unquote(w.text(arg))
			pos++
		}
	}
	return ann
}

// extractClass extracts a class, its bases and members. outerNode is the
// decorated_definition when present so ranges include decorators.
func (w *pythonWalker) extractClass(n, outerNode *sitter.Node, outer string, annotations []facts.Annotation) {
	name := joinName(outer, w.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")

	doc := w.bodyDocstring(body)
	if doc == "" {
		doc = w.precedingComment(outerNode, isPythonComment)
	}
	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        facts.KindClass,
		Signature:   strings.TrimSuffix(headerText(n, body, w.src), ":"),
		Docstring:   doc,
		Annotations: annotations,
		LineStart:   startLine(outerNode),
		LineEnd:     endLine(outerNode),
	})

	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		for _, base := range namedChildren(bases) {
			switch base.Kind() {
			case "keyword_argument", "list_splat", "dictionary_splat", "comment":
				continue
			}
			parent := stripTypeArgs(w.text(base))
			if parent == "Generic" || parent == "typing.Generic" {
				continue
			}
			w.addInheritance(name, parent, startLine(n))
		}
	}

	w.fields[name] = make(map[string]string)
	w.collectFields(body, name)

	ctx := &callContext{caller: name, scope: name, locals: map[string]string{}}
	for _, stmt := range namedChildren(body) {
		if w.skip(stmt) {
			continue
		}
		switch stmt.Kind() {
		case "function_definition":
			w.extractFunction(stmt, stmt, name, name, nil)
		case "decorated_definition":
			w.extractDecorated(stmt, name, name)
		case "class_definition":
			w.extractClass(stmt, stmt, name, nil)
		case "expression_statement":
			w.extractClassField(stmt, name)
			w.walk(stmt, ctx)
		case "comment":
		default:
			w.walk(stmt, ctx)
		}
	}
}

// collectFields records class attribute types and self.x assignments made in
// __init__.
func (w *pythonWalker) collectFields(body *sitter.Node, class string) {
	for _, stmt := range namedChildren(body) {
		if stmt.Kind() == "expression_statement" {
			if name, typ, ok := w.assignedName(stmt.NamedChild(0), ""); ok {
				w.fields[class][name] = typ
			}
		}
		init := stmt
		if init.Kind() == "decorated_definition" {
			init = init.ChildByFieldName("definition")
		}
		if init == nil || init.Kind() != "function_definition" || w.text(init.ChildByFieldName("name")) != "__init__" {
			continue
		}
		self := w.firstParam(init)
		walkTree(init.ChildByFieldName("body"), func(node *sitter.Node) bool {
			switch node.Kind() {
			case "function_definition", "class_definition":
				return false
			case "assignment":
				if name, typ, ok := w.assignedName(node, self); ok {
					if _, seen := w.fields[class][name]; !seen || typ != "" {
						w.fields[class][name] = typ
					}
				}
			}
			return true
		})
	}
}

// assignedName returns the target and inferred type of name = value or
// self.name = value when self is non-empty.
func (w *pythonWalker) assignedName(assign *sitter.Node, self string) (string, string, bool) {
	if assign == nil || assign.Kind() != "assignment" {
		return "", "", false
	}
	left := assign.ChildByFieldName("left")
	if left == nil {
		return "", "", false
	}
	var name string
	switch {
	case self == "" && left.Kind() == "identifier":
		name = w.text(left)
	case self != "" && left.Kind() == "attribute":
		obj := left.ChildByFieldName("object")
		if obj == nil || obj.Kind() != "identifier" || w.text(obj) != self {
			return "", "", false
		}
		name = w.text(left.ChildByFieldName("attribute"))
	default:
		return "", "", false
	}
	typ := ""
	if t := assign.ChildByFieldName("type"); t != nil {
		typ = stripTypeArgs(w.text(t))
	} else {
		typ = w.constructedType(assign.ChildByFieldName("right"))
	}
	return name, typ, true
}

// constructedType returns T for an initializer of the form T(...) where T
// looks like a class name.
func (w *pythonWalker) constructedType(value *sitter.Node) string {
	if value == nil || value.Kind() != "call" {
		return ""
	}
	fn := w.text(value.ChildByFieldName("function"))
	if isIdentifierPath(fn) && isCapitalized(lastSegment(fn)) {
		return fn
	}
	return ""
}

// extractClassField records a class attribute assignment.
func (w *pythonWalker) extractClassField(stmt *sitter.Node, class string) {
	name, _, ok := w.assignedName(stmt.NamedChild(0), "")
	if !ok {
		return
	}
	w.addSymbol(facts.Symbol{
		Name:      joinName(class, name),
		Kind:      facts.KindField,
		Signature: collapseSpace(w.text(stmt)),
		Docstring: w.precedingComment(stmt, isPythonComment),
		LineStart: startLine(stmt),
		LineEnd:   endLine(stmt),
	})
}

func (w *pythonWalker) firstParam(fn *sitter.Node) string {
	params := namedChildren(fn.ChildByFieldName("parameters"))
	if len(params) == 0 {
		return ""
	}
	p := params[0]
	switch p.Kind() {
	case "identifier":
		return w.text(p)
	case "typed_parameter":
		return w.text(p.NamedChild(0))
	case "default_parameter", "typed_default_parameter":
		return w.text(p.ChildByFieldName("name"))
	}
	return ""
}

// extractFunction extracts a function or method. owner is the enclosing class
// for methods and empty otherwise; outer is the dotted lexical path.
func (w *pythonWalker) extractFunction(n, outerNode *sitter.Node, outer, owner string, annotations []facts.Annotation) {
	short := w.text(n.ChildByFieldName("name"))
	name := joinName(outer, short)
	body := n.ChildByFieldName("body")

	kind := facts.KindFunction
	if owner != "" {
		kind = facts.KindMethod
		if short == "__init__" {
			kind = facts.KindConstructor
		}
	}

	doc := w.bodyDocstring(body)
	if doc == "" {
		doc = w.precedingComment(outerNode, isPythonComment)
	}

	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        kind,
		Signature:   strings.TrimSuffix(headerText(n, body, w.src), ":"),
		Docstring:   doc,
		Annotations: annotations,
		Throws:      docRaises(doc),
		LineStart:   startLine(outerNode),
		LineEnd:     endLine(outerNode),
	})

	if owner != "" && short == "__init__" {
		w.extractInstanceFields(n, owner)
	}

	ctx := &callContext{caller: name, scope: owner, locals: w.collectLocals(n)}
	if owner != "" {
		if self := w.firstParam(n); self != "" {
			delete(ctx.locals, self)
			ctx.locals[selfMarker] = self
		}
	}
	for _, stmt := range namedChildren(body) {
		w.walkStatement(stmt, name, ctx, false)
	}
}

// selfMarker keys the receiver parameter name of a method in callContext.locals.
const selfMarker = "\x00self"

// extractInstanceFields records self.x fields assigned in __init__ that are
// not already class attributes.
func (w *pythonWalker) extractInstanceFields(init *sitter.Node, class string) {
	self := w.firstParam(init)
	if self == "" {
		return
	}
	seen := make(map[string]bool)
	for _, s := range w.result.Symbols {
		seen[s.Name] = true
	}
	walkTree(init.ChildByFieldName("body"), func(node *sitter.Node) bool {
		if w.skip(node) {
			return false
		}
		switch node.Kind() {
		case "function_definition", "class_definition":
			return false
		case "assignment":
			name, _, ok := w.assignedName(node, self)
			if !ok || seen[joinName(class, name)] {
				return true
			}
			seen[joinName(class, name)] = true
			w.addSymbol(facts.Symbol{
				Name:      joinName(class, name),
				Kind:      facts.KindField,
				Signature: collapseSpace(w.text(node)),
				LineStart: startLine(node),
				LineEnd:   endLine(node),
			})
		}
		return true
	})
}

// docRaises collects "Raises:" section entries and :raises X: fields.
func docRaises(doc string) []string {
	var raises []string
	inSection := false
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, ":raises "):
			t := strings.TrimPrefix(trimmed, ":raises ")
			if i := strings.Index(t, ":"); i > 0 {
				raises = append(raises, strings.TrimSpace(t[:i]))
			}
		case trimmed == "Raises:":
			inSection = true
		case inSection && trimmed == "":
			inSection = false
		case inSection:
			if i := strings.Index(trimmed, ":"); i > 0 && isIdentifierPath(trimmed[:i]) {
				raises = append(raises, trimmed[:i])
			} else if isIdentifierPath(trimmed) {
				raises = append(raises, trimmed)
			} else {
				inSection = false
			}
		}
	}
	return raises
}

// collectLocals gathers parameters and assigned names of a function with
// their annotated or constructed types.
func (w *pythonWalker) collectLocals(fn *sitter.Node) map[string]string {
	locals := make(map[string]string)
	for _, p := range namedChildren(fn.ChildByFieldName("parameters")) {
		switch p.Kind() {
		case "identifier":
			locals[w.text(p)] = ""
		case "typed_parameter":
			locals[w.text(p.NamedChild(0))] = stripTypeArgs(w.text(p.ChildByFieldName("type")))
		case "default_parameter":
			locals[w.text(p.ChildByFieldName("name"))] = ""
		case "typed_default_parameter":
			locals[w.text(p.ChildByFieldName("name"))] = stripTypeArgs(w.text(p.ChildByFieldName("type")))
		case "list_splat_pattern", "dictionary_splat_pattern":
			if id := findChildByType(p, "identifier"); id != nil {
				locals[w.text(id)] = ""
			}
		}
	}
	walkTree(fn.ChildByFieldName("body"), func(node *sitter.Node) bool {
		switch node.Kind() {
		case "function_definition", "class_definition", "lambda":
			return false
		case "assignment":
			if name, typ, ok := w.assignedName(node, ""); ok {
				if prev, seen := locals[name]; !seen || prev == "" {
					locals[name] = typ
				}
			}
		case "for_statement", "for_in_clause":
			w.bindPattern(node.ChildByFieldName("left"), locals)
		case "as_pattern":
			w.bindPattern(node.ChildByFieldName("alias"), locals)
		case "named_expression":
			if name := node.ChildByFieldName("name"); name != nil {
				locals[w.text(name)] = ""
			}
		}
		return true
	})
	return locals
}

func (w *pythonWalker) bindPattern(n *sitter.Node, locals map[string]string) {
	if n == nil {
		return
	}
	walkTree(n, func(node *sitter.Node) bool {
		if node.Kind() == "identifier" {
			if _, ok := locals[w.text(node)]; !ok {
				locals[w.text(node)] = ""
			}
		}
		return node.Kind() != "attribute" && node.Kind() != "subscript"
	})
}

// walk records every call under n. Nested definitions are handled by
// walkStatement and lambdas are walked in place.
func (w *pythonWalker) walk(n *sitter.Node, ctx *callContext) {
	if w.skip(n) {
		return
	}
	switch n.Kind() {
	case "function_definition", "class_definition", "decorated_definition":
		w.walkStatement(n, ctx.caller, ctx, false)
		return
	case "call":
		w.extractCall(n, ctx)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(uint(i)), ctx)
	}
}

func isPythonSpread(n *sitter.Node) bool {
	return n.Kind() == "list_splat" || n.Kind() == "dictionary_splat"
}

func (w *pythonWalker) extractCall(n *sitter.Node, ctx *callContext) {
	fn := n.ChildByFieldName("function")
	call := extraction.RawCall{
		Caller: ctx.caller,
		Scope:  ctx.scope,
		Line:   startLine(n),
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		if args.Kind() == "generator_expression" {
			call.Args = facts.IntPtr(1)
		} else {
			call.Args = countArgs(args, isPythonSpread)
		}
	}

	switch fn.Kind() {
	case "identifier":
		name := w.text(fn)
		if name == "super" {
			// Recorded through the attribute call it prefixes.
			return
		}
		call.Name = name
		switch {
		case pythonReflection[name]:
			call.Receiver = extraction.RecvDynamic
			call.Reason = "reflection"
		case w.isLocal(ctx, name):
			call.Receiver = extraction.RecvDynamic
			call.Reason = "variable-held function"
		default:
			call.Receiver = extraction.RecvNone
		}
	case "attribute":
		call.Name = w.text(fn.ChildByFieldName("attribute"))
		call.Receiver, call.Target, call.Reason = w.receiver(fn.ChildByFieldName("object"), ctx)
		if pythonReflection[w.text(fn)] {
			call.Receiver, call.Target, call.Reason = extraction.RecvDynamic, "", "reflection"
		}
	default:
		call.Receiver = extraction.RecvDynamic
		call.Reason = "computed callee"
	}
	w.addCall(call)
}

func (w *pythonWalker) isLocal(ctx *callContext, name string) bool {
	_, ok := ctx.localType(name)
	return ok
}

// receiver classifies the object of an attribute call.
func (w *pythonWalker) receiver(obj *sitter.Node, ctx *callContext) (extraction.Receiver, string, string) {
	self, _ := ctx.localType(selfMarker)
	switch obj.Kind() {
	case "call":
		if fn := obj.ChildByFieldName("function"); fn != nil && w.text(fn) == "super" {
			return extraction.RecvSuper, "", ""
		}
		return extraction.RecvDynamic, "", "receiver is a call result"
	case "identifier":
		name := w.text(obj)
		if self != "" && name == self {
			return extraction.RecvSelf, "", ""
		}
		if t, ok := ctx.localType(name); ok {
			if t == "" {
				return extraction.RecvDynamic, "", "untyped variable"
			}
			return extraction.RecvTyped, t, ""
		}
		return extraction.RecvName, name, ""
	case "attribute":
		inner := obj.ChildByFieldName("object")
		if self != "" && inner != nil && inner.Kind() == "identifier" && w.text(inner) == self {
			field := w.text(obj.ChildByFieldName("attribute"))
			if t := w.fields[ctx.scope][field]; t != "" {
				return extraction.RecvTyped, t, ""
			}
			return extraction.RecvDynamic, "", "untyped attribute"
		}
		text := w.text(obj)
		if isIdentifierPath(text) && !w.isLocal(ctx, headSegment(text)) {
			return extraction.RecvName, text, ""
		}
	}
	return extraction.RecvDynamic, "", "computed receiver"
}
