package parsers

import (
	"strconv"
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// typescriptExtractor extracts facts from TypeScript, TSX and JavaScript
// files. The JavaScript grammar is a subset of the TypeScript one, so the
// same walker serves all three.
type typescriptExtractor struct{}

type typescriptWalker struct {
	*fileState
	fields map[string]map[string]string
}

var tsReflection = map[string]bool{
	"eval":     true,
	"Function": true,
}

func isTSComment(n *sitter.Node) bool {
	return n.Kind() == "comment"
}

func isTSDecl(n *sitter.Node) bool {
	switch n.Kind() {
	case "class_declaration", "abstract_class_declaration", "interface_declaration",
		"function_declaration", "generator_function_declaration", "enum_declaration",
		"type_alias_declaration", "export_statement", "lexical_declaration", "variable_declaration":
		return true
	}
	return false
}

// Extract walks a TypeScript or JavaScript program.
func (typescriptExtractor) Extract(tree *Tree) *extraction.Result {
	w := &typescriptWalker{
		fileState: newFileState(tree),
		fields:    make(map[string]map[string]string),
	}
	root := tree.Root

	w.result.ModuleDocstring = w.moduleComment(root, isTSComment, isTSDecl)

	ctx := &callContext{locals: map[string]string{}}
	w.walkStatements(root, "", ctx, true)
	return w.result
}

// walkStatements handles the statements of a program, namespace or function
// body. outer is the dotted name that nested declarations are placed under.
func (w *typescriptWalker) walkStatements(n *sitter.Node, outer string, ctx *callContext, topLevel bool) {
	for _, stmt := range namedChildren(n) {
		w.walkStatement(stmt, stmt, outer, ctx, topLevel)
	}
}

// walkStatement handles one statement. anchor is the node comments attach to
// (the export statement for exported declarations).
func (w *typescriptWalker) walkStatement(stmt, anchor *sitter.Node, outer string, ctx *callContext, topLevel bool) {
	if w.skip(stmt) {
		return
	}
	switch stmt.Kind() {
	case "comment", "hash_bang_line", "empty_statement":
	case "import_statement":
		w.extractImport(stmt)
	case "export_statement":
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			w.walkStatement(decl, stmt, outer, ctx, topLevel)
			return
		}
		for _, child := range namedChildren(stmt) {
			if child.Kind() == "class_declaration" || child.Kind() == "abstract_class_declaration" ||
				child.Kind() == "function_declaration" || child.Kind() == "generator_function_declaration" {
				w.walkStatement(child, stmt, outer, ctx, topLevel)
				return
			}
		}
		w.walk(stmt, ctx)
	case "class_declaration", "abstract_class_declaration", "class":
		w.extractClass(stmt, anchor, outer)
	case "interface_declaration":
		w.extractInterface(stmt, anchor, outer)
	case "type_alias_declaration":
		w.addSymbol(facts.Symbol{
			Name:      joinName(outer, w.text(stmt.ChildByFieldName("name"))),
			Kind:      facts.KindTypeAlias,
			Signature: collapseSpace(strings.TrimSuffix(w.text(stmt), ";")),
			Docstring: w.precedingComment(anchor, isTSComment),
			LineStart: startLine(stmt),
			LineEnd:   endLine(stmt),
		})
	case "enum_declaration":
		w.extractEnum(stmt, anchor, outer)
	case "function_declaration", "generator_function_declaration":
		w.extractFunction(stmt, anchor, joinName(outer, w.text(stmt.ChildByFieldName("name"))), "", facts.KindFunction, nil)
	case "lexical_declaration", "variable_declaration":
		w.extractVariables(stmt, anchor, outer, ctx, topLevel)
	case "internal_module", "module":
		w.extractNamespace(stmt, anchor, outer, ctx)
	case "expression_statement":
		if inner := stmt.NamedChild(0); inner != nil && (inner.Kind() == "internal_module" || inner.Kind() == "module") {
			w.extractNamespace(inner, anchor, outer, ctx)
			return
		}
		w.walk(stmt, ctx)
	case "ambient_declaration":
		for _, child := range namedChildren(stmt) {
			w.walkStatement(child, anchor, outer, ctx, topLevel)
		}
	case "with_statement":
		w.unsupported(stmt, "with statement")
	default:
		w.walk(stmt, ctx)
	}
}

// extractImport normalizes ES imports. Default and namespace imports bind
// the module itself; named imports are split per name.
func (w *typescriptWalker) extractImport(n *sitter.Node) {
	source := unquote(w.text(n.ChildByFieldName("source")))
	line := startLine(n)
	clause := findChildByType(n, "import_clause")
	if clause == nil {
		if req := findChildByType(n, "import_require_clause"); req != nil {
			alias := w.text(findChildByType(req, "identifier"))
			if src := req.ChildByFieldName("source"); src != nil {
				source = unquote(w.text(src))
			}
			w.addImport(extraction.ImportDecl{
				Import: facts.Import{Module: source, Names: []string{}, Alias: facts.StringPtr(alias)},
				Line:   line,
			})
			return
		}
		w.addImport(extraction.ImportDecl{Import: facts.Import{Module: source, Names: []string{}}, Line: line})
		return
	}
	for _, part := range namedChildren(clause) {
		switch part.Kind() {
		case "identifier":
			w.addImport(extraction.ImportDecl{
				Import: facts.Import{Module: source, Names: []string{}, Alias: facts.StringPtr(w.text(part))},
				Line:   line,
			})
		case "namespace_import":
			w.addImport(extraction.ImportDecl{
				Import: facts.Import{Module: source, Names: []string{}, Alias: facts.StringPtr(w.text(findChildByType(part, "identifier")))},
				Line:   line,
			})
		case "named_imports":
			for _, spec := range findChildrenByType(part, "import_specifier") {
				imp := facts.Import{Module: source, Names: []string{w.text(spec.ChildByFieldName("name"))}, IsFrom: true}
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					imp.Alias = facts.StringPtr(w.text(alias))
				}
				w.addImport(extraction.ImportDecl{Import: imp, Line: line})
			}
		}
	}
}

// requireSource returns the module of a require('m') call, or "".
func (w *typescriptWalker) requireSource(value *sitter.Node) string {
	if value == nil || value.Kind() != "call_expression" {
		return ""
	}
	fn := value.ChildByFieldName("function")
	if fn == nil || w.text(fn) != "require" {
		return ""
	}
	args := namedChildren(value.ChildByFieldName("arguments"))
	if len(args) != 1 || args[0].Kind() != "string" {
		return ""
	}
	return unquote(w.text(args[0]))
}

// extractVariables handles const/let/var declarations: CommonJS requires
// become imports, top-level function values become functions, other
// top-level bindings become variables.
func (w *typescriptWalker) extractVariables(n, anchor *sitter.Node, outer string, ctx *callContext, topLevel bool) {
	for _, decl := range findChildrenByType(n, "variable_declarator") {
		nameNode := decl.ChildByFieldName("name")
		value := decl.ChildByFieldName("value")
		line := startLine(n)

		if module := w.requireSource(value); module != "" {
			switch nameNode.Kind() {
			case "identifier":
				w.addImport(extraction.ImportDecl{
					Import: facts.Import{Module: module, Names: []string{}, Alias: facts.StringPtr(w.text(nameNode))},
					Line:   line,
				})
			case "object_pattern":
				w.extractRequirePattern(nameNode, module, line)
			}
			continue
		}

		if nameNode == nil || nameNode.Kind() != "identifier" {
			w.walk(decl, ctx)
			continue
		}
		name := joinName(outer, w.text(nameNode))

		if value != nil && isTSFunctionValue(value) && topLevel {
			w.extractFunction(value, anchor, name, "", facts.KindFunction, nil)
			continue
		}
		if topLevel {
			w.addSymbol(facts.Symbol{
				Name:      name,
				Kind:      facts.KindVariable,
				Signature: collapseSpace(strings.TrimSuffix(firstLine(w.text(n)), ";")),
				Docstring: w.precedingComment(anchor, isTSComment),
				LineStart: startLine(n),
				LineEnd:   endLine(n),
			})
		}
		if value != nil {
			w.walk(value, ctx)
		}
	}
}

func (w *typescriptWalker) extractRequirePattern(pattern *sitter.Node, module string, line int) {
	for _, prop := range namedChildren(pattern) {
		imp := facts.Import{Module: module, IsFrom: true}
		switch prop.Kind() {
		case "shorthand_property_identifier_pattern":
			imp.Names = []string{w.text(prop)}
		case "pair_pattern":
			imp.Names = []string{w.text(prop.ChildByFieldName("key"))}
			imp.Alias = facts.StringPtr(w.text(prop.ChildByFieldName("value")))
		default:
			continue
		}
		w.addImport(extraction.ImportDecl{Import: imp, Line: line})
	}
}

func isTSFunctionValue(n *sitter.Node) bool {
	switch n.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func (w *typescriptWalker) extractNamespace(n, anchor *sitter.Node, outer string, ctx *callContext) {
	name := joinName(outer, unquote(w.text(n.ChildByFieldName("name"))))
	body := n.ChildByFieldName("body")
	w.addSymbol(facts.Symbol{
		Name:      name,
		Kind:      facts.KindNamespace,
		Signature: headerText(n, body, w.src),
		Docstring: w.precedingComment(anchor, isTSComment),
		LineStart: startLine(n),
		LineEnd:   endLine(n),
	})
	if body != nil {
		w.walkStatements(body, name, ctx.withCaller(name), true)
	}
}

// decorators collects decorators on node and on an enclosing export.
func (w *typescriptWalker) decorators(nodes ...*sitter.Node) []facts.Annotation {
	annotations := []facts.Annotation{}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		for _, dec := range findChildrenByType(n, "decorator") {
			annotations = append(annotations, w.extractDecorator(dec))
		}
	}
	return annotations
}

// extractDecorator converts @name or @name(args). A single object literal
// argument is flattened into the arguments map.
func (w *typescriptWalker) extractDecorator(n *sitter.Node) facts.Annotation {
	ann := facts.Annotation{Arguments: map[string]string{}}
	expr := n.NamedChild(0)
	if expr == nil {
		return ann
	}
	if expr.Kind() != "call_expression" {
		ann.Name = w.text(expr)
		return ann
	}
	ann.Name = w.text(expr.ChildByFieldName("function"))
	var args []*sitter.Node
	for _, arg := range namedChildren(expr.ChildByFieldName("arguments")) {
		if !isTSComment(arg) {
			args = append(args, arg)
		}
	}
	if len(args) == 1 && args[0].Kind() == "object" {
		for _, prop := range namedChildren(args[0]) {
			switch prop.Kind() {
			case "pair":
				ann.Arguments[unquote(w.text(prop.ChildByFieldName("key")))] = unquote(w.text(prop.ChildByFieldName("value")))
			case "shorthand_property_identifier":
				ann.Arguments[w.text(prop)] = w.text(prop)
			}
		}
		return ann
	}
	for i, arg := range args {
		ann.Arguments[strconv.Itoa(i)] = unquote(w.text(arg))
	}
	return ann
}

// signature renders the header without decorators.
func (w *typescriptWalker) signature(n, body *sitter.Node) string {
	start := n.StartByte()
	for _, dec := range findChildrenByType(n, "decorator") {
		if dec.EndByte() > start {
			start = dec.EndByte()
		}
	}
	end := n.EndByte()
	if body != nil {
		end = body.StartByte()
	}
	if start >= end {
		return ""
	}
	return collapseSpace(strings.TrimSuffix(strings.TrimSpace(string(w.src[start:end])), ";"))
}

// extractClass extracts a class, its heritage and members.
func (w *typescriptWalker) extractClass(n, anchor *sitter.Node, outer string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := joinName(outer, w.text(nameNode))
	body := n.ChildByFieldName("body")
	doc := w.precedingComment(anchor, isTSComment)

	var exportNode *sitter.Node
	if anchor != nil && anchor.Kind() == "export_statement" {
		exportNode = anchor
	}
	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        facts.KindClass,
		Signature:   w.signature(n, body),
		Docstring:   doc,
		Annotations: w.decorators(exportNode, n),
		LineStart:   startLine(n),
		LineEnd:     endLine(n),
	})

	line := startLine(n)
	if heritage := findChildByType(n, "class_heritage"); heritage != nil {
		for _, part := range namedChildren(heritage) {
			switch part.Kind() {
			case "extends_clause", "implements_clause":
				for _, t := range namedChildren(part) {
					if t.Kind() == "type_arguments" {
						continue
					}
					w.addInheritance(name, w.text(t), line)
				}
			case "comment":
			default:
				w.addInheritance(name, w.text(part), line)
			}
		}
	}

	w.fields[name] = make(map[string]string)
	w.collectFieldTypes(body, name)

	for _, member := range namedChildren(body) {
		if w.skip(member) {
			continue
		}
		switch member.Kind() {
		case "method_definition", "abstract_method_signature", "method_signature":
			short := unquote(w.text(member.ChildByFieldName("name")))
			kind := facts.KindMethod
			if short == "constructor" {
				kind = facts.KindConstructor
				w.extractParameterProperties(member, name)
			}
			w.extractFunction(member, member, joinName(name, short), name, kind, w.decorators(member))
		case "public_field_definition", "field_definition":
			w.extractField(member, name)
		case "class_static_block":
			w.walk(member, &callContext{caller: name, scope: name, locals: map[string]string{}})
		}
	}
}

// collectFieldTypes records declared field types and constructor parameter
// properties.
func (w *typescriptWalker) collectFieldTypes(body *sitter.Node, class string) {
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "public_field_definition", "field_definition":
			typ := tsTypeName(w.text(member.ChildByFieldName("type")))
			if typ == "" {
				typ = w.constructedType(member.ChildByFieldName("value"))
			}
			w.fields[class][w.fieldName(member)] = typ
		case "method_definition":
			if w.text(member.ChildByFieldName("name")) != "constructor" {
				continue
			}
			for _, p := range namedChildren(member.ChildByFieldName("parameters")) {
				if findChildByType(p, "accessibility_modifier") != nil || findChildByType(p, "readonly") != nil {
					w.fields[class][w.text(p.ChildByFieldName("pattern"))] = tsTypeName(w.text(p.ChildByFieldName("type")))
				}
			}
		}
	}
}

func (w *typescriptWalker) fieldName(member *sitter.Node) string {
	if name := member.ChildByFieldName("name"); name != nil {
		return unquote(w.text(name))
	}
	return unquote(w.text(member.ChildByFieldName("property")))
}

// tsTypeName reduces a type annotation to a class name.
func tsTypeName(typ string) string {
	typ = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(typ), ":"))
	typ = stripTypeArgs(typ)
	if typ == "" || strings.ContainsAny(typ, "|&[]{}()'\"=") || !isIdentifierPath(typ) {
		return ""
	}
	switch typ {
	case "string", "number", "boolean", "any", "unknown", "void", "never", "object", "bigint", "symbol", "undefined", "null":
		return ""
	}
	return typ
}

// constructedType returns T for new T(...).
func (w *typescriptWalker) constructedType(value *sitter.Node) string {
	if value == nil || value.Kind() != "new_expression" {
		return ""
	}
	ctor := w.text(value.ChildByFieldName("constructor"))
	if isIdentifierPath(ctor) {
		return ctor
	}
	return ""
}

// extractParameterProperties records constructor parameters declared with
// an accessibility modifier as fields.
func (w *typescriptWalker) extractParameterProperties(ctor *sitter.Node, class string) {
	for _, p := range namedChildren(ctor.ChildByFieldName("parameters")) {
		if findChildByType(p, "accessibility_modifier") == nil && findChildByType(p, "readonly") == nil {
			continue
		}
		w.addSymbol(facts.Symbol{
			Name:      joinName(class, w.text(p.ChildByFieldName("pattern"))),
			Kind:      facts.KindField,
			Signature: collapseSpace(w.text(p)),
			LineStart: startLine(p),
			LineEnd:   endLine(p),
		})
	}
}

func (w *typescriptWalker) extractField(member *sitter.Node, class string) {
	name := joinName(class, w.fieldName(member))
	value := member.ChildByFieldName("value")
	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        facts.KindField,
		Signature:   collapseSpace(strings.TrimSuffix(firstLine(w.signature(member, nil)), ";")),
		Docstring:   w.precedingComment(member, isTSComment),
		Annotations: w.decorators(member),
		LineStart:   startLine(member),
		LineEnd:     endLine(member),
	})
	if value == nil {
		return
	}
	if isTSFunctionValue(value) {
		ctx := &callContext{caller: name, scope: class, locals: w.collectLocals(value)}
		w.walk(value.ChildByFieldName("body"), ctx)
		return
	}
	w.walk(value, &callContext{caller: class, scope: class, locals: map[string]string{}})
}

// extractInterface extracts an interface with its extends list and member
// signatures.
func (w *typescriptWalker) extractInterface(n, anchor *sitter.Node, outer string) {
	name := joinName(outer, w.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")
	w.addSymbol(facts.Symbol{
		Name:      name,
		Kind:      facts.KindInterface,
		Signature: w.signature(n, body),
		Docstring: w.precedingComment(anchor, isTSComment),
		LineStart: startLine(n),
		LineEnd:   endLine(n),
	})
	if ext := findChildByType(n, "extends_type_clause"); ext != nil {
		for _, t := range namedChildren(ext) {
			w.addInheritance(name, w.text(t), startLine(n))
		}
	}
	for _, member := range namedChildren(body) {
		if w.skip(member) {
			continue
		}
		kind := facts.KindField
		switch member.Kind() {
		case "method_signature":
			kind = facts.KindMethod
		case "property_signature":
		default:
			continue
		}
		doc := w.precedingComment(member, isTSComment)
		w.addSymbol(facts.Symbol{
			Name:      joinName(name, unquote(w.text(member.ChildByFieldName("name")))),
			Kind:      kind,
			Signature: collapseSpace(strings.TrimRight(w.text(member), ";,")),
			Docstring: doc,
			Throws:    docThrows(doc),
			LineStart: startLine(member),
			LineEnd:   endLine(member),
		})
	}
}

func (w *typescriptWalker) extractEnum(n, anchor *sitter.Node, outer string) {
	name := joinName(outer, w.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")
	w.addSymbol(facts.Symbol{
		Name:      name,
		Kind:      facts.KindEnum,
		Signature: w.signature(n, body),
		Docstring: w.precedingComment(anchor, isTSComment),
		LineStart: startLine(n),
		LineEnd:   endLine(n),
	})
	for _, member := range namedChildren(body) {
		var memberName string
		switch member.Kind() {
		case "property_identifier", "string":
			memberName = unquote(w.text(member))
		case "enum_assignment":
			memberName = unquote(w.text(member.ChildByFieldName("name")))
		default:
			continue
		}
		w.addSymbol(facts.Symbol{
			Name:      joinName(name, memberName),
			Kind:      facts.KindField,
			Signature: collapseSpace(w.text(member)),
			LineStart: startLine(member),
			LineEnd:   endLine(member),
		})
	}
}

// extractFunction extracts a function, method or arrow function bound to a
// name, and walks its body.
func (w *typescriptWalker) extractFunction(n, anchor *sitter.Node, name, class string, kind facts.SymbolKind, annotations []facts.Annotation) {
	body := n.ChildByFieldName("body")
	doc := w.precedingComment(anchor, isTSComment)

	sig := w.signature(n, body)
	if isTSFunctionValue(n) {
		sig = collapseSpace(lastSegment(name) + " = " + sig)
	}

	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        kind,
		Signature:   sig,
		Docstring:   doc,
		Annotations: annotations,
		Throws:      docThrows(doc),
		LineStart:   startLine(anchor),
		LineEnd:     endLine(anchor),
	})

	if body == nil {
		return
	}
	ctx := &callContext{caller: name, scope: class, locals: w.collectLocals(n)}
	if body.Kind() == "statement_block" {
		w.walkStatements(body, name, ctx, false)
		return
	}
	w.walk(body, ctx)
}

// collectLocals gathers parameters and variables of a function body.
func (w *typescriptWalker) collectLocals(fn *sitter.Node) map[string]string {
	locals := make(map[string]string)
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		if p := fn.ChildByFieldName("parameter"); p != nil {
			locals[w.text(p)] = ""
		}
	}
	for _, p := range namedChildren(params) {
		switch p.Kind() {
		case "identifier":
			locals[w.text(p)] = ""
		case "required_parameter", "optional_parameter":
			pattern := p.ChildByFieldName("pattern")
			if pattern != nil && pattern.Kind() == "identifier" {
				locals[w.text(pattern)] = tsTypeName(w.text(p.ChildByFieldName("type")))
			} else {
				w.bindPattern(pattern, locals)
			}
		default:
			w.bindPattern(p, locals)
		}
	}
	walkTree(fn.ChildByFieldName("body"), func(node *sitter.Node) bool {
		switch node.Kind() {
		case "function_declaration", "generator_function_declaration", "class_declaration", "class":
			return false
		case "variable_declarator":
			name := node.ChildByFieldName("name")
			if name == nil {
				return true
			}
			if name.Kind() != "identifier" {
				w.bindPattern(name, locals)
				return true
			}
			typ := tsTypeName(w.text(node.ChildByFieldName("type")))
			if typ == "" {
				typ = w.constructedType(node.ChildByFieldName("value"))
			}
			locals[w.text(name)] = typ
		case "for_in_statement":
			w.bindPattern(node.ChildByFieldName("left"), locals)
		case "catch_clause":
			w.bindPattern(node.ChildByFieldName("parameter"), locals)
		case "arrow_function", "function_expression", "function":
			for k, v := range w.collectLocals(node) {
				if _, ok := locals[k]; !ok {
					locals[k] = v
				}
			}
			return false
		}
		return true
	})
	return locals
}

func (w *typescriptWalker) bindPattern(n *sitter.Node, locals map[string]string) {
	if n == nil {
		return
	}
	walkTree(n, func(node *sitter.Node) bool {
		switch node.Kind() {
		case "identifier", "shorthand_property_identifier_pattern":
			if _, ok := locals[w.text(node)]; !ok {
				locals[w.text(node)] = ""
			}
		case "type_annotation", "member_expression":
			return false
		}
		return true
	})
}

// walk records calls under n. Declarations nested in expressions (class
// expressions, object literal methods) are walked in place.
func (w *typescriptWalker) walk(n *sitter.Node, ctx *callContext) {
	if w.skip(n) {
		return
	}
	switch n.Kind() {
	case "call_expression":
		w.extractCall(n, ctx)
	case "new_expression":
		w.extractNew(n, ctx)
	case "function_declaration", "generator_function_declaration":
		w.extractFunction(n, n, joinName(ctx.caller, w.text(n.ChildByFieldName("name"))), "", facts.KindFunction, nil)
		return
	case "class_declaration", "abstract_class_declaration":
		w.extractClass(n, n, ctx.caller)
		return
	case "with_statement":
		w.unsupported(n, "with statement")
	case "object", "class":
		anon := *ctx
		anon.anon = true
		for i := 0; i < int(n.ChildCount()); i++ {
			w.walk(n.Child(uint(i)), &anon)
		}
		return
	case "arrow_function", "function_expression", "function":
		inner := *ctx
		inner.locals = mergeLocals(ctx.locals, w.collectLocals(n))
		if n.Kind() != "arrow_function" {
			// A non-arrow function rebinds this.
			inner.anon = true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			w.walk(n.Child(uint(i)), &inner)
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(uint(i)), ctx)
	}
}

func isTSSpread(n *sitter.Node) bool {
	return n.Kind() == "spread_element"
}

func (w *typescriptWalker) extractCall(n *sitter.Node, ctx *callContext) {
	fn := n.ChildByFieldName("function")
	call := extraction.RawCall{
		Caller: ctx.caller,
		Scope:  ctx.scope,
		Line:   startLine(n),
		Args:   countArgs(n.ChildByFieldName("arguments"), isTSSpread),
	}
	if fn == nil {
		return
	}

	switch fn.Kind() {
	case "identifier":
		name := w.text(fn)
		if name == "require" && w.requireSource(n) != "" {
			return
		}
		call.Name = name
		switch {
		case tsReflection[name]:
			call.Receiver, call.Reason = extraction.RecvDynamic, "reflection"
		default:
			if _, local := ctx.localType(name); local {
				call.Receiver, call.Reason = extraction.RecvDynamic, "variable-held function"
			} else {
				call.Receiver = extraction.RecvNone
			}
		}
	case "super":
		call.New = true
		call.Receiver = extraction.RecvSuper
		if ctx.scope == "" || ctx.anon {
			call.Receiver, call.Reason = extraction.RecvDynamic, "unbound super"
		}
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			call.Receiver, call.Reason = extraction.RecvDynamic, "computed member"
			break
		}
		call.Name = w.text(prop)
		call.Receiver, call.Target, call.Reason = w.receiver(fn.ChildByFieldName("object"), ctx)
	case "subscript_expression":
		call.Receiver, call.Reason = extraction.RecvDynamic, "computed member"
	default:
		call.Receiver, call.Reason = extraction.RecvDynamic, "computed callee"
	}
	w.addCall(call)
}

// receiver classifies the object of a member call.
func (w *typescriptWalker) receiver(obj *sitter.Node, ctx *callContext) (extraction.Receiver, string, string) {
	if obj == nil {
		return extraction.RecvDynamic, "", "computed receiver"
	}
	switch obj.Kind() {
	case "this":
		if ctx.anon || ctx.scope == "" {
			return extraction.RecvDynamic, "", "unbound this"
		}
		return extraction.RecvSelf, "", ""
	case "super":
		if ctx.anon || ctx.scope == "" {
			return extraction.RecvDynamic, "", "unbound super"
		}
		return extraction.RecvSuper, "", ""
	case "identifier":
		name := w.text(obj)
		if name == "Reflect" {
			return extraction.RecvDynamic, "", "reflection"
		}
		if t, ok := ctx.localType(name); ok {
			if t == "" {
				return extraction.RecvDynamic, "", "untyped variable"
			}
			return extraction.RecvTyped, t, ""
		}
		return extraction.RecvName, name, ""
	case "member_expression":
		inner := obj.ChildByFieldName("object")
		if inner != nil && inner.Kind() == "this" && !ctx.anon && ctx.scope != "" {
			if t := w.fields[ctx.scope][w.text(obj.ChildByFieldName("property"))]; t != "" {
				return extraction.RecvTyped, t, ""
			}
			return extraction.RecvDynamic, "", "untyped field"
		}
		text := w.text(obj)
		if isIdentifierPath(text) {
			if _, local := ctx.localType(headSegment(text)); !local {
				return extraction.RecvName, text, ""
			}
		}
	case "new_expression":
		if t := w.constructedType(obj); t != "" {
			return extraction.RecvTyped, t, ""
		}
	case "parenthesized_expression":
		if inner := obj.NamedChild(0); inner != nil && inner.Kind() == "new_expression" {
			return w.receiver(inner, ctx)
		}
	case "call_expression", "await_expression":
		return extraction.RecvDynamic, "", "receiver is a call result"
	}
	return extraction.RecvDynamic, "", "computed receiver"
}

func (w *typescriptWalker) extractNew(n *sitter.Node, ctx *callContext) {
	ctor := n.ChildByFieldName("constructor")
	call := extraction.RawCall{
		Caller: ctx.caller,
		Scope:  ctx.scope,
		New:    true,
		Line:   startLine(n),
		Args:   countCreationArgs(n.ChildByFieldName("arguments"), isTSSpread),
	}
	text := w.text(ctor)
	switch {
	case ctor == nil:
		return
	case tsReflection[text]:
		call.Receiver, call.Reason = extraction.RecvDynamic, "reflection"
	case isIdentifierPath(text):
		if _, local := ctx.localType(headSegment(text)); local {
			call.Receiver, call.Reason = extraction.RecvDynamic, "variable-held class"
		} else {
			call.Receiver, call.Name = extraction.RecvNone, text
		}
	default:
		call.Receiver, call.Reason = extraction.RecvDynamic, "computed class"
	}
	w.addCall(call)
}
