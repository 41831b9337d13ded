package parsers

import (
	"strconv"
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// javaExtractor extracts facts from Java files.
type javaExtractor struct{}

type javaWalker struct {
	*fileState
	// fields maps a local type name to its field types.
	fields map[string]map[string]string
}

var javaReflection = map[string]bool{
	"invoke":            true,
	"newInstance":       true,
	"forName":           true,
	"getMethod":         true,
	"getDeclaredMethod": true,
}

var javaPrimitives = map[string]bool{
	"int": true, "long": true, "short": true, "byte": true, "char": true,
	"boolean": true, "float": true, "double": true, "void": true, "var": true,
}

func isJavaComment(n *sitter.Node) bool {
	return n.Kind() == "line_comment" || n.Kind() == "block_comment"
}

func isJavaTypeDecl(n *sitter.Node) bool {
	switch n.Kind() {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration", "module_declaration":
		return true
	}
	return false
}

// Extract walks a Java compilation unit.
func (javaExtractor) Extract(tree *Tree) *extraction.Result {
	w := &javaWalker{
		fileState: newFileState(tree),
		fields:    make(map[string]map[string]string),
	}
	root := tree.Root

	w.result.ModuleDocstring = w.moduleComment(root, isJavaComment, isJavaTypeDecl)

	for _, child := range namedChildren(root) {
		if w.skip(child) {
			continue
		}
		switch child.Kind() {
		case "package_declaration":
			w.extractPackageName(child)
		case "import_declaration":
			w.extractImport(child)
		case "module_declaration":
			w.extractModule(child)
		default:
			w.extractDeclaration(child, "", nil)
		}
	}
	return w.result
}

// extractPackageName extracts the package name.
func (w *javaWalker) extractPackageName(n *sitter.Node) {
	nameNode := findChildByType(n, "scoped_identifier")
	if nameNode == nil {
		nameNode = findChildByType(n, "identifier")
	}
	w.result.Namespace = w.text(nameNode)
}

// extractImport normalizes single, wildcard, static and static wildcard imports.
func (w *javaWalker) extractImport(n *sitter.Node) {
	text := strings.TrimSpace(w.text(n))
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimSpace(text)

	static := false
	if strings.HasPrefix(text, "static ") {
		static = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "static "))
	}
	text = strings.Join(strings.Fields(text), "")

	imp := extraction.ImportDecl{Static: static, Line: startLine(n)}
	imp.IsFrom = true
	if strings.HasSuffix(text, ".*") {
		imp.Module = strings.TrimSuffix(text, ".*")
		imp.Names = []string{}
	} else {
		i := strings.LastIndex(text, ".")
		if i < 0 {
			imp.Module = text
			imp.IsFrom = false
		} else {
			imp.Module = text[:i]
			imp.Names = []string{text[i+1:]}
		}
	}
	w.addImport(imp)
}

// extractModule records a module-info declaration and its requires directives.
func (w *javaWalker) extractModule(n *sitter.Node) {
	name := w.text(n.ChildByFieldName("name"))
	body := n.ChildByFieldName("body")
	w.addSymbol(facts.Symbol{
		Name:      name,
		Kind:      facts.KindModule,
		Signature: headerText(n, body, w.src),
		Docstring: w.precedingComment(n, isJavaComment),
		LineStart: startLine(n),
		LineEnd:   endLine(n),
	})
	for _, directive := range namedChildren(body) {
		if directive.Kind() != "requires_module_directive" {
			continue
		}
		module := directive.ChildByFieldName("module")
		if module == nil {
			continue
		}
		w.addImport(extraction.ImportDecl{
			Import: facts.Import{Module: w.text(module), Names: []string{}},
			Line:   startLine(directive),
		})
	}
}

// extractDeclaration dispatches a type declaration nested under outer.
func (w *javaWalker) extractDeclaration(n *sitter.Node, outer string, ctx *callContext) {
	switch n.Kind() {
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		w.extractType(n, outer, ctx)
	case "annotation_type_declaration":
		w.unsupported(n, "annotation type declaration")
	}
}

// modifiers returns the keyword modifiers and the annotations of a declaration.
func (w *javaWalker) modifiers(n *sitter.Node) ([]string, []facts.Annotation, *sitter.Node) {
	mods := findChildByType(n, "modifiers")
	if mods == nil {
		return nil, []facts.Annotation{}, nil
	}
	var keywords []string
	annotations := []facts.Annotation{}
	for i := 0; i < int(mods.ChildCount()); i++ {
		child := mods.Child(uint(i))
		switch child.Kind() {
		case "marker_annotation", "annotation":
			annotations = append(annotations, w.extractAnnotation(child))
		case "line_comment", "block_comment":
		default:
			keywords = append(keywords, w.text(child))
		}
	}
	return keywords, annotations, mods
}

// extractAnnotation converts @Name or @Name(args) to an Annotation. A single
// unnamed argument is keyed "value", as Java itself does.
func (w *javaWalker) extractAnnotation(n *sitter.Node) facts.Annotation {
	ann := facts.Annotation{
		Name:      w.text(n.ChildByFieldName("name")),
		Arguments: map[string]string{},
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return ann
	}
	values := namedChildren(args)
	for i, arg := range values {
		if isJavaComment(arg) {
			continue
		}
		if arg.Kind() == "element_value_pair" {
			key := w.text(arg.ChildByFieldName("key"))
			ann.Arguments[key] = unquote(w.text(arg.ChildByFieldName("value")))
			continue
		}
		key := "value"
		if len(values) > 1 {
			key = strconv.Itoa(i)
		}
		ann.Arguments[key] = unquote(w.text(arg))
	}
	return ann
}

// signature renders keywords plus the header without annotations.
func (w *javaWalker) signature(n, body *sitter.Node, keywords []string, mods *sitter.Node) string {
	var header string
	end := n.EndByte()
	if body != nil {
		end = body.StartByte()
	}
	start := n.StartByte()
	if mods != nil {
		start = mods.EndByte()
	}
	if start < end {
		header = collapseSpace(strings.TrimSuffix(strings.TrimSpace(string(w.src[start:end])), ";"))
	}
	if len(keywords) == 0 {
		return header
	}
	return strings.Join(keywords, " ") + " " + header
}

// extractType extracts a class, interface, enum or record and its members.
func (w *javaWalker) extractType(n *sitter.Node, outer string, ctx *callContext) {
	name := joinName(outer, w.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")
	keywords, annotations, mods := w.modifiers(n)

	kind := facts.KindClass
	switch n.Kind() {
	case "interface_declaration":
		kind = facts.KindInterface
	case "enum_declaration":
		kind = facts.KindEnum
	case "record_declaration":
		kind = facts.KindRecord
	}

	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        kind,
		Signature:   w.signature(n, body, keywords, mods),
		Docstring:   w.precedingComment(n, isJavaComment),
		Annotations: annotations,
		LineStart:   startLine(n),
		LineEnd:     endLine(n),
	})

	w.extractSupertypes(n, name)

	w.fields[name] = make(map[string]string)
	if kind == facts.KindRecord {
		w.extractRecordComponents(n, name)
	}
	w.collectFieldTypes(body, name)

	switch kind {
	case facts.KindEnum:
		w.extractEnumBody(body, name)
	default:
		w.extractMembers(body, name)
	}
}

// extractSupertypes records extends/implements edges as written.
func (w *javaWalker) extractSupertypes(n *sitter.Node, name string) {
	line := startLine(n)
	if superclass := n.ChildByFieldName("superclass"); superclass != nil {
		for _, t := range namedChildren(superclass) {
			w.addInheritance(name, w.text(t), line)
		}
	}
	lists := []*sitter.Node{n.ChildByFieldName("interfaces"), findChildByType(n, "extends_interfaces")}
	for _, list := range lists {
		if list == nil {
			continue
		}
		for _, t := range namedChildren(findChildByType(list, "type_list")) {
			w.addInheritance(name, w.text(t), line)
		}
	}
}

func (w *javaWalker) extractRecordComponents(n *sitter.Node, name string) {
	for _, param := range namedChildren(n.ChildByFieldName("parameters")) {
		if param.Kind() != "formal_parameter" {
			continue
		}
		field := w.text(param.ChildByFieldName("name"))
		typ := w.text(param.ChildByFieldName("type"))
		w.fields[name][field] = javaTypeName(typ)
		w.addSymbol(facts.Symbol{
			Name:      joinName(name, field),
			Kind:      facts.KindField,
			Signature: collapseSpace(w.text(param)),
			LineStart: startLine(param),
			LineEnd:   endLine(param),
		})
	}
}

// collectFieldTypes records declared field types before any body is walked,
// so receivers like this.repo resolve regardless of declaration order.
func (w *javaWalker) collectFieldTypes(body *sitter.Node, name string) {
	for _, member := range namedChildren(body) {
		if member.Kind() == "enum_body_declarations" {
			w.collectFieldTypes(member, name)
			continue
		}
		if member.Kind() != "field_declaration" && member.Kind() != "constant_declaration" {
			continue
		}
		typ := javaTypeName(w.text(member.ChildByFieldName("type")))
		for _, decl := range findChildrenByType(member, "variable_declarator") {
			w.fields[name][w.text(decl.ChildByFieldName("name"))] = typ
		}
	}
}

func (w *javaWalker) extractEnumBody(body *sitter.Node, name string) {
	for _, member := range namedChildren(body) {
		if w.skip(member) {
			continue
		}
		switch member.Kind() {
		case "enum_constant":
			constant := w.text(member.ChildByFieldName("name"))
			_, annotations, _ := w.modifiers(member)
			w.addSymbol(facts.Symbol{
				Name:        joinName(name, constant),
				Kind:        facts.KindField,
				Signature:   collapseSpace(w.text(member)),
				Docstring:   w.precedingComment(member, isJavaComment),
				Annotations: annotations,
				LineStart:   startLine(member),
				LineEnd:     endLine(member),
			})
			if args := member.ChildByFieldName("arguments"); args != nil {
				w.walk(args, &callContext{caller: name, scope: name})
			}
		case "enum_body_declarations":
			w.extractMembers(member, name)
		}
	}
}

// extractMembers extracts fields, methods, constructors and nested types.
func (w *javaWalker) extractMembers(body *sitter.Node, name string) {
	for _, member := range namedChildren(body) {
		if w.skip(member) {
			continue
		}
		switch member.Kind() {
		case "field_declaration", "constant_declaration":
			w.extractField(member, name)
		case "method_declaration":
			w.extractMethod(member, name, facts.KindMethod)
		case "constructor_declaration", "compact_constructor_declaration":
			w.extractMethod(member, name, facts.KindConstructor)
		case "static_initializer", "block":
			w.walk(member, &callContext{caller: name, scope: name, locals: w.collectLocals(member)})
		default:
			w.extractDeclaration(member, name, nil)
		}
	}
}

// extractField extracts one Symbol per declarator.
func (w *javaWalker) extractField(n *sitter.Node, owner string) {
	keywords, annotations, _ := w.modifiers(n)
	typ := w.text(n.ChildByFieldName("type"))
	doc := w.precedingComment(n, isJavaComment)
	for _, decl := range findChildrenByType(n, "variable_declarator") {
		field := w.text(decl.ChildByFieldName("name"))
		sig := collapseSpace(strings.Join(append(append([]string{}, keywords...), typ, field), " "))
		w.addSymbol(facts.Symbol{
			Name:        joinName(owner, field),
			Kind:        facts.KindField,
			Signature:   sig,
			Docstring:   doc,
			Annotations: annotations,
			LineStart:   startLine(n),
			LineEnd:     endLine(n),
		})
		if value := decl.ChildByFieldName("value"); value != nil {
			w.walk(value, &callContext{caller: owner, scope: owner, locals: map[string]string{}})
		}
	}
}

// extractMethod extracts a method or constructor and the calls in its body.
func (w *javaWalker) extractMethod(n *sitter.Node, owner string, kind facts.SymbolKind) {
	name := joinName(owner, w.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")
	keywords, annotations, mods := w.modifiers(n)

	var throws []string
	if clause := findChildByType(n, "throws"); clause != nil {
		for _, t := range namedChildren(clause) {
			throws = append(throws, stripTypeArgs(w.text(t)))
		}
	}

	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        kind,
		Signature:   w.signature(n, body, keywords, mods),
		Docstring:   w.precedingComment(n, isJavaComment),
		Annotations: annotations,
		Throws:      throws,
		LineStart:   startLine(n),
		LineEnd:     endLine(n),
	})

	if body != nil {
		ctx := &callContext{caller: name, scope: owner, locals: w.collectLocals(n)}
		w.walk(body, ctx)
	}
}

// collectLocals gathers parameters and local variables of a body with their
// declared or initializer types. Flow-insensitive: one binding per name.
func (w *javaWalker) collectLocals(n *sitter.Node) map[string]string {
	locals := make(map[string]string)
	walkTree(n, func(node *sitter.Node) bool {
		if w.skip(node) {
			return false
		}
		switch node.Kind() {
		case "formal_parameter", "spread_parameter", "catch_formal_parameter", "enhanced_for_statement", "resource":
			name := node.ChildByFieldName("name")
			if name == nil {
				if decl := findChildByType(node, "variable_declarator"); decl != nil {
					name = decl.ChildByFieldName("name")
				}
			}
			if name != nil {
				locals[w.text(name)] = javaTypeName(w.text(node.ChildByFieldName("type")))
			}
		case "local_variable_declaration":
			typ := javaTypeName(w.text(node.ChildByFieldName("type")))
			for _, decl := range findChildrenByType(node, "variable_declarator") {
				t := typ
				if value := decl.ChildByFieldName("value"); t == "" && value != nil && value.Kind() == "object_creation_expression" {
					t = javaTypeName(w.text(value.ChildByFieldName("type")))
				}
				locals[w.text(decl.ChildByFieldName("name"))] = t
			}
		case "lambda_expression":
			params := node.ChildByFieldName("parameters")
			if params != nil && params.Kind() == "identifier" {
				locals[w.text(params)] = ""
			}
			for _, p := range namedChildren(params) {
				if p.Kind() == "identifier" {
					locals[w.text(p)] = ""
				}
			}
		case "class_body":
			return false
		}
		return true
	})
	return locals
}

// javaTypeName reduces a declared type to a name calls can be resolved
// against. Primitives, arrays and var have no such name.
func javaTypeName(typ string) string {
	typ = stripTypeArgs(strings.TrimSpace(typ))
	if typ == "" || javaPrimitives[typ] || strings.HasSuffix(typ, "]") {
		return ""
	}
	if i := strings.LastIndex(typ, " "); i >= 0 {
		typ = typ[i+1:]
	}
	return typ
}

// walk records calls under n and extracts local and anonymous classes.
func (w *javaWalker) walk(n *sitter.Node, ctx *callContext) {
	if w.skip(n) {
		return
	}
	switch n.Kind() {
	case "method_invocation":
		w.extractInvocation(n, ctx)
	case "object_creation_expression":
		w.extractCreation(n, ctx)
		for _, child := range namedChildren(n) {
			if child.Kind() == "class_body" {
				w.walkAnonymous(child, ctx)
			} else {
				w.walk(child, ctx)
			}
		}
		return
	case "explicit_constructor_invocation":
		w.extractConstructorInvocation(n, ctx)
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration",
		"annotation_type_declaration":
		w.extractDeclaration(n, ctx.caller, ctx)
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(uint(i)), ctx)
	}
}

// walkAnonymous attributes calls in an anonymous class body to the enclosing
// declaration. this inside the body is not the enclosing type.
func (w *javaWalker) walkAnonymous(body *sitter.Node, ctx *callContext) {
	anon := *ctx
	anon.anon = true
	for _, member := range namedChildren(body) {
		locals := mergeLocals(ctx.locals, w.collectLocals(member))
		inner := anon
		inner.locals = locals
		w.walk(member, &inner)
	}
}

func (w *javaWalker) extractInvocation(n *sitter.Node, ctx *callContext) {
	name := w.text(n.ChildByFieldName("name"))
	call := extraction.RawCall{
		Caller: ctx.caller,
		Scope:  ctx.scope,
		Name:   name,
		Line:   startLine(n),
		Args:   countArgs(n.ChildByFieldName("arguments"), func(*sitter.Node) bool { return false }),
	}

	if javaReflection[name] {
		call.Receiver = extraction.RecvDynamic
		call.Reason = "reflection"
		w.addCall(call)
		return
	}

	obj := n.ChildByFieldName("object")
	if obj == nil {
		call.Receiver = extraction.RecvNone
		if ctx.anon {
			call.Receiver = extraction.RecvDynamic
			call.Reason = "anonymous class member"
		}
		w.addCall(call)
		return
	}
	call.Receiver, call.Target, call.Reason = w.receiver(obj, ctx)
	w.addCall(call)
}

// receiver classifies the object of a method invocation.
func (w *javaWalker) receiver(obj *sitter.Node, ctx *callContext) (extraction.Receiver, string, string) {
	switch obj.Kind() {
	case "this":
		if ctx.anon {
			return extraction.RecvDynamic, "", "anonymous class receiver"
		}
		return extraction.RecvSelf, "", ""
	case "super":
		if ctx.anon {
			return extraction.RecvDynamic, "", "anonymous class receiver"
		}
		return extraction.RecvSuper, "", ""
	case "identifier":
		name := w.text(obj)
		if t, ok := ctx.localType(name); ok {
			if t == "" {
				return extraction.RecvDynamic, "", "untyped variable"
			}
			return extraction.RecvTyped, t, ""
		}
		if t, ok := w.fieldType(ctx.scope, name); ok {
			if t == "" {
				return extraction.RecvDynamic, "", "untyped field"
			}
			return extraction.RecvTyped, t, ""
		}
		return extraction.RecvName, name, ""
	case "field_access":
		inner := obj.ChildByFieldName("object")
		field := w.text(obj.ChildByFieldName("field"))
		if inner != nil && inner.Kind() == "this" && !ctx.anon {
			if t, ok := w.fieldType(ctx.scope, field); ok && t != "" {
				return extraction.RecvTyped, t, ""
			}
			return extraction.RecvDynamic, "", "untyped field"
		}
		text := strings.Join(strings.Fields(w.text(obj)), "")
		if isIdentifierPath(text) {
			if _, local := ctx.localType(headSegment(text)); !local {
				if _, field := w.fieldType(ctx.scope, headSegment(text)); !field {
					return extraction.RecvName, text, ""
				}
			}
		}
		return extraction.RecvDynamic, "", "computed receiver"
	case "scoped_identifier":
		return extraction.RecvName, w.text(obj), ""
	case "object_creation_expression":
		if t := javaTypeName(w.text(obj.ChildByFieldName("type"))); t != "" {
			return extraction.RecvTyped, t, ""
		}
	case "method_invocation":
		return extraction.RecvDynamic, "", "receiver is a call result"
	}
	return extraction.RecvDynamic, "", "computed receiver"
}

// fieldType looks a field up in the enclosing type and its lexical outers.
func (w *javaWalker) fieldType(scope, name string) (string, bool) {
	for scope != "" {
		if t, ok := w.fields[scope][name]; ok {
			return t, true
		}
		i := strings.LastIndex(scope, ".")
		if i < 0 {
			break
		}
		scope = scope[:i]
	}
	return "", false
}

func (w *javaWalker) extractCreation(n *sitter.Node, ctx *callContext) {
	typ := stripTypeArgs(w.text(n.ChildByFieldName("type")))
	w.addCall(extraction.RawCall{
		Caller:   ctx.caller,
		Scope:    ctx.scope,
		Receiver: extraction.RecvNone,
		Name:     typ,
		New:      true,
		Line:     startLine(n),
		Args:     countArgs(n.ChildByFieldName("arguments"), func(*sitter.Node) bool { return false }),
	})
}

// extractConstructorInvocation handles explicit super(...) and this(...).
func (w *javaWalker) extractConstructorInvocation(n *sitter.Node, ctx *callContext) {
	ctor := n.ChildByFieldName("constructor")
	recv := extraction.RecvSelf
	if ctor != nil && ctor.Kind() == "super" {
		recv = extraction.RecvSuper
	}
	w.addCall(extraction.RawCall{
		Caller:   ctx.caller,
		Scope:    ctx.scope,
		Receiver: recv,
		New:      true,
		Line:     startLine(n),
		Args:     countArgs(n.ChildByFieldName("arguments"), func(*sitter.Node) bool { return false }),
	})
}
