package parsers

import (
	"strconv"
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// phpExtractor extracts facts from PHP files.
type phpExtractor struct{}

type phpWalker struct {
	*fileState
	fields map[string]map[string]string
}

var phpReflection = map[string]bool{
	"call_user_func":            true,
	"call_user_func_array":      true,
	"forward_static_call":       true,
	"forward_static_call_array": true,
}

var phpScalarTypes = map[string]bool{
	"int": true, "integer": true, "string": true, "float": true, "bool": true, "boolean": true,
	"array": true, "mixed": true, "void": true, "callable": true, "iterable": true, "object": true,
	"null": true, "never": true, "false": true, "true": true, "self": true, "static": true,
}

func isPHPComment(n *sitter.Node) bool {
	return n.Kind() == "comment"
}

func isPHPDecl(n *sitter.Node) bool {
	switch n.Kind() {
	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration",
		"function_definition":
		return true
	}
	return false
}

func isPHPName(n *sitter.Node) bool {
	return n.Kind() == "name" || n.Kind() == "qualified_name"
}

// Extract walks a PHP program.
func (phpExtractor) Extract(tree *Tree) *extraction.Result {
	w := &phpWalker{
		fileState: newFileState(tree),
		fields:    make(map[string]map[string]string),
	}
	root := tree.Root

	w.result.ModuleDocstring = w.moduleComment(root, isPHPComment, isPHPDecl)

	ctx := &callContext{locals: map[string]string{}}
	w.walkStatements(root, ctx)
	return w.result
}

// walkStatements handles the statements of a program or namespace body.
func (w *phpWalker) walkStatements(n *sitter.Node, ctx *callContext) {
	for _, stmt := range namedChildren(n) {
		if w.skip(stmt) {
			continue
		}
		switch stmt.Kind() {
		case "php_tag", "text", "text_interpolation", "comment":
		case "namespace_definition":
			w.extractNamespace(stmt, ctx)
		case "namespace_use_declaration":
			w.extractUse(stmt)
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			w.extractType(stmt)
		case "function_definition":
			w.extractFunction(stmt, "", facts.KindFunction)
		case "const_declaration":
			w.extractConstants(stmt, "", facts.KindVariable)
		default:
			w.walk(stmt, ctx)
		}
	}
}

func (w *phpWalker) extractNamespace(n *sitter.Node, ctx *callContext) {
	name := strings.TrimPrefix(w.text(n.ChildByFieldName("name")), `\`)
	body := n.ChildByFieldName("body")
	if w.result.Namespace == "" {
		w.result.Namespace = name
	}
	if name != "" {
		w.addSymbol(facts.Symbol{
			Name:      name,
			Kind:      facts.KindNamespace,
			Signature: "namespace " + name,
			Docstring: w.precedingComment(n, isPHPComment),
			LineStart: startLine(n),
			LineEnd:   endLine(n),
		})
	}
	if body != nil {
		w.walkStatements(body, ctx)
	}
}

// extractUse normalizes use declarations: single, aliased, grouped and the
// function/const forms. Each imported name becomes one Import.
func (w *phpWalker) extractUse(n *sitter.Node) {
	text := strings.TrimSpace(w.text(n))
	text = strings.TrimPrefix(text, "use")
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	text = stripUseKind(text)

	line := startLine(n)
	if open := strings.Index(text, "{"); open >= 0 {
		prefix := strings.TrimSuffix(strings.TrimSpace(text[:open]), `\`)
		inner := strings.TrimSuffix(strings.TrimSpace(text[open+1:]), "}")
		for _, item := range strings.Split(inner, ",") {
			item = stripUseKind(strings.TrimSpace(item))
			if item == "" {
				continue
			}
			w.addUseClause(prefix+`\`+item, line)
		}
		return
	}
	for _, item := range strings.Split(text, ",") {
		if item = strings.TrimSpace(item); item != "" {
			w.addUseClause(item, line)
		}
	}
}

func stripUseKind(s string) string {
	for _, kw := range []string{"function ", "const "} {
		if strings.HasPrefix(s, kw) {
			return strings.TrimSpace(strings.TrimPrefix(s, kw))
		}
	}
	return s
}

// addUseClause records "A\B\C" or "A\B\C as D".
func (w *phpWalker) addUseClause(clause string, line int) {
	var alias *string
	fields := strings.Fields(clause)
	if len(fields) == 3 && strings.EqualFold(fields[1], "as") {
		alias = facts.StringPtr(fields[2])
	}
	full := strings.TrimPrefix(fields[0], `\`)

	imp := facts.Import{Alias: alias, Names: []string{}}
	if i := strings.LastIndex(full, `\`); i >= 0 {
		imp.Module = full[:i]
		imp.Names = []string{full[i+1:]}
		imp.IsFrom = true
	} else {
		imp.Module = full
	}
	w.addImport(extraction.ImportDecl{Import: imp, Line: line})
}

// extractAttributes converts #[Name(args)] groups to annotations.
func (w *phpWalker) extractAttributes(n *sitter.Node) []facts.Annotation {
	annotations := []facts.Annotation{}
	list := findChildByType(n, "attribute_list")
	if list == nil {
		return annotations
	}
	walkTree(list, func(node *sitter.Node) bool {
		if node.Kind() != "attribute" {
			return true
		}
		ann := facts.Annotation{Arguments: map[string]string{}}
		params := node.ChildByFieldName("parameters")
		for _, child := range namedChildren(node) {
			if isPHPName(child) {
				ann.Name = strings.TrimPrefix(w.text(child), `\`)
				break
			}
		}
		pos := 0
		for _, arg := range namedChildren(params) {
			if arg.Kind() != "argument" {
				continue
			}
			if name := arg.ChildByFieldName("name"); name != nil {
				value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(w.text(arg), w.text(name))), ":"))
				ann.Arguments[w.text(name)] = unquote(value)
				continue
			}
			ann.Arguments[strconv.Itoa(pos)] = unquote(w.text(arg))
			pos++
		}
		annotations = append(annotations, ann)
		return false
	})
	return annotations
}

// signature renders the declaration header, leaving out attributes.
func (w *phpWalker) signature(n, body *sitter.Node) string {
	start := n.StartByte()
	if attrs := findChildByType(n, "attribute_list"); attrs != nil {
		start = attrs.EndByte()
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

// extractType extracts a class, interface, trait or enum. Traits are
// reported as classes.
func (w *phpWalker) extractType(n *sitter.Node) {
	name := w.text(n.ChildByFieldName("name"))
	body := n.ChildByFieldName("body")

	kind := facts.KindClass
	switch n.Kind() {
	case "interface_declaration":
		kind = facts.KindInterface
	case "enum_declaration":
		kind = facts.KindEnum
	}

	doc := w.precedingComment(n, isPHPComment)
	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        kind,
		Signature:   w.signature(n, body),
		Docstring:   doc,
		Annotations: w.extractAttributes(n),
		LineStart:   startLine(n),
		LineEnd:     endLine(n),
	})

	line := startLine(n)
	for _, clause := range []string{"base_clause", "class_interface_clause"} {
		for _, parent := range namedChildren(findChildByType(n, clause)) {
			if isPHPName(parent) {
				w.addInheritance(name, w.text(parent), line)
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
		case "method_declaration":
			kind := facts.KindMethod
			if strings.EqualFold(w.text(member.ChildByFieldName("name")), "__construct") {
				kind = facts.KindConstructor
			}
			w.extractFunction(member, name, kind)
		case "property_declaration":
			w.extractProperty(member, name)
		case "const_declaration":
			w.extractConstants(member, name, facts.KindField)
		case "enum_case":
			w.addSymbol(facts.Symbol{
				Name:      joinName(name, w.text(member.ChildByFieldName("name"))),
				Kind:      facts.KindField,
				Signature: collapseSpace(strings.TrimSuffix(w.text(member), ";")),
				Docstring: w.precedingComment(member, isPHPComment),
				LineStart: startLine(member),
				LineEnd:   endLine(member),
			})
		case "use_declaration":
			for _, trait := range namedChildren(member) {
				if isPHPName(trait) {
					w.addInheritance(name, w.text(trait), startLine(member))
				}
			}
		}
	}
}

// collectFieldTypes records typed properties and promoted constructor
// parameters.
func (w *phpWalker) collectFieldTypes(body *sitter.Node, class string) {
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "property_declaration":
			typ := phpTypeName(w.text(member.ChildByFieldName("type")))
			for _, el := range findChildrenByType(member, "property_element") {
				w.fields[class][w.propertyName(el)] = typ
			}
		case "method_declaration":
			if !strings.EqualFold(w.text(member.ChildByFieldName("name")), "__construct") {
				continue
			}
			for _, p := range namedChildren(member.ChildByFieldName("parameters")) {
				if p.Kind() == "property_promotion_parameter" {
					name := strings.TrimPrefix(w.text(p.ChildByFieldName("name")), "$")
					w.fields[class][name] = phpTypeName(w.text(p.ChildByFieldName("type")))
				}
			}
		}
	}
}

func (w *phpWalker) propertyName(el *sitter.Node) string {
	if v := findChildByType(el, "variable_name"); v != nil {
		return strings.TrimPrefix(w.text(v), "$")
	}
	return strings.TrimPrefix(w.text(el.ChildByFieldName("name")), "$")
}

// phpTypeName reduces a declared type to a class name. Scalars, unions and
// intersections have none.
func phpTypeName(typ string) string {
	typ = strings.TrimPrefix(strings.TrimSpace(typ), "?")
	if typ == "" || strings.ContainsAny(typ, "|&()") || phpScalarTypes[strings.ToLower(typ)] {
		return ""
	}
	return typ
}

func (w *phpWalker) extractProperty(n *sitter.Node, class string) {
	doc := w.precedingComment(n, isPHPComment)
	annotations := w.extractAttributes(n)
	for _, el := range findChildrenByType(n, "property_element") {
		w.addSymbol(facts.Symbol{
			Name:        joinName(class, w.propertyName(el)),
			Kind:        facts.KindField,
			Signature:   w.signature(n, nil),
			Docstring:   doc,
			Annotations: annotations,
			LineStart:   startLine(n),
			LineEnd:     endLine(n),
		})
		if value := el.ChildByFieldName("default_value"); value != nil {
			w.walk(value, &callContext{caller: class, scope: class, locals: map[string]string{}})
		}
	}
}

func (w *phpWalker) extractConstants(n *sitter.Node, class string, kind facts.SymbolKind) {
	doc := w.precedingComment(n, isPHPComment)
	for _, el := range findChildrenByType(n, "const_element") {
		nameNode := findChildByType(el, "name")
		w.addSymbol(facts.Symbol{
			Name:      joinName(class, w.text(nameNode)),
			Kind:      kind,
			Signature: collapseSpace(strings.TrimSuffix(w.text(n), ";")),
			Docstring: doc,
			LineStart: startLine(n),
			LineEnd:   endLine(n),
		})
	}
}

// extractFunction extracts a function, method or constructor. PHPDoc
// @throws tags become throws.
func (w *phpWalker) extractFunction(n *sitter.Node, class string, kind facts.SymbolKind) {
	name := joinName(class, w.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")
	doc := w.precedingComment(n, isPHPComment)

	if kind == facts.KindConstructor {
		for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
			if p.Kind() != "property_promotion_parameter" {
				continue
			}
			w.addSymbol(facts.Symbol{
				Name:      joinName(class, strings.TrimPrefix(w.text(p.ChildByFieldName("name")), "$")),
				Kind:      facts.KindField,
				Signature: collapseSpace(w.text(p)),
				LineStart: startLine(p),
				LineEnd:   endLine(p),
			})
		}
	}

	w.addSymbol(facts.Symbol{
		Name:        name,
		Kind:        kind,
		Signature:   w.signature(n, body),
		Docstring:   doc,
		Annotations: w.extractAttributes(n),
		Throws:      docThrows(doc),
		LineStart:   startLine(n),
		LineEnd:     endLine(n),
	})

	if body != nil {
		w.walk(body, &callContext{caller: name, scope: class, locals: w.collectLocals(n)})
	}
}

// collectLocals gathers parameters and assigned variables with their types.
func (w *phpWalker) collectLocals(fn *sitter.Node) map[string]string {
	locals := make(map[string]string)
	for _, p := range namedChildren(fn.ChildByFieldName("parameters")) {
		switch p.Kind() {
		case "simple_parameter", "property_promotion_parameter", "variadic_parameter":
			locals[strings.TrimPrefix(w.text(p.ChildByFieldName("name")), "$")] = phpTypeName(w.text(p.ChildByFieldName("type")))
		}
	}
	walkTree(fn.ChildByFieldName("body"), func(node *sitter.Node) bool {
		switch node.Kind() {
		case "function_definition", "anonymous_function", "arrow_function", "class_declaration":
			return false
		case "assignment_expression":
			left := node.ChildByFieldName("left")
			if left == nil || left.Kind() != "variable_name" {
				return true
			}
			name := strings.TrimPrefix(w.text(left), "$")
			typ := ""
			if right := node.ChildByFieldName("right"); right != nil && right.Kind() == "object_creation_expression" {
				if cls := phpCreatedClass(right); cls != nil {
					typ = phpTypeName(w.text(cls))
				}
			}
			if prev, seen := locals[name]; !seen || prev == "" {
				locals[name] = typ
			}
		case "foreach_statement":
			walkTree(node, func(v *sitter.Node) bool {
				if v.Kind() == "variable_name" {
					if _, seen := locals[strings.TrimPrefix(w.text(v), "$")]; !seen {
						locals[strings.TrimPrefix(w.text(v), "$")] = ""
					}
				}
				return v.Kind() != "compound_statement"
			})
		}
		return true
	})
	return locals
}

// phpCreatedClass returns the class name node of a new expression.
func phpCreatedClass(n *sitter.Node) *sitter.Node {
	for _, child := range namedChildren(n) {
		if isPHPName(child) {
			return child
		}
	}
	return nil
}

func isPHPSpread(n *sitter.Node) bool {
	return n.Kind() == "variadic_unpacking" || findChildByType(n, "variadic_unpacking") != nil
}

// walk records calls under n.
func (w *phpWalker) walk(n *sitter.Node, ctx *callContext) {
	if w.skip(n) {
		return
	}
	switch n.Kind() {
	case "goto_statement":
		w.unsupported(n, "goto statement")
	case "function_call_expression":
		w.extractFunctionCall(n, ctx)
	case "member_call_expression", "nullsafe_member_call_expression":
		w.extractMemberCall(n, ctx)
	case "scoped_call_expression":
		w.extractScopedCall(n, ctx)
	case "object_creation_expression":
		w.extractCreation(n, ctx)
	case "function_definition":
		// Declarations inside a function body only exist once it runs.
		if ctx.caller == "" {
			w.extractFunction(n, "", facts.KindFunction)
		}
		return
	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
		if ctx.caller == "" {
			w.extractType(n)
		}
		return
	case "anonymous_class":
		anon := *ctx
		anon.anon = true
		for i := 0; i < int(n.ChildCount()); i++ {
			w.walk(n.Child(uint(i)), &anon)
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(uint(i)), ctx)
	}
}

func (w *phpWalker) newCall(n *sitter.Node, ctx *callContext) extraction.RawCall {
	return extraction.RawCall{
		Caller: ctx.caller,
		Scope:  ctx.scope,
		Line:   startLine(n),
		Args:   countArgs(n.ChildByFieldName("arguments"), isPHPSpread),
	}
}

func (w *phpWalker) extractFunctionCall(n *sitter.Node, ctx *callContext) {
	call := w.newCall(n, ctx)
	fn := n.ChildByFieldName("function")
	switch {
	case fn != nil && isPHPName(fn):
		call.Name = w.text(fn)
		call.Receiver = extraction.RecvNone
		if phpReflection[strings.ToLower(lastSegment(call.Name))] {
			call.Receiver = extraction.RecvDynamic
			call.Reason = "reflection"
		}
	case fn != nil && fn.Kind() == "variable_name":
		call.Receiver = extraction.RecvDynamic
		call.Reason = "variable function"
	default:
		call.Receiver = extraction.RecvDynamic
		call.Reason = "computed callee"
	}
	w.addCall(call)
}

func (w *phpWalker) extractMemberCall(n *sitter.Node, ctx *callContext) {
	call := w.newCall(n, ctx)
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "name" {
		call.Receiver = extraction.RecvDynamic
		call.Reason = "variable method name"
		w.addCall(call)
		return
	}
	call.Name = w.text(nameNode)

	obj := n.ChildByFieldName("object")
	switch {
	case obj == nil:
		call.Receiver, call.Reason = extraction.RecvDynamic, "computed receiver"
	case obj.Kind() == "variable_name" && w.text(obj) == "$this":
		call.Receiver = extraction.RecvSelf
		if ctx.anon || ctx.scope == "" {
			call.Receiver, call.Reason = extraction.RecvDynamic, "unbound $this"
		}
	case obj.Kind() == "variable_name":
		t, ok := ctx.localType(strings.TrimPrefix(w.text(obj), "$"))
		if ok && t != "" {
			call.Receiver, call.Target = extraction.RecvTyped, t
		} else {
			call.Receiver, call.Reason = extraction.RecvDynamic, "untyped variable"
		}
	case obj.Kind() == "member_access_expression" || obj.Kind() == "nullsafe_member_access_expression":
		inner := obj.ChildByFieldName("object")
		prop := obj.ChildByFieldName("name")
		t := ""
		if inner != nil && w.text(inner) == "$this" && prop != nil && !ctx.anon {
			t = w.fields[ctx.scope][w.text(prop)]
		}
		if t != "" {
			call.Receiver, call.Target = extraction.RecvTyped, t
		} else {
			call.Receiver, call.Reason = extraction.RecvDynamic, "untyped property"
		}
	case obj.Kind() == "object_creation_expression" || obj.Kind() == "parenthesized_expression":
		inner := obj
		if inner.Kind() == "parenthesized_expression" {
			inner = inner.NamedChild(0)
		}
		if cls := phpCreatedClass(inner); inner != nil && inner.Kind() == "object_creation_expression" && cls != nil {
			call.Receiver, call.Target = extraction.RecvTyped, w.text(cls)
		} else {
			call.Receiver, call.Reason = extraction.RecvDynamic, "computed receiver"
		}
	default:
		call.Receiver, call.Reason = extraction.RecvDynamic, "receiver is a call result"
	}
	w.addCall(call)
}

func (w *phpWalker) extractScopedCall(n *sitter.Node, ctx *callContext) {
	call := w.newCall(n, ctx)
	call.Static = true
	nameNode := n.ChildByFieldName("name")
	scope := n.ChildByFieldName("scope")
	if nameNode == nil || nameNode.Kind() != "name" || scope == nil {
		call.Receiver, call.Reason = extraction.RecvDynamic, "variable method name"
		w.addCall(call)
		return
	}
	call.Name = w.text(nameNode)

	switch {
	case scope.Kind() == "relative_scope":
		switch strings.ToLower(w.text(scope)) {
		case "parent":
			call.Receiver = extraction.RecvSuper
		default:
			call.Receiver = extraction.RecvSelf
		}
		if ctx.scope == "" || ctx.anon {
			call.Receiver, call.Reason = extraction.RecvDynamic, "unbound scope"
		}
	case isPHPName(scope):
		call.Receiver, call.Target = extraction.RecvName, w.text(scope)
	default:
		call.Receiver, call.Reason = extraction.RecvDynamic, "computed class"
	}
	w.addCall(call)
}

func (w *phpWalker) extractCreation(n *sitter.Node, ctx *callContext) {
	call := w.newCall(n, ctx)
	call.New = true
	// object_creation_expression carries its arguments as a plain child.
	call.Args = countCreationArgs(findChildByType(n, "arguments"), isPHPSpread)
	if findChildByType(n, "anonymous_class") != nil {
		return
	}
	cls := phpCreatedClass(n)
	switch {
	case cls == nil:
		call.Receiver, call.Reason = extraction.RecvDynamic, "new with variable class"
	case strings.EqualFold(w.text(cls), "self") || strings.EqualFold(w.text(cls), "static"):
		call.Receiver = extraction.RecvSelf
	case strings.EqualFold(w.text(cls), "parent"):
		call.Receiver = extraction.RecvSuper
	default:
		call.Receiver = extraction.RecvNone
		call.Name = w.text(cls)
	}
	if relative := findChildByType(n, "relative_scope"); cls == nil && relative != nil {
		call.Reason = ""
		call.Receiver = extraction.RecvSelf
		if strings.EqualFold(w.text(relative), "parent") {
			call.Receiver = extraction.RecvSuper
		}
	}
	if (call.Receiver == extraction.RecvSelf || call.Receiver == extraction.RecvSuper) && (ctx.scope == "" || ctx.anon) {
		call.Receiver, call.Reason = extraction.RecvDynamic, "unbound scope"
	}
	w.addCall(call)
}
