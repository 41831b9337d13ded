// Package resolver rewrites the names an extractor saw in source into
// fully-qualified names.
//
// Resolution runs in two passes. ResolveFile (Pass A) needs nothing but the
// file itself: it builds the file's alias map and resolves everything the
// file can answer alone. What depends on other files (super calls, inherited
// members, Java on-demand imports) is recorded as Pending work and finished by
// a Linker (Pass B) once every file of the batch has been through Pass A.
package resolver

import (
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
)

// PendingKind says how Pass B finishes a deferred record.
type PendingKind int

const (
	// PendingLookup picks the first candidate FQN the project declares.
	PendingLookup PendingKind = iota
	// PendingSuper binds a super call to a parent of Type.
	PendingSuper
	// PendingInherited looks Member up on Type and its ancestors.
	PendingInherited
	// PendingBare resolves a Java unqualified call: inherited members first,
	// then static on-demand imports.
	PendingBare
)

func (k PendingKind) String() string {
	switch k {
	case PendingLookup:
		return "lookup"
	case PendingSuper:
		return "super"
	case PendingInherited:
		return "inherited"
	case PendingBare:
		return "bare"
	}
	return "unknown"
}

// Pending is one record Pass A could not finish alone.
type Pending struct {
	Kind PendingKind
	// Inheritance selects ParseResult.Inheritances instead of Calls.
	Inheritance bool
	Index       int

	Type       string
	Member     string
	Candidates []string
	// Suffix is appended to a candidate chosen by PendingLookup.
	Suffix string
	// Fallback is used when nothing better is found. Empty means dynamic
	// for calls.
	Fallback string
	CallType facts.CallType
}

// FileFacts is the Pass A output of one file. It is immutable once returned
// and may be cached and shared between batches.
type FileFacts struct {
	Result  *facts.ParseResult
	Pending []Pending
	// InheritanceLines holds the source line of each inheritance record.
	InheritanceLines []int
}

type fileResolver struct {
	lang     string
	ns       string
	sep      string
	aliases  *AliasMap
	declared map[string]facts.Symbol
	out      *FileFacts
}

// ResolveFile runs Pass A over one file.
func ResolveFile(raw *extraction.Result) *FileFacts {
	r := &fileResolver{
		lang:     raw.Language,
		ns:       strings.TrimPrefix(raw.Namespace, `\`),
		sep:      facts.NamespaceSeparator(raw.Language),
		aliases:  NewAliasMap(raw.Language, raw.Path, raw.Imports),
		declared: make(map[string]facts.Symbol, len(raw.Symbols)),
	}
	for _, sym := range raw.Symbols {
		if _, exists := r.declared[sym.Name]; !exists {
			r.declared[sym.Name] = sym
		}
	}

	result := &facts.ParseResult{
		Path:            raw.Path,
		Language:        raw.Language,
		Namespace:       r.ns,
		ModuleDocstring: raw.ModuleDocstring,
		FileLines:       raw.FileLines,
		Symbols:         append([]facts.Symbol{}, raw.Symbols...),
		Imports:         make([]facts.Import, 0, len(raw.Imports)),
		Inheritances:    make([]facts.Inheritance, 0, len(raw.Inheritances)),
		Calls:           make([]facts.Call, 0, len(raw.Calls)),
		Error:           raw.Error,
	}
	for _, imp := range raw.Imports {
		if imp.Names == nil {
			imp.Names = []string{}
		}
		result.Imports = append(result.Imports, imp.Import)
	}
	r.out = &FileFacts{Result: result, InheritanceLines: make([]int, 0, len(raw.Inheritances))}

	for _, inh := range raw.Inheritances {
		r.resolveInheritance(inh)
	}
	for _, c := range raw.Calls {
		r.resolveCall(c)
	}
	return r.out
}

func (r *fileResolver) qualify(local string) string {
	return facts.Qualify(r.lang, r.ns, local)
}

func (r *fileResolver) resolveInheritance(inh extraction.RawInheritance) {
	index := len(r.out.Result.Inheritances)
	rec := facts.Inheritance{Child: r.qualify(inh.Child), Parent: inh.Parent}

	parent, candidates, ok := r.resolveType(inh.Parent, inh.Child)
	switch {
	case !ok:
	case candidates != nil:
		if parent == "" {
			parent = inh.Parent
		}
		rec.Parent = parent
		r.out.Pending = append(r.out.Pending, Pending{
			Kind:        PendingLookup,
			Inheritance: true,
			Index:       index,
			Candidates:  candidates,
			Fallback:    parent,
		})
	default:
		rec.Parent = parent
	}
	r.out.Result.Inheritances = append(r.out.Result.Inheritances, rec)
	r.out.InheritanceLines = append(r.out.InheritanceLines, inh.Line)
}

// resolveType resolves a type name as written inside scope. When the answer
// depends on other files, candidates lists FQNs for Pass B to try in order and
// fqn is the fallback (possibly empty).
func (r *fileResolver) resolveType(name, scope string) (fqn string, candidates []string, ok bool) {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return "", nil, false
	}
	if r.lang == "php" && strings.HasPrefix(name, `\`) {
		return strings.TrimPrefix(name, `\`), nil, true
	}

	if isQualified(name, r.sep) {
		head, rest := splitHead(name, r.sep)
		if base, found := r.lookupType(head, scope); found {
			return base + r.sep + rest, nil, true
		}
		if r.lang == "php" {
			return r.qualify(name), nil, true
		}
		return name, nil, true
	}

	if fqn, found := r.lookupType(name, scope); found {
		return fqn, nil, true
	}

	switch r.lang {
	case "php":
		return r.qualify(name), nil, true
	case "java":
		if !isTypeName(name) {
			return "", nil, false
		}
		own := r.qualify(name)
		wildcards := r.aliases.Wildcards()
		if len(wildcards) == 0 {
			return own, nil, true
		}
		candidates = []string{own}
		for _, pkg := range wildcards {
			candidates = append(candidates, pkg+"."+name)
		}
		if len(wildcards) == 1 {
			fqn = wildcards[0] + "." + name
		}
		return fqn, candidates, true
	}
	return "", nil, false
}

// lookupType finds a name among the language's always-available names, then
// through imports, then along the lexical type chain.
func (r *fileResolver) lookupType(name, scope string) (string, bool) {
	if fqn, ok := builtin(r.lang, name); ok {
		return fqn, true
	}
	if fqn, ok := r.aliases.Lookup(name); ok {
		return fqn, true
	}
	for _, prefix := range scopeChain(scope) {
		local := join(prefix, name)
		if sym, ok := r.declared[local]; ok && isTypeLike(sym.Kind) {
			return r.qualify(local), true
		}
	}
	return "", false
}

// lookupValue finds a callable name. variable is set when the name is bound
// to a variable or field, which makes any call through it dynamic.
func (r *fileResolver) lookupValue(name, caller string) (fqn string, kind facts.SymbolKind, found, variable bool) {
	if fqn, ok := builtin(r.lang, name); ok {
		return fqn, "", true, false
	}
	if fqn, ok := r.aliases.Lookup(name); ok {
		return fqn, "", true, false
	}
	for _, prefix := range scopeChain(caller) {
		if prefix != "" && r.lang != "java" {
			if outer, ok := r.declared[prefix]; ok && outer.Kind.IsType() {
				// Members are not in scope unqualified.
				continue
			}
		}
		local := join(prefix, name)
		sym, ok := r.declared[local]
		if !ok {
			continue
		}
		if sym.Kind == facts.KindVariable || sym.Kind == facts.KindField {
			return "", sym.Kind, false, true
		}
		return r.qualify(local), sym.Kind, true, false
	}
	return "", "", false, false
}

func (r *fileResolver) resolveCall(c extraction.RawCall) {
	caller := facts.ModuleScope
	if c.Caller != "" {
		caller = r.qualify(c.Caller)
	}
	call := facts.DynamicCall(caller, c.Line, c.Args)

	switch c.Receiver {
	case extraction.RecvNone:
		if c.New {
			r.constructor(call, c)
		} else {
			r.bare(call, c)
		}
	case extraction.RecvSelf:
		r.self(call, c)
	case extraction.RecvSuper:
		r.super(call, c)
	case extraction.RecvName:
		r.named(call, c)
	case extraction.RecvTyped:
		r.typed(call, c)
	default:
		r.emit(call)
	}
}

func (r *fileResolver) emit(call facts.Call) {
	r.out.Result.Calls = append(r.out.Result.Calls, call)
}

func (r *fileResolver) bind(call facts.Call, callee string, t facts.CallType) {
	r.emit(bind(call, callee, t))
}

// deferCall records p and emits its placeholder: the fallback when there is
// one, otherwise a dynamic call.
func (r *fileResolver) deferCall(call facts.Call, p Pending) {
	p.Index = len(r.out.Result.Calls)
	r.out.Pending = append(r.out.Pending, p)
	if p.Fallback != "" {
		r.bind(call, p.Fallback, p.CallType)
		return
	}
	r.emit(call)
}

func (r *fileResolver) constructor(call facts.Call, c extraction.RawCall) {
	fqn, candidates, ok := r.resolveType(c.Name, c.Scope)
	switch {
	case !ok:
		r.emit(call)
	case candidates != nil:
		r.deferCall(call, Pending{Kind: PendingLookup, Candidates: candidates, Fallback: fqn, CallType: facts.CallConstructor})
	default:
		r.bind(call, fqn, facts.CallConstructor)
	}
}

func (r *fileResolver) bare(call facts.Call, c extraction.RawCall) {
	switch r.lang {
	case "java":
		r.bareJava(call, c)
	case "php":
		r.barePHP(call, c)
	default:
		fqn, kind, found, variable := r.lookupValue(c.Name, c.Caller)
		if !found || variable {
			r.emit(call)
			return
		}
		t := facts.CallFunction
		if r.lang == "python" && (kind.IsType() || (kind == "" && isTypeName(c.Name))) {
			t = facts.CallConstructor
		}
		r.bind(call, fqn, t)
	}
}

// bareJava resolves m() against the enclosing classes, then single static
// imports, and leaves inherited and on-demand static members to Pass B.
func (r *fileResolver) bareJava(call facts.Call, c extraction.RawCall) {
	for _, prefix := range scopeChain(c.Scope) {
		if prefix == "" {
			break
		}
		local := join(prefix, c.Name)
		sym, ok := r.declared[local]
		if !ok || !sym.Kind.IsCallable() {
			continue
		}
		t := facts.CallMethod
		if hasModifier(sym.Signature, "static") {
			t = facts.CallStaticMethod
		}
		r.bind(call, r.qualify(local), t)
		return
	}
	if fqn, ok := r.aliases.StaticMember(c.Name); ok {
		r.bind(call, fqn, facts.CallStaticMethod)
		return
	}
	if c.Scope == "" {
		r.emit(call)
		return
	}
	r.deferCall(call, Pending{
		Kind:       PendingBare,
		Type:       r.qualify(c.Scope),
		Member:     c.Name,
		Candidates: r.aliases.StaticWildcards(),
		CallType:   facts.CallMethod,
	})
}

// barePHP follows PHP function name rules: qualified names are relative to
// the namespace, unqualified names try the namespace and then the global
// function of the same name.
func (r *fileResolver) barePHP(call facts.Call, c extraction.RawCall) {
	name := c.Name
	switch {
	case name == "":
		r.emit(call)
	case strings.HasPrefix(name, `\`):
		r.bind(call, strings.TrimPrefix(name, `\`), facts.CallFunction)
	case isQualified(name, `\`):
		head, rest := splitHead(name, `\`)
		if base, ok := r.aliases.Lookup(head); ok {
			r.bind(call, base+`\`+rest, facts.CallFunction)
			return
		}
		r.bind(call, r.qualify(name), facts.CallFunction)
	default:
		if fqn, ok := builtin(r.lang, name); ok {
			r.bind(call, fqn, facts.CallFunction)
			return
		}
		if fqn, ok := r.aliases.Lookup(name); ok {
			r.bind(call, fqn, facts.CallFunction)
			return
		}
		if sym, ok := r.declared[name]; ok && sym.Kind == facts.KindFunction {
			r.bind(call, r.qualify(name), facts.CallFunction)
			return
		}
		if r.ns == "" {
			r.bind(call, name, facts.CallFunction)
			return
		}
		r.deferCall(call, Pending{
			Kind:       PendingLookup,
			Candidates: []string{r.qualify(name)},
			Fallback:   name,
			CallType:   facts.CallFunction,
		})
	}
}

func (r *fileResolver) self(call facts.Call, c extraction.RawCall) {
	if c.Scope == "" {
		r.emit(call)
		return
	}
	owner := r.qualify(c.Scope)
	if c.New {
		r.bind(call, owner, facts.CallConstructor)
		return
	}
	t := facts.CallMethod
	if c.Static {
		t = facts.CallStaticMethod
	}
	if sym, ok := r.declared[join(c.Scope, c.Name)]; ok {
		switch {
		case sym.Kind.IsType():
			r.bind(call, owner+"."+c.Name, facts.CallConstructor)
			return
		case sym.Kind.IsCallable():
			r.bind(call, owner+"."+c.Name, t)
			return
		}
	}
	r.deferCall(call, Pending{Kind: PendingInherited, Type: owner, Member: c.Name, CallType: t})
}

func (r *fileResolver) super(call facts.Call, c extraction.RawCall) {
	if c.Scope == "" {
		r.emit(call)
		return
	}
	t := facts.CallMethod
	if c.New || c.Name == "" {
		t = facts.CallConstructor
	}
	r.deferCall(call, Pending{Kind: PendingSuper, Type: r.qualify(c.Scope), Member: c.Name, CallType: t})
}

// named resolves calls on a name receiver: svc.find(), Math.max(), A::m().
func (r *fileResolver) named(call facts.Call, c extraction.RawCall) {
	target := c.Target
	if r.lang == "php" {
		fqn, _, ok := r.resolveType(target, c.Scope)
		if !ok {
			r.emit(call)
			return
		}
		r.bind(call, fqn+"."+c.Name, facts.CallStaticMethod)
		return
	}

	head, rest := splitHead(target, ".")
	base, headIsType, state := r.bindHead(head, c)
	switch state {
	case headVariable:
		r.emit(call)
		return
	case headUnknown:
		if rest == "" {
			r.emit(call)
			return
		}
		// Already qualified.
		base = head
	case headDeferred:
		fqn, candidates, _ := r.resolveType(head, c.Scope)
		suffix := "." + c.Name
		if rest != "" {
			suffix = "." + rest + suffix
		}
		fallback := ""
		if fqn != "" {
			fallback = fqn + suffix
		}
		r.deferCall(call, Pending{
			Kind:       PendingLookup,
			Candidates: candidates,
			Suffix:     suffix,
			Fallback:   fallback,
			CallType:   r.namedCallType(target, rest == ""),
		})
		return
	}

	callee := base
	if rest != "" {
		callee += "." + rest
	}
	r.bind(call, callee+"."+c.Name, r.namedCallType(target, headIsType && rest == ""))
}

type headState int

const (
	headUnknown headState = iota
	headBound
	headVariable
	headDeferred // Java type behind an on-demand import
)

// bindHead resolves the first segment of a receiver name.
func (r *fileResolver) bindHead(head string, c extraction.RawCall) (base string, isType bool, state headState) {
	if fqn, found := builtin(r.lang, head); found {
		return fqn, false, headBound
	}
	if fqn, found := r.aliases.Lookup(head); found {
		return fqn, false, headBound
	}
	for _, prefix := range scopeChain(c.Caller) {
		sym, found := r.declared[join(prefix, head)]
		if !found {
			continue
		}
		switch {
		case sym.Kind == facts.KindVariable || sym.Kind == facts.KindField:
			return "", false, headVariable
		case isTypeLike(sym.Kind):
			return r.qualify(join(prefix, head)), sym.Kind.IsType(), headBound
		}
	}
	if r.lang == "java" && isTypeName(head) {
		fqn, candidates, found := r.resolveType(head, c.Scope)
		switch {
		case candidates != nil:
			return "", true, headDeferred
		case found:
			return fqn, true, headBound
		}
	}
	return "", false, headUnknown
}

func (r *fileResolver) namedCallType(target string, declaredType bool) facts.CallType {
	if declaredType || isTypeName(lastSegment(target)) {
		return facts.CallStaticMethod
	}
	return facts.CallMethod
}

// typed resolves calls on a variable or field whose type is known.
func (r *fileResolver) typed(call facts.Call, c extraction.RawCall) {
	if r.lang == "java" && isTypeParameter(c.Target) {
		r.emit(call)
		return
	}
	fqn, candidates, ok := r.resolveType(c.Target, c.Scope)
	switch {
	case !ok:
		r.emit(call)
	case candidates != nil:
		fallback := ""
		if fqn != "" {
			fallback = fqn + "." + c.Name
		}
		r.deferCall(call, Pending{Kind: PendingLookup, Candidates: candidates, Suffix: "." + c.Name, Fallback: fallback, CallType: facts.CallMethod})
	default:
		r.deferCall(call, Pending{Kind: PendingInherited, Type: fqn, Member: c.Name, Fallback: fqn + "." + c.Name, CallType: facts.CallMethod})
	}
}

func bind(call facts.Call, callee string, t facts.CallType) facts.Call {
	call.Callee = facts.StringPtr(callee)
	call.CallType = t
	return call
}

func unbind(call facts.Call) facts.Call {
	call.Callee = nil
	call.CallType = facts.CallDynamic
	return call
}

func isTypeLike(k facts.SymbolKind) bool {
	return k.IsType() || k == facts.KindNamespace || k == facts.KindModule || k == facts.KindTypeAlias
}

// validName accepts identifiers joined by "." or "\".
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '$' || r == '.' || r == '\\':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r > 127:
		default:
			return false
		}
	}
	return true
}

func hasModifier(signature, modifier string) bool {
	for _, f := range strings.Fields(signature) {
		if f == modifier {
			return true
		}
		if strings.Contains(f, "(") {
			break
		}
	}
	return false
}
