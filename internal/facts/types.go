// Package facts defines the language-agnostic record produced for every parsed
// source file: declarations, imports, inheritance edges and call edges.
//
// This package is the only place that defines field names and JSON shapes.
// Extractors, the resolver, the scorer and every consumer share these types.
package facts

// SymbolKind classifies a declaration.
type SymbolKind string

const (
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindEnum        SymbolKind = "enum"
	KindRecord      SymbolKind = "record"
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindConstructor SymbolKind = "constructor"
	KindField       SymbolKind = "field"
	KindVariable    SymbolKind = "variable"
	KindTypeAlias   SymbolKind = "type_alias"
	KindNamespace   SymbolKind = "namespace"
	KindModule      SymbolKind = "module"
)

// IsType reports whether the kind declares a type that can take part in
// inheritance or be instantiated.
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindEnum, KindRecord:
		return true
	}
	return false
}

// IsCallable reports whether the kind declares something with a body that can
// contain calls.
func (k SymbolKind) IsCallable() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor:
		return true
	}
	return false
}

// CallType classifies a call expression.
type CallType string

const (
	CallFunction     CallType = "function"
	CallMethod       CallType = "method"
	CallStaticMethod CallType = "static_method"
	CallConstructor  CallType = "constructor"
	CallDynamic      CallType = "dynamic"
)

// ModuleScope is the caller recorded for calls made outside any declaration.
const ModuleScope = "<module>"

// Annotation is a decorator or annotation attached to a declaration.
type Annotation struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// Symbol is a named declaration. Nested declarations carry the dotted path of
// their lexical parents (Outer.Inner, Service.handle).
type Symbol struct {
	Name        string       `json:"name"`
	Kind        SymbolKind   `json:"kind"`
	Signature   string       `json:"signature"`
	Docstring   string       `json:"docstring"`
	Annotations []Annotation `json:"annotations"`
	Throws      []string     `json:"throws"`
	LineStart   int          `json:"line_start"`
	LineEnd     int          `json:"line_end"`
}

// Lines returns the number of source lines the declaration spans.
func (s Symbol) Lines() int {
	if s.LineEnd < s.LineStart {
		return 1
	}
	return s.LineEnd - s.LineStart + 1
}

// Import is one imported name. Multi-name import statements produce one
// Import per name so aliases stay unambiguous.
type Import struct {
	Module string   `json:"module"`
	Names  []string `json:"names"`
	Alias  *string  `json:"alias"`
	IsFrom bool     `json:"is_from"`
}

// IsWildcard reports whether the import pulls every member of Module into
// scope without naming any of them.
func (i Import) IsWildcard() bool {
	return i.IsFrom && len(i.Names) == 0
}

// Inheritance is one direct parent relationship.
type Inheritance struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// Call is one call expression found in a body. Callee is nil exactly when the
// call type is CallDynamic.
type Call struct {
	Caller         string   `json:"caller"`
	Callee         *string  `json:"callee"`
	CallType       CallType `json:"call_type"`
	LineNumber     int      `json:"line_number"`
	ArgumentsCount *int     `json:"arguments_count"`
}

// IsDynamic reports whether the call target could not be determined.
func (c Call) IsDynamic() bool {
	return c.CallType == CallDynamic
}

// ParseResult is the per-file aggregate. It is owned by the caller that
// requested the parse and is not mutated after resolution completes.
type ParseResult struct {
	Path            string        `json:"path"`
	Language        string        `json:"language"`
	Namespace       string        `json:"namespace"`
	ModuleDocstring string        `json:"module_docstring"`
	FileLines       int           `json:"file_lines"`
	Symbols         []Symbol      `json:"symbols"`
	Imports         []Import      `json:"imports"`
	Inheritances    []Inheritance `json:"inheritances"`
	Calls           []Call        `json:"calls"`
	Error           *ParseError   `json:"error"`
}

// StringPtr returns a pointer to s. Used for Import.Alias and Call.Callee.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n. Used for Call.ArgumentsCount.
func IntPtr(n int) *int {
	return &n
}

// ResolvedCall builds a call with a known target.
func ResolvedCall(caller, callee string, callType CallType, line int, args *int) Call {
	return Call{
		Caller:         caller,
		Callee:         StringPtr(callee),
		CallType:       callType,
		LineNumber:     line,
		ArgumentsCount: args,
	}
}

// DynamicCall builds a call whose target is unknown.
func DynamicCall(caller string, line int, args *int) Call {
	return Call{
		Caller:         caller,
		CallType:       CallDynamic,
		LineNumber:     line,
		ArgumentsCount: args,
	}
}
