package extraction

import "github.com/mvp-joe/cortex-facts/internal/facts"

// Result is the raw, unresolved output of one extractor run over one file.
// Symbols and imports are already in their final shape; inheritance edges and
// call sites still carry the names exactly as written in source.
type Result struct {
	Path            string
	Language        string
	Namespace       string
	ModuleDocstring string
	FileLines       int

	Symbols      []facts.Symbol
	Imports      []ImportDecl
	Inheritances []RawInheritance
	Calls        []RawCall

	Error *facts.ParseError
}

// ImportDecl is an Import plus the flags the resolver needs but consumers do
// not (Java static imports).
type ImportDecl struct {
	facts.Import
	Static bool
	Line   int
}

// RawInheritance is a parent edge before name resolution.
type RawInheritance struct {
	Child  string // local dotted name of the declaring type
	Parent string // as written, type arguments stripped
	Line   int
}

// Receiver classifies what a call is made on.
type Receiver int

const (
	// RecvNone is a bare call: foo(), new Foo().
	RecvNone Receiver = iota
	// RecvSelf is self/this/$this/self::/static::.
	RecvSelf
	// RecvSuper is super/parent::/super().
	RecvSuper
	// RecvName is an identifier, dotted or scoped name: svc.find(), A::m().
	RecvName
	// RecvTyped is a variable or field whose type is known. Target holds the
	// type as written.
	RecvTyped
	// RecvDynamic is anything that cannot be followed statically.
	RecvDynamic
)

func (r Receiver) String() string {
	switch r {
	case RecvNone:
		return "none"
	case RecvSelf:
		return "self"
	case RecvSuper:
		return "super"
	case RecvName:
		return "name"
	case RecvTyped:
		return "typed"
	case RecvDynamic:
		return "dynamic"
	}
	return "unknown"
}

// RawCall is a call site before name resolution.
type RawCall struct {
	// Caller is the local dotted name of the innermost enclosing declaration,
	// empty at module level.
	Caller string
	// Scope is the local dotted name of the innermost enclosing type, empty
	// outside types.
	Scope    string
	Receiver Receiver
	// Target is the receiver expression for RecvName and the receiver type
	// for RecvTyped.
	Target string
	// Name is the called member or function. For a constructor call with no
	// receiver it is the instantiated type. Empty for super(...)/this(...).
	Name string
	// New marks object creation, including Java super(...) and this(...).
	New bool
	// Static marks the PHP scope-resolution form A::m().
	Static bool
	Line   int
	Args   *int
	// Reason is set for RecvDynamic calls.
	Reason string
}

// LocalTypes returns the local names of every type declared in the file.
func (r *Result) LocalTypes() map[string]facts.SymbolKind {
	types := make(map[string]facts.SymbolKind)
	for _, s := range r.Symbols {
		if s.Kind.IsType() {
			types[s.Name] = s.Kind
		}
	}
	return types
}
