package graph

import (
	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// TypeIndex maps project types to their declared members and records every
// project-level FQN with its kind.
type TypeIndex struct {
	members map[string]map[string]facts.SymbolKind
	symbols map[string]facts.SymbolKind
}

// NewTypeIndex creates an empty index.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{
		members: make(map[string]map[string]facts.SymbolKind),
		symbols: make(map[string]facts.SymbolKind),
	}
}

// AddSymbol records a declaration by FQN. The first declaration of an FQN
// wins.
func (ti *TypeIndex) AddSymbol(fqn string, kind facts.SymbolKind) {
	if _, ok := ti.symbols[fqn]; !ok {
		ti.symbols[fqn] = kind
	}
	if kind.IsType() {
		if _, ok := ti.members[fqn]; !ok {
			ti.members[fqn] = make(map[string]facts.SymbolKind)
		}
	}
}

// AddMember records member as declared directly on typeFQN.
func (ti *TypeIndex) AddMember(typeFQN, member string, kind facts.SymbolKind) {
	m, ok := ti.members[typeFQN]
	if !ok {
		m = make(map[string]facts.SymbolKind)
		ti.members[typeFQN] = m
	}
	if _, seen := m[member]; !seen {
		m[member] = kind
	}
}

// Kind returns the kind of a project FQN.
func (ti *TypeIndex) Kind(fqn string) (facts.SymbolKind, bool) {
	k, ok := ti.symbols[fqn]
	return k, ok
}

// IsType reports whether fqn is a project type.
func (ti *TypeIndex) IsType(fqn string) bool {
	k, ok := ti.symbols[fqn]
	return ok && k.IsType()
}

// Declares reports whether typeFQN itself declares member.
func (ti *TypeIndex) Declares(typeFQN, member string) bool {
	_, ok := ti.members[typeFQN][member]
	return ok
}

// MemberKind returns the kind of a member declared directly on typeFQN.
func (ti *TypeIndex) MemberKind(typeFQN, member string) (facts.SymbolKind, bool) {
	k, ok := ti.members[typeFQN][member]
	return k, ok
}

// FindMember returns the type that declares member for typeFQN: the type
// itself first, then its ancestors nearest first.
func (ti *TypeIndex) FindMember(h *Hierarchy, typeFQN, member string) (string, bool) {
	if ti.Declares(typeFQN, member) {
		return typeFQN, true
	}
	if h == nil {
		return "", false
	}
	for _, ancestor := range h.Ancestors(typeFQN) {
		if ti.Declares(ancestor, member) {
			return ancestor, true
		}
	}
	return "", false
}

// Len returns the number of indexed FQNs.
func (ti *TypeIndex) Len() int {
	return len(ti.symbols)
}
