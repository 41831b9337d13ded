package graph

import (
	"log"
	"sort"

	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// Builder accumulates declared types, their members and inheritance edges
// from resolved files. It is used from a single goroutine.
type Builder struct {
	nodes    map[string]Node
	edges    []Edge
	edgeSeen map[[2]string]bool
	index    *TypeIndex
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:    make(map[string]Node),
		edgeSeen: make(map[[2]string]bool),
		index:    NewTypeIndex(),
	}
}

// AddFile records the types, members and top-level declarations of one file.
// A non-empty module keys the file's declarations as module.name instead of
// by namespace. Inheritance edges are added separately once they are
// resolved.
func (b *Builder) AddFile(r *facts.ParseResult, module string) {
	if r == nil {
		return
	}
	id := func(local string) string {
		if module != "" {
			return module + "." + local
		}
		return facts.Qualify(r.Language, r.Namespace, local)
	}

	types := make(map[string]bool)
	for _, sym := range r.Symbols {
		if sym.Kind.IsType() {
			types[sym.Name] = true
		}
	}

	for _, sym := range r.Symbols {
		if sym.Kind == facts.KindNamespace || sym.Kind == facts.KindModule {
			continue
		}
		fqn := id(sym.Name)
		b.index.AddSymbol(fqn, sym.Kind)

		if sym.Kind.IsType() {
			b.addNode(Node{
				ID:        fqn,
				Kind:      sym.Kind,
				File:      r.Path,
				StartLine: sym.LineStart,
				EndLine:   sym.LineEnd,
			})
		}
		if owner, member, ok := facts.SplitMember(sym.Name); ok && types[owner] {
			b.index.AddMember(id(owner), member, sym.Kind)
		}
	}
}

// addNode keeps the first declaration of a type.
func (b *Builder) addNode(node Node) {
	if existing, exists := b.nodes[node.ID]; exists {
		if existing.File != node.File {
			log.Printf("[WARN] duplicate type '%s' declared in %s and %s", node.ID, existing.File, node.File)
		}
		return
	}
	b.nodes[node.ID] = node
}

// AddEdge records child -> parent declared at loc. Duplicate edges are
// ignored.
func (b *Builder) AddEdge(child, parent string, loc Location) {
	if child == "" || parent == "" {
		return
	}
	key := [2]string{child, parent}
	if b.edgeSeen[key] {
		return
	}
	b.edgeSeen[key] = true
	b.edges = append(b.edges, Edge{
		From:     child,
		To:       parent,
		Type:     EdgeInherits,
		Location: &loc,
	})
}

// Index returns the type index built so far.
func (b *Builder) Index() *TypeIndex {
	return b.index
}

// Data returns the accumulated graph. Nodes are sorted by ID; edges keep the
// order they were added in.
func (b *Builder) Data() *GraphData {
	nodes := make([]Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return &GraphData{
		Nodes: nodes,
		Edges: append([]Edge{}, b.edges...),
	}
}

// Build freezes the accumulated data into a Hierarchy.
func (b *Builder) Build() (*Hierarchy, error) {
	return NewHierarchy(b.Data())
}
