package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// Hierarchy is a read-only snapshot of the project type hierarchy. Parents
// keep declaration order; every query is safe on cyclic input.
type Hierarchy struct {
	g        graph.Graph[string, string]
	nodes    map[string]*Node
	parents  map[string][]string
	children map[string][]string
}

// NewHierarchy builds a hierarchy from graph data. Edges may reference
// types that are not nodes (library supertypes); those become leaf vertices.
func NewHierarchy(data *GraphData) (*Hierarchy, error) {
	h := &Hierarchy{
		g:        graph.New(graph.StringHash, graph.Directed()),
		nodes:    make(map[string]*Node),
		parents:  make(map[string][]string),
		children: make(map[string][]string),
	}
	if data == nil {
		return h, nil
	}

	for i := range data.Nodes {
		node := &data.Nodes[i]
		if err := h.addVertex(node.ID); err != nil {
			return nil, err
		}
		h.nodes[node.ID] = node
	}

	for _, edge := range data.Edges {
		if edge.Type != EdgeInherits || edge.From == "" || edge.To == "" {
			continue
		}
		if err := h.addVertex(edge.From); err != nil {
			return nil, err
		}
		if err := h.addVertex(edge.To); err != nil {
			return nil, err
		}
		err := h.g.AddEdge(edge.From, edge.To)
		if errors.Is(err, graph.ErrEdgeAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", edge.From, edge.To, err)
		}
		h.parents[edge.From] = append(h.parents[edge.From], edge.To)
	}

	preds, err := h.g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to index subtypes: %w", err)
	}
	for parent, from := range preds {
		for child := range from {
			h.children[parent] = append(h.children[parent], child)
		}
		sort.Strings(h.children[parent])
	}
	return h, nil
}

func (h *Hierarchy) addVertex(id string) error {
	err := h.g.AddVertex(id)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("failed to add type %s: %w", id, err)
	}
	return nil
}

// Node returns the declared type with the given FQN.
func (h *Hierarchy) Node(fqn string) (*Node, bool) {
	n, ok := h.nodes[fqn]
	return n, ok
}

// Known reports whether fqn is a type declared in the project.
func (h *Hierarchy) Known(fqn string) bool {
	_, ok := h.nodes[fqn]
	return ok
}

// Parents returns the direct supertypes of fqn in declaration order.
func (h *Hierarchy) Parents(fqn string) []string {
	return append([]string(nil), h.parents[fqn]...)
}

// Children returns the direct subtypes of fqn, sorted.
func (h *Hierarchy) Children(fqn string) []string {
	return append([]string(nil), h.children[fqn]...)
}

// Ancestors returns every supertype of fqn breadth-first, nearest first,
// parents of one type in declaration order. fqn itself is never included.
func (h *Hierarchy) Ancestors(fqn string) []string {
	return h.walk(fqn, h.parents)
}

// Descendants returns every subtype of fqn breadth-first.
func (h *Hierarchy) Descendants(fqn string) []string {
	return h.walk(fqn, h.children)
}

func (h *Hierarchy) walk(start string, next map[string][]string) []string {
	var out []string
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next[cur] {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

// AllAncestorsKnown reports whether every ancestor of fqn is a project type,
// i.e. the member set of the whole chain is known.
func (h *Hierarchy) AllAncestorsKnown(fqn string) bool {
	for _, a := range h.Ancestors(fqn) {
		if !h.Known(a) {
			return false
		}
	}
	return true
}

// Cycles returns the inheritance cycles in the snapshot. Each cycle is
// sorted and the list is ordered by first member.
func (h *Hierarchy) Cycles() ([][]string, error) {
	components, err := graph.StronglyConnectedComponents(h.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute strongly connected components: %w", err)
	}
	var cycles [][]string
	for _, c := range components {
		if len(c) == 1 {
			if _, err := h.g.Edge(c[0], c[0]); err != nil {
				continue
			}
		}
		sorted := append([]string(nil), c...)
		sort.Strings(sorted)
		cycles = append(cycles, sorted)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles, nil
}

// Size returns the number of vertices and edges.
func (h *Hierarchy) Size() (types, edges int) {
	for _, ps := range h.parents {
		edges += len(ps)
	}
	order, _ := h.g.Order()
	return order, edges
}
