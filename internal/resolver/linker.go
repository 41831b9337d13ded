package resolver

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/graph"
)

// ErrIncompleteBatch is returned when Pass B is asked to run before every
// file of the batch has finished Pass A.
var ErrIncompleteBatch = errors.New("resolution pass B started before pass A finished for every file")

// Batch is the outcome of Pass B.
type Batch struct {
	// Results are in the order the files were given to the Linker.
	Results   []*facts.ParseResult
	Graph     *graph.GraphData
	Hierarchy *graph.Hierarchy
	Index     *graph.TypeIndex
	// Cycles lists inheritance cycles; each is sorted.
	Cycles [][]string
}

// Linker runs Pass B over a complete batch. The FileFacts it is given are
// never modified.
type Linker struct {
	files    []*FileFacts
	expected int
}

// NewLinker creates a linker for files. expected is the number of files in
// the batch.
func NewLinker(files []*FileFacts, expected int) *Linker {
	return &Linker{files: files, expected: expected}
}

// Link builds the project snapshot and finishes every pending record.
func (l *Linker) Link() (*Batch, error) {
	if len(l.files) < l.expected {
		return nil, fmt.Errorf("%w: have %d of %d files", ErrIncompleteBatch, len(l.files), l.expected)
	}
	for i, f := range l.files {
		if f == nil || f.Result == nil {
			return nil, fmt.Errorf("%w: file %d has no pass A result", ErrIncompleteBatch, i)
		}
	}

	ids := newTypeIDs(l.files)
	builder := graph.NewBuilder()
	results := make([]*facts.ParseResult, len(l.files))
	for i, f := range l.files {
		results[i] = cloneResult(f.Result)
		builder.AddFile(results[i], ids.module(i))
	}
	index := builder.Index()

	for i, f := range l.files {
		for _, p := range f.Pending {
			if p.Inheritance {
				results[i].Inheritances[p.Index].Parent = lookup(index, p, p.Fallback)
			}
		}
	}
	for i, r := range results {
		for j, inh := range r.Inheritances {
			loc := graph.Location{File: r.Path}
			if j < len(l.files[i].InheritanceLines) {
				loc.Line = l.files[i].InheritanceLines[j]
			}
			builder.AddEdge(ids.id(i, inh.Child), ids.id(i, inh.Parent), loc)
		}
	}

	hierarchy, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build type hierarchy: %w", err)
	}

	for i, f := range l.files {
		for _, p := range f.Pending {
			if p.Inheritance {
				continue
			}
			calls := results[i].Calls
			local := func(id string) string { return ids.name(i, id) }
			calls[p.Index] = finish(index, hierarchy, ids.withIDs(i, p), calls[p.Index], local)
		}
	}

	cycles, err := hierarchy.Cycles()
	if err != nil {
		return nil, fmt.Errorf("failed to detect inheritance cycles: %w", err)
	}

	return &Batch{
		Results:   results,
		Graph:     builder.Data(),
		Hierarchy: hierarchy,
		Index:     index,
		Cycles:    cycles,
	}, nil
}

// Finalize runs Pass B over files treated as one complete batch.
func Finalize(files ...*FileFacts) ([]*facts.ParseResult, error) {
	batch, err := NewLinker(files, len(files)).Link()
	if err != nil {
		return nil, err
	}
	return batch.Results, nil
}

// cloneResult copies the parts Pass B rewrites.
func cloneResult(r *facts.ParseResult) *facts.ParseResult {
	out := *r
	out.Inheritances = append([]facts.Inheritance{}, r.Inheritances...)
	out.Calls = append([]facts.Call{}, r.Calls...)
	return &out
}

func lookup(index *graph.TypeIndex, p Pending, fallback string) string {
	for _, candidate := range p.Candidates {
		if _, ok := index.Kind(candidate); ok {
			return candidate + p.Suffix
		}
	}
	return fallback
}

// finish resolves one deferred call. local turns a graph ID into the name
// the calling file uses for that type.
func finish(index *graph.TypeIndex, h *graph.Hierarchy, p Pending, call facts.Call, local func(string) string) facts.Call {
	member := func(owner, name string) string { return local(owner) + "." + name }

	switch p.Kind {
	case PendingLookup:
		if callee := lookup(index, p, p.Fallback); callee != "" {
			return bind(call, callee, p.CallType)
		}

	case PendingSuper:
		parents := h.Parents(p.Type)
		if len(parents) == 0 {
			break
		}
		if p.Member == "" {
			return bind(call, local(parents[0]), facts.CallConstructor)
		}
		for _, parent := range parents {
			if _, ok := index.FindMember(h, parent, p.Member); ok {
				return bind(call, member(parent, p.Member), p.CallType)
			}
		}
		return bind(call, member(parents[0], p.Member), p.CallType)

	case PendingInherited:
		if owner, ok := index.FindMember(h, p.Type, p.Member); ok {
			kind, _ := index.MemberKind(owner, p.Member)
			switch {
			case kind == facts.KindField || kind == facts.KindVariable:
				return unbind(call)
			case kind.IsType():
				return bind(call, member(owner, p.Member), facts.CallConstructor)
			}
			return bind(call, member(owner, p.Member), p.CallType)
		}
		if p.Fallback != "" {
			return bind(call, p.Fallback, p.CallType)
		}

	case PendingBare:
		if owner, ok := index.FindMember(h, p.Type, p.Member); ok {
			return bind(call, member(owner, p.Member), p.CallType)
		}
		for _, typ := range p.Candidates {
			if owner, ok := index.FindMember(h, typ, p.Member); ok {
				return bind(call, member(owner, p.Member), facts.CallStaticMethod)
			}
		}
		// With every ancestor known, the member can only come from a static
		// on-demand import.
		if !index.IsType(p.Type) || !h.AllAncestorsKnown(p.Type) {
			break
		}
		for _, typ := range p.Candidates {
			if !index.IsType(typ) {
				return bind(call, typ+"."+p.Member, facts.CallStaticMethod)
			}
		}
	}
	return unbind(call)
}
