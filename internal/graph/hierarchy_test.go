package graph

import (
	"testing"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Hierarchy and Builder:
// - Parents keep declaration order, children are sorted
// - Ancestors are breadth-first, nearest first, without duplicates
// - Library supertypes become vertices but are not Known
// - Cycles (including self-loops) are reported and never hang walks
// - Builder indexes types, members and keeps the first duplicate
// - FindMember searches the type then its ancestors
// - A module keys declarations so equal names in two modules stay apart

func edge(child, parent string) Edge {
	return Edge{From: child, To: parent, Type: EdgeInherits}
}

func node(id string) Node {
	return Node{ID: id, Kind: facts.KindClass}
}

func TestHierarchy_ParentsAndAncestors(t *testing.T) {
	t.Parallel()

	h, err := NewHierarchy(&GraphData{
		Nodes: []Node{node("A"), node("B"), node("C"), node("D")},
		Edges: []Edge{
			edge("A", "C"),
			edge("A", "B"),
			edge("B", "D"),
			edge("C", "D"),
			edge("D", "java.io.Serializable"),
			edge("A", "B"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "B"}, h.Parents("A"))
	assert.Equal(t, []string{"C", "B", "D", "java.io.Serializable"}, h.Ancestors("A"))
	assert.Equal(t, []string{"A"}, h.Children("B"))
	assert.Equal(t, []string{"B", "C"}, h.Children("D"))
	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, h.Descendants("java.io.Serializable"))

	assert.True(t, h.Known("D"))
	assert.False(t, h.Known("java.io.Serializable"))
	assert.False(t, h.AllAncestorsKnown("A"))
	assert.True(t, h.AllAncestorsKnown("java.io.Serializable"))

	types, edges := h.Size()
	assert.Equal(t, 5, types)
	assert.Equal(t, 5, edges)
}

func TestHierarchy_Cycles(t *testing.T) {
	t.Parallel()

	h, err := NewHierarchy(&GraphData{
		Nodes: []Node{node("A"), node("B"), node("C"), node("Self")},
		Edges: []Edge{
			edge("A", "B"),
			edge("B", "A"),
			edge("C", "A"),
			edge("Self", "Self"),
		},
	})
	require.NoError(t, err)

	cycles, err := h.Cycles()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"Self"}}, cycles)

	assert.Equal(t, []string{"A", "B"}, h.Ancestors("C"))
	assert.Equal(t, []string{"B"}, h.Ancestors("A"))
	assert.Empty(t, h.Ancestors("Self"))
}

func TestHierarchy_Empty(t *testing.T) {
	t.Parallel()

	h, err := NewHierarchy(nil)
	require.NoError(t, err)
	assert.Empty(t, h.Parents("X"))
	assert.Empty(t, h.Ancestors("X"))

	cycles, err := h.Cycles()
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestBuilder_AddFile(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.AddFile(&facts.ParseResult{
		Path:      "src/App/Models/User.php",
		Language:  "php",
		Namespace: `App\Models`,
		Symbols: []facts.Symbol{
			{Name: `App\Models`, Kind: facts.KindNamespace, LineStart: 2, LineEnd: 2},
			{Name: "User", Kind: facts.KindClass, LineStart: 4, LineEnd: 20},
			{Name: "User.save", Kind: facts.KindMethod, LineStart: 6, LineEnd: 9},
			{Name: "User.email", Kind: facts.KindField, LineStart: 5, LineEnd: 5},
			{Name: "helper", Kind: facts.KindFunction, LineStart: 22, LineEnd: 24},
		},
	}, "")
	b.AddFile(&facts.ParseResult{
		Path:      "src/App/Models/Admin.php",
		Language:  "php",
		Namespace: `App\Models`,
		Symbols: []facts.Symbol{
			{Name: "Admin", Kind: facts.KindClass, LineStart: 4, LineEnd: 10},
			{Name: "User", Kind: facts.KindClass, LineStart: 12, LineEnd: 14},
		},
	}, "")
	b.AddEdge(`App\Models\Admin`, `App\Models\User`, Location{File: "src/App/Models/Admin.php", Line: 4})
	b.AddEdge(`App\Models\Admin`, `App\Models\User`, Location{File: "src/App/Models/Admin.php", Line: 4})

	idx := b.Index()
	assert.True(t, idx.IsType(`App\Models\User`))
	assert.False(t, idx.IsType(`App\Models\helper`))
	kind, ok := idx.Kind(`App\Models\helper`)
	require.True(t, ok)
	assert.Equal(t, facts.KindFunction, kind)
	_, ok = idx.Kind(`App\Models\App\Models`)
	assert.False(t, ok, "namespace symbols are not indexed")

	assert.True(t, idx.Declares(`App\Models\User`, "save"))
	memberKind, ok := idx.MemberKind(`App\Models\User`, "email")
	require.True(t, ok)
	assert.Equal(t, facts.KindField, memberKind)

	data := b.Data()
	require.Len(t, data.Nodes, 2)
	assert.Equal(t, `App\Models\Admin`, data.Nodes[0].ID)
	assert.Equal(t, "src/App/Models/User.php", data.Nodes[1].File, "first declaration wins")
	require.Len(t, data.Edges, 1)
	assert.Equal(t, 4, data.Edges[0].Location.Line)

	h, err := b.Build()
	require.NoError(t, err)

	owner, ok := idx.FindMember(h, `App\Models\Admin`, "save")
	require.True(t, ok)
	assert.Equal(t, `App\Models\User`, owner)

	_, ok = idx.FindMember(h, `App\Models\Admin`, "delete")
	assert.False(t, ok)
}

func TestBuilder_AddFileWithModule(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	for _, file := range []struct{ path, module string }{
		{"app/models.py", "app.models"},
		{"app/legacy.py", "app.legacy"},
	} {
		b.AddFile(&facts.ParseResult{
			Path:     file.path,
			Language: "python",
			Symbols: []facts.Symbol{
				{Name: "Base", Kind: facts.KindClass, LineStart: 1, LineEnd: 3},
				{Name: "Base.save", Kind: facts.KindMethod, LineStart: 2, LineEnd: 3},
			},
		}, file.module)
	}

	idx := b.Index()
	assert.True(t, idx.Declares("app.models.Base", "save"))
	assert.True(t, idx.Declares("app.legacy.Base", "save"))
	assert.False(t, idx.IsType("Base"))

	data := b.Data()
	require.Len(t, data.Nodes, 2, "same class name in two modules")
	assert.Equal(t, "app/legacy.py", data.Nodes[0].File)
	assert.Equal(t, "app/models.py", data.Nodes[1].File)
}
