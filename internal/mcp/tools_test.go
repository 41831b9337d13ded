package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/graph"
	"github.com/mvp-joe/cortex-facts/internal/indexer"
	"github.com/mvp-joe/cortex-facts/internal/resolver"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
	"github.com/mvp-joe/cortex-facts/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for MCP tools:
// - facts_extract reads a project file and returns its facts as JSON
// - facts_extract parses inline content without touching the filesystem
// - Files present in the last batch are served from it
// - Missing path, unsupported or disabled language and root escapes are tool errors
// - facts_select returns the tier, budget and kept symbols; scores only on request
// - facts_hierarchy answers every direction and rejects unknown ones
// - The hierarchy source falls back from the live batch to the snapshot to empty
// - facts_callers truncates to max_results and surfaces finder errors

const fixtureRoot = "../../testdata/project"

func callTool(t *testing.T, handler toolHandler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func newTestExtractor(t *testing.T, languages []string, batch BatchSource) *Extractor {
	t.Helper()
	ex := NewExtractor(fixtureRoot, languages, batch)
	t.Cleanup(ex.Close)
	return ex
}

func symbolNames(symbols []facts.Symbol) []string {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	return names
}

type fakeBatch struct {
	result *indexer.Result
}

func (f *fakeBatch) Last() *indexer.Result { return f.result }

func TestExtractTool_ReadsProjectFile(t *testing.T) {
	t.Parallel()

	handler := createExtractHandler(newTestExtractor(t, nil, nil))
	result := callTool(t, handler, map[string]interface{}{
		"path": "src/com/acme/Base.java",
	})
	require.False(t, result.IsError, resultText(t, result))

	got, err := facts.Unmarshal([]byte(resultText(t, result)))
	require.NoError(t, err)
	assert.Equal(t, "src/com/acme/Base.java", got.Path)
	assert.Equal(t, "java", got.Language)
	assert.Equal(t, "com.acme", got.Namespace)
	assert.Nil(t, got.Error)
	assert.Contains(t, symbolNames(got.Symbols), "Base")
	assert.Contains(t, symbolNames(got.Symbols), "Base.save")
	assert.NoError(t, facts.CheckInvariants(got))
}

func TestExtractTool_InlineContent(t *testing.T) {
	t.Parallel()

	handler := createExtractHandler(newTestExtractor(t, nil, nil))
	result := callTool(t, handler, map[string]interface{}{
		"path":    "not/on/disk.py",
		"content": "def greet(name):\n    return name\n",
	})
	require.False(t, result.IsError, resultText(t, result))

	got, err := facts.Unmarshal([]byte(resultText(t, result)))
	require.NoError(t, err)
	assert.Equal(t, "python", got.Language)
	assert.Equal(t, []string{"greet"}, symbolNames(got.Symbols))
}

func TestExtractTool_PrefersLastBatch(t *testing.T) {
	t.Parallel()

	linked := &facts.ParseResult{
		Path:      "src/com/acme/Base.java",
		Language:  "java",
		Namespace: "linked.elsewhere",
		FileLines: 6,
	}
	batch := &fakeBatch{result: &indexer.Result{
		Results: []*facts.ParseResult{facts.Normalize(linked)},
	}}

	handler := createExtractHandler(newTestExtractor(t, nil, batch))
	result := callTool(t, handler, map[string]interface{}{
		"path": "./src/com/acme/Base.java",
	})
	require.False(t, result.IsError, resultText(t, result))

	got, err := facts.Unmarshal([]byte(resultText(t, result)))
	require.NoError(t, err)
	assert.Equal(t, "linked.elsewhere", got.Namespace)

	// Inline content always bypasses the batch
	result = callTool(t, handler, map[string]interface{}{
		"path":    "src/com/acme/Base.java",
		"content": "package com.acme;\n\npublic class Base {}\n",
	})
	got, err = facts.Unmarshal([]byte(resultText(t, result)))
	require.NoError(t, err)
	assert.Equal(t, "com.acme", got.Namespace)
}

func TestExtractTool_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		languages []string
		args      map[string]interface{}
		contains  string
	}{
		{
			name:     "missing path",
			args:     map[string]interface{}{},
			contains: "path parameter is required",
		},
		{
			name:     "unsupported extension",
			args:     map[string]interface{}{"path": "lib/tool.rb"},
			contains: "unsupported language",
		},
		{
			name:      "disabled language",
			languages: []string{"python"},
			args:      map[string]interface{}{"path": "src/com/acme/Base.java"},
			contains:  "unsupported language",
		},
		{
			name:     "outside root",
			args:     map[string]interface{}{"path": "../../go.py"},
			contains: "outside project root",
		},
		{
			name:     "missing file",
			args:     map[string]interface{}{"path": "src/Missing.java"},
			contains: "failed to read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := createExtractHandler(newTestExtractor(t, tt.languages, nil))
			result := callTool(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.contains)
		})
	}
}

func TestSelectTool(t *testing.T) {
	t.Parallel()

	handler := createSelectHandler(newTestExtractor(t, nil, nil), scorer.DefaultOptions())

	result := callTool(t, handler, map[string]interface{}{
		"path": "src/com/acme/Base.java",
	})
	require.False(t, result.IsError, resultText(t, result))

	var resp SelectResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "src/com/acme/Base.java", resp.Path)
	assert.Equal(t, string(scorer.TierTiny), resp.Tier)
	assert.Equal(t, 5, resp.Budget)
	assert.Equal(t, 2, resp.TotalSymbols)
	assert.False(t, resp.Truncated)
	require.Len(t, resp.Symbols, 2)
	for _, sym := range resp.Symbols {
		assert.Nil(t, sym.Breakdown)
	}

	// String-encoded boolean from clients that stringify everything
	result = callTool(t, handler, map[string]interface{}{
		"path":           "src/com/acme/Base.java",
		"include_scores": "true",
	})
	require.False(t, result.IsError, resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	require.Len(t, resp.Symbols, 2)
	for _, sym := range resp.Symbols {
		require.NotNil(t, sym.Breakdown)
		assert.Len(t, sym.Breakdown, 5)
		assert.Contains(t, sym.Breakdown, "visibility")
	}
}

func TestSelectTool_Truncates(t *testing.T) {
	t.Parallel()

	opts := scorer.DefaultOptions()
	opts.Limits[scorer.TierTiny] = 1

	handler := createSelectHandler(newTestExtractor(t, nil, nil), opts)
	result := callTool(t, handler, map[string]interface{}{
		"path": "src/com/acme/Base.java",
	})
	require.False(t, result.IsError, resultText(t, result))

	var resp SelectResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, 1, resp.Budget)
	assert.True(t, resp.Truncated)
	assert.Len(t, resp.Symbols, 1)
	assert.Equal(t, 2, resp.TotalSymbols)
}

func testHierarchyData() *graph.GraphData {
	return &graph.GraphData{
		Nodes: []graph.Node{
			{ID: "com.acme.Base", Kind: facts.KindClass, File: "src/com/acme/Base.java", StartLine: 3, EndLine: 6},
			{ID: "com.acme.admin.Admin", Kind: facts.KindClass, File: "src/com/acme/admin/Admin.java", StartLine: 5, EndLine: 9},
			{ID: "com.acme.admin.Root", Kind: facts.KindClass, File: "src/com/acme/admin/Root.java", StartLine: 3, EndLine: 4},
		},
		Edges: []graph.Edge{
			{From: "com.acme.admin.Admin", To: "com.acme.Base", Type: graph.EdgeInherits},
			{From: "com.acme.admin.Root", To: "com.acme.admin.Admin", Type: graph.EdgeInherits},
			{From: "com.acme.Base", To: "java.io.Serializable", Type: graph.EdgeInherits},
		},
	}
}

type staticHierarchy struct {
	h   *graph.Hierarchy
	err error
}

func (s staticHierarchy) Hierarchy(ctx context.Context) (*graph.Hierarchy, error) {
	return s.h, s.err
}

func TestHierarchyTool(t *testing.T) {
	t.Parallel()

	h, err := graph.NewHierarchy(testHierarchyData())
	require.NoError(t, err)
	handler := createHierarchyHandler(staticHierarchy{h: h})

	tests := []struct {
		name      string
		typ       string
		direction string
		want      []string
		declared  bool
	}{
		{"default is ancestors", "com.acme.admin.Root", "", []string{"com.acme.admin.Admin", "com.acme.Base", "java.io.Serializable"}, true},
		{"parents", "com.acme.admin.Root", DirectionParents, []string{"com.acme.admin.Admin"}, true},
		{"children", "com.acme.Base", DirectionChildren, []string{"com.acme.admin.Admin"}, true},
		{"descendants", "com.acme.Base", DirectionDescendants, []string{"com.acme.admin.Admin", "com.acme.admin.Root"}, true},
		{"library type", "java.io.Serializable", DirectionChildren, []string{"com.acme.Base"}, false},
		{"unknown type", "com.acme.Nope", DirectionAncestors, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := map[string]interface{}{"type": tt.typ}
			if tt.direction != "" {
				args["direction"] = tt.direction
			}
			result := callTool(t, handler, args)
			require.False(t, result.IsError, resultText(t, result))

			var resp HierarchyResponse
			require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
			assert.Equal(t, tt.want, resp.Types)
			if tt.direction == "" {
				assert.Equal(t, DirectionAncestors, resp.Direction)
			}
			if tt.declared {
				require.NotNil(t, resp.Declared)
				assert.Equal(t, tt.typ, resp.Declared.ID)
			} else {
				assert.Nil(t, resp.Declared)
			}
		})
	}
}

func TestHierarchyTool_Errors(t *testing.T) {
	t.Parallel()

	h, err := graph.NewHierarchy(nil)
	require.NoError(t, err)

	handler := createHierarchyHandler(staticHierarchy{h: h})
	result := callTool(t, handler, map[string]interface{}{"type": "a.B", "direction": "sideways"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid direction")

	result = callTool(t, handler, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "type parameter is required")

	failing := createHierarchyHandler(staticHierarchy{err: errors.New("disk gone")})
	_, err = failing(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"type": "a.B"}},
	})
	assert.ErrorContains(t, err, "disk gone")
}

func TestHierarchySource_Fallbacks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Nothing available
	h, err := NewHierarchySource(nil, nil).Hierarchy(ctx)
	require.NoError(t, err)
	types, edges := h.Size()
	assert.Zero(t, types)
	assert.Zero(t, edges)

	// Snapshot on disk
	snapshot, err := graph.NewStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, snapshot.Save(testHierarchyData()))

	empty := &fakeBatch{}
	h, err = NewHierarchySource(empty, snapshot).Hierarchy(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme.Base"}, h.Parents("com.acme.admin.Admin"))

	// Live batch wins over the snapshot
	live, err := graph.NewHierarchy(&graph.GraphData{
		Edges: []graph.Edge{{From: "x.Child", To: "x.Parent", Type: graph.EdgeInherits}},
	})
	require.NoError(t, err)
	batch := &fakeBatch{result: &indexer.Result{Batch: &resolver.Batch{Hierarchy: live}}}
	h, err = NewHierarchySource(batch, snapshot).Hierarchy(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.Parent"}, h.Parents("x.Child"))
	assert.Empty(t, h.Parents("com.acme.admin.Admin"))
}

type fakeFinder struct {
	sites []storage.CallSite
	err   error
	got   string
}

func (f *fakeFinder) FindCallers(ctx context.Context, fqn string) ([]storage.CallSite, error) {
	f.got = fqn
	return f.sites, f.err
}

func TestCallersTool(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{sites: []storage.CallSite{
		{Path: "app/a.py", Call: facts.ResolvedCall(facts.ModuleScope, "com.acme.Base.save", facts.CallMethod, 3, nil)},
		{Path: "src/B.java", Call: facts.ResolvedCall("com.acme.B.run", "com.acme.Base.save", facts.CallMethod, 7, facts.IntPtr(0))},
		{Path: "src/C.java", Call: facts.ResolvedCall("com.acme.C.go", "com.acme.Base.save", facts.CallMethod, 11, nil)},
	}}
	handler := createCallersHandler(finder)

	result := callTool(t, handler, map[string]interface{}{
		"callee":      "com.acme.Base.save",
		"max_results": "2",
	})
	require.False(t, result.IsError, resultText(t, result))
	assert.Equal(t, "com.acme.Base.save", finder.got)

	var resp CallersResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.True(t, resp.Truncated)
	require.Len(t, resp.Callers, 2)
	assert.Equal(t, CallerEntry{Path: "app/a.py", Caller: facts.ModuleScope, Line: 3, CallType: facts.CallMethod}, resp.Callers[0])
	assert.Equal(t, "com.acme.B.run", resp.Callers[1].Caller)

	// Default limit keeps everything
	result = callTool(t, handler, map[string]interface{}{"callee": "com.acme.Base.save"})
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.False(t, resp.Truncated)
	assert.Len(t, resp.Callers, 3)
}

func TestCallersTool_Errors(t *testing.T) {
	t.Parallel()

	result := callTool(t, createCallersHandler(&fakeFinder{}), map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "callee parameter is required")

	handler := createCallersHandler(&fakeFinder{err: errors.New("database is locked")})
	_, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"callee": "a.b"}},
	})
	assert.ErrorContains(t, err, "database is locked")
}

func TestCallersTool_Storage(t *testing.T) {
	t.Parallel()

	db, _ := storage.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, storage.NewFactsWriterWithDB(db).WriteResults(ctx, []*facts.ParseResult{
		{
			Path:     "src/com/acme/admin/Admin.java",
			Language: "java",
			Calls: []facts.Call{
				facts.ResolvedCall("com.acme.admin.Admin.run", "com.acme.Base.save", facts.CallMethod, 7, facts.IntPtr(0)),
			},
		},
	}))

	handler := createCallersHandler(storage.NewFactsReaderWithDB(db))
	result := callTool(t, handler, map[string]interface{}{"callee": "com.acme.Base.save"})
	require.False(t, result.IsError, resultText(t, result))

	var resp CallersResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	require.Len(t, resp.Callers, 1)
	assert.Equal(t, "src/com/acme/admin/Admin.java", resp.Callers[0].Path)
	assert.Equal(t, 7, resp.Callers[0].Line)
}

func TestNewMCPServer(t *testing.T) {
	t.Parallel()

	_, dbPath := storage.NewTestDB(t)

	s, err := NewMCPServer(&MCPServerConfig{
		RootDir:       fixtureRoot,
		ScorerOptions: scorer.DefaultOptions(),
		GraphDir:      t.TempDir(),
		DBPath:        dbPath,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, s.reader)
	assert.NoError(t, s.Close())

	s, err = NewMCPServer(&MCPServerConfig{RootDir: fixtureRoot}, nil)
	require.NoError(t, err)
	assert.Nil(t, s.reader)
	assert.NoError(t, s.Close())
}
