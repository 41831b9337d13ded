package indexer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Pipeline:
// - A batch over the fixture project links calls and inheritance across files
// - Results keep input order; disabled and unknown languages are skipped
// - A second run over unchanged files is served from the parse cache
// - Cached and fresh runs produce identical JSON
// - Metrics count files by outcome and calls by call type
// - Partial files carry their error and do not fail the batch
// - A cancelled context aborts the batch
// - JSON and JSON lines output round-trip through ReadResults
// - A session publishes results and the hierarchy snapshot

func fixtureFiles(t *testing.T) []SourceFile {
	t.Helper()
	fd, err := NewFileDiscovery(fixtureProject, []string{"**/*.java", "**/*.py"}, []string{"node_modules/**"}, nil)
	require.NoError(t, err)
	files, err := fd.Discover()
	require.NoError(t, err)
	require.Len(t, files, 3)
	return files
}

func findCall(t *testing.T, r *facts.ParseResult, line int) facts.Call {
	t.Helper()
	for _, c := range r.Calls {
		if c.LineNumber == line {
			return c
		}
	}
	t.Fatalf("no call at line %d in %s", line, r.Path)
	return facts.Call{}
}

func TestPipeline_FixtureProject(t *testing.T) {
	t.Parallel()

	p := NewPipeline(&Config{Workers: 2}, nil, nil, nil)
	res, err := p.Run(context.Background(), fixtureFiles(t))
	require.NoError(t, err)
	require.Len(t, res.Results, 3)

	assert.Equal(t, "scripts/tool.py", res.Results[0].Path)
	assert.Equal(t, "src/com/acme/Base.java", res.Results[1].Path)

	admin := res.Results[2]
	assert.Equal(t, "com.acme.admin", admin.Namespace)
	assert.Equal(t, []facts.Inheritance{{Child: "com.acme.admin.Admin", Parent: "com.acme.Base"}}, admin.Inheritances)

	save := findCall(t, admin, 7)
	assert.Equal(t, "com.acme.admin.Admin.run", save.Caller)
	require.NotNil(t, save.Callee)
	assert.Equal(t, "com.acme.Base.save", *save.Callee)
	assert.Equal(t, facts.CallMethod, save.CallType)

	assert.Equal(t, 3, res.Stats.Parsed)
	assert.Zero(t, res.Stats.Cached)
	assert.Equal(t, 2, res.Stats.Types)
	assert.Equal(t, 1, res.Stats.Edges)
	assert.Zero(t, res.Stats.Cycles)
	assert.Equal(t, []string{"com.acme.Base"}, res.Batch.Hierarchy.Parents("com.acme.admin.Admin"))

	for _, r := range res.Results {
		assert.NoError(t, facts.CheckInvariants(r), r.Path)
	}
}

func TestPipeline_SkipsDisabledLanguages(t *testing.T) {
	t.Parallel()

	files := []SourceFile{
		{Path: "a.py", Language: "python", Content: []byte("def f():\n    pass\n")},
		{Path: "b.rb", Language: "ruby", Content: []byte("def f; end\n")},
		{Path: "c.ts", Language: "typescript", Content: []byte("export function g() {}\n")},
		{Path: "d.py", Language: "python", Content: []byte("class D:\n    pass\n")},
	}

	p := NewPipeline(&Config{Languages: []string{"python", "ruby"}}, nil, nil, nil)
	res, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "a.py", res.Results[0].Path)
	assert.Equal(t, "d.py", res.Results[1].Path)
	assert.Equal(t, 2, res.Stats.Skipped)
	assert.Equal(t, 2, res.Stats.Parsed)
}

func TestPipeline_CacheAndMetrics(t *testing.T) {
	t.Parallel()

	cache, err := NewResultCache(64)
	require.NoError(t, err)
	defer cache.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	p := NewPipeline(&Config{Workers: 3}, cache, metrics, nil)

	files := fixtureFiles(t)
	first, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	methodCalls := testutil.ToFloat64(metrics.CallsTotal.WithLabelValues(string(facts.CallMethod)))
	assert.GreaterOrEqual(t, methodCalls, 1.0)

	second, err := p.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Stats.Cached)
	assert.Zero(t, second.Stats.Parsed)

	for i := range first.Results {
		a, err := facts.Marshal(first.Results[i])
		require.NoError(t, err)
		b, err := facts.Marshal(second.Results[i])
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("java", string(OutcomeParsed))))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("java", string(OutcomeCached))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("python", string(OutcomeCached))))
	assert.Equal(t, 2*methodCalls, testutil.ToFloat64(metrics.CallsTotal.WithLabelValues(string(facts.CallMethod))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GraphEdges))
}

func TestPipeline_PartialFile(t *testing.T) {
	t.Parallel()

	files := []SourceFile{
		{Path: "Broken.java", Language: "java", Content: []byte("package demo;\n\npublic class Broken {\n    void ok() {}\n")},
		{Path: "ok.py", Language: "python", Content: []byte("x = 1\n")},
	}

	p := NewPipeline(&Config{}, nil, nil, nil)
	res, err := p.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)

	require.NotNil(t, res.Results[0].Error)
	assert.Equal(t, facts.ErrSyntax, res.Results[0].Error.Kind)
	assert.Nil(t, res.Results[1].Error)
	assert.Equal(t, 1, res.Stats.Partial)
	assert.Equal(t, 1, res.Stats.Parsed)
}

func TestPipeline_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&Config{Workers: 1}, nil, nil, nil)
	_, err := p.Run(ctx, fixtureFiles(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPipeline_Empty(t *testing.T) {
	t.Parallel()

	res, err := NewPipeline(&Config{}, nil, nil, nil).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.Stats.Files)
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	base := SourceFile{Path: "a.py", Language: "python", Content: []byte("x = 1\n")}
	same := SourceFile{Path: "a.py", Language: "python", Content: []byte("x = 1\n")}
	moved := SourceFile{Path: "b.py", Language: "python", Content: []byte("x = 1\n")}
	edited := SourceFile{Path: "a.py", Language: "python", Content: []byte("x = 2\n")}

	assert.Equal(t, CacheKey(base), CacheKey(same))
	assert.NotEqual(t, CacheKey(base), CacheKey(moved))
	assert.NotEqual(t, CacheKey(base), CacheKey(edited))
	assert.Len(t, CacheKey(base), 64)

	var disabled *ResultCache
	_, ok := disabled.Get(base)
	assert.False(t, ok)
	assert.Zero(t, disabled.Len())

	cache, err := NewResultCache(0)
	require.NoError(t, err)
	assert.Nil(t, cache)
}

func TestJSONWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	res, err := NewPipeline(&Config{}, nil, nil, nil).Run(context.Background(), fixtureFiles(t))
	require.NoError(t, err)

	for _, lines := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, NewJSONWriter("", lines, &buf).WriteResults(context.Background(), res.Results))

		decoded, err := ReadResults(&buf)
		require.NoError(t, err)
		require.Len(t, decoded, len(res.Results))
		for i := range decoded {
			assert.Equal(t, facts.Normalize(res.Results[i].Clone()), decoded[i])
		}
	}

	path := filepath.Join(t.TempDir(), "out", "facts.jsonl")
	require.NoError(t, NewJSONWriter(path, true, nil).WriteResults(context.Background(), res.Results))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(data, []byte("\n")))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

type memorySink struct {
	mu      sync.Mutex
	batches [][]*facts.ParseResult
}

func (m *memorySink) WriteResults(ctx context.Context, results []*facts.ParseResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, results)
	return nil
}

func TestSession_PublishesBatches(t *testing.T) {
	t.Parallel()

	fd, err := NewFileDiscovery(fixtureProject, []string{"**/*.java", "**/*.py"}, []string{"node_modules/**"}, nil)
	require.NoError(t, err)
	cache, err := NewResultCache(16)
	require.NoError(t, err)
	defer cache.Close()

	gs, err := graph.NewStorage(t.TempDir())
	require.NoError(t, err)

	sink := &memorySink{}
	session := NewSession(fd, NewPipeline(&Config{}, cache, nil, nil), sink, gs)
	assert.Nil(t, session.Last())

	res, err := session.Index(context.Background())
	require.NoError(t, err)
	assert.Same(t, res, session.Last())

	stats, err := session.Reindex(context.Background(), []string{"scripts/tool.py"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Cached)

	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[1], 3)

	h, err := graph.LoadHierarchy(gs)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme.Base"}, h.Parents("com.acme.admin.Admin"))
}
