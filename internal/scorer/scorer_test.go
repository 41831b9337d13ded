package scorer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Scorer:
// - line counts map to tiers at inclusive upper bounds
// - overrides replace single tiers and keep the rest at defaults
// - Validate rejects unordered bounds and shrinking or non-positive budgets
// - public, documented, verb-named declarations outrank private accessors
// - getter/setter names are penalized, "is"/"get" words alone are not
// - parameter counting skips generics, nested parens and arrows
// - Select returns everything untouched when it fits the budget
// - Select truncates to the budget, highest score first, ties by position

func TestTierFor(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	tests := []struct {
		lines int
		want  Tier
	}{
		{0, TierTiny},
		{100, TierTiny},
		{101, TierSmall},
		{500, TierSmall},
		{1500, TierMedium},
		{3000, TierLarge},
		{3001, TierXLarge},
		{8000, TierXXLarge},
		{8001, TierHuge},
		{1000000, TierHuge},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.lines), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, opts.TierFor(tt.lines))
		})
	}

	budgets := make([]int, 0, len(Tiers))
	for _, tier := range Tiers {
		budgets = append(budgets, opts.Limit(tier))
	}
	assert.Equal(t, []int{5, 10, 20, 40, 70, 100, 150}, budgets)
}

func TestOptions_Overrides(t *testing.T) {
	t.Parallel()

	opts := Options{
		Thresholds: map[Tier]int{TierTiny: 50},
		Limits:     map[Tier]int{TierTiny: 2},
	}
	assert.Equal(t, TierSmall, opts.TierFor(60))
	assert.Equal(t, 2, opts.Limit(TierTiny))
	assert.Equal(t, 10, opts.Limit(TierSmall))
	assert.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultOptions().Validate())

	bad := Options{
		Thresholds: map[Tier]int{TierSmall: 50},
		Limits:     map[Tier]int{TierMedium: 3, TierHuge: 0},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrThresholdOrder))
	assert.True(t, errors.Is(err, ErrLimitOrder))
	assert.True(t, errors.Is(err, ErrInvalidLimit))
}

func TestScore_Dimensions(t *testing.T) {
	t.Parallel()

	save := facts.Symbol{
		Name:      "UserService.saveUser",
		Kind:      facts.KindMethod,
		Signature: "public void saveUser(User user, boolean flush, int retries)",
		Docstring: "Persists the user and flushes pending changes when requested.",
		LineStart: 10,
		LineEnd:   40,
	}
	getter := facts.Symbol{
		Name:      "UserService.getName",
		Kind:      facts.KindMethod,
		Signature: "private String getName()",
		LineStart: 42,
		LineEnd:   44,
	}

	s := Score(save)
	assert.Equal(t, visPublic, s.Visibility)
	assert.Equal(t, 2.5, s.Semantic)
	assert.Equal(t, 1.5, s.Documentation)
	assert.Equal(t, 2.5, s.Complexity)
	assert.Zero(t, s.Noise)

	g := Score(getter)
	assert.Equal(t, visPrivate, g.Visibility)
	assert.Equal(t, -2.0, g.Noise)
	assert.Greater(t, s.Total(), g.Total())
}

func TestScore_Noise(t *testing.T) {
	t.Parallel()

	method := func(name string, lines int) facts.Symbol {
		return facts.Symbol{Name: name, Kind: facts.KindMethod, LineStart: 1, LineEnd: lines}
	}
	assert.Equal(t, -2.0, Score(method("setEmail", 3)).Noise)
	assert.Equal(t, -2.0, Score(method("get_email", 1)).Noise)
	assert.Equal(t, -1.0, Score(method("isActive", 12)).Noise)
	assert.Zero(t, Score(method("issue", 2)).Noise)
	assert.Zero(t, Score(method("get", 2)).Noise)
	assert.Zero(t, Score(facts.Symbol{Name: "getter", Kind: facts.KindField}).Noise)
}

func TestScore_Visibility(t *testing.T) {
	t.Parallel()

	assert.Equal(t, visPrivate, Score(facts.Symbol{Name: "Repo._cache", Kind: facts.KindMethod}).Visibility)
	assert.Equal(t, visPrivate, Score(facts.Symbol{Name: "Repo.#token", Kind: facts.KindField}).Visibility)
	assert.Equal(t, visDefault, Score(facts.Symbol{Name: "Repo.__init__", Kind: facts.KindConstructor}).Visibility)
	assert.Equal(t, visProtected, Score(facts.Symbol{Name: "Repo.load", Kind: facts.KindMethod, Signature: "protected function load()"}).Visibility)
	assert.Equal(t, visPublic, Score(facts.Symbol{Name: "Repo", Kind: facts.KindClass}).Visibility)
	assert.Equal(t, visDefault, Score(facts.Symbol{Name: "helper", Kind: facts.KindFunction}).Visibility)
}

func TestParameterCount(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":                                       0,
		"void run()":                             0,
		"def f(self, x, y=1)":                    3,
		"Map<K, V> merge(Map<K, V> a, List<V> b)": 2,
		"function handle(cb: () => void, n: number)": 2,
		"fn(a, (b, c))":                          2,
		"function list(array $items = [1, 2])":   1,
	}
	for sig, want := range tests {
		assert.Equal(t, want, parameterCount(sig), sig)
	}
}

func symbols(n int) []facts.Symbol {
	out := make([]facts.Symbol, n)
	for i := range out {
		out[i] = facts.Symbol{Name: fmt.Sprintf("f%d", i), Kind: facts.KindFunction, LineStart: i + 1, LineEnd: i + 1}
	}
	return out
}

func TestSelect_WithinBudget(t *testing.T) {
	t.Parallel()

	in := symbols(5)
	in[4].Docstring = "Important."

	sel := Select(in, 80, DefaultOptions())
	assert.Equal(t, TierTiny, sel.Tier)
	assert.Equal(t, 5, sel.Budget)
	assert.False(t, sel.Truncated)
	assert.Equal(t, in, sel.Symbols, "order is untouched when nothing is cut")

	sel = Select(nil, 0, DefaultOptions())
	assert.Empty(t, sel.Symbols)
	assert.False(t, sel.Truncated)
}

func TestSelect_Truncates(t *testing.T) {
	t.Parallel()

	in := symbols(8)
	in[6].Name = "createOrder"
	in[6].Docstring = "Creates an order."
	in[7].Name = "getId"

	sel := Select(in, 90, DefaultOptions())
	require.True(t, sel.Truncated)
	require.Len(t, sel.Symbols, 5)

	names := make([]string, len(sel.Symbols))
	for i, s := range sel.Symbols {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"createOrder", "f0", "f1", "f2", "f3"}, names)

	// Input is not reordered.
	assert.Equal(t, "f0", in[0].Name)
}

func TestSelect_Deterministic(t *testing.T) {
	t.Parallel()

	in := symbols(40)
	first := Select(in, 2000, DefaultOptions())
	second := Select(in, 2000, DefaultOptions())
	assert.Equal(t, TierLarge, first.Tier)
	assert.False(t, first.Truncated)
	assert.Equal(t, first, second)

	small := Select(in, 200, DefaultOptions())
	assert.True(t, small.Truncated)
	assert.Equal(t, in[:10], small.Symbols)
}
