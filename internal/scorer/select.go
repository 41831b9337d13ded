package scorer

import (
	"sort"

	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// Selection is the outcome of Select.
type Selection struct {
	Symbols []facts.Symbol
	Tier    Tier
	Budget  int
	// Truncated is true only when symbols were dropped.
	Truncated bool
}

// Ranked is a symbol with its score and declaration position.
type Ranked struct {
	Symbol facts.Symbol
	Score  Breakdown
	Index  int
}

// Rank scores every symbol and sorts by descending total. Equal scores keep
// declaration order.
func Rank(symbols []facts.Symbol) []Ranked {
	ranked := make([]Ranked, len(symbols))
	for i, sym := range symbols {
		ranked[i] = Ranked{Symbol: sym, Score: Score(sym), Index: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total() > ranked[j].Score.Total()
	})
	return ranked
}

// Select returns the most important symbols of a file with fileLines lines,
// at most the budget of its tier. When everything fits, symbols are returned
// in their original order.
func Select(symbols []facts.Symbol, fileLines int, opts Options) Selection {
	tier := opts.TierFor(fileLines)
	budget := opts.Limit(tier)
	sel := Selection{Tier: tier, Budget: budget}

	if len(symbols) <= budget {
		sel.Symbols = append([]facts.Symbol{}, symbols...)
		return sel
	}

	ranked := Rank(symbols)
	sel.Symbols = make([]facts.Symbol, budget)
	for i := range sel.Symbols {
		sel.Symbols[i] = ranked[i].Symbol
	}
	sel.Truncated = true
	return sel
}
