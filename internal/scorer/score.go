package scorer

import (
	"strings"
	"unicode"

	"github.com/mvp-joe/cortex-facts/internal/facts"
)

// Breakdown is the per-dimension score of one symbol. Total is their sum.
type Breakdown struct {
	Visibility    float64 `json:"visibility"`
	Semantic      float64 `json:"semantic"`
	Documentation float64 `json:"documentation"`
	Complexity    float64 `json:"complexity"`
	Noise         float64 `json:"noise"`
}

// Total returns the summed score.
func (b Breakdown) Total() float64 {
	return b.Visibility + b.Semantic + b.Documentation + b.Complexity + b.Noise
}

// Visibility levels.
const (
	visPublic    = 3.0
	visDefault   = 2.0
	visProtected = 1.5
	visPrivate   = 0.5
)

// Verbs that mark state-changing or domain-significant operations.
var importantVerbs = []string{
	"create", "update", "delete", "remove", "save", "store", "persist",
	"validate", "verify", "handle", "process", "execute", "run", "dispatch",
	"register", "authenticate", "authorize", "build", "parse", "load",
	"send", "publish", "apply", "render", "compute", "calculate",
}

var accessorPrefixes = []string{"get", "set", "is", "has"}

// Score rates one symbol on the five dimensions.
func Score(sym facts.Symbol) Breakdown {
	local := localName(sym.Name)
	return Breakdown{
		Visibility:    visibility(sym, local),
		Semantic:      semantic(sym, local),
		Documentation: documentation(sym),
		Complexity:    complexity(sym),
		Noise:         noise(sym, local),
	}
}

func visibility(sym facts.Symbol, local string) float64 {
	sig := " " + sym.Signature + " "
	switch {
	case strings.Contains(sig, " private ") || strings.HasPrefix(local, "#"):
		return visPrivate
	case strings.Contains(sig, " protected "):
		return visProtected
	case strings.Contains(sig, " public "):
		return visPublic
	}
	if strings.HasPrefix(local, "__") && strings.HasSuffix(local, "__") {
		return visDefault
	}
	if strings.HasPrefix(local, "_") {
		return visPrivate
	}
	if sym.Kind.IsType() {
		return visPublic
	}
	return visDefault
}

func semantic(sym facts.Symbol, local string) float64 {
	score := 0.0
	switch {
	case sym.Kind.IsType():
		score += 2
	case sym.Kind == facts.KindConstructor:
		score += 1
	case sym.Kind.IsCallable():
		score += 0.5
	}
	lower := strings.ToLower(strings.TrimLeft(local, "_#"))
	for _, verb := range importantVerbs {
		if strings.HasPrefix(lower, verb) {
			score += 2
			break
		}
	}
	return score
}

func documentation(sym facts.Symbol) float64 {
	doc := strings.TrimSpace(sym.Docstring)
	switch {
	case doc == "":
		return 0
	case len(doc) < 40:
		return 1
	case len(doc) < 200:
		return 1.5
	}
	return 2
}

func complexity(sym facts.Symbol) float64 {
	score := 0.0
	switch lines := sym.Lines(); {
	case lines >= 50:
		score += 2
	case lines >= 20:
		score += 1.5
	case lines >= 5:
		score += 1
	}
	if params := parameterCount(sym.Signature); params >= 3 {
		score += 1
	} else if params > 0 {
		score += 0.5
	}
	return score
}

// noise penalizes getter and setter shaped callables.
func noise(sym facts.Symbol, local string) float64 {
	if !sym.Kind.IsCallable() {
		return 0
	}
	trimmed := strings.TrimLeft(local, "_#")
	for _, prefix := range accessorPrefixes {
		rest, ok := strings.CutPrefix(trimmed, prefix)
		if !ok || rest == "" {
			continue
		}
		r := []rune(rest)[0]
		if !unicode.IsUpper(r) && r != '_' {
			continue
		}
		if sym.Lines() <= 5 {
			return -2
		}
		return -1
	}
	return 0
}

// parameterCount counts top-level commas inside the first parameter list of
// a signature. Generic brackets and nested parentheses are skipped.
func parameterCount(sig string) int {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return 0
	}
	depth := 0
	count := 0
	seen := false
	var prev rune
	for _, r := range sig[open+1:] {
		arrow := r == '>' && (prev == '=' || prev == '-')
		prev = r
		switch {
		case arrow:
		case r == '(' || r == '<' || r == '[' || r == '{':
			depth++
		case r == ')' || r == '>' || r == ']' || r == '}':
			if depth == 0 {
				if seen {
					count++
				}
				return count
			}
			depth--
		case r == ',':
			if depth == 0 {
				count++
				seen = false
				continue
			}
		}
		if !unicode.IsSpace(r) {
			seen = true
		}
	}
	return count
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
