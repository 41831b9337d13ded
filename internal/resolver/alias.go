package resolver

import (
	"strings"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
)

// AliasMap maps the names an import makes visible in a file to their FQNs.
// On collisions the first import wins.
type AliasMap struct {
	entries map[string]string

	// Java only.
	staticMembers   map[string]string // member -> Type.member
	staticWildcards []string          // types imported with "import static T.*"
	wildcards       []string          // packages imported with "import p.*"
}

// NewAliasMap builds the alias map for one file's imports. filePath anchors
// relative Python and JavaScript-family imports; the Import records keep the
// specifier as written.
func NewAliasMap(language, filePath string, imports []extraction.ImportDecl) *AliasMap {
	a := &AliasMap{
		entries:       make(map[string]string),
		staticMembers: make(map[string]string),
	}
	sep := facts.NamespaceSeparator(language)

	for _, imp := range imports {
		module := strings.TrimPrefix(imp.Module, `\`)
		if module == "" {
			continue
		}
		if anchored, ok := anchorModule(language, filePath, module); ok {
			if anchored == "" && len(imp.Names) == 0 {
				continue
			}
			module = anchored
		}

		if imp.Static {
			if imp.IsWildcard() {
				a.staticWildcards = appendUnique(a.staticWildcards, module)
				continue
			}
			for _, name := range imp.Names {
				a.addStatic(name, module+"."+name)
			}
			continue
		}

		if imp.IsWildcard() {
			a.wildcards = appendUnique(a.wildcards, module)
			continue
		}

		switch {
		case len(imp.Names) > 0:
			for _, name := range imp.Names {
				a.add(localName(imp.Alias, name), joinModule(module, sep, name))
			}
		case imp.Alias != nil:
			a.add(*imp.Alias, module)
		default:
			a.bindModule(language, module)
		}
	}
	return a
}

// bindModule handles an import of a whole unit without an alias.
func (a *AliasMap) bindModule(language, module string) {
	switch language {
	case "python":
		// "import a.b" binds "a".
		head := module
		if i := strings.Index(module, "."); i > 0 {
			head = module[:i]
		}
		a.add(head, head)
	case "php":
		a.add(lastSegment(module), module)
	default:
		// Java module requires and JS side-effect imports bind nothing.
	}
}

func (a *AliasMap) add(local, fqn string) {
	if local == "" {
		return
	}
	if _, exists := a.entries[local]; !exists {
		a.entries[local] = fqn
	}
}

func (a *AliasMap) addStatic(member, fqn string) {
	if _, exists := a.staticMembers[member]; !exists {
		a.staticMembers[member] = fqn
	}
}

// Lookup returns the FQN bound to a locally visible name.
func (a *AliasMap) Lookup(name string) (string, bool) {
	fqn, ok := a.entries[name]
	return fqn, ok
}

// StaticMember returns the FQN of a statically imported member.
func (a *AliasMap) StaticMember(name string) (string, bool) {
	fqn, ok := a.staticMembers[name]
	return fqn, ok
}

// StaticWildcards returns the types imported on demand with "import static".
func (a *AliasMap) StaticWildcards() []string {
	return append([]string(nil), a.staticWildcards...)
}

// Wildcards returns the packages imported on demand, in import order.
func (a *AliasMap) Wildcards() []string {
	return append([]string(nil), a.wildcards...)
}

// Len returns the number of bound names.
func (a *AliasMap) Len() int {
	return len(a.entries)
}

// joinModule joins a module and an imported name. Relative modules that
// could not be anchored ("." or "..pkg.") already end in a separator.
func joinModule(module, sep, name string) string {
	if module == "" {
		return name
	}
	if strings.HasSuffix(module, sep) {
		return module + name
	}
	return module + sep + name
}

func localName(alias *string, name string) string {
	if alias != nil && *alias != "" {
		return *alias
	}
	return name
}

func lastSegment(name string) string {
	if i := strings.LastIndexAny(name, `.\/`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
