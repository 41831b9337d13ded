package resolver

import "strings"

// typeIDs maps the type names each file uses to project-wide graph IDs.
// Java and PHP names are already namespace-qualified and map to themselves.
// Python and JavaScript-family types are keyed by module, so two files that
// both declare Base stay two types, and an import-resolved reference such as
// app.models.Base reaches the class declared in app/models.py.
type typeIDs struct {
	modules  []string
	families []string
	local    []map[string]bool // per file: local names of declared types

	// family -> module-qualified name -> ID
	exact map[string]map[string]string
	// family -> name under a shorter module path -> ID, "" when ambiguous.
	// Lets app.models.Base find src/app/models.py.
	suffix map[string]map[string]string
}

func newTypeIDs(files []*FileFacts) *typeIDs {
	t := &typeIDs{
		modules:  make([]string, len(files)),
		families: make([]string, len(files)),
		local:    make([]map[string]bool, len(files)),
		exact:    make(map[string]map[string]string),
		suffix:   make(map[string]map[string]string),
	}
	for i, f := range files {
		r := f.Result
		family := moduleFamily(r.Language)
		module := ModuleName(r.Path, r.Language)
		if family == "" || module == "" {
			continue
		}
		t.modules[i] = module
		t.families[i] = family
		t.local[i] = make(map[string]bool)
		if t.exact[family] == nil {
			t.exact[family] = make(map[string]string)
			t.suffix[family] = make(map[string]string)
		}

		for _, sym := range r.Symbols {
			if !sym.Kind.IsType() {
				continue
			}
			t.local[i][sym.Name] = true
			id := module + "." + sym.Name
			if _, seen := t.exact[family][id]; !seen {
				t.exact[family][id] = id
			}
			for _, short := range shorterModules(module, family) {
				key := short + "." + sym.Name
				if prev, seen := t.suffix[family][key]; seen && prev != id {
					t.suffix[family][key] = ""
					continue
				}
				t.suffix[family][key] = id
			}
		}
	}
	return t
}

// shorterModules lists module with leading path segments removed, longest
// first, down to the last segment.
func shorterModules(module, family string) []string {
	sep := "."
	if family == "script" {
		sep = "/"
	}
	var out []string
	for {
		i := strings.Index(module, sep)
		if i < 0 {
			return out
		}
		module = module[i+1:]
		out = append(out, module)
	}
}

// module returns the module keying file's declarations, or "".
func (t *typeIDs) module(file int) string {
	return t.modules[file]
}

// id maps a type name as file wrote it to its graph ID.
func (t *typeIDs) id(file int, name string) string {
	family := t.families[file]
	if family == "" {
		return name
	}
	if t.local[file][name] {
		return t.modules[file] + "." + name
	}
	if id, ok := t.exact[family][name]; ok {
		return id
	}
	if id := t.suffix[family][name]; id != "" {
		return id
	}
	return name
}

// name maps a graph ID back to the local name when file declares the type,
// so a file keeps naming its own types the way Pass A did.
func (t *typeIDs) name(file int, id string) string {
	module := t.modules[file]
	if module == "" || !strings.HasPrefix(id, module+".") {
		return id
	}
	if local := id[len(module)+1:]; t.local[file][local] {
		return local
	}
	return id
}

// withIDs returns p with its type expressed as a graph ID.
func (t *typeIDs) withIDs(file int, p Pending) Pending {
	if p.Type != "" {
		p.Type = t.id(file, p.Type)
	}
	return p
}
