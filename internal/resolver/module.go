package resolver

import (
	"path"
	"path/filepath"
	"strings"
)

var scriptExtensions = []string{".d.ts", ".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}

// ModuleName returns the importable name of a Python or JavaScript-family
// file: dotted for Python (app/models.py -> app.models) and slash-separated
// without extension otherwise (src/repo.ts -> src/repo). Package and index
// files name their directory. Java and PHP files have none; their namespace
// already qualifies them.
func ModuleName(filePath, language string) string {
	p := path.Clean(filepath.ToSlash(filePath))
	switch language {
	case "python":
		for _, ext := range []string{".py", ".pyi"} {
			p = strings.TrimSuffix(p, ext)
		}
		if path.Base(p) == "__init__" {
			p = path.Dir(p)
		}
		if p == "." || p == "/" {
			return ""
		}
		return strings.ReplaceAll(strings.TrimPrefix(p, "/"), "/", ".")
	case "typescript", "tsx", "javascript":
		return scriptModule(p)
	}
	return ""
}

func scriptModule(p string) string {
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(p, ext) {
			p = strings.TrimSuffix(p, ext)
			break
		}
	}
	if path.Base(p) == "index" {
		p = path.Dir(p)
	}
	if p == "." || p == "/" {
		return ""
	}
	return strings.TrimPrefix(p, "/")
}

// moduleFamily groups languages whose files import each other by module
// name. It is empty for languages without module-keyed types.
func moduleFamily(language string) string {
	switch language {
	case "python":
		return "python"
	case "typescript", "tsx", "javascript":
		return "script"
	}
	return ""
}

// anchorModule rewrites a relative import specifier against the importing
// file. ok is false when the specifier is not relative or climbs above the
// project root; it is then used as written.
func anchorModule(language, filePath, module string) (string, bool) {
	switch language {
	case "python":
		return anchorPython(filePath, module)
	case "typescript", "tsx", "javascript":
		if module != "." && module != ".." && !strings.HasPrefix(module, "./") && !strings.HasPrefix(module, "../") {
			return "", false
		}
		joined := path.Join(path.Dir(filepath.ToSlash(filePath)), module)
		if joined == ".." || strings.HasPrefix(joined, "../") {
			return "", false
		}
		if m := scriptModule(joined); m != "" {
			return m, true
		}
	}
	return "", false
}

// anchorPython resolves "from .x import y" style modules. One dot is the
// importing file's package, each further dot one package up.
func anchorPython(filePath, module string) (string, bool) {
	dots := len(module) - len(strings.TrimLeft(module, "."))
	if dots == 0 {
		return "", false
	}
	rest := module[dots:]

	pkg := ModuleName(filePath, "python")
	if base := path.Base(filepath.ToSlash(filePath)); base != "__init__.py" && base != "__init__.pyi" {
		pkg = parentModule(pkg)
	}
	for i := 1; i < dots; i++ {
		if pkg == "" {
			return "", false
		}
		pkg = parentModule(pkg)
	}

	switch {
	case rest == "":
		return pkg, true
	case pkg == "":
		return rest, true
	}
	return pkg + "." + rest, true
}

func parentModule(module string) string {
	if i := strings.LastIndex(module, "."); i >= 0 {
		return module[:i]
	}
	return ""
}
