package resolver

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var pythonBuiltins = set(
	"abs", "all", "any", "ascii", "bin", "bool", "breakpoint", "bytearray", "bytes",
	"callable", "chr", "classmethod", "compile", "complex", "delattr", "dict", "dir",
	"divmod", "enumerate", "filter", "float", "format", "frozenset", "globals",
	"hasattr", "hash", "help", "hex", "id", "input", "int", "isinstance",
	"issubclass", "iter", "len", "list", "locals", "map", "max", "memoryview", "min",
	"next", "object", "oct", "open", "ord", "pow", "print", "property", "range",
	"repr", "reversed", "round", "set", "setattr", "slice", "sorted", "staticmethod",
	"str", "sum", "super", "tuple", "type", "vars", "zip",
	"BaseException", "Exception", "ArithmeticError", "AssertionError", "AttributeError",
	"EOFError", "ImportError", "IndexError", "KeyError", "KeyboardInterrupt",
	"LookupError", "MemoryError", "ModuleNotFoundError", "NameError",
	"NotImplementedError", "OSError", "OverflowError", "PermissionError",
	"RecursionError", "RuntimeError", "StopIteration", "SystemExit", "TimeoutError",
	"TypeError", "UnicodeDecodeError", "ValueError", "ZeroDivisionError",
	"FileNotFoundError", "ConnectionError", "Warning", "DeprecationWarning",
)

var javaLang = set(
	"Object", "String", "StringBuilder", "StringBuffer", "CharSequence", "Number",
	"Integer", "Long", "Short", "Byte", "Double", "Float", "Boolean", "Character",
	"Void", "Math", "StrictMath", "System", "Runtime", "Thread", "ThreadLocal",
	"Runnable", "Iterable", "Comparable", "Cloneable", "AutoCloseable", "Readable",
	"Appendable", "Enum", "Record", "Class", "ClassLoader", "Process",
	"ProcessBuilder", "Throwable", "Exception", "Error", "RuntimeException",
	"IllegalArgumentException", "IllegalStateException", "NullPointerException",
	"IndexOutOfBoundsException", "ArrayIndexOutOfBoundsException",
	"StringIndexOutOfBoundsException", "ArithmeticException", "ClassCastException",
	"ClassNotFoundException", "CloneNotSupportedException", "InterruptedException",
	"NumberFormatException", "SecurityException", "UnsupportedOperationException",
	"ReflectiveOperationException", "NoSuchMethodException", "NoSuchFieldException",
	"AssertionError", "OutOfMemoryError", "StackOverflowError", "LinkageError",
	"Override", "Deprecated", "FunctionalInterface", "SuppressWarnings", "SafeVarargs",
)

var jsGlobals = set(
	"globalThis", "console", "Math", "JSON", "Reflect", "Intl", "Atomics",
	"Object", "Array", "String", "Number", "Boolean", "BigInt", "Symbol", "Date",
	"RegExp", "Map", "Set", "WeakMap", "WeakSet", "WeakRef", "Promise", "Proxy",
	"ArrayBuffer", "DataView", "Uint8Array", "Int32Array", "Float64Array",
	"Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError", "EvalError",
	"URIError", "AggregateError", "URL", "URLSearchParams", "TextEncoder",
	"TextDecoder", "AbortController",
	"parseInt", "parseFloat", "isNaN", "isFinite", "encodeURI", "encodeURIComponent",
	"decodeURI", "decodeURIComponent", "setTimeout", "clearTimeout", "setInterval",
	"clearInterval", "setImmediate", "queueMicrotask", "structuredClone", "fetch",
)

// phpGlobals is matched case-insensitively; PHP function and class names are.
var phpGlobals = set(
	"strlen", "count", "sizeof", "implode", "explode", "join", "sprintf", "printf",
	"vsprintf", "str_replace", "str_contains", "str_starts_with", "str_ends_with",
	"substr", "strpos", "stripos", "strrpos", "strtolower", "strtoupper", "ucfirst",
	"lcfirst", "ucwords", "trim", "ltrim", "rtrim", "str_pad", "str_repeat",
	"nl2br", "htmlspecialchars", "number_format", "preg_match", "preg_match_all",
	"preg_replace", "preg_split", "preg_quote", "json_encode", "json_decode",
	"serialize", "unserialize", "var_dump", "var_export", "print_r",
	"array_map", "array_filter", "array_reduce", "array_keys", "array_values",
	"array_merge", "array_combine", "array_flip", "array_slice", "array_splice",
	"array_search", "array_unique", "array_key_exists", "array_key_first",
	"array_key_last", "array_push", "array_pop", "array_shift", "array_unshift",
	"array_column", "array_diff", "array_intersect", "array_fill", "array_sum",
	"array_walk", "in_array", "range", "compact", "extract", "sort", "rsort",
	"usort", "uasort", "uksort", "ksort", "krsort", "asort", "arsort",
	"is_array", "is_string", "is_int", "is_integer", "is_float", "is_bool",
	"is_numeric", "is_null", "is_object", "is_callable", "is_iterable", "gettype",
	"get_class", "get_parent_class", "intval", "floatval", "boolval", "strval",
	"method_exists", "property_exists", "function_exists", "class_exists",
	"interface_exists", "spl_autoload_register", "spl_object_hash", "spl_object_id",
	"iterator_to_array", "min", "max", "abs", "floor", "ceil", "round", "intdiv",
	"random_int", "mt_rand", "rand", "uniqid", "md5", "sha1", "hash", "crc32",
	"base64_encode", "base64_decode", "urlencode", "urldecode", "http_build_query",
	"parse_url", "date", "time", "mktime", "strtotime", "microtime", "hrtime",
	"sleep", "usleep", "file_get_contents", "file_put_contents", "file_exists",
	"is_file", "is_dir", "mkdir", "unlink", "fopen", "fclose", "fwrite", "fread",
	"basename", "dirname", "realpath", "getenv", "putenv", "define", "defined",
	"constant", "trigger_error", "error_log", "header", "ob_start", "ob_get_clean",
	"stdclass", "closure", "generator", "throwable", "exception", "error",
	"errorexception", "typeerror", "valueerror", "argumentcounterror",
	"arithmeticerror", "divisionbyzeroerror", "runtimeexception", "logicexception",
	"invalidargumentexception", "domainexception", "lengthexception",
	"outofrangeexception", "outofboundsexception", "rangeexception",
	"overflowexception", "underflowexception", "unexpectedvalueexception",
	"badfunctioncallexception", "badmethodcallexception", "jsonexception",
	"datetime", "datetimeimmutable", "datetimeinterface", "dateinterval",
	"datetimezone", "arrayobject", "arrayiterator", "arrayaccess", "countable",
	"iterator", "iteratoraggregate", "traversable", "jsonserializable",
	"stringable", "serializable", "splobjectstorage", "splqueue", "splstack",
	"pdo", "pdostatement", "pdoexception", "reflectionclass", "weakmap",
)

// builtin returns the conventional FQN of an always-available name.
func builtin(language, name string) (string, bool) {
	switch language {
	case "python":
		if pythonBuiltins[name] {
			return "builtins." + name, true
		}
	case "java":
		if javaLang[name] {
			return "java.lang." + name, true
		}
	case "typescript", "tsx", "javascript":
		if name == "globalThis" {
			return name, true
		}
		if jsGlobals[name] {
			return "globalThis." + name, true
		}
	case "php":
		if phpGlobals[strings.ToLower(name)] {
			return name, true
		}
	}
	return "", false
}

// isTypeName reports whether a name is written like a type: capitalised and
// not an all-caps constant.
func isTypeName(name string) bool {
	r, size := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(r) {
		return false
	}
	if size == len(name) {
		return true
	}
	return strings.IndexFunc(name, unicode.IsLower) >= 0
}

// isTypeParameter reports whether a Java type name looks like a generic
// parameter (T, E, K).
func isTypeParameter(name string) bool {
	r, size := utf8.DecodeRuneInString(name)
	return size == len(name) && unicode.IsUpper(r)
}

// scopeChain returns scope and its lexical parents, innermost first, ending
// with the top level ("").
func scopeChain(scope string) []string {
	chain := []string{}
	for scope != "" {
		chain = append(chain, scope)
		i := strings.LastIndex(scope, ".")
		if i < 0 {
			break
		}
		scope = scope[:i]
	}
	return append(chain, "")
}

func join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// splitHead splits a qualified name at its first separator.
func splitHead(name, sep string) (head, rest string) {
	if i := strings.Index(name, sep); i >= 0 {
		return name[:i], name[i+len(sep):]
	}
	return name, ""
}

func isQualified(name, sep string) bool {
	return strings.Contains(name, sep)
}
