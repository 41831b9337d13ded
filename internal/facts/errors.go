package facts

import "fmt"

// ErrorKind classifies a per-file problem. Per-file problems are data, never Go
// errors: the rest of the batch always continues.
type ErrorKind string

const (
	ErrSyntax               ErrorKind = "syntax_error"
	ErrEncoding             ErrorKind = "encoding_error"
	ErrUnsupportedConstruct ErrorKind = "unsupported_construct"
)

// ParseError describes why a ParseResult is partial.
type ParseError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Line    *int      `json:"line"`
}

// NewParseError creates a ParseError. A line of zero or less means unknown.
func NewParseError(kind ErrorKind, line int, format string, args ...any) *ParseError {
	pe := &ParseError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
	if line > 0 {
		pe.Line = IntPtr(line)
	}
	return pe
}

func (e *ParseError) Error() string {
	if e.Line != nil {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, *e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// errorPrecedence orders kinds when more than one problem is found in a file.
var errorPrecedence = map[ErrorKind]int{
	ErrEncoding:             0,
	ErrSyntax:               1,
	ErrUnsupportedConstruct: 2,
}

// MergeError keeps the higher-precedence of two errors. Either may be nil.
func MergeError(current, next *ParseError) *ParseError {
	if current == nil {
		return next
	}
	if next == nil {
		return current
	}
	if errorPrecedence[next.Kind] < errorPrecedence[current.Kind] {
		return next
	}
	return current
}
