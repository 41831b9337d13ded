package facts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGenericNoise is returned when an inheritance edge still carries type
	// arguments.
	ErrGenericNoise = errors.New("inheritance references type parameters")

	// ErrDynamicMismatch is returned when a call has a nil callee but is not
	// dynamic, or the reverse.
	ErrDynamicMismatch = errors.New("callee presence disagrees with call type")

	// ErrLineOrder is returned when a symbol ends before it starts.
	ErrLineOrder = errors.New("symbol line_start after line_end")

	// ErrNestedPrefix is returned when a symbol lies inside a type but is not
	// named after it.
	ErrNestedPrefix = errors.New("nested symbol not prefixed by enclosing symbol")

	// ErrEmptyName is returned for a symbol with no name.
	ErrEmptyName = errors.New("symbol name is empty")
)

// CheckInvariants verifies the structural guarantees every ParseResult must
// hold. All violations are reported together.
func CheckInvariants(r *ParseResult) error {
	var errs []error

	for _, inh := range r.Inheritances {
		if strings.ContainsAny(inh.Child, "<>") || strings.ContainsAny(inh.Parent, "<>") {
			errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrGenericNoise, inh.Child, inh.Parent))
		}
	}

	for _, c := range r.Calls {
		if (c.Callee == nil) != c.IsDynamic() {
			errs = append(errs, fmt.Errorf("%w: %s line %d", ErrDynamicMismatch, c.Caller, c.LineNumber))
		}
	}

	for _, s := range r.Symbols {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%w: line %d", ErrEmptyName, s.LineStart))
			continue
		}
		if s.LineStart > s.LineEnd {
			errs = append(errs, fmt.Errorf("%w: %s (%d > %d)", ErrLineOrder, s.Name, s.LineStart, s.LineEnd))
		}
	}

	// Any symbol whose range sits strictly inside a type declaration must
	// carry that type's name as a prefix.
	for _, outer := range r.Symbols {
		if !outer.Kind.IsType() {
			continue
		}
		for _, inner := range r.Symbols {
			if inner.Name == outer.Name || inner.Name == "" {
				continue
			}
			if inner.LineStart < outer.LineStart || inner.LineEnd > outer.LineEnd {
				continue
			}
			if inner.LineStart == outer.LineStart && inner.LineEnd == outer.LineEnd {
				continue
			}
			if !strings.HasPrefix(inner.Name, outer.Name+".") {
				errs = append(errs, fmt.Errorf("%w: %s inside %s", ErrNestedPrefix, inner.Name, outer.Name))
			}
		}
	}

	return errors.Join(errs...)
}
