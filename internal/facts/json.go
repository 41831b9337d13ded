package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Normalize replaces nil collections with empty ones so every field is present
// in the JSON encoding. It modifies r in place and returns it.
func Normalize(r *ParseResult) *ParseResult {
	if r.Symbols == nil {
		r.Symbols = []Symbol{}
	}
	for i := range r.Symbols {
		s := &r.Symbols[i]
		if s.Annotations == nil {
			s.Annotations = []Annotation{}
		}
		for j := range s.Annotations {
			if s.Annotations[j].Arguments == nil {
				s.Annotations[j].Arguments = map[string]string{}
			}
		}
		if s.Throws == nil {
			s.Throws = []string{}
		}
	}
	if r.Imports == nil {
		r.Imports = []Import{}
	}
	for i := range r.Imports {
		if r.Imports[i].Names == nil {
			r.Imports[i].Names = []string{}
		}
	}
	if r.Inheritances == nil {
		r.Inheritances = []Inheritance{}
	}
	if r.Calls == nil {
		r.Calls = []Call{}
	}
	return r
}

// Marshal encodes a ParseResult. The input is not modified. Output is stable
// for equal inputs: struct fields keep declaration order and map keys are
// sorted by encoding/json.
func Marshal(r *ParseResult) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("failed to marshal parse result: nil result")
	}
	cp := r.Clone()
	data, err := json.Marshal(Normalize(cp))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse result %s: %w", r.Path, err)
	}
	return data, nil
}

// MarshalIndent is Marshal with two-space indentation for human consumption.
func MarshalIndent(r *ParseResult) ([]byte, error) {
	data, err := Marshal(r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent parse result: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a ParseResult produced by Marshal. Missing collections
// decode as empty, never nil.
func Unmarshal(data []byte) (*ParseResult, error) {
	var r ParseResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parse result: %w", err)
	}
	return Normalize(&r), nil
}

// Clone returns a deep copy of r.
func (r *ParseResult) Clone() *ParseResult {
	cp := *r
	if r.Symbols != nil {
		cp.Symbols = make([]Symbol, len(r.Symbols))
		for i, s := range r.Symbols {
			cp.Symbols[i] = s.clone()
		}
	}
	if r.Imports != nil {
		cp.Imports = make([]Import, len(r.Imports))
		for i, imp := range r.Imports {
			cp.Imports[i] = imp
			if imp.Names != nil {
				cp.Imports[i].Names = append([]string{}, imp.Names...)
			}
			if imp.Alias != nil {
				cp.Imports[i].Alias = StringPtr(*imp.Alias)
			}
		}
	}
	if r.Inheritances != nil {
		cp.Inheritances = append([]Inheritance{}, r.Inheritances...)
	}
	if r.Calls != nil {
		cp.Calls = make([]Call, len(r.Calls))
		for i, c := range r.Calls {
			cp.Calls[i] = c
			if c.Callee != nil {
				cp.Calls[i].Callee = StringPtr(*c.Callee)
			}
			if c.ArgumentsCount != nil {
				cp.Calls[i].ArgumentsCount = IntPtr(*c.ArgumentsCount)
			}
		}
	}
	if r.Error != nil {
		e := *r.Error
		if e.Line != nil {
			e.Line = IntPtr(*e.Line)
		}
		cp.Error = &e
	}
	return &cp
}

func (s Symbol) clone() Symbol {
	cp := s
	if s.Annotations != nil {
		cp.Annotations = make([]Annotation, len(s.Annotations))
		for i, a := range s.Annotations {
			cp.Annotations[i] = Annotation{Name: a.Name}
			if a.Arguments != nil {
				cp.Annotations[i].Arguments = make(map[string]string, len(a.Arguments))
				for k, v := range a.Arguments {
					cp.Annotations[i].Arguments[k] = v
				}
			}
		}
	}
	if s.Throws != nil {
		cp.Throws = append([]string{}, s.Throws...)
	}
	return cp
}
