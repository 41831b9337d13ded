package facts

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for facts:
// - Marshal emits every field, with [] for empty collections and null for absent scalars
// - Marshal does not modify its input
// - Unmarshal(Marshal(r)) equals the normalized input, including null alias and null callee
// - Marshal output is byte-identical across repeated calls
// - MergeError keeps encoding over syntax over unsupported
// - CheckInvariants flags generic noise, callee/call-type mismatch, bad line order, missing prefixes
// - CheckInvariants accepts a well-formed result

func sampleResult() *ParseResult {
	return &ParseResult{
		Path:            "app/models.py",
		Language:        "python",
		ModuleDocstring: "Models.",
		FileLines:       20,
		Symbols: []Symbol{
			{Name: "User", Kind: KindClass, Signature: "class User(Base)", LineStart: 3, LineEnd: 12},
			{
				Name:        "User.save",
				Kind:        KindMethod,
				Signature:   "def save(self, force=False)",
				Docstring:   "Persist the user.",
				Annotations: []Annotation{{Name: "transactional", Arguments: map[string]string{"0": "True"}}},
				LineStart:   5,
				LineEnd:     9,
			},
		},
		Imports: []Import{
			{Module: "app.db", Names: []string{"Base"}, IsFrom: true},
			{Module: "app.services", Names: []string{"UserService"}, Alias: StringPtr("svc"), IsFrom: true},
		},
		Inheritances: []Inheritance{{Child: "User", Parent: "app.db.Base"}},
		Calls: []Call{
			ResolvedCall("User.save", "app.services.UserService.find", CallMethod, 7, IntPtr(1)),
			DynamicCall("User.save", 8, nil),
		},
	}
}

func TestMarshal_FieldPresence(t *testing.T) {
	t.Parallel()

	data, err := Marshal(&ParseResult{Path: "empty.py", Language: "python"})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"path", "language", "namespace", "module_docstring", "file_lines",
		"symbols", "imports", "inheritances", "calls", "error"} {
		assert.Contains(t, raw, key)
	}
	assert.JSONEq(t, "[]", string(raw["symbols"]))
	assert.JSONEq(t, "[]", string(raw["calls"]))
	assert.Equal(t, "null", string(raw["error"]))
}

func TestMarshal_NullableFields(t *testing.T) {
	t.Parallel()

	data, err := Marshal(sampleResult())
	require.NoError(t, err)

	var decoded struct {
		Imports []map[string]any `json:"imports"`
		Calls   []map[string]any `json:"calls"`
		Symbols []map[string]any `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Nil(t, decoded.Imports[0]["alias"])
	assert.Equal(t, "svc", decoded.Imports[1]["alias"])
	assert.Nil(t, decoded.Calls[1]["callee"])
	assert.Nil(t, decoded.Calls[1]["arguments_count"])
	assert.Equal(t, []any{}, decoded.Symbols[0]["throws"])
	assert.Equal(t, []any{}, decoded.Symbols[0]["annotations"])
}

func TestMarshal_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	r := sampleResult()
	_, err := Marshal(r)
	require.NoError(t, err)

	assert.Nil(t, r.Symbols[0].Throws)
	assert.Nil(t, r.Symbols[0].Annotations)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	r := sampleResult()
	r.Error = NewParseError(ErrSyntax, 14, "unexpected token")

	data, err := Marshal(r)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, Normalize(r.Clone()), back)
	assert.Nil(t, back.Imports[0].Alias)
	assert.Nil(t, back.Calls[1].Callee)
	require.NotNil(t, back.Error.Line)
	assert.Equal(t, 14, *back.Error.Line)
}

func TestMarshal_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := Marshal(sampleResult())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Marshal(sampleResult())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMergeError_Precedence(t *testing.T) {
	t.Parallel()

	syntax := NewParseError(ErrSyntax, 3, "bad")
	encoding := NewParseError(ErrEncoding, 0, "invalid utf-8")
	unsupported := NewParseError(ErrUnsupportedConstruct, 9, "goto")

	assert.Equal(t, syntax, MergeError(nil, syntax))
	assert.Equal(t, syntax, MergeError(syntax, nil))
	assert.Equal(t, encoding, MergeError(syntax, encoding))
	assert.Equal(t, syntax, MergeError(unsupported, syntax))
	assert.Equal(t, syntax, MergeError(syntax, unsupported))
	assert.Nil(t, encoding.Line)
}

func TestCheckInvariants(t *testing.T) {
	t.Parallel()

	t.Run("valid result", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, CheckInvariants(sampleResult()))
	})

	t.Run("generic noise", func(t *testing.T) {
		t.Parallel()
		r := sampleResult()
		r.Inheritances = append(r.Inheritances, Inheritance{Child: "Box", Parent: "List<T>"})
		assert.True(t, errors.Is(CheckInvariants(r), ErrGenericNoise))
	})

	t.Run("dynamic mismatch", func(t *testing.T) {
		t.Parallel()
		r := sampleResult()
		r.Calls = append(r.Calls, Call{Caller: ModuleScope, CallType: CallFunction, LineNumber: 1})
		assert.True(t, errors.Is(CheckInvariants(r), ErrDynamicMismatch))
	})

	t.Run("line order", func(t *testing.T) {
		t.Parallel()
		r := sampleResult()
		r.Symbols[1].LineEnd = 2
		assert.True(t, errors.Is(CheckInvariants(r), ErrLineOrder))
	})

	t.Run("nested prefix", func(t *testing.T) {
		t.Parallel()
		r := sampleResult()
		r.Symbols[1].Name = "save"
		assert.True(t, errors.Is(CheckInvariants(r), ErrNestedPrefix))
	})
}
