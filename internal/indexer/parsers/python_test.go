package parsers

import (
	"testing"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Python extraction:
// - Module docstring comes from the leading string literal
// - import / from-import statements are split into one Import per name
// - Classes, methods, __init__ constructors, nested functions and fields
// - Decorators become annotations with positional and keyword arguments
// - Raises sections become throws; Generic and metaclass bases are ignored
// - Call receivers: self, typed attribute, super(), module names, reflection
// - Syntax errors and Python 2 statements are reported

const pythonFixture = `"""Account models."""
import os.path
import json as j
from app.db import Base, Session as S
from .utils import *
from typing import Generic, TypeVar

T = TypeVar("T")


# Repository of things.
class Repo(Base, Generic[T], metaclass=Meta):
    """Stores items."""

    limit = 10

    def __init__(self, session: S):
        self.session = session
        self.cache = Cache()

    @staticmethod
    @route("/items", methods=["GET"])
    def find(self, key, *args):
        """Find an item.

        Raises:
            KeyError: when missing
        """
        self.cache.get(key)
        self.validate(key)
        super().find(key)
        helper(key)
        os.path.join("a", "b")
        j.dumps({})
        handler = getattr(self, "x")
        handler()
        print(*args)
        return Item(key)


def helper(value):
    def inner():
        return value
    return inner()
`

func TestPython_Imports(t *testing.T) {
	t.Parallel()

	res := extract(t, LangPython, pythonFixture)

	assert.Nil(t, res.Error)
	assert.Equal(t, "Account models.", res.ModuleDocstring)
	require.Len(t, res.Imports, 7)

	assert.Equal(t, "os.path", res.Imports[0].Module)
	assert.Empty(t, res.Imports[0].Names)
	assert.False(t, res.Imports[0].IsFrom)
	assert.Nil(t, res.Imports[0].Alias)

	assert.Equal(t, "json", res.Imports[1].Module)
	require.NotNil(t, res.Imports[1].Alias)
	assert.Equal(t, "j", *res.Imports[1].Alias)

	assert.Equal(t, "app.db", res.Imports[2].Module)
	assert.Equal(t, []string{"Base"}, res.Imports[2].Names)
	assert.True(t, res.Imports[2].IsFrom)

	assert.Equal(t, "app.db", res.Imports[3].Module)
	assert.Equal(t, []string{"Session"}, res.Imports[3].Names)
	require.NotNil(t, res.Imports[3].Alias)
	assert.Equal(t, "S", *res.Imports[3].Alias)

	assert.Equal(t, ".utils", res.Imports[4].Module)
	assert.True(t, res.Imports[4].IsWildcard())

	assert.Equal(t, []string{"Generic"}, res.Imports[5].Names)
	assert.Equal(t, []string{"TypeVar"}, res.Imports[6].Names)
}

func TestPython_Symbols(t *testing.T) {
	t.Parallel()

	res := extract(t, LangPython, pythonFixture)

	requireSymbol(t, res, "T", facts.KindVariable)

	repo := requireSymbol(t, res, "Repo", facts.KindClass)
	assert.Equal(t, "Stores items.", repo.Docstring)
	assert.Equal(t, 12, repo.LineStart)
	assert.Equal(t, "class Repo(Base, Generic[T], metaclass=Meta)", repo.Signature)

	requireSymbol(t, res, "Repo.limit", facts.KindField)
	requireSymbol(t, res, "Repo.__init__", facts.KindConstructor)
	requireSymbol(t, res, "Repo.session", facts.KindField)
	requireSymbol(t, res, "Repo.cache", facts.KindField)

	find := requireSymbol(t, res, "Repo.find", facts.KindMethod)
	assert.Equal(t, 21, find.LineStart)
	assert.Equal(t, []string{"KeyError"}, find.Throws)
	assert.Contains(t, find.Docstring, "Find an item.")
	require.Len(t, find.Annotations, 2)
	assert.Equal(t, "staticmethod", find.Annotations[0].Name)
	assert.Empty(t, find.Annotations[0].Arguments)
	assert.Equal(t, "route", find.Annotations[1].Name)
	assert.Equal(t, map[string]string{"0": "/items", "methods": `["GET"]`}, find.Annotations[1].Arguments)

	requireSymbol(t, res, "helper", facts.KindFunction)
	requireSymbol(t, res, "helper.inner", facts.KindFunction)
}

func TestPython_Inheritance(t *testing.T) {
	t.Parallel()

	res := extract(t, LangPython, pythonFixture)

	assert.Equal(t, []string{"Base"}, parents(res, "Repo"))
}

func TestPython_Calls(t *testing.T) {
	t.Parallel()

	res := extract(t, LangPython, pythonFixture)

	typeVar := requireCall(t, res, "TypeVar")
	assert.Equal(t, "", typeVar.Caller)
	assert.Equal(t, extraction.RecvNone, typeVar.Receiver)

	cache := requireCall(t, res, "Cache")
	assert.Equal(t, "Repo.__init__", cache.Caller)

	get := requireCall(t, res, "get")
	assert.Equal(t, "Repo.find", get.Caller)
	assert.Equal(t, "Repo", get.Scope)
	assert.Equal(t, extraction.RecvTyped, get.Receiver)
	assert.Equal(t, "Cache", get.Target)

	validate := requireCall(t, res, "validate")
	assert.Equal(t, extraction.RecvSelf, validate.Receiver)

	superFind := requireCall(t, res, "find")
	assert.Equal(t, extraction.RecvSuper, superFind.Receiver)
	assert.Empty(t, callsNamed(res, "super"))

	helper := requireCall(t, res, "helper")
	assert.Equal(t, extraction.RecvNone, helper.Receiver)
	assert.Equal(t, "Repo.find", helper.Caller)

	join := requireCall(t, res, "join")
	assert.Equal(t, extraction.RecvName, join.Receiver)
	assert.Equal(t, "os.path", join.Target)

	dumps := requireCall(t, res, "dumps")
	assert.Equal(t, extraction.RecvName, dumps.Receiver)
	assert.Equal(t, "j", dumps.Target)

	getattr := requireCall(t, res, "getattr")
	assert.Equal(t, extraction.RecvDynamic, getattr.Receiver)
	assert.Equal(t, "reflection", getattr.Reason)

	handler := requireCall(t, res, "handler")
	assert.Equal(t, extraction.RecvDynamic, handler.Receiver)

	print := requireCall(t, res, "print")
	assert.Nil(t, print.Args)

	item := requireCall(t, res, "Item")
	require.NotNil(t, item.Args)
	assert.Equal(t, 1, *item.Args)

	inner := requireCall(t, res, "inner")
	assert.Equal(t, "helper", inner.Caller)
	assert.Equal(t, extraction.RecvNone, inner.Receiver)
}

func TestPython_SyntaxError(t *testing.T) {
	t.Parallel()

	src := `def first():
    return 1


def second(:
    pass


def third():
    return 3
`
	res := extract(t, LangPython, src)

	require.NotNil(t, res.Error)
	assert.Equal(t, facts.ErrSyntax, res.Error.Kind)
	require.NotNil(t, res.Error.Line)

	requireSymbol(t, res, "first", facts.KindFunction)
	for _, sym := range res.Symbols {
		assert.Less(t, sym.LineStart, *res.Error.Line, sym.Name)
	}
}

func TestPython_PrintStatementUnsupported(t *testing.T) {
	t.Parallel()

	src := `def f():
    print "hi"
`
	res := extract(t, LangPython, src)

	require.NotNil(t, res.Error)
	assert.Equal(t, facts.ErrUnsupportedConstruct, res.Error.Kind)
	require.NotNil(t, res.Error.Line)
	assert.Equal(t, 2, *res.Error.Line)
	requireSymbol(t, res, "f", facts.KindFunction)
}

func TestDocRaises(t *testing.T) {
	t.Parallel()

	doc := "Loads.\n\nRaises:\nValueError: bad input\nio.Error\n\n:raises KeyError: missing"
	assert.Equal(t, []string{"ValueError", "io.Error", "KeyError"}, docRaises(doc))
}
