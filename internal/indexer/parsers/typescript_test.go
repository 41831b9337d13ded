package parsers

import (
	"testing"

	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/indexer/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for TypeScript/JavaScript extraction:
// - Default, namespace, named, side-effect and require imports are normalized
// - Exported classes keep decorators and the javadoc-style comment above the export
// - Constructor parameter properties become fields with their types
// - Interfaces, type aliases, enums, functions, arrow-function consts, namespaces
// - Call receivers: this, typed fields, module names, variable-held functions,
//   computed members, eval, super(...)
// - JavaScript class heritage and with statements

const tsFixture = `/**
 * User services.
 */

import express from "express";
import * as path from "path";
import { Repo, Logger as Log } from "./infra";
import "./polyfill";
const fs = require("fs");
const { join, resolve: res } = require("path");

/** Manages users. */
@Injectable({ scope: "request", eager: true })
export class UserService extends BaseService<User> implements Auditable {
  private cache = new Cache();

  constructor(private readonly repo: Repo, log: Log) {
    super(log);
  }

  /**
   * Finds a user.
   * @throws NotFoundError
   */
  async find(id: string, ...rest: string[]): Promise<User> {
    const user = await this.repo.get(id);
    this.cache.put(id, user);
    this.audit(id);
    helper(id);
    path.join("a", "b");
    const cb = () => id;
    cb();
    eval("x");
    (user as any)[id]();
    console.log(...rest);
    return new User(id);
  }
}

export interface Auditable extends Base {
  audit(id: string): void;
  name: string;
}

export type Id = string;

export enum Color { Red, Green = "g" }

export function helper(id: string): void {}

export const handler = async (req: Request) => {
  return helper(req.id);
};

namespace Shapes {
  export class Circle {}
}
`

func TestTypeScript_Imports(t *testing.T) {
	t.Parallel()

	res := extract(t, LangTypeScript, tsFixture)

	assert.Nil(t, res.Error)
	assert.Equal(t, "User services.", res.ModuleDocstring)
	require.Len(t, res.Imports, 8)

	assert.Equal(t, "express", res.Imports[0].Module)
	assert.False(t, res.Imports[0].IsFrom)
	require.NotNil(t, res.Imports[0].Alias)
	assert.Equal(t, "express", *res.Imports[0].Alias)

	assert.Equal(t, "path", res.Imports[1].Module)
	require.NotNil(t, res.Imports[1].Alias)
	assert.Equal(t, "path", *res.Imports[1].Alias)

	assert.Equal(t, "./infra", res.Imports[2].Module)
	assert.Equal(t, []string{"Repo"}, res.Imports[2].Names)
	assert.True(t, res.Imports[2].IsFrom)

	assert.Equal(t, []string{"Logger"}, res.Imports[3].Names)
	require.NotNil(t, res.Imports[3].Alias)
	assert.Equal(t, "Log", *res.Imports[3].Alias)

	assert.Equal(t, "./polyfill", res.Imports[4].Module)
	assert.Empty(t, res.Imports[4].Names)
	assert.Nil(t, res.Imports[4].Alias)

	assert.Equal(t, "fs", res.Imports[5].Module)
	require.NotNil(t, res.Imports[5].Alias)
	assert.Equal(t, "fs", *res.Imports[5].Alias)

	assert.Equal(t, "path", res.Imports[6].Module)
	assert.Equal(t, []string{"join"}, res.Imports[6].Names)
	assert.Equal(t, []string{"resolve"}, res.Imports[7].Names)
	require.NotNil(t, res.Imports[7].Alias)
	assert.Equal(t, "res", *res.Imports[7].Alias)

	assert.Nil(t, findSymbol(res, "fs"))
	assert.Nil(t, findSymbol(res, "join"))
}

func TestTypeScript_Symbols(t *testing.T) {
	t.Parallel()

	res := extract(t, LangTypeScript, tsFixture)

	svc := requireSymbol(t, res, "UserService", facts.KindClass)
	assert.Equal(t, "Manages users.", svc.Docstring)
	require.Len(t, svc.Annotations, 1)
	assert.Equal(t, "Injectable", svc.Annotations[0].Name)
	assert.Equal(t, map[string]string{"scope": "request", "eager": "true"}, svc.Annotations[0].Arguments)
	assert.Contains(t, svc.Signature, "class UserService extends BaseService<User>")

	requireSymbol(t, res, "UserService.cache", facts.KindField)
	requireSymbol(t, res, "UserService.repo", facts.KindField)
	assert.Nil(t, findSymbol(res, "UserService.log"))
	requireSymbol(t, res, "UserService.constructor", facts.KindConstructor)

	find := requireSymbol(t, res, "UserService.find", facts.KindMethod)
	assert.Contains(t, find.Docstring, "Finds a user.")
	assert.Equal(t, []string{"NotFoundError"}, find.Throws)

	requireSymbol(t, res, "Auditable", facts.KindInterface)
	requireSymbol(t, res, "Auditable.audit", facts.KindMethod)
	requireSymbol(t, res, "Auditable.name", facts.KindField)
	requireSymbol(t, res, "Id", facts.KindTypeAlias)
	requireSymbol(t, res, "Color", facts.KindEnum)
	requireSymbol(t, res, "Color.Red", facts.KindField)
	requireSymbol(t, res, "Color.Green", facts.KindField)
	requireSymbol(t, res, "helper", facts.KindFunction)

	handler := requireSymbol(t, res, "handler", facts.KindFunction)
	assert.Contains(t, handler.Signature, "handler = ")

	requireSymbol(t, res, "Shapes", facts.KindNamespace)
	requireSymbol(t, res, "Shapes.Circle", facts.KindClass)

	assert.Nil(t, findSymbol(res, "UserService.find.cb"))
	assert.Nil(t, findSymbol(res, "cb"))
}

func TestTypeScript_Inheritance(t *testing.T) {
	t.Parallel()

	res := extract(t, LangTypeScript, tsFixture)

	assert.Equal(t, []string{"BaseService", "Auditable"}, parents(res, "UserService"))
	assert.Equal(t, []string{"Base"}, parents(res, "Auditable"))
}

func TestTypeScript_Calls(t *testing.T) {
	t.Parallel()

	res := extract(t, LangTypeScript, tsFixture)

	get := requireCall(t, res, "get")
	assert.Equal(t, "UserService.find", get.Caller)
	assert.Equal(t, "UserService", get.Scope)
	assert.Equal(t, extraction.RecvTyped, get.Receiver)
	assert.Equal(t, "Repo", get.Target)

	put := requireCall(t, res, "put")
	assert.Equal(t, extraction.RecvTyped, put.Receiver)
	assert.Equal(t, "Cache", put.Target)

	assert.Equal(t, extraction.RecvSelf, requireCall(t, res, "audit").Receiver)

	helperCalls := callsNamed(res, "helper")
	require.Len(t, helperCalls, 2)
	assert.Equal(t, "UserService.find", helperCalls[0].Caller)
	assert.Equal(t, extraction.RecvNone, helperCalls[0].Receiver)
	assert.Equal(t, "handler", helperCalls[1].Caller)

	join := requireCall(t, res, "join")
	assert.Equal(t, extraction.RecvName, join.Receiver)
	assert.Equal(t, "path", join.Target)

	cb := requireCall(t, res, "cb")
	assert.Equal(t, extraction.RecvDynamic, cb.Receiver)

	evalCall := requireCall(t, res, "eval")
	assert.Equal(t, extraction.RecvDynamic, evalCall.Receiver)
	assert.Equal(t, "reflection", evalCall.Reason)

	var computed int
	for _, c := range res.Calls {
		if c.Reason == "computed member" {
			computed++
		}
	}
	assert.Equal(t, 1, computed)

	logCall := requireCall(t, res, "log")
	assert.Equal(t, extraction.RecvName, logCall.Receiver)
	assert.Equal(t, "console", logCall.Target)
	assert.Nil(t, logCall.Args)

	user := requireCall(t, res, "User")
	assert.True(t, user.New)
	assert.Equal(t, extraction.RecvNone, user.Receiver)

	cache := requireCall(t, res, "Cache")
	assert.True(t, cache.New)
	assert.Equal(t, "UserService", cache.Caller)

	var superCall *extraction.RawCall
	for i := range res.Calls {
		if res.Calls[i].Receiver == extraction.RecvSuper {
			superCall = &res.Calls[i]
		}
	}
	require.NotNil(t, superCall)
	assert.True(t, superCall.New)
	assert.Equal(t, "UserService.constructor", superCall.Caller)
}

func TestJavaScript_ClassesAndWith(t *testing.T) {
	t.Parallel()

	src := `const { EventEmitter } = require("events");

class Bus extends EventEmitter {
  emitAll(items) {
    items.forEach((i) => this.emit("x", i));
  }
}

function legacy(obj) {
  with (obj) {
    run();
  }
}
`
	res := extract(t, LangJavaScript, src)

	require.Len(t, res.Imports, 1)
	assert.Equal(t, "events", res.Imports[0].Module)
	assert.Equal(t, []string{"EventEmitter"}, res.Imports[0].Names)

	requireSymbol(t, res, "Bus", facts.KindClass)
	requireSymbol(t, res, "Bus.emitAll", facts.KindMethod)
	requireSymbol(t, res, "legacy", facts.KindFunction)
	assert.Equal(t, []string{"EventEmitter"}, parents(res, "Bus"))

	forEach := requireCall(t, res, "forEach")
	assert.Equal(t, extraction.RecvDynamic, forEach.Receiver)

	emit := requireCall(t, res, "emit")
	assert.Equal(t, extraction.RecvSelf, emit.Receiver)
	assert.Equal(t, "Bus.emitAll", emit.Caller)

	require.NotNil(t, res.Error)
	assert.Equal(t, facts.ErrUnsupportedConstruct, res.Error.Kind)
	require.NotNil(t, res.Error.Line)
	assert.Equal(t, 10, *res.Error.Line)
}

func TestJavaScript_FunctionExpressionRebindsThis(t *testing.T) {
	t.Parallel()

	src := `class Widget {
  bind() {
    button.on("click", function () {
      this.render();
    });
  }
}
`
	res := extract(t, LangJavaScript, src)

	render := requireCall(t, res, "render")
	assert.Equal(t, extraction.RecvDynamic, render.Receiver)
	assert.Equal(t, "Widget.bind", render.Caller)
}

func TestTypeScript_NewWithoutArgumentList(t *testing.T) {
	t.Parallel()

	res := extract(t, LangTypeScript, "const a = new Cache;\nconst b = new Cache(1, 2);\n")

	caches := callsNamed(res, "Cache")
	require.Len(t, caches, 2)
	require.NotNil(t, caches[0].Args)
	assert.Equal(t, 0, *caches[0].Args)
	require.NotNil(t, caches[1].Args)
	assert.Equal(t, 2, *caches[1].Args)
}
