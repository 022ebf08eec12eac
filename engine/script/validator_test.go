package script

import (
	"strings"
	"testing"
)

const validScript = `
async function sync(context) {
  const res = await context.fetch("/items");
  return { evidence: [{ title: "items", description: "all items", data: res.data }] };
}
`

func TestValidate_AcceptsWellFormedScript(t *testing.T) {
	result := Validate(validScript)
	if !result.Valid {
		t.Fatalf("expected valid script, got %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidate_AcceptsArrowBinding(t *testing.T) {
	result := Validate(`const sync = async (ctx) => { return { evidence: [] } }`)
	if !result.Valid {
		t.Fatalf("expected arrow binding to be accepted, got %v", result.Errors)
	}
}

func TestValidate_MissingSyncIsInvalid(t *testing.T) {
	result := Validate(`function collect(context) { return { evidence: [] } }`)
	if result.Valid {
		t.Fatalf("expected missing sync to be invalid")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "sync") {
		t.Fatalf("expected populated error list, got %v", result.Errors)
	}
}

func TestValidate_RejectsBannedConstructs(t *testing.T) {
	tests := map[string]string{
		"eval":        `async function sync(c) { eval("1"); return { evidence: [] } }`,
		"Function":    `async function sync(c) { const f = Function("return 1"); return { evidence: [] } }`,
		"constructor": `async function sync(c) { const f = (() => {}).constructor; return { evidence: [] } }`,
		"__proto__":   `async function sync(c) { const p = {}.__proto__; return { evidence: [] } }`,
		"import()":    `async function sync(c) { await import("fs"); return { evidence: [] } }`,
		"require":     `async function sync(c) { const fs = require("fs"); return { evidence: [] } }`,
		"process":     `async function sync(c) { const e = process.env; return { evidence: [] } }`,
		"globalThis":  `async function sync(c) { const g = globalThis; return { evidence: [] } }`,
		"setTimeout":  `async function sync(c) { setTimeout(() => {}, 1); return { evidence: [] } }`,
		"setInterval": `async function sync(c) { setInterval(() => {}, 1); return { evidence: [] } }`,
		"WebAssembly": `async function sync(c) { const w = WebAssembly; return { evidence: [] } }`,
	}
	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			result := Validate(source)
			if result.Valid {
				t.Fatalf("expected %s to be rejected", name)
			}
			found := false
			for _, msg := range result.Errors {
				if strings.Contains(msg, name) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error naming %s, got %v", name, result.Errors)
			}
		})
	}
}

func TestValidate_IgnoresBannedWordsInCommentsAndStrings(t *testing.T) {
	source := "// never call eval here\n" +
		"/* process globalThis */\n" +
		"async function sync(context) {\n" +
		"  context.log.info('require is documented', \"and eval too\");\n" +
		"  const label = `constructor ${context.baseUrl} setTimeout`;\n" +
		"  return { evidence: [{ title: label, description: 'x', data: {} }] };\n" +
		"}\n"
	result := Validate(source)
	if !result.Valid {
		t.Fatalf("expected literals and comments to be ignored, got %v", result.Errors)
	}
}

func TestValidate_BannedWordInsideTemplateSubstitution(t *testing.T) {
	source := "async function sync(c) { const x = `${eval('1')}`; return { evidence: [] } }"
	if Validate(source).Valid {
		t.Fatalf("expected code inside template substitution to be scanned")
	}
}

func TestValidate_SyntaxErrorAndWarnings(t *testing.T) {
	result := Validate(`async function sync(context) { return { evidence: [ }`)
	if result.Valid {
		t.Fatalf("expected syntax error to invalidate script")
	}
	if !strings.HasPrefix(result.Errors[0], "syntax error") {
		t.Fatalf("expected syntax error first, got %v", result.Errors)
	}

	warned := Validate(`function sync(context) { context.log.info("noop") }`)
	if !warned.Valid {
		t.Fatalf("expected warnings only, got %v", warned.Errors)
	}
	if len(warned.Warnings) != 2 {
		t.Fatalf("expected return and evidence warnings, got %v", warned.Warnings)
	}
}

func TestValidate_EmptyScript(t *testing.T) {
	if result := Validate("   "); result.Valid || len(result.Errors) != 1 {
		t.Fatalf("expected empty script error, got %+v", result)
	}
}
