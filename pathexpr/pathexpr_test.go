package pathexpr

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestLookup_Paths(t *testing.T) {
	doc := decode(t, `{
		"status": "ok",
		"data": {
			"items": [{"name": "first", "tags": ["a", "b"]}, {"name": "second"}],
			"display-name": "Acme",
			"count": 3,
			"empty": null
		}
	}`)
	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{path: "status", want: "ok", found: true},
		{path: "$.status", want: "ok", found: true},
		{path: "data.items[0].name", want: "first", found: true},
		{path: "data.items.1.name", want: "second", found: true},
		{path: "data.items[0].tags[1]", want: "b", found: true},
		{path: `data["display-name"]`, want: "Acme", found: true},
		{path: `data['display-name']`, want: "Acme", found: true},
		{path: "data.count", want: float64(3), found: true},
		{path: "data.missing", found: false},
		{path: "data.empty", found: false},
		{path: "data.items[5].name", found: false},
		{path: "data.items.name", found: false},
		{path: "status.inner", found: false},
		{path: "data.count[0]", found: false},
		{path: "nope.deeper.still", found: false},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := Lookup(doc, tc.path)
			if ok != tc.found {
				t.Fatalf("expected found=%v, got %v (%v)", tc.found, ok, got)
			}
			if tc.found && !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestLookup_RootSelectsWholeDocument(t *testing.T) {
	doc := decode(t, `{"a":1}`)
	for _, path := range []string{"", "$", "."} {
		got, ok := Lookup(doc, path)
		if !ok || !reflect.DeepEqual(got, doc) {
			t.Fatalf("expected whole document for %q, got %v", path, got)
		}
	}
	if _, ok := Lookup(nil, ""); ok {
		t.Fatalf("expected nil document to be not found")
	}
}

func TestLookup_ArrayRootAndNativeTypes(t *testing.T) {
	doc := []any{map[string]any{"id": int64(7)}}
	got, ok := Lookup(doc, "[0].id")
	if !ok {
		t.Fatalf("expected id on array root")
	}
	if got != 7 {
		t.Fatalf("expected normalized int 7, got %#v", got)
	}
}

func TestCompile_RejectsMalformedPaths(t *testing.T) {
	for _, path := range []string{"a..b", "a.", "a[", "a[x]", `a["b]`, "a]b", "a[-1]"} {
		if _, err := Compile(path); err == nil {
			t.Fatalf("expected compile error for %q", path)
		}
		if _, ok := Lookup(map[string]any{"a": 1}, path); ok {
			t.Fatalf("expected invalid path %q to be not found", path)
		}
	}
}

func TestExpr_Reusable(t *testing.T) {
	expr := MustCompile("user.email")
	if expr.Root() {
		t.Fatalf("expected non-root expression")
	}
	for _, email := range []string{"a@example.com", "b@example.com"} {
		got, ok := expr.Lookup(map[string]any{"user": map[string]any{"email": email}})
		if !ok || got != email {
			t.Fatalf("expected %q, got %v", email, got)
		}
	}
	if expr.String() != "user.email" {
		t.Fatalf("unexpected source %q", expr.String())
	}
}
