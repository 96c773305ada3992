package fhir

import (
	"encoding/json"
	"testing"
)

func decodeObject(t *testing.T, raw string) Object {
	t.Helper()
	var o Object
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return o
}

func TestFindExtension_FirstMatchWins(t *testing.T) {
	o := decodeObject(t, `{"extension":[
		{"url":"a","valueString":"first"},
		{"url":"a","valueString":"second"}
	]}`)
	v, ok := ExtensionString(Extensions(o), "a")
	if !ok || v != "first" {
		t.Errorf("expected first, got %q (%v)", v, ok)
	}
}

func TestExtensionReaders_WrongTypeIsAbsent(t *testing.T) {
	o := decodeObject(t, `{"extension":[
		{"url":"s","valueString":12},
		{"url":"b","valueBoolean":"yes"},
		{"url":"i","valueInteger":"7"},
		{"url":"d","valueDecimal":null},
		"not-an-object"
	]}`)
	exts := Extensions(o)
	if _, ok := ExtensionString(exts, "s"); ok {
		t.Error("expected numeric valueString to be absent")
	}
	if _, ok := ExtensionBool(exts, "b"); ok {
		t.Error("expected string valueBoolean to be absent")
	}
	if _, ok := ExtensionInteger(exts, "i"); ok {
		t.Error("expected string valueInteger to be absent")
	}
	if _, ok := ExtensionDecimal(exts, "d"); ok {
		t.Error("expected null valueDecimal to be absent")
	}
	if len(exts) != 4 {
		t.Errorf("expected non-object entries to be skipped, got %d", len(exts))
	}
}

func TestExtensionInteger(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
		ok   bool
	}{
		{"integer", `{"url":"age","valueInteger":42}`, 42, true},
		{"decimal truncated", `{"url":"age","valueDecimal":41.9}`, 41, true},
		{"fractional integer falls back to decimal", `{"url":"age","valueInteger":3.5,"valueDecimal":3.2}`, 3, true},
		{"missing", `{"url":"age"}`, 0, false},
		{"integer beyond int range", `{"url":"age","valueInteger":1e19}`, 0, false},
		{"negative beyond int range", `{"url":"age","valueInteger":-1e19}`, 0, false},
		{"decimal beyond int range", `{"url":"age","valueDecimal":9.3e18}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := decodeObject(t, tt.raw)
			got, ok := ExtensionInteger([]Object{ext}, "age")
			if got != tt.want || ok != tt.ok {
				t.Errorf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtensionURL_Fallbacks(t *testing.T) {
	exts := []Object{{"url": "img", "valueUri": "https://cdn.example/x.png"}}
	v, ok := ExtensionURL(exts, "img")
	if !ok || v != "https://cdn.example/x.png" {
		t.Errorf("expected valueUri fallback, got %q (%v)", v, ok)
	}
}

func TestExtensionJSON_UnparsableIsAbsent(t *testing.T) {
	exts := []Object{{"url": "deps", "valueString": "[{broken"}}
	var dst []map[string]interface{}
	if ExtensionJSON(exts, "deps", &dst) {
		t.Error("expected unparsable JSON to be reported absent")
	}
	if dst != nil {
		t.Error("expected dst to be untouched")
	}
}

func TestAppendHelpers_OmitNil(t *testing.T) {
	var exts []Extension
	exts = AppendString(exts, "s", nil)
	exts = AppendURL(exts, "u", nil)
	exts = AppendBool(exts, "b", nil)
	exts = AppendInteger(exts, "i", nil)
	exts = AppendJSON(exts, "j", nil)
	if len(exts) != 0 {
		t.Fatalf("expected no entries, got %d", len(exts))
	}

	yes := true
	n := 5
	exts = AppendBool(exts, "b", &yes)
	exts = AppendInteger(exts, "i", &n)
	exts = AppendJSON(exts, "j", []string{"x"})
	if len(exts) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(exts))
	}
	if *exts[2].ValueString != `["x"]` {
		t.Errorf("unexpected JSON payload %q", *exts[2].ValueString)
	}
}
