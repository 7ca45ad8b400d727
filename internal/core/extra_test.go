package core

import (
	"encoding/json"
	"testing"
)

func TestExtraData_PreservesInsertionOrder(t *testing.T) {
	var e ExtraData
	e.Set("zeta", "1")
	e.Set("alpha", "2")
	e.Set("mid", "3")
	e.Set("zeta", "4")

	got := e.String()
	want := `{"zeta":"4","alpha":"2","mid":"3"}`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestExtraData_GetMiss(t *testing.T) {
	var e ExtraData
	v, ok := e.Get("missing")
	if ok || v != "" {
		t.Errorf("Get(missing) = (%q, %v), want (\"\", false)", v, ok)
	}

	e.Set("present", "")
	if _, ok := e.Get("present"); !ok {
		t.Error("Get(present) should report presence for empty value")
	}
}

func TestExtraData_Delete(t *testing.T) {
	var e ExtraData
	e.Set("a", "1")
	e.Set("b", "2")
	e.Set("c", "3")
	e.Delete("b")
	e.Delete("nope")

	if got := e.String(); got != `{"a":"1","c":"3"}` {
		t.Errorf("after Delete = %s", got)
	}
}

func TestParseExtraData(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty text", "", "{}"},
		{"null", "null", "{}"},
		{"empty object", "{}", "{}"},
		{"order kept", `{"b":"x","a":"y"}`, `{"b":"x","a":"y"}`},
		{"non-string values", `{"n": 12, "ok": true, "list": [1, 2], "nil": null}`, `{"n":"12","ok":"true","list":"[1,2]","nil":""}`},
		{"escaped", `{"quote \"k\"":"line\nbreak"}`, `{"quote \"k\"":"line\nbreak"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseExtraData(tt.in)
			if err != nil {
				t.Fatalf("ParseExtraData() error = %v", err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("round trip = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseExtraData_RejectsNonObject(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"text"`, `{"a":`} {
		if _, err := ParseExtraData(in); err == nil {
			t.Errorf("ParseExtraData(%s) expected error", in)
		}
	}
}

func TestExtraData_EmbeddedInLead(t *testing.T) {
	var l Lead
	l.Extra.Set("loan amount", "5000")

	b, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Lead
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, _ := back.Extra.Get("loan amount"); v != "5000" {
		t.Errorf("extra value = %q, want 5000", v)
	}
}
