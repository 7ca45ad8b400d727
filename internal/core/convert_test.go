package core

import (
	"testing"
	"time"
)

func TestToPgDate(t *testing.T) {
	tests := []struct {
		input string
		valid bool
		want  string
	}{
		{"2024-01-15", true, "2024-01-15"},
		{"01/15/2024", true, "2024-01-15"},
		{"1/5/2024", true, "2024-01-05"},
		{"Jan 15, 2024", true, "2024-01-15"},
		{"2024-01-15 10:30:00", true, "2024-01-15"},
		{"2024-01-15T10:30:00Z", true, "2024-01-15"},
		{"1/2/99", true, "1999-01-02"},
		{"", false, ""},
		{"not a date", false, ""},
		{"13/45/2024", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToPgDate(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("ToPgDate(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			}
			if tt.valid && got.Time.Format("2006-01-02") != tt.want {
				t.Errorf("ToPgDate(%q) = %s, want %s", tt.input, got.Time.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestNormalizeCaptureDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NaT", ""},
		{"nan", ""},
		{"None", ""},
		{"NULL", ""},
		{"", ""},
		{"   ", ""},
		{"someday", ""},
		{"03/04/2024", "03/04/2024"},
		{" 2024-03-04 ", "2024-03-04"},
		{"2024-03-04 09:15:00", "2024-03-04 09:15:00"},
	}

	for _, tt := range tests {
		if got := NormalizeCaptureDate(tt.in); got != tt.want {
			t.Errorf("NormalizeCaptureDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"123", true},
		{"-4.5", true},
		{"$1,234.56", true},
		{"(99.00)", true},
		{"1e3", false}, // exponent form is rejected by the numeric scanner
		{"", false},
		{"abc", false},
		{"12abc", false},
	}

	for _, tt := range tests {
		if got := ToPgNumeric(tt.in); got.Valid != tt.valid {
			t.Errorf("ToPgNumeric(%q).Valid = %v, want %v", tt.in, got.Valid, tt.valid)
		}
	}
}

func TestToPgBool(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  bool
	}{
		{"yes", true, true},
		{"TRUE", true, true},
		{"on", true, true},
		{"0", true, false},
		{"No", true, false},
		{"maybe", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		got := ToPgBool(tt.in)
		if got.Valid != tt.valid || got.Bool != tt.want {
			t.Errorf("ToPgBool(%q) = %+v, want valid=%v bool=%v", tt.in, got, tt.valid, tt.want)
		}
	}
}

func TestToPgUUID(t *testing.T) {
	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	got := ToPgUUID(id)
	if !got.Valid {
		t.Fatal("expected valid UUID")
	}
	if PgUUIDToString(got) != id {
		t.Errorf("PgUUIDToString = %q, want %q", PgUUIDToString(got), id)
	}
	if ToPgUUID("nope").Valid || ToPgUUID("").Valid {
		t.Error("malformed input should be invalid")
	}
}

func TestParseIDs_Dedupes(t *testing.T) {
	id := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	got, err := parseIDs("lead", []string{id, id})
	if err != nil {
		t.Fatalf("parseIDs error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}

	if _, err := parseIDs("lead", []string{id, "bad"}); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestParseFilterDate(t *testing.T) {
	start, ok := ParseFilterDate("03/04/2024", false)
	if !ok || !start.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, %v", start, ok)
	}

	end, ok := ParseFilterDate("2024-03-04", true)
	if !ok || !end.Equal(time.Date(2024, 3, 4, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end = %v, %v", end, ok)
	}

	if _, ok := ParseFilterDate("March 4", false); ok {
		t.Error("unsupported layout should not parse")
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Email ", "Email"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{`'single'`, "single"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Email", " PHONE ", "email", ""})

	if idx["email"] != 0 {
		t.Errorf("email = %d, want 0 (first occurrence wins)", idx["email"])
	}
	if idx["phone"] != 1 {
		t.Errorf("phone = %d, want 1", idx["phone"])
	}
	if _, ok := idx[""]; ok {
		t.Error("blank header should not be indexed")
	}
}
