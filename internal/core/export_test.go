package core

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestExportRow_Value(t *testing.T) {
	var extra ExtraData
	extra.Set("loan amount", "25000")
	extra.Set("Branch", "North")

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	row := ExportRow{
		Lead: Lead{
			ID:        "lead-1",
			FirstName: "Jane",
			Email:     "jane@example.com",
			Extra:     extra,
			CreatedAt: created,
		},
		Custom: []CustomValue{{HeaderID: "h-1", Value: "Gold"}},
	}

	tests := []struct {
		name string
		col  ExportColumn
		want string
	}{
		{"builtin field", ExportColumn{string(FieldFirstName), "First"}, "Jane"},
		{"id", ExportColumn{ExportKeyID, "ID"}, "lead-1"},
		{"created", ExportColumn{ExportKeyCreatedAt, "Created"}, "2024-03-01 09:30:00"},
		{"zero updated", ExportColumn{ExportKeyUpdatedAt, "Updated"}, ""},
		{"blank status", ExportColumn{string(FieldStatus), "Status"}, DefaultStatus},
		{"unassigned", ExportColumn{ExportKeyAssignedTo, "Assigned To"}, UnassignedLabel},
		{"no workspace", ExportColumn{ExportKeyWorkspace, "Workspace"}, NoWorkspaceLabel},
		{"custom by header id", ExportColumn{HeaderKeyPrefix + "h-1", "Tier"}, "Gold"},
		{"extension by exact label", ExportColumn{HeaderKeyPrefix + "h-2", "Branch"}, "North"},
		{"extension by lowercased label", ExportColumn{HeaderKeyPrefix + "h-3", "Loan Amount"}, "25000"},
		{"nothing matches", ExportColumn{HeaderKeyPrefix + "h-4", "Missing"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := row.Value(tt.col); got != tt.want {
				t.Errorf("Value(%+v) = %q, want %q", tt.col, got, tt.want)
			}
		})
	}
}

func TestExportRow_ValueRelations(t *testing.T) {
	row := ExportRow{
		Lead:          Lead{Status: "Won"},
		AssignedTo:    strPtr("alice"),
		WorkspaceName: strPtr("Mortgages"),
	}
	if got := row.Value(ExportColumn{Key: ExportKeyAssignedTo}); got != "alice" {
		t.Errorf("assigned_to = %q, want %q", got, "alice")
	}
	if got := row.Value(ExportColumn{Key: ExportKeyWorkspace}); got != "Mortgages" {
		t.Errorf("workspace = %q, want %q", got, "Mortgages")
	}
	if got := row.Value(ExportColumn{Key: string(FieldStatus)}); got != "Won" {
		t.Errorf("status = %q, want %q", got, "Won")
	}
}

func TestFormatCSV(t *testing.T) {
	cols := []ExportColumn{
		{string(FieldName), "Name"},
		{string(FieldNotes), "Notes"},
		{ExportKeyAssignedTo, "Assigned To"},
	}
	rows := []ExportRow{
		{Lead: Lead{Name: "Jane Doe", Notes: "called, left \"msg\""}, AssignedTo: strPtr("bob")},
		{Lead: Lead{Name: "John"}},
	}

	var buf bytes.Buffer
	if err := FormatCSV(&buf, cols, rows); err != nil {
		t.Fatalf("FormatCSV() error = %v", err)
	}

	got, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	want := [][]string{
		{"Name", "Notes", "Assigned To"},
		{"Jane Doe", `called, left "msg"`, "bob"},
		{"John", "", UnassignedLabel},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if strings.Join(got[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormatCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatCSV(&buf, DefaultExportColumns(), nil); err != nil {
		t.Fatalf("FormatCSV() error = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("got %d lines, want header only", got)
	}
	if !strings.HasPrefix(buf.String(), "ID,First Name,Last Name,Email,") {
		t.Errorf("header = %q", buf.String())
	}
}

func TestDefaultExportColumns(t *testing.T) {
	cols := DefaultExportColumns()
	if len(cols) != 19 {
		t.Fatalf("got %d columns, want 19", len(cols))
	}
	for _, c := range cols {
		if !isExportKey(c.Key) {
			t.Errorf("column %q is not an export key", c.Key)
		}
	}
}

func TestWorkspaceExportColumns(t *testing.T) {
	headers := []WorkspaceHeader{
		{ID: "a", Name: "First Name", FieldKey: string(FieldFirstName)},
		{ID: "b", Name: "Tier"},
	}
	cols := WorkspaceExportColumns(headers)
	want := []ExportColumn{
		{string(FieldFirstName), "First Name"},
		{HeaderKeyPrefix + "b", "Tier"},
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("cols[%d] = %+v, want %+v", i, cols[i], want[i])
		}
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 5, 0, time.UTC)
	tests := []struct {
		entity string
		want   string
	}{
		{"leads", "leads_20240115_143005.csv"},
		{"Sales West", "Sales West_20240115_143005.csv"},
		{`a/b\c"d`, "a_b_c_d_20240115_143005.csv"},
		{"  ", "leads_20240115_143005.csv"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.entity, now); got != tt.want {
			t.Errorf("ExportFilename(%q) = %q, want %q", tt.entity, got, tt.want)
		}
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	leads := []Lead{
		{
			ID:           "lead-1",
			FirstName:    "Jane",
			LastName:     "O'Neil, Jr.",
			Email:        "jane@example.com",
			Phone:        "555-0100",
			Company:      `Acme "Widgets", Inc.`,
			City:         "Springfield",
			State:        "IL",
			Zipcode:      "62701",
			BankName:     "First Bank",
			DateCaptured: "2024-03-01",
			TimeCaptured: "09:30",
			Status:       "Contacted",
			Source:       "csv",
			Notes:        "Called twice.\nPrefers email, not phone.",
			CreatedAt:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:        "lead-2",
			FirstName: "Raj",
			Email:     "raj@example.com",
			Notes:     `said "call back"`,
		},
	}

	var headers []WorkspaceHeader
	for i, f := range DefaultHeaderFields {
		headers = append(headers, WorkspaceHeader{ID: "h-" + string(f), Name: f.Label(), FieldKey: string(f), Position: i})
	}
	headers = append(headers, WorkspaceHeader{ID: "h-tier", Name: "Loan Tier", Position: len(headers)})

	tests := []struct {
		name      string
		columns   []ExportColumn
		fields    []LeadField
		wantExtra map[string]string
	}{
		{
			name:    "default columns",
			columns: DefaultExportColumns(),
			fields:  PositionalFields,
		},
		{
			name:      "workspace columns",
			columns:   WorkspaceExportColumns(headers),
			fields:    DefaultHeaderFields,
			wantExtra: map[string]string{"loan tier": "Gold, plus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]ExportRow, len(leads))
			for i, l := range leads {
				rows[i] = ExportRow{
					Lead:          l,
					AssignedTo:    strPtr("agent@example.com"),
					WorkspaceName: strPtr("Main"),
					Custom:        []CustomValue{{HeaderID: "h-tier", Value: "Gold, plus"}},
				}
			}

			var buf bytes.Buffer
			if err := FormatCSV(&buf, tt.columns, rows); err != nil {
				t.Fatalf("FormatCSV() error = %v", err)
			}

			text, _, err := DecodeCSV(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeCSV() error = %v", err)
			}
			records, err := parseCSV(text)
			if err != nil {
				t.Fatalf("parseCSV() error = %v", err)
			}
			drafts, skipped := ParseLeads(records, ParseOptions{HasHeader: true})
			if skipped != 0 || len(drafts) != len(leads) {
				t.Fatalf("ParseLeads() = %d drafts, %d skipped, want %d drafts", len(drafts), skipped, len(leads))
			}

			for i, want := range leads {
				want := want
				normalizeLead(&want)
				got := drafts[i].Lead
				for _, f := range tt.fields {
					if g, w := f.Get(&got), f.Get(&want); g != w {
						t.Errorf("lead %d %s = %q, want %q", i, f, g, w)
					}
				}
				if got.Extra.Len() != len(tt.wantExtra) {
					t.Errorf("lead %d extra keys = %v, want %d keys", i, got.Extra.Keys(), len(tt.wantExtra))
				}
				for k, w := range tt.wantExtra {
					if g, _ := got.Extra.Get(k); g != w {
						t.Errorf("lead %d Extra[%q] = %q, want %q", i, k, g, w)
					}
				}
			}
		})
	}
}
