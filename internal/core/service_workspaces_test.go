package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSelectOptions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Gold\nSilver\nBronze", []string{"Gold", "Silver", "Bronze"}},
		{"  Gold \r\n\r\n Silver\n\n", []string{"Gold", "Silver"}},
		{"", nil},
		{"\n \n", nil},
	}
	for _, tt := range tests {
		if got := ParseSelectOptions(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSelectOptions(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareHeaders(t *testing.T) {
	got, err := prepareHeaders([]HeaderInput{
		{Name: "First Name", FieldKey: "first_name"},
		{Name: "Assigned", FieldKey: ExportKeyAssignedTo},
		{Name: "Tier", FieldType: "SELECT", Options: "Gold\n\nSilver"},
		{Name: "Notes 2", IsRequired: true},
	})
	if err != nil {
		t.Fatalf("prepareHeaders() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d headers, want 4", len(got))
	}

	if !got[0].IsDefault || got[0].FieldKey != "first_name" {
		t.Errorf("header 0 = %+v, want default first_name", got[0])
	}
	if !got[1].IsDefault || got[1].FieldKey != ExportKeyAssignedTo {
		t.Errorf("header 1 = %+v, want default assigned_to", got[1])
	}
	if got[2].FieldType != FieldTypeSelect || got[2].Options.String != `["Gold","Silver"]` {
		t.Errorf("header 2 = %+v, want select with two options", got[2])
	}
	if got[3].FieldType != FieldTypeText || !got[3].IsRequired || got[3].IsDefault {
		t.Errorf("header 3 = %+v, want required custom text", got[3])
	}
}

func TestPrepareHeaders_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		inputs []HeaderInput
	}{
		{"empty list", nil},
		{"blank name", []HeaderInput{{Name: "  "}}},
		{"duplicate name", []HeaderInput{{Name: "Tier"}, {Name: "tier"}}},
		{"unknown field key", []HeaderInput{{Name: "X", FieldKey: "favourite_colour"}}},
		{"unknown type", []HeaderInput{{Name: "X", FieldType: "money"}}},
		{"select without options", []HeaderInput{{Name: "X", FieldType: "select", Options: "\n"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prepareHeaders(tt.inputs)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("prepareHeaders() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestValidateCustomValue(t *testing.T) {
	selectHeader := WorkspaceHeader{Name: "Tier", FieldType: FieldTypeSelect, Options: []string{"Gold", "Silver"}}

	tests := []struct {
		name    string
		header  WorkspaceHeader
		in      string
		want    string
		wantErr bool
	}{
		{"text trimmed", WorkspaceHeader{Name: "Note", FieldType: FieldTypeText}, "  hi ", "hi", false},
		{"blank optional", WorkspaceHeader{Name: "Note", FieldType: FieldTypeText}, " ", "", false},
		{"blank required", WorkspaceHeader{Name: "Note", FieldType: FieldTypeText, IsRequired: true}, "", "", true},
		{"number ok", WorkspaceHeader{Name: "Amount", FieldType: FieldTypeNumber}, "$1,200.50", "$1,200.50", false},
		{"number bad", WorkspaceHeader{Name: "Amount", FieldType: FieldTypeNumber}, "lots", "", true},
		{"date ok", WorkspaceHeader{Name: "Due", FieldType: FieldTypeDate}, "2024-01-15", "2024-01-15", false},
		{"date bad", WorkspaceHeader{Name: "Due", FieldType: FieldTypeDate}, "someday", "", true},
		{"checkbox yes", WorkspaceHeader{Name: "OK", FieldType: FieldTypeCheckbox}, "Yes", "true", false},
		{"checkbox off", WorkspaceHeader{Name: "OK", FieldType: FieldTypeCheckbox}, "off", "false", false},
		{"checkbox bad", WorkspaceHeader{Name: "OK", FieldType: FieldTypeCheckbox}, "maybe", "", true},
		{"select canonical case", selectHeader, "gold", "Gold", false},
		{"select unknown", selectHeader, "Platinum", "", true},
		{"builtin rejected", WorkspaceHeader{Name: "Email", FieldKey: "email"}, "a@b.c", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateCustomValue(tt.header, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateCustomValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("validateCustomValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWorkspaceNotEmptyError(t *testing.T) {
	err := error(&WorkspaceNotEmptyError{Count: 3})
	if got, want := err.Error(), "Cannot delete workspace with 3 leads"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := MapError(err).Code; got != "WS001" {
		t.Errorf("MapError code = %q, want WS001", got)
	}
}
