package core

import (
	"reflect"
	"testing"
)

func TestResolveColumns_Synonyms(t *testing.T) {
	plan := ResolveColumns(nil, []string{"Given Name", "Surname", "E-mail", "Favourite Colour", "first_name", ""})

	wantFields := map[LeadField]string{
		FieldFirstName: "Given Name",
		FieldLastName:  "Surname",
		FieldEmail:     "E-mail",
	}
	if got := plan.FieldColumns(); !reflect.DeepEqual(got, wantFields) {
		t.Errorf("FieldColumns() = %v, want %v", got, wantFields)
	}

	wantExtra := []string{"favourite colour", "first_name", "column_5"}
	if got := plan.ExtensionKeys(); !reflect.DeepEqual(got, wantExtra) {
		t.Errorf("ExtensionKeys() = %v, want %v", got, wantExtra)
	}
}

func TestResolveColumns_MappingTakesPrecedence(t *testing.T) {
	mapping := &HeaderMapping{
		Fields: map[LeadField]string{
			FieldFirstName: "Fname",
			FieldEmail:     "CONTACT",
			FieldPhone:     "",
		},
		Custom: map[string]string{
			"Loan Amount":                "amt",
			CustomFieldPrefix + "Branch": "Branch Code",
			"Stale Field":                "not in file",
		},
	}
	headers := []string{"fname", "email", "contact", "Phone", "AMT", "branch code"}
	plan := ResolveColumns(mapping, headers)

	wantFields := map[LeadField]string{
		FieldFirstName: "fname",
		FieldEmail:     "contact",
	}
	if got := plan.FieldColumns(); !reflect.DeepEqual(got, wantFields) {
		t.Errorf("FieldColumns() = %v, want %v", got, wantFields)
	}

	var lead Lead
	plan.Apply([]string{"Jane", "synonym@x.com", "mapped@x.com", "555", "1000", "B7"}, &lead)

	if lead.Email != "mapped@x.com" {
		t.Errorf("Email = %q, want mapped column value", lead.Email)
	}
	if lead.Phone != "" {
		t.Errorf("Phone = %q, synonym match must not apply when a mapping is given", lead.Phone)
	}

	wantExtra := map[string]string{
		"email":       "synonym@x.com",
		"phone":       "555",
		"Loan Amount": "1000",
		"Branch":      "B7",
	}
	for k, want := range wantExtra {
		if got, ok := lead.Extra.Get(k); !ok || got != want {
			t.Errorf("Extra[%q] = (%q, %v), want %q", k, got, ok, want)
		}
	}
	if _, ok := lead.Extra.Get("Stale Field"); ok {
		t.Error("stale custom field without a column should not produce a value")
	}
}

func TestResolveColumns_Deterministic(t *testing.T) {
	mapping := &HeaderMapping{
		Fields: map[LeadField]string{FieldFirstName: "A", FieldLastName: "B", FieldNotes: "C"},
		Custom: map[string]string{"x": "D", "y": "E", "z": "F"},
	}
	headers := []string{"F", "E", "D", "C", "B", "A", "G"}

	first := ResolveColumns(mapping, headers)
	for i := 0; i < 20; i++ {
		again := ResolveColumns(mapping, headers)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("plan changed between runs:\n%#v\n%#v", first, again)
		}
	}
}

func TestResolveColumns_SameHeaderFeedsTwoFields(t *testing.T) {
	mapping := &HeaderMapping{Fields: map[LeadField]string{
		FieldCompany:  "Org",
		FieldBankName: "org",
	}}
	var lead Lead
	ResolveColumns(mapping, []string{"Org"}).Apply([]string{"Acme"}, &lead)

	if lead.Company != "Acme" || lead.BankName != "Acme" {
		t.Errorf("Company=%q BankName=%q, want both Acme", lead.Company, lead.BankName)
	}
}

func TestColumnPlan_ExtraColumnsBeyondHeader(t *testing.T) {
	var lead Lead
	ResolveColumns(nil, []string{"email"}).Apply([]string{"a@x.com", "spill", ""}, &lead)

	if v, _ := lead.Extra.Get("column_1"); v != "spill" {
		t.Errorf("column_1 = %q, want spill", v)
	}
	if _, ok := lead.Extra.Get("column_2"); ok {
		t.Error("empty trailing cell must not be stored")
	}
}

func TestSplitMappingPairs(t *testing.T) {
	fields, custom, err := SplitMappingPairs(map[string]string{
		"first_name":               "First",
		"email":                    " ",
		CustomFieldPrefix + "Loan": "Loan Amt",
	})
	if err != nil {
		t.Fatalf("SplitMappingPairs error = %v", err)
	}
	if fields[FieldFirstName] != "First" {
		t.Errorf("first_name = %q", fields[FieldFirstName])
	}
	if _, ok := fields[FieldEmail]; ok {
		t.Error("blank mapping value should be dropped")
	}
	if custom["Loan"] != "Loan Amt" {
		t.Errorf("custom Loan = %q", custom["Loan"])
	}

	if _, _, err := SplitMappingPairs(map[string]string{"shoe_size": "Size"}); err == nil {
		t.Error("unknown field should be rejected")
	}
}

func TestMatchMappingHeaders(t *testing.T) {
	m := &HeaderMapping{
		Fields: map[LeadField]string{FieldFirstName: "First", FieldLastName: "Last", FieldEmail: "Mail"},
		Custom: map[string]string{"Loan": "Loan Amt"},
	}

	if got := matchMappingHeaders([]string{"first", "LAST", "mail", "loan amt"}, m); got != 1 {
		t.Errorf("full match score = %v, want 1", got)
	}
	if got := matchMappingHeaders([]string{"first", "last", "mail"}, m); got != 0.75 {
		t.Errorf("partial score = %v, want 0.75", got)
	}
	if got := matchMappingHeaders([]string{"x"}, &HeaderMapping{}); got != 0 {
		t.Errorf("empty mapping score = %v, want 0", got)
	}
}

func TestResolveColumns_DropsExportOnlyColumns(t *testing.T) {
	tests := []struct {
		name      string
		headers   []string
		wantExtra []string
	}{
		{"export labels", []string{"ID", "Email", "Created", "Updated", "Assigned To", "Workspace"}, nil},
		{"case and spacing", []string{" assigned to ", "WORKSPACE", "Email"}, nil},
		{"other columns kept", []string{"Email", "ID", "Branch"}, []string{"branch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := ResolveColumns(nil, tt.headers)
			if got := plan.ExtensionKeys(); !reflect.DeepEqual(got, tt.wantExtra) {
				t.Errorf("ExtensionKeys() = %v, want %v", got, tt.wantExtra)
			}
			if got := plan.FieldColumns()[FieldEmail]; got == "" {
				t.Error("Email column should still map to email")
			}
		})
	}
}

func TestResolveColumns_MappingKeepsExportLabels(t *testing.T) {
	mapping := &HeaderMapping{Fields: map[LeadField]string{FieldEmail: "Email"}}

	plan := ResolveColumns(mapping, []string{"Email", "Workspace"})
	if got, want := plan.ExtensionKeys(), []string{"workspace"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ExtensionKeys() = %v, want %v", got, want)
	}
}
