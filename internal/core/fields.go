package core

import "strings"

// LeadField identifies a built-in lead attribute.
type LeadField string

const (
	FieldFirstName    LeadField = "first_name"
	FieldLastName     LeadField = "last_name"
	FieldName         LeadField = "name"
	FieldEmail        LeadField = "email"
	FieldPhone        LeadField = "phone"
	FieldCompany      LeadField = "company"
	FieldCity         LeadField = "city"
	FieldState        LeadField = "state"
	FieldZipcode      LeadField = "zipcode"
	FieldBankName     LeadField = "bank_name"
	FieldDateCaptured LeadField = "date_captured"
	FieldTimeCaptured LeadField = "time_captured"
	FieldStatus       LeadField = "status"
	FieldSource       LeadField = "source"
	FieldNotes        LeadField = "notes"
)

type fieldDef struct {
	key      LeadField
	label    string
	synonyms []string
	get      func(*Lead) string
	set      func(*Lead, string)
}

// registry lists every built-in field in canonical order. Synonyms are
// normalized with normalizeHeader.
var registry = []fieldDef{
	{FieldFirstName, "First Name", []string{"first_name", "firstname", "first", "fname", "given_name", "forename"},
		func(l *Lead) string { return l.FirstName }, func(l *Lead, v string) { l.FirstName = v }},
	{FieldLastName, "Last Name", []string{"last_name", "lastname", "last", "lname", "surname", "family_name"},
		func(l *Lead) string { return l.LastName }, func(l *Lead, v string) { l.LastName = v }},
	{FieldName, "Name", []string{"name", "full_name", "fullname", "contact_name"},
		func(l *Lead) string { return l.Name }, func(l *Lead, v string) { l.Name = v }},
	{FieldEmail, "Email", []string{"email", "email_address", "emailaddress", "e_mail", "mail"},
		func(l *Lead) string { return l.Email }, func(l *Lead, v string) { l.Email = v }},
	{FieldPhone, "Phone", []string{"phone", "phone_number", "phonenumber", "telephone", "tel", "mobile", "cell"},
		func(l *Lead) string { return l.Phone }, func(l *Lead, v string) { l.Phone = v }},
	{FieldCompany, "Company", []string{"company", "company_name", "organization", "organisation", "business"},
		func(l *Lead) string { return l.Company }, func(l *Lead, v string) { l.Company = v }},
	{FieldCity, "City", []string{"city", "town"},
		func(l *Lead) string { return l.City }, func(l *Lead, v string) { l.City = v }},
	{FieldState, "State", []string{"state", "province", "region"},
		func(l *Lead) string { return l.State }, func(l *Lead, v string) { l.State = v }},
	{FieldZipcode, "Zip", []string{"zipcode", "zip", "zip_code", "postal_code", "postalcode", "postcode"},
		func(l *Lead) string { return l.Zipcode }, func(l *Lead, v string) { l.Zipcode = v }},
	{FieldBankName, "Bank Name", []string{"bank_name", "bankname", "bank"},
		func(l *Lead) string { return l.BankName }, func(l *Lead, v string) { l.BankName = v }},
	{FieldDateCaptured, "Date Captured", []string{"date_captured", "datecaptured", "date", "capture_date"},
		func(l *Lead) string { return l.DateCaptured }, func(l *Lead, v string) { l.DateCaptured = v }},
	{FieldTimeCaptured, "Time Captured", []string{"time_captured", "timecaptured", "time", "capture_time"},
		func(l *Lead) string { return l.TimeCaptured }, func(l *Lead, v string) { l.TimeCaptured = v }},
	{FieldStatus, "Status", []string{"status", "lead_status"},
		func(l *Lead) string { return l.Status }, func(l *Lead, v string) { l.Status = v }},
	{FieldSource, "Source", []string{"source", "lead_source"},
		func(l *Lead) string { return l.Source }, func(l *Lead, v string) { l.Source = v }},
	{FieldNotes, "Notes", []string{"notes", "note", "comments", "comment"},
		func(l *Lead) string { return l.Notes }, func(l *Lead, v string) { l.Notes = v }},
}

var (
	fieldIndex   = make(map[LeadField]int, len(registry))
	synonymIndex = make(map[string]LeadField)
)

func init() {
	for i, def := range registry {
		fieldIndex[def.key] = i
		for _, syn := range def.synonyms {
			synonymIndex[normalizeHeader(syn)] = def.key
		}
	}
}

// PositionalFields is the column order assumed for header-less input.
var PositionalFields = []LeadField{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldCompany,
	FieldCity,
	FieldState,
	FieldZipcode,
	FieldBankName,
	FieldDateCaptured,
	FieldTimeCaptured,
	FieldStatus,
	FieldSource,
	FieldNotes,
}

// Fields returns every built-in field in canonical order.
func Fields() []LeadField {
	out := make([]LeadField, len(registry))
	for i, def := range registry {
		out[i] = def.key
	}
	return out
}

// LookupField resolves an internal field key, case-insensitively.
func LookupField(key string) (LeadField, bool) {
	f := LeadField(strings.ToLower(strings.TrimSpace(key)))
	_, ok := fieldIndex[f]
	return f, ok
}

// FieldBySynonym resolves an external column name to a built-in field.
func FieldBySynonym(header string) (LeadField, bool) {
	f, ok := synonymIndex[normalizeHeader(header)]
	return f, ok
}

// Valid reports whether f is a registered field.
func (f LeadField) Valid() bool {
	_, ok := fieldIndex[f]
	return ok
}

// Label returns the display label of f, or the raw key if f is unknown.
func (f LeadField) Label() string {
	if i, ok := fieldIndex[f]; ok {
		return registry[i].label
	}
	return string(f)
}

// Get reads f from l. Unknown fields read as "".
func (f LeadField) Get(l *Lead) string {
	if i, ok := fieldIndex[f]; ok {
		return registry[i].get(l)
	}
	return ""
}

// Set writes v to f on l. Unknown fields are ignored.
func (f LeadField) Set(l *Lead, v string) {
	if i, ok := fieldIndex[f]; ok {
		registry[i].set(l, v)
	}
}

// normalizeHeader lowercases and trims h and folds spaces and dashes to
// underscores so "Given Name", "given-name" and "given_name" compare equal.
func normalizeHeader(h string) string {
	h = strings.ToLower(CleanCell(h))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, h)
}
