package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Export keys that are not lead fields.
const (
	ExportKeyID         = "id"
	ExportKeyCreatedAt  = "created_at"
	ExportKeyUpdatedAt  = "updated_at"
	ExportKeyAssignedTo = "assigned_to"
	ExportKeyWorkspace  = "workspace"
)

// HeaderKeyPrefix prefixes the export key of a workspace custom header.
const HeaderKeyPrefix = "header:"

// Placeholders rendered for missing relations.
const (
	UnassignedLabel  = "Unassigned"
	NoWorkspaceLabel = "None"
)

// ExportTimeLayout formats timestamps in exported files.
const ExportTimeLayout = "2006-01-02 15:04:05"

// ExportColumn is one column of an exported file.
type ExportColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// CustomValue is a lead's value for one workspace custom header.
type CustomValue struct {
	HeaderID string `json:"header_id"`
	Value    string `json:"value"`
}

// ExportRow is a lead with the relations its columns may need.
type ExportRow struct {
	Lead          Lead
	AssignedTo    *string
	WorkspaceName *string
	Custom        []CustomValue
}

func isExportKey(key string) bool {
	switch key {
	case ExportKeyID, ExportKeyCreatedAt, ExportKeyUpdatedAt, ExportKeyAssignedTo, ExportKeyWorkspace:
		return true
	}
	return LeadField(key).Valid()
}

// DefaultExportColumns is the column list used when no workspace headers
// apply.
func DefaultExportColumns() []ExportColumn {
	return []ExportColumn{
		{ExportKeyID, "ID"},
		{string(FieldFirstName), "First Name"},
		{string(FieldLastName), "Last Name"},
		{string(FieldEmail), "Email"},
		{string(FieldPhone), "Phone"},
		{string(FieldCompany), "Company"},
		{string(FieldCity), "City"},
		{string(FieldState), "State"},
		{string(FieldZipcode), "Zip"},
		{string(FieldDateCaptured), "Date Captured"},
		{string(FieldTimeCaptured), "Time Captured"},
		{string(FieldBankName), "Bank Name"},
		{string(FieldStatus), "Status"},
		{string(FieldSource), "Source"},
		{string(FieldNotes), "Notes"},
		{ExportKeyCreatedAt, "Created"},
		{ExportKeyUpdatedAt, "Updated"},
		{ExportKeyAssignedTo, "Assigned To"},
		{ExportKeyWorkspace, "Workspace"},
	}
}

// WorkspaceExportColumns builds columns from a workspace's ordered headers.
func WorkspaceExportColumns(headers []WorkspaceHeader) []ExportColumn {
	cols := make([]ExportColumn, len(headers))
	for i, h := range headers {
		key := h.FieldKey
		if key == "" {
			key = HeaderKeyPrefix + h.ID
		}
		cols[i] = ExportColumn{Key: key, Label: h.Name}
	}
	return cols
}

// Value renders the cell for col. Built-in fields and relation keys are
// read directly; custom headers are looked up by header id, then in the
// extension map by label, exact first and then lowercased. Anything else
// is "".
func (r ExportRow) Value(col ExportColumn) string {
	switch col.Key {
	case ExportKeyID:
		return r.Lead.ID
	case ExportKeyCreatedAt:
		return formatExportTime(r.Lead.CreatedAt)
	case ExportKeyUpdatedAt:
		return formatExportTime(r.Lead.UpdatedAt)
	case ExportKeyAssignedTo:
		if r.AssignedTo == nil {
			return UnassignedLabel
		}
		return *r.AssignedTo
	case ExportKeyWorkspace:
		if r.WorkspaceName == nil {
			return NoWorkspaceLabel
		}
		return *r.WorkspaceName
	case string(FieldStatus):
		if s := strings.TrimSpace(r.Lead.Status); s != "" {
			return s
		}
		return DefaultStatus
	}

	if f := LeadField(col.Key); f.Valid() {
		return f.Get(&r.Lead)
	}

	if id, ok := strings.CutPrefix(col.Key, HeaderKeyPrefix); ok {
		for _, c := range r.Custom {
			if c.HeaderID == id {
				return c.Value
			}
		}
	}

	if v, ok := r.Lead.Extra.Get(col.Label); ok {
		return v
	}
	if v, ok := r.Lead.Extra.Get(strings.ToLower(col.Label)); ok {
		return v
	}
	return ""
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ExportTimeLayout)
}

// FormatCSV writes a header row of column labels followed by one record per
// row, in column order.
func FormatCSV(w io.Writer, columns []ExportColumn, rows []ExportRow) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			record[i] = r.Value(c)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

var filenameReplacer = strings.NewReplacer("/", "_", `\`, "_", `"`, "_", "'", "_", ":", "_", "\n", "_", "\r", "_")

// ExportFilename returns "<entity>_<YYYYMMDD_HHMMSS>.csv".
func ExportFilename(entity string, now time.Time) string {
	entity = strings.TrimSpace(filenameReplacer.Replace(entity))
	if entity == "" {
		entity = "leads"
	}
	return fmt.Sprintf("%s_%s.csv", entity, now.Format("20060102_150405"))
}
