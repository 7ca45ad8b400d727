package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CustomFieldPrefix marks a mapping key that targets a workspace custom
// field rather than a built-in field.
const CustomFieldPrefix = "custom_field_"

// MappingMatchThreshold is the minimum share of a mapping's headers that
// must appear in a file for MatchMappings to suggest it.
const MappingMatchThreshold = 0.7

// HeaderMapping translates external column names to lead fields.
type HeaderMapping struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	WorkspaceID string               `json:"workspace_id,omitempty"`
	IsDefault   bool                 `json:"is_default"`
	Fields      map[LeadField]string `json:"fields"`
	Custom      map[string]string    `json:"custom"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// SplitMappingPairs sorts a flat key → external header map, as submitted by
// clients, into built-in field entries and custom entries. Keys carrying
// CustomFieldPrefix become custom entries under their bare name. Blank
// values are dropped.
func SplitMappingPairs(pairs map[string]string) (map[LeadField]string, map[string]string, error) {
	fields := make(map[LeadField]string)
	custom := make(map[string]string)

	for key, ext := range pairs {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if name, ok := strings.CutPrefix(key, CustomFieldPrefix); ok {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, nil, invalid("mapping", "custom field name is empty")
			}
			custom[name] = ext
			continue
		}
		f, ok := LookupField(key)
		if !ok {
			return nil, nil, invalid("mapping", fmt.Sprintf("unknown lead field %q", key))
		}
		fields[f] = ext
	}
	return fields, custom, nil
}

// normalizeCustom moves prefixed keys found in a custom map to their bare
// name so older rows and new rows read the same way.
func normalizeCustom(custom map[string]string) map[string]string {
	out := make(map[string]string, len(custom))
	for k, v := range custom {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[strings.TrimPrefix(k, CustomFieldPrefix)] = v
	}
	return out
}

// Headers returns the distinct non-empty external headers the mapping uses.
func (m *HeaderMapping) Headers() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(h string) {
		h = strings.TrimSpace(h)
		key := strings.ToLower(h)
		if h == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, h)
	}
	for _, f := range Fields() {
		add(m.Fields[f])
	}
	for _, name := range sortedKeys(m.Custom) {
		add(m.Custom[name])
	}
	return out
}

// exportOnlyHeaders holds the lowercased labels of default export columns
// that are not lead fields.
var exportOnlyHeaders = map[string]bool{}

func init() {
	for _, c := range DefaultExportColumns() {
		switch c.Key {
		case ExportKeyID, ExportKeyCreatedAt, ExportKeyUpdatedAt, ExportKeyAssignedTo, ExportKeyWorkspace:
			exportOnlyHeaders[strings.ToLower(c.Label)] = true
		}
	}
}

type columnRoute struct {
	header    string
	fields    []LeadField
	extraKeys []string
}

// ColumnPlan routes each column of a row to lead fields or extension keys.
// Columns past the end of the plan go to the extension map as column_<i>.
type ColumnPlan struct {
	routes []columnRoute
}

// ResolveColumns builds the plan for a header row.
//
// Without a mapping, headers are matched against field synonyms; the first
// column claiming a field wins and everything else becomes extension data
// keyed by its lowercased name.
//
// Columns labelled like the export-only columns of DefaultExportColumns
// (ID, Created, Updated, Assigned To, Workspace) are dropped, so a file
// produced by FormatCSV imports without carrying them as extension data.
//
// With a mapping, a column is mapped only when some non-empty mapping value
// names it (case-insensitively); synonyms are not consulted. Custom entries
// route the column into the extension map under the custom field's name.
func ResolveColumns(mapping *HeaderMapping, headers []string) ColumnPlan {
	routes := make([]columnRoute, len(headers))
	for i, h := range headers {
		routes[i].header = CleanCell(h)
	}

	if mapping == nil {
		used := make(map[LeadField]bool)
		for i := range routes {
			if f, ok := FieldBySynonym(routes[i].header); ok && !used[f] {
				used[f] = true
				routes[i].fields = []LeadField{f}
				continue
			}
			if exportOnlyHeaders[strings.ToLower(routes[i].header)] {
				continue
			}
			routes[i].extraKeys = []string{extensionKey(routes[i].header, i)}
		}
		return ColumnPlan{routes: routes}
	}

	idx := MakeHeaderIndex(headers)
	mapped := make([]bool, len(routes))

	for _, f := range Fields() {
		ext := strings.ToLower(CleanCell(mapping.Fields[f]))
		if ext == "" {
			continue
		}
		if col, ok := idx[ext]; ok {
			routes[col].fields = append(routes[col].fields, f)
			mapped[col] = true
		}
	}
	custom := normalizeCustom(mapping.Custom)
	for _, name := range sortedKeys(custom) {
		ext := strings.ToLower(CleanCell(custom[name]))
		if col, ok := idx[ext]; ok {
			routes[col].extraKeys = append(routes[col].extraKeys, name)
			mapped[col] = true
		}
	}

	for i := range routes {
		if !mapped[i] {
			routes[i].extraKeys = []string{extensionKey(routes[i].header, i)}
		}
	}
	return ColumnPlan{routes: routes}
}

// PositionalPlan is the plan for header-less input.
func PositionalPlan() ColumnPlan {
	routes := make([]columnRoute, len(PositionalFields))
	for i, f := range PositionalFields {
		routes[i] = columnRoute{fields: []LeadField{f}}
	}
	return ColumnPlan{routes: routes}
}

// Apply copies the non-empty, trimmed cells of row onto lead.
func (p ColumnPlan) Apply(row []string, lead *Lead) {
	for i, cell := range row {
		v := strings.TrimSpace(cell)
		if v == "" {
			continue
		}
		if i >= len(p.routes) {
			lead.Extra.Set(positionalKey(i), v)
			continue
		}
		for _, f := range p.routes[i].fields {
			f.Set(lead, v)
		}
		for _, k := range p.routes[i].extraKeys {
			lead.Extra.Set(k, v)
		}
	}
}

// FieldColumns reports which external header feeds each mapped field.
func (p ColumnPlan) FieldColumns() map[LeadField]string {
	out := make(map[LeadField]string)
	for _, r := range p.routes {
		for _, f := range r.fields {
			out[f] = r.header
		}
	}
	return out
}

// ExtensionKeys lists the extension keys the plan writes, in column order.
func (p ColumnPlan) ExtensionKeys() []string {
	var out []string
	for _, r := range p.routes {
		out = append(out, r.extraKeys...)
	}
	return out
}

func extensionKey(header string, col int) string {
	if key := strings.ToLower(strings.TrimSpace(header)); key != "" {
		return key
	}
	return positionalKey(col)
}

func positionalKey(col int) string {
	return "column_" + strconv.Itoa(col)
}

// matchMappingHeaders scores a mapping against a file's header row as the
// share of the mapping's external headers present in the row.
func matchMappingHeaders(csvHeaders []string, m *HeaderMapping) float64 {
	want := m.Headers()
	if len(want) == 0 {
		return 0
	}

	idx := MakeHeaderIndex(csvHeaders)
	matched := 0
	for _, h := range want {
		if _, ok := idx[strings.ToLower(CleanCell(h))]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
