package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// WhereBuilder assembles a parameterized WHERE clause. Conditions are
// ANDed in the order they are added and placeholders are numbered from $1.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "col = $n". Empty strings and nil values are skipped.
func (wb *WhereBuilder) Add(col string, val any) {
	if isBlankArg(val) {
		return
	}
	wb.conditions = append(wb.conditions, col+" = "+wb.placeholder())
	wb.args = append(wb.args, val)
}

// AddCondition appends a raw condition. Each ? in tmpl is replaced by the
// next placeholder and consumes one arg.
func (wb *WhereBuilder) AddCondition(tmpl string, args ...any) {
	var b strings.Builder
	used := 0
	for _, r := range tmpl {
		if r == '?' && used < len(args) {
			b.WriteString(wb.placeholder())
			used++
			continue
		}
		b.WriteRune(r)
	}
	wb.conditions = append(wb.conditions, b.String())
	wb.args = append(wb.args, args[:used]...)
}

// AddTimestampRange bounds col by from and to. Nil bounds are skipped.
func (wb *WhereBuilder) AddTimestampRange(col string, from, to *time.Time) {
	if from != nil {
		wb.conditions = append(wb.conditions, col+" >= "+wb.placeholder())
		wb.args = append(wb.args, *from)
	}
	if to != nil {
		wb.conditions = append(wb.conditions, col+" <= "+wb.placeholder())
		wb.args = append(wb.args, *to)
	}
}

// AddSearch matches query case-insensitively against any of columns.
// All columns share one placeholder.
func (wb *WhereBuilder) AddSearch(query string, columns []string) {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return
	}

	ph := wb.placeholder()
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = quoteIdentifier(col) + " ILIKE " + ph
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
}

// NextArgIndex returns the number the next placeholder will use, for
// callers appending LIMIT/OFFSET after the WHERE clause.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause with a leading " WHERE " and its args, or ""
// and nil when no condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func (wb *WhereBuilder) placeholder() string {
	p := "$" + strconv.Itoa(wb.argIndex)
	wb.argIndex++
	return p
}

func isBlankArg(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// quoteIdentifier quotes a column name for safe interpolation.
func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
