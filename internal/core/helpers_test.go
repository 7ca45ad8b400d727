package core

import (
	"strings"
	"testing"
	"time"
)

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.argIndex != 1 {
		t.Errorf("argIndex = %d, want 1", wb.argIndex)
	}
	if len(wb.conditions) != 0 || len(wb.args) != 0 {
		t.Errorf("new builder not empty: %+v", wb)
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	clause, args := NewWhereBuilder().Build()

	if clause != "" {
		t.Errorf("clause = %q, want empty", clause)
	}
	if args != nil {
		t.Errorf("args = %v, want nil", args)
	}
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("status", "New")
	wb.Add("source", "")
	wb.Add("workspace_id", nil)
	wb.Add("city", "Austin")

	clause, args := wb.Build()

	if want := " WHERE status = $1 AND city = $2"; clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if len(args) != 2 || args[0] != "New" || args[1] != "Austin" {
		t.Errorf("args = %v, want [New Austin]", args)
	}
}

func TestWhereBuilder_AddCondition(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("status", "Won")
	wb.AddCondition("id IN (SELECT lead_id FROM lead_assignments WHERE is_active AND user_id = ?)", "u-1")
	wb.AddCondition("workspace_id IS NULL")

	clause, args := wb.Build()

	want := " WHERE status = $1 AND id IN (SELECT lead_id FROM lead_assignments WHERE is_active AND user_id = $2) AND workspace_id IS NULL"
	if clause != want {
		t.Errorf("clause = %q\nwant %q", clause, want)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want 2 entries", args)
	}
}

func TestWhereBuilder_AddTimestampRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name     string
		from, to *time.Time
		want     string
		nargs    int
	}{
		{"both", &from, &to, " WHERE created_at >= $1 AND created_at <= $2", 2},
		{"from only", &from, nil, " WHERE created_at >= $1", 1},
		{"to only", nil, &to, " WHERE created_at <= $1", 1},
		{"neither", nil, nil, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddTimestampRange("created_at", tt.from, tt.to)
			clause, args := wb.Build()
			if clause != tt.want {
				t.Errorf("clause = %q, want %q", clause, tt.want)
			}
			if len(args) != tt.nargs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.nargs)
			}
		})
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder()
	if got := wb.NextArgIndex(); got != 1 {
		t.Errorf("initial NextArgIndex = %d, want 1", got)
	}

	wb.Add("a", "1")
	wb.AddSearch("x", []string{"b", "c"})
	if got := wb.NextArgIndex(); got != 3 {
		t.Errorf("NextArgIndex = %d, want 3", got)
	}

	now := time.Now()
	wb.AddTimestampRange("created_at", &now, &now)
	if got := wb.NextArgIndex(); got != 5 {
		t.Errorf("NextArgIndex = %d, want 5", got)
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		columns []string
		want    string
		wantArg string
	}{
		{"empty query skipped", "  ", []string{"name"}, "", ""},
		{"no columns skipped", "jane", nil, "", ""},
		{"single column", "jane", []string{"email"}, ` WHERE ("email" ILIKE $1)`, "%jane%"},
		{"multiple columns share placeholder", "acme", []string{"name", "company"}, ` WHERE ("name" ILIKE $1 OR "company" ILIKE $1)`, "%acme%"},
		{"wildcards escaped", "50%_off", []string{"notes"}, ` WHERE ("notes" ILIKE $1)`, `%50\%\_off%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddSearch(tt.query, tt.columns)
			clause, args := wb.Build()

			if clause != tt.want {
				t.Errorf("clause = %q, want %q", clause, tt.want)
			}
			if tt.wantArg == "" {
				if len(args) != 0 {
					t.Errorf("args = %v, want none", args)
				}
				return
			}
			if len(args) != 1 || args[0] != tt.wantArg {
				t.Errorf("args = %v, want [%s]", args, tt.wantArg)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"email", `"email"`},
		{"bank_name", `"bank_name"`},
		{`we"ird`, `"we""ird"`},
	}

	for _, tt := range tests {
		if got := quoteIdentifier(tt.in); got != tt.want {
			t.Errorf("quoteIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWhereBuilder_LeadListingQuery(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddSearch("smith", []string{"name", "email"})
	wb.Add("workspace_id", "ws-1")
	wb.Add("status", "Contacted")

	clause, args := wb.Build()

	for _, cond := range []string{`"name" ILIKE $1`, `"email" ILIKE $1`, "workspace_id = $2", "status = $3"} {
		if !strings.Contains(clause, cond) {
			t.Errorf("clause %q missing %q", clause, cond)
		}
	}
	if len(args) != 3 {
		t.Errorf("len(args) = %d, want 3", len(args))
	}
	if args[0] != "%smith%" {
		t.Errorf("args[0] = %v, want %%smith%%", args[0])
	}
}
