package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

const testUserID = "6f1c1b9e-8a34-4c52-9e1f-3b7a2d5c9e01"

func TestParseSearch(t *testing.T) {
	tests := []struct {
		in       string
		wantCol  string
		wantTerm string
	}{
		{"jane", "", "jane"},
		{"  jane doe ", "", "jane doe"},
		{"email:gmail.com", "email", "gmail.com"},
		{"Loan Amount: 25000", "loan amount", "25000"},
		{"email:", "", "email:"},
		{":value", "", ":value"},
		{"bad-col!:x", "", "bad-col!:x"},
		{"notes:a:b", "notes", "a:b"},
	}
	for _, tt := range tests {
		col, term := parseSearch(tt.in)
		if col != tt.wantCol || term != tt.wantTerm {
			t.Errorf("parseSearch(%q) = (%q, %q), want (%q, %q)", tt.in, col, term, tt.wantCol, tt.wantTerm)
		}
	}
}

func TestLeadWhere(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		filter   LeadFilter
		contains []string
		args     int
	}{
		{
			name: "empty",
			ctx:  context.Background(),
		},
		{
			name:     "status and unassigned",
			ctx:      context.Background(),
			filter:   LeadFilter{Status: "New", AssignedTo: "0"},
			contains: []string{"status = $1", "NOT EXISTS"},
			args:     1,
		},
		{
			name:     "assigned user",
			ctx:      context.Background(),
			filter:   LeadFilter{AssignedTo: testUserID},
			contains: []string{"la.user_id = $1"},
			args:     1,
		},
		{
			name:     "date range",
			ctx:      context.Background(),
			filter:   LeadFilter{From: "01/15/2024", To: "2024-01-31"},
			contains: []string{"created_at >= $1", "created_at <= $2"},
			args:     2,
		},
		{
			name:     "free text",
			ctx:      context.Background(),
			filter:   LeadFilter{Search: "jane"},
			contains: []string{`"email" ILIKE $1`, `"company" ILIKE $1`},
			args:     1,
		},
		{
			name:     "builtin column search",
			ctx:      context.Background(),
			filter:   LeadFilter{Search: "Bank Name:chase"},
			contains: []string{`("bank_name" ILIKE $1)`},
			args:     1,
		},
		{
			name:     "extension column search",
			ctx:      context.Background(),
			filter:   LeadFilter{Search: "loan amount:250"},
			contains: []string{"jsonb_each_text", "lower(e.key) = $1", "e.value ILIKE $2"},
			args:     2,
		},
		{
			name:     "non-admin scope",
			ctx:      ContextWithActor(context.Background(), Actor{ID: testUserID, Role: RoleUser}),
			contains: []string{"la.user_id = $1"},
			args:     1,
		},
		{
			name: "admin unscoped",
			ctx:  ContextWithActor(context.Background(), Actor{ID: testUserID, Role: RoleAdmin}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb, err := leadWhere(tt.ctx, tt.filter)
			if err != nil {
				t.Fatalf("leadWhere() error = %v", err)
			}
			where, args := wb.Build()
			for _, c := range tt.contains {
				if !strings.Contains(where, c) {
					t.Errorf("where = %q, want it to contain %q", where, c)
				}
			}
			if len(args) != tt.args {
				t.Errorf("got %d args, want %d", len(args), tt.args)
			}
			if len(tt.contains) == 0 && where != "" {
				t.Errorf("where = %q, want empty", where)
			}
		})
	}
}

func TestLeadWhere_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		filter LeadFilter
	}{
		{"bad workspace", LeadFilter{WorkspaceID: "nope"}},
		{"bad user", LeadFilter{AssignedTo: "someone"}},
		{"bad from", LeadFilter{From: "yesterday"}},
		{"bad to", LeadFilter{To: "31/31/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := leadWhere(context.Background(), tt.filter)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("leadWhere() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{3, 20, 3, 20},
		{-1, 10000, 1, MaxPageSize},
	}
	for _, tt := range tests {
		page, size := pageBounds(tt.page, tt.size)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("pageBounds(%d, %d) = (%d, %d), want (%d, %d)",
				tt.page, tt.size, page, size, tt.wantPage, tt.wantSize)
		}
	}
}

func TestLeadInput_Lead(t *testing.T) {
	l := LeadInput{FirstName: " Jane ", LastName: "Doe", Status: "  "}.lead()
	if l.Name != "Jane Doe" {
		t.Errorf("Name = %q, want %q", l.Name, "Jane Doe")
	}
	if l.Status != DefaultStatus {
		t.Errorf("Status = %q, want %q", l.Status, DefaultStatus)
	}
}

func TestAdminOnlyOperations(t *testing.T) {
	svc := NewService(nil, Options{})
	ctx := ContextWithActor(context.Background(), Actor{ID: testUserID, Role: RoleUser})

	ops := map[string]func() error{
		"CreateLead": func() error { _, err := svc.CreateLead(ctx, LeadInput{FirstName: "x"}); return err },
		"DeleteLead": func() error { return svc.DeleteLead(ctx, testUserID) },
		"BulkDeleteLeads": func() error {
			_, err := svc.BulkDeleteLeads(ctx, []string{testUserID})
			return err
		},
		"AssignLead":      func() error { _, err := svc.AssignLead(ctx, testUserID, testUserID); return err },
		"CreateWorkspace": func() error { _, err := svc.CreateWorkspace(ctx, WorkspaceInput{Name: "x"}); return err },
		"DeleteWorkspace": func() error { return svc.DeleteWorkspace(ctx, testUserID) },
		"ListUsers":       func() error { _, err := svc.ListUsers(ctx); return err },
		"ImportLeads":     func() error { _, err := svc.ImportLeads(ctx, ImportRequest{Data: []byte("a")}); return err },
		"ImportSheet": func() error {
			_, err := svc.ImportSheet(ctx, SheetImportRequest{SpreadsheetID: "x"})
			return err
		},
		"ExportSelection": func() error { _, err := svc.ExportSelection(ctx, []string{testUserID}); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrForbidden) {
				t.Errorf("%s() error = %v, want ErrForbidden", name, err)
			}
		})
	}
}

func TestGetUser_OtherUserForbidden(t *testing.T) {
	svc := NewService(nil, Options{})
	ctx := ContextWithActor(context.Background(), Actor{ID: testUserID, Role: RoleUser})
	if _, err := svc.GetUser(ctx, "00000000-0000-0000-0000-000000000001"); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetUser() error = %v, want ErrForbidden", err)
	}
}

func TestMovesWorkspace(t *testing.T) {
	wsA := pgtype.UUID{Bytes: [16]byte{1}, Valid: true}
	wsB := pgtype.UUID{Bytes: [16]byte{2}, Valid: true}

	tests := []struct {
		name     string
		from, to pgtype.UUID
		want     bool
	}{
		{"same workspace", wsA, wsA, false},
		{"other workspace", wsA, wsB, true},
		{"out of workspace", wsA, pgtype.UUID{}, true},
		{"into workspace", pgtype.UUID{}, wsA, true},
		{"never had one", pgtype.UUID{}, pgtype.UUID{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := movesWorkspace(tt.from, tt.to); got != tt.want {
				t.Errorf("movesWorkspace() = %v, want %v", got, tt.want)
			}
		})
	}
}
