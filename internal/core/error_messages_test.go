package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "foreign key maps correctly",
			err:         errors.New("violates foreign key constraint \"leads_workspace_id_fkey\""),
			wantCode:    "DB003",
			wantMessage: "Referenced record does not exist",
		},
		{
			name:        "check constraint maps correctly",
			err:         errors.New("new row violates check constraint \"leads_status_check\""),
			wantCode:    "DB008",
			wantMessage: "A value is outside the allowed range",
		},
		{
			name:        "deadline before generic timeout",
			err:         errors.New("context deadline exceeded"),
			wantCode:    "IMP006",
			wantMessage: "Request timed out",
		},
		{
			name:        "encoding error",
			err:         fmt.Errorf("decode upload: %w", errors.New("encoding error: not utf-8, latin-1 or windows-1252")),
			wantCode:    "FILE003",
			wantMessage: "File contains invalid characters",
		},
		{
			name:        "non-csv upload",
			err:         CheckCSVName("leads.xlsx"),
			wantCode:    "FILE006",
			wantMessage: "Please upload a CSV file",
		},
		{
			name:        "validation error uses its own message",
			err:         fmt.Errorf("create workspace: %w", invalid("name", "workspace name is required")),
			wantCode:    "VAL001",
			wantMessage: "Workspace name is required",
		},
		{
			name:        "workspace not empty carries count",
			err:         &WorkspaceNotEmptyError{Count: 3},
			wantCode:    "WS001",
			wantMessage: "Cannot delete workspace with 3 leads",
		},
		{
			name:        "mixed workspaces",
			err:         fmt.Errorf("export selection: %w", ErrMixedWorkspaces),
			wantCode:    "EXP001",
			wantMessage: "Leads from multiple workspaces must be exported separately",
		},
		{
			name:        "wrapped not found",
			err:         fmt.Errorf("lead %w", ErrNotFound),
			wantCode:    "NF001",
			wantMessage: "The requested record was not found",
		},
		{
			name:        "too many imports",
			err:         ErrTooManyImports,
			wantCode:    "IMP001",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("duplicate key value violates")
	result := FormatUserError(err)

	expected := "A record with this ID already exists (Code: DB001). Download failed rows to review duplicates"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", errors.New("duplicate key"), true},
		{"sentinel is user facing", ErrForbidden, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("duplicate key value")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A record with this ID already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
