package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks the role for an operation.
	ErrForbidden = errors.New("permission denied")

	// ErrInvalidCredentials is returned by Authenticate for any bad login.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMixedWorkspaces rejects a selection export spanning workspaces.
	ErrMixedWorkspaces = errors.New("Leads from multiple workspaces must be exported separately")

	// ErrNothingImported is returned when every data row of an import failed.
	ErrNothingImported = errors.New("import failed: no rows were imported")

	// ErrSheetsDisabled is returned when no spreadsheet client is configured.
	ErrSheetsDisabled = errors.New("spreadsheet import not configured")

	errNoDatabase = errors.New("database connection failed: no pool configured")
)

// ValidationError reports bad caller input. Nothing has been changed when
// it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// WorkspaceNotEmptyError blocks deleting a workspace that still owns leads.
type WorkspaceNotEmptyError struct {
	Count int64
}

func (e *WorkspaceNotEmptyError) Error() string {
	return fmt.Sprintf("Cannot delete workspace with %d leads", e.Count)
}

// notFound converts pgx.ErrNoRows into ErrNotFound, naming what was missing.
func notFound(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
