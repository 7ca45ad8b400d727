package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DefaultStatus is applied to any lead written without a status.
const DefaultStatus = "New"

// LeadStatuses is the set of statuses offered to clients. Stored statuses
// are free text; this list is not enforced on write.
var LeadStatuses = []string{
	"New",
	"Contacted",
	"Qualified",
	"Proposal",
	"Negotiation",
	"Won",
	"Lost",
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Lead is a contact record.
type Lead struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Company      string    `json:"company"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zipcode      string    `json:"zipcode"`
	BankName     string    `json:"bank_name"`
	DateCaptured string    `json:"date_captured"`
	TimeCaptured string    `json:"time_captured"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	Notes        string    `json:"notes"`
	Extra        ExtraData `json:"extra_data"`
	WorkspaceID  string    `json:"workspace_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LeadDraft is a lead parsed from one source row, not yet persisted.
type LeadDraft struct {
	Line int // 1-based line in the source
	Lead Lead
}

// Workspace scopes leads, headers and header mappings.
type Workspace struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Description            string    `json:"description"`
	IsActive               bool      `json:"is_active"`
	DefaultHeaderMappingID string    `json:"default_header_mapping_id,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Custom field types accepted on workspace headers.
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeSelect   = "select"
	FieldTypeCheckbox = "checkbox"
	FieldTypeTextarea = "textarea"
)

var fieldTypes = map[string]bool{
	FieldTypeText:     true,
	FieldTypeNumber:   true,
	FieldTypeDate:     true,
	FieldTypeSelect:   true,
	FieldTypeCheckbox: true,
	FieldTypeTextarea: true,
}

// WorkspaceHeader is one ordered column definition of a workspace. Default
// headers carry a FieldKey naming a built-in field or export column; custom
// headers have an empty FieldKey and a FieldType.
type WorkspaceHeader struct {
	ID          string   `json:"id"`
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	FieldKey    string   `json:"field_key,omitempty"`
	IsDefault   bool     `json:"is_default"`
	FieldType   string   `json:"field_type"`
	Options     []string `json:"options,omitempty"`
	IsRequired  bool     `json:"is_required"`
	Position    int      `json:"position"`
}

// HeaderInput describes one header in a ReplaceHeaders call.
type HeaderInput struct {
	Name       string `json:"name" validate:"required,max=200"`
	FieldKey   string `json:"field_key"`
	FieldType  string `json:"field_type"`
	Options    string `json:"options"` // newline-delimited, select only
	IsRequired bool   `json:"is_required"`
}

// User is an account allowed to sign in.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Assignment is one entry in a lead's assignment history.
type Assignment struct {
	ID            string     `json:"id"`
	LeadID        string     `json:"lead_id"`
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	AssignedBy    string     `json:"assigned_by,omitempty"`
	IsActive      bool       `json:"is_active"`
	AssignedAt    time.Time  `json:"assigned_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// ImportResult summarizes one CSV or sheet import.
type ImportResult struct {
	ImportID string        `json:"import_id"`
	FileName string        `json:"file_name,omitempty"`
	Encoding Encoding      `json:"encoding"`
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}
