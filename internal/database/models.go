package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AuditLog struct {
	ID           pgtype.UUID
	Action       string
	Severity     string
	ActorID      pgtype.UUID
	Entity       string
	EntityID     string
	RowsAffected int32
	Detail       []byte
	IpAddress    string
	UserAgent    string
	CreatedAt    pgtype.Timestamptz
}

type HeaderMapping struct {
	ID          pgtype.UUID
	Name        string
	WorkspaceID pgtype.UUID
	IsDefault   bool
	FieldMap    string
	CustomMap   string
	CreatedBy   pgtype.UUID
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type Lead struct {
	ID           pgtype.UUID
	FirstName    string
	LastName     string
	Name         string
	Email        string
	Phone        string
	Company      string
	City         string
	State        string
	Zipcode      string
	BankName     string
	DateCaptured string
	TimeCaptured string
	Status       string
	Source       string
	Notes        string
	ExtraData    string
	WorkspaceID  pgtype.UUID
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type LeadAssignment struct {
	ID            pgtype.UUID
	LeadID        pgtype.UUID
	UserID        pgtype.UUID
	AssignedBy    pgtype.UUID
	IsActive      bool
	AssignedAt    pgtype.Timestamptz
	DeactivatedAt pgtype.Timestamptz
}

type LeadCustomField struct {
	ID       pgtype.UUID
	LeadID   pgtype.UUID
	HeaderID pgtype.UUID
	Value    string
}

type User struct {
	ID           pgtype.UUID
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    pgtype.Timestamptz
}

type Workspace struct {
	ID                     pgtype.UUID
	Name                   string
	Description            string
	IsActive               bool
	CreatedBy              pgtype.UUID
	CreatedAt              pgtype.Timestamptz
	UpdatedAt              pgtype.Timestamptz
	DefaultHeaderMappingID pgtype.UUID
}

type WorkspaceHeader struct {
	ID          pgtype.UUID
	WorkspaceID pgtype.UUID
	HeaderName  string
	FieldKey    string
	IsDefault   bool
	FieldType   string
	Options     pgtype.Text
	IsRequired  bool
	Position    int32
}
