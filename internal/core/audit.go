package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	db "github.com/JonMunkholm/leads/internal/database"
	"github.com/JonMunkholm/leads/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionLeadImport      AuditAction = "lead_import"
	ActionLeadCreate      AuditAction = "lead_create"
	ActionLeadUpdate      AuditAction = "lead_update"
	ActionLeadDelete      AuditAction = "lead_delete"
	ActionLeadBulkDelete  AuditAction = "lead_bulk_delete"
	ActionLeadAssign      AuditAction = "lead_assign"
	ActionLeadBulkAssign  AuditAction = "lead_bulk_assign"
	ActionLeadExport      AuditAction = "lead_export"
	ActionWorkspaceCreate AuditAction = "workspace_create"
	ActionWorkspaceUpdate AuditAction = "workspace_update"
	ActionWorkspaceDelete AuditAction = "workspace_delete"
	ActionHeadersReplace  AuditAction = "headers_replace"
	ActionMappingCreate   AuditAction = "mapping_create"
	ActionMappingUpdate   AuditAction = "mapping_update"
	ActionMappingDelete   AuditAction = "mapping_delete"
	ActionUserCreate      AuditAction = "user_create"
	ActionUserUpdate      AuditAction = "user_update"
	ActionUserDelete      AuditAction = "user_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// DefaultAuditLimit is the page size used when none is given.
const DefaultAuditLimit = 100

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	Severity     AuditSeverity  `json:"severity"`
	ActorID      string         `json:"actor_id,omitempty"`
	Entity       string         `json:"entity"`
	EntityID     string         `json:"entity_id,omitempty"`
	RowsAffected int            `json:"rows_affected,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// The actor, IP address and user agent are taken from the context.
type AuditLogParams struct {
	Action       AuditAction
	Entity       string
	EntityID     string
	RowsAffected int
	Detail       map[string]any
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionLeadImport, ActionLeadBulkDelete, ActionLeadBulkAssign, ActionHeadersReplace:
		return SeverityHigh
	case ActionWorkspaceDelete, ActionUserDelete:
		return SeverityCritical
	case ActionLeadExport, ActionMappingCreate, ActionMappingUpdate:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit writes an audit entry through q, so callers inside a
// transaction record it atomically with their change.
func (s *Service) LogAudit(ctx context.Context, q DBTX, params AuditLogParams) error {
	var detail []byte
	if params.Detail != nil {
		var err error
		detail, err = json.Marshal(params.Detail)
		if err != nil {
			return fmt.Errorf("encode audit detail: %w", err)
		}
	}

	actor, _ := ActorFromContext(ctx)
	err := db.New(q).InsertAuditLog(ctx, db.InsertAuditLogParams{
		Action:       string(params.Action),
		Severity:     string(determineSeverity(params.Action)),
		ActorID:      ToPgUUID(actor.ID),
		Entity:       params.Entity,
		EntityID:     params.EntityID,
		RowsAffected: int32(params.RowsAffected),
		Detail:       detail,
		IpAddress:    GetIPAddressFromContext(ctx),
		UserAgent:    GetUserAgentFromContext(ctx),
	})
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// recordAudit writes an entry outside any transaction. Failures are logged
// and do not fail the operation that already happened.
func (s *Service) recordAudit(ctx context.Context, params AuditLogParams) {
	if err := s.LogAudit(ctx, s.pool, params); err != nil {
		logging.FromContext(ctx).Warn("audit log write failed", "action", params.Action, "error", err)
	}
}

// GetAuditLog returns entries newest first.
func (s *Service) GetAuditLog(ctx context.Context, limit, offset int) ([]AuditEntry, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.New(s.pool).ListAuditLog(ctx, db.ListAuditLogParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dbAuditLogToEntry(row))
	}
	return entries, nil
}

func dbAuditLogToEntry(row db.AuditLog) AuditEntry {
	entry := AuditEntry{
		ID:           PgUUIDToString(row.ID),
		Action:       AuditAction(row.Action),
		Severity:     AuditSeverity(row.Severity),
		ActorID:      PgUUIDToString(row.ActorID),
		Entity:       row.Entity,
		EntityID:     row.EntityID,
		RowsAffected: int(row.RowsAffected),
		IPAddress:    row.IpAddress,
		UserAgent:    row.UserAgent,
		CreatedAt:    pgTime(row.CreatedAt),
	}
	if len(row.Detail) > 0 {
		_ = json.Unmarshal(row.Detail, &entry.Detail)
	}
	return entry
}
