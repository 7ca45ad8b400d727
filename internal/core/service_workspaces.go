package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/leads/internal/database"
)

// DefaultHeaderFields seed the headers of every new workspace.
var DefaultHeaderFields = []LeadField{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldCity,
	FieldState,
	FieldStatus,
	FieldBankName,
	FieldDateCaptured,
}

// DefaultWorkspaceName is the workspace created at bootstrap.
const DefaultWorkspaceName = "Default"

// WorkspaceInput creates or updates a workspace.
type WorkspaceInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	IsActive    *bool  `json:"is_active"`
	// DefaultHeaderMappingID is applied by UpdateWorkspace only; "" clears it.
	DefaultHeaderMappingID string `json:"default_header_mapping_id" validate:"omitempty,uuid"`
}

// WorkspaceDetail is a workspace with its ordered headers.
type WorkspaceDetail struct {
	Workspace
	Headers   []WorkspaceHeader `json:"headers"`
	LeadCount int64             `json:"lead_count"`
}

// ListWorkspaces returns all workspaces by name.
func (s *Service) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	rows, err := db.New(s.pool).ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	out := make([]Workspace, len(rows))
	for i, r := range rows {
		out[i] = workspaceFromRow(r)
	}
	return out, nil
}

// GetWorkspace returns a workspace with its headers and lead count.
func (s *Service) GetWorkspace(ctx context.Context, id string) (*WorkspaceDetail, error) {
	wid, err := parseID("workspace", id)
	if err != nil {
		return nil, err
	}
	q := db.New(s.pool)

	row, err := q.GetWorkspace(ctx, wid)
	if err != nil {
		return nil, notFound("workspace", err)
	}
	headers, err := listHeaders(ctx, q, wid)
	if err != nil {
		return nil, err
	}
	count, err := q.CountLeadsInWorkspace(ctx, wid)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	return &WorkspaceDetail{Workspace: workspaceFromRow(row), Headers: headers, LeadCount: count}, nil
}

// CreateWorkspace creates a workspace seeded with the default headers.
func (s *Service) CreateWorkspace(ctx context.Context, in WorkspaceInput) (*WorkspaceDetail, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "workspace name is required")
	}
	active := in.IsActive == nil || *in.IsActive

	var out WorkspaceDetail
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		if err := ensureWorkspaceNameFree(ctx, q, name, pgtype.UUID{}); err != nil {
			return err
		}

		row, err := q.CreateWorkspace(ctx, db.CreateWorkspaceParams{
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			IsActive:    active,
			CreatedBy:   actorUUID(ctx),
		})
		if err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}

		headers, err := seedDefaultHeaders(ctx, q, row.ID)
		if err != nil {
			return err
		}
		out = WorkspaceDetail{Workspace: workspaceFromRow(row), Headers: headers}

		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionWorkspaceCreate,
			Entity:       "workspace",
			EntityID:     out.ID,
			RowsAffected: 1,
			Detail:       map[string]any{"name": name},
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func seedDefaultHeaders(ctx context.Context, q *db.Queries, workspaceID pgtype.UUID) ([]WorkspaceHeader, error) {
	out := make([]WorkspaceHeader, 0, len(DefaultHeaderFields))
	for i, f := range DefaultHeaderFields {
		h, err := q.CreateWorkspaceHeader(ctx, db.CreateWorkspaceHeaderParams{
			WorkspaceID: workspaceID,
			HeaderName:  f.Label(),
			FieldKey:    string(f),
			IsDefault:   true,
			FieldType:   FieldTypeText,
			Position:    int32(i),
		})
		if err != nil {
			return nil, fmt.Errorf("seed header %s: %w", f, err)
		}
		out = append(out, headerFromRow(h))
	}
	return out, nil
}

func ensureWorkspaceNameFree(ctx context.Context, q *db.Queries, name string, self pgtype.UUID) error {
	existing, err := q.GetWorkspaceByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check workspace name: %w", err)
	}
	if existing.ID == self {
		return nil
	}
	return invalid("name", fmt.Sprintf("a workspace named %q already exists", name))
}

// UpdateWorkspace changes the name, description, active flag and default
// header mapping of a workspace.
func (s *Service) UpdateWorkspace(ctx context.Context, id string, in WorkspaceInput) (*Workspace, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	wid, err := parseID("workspace", id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "workspace name is required")
	}

	var mappingID pgtype.UUID
	if in.DefaultHeaderMappingID != "" {
		if mappingID, err = parseID("mapping", in.DefaultHeaderMappingID); err != nil {
			return nil, err
		}
	}

	var out Workspace
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		current, err := q.GetWorkspaceForUpdate(ctx, wid)
		if err != nil {
			return notFound("workspace", err)
		}
		if err := ensureWorkspaceNameFree(ctx, q, name, wid); err != nil {
			return err
		}

		if mappingID.Valid {
			m, err := q.GetHeaderMapping(ctx, mappingID)
			if err != nil {
				return notFound("header mapping", err)
			}
			if m.WorkspaceID.Valid && m.WorkspaceID != wid {
				return invalid("default_header_mapping_id", "mapping belongs to another workspace")
			}
		}

		active := current.IsActive
		if in.IsActive != nil {
			active = *in.IsActive
		}
		row, err := q.UpdateWorkspace(ctx, db.UpdateWorkspaceParams{
			ID:          wid,
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			IsActive:    active,
		})
		if err != nil {
			return fmt.Errorf("update workspace: %w", err)
		}
		if err := q.SetWorkspaceDefaultMapping(ctx, db.SetWorkspaceDefaultMappingParams{
			ID:                     wid,
			DefaultHeaderMappingID: mappingID,
		}); err != nil {
			return fmt.Errorf("set default mapping: %w", err)
		}
		row.DefaultHeaderMappingID = mappingID
		out = workspaceFromRow(row)

		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionWorkspaceUpdate,
			Entity:       "workspace",
			EntityID:     id,
			RowsAffected: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateMappings(ctx)
	return &out, nil
}

// DeleteWorkspace removes an empty workspace with its headers and scoped
// mappings. A workspace that still owns leads is never deleted; the call
// returns *WorkspaceNotEmptyError and changes nothing.
func (s *Service) DeleteWorkspace(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	wid, err := parseID("workspace", id)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		ws, err := q.GetWorkspaceForUpdate(ctx, wid)
		if err != nil {
			return notFound("workspace", err)
		}

		count, err := q.CountLeadsInWorkspace(ctx, wid)
		if err != nil {
			return fmt.Errorf("count leads: %w", err)
		}
		if count > 0 {
			return &WorkspaceNotEmptyError{Count: count}
		}

		if _, err := q.DeleteWorkspace(ctx, wid); err != nil {
			return fmt.Errorf("delete workspace: %w", err)
		}
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionWorkspaceDelete,
			Entity:       "workspace",
			EntityID:     id,
			RowsAffected: 1,
			Detail:       map[string]any{"name": ws.Name},
		})
	})
	if err != nil {
		return err
	}

	s.invalidateMappings(ctx)
	return nil
}

// ListHeaders returns a workspace's headers in order.
func (s *Service) ListHeaders(ctx context.Context, workspaceID string) ([]WorkspaceHeader, error) {
	wid, err := parseID("workspace", workspaceID)
	if err != nil {
		return nil, err
	}
	return listHeaders(ctx, db.New(s.pool), wid)
}

func listHeaders(ctx context.Context, q *db.Queries, wid pgtype.UUID) ([]WorkspaceHeader, error) {
	rows, err := q.ListWorkspaceHeaders(ctx, wid)
	if err != nil {
		return nil, fmt.Errorf("list headers: %w", err)
	}
	out := make([]WorkspaceHeader, len(rows))
	for i, r := range rows {
		out[i] = headerFromRow(r)
	}
	return out, nil
}

// ReplaceHeaders rewrites the ordered header list of a workspace in one
// transaction. Headers whose name (case-insensitive) is kept retain their
// id and so their stored custom values; the rest are removed.
func (s *Service) ReplaceHeaders(ctx context.Context, workspaceID string, inputs []HeaderInput) ([]WorkspaceHeader, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	wid, err := parseID("workspace", workspaceID)
	if err != nil {
		return nil, err
	}
	specs, err := prepareHeaders(inputs)
	if err != nil {
		return nil, err
	}

	var out []WorkspaceHeader
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		if _, err := q.GetWorkspaceForUpdate(ctx, wid); err != nil {
			return notFound("workspace", err)
		}

		existing, err := q.ListWorkspaceHeaders(ctx, wid)
		if err != nil {
			return fmt.Errorf("list headers: %w", err)
		}
		byName := make(map[string]db.WorkspaceHeader, len(existing))
		for _, h := range existing {
			byName[strings.ToLower(h.HeaderName)] = h
		}

		keep := make(map[pgtype.UUID]bool)
		for _, spec := range specs {
			if h, ok := byName[strings.ToLower(spec.HeaderName)]; ok {
				keep[h.ID] = true
			}
		}
		for _, h := range existing {
			if !keep[h.ID] {
				if err := q.DeleteWorkspaceHeader(ctx, h.ID); err != nil {
					return fmt.Errorf("delete header %s: %w", h.HeaderName, err)
				}
			}
		}

		out = make([]WorkspaceHeader, 0, len(specs))
		for i, spec := range specs {
			spec.WorkspaceID = wid
			spec.Position = int32(i)

			var row db.WorkspaceHeader
			if h, ok := byName[strings.ToLower(spec.HeaderName)]; ok {
				row, err = q.UpdateWorkspaceHeader(ctx, db.UpdateWorkspaceHeaderParams{
					ID:         h.ID,
					HeaderName: spec.HeaderName,
					FieldKey:   spec.FieldKey,
					IsDefault:  spec.IsDefault,
					FieldType:  spec.FieldType,
					Options:    spec.Options,
					IsRequired: spec.IsRequired,
					Position:   spec.Position,
				})
			} else {
				row, err = q.CreateWorkspaceHeader(ctx, spec)
			}
			if err != nil {
				return fmt.Errorf("save header %s: %w", spec.HeaderName, err)
			}
			out = append(out, headerFromRow(row))
		}

		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionHeadersReplace,
			Entity:       "workspace",
			EntityID:     workspaceID,
			RowsAffected: len(out),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// prepareHeaders validates header inputs and converts them to row params.
// Headers naming a built-in field or export key are default headers; all
// others are custom fields with a type.
func prepareHeaders(inputs []HeaderInput) ([]db.CreateWorkspaceHeaderParams, error) {
	if len(inputs) == 0 {
		return nil, invalid("headers", "at least one header is required")
	}

	seen := make(map[string]bool, len(inputs))
	out := make([]db.CreateWorkspaceHeaderParams, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, invalid("headers", "header name is required")
		}
		if seen[strings.ToLower(name)] {
			return nil, invalid("headers", fmt.Sprintf("duplicate header %q", name))
		}
		seen[strings.ToLower(name)] = true

		p := db.CreateWorkspaceHeaderParams{HeaderName: name, IsRequired: in.IsRequired}

		if key := strings.TrimSpace(in.FieldKey); key != "" {
			if !isExportKey(key) {
				return nil, invalid(name, fmt.Sprintf("unknown field %q", key))
			}
			p.FieldKey = key
			p.IsDefault = true
			p.FieldType = FieldTypeText
			out = append(out, p)
			continue
		}

		p.FieldType = strings.ToLower(strings.TrimSpace(in.FieldType))
		if p.FieldType == "" {
			p.FieldType = FieldTypeText
		}
		if !fieldTypes[p.FieldType] {
			return nil, invalid(name, fmt.Sprintf("unknown field type %q", in.FieldType))
		}
		if p.FieldType == FieldTypeSelect {
			opts := ParseSelectOptions(in.Options)
			if len(opts) == 0 {
				return nil, invalid(name, "select fields need at least one option")
			}
			p.Options = optionsText(opts)
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseSelectOptions splits newline-delimited option text, trimming each
// line and dropping blanks.
func ParseSelectOptions(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if v := strings.TrimSpace(line); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optionsText(opts []string) pgtype.Text {
	b, _ := json.Marshal(opts)
	return pgtype.Text{String: string(b), Valid: true}
}

func workspaceFromRow(r db.Workspace) Workspace {
	return Workspace{
		ID:                     PgUUIDToString(r.ID),
		Name:                   r.Name,
		Description:            r.Description,
		IsActive:               r.IsActive,
		DefaultHeaderMappingID: PgUUIDToString(r.DefaultHeaderMappingID),
		CreatedAt:              pgTime(r.CreatedAt),
		UpdatedAt:              pgTime(r.UpdatedAt),
	}
}

func headerFromRow(r db.WorkspaceHeader) WorkspaceHeader {
	h := WorkspaceHeader{
		ID:          PgUUIDToString(r.ID),
		WorkspaceID: PgUUIDToString(r.WorkspaceID),
		Name:        r.HeaderName,
		FieldKey:    r.FieldKey,
		IsDefault:   r.IsDefault,
		FieldType:   r.FieldType,
		IsRequired:  r.IsRequired,
		Position:    int(r.Position),
	}
	if r.Options.Valid && r.Options.String != "" {
		_ = json.Unmarshal([]byte(r.Options.String), &h.Options)
	}
	return h
}
