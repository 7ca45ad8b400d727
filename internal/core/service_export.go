package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"

	db "github.com/JonMunkholm/leads/internal/database"
	"github.com/JonMunkholm/leads/internal/logging"
)

// Export types accepted by ExportLeads.
const (
	ExportAll        = "all"
	ExportAssigned   = "assigned"
	ExportUnassigned = "unassigned"
)

// ExportOptions selects leads for the global export.
type ExportOptions struct {
	Type   string `json:"type" validate:"omitempty,oneof=all assigned unassigned"`
	Status string `json:"status"`
	// UserID narrows an assigned export to one user.
	UserID string `json:"user_id" validate:"omitempty,uuid"`
}

// ExportFile is a rendered-on-demand export.
type ExportFile struct {
	Filename string
	Columns  []ExportColumn
	Rows     []ExportRow
}

// WriteCSV renders the export to w.
func (f *ExportFile) WriteCSV(w io.Writer) error {
	return FormatCSV(w, f.Columns, f.Rows)
}

// ExportWorkspace exports one workspace's leads using its headers. The
// filter narrows the listing like ListLeads, without pagination.
func (s *Service) ExportWorkspace(ctx context.Context, workspaceID string, f LeadFilter) (*ExportFile, error) {
	wid, err := parseID("workspace", workspaceID)
	if err != nil {
		return nil, err
	}
	q := db.New(s.pool)

	ws, err := q.GetWorkspace(ctx, wid)
	if err != nil {
		return nil, notFound("workspace", err)
	}
	headers, err := listHeaders(ctx, q, wid)
	if err != nil {
		return nil, err
	}

	f.WorkspaceID = workspaceID
	wb, err := leadWhere(ctx, f)
	if err != nil {
		return nil, err
	}
	leads, err := s.selectExportLeads(ctx, wb)
	if err != nil {
		return nil, err
	}

	cols := WorkspaceExportColumns(headers)
	if len(cols) == 0 {
		cols = DefaultExportColumns()
	}
	return s.buildExport(ctx, "workspace", ws.Name, cols, leads)
}

// ExportSelection exports the chosen leads. A selection spanning more than
// one workspace, with "no workspace" counting as its own, is rejected with
// ErrMixedWorkspaces. A single-workspace selection uses that workspace's
// headers.
func (s *Service) ExportSelection(ctx context.Context, leadIDs []string) (*ExportFile, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if len(leadIDs) == 0 {
		return nil, invalid("lead_ids", "no leads selected")
	}
	ids, err := parseIDs("lead", leadIDs)
	if err != nil {
		return nil, err
	}
	q := db.New(s.pool)

	leads, err := q.ListLeadsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	if len(leads) == 0 {
		return nil, fmt.Errorf("leads %w", ErrNotFound)
	}

	ws, err := selectionWorkspace(leads)
	if err != nil {
		return nil, err
	}

	if !ws.Valid {
		return s.buildExport(ctx, "selection", "leads", DefaultExportColumns(), leads)
	}

	row, err := q.GetWorkspace(ctx, ws)
	if err != nil {
		return nil, notFound("workspace", err)
	}
	headers, err := listHeaders(ctx, q, ws)
	if err != nil {
		return nil, err
	}
	cols := WorkspaceExportColumns(headers)
	if len(cols) == 0 {
		cols = DefaultExportColumns()
	}
	return s.buildExport(ctx, "selection", row.Name, cols, leads)
}

// selectionWorkspace returns the one workspace shared by leads, invalid
// when they have none.
func selectionWorkspace(leads []db.Lead) (pgtype.UUID, error) {
	first := leads[0].WorkspaceID
	for _, l := range leads[1:] {
		if l.WorkspaceID != first {
			return pgtype.UUID{}, ErrMixedWorkspaces
		}
	}
	return first, nil
}

// ExportLeads is the global export with the default columns. Non-admin
// callers only export leads actively assigned to them.
func (s *Service) ExportLeads(ctx context.Context, opts ExportOptions) (*ExportFile, error) {
	f := LeadFilter{Status: opts.Status}

	var anyAssignee bool
	switch strings.ToLower(strings.TrimSpace(opts.Type)) {
	case "", ExportAll:
	case ExportAssigned:
		if opts.UserID != "" {
			f.AssignedTo = opts.UserID
		} else {
			anyAssignee = true
		}
	case ExportUnassigned:
		f.AssignedTo = UnassignedFilter
	default:
		return nil, invalid("type", fmt.Sprintf("unknown export type %q", opts.Type))
	}

	wb, err := leadWhere(ctx, f)
	if err != nil {
		return nil, err
	}
	if anyAssignee {
		wb.AddCondition("EXISTS (SELECT 1 FROM lead_assignments la WHERE la.lead_id = leads.id AND la.is_active)")
	}

	leads, err := s.selectExportLeads(ctx, wb)
	if err != nil {
		return nil, err
	}
	return s.buildExport(ctx, "leads", "leads", DefaultExportColumns(), leads)
}

func (s *Service) selectExportLeads(ctx context.Context, wb *WhereBuilder) ([]db.Lead, error) {
	where, args := wb.Build()
	return s.queryLeads(ctx, "SELECT "+db.LeadColumns+" FROM leads"+where+" ORDER BY created_at, id", args...)
}

// buildExport loads the relations of leads concurrently and assembles the
// export.
func (s *Service) buildExport(ctx context.Context, kind, entity string, cols []ExportColumn, leads []db.Lead) (*ExportFile, error) {
	rows, err := s.exportRows(ctx, leads)
	if err != nil {
		return nil, err
	}

	file := &ExportFile{
		Filename: ExportFilename(entity, s.now()),
		Columns:  cols,
		Rows:     rows,
	}

	logging.WithFields(ctx, "export", kind, "rows", len(rows)).Info("export prepared", "filename", file.Filename)
	s.metrics.ObserveExport(kind, len(rows))
	s.recordAudit(ctx, AuditLogParams{
		Action:       ActionLeadExport,
		Entity:       "lead",
		RowsAffected: len(rows),
		Detail:       map[string]any{"kind": kind, "filename": file.Filename},
	})
	s.publish(ctx, EventLeadsExported, map[string]any{"kind": kind, "rows": len(rows)})
	return file, nil
}

func (s *Service) exportRows(ctx context.Context, leads []db.Lead) ([]ExportRow, error) {
	rows := make([]ExportRow, len(leads))
	if len(leads) == 0 {
		return rows, nil
	}

	ids := make([]pgtype.UUID, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
		rows[i].Lead = leadFromRow(l)
	}

	var (
		assignees  []db.ListActiveAssigneesRow
		custom     []db.LeadCustomField
		workspaces []db.Workspace
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if assignees, err = db.New(s.pool).ListActiveAssignees(gctx, ids); err != nil {
			return fmt.Errorf("list assignees: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if custom, err = db.New(s.pool).ListLeadCustomFields(gctx, ids); err != nil {
			return fmt.Errorf("list custom values: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if workspaces, err = db.New(s.pool).ListWorkspaces(gctx); err != nil {
			return fmt.Errorf("list workspaces: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byLead := make(map[string]int, len(rows))
	for i := range rows {
		byLead[rows[i].Lead.ID] = i
	}
	for _, a := range assignees {
		if i, ok := byLead[PgUUIDToString(a.LeadID)]; ok {
			name := a.Username
			rows[i].AssignedTo = &name
		}
	}
	for _, c := range custom {
		if i, ok := byLead[PgUUIDToString(c.LeadID)]; ok {
			rows[i].Custom = append(rows[i].Custom, CustomValue{HeaderID: PgUUIDToString(c.HeaderID), Value: c.Value})
		}
	}
	names := make(map[string]string, len(workspaces))
	for _, w := range workspaces {
		names[PgUUIDToString(w.ID)] = w.Name
	}
	for i := range rows {
		if name, ok := names[rows[i].Lead.WorkspaceID]; ok {
			rows[i].WorkspaceName = &name
		}
	}
	return rows, nil
}
