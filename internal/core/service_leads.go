package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/leads/internal/database"
)

// Page size bounds for ListLeads.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// UnassignedFilter selects leads without an active assignment. "0" is
// accepted as an alias.
const UnassignedFilter = "unassigned"

// LeadInput is the writable part of a lead.
type LeadInput struct {
	FirstName    string     `json:"first_name" validate:"max=200"`
	LastName     string     `json:"last_name" validate:"max=200"`
	Name         string     `json:"name" validate:"max=400"`
	Email        string     `json:"email" validate:"omitempty,email,max=320"`
	Phone        string     `json:"phone" validate:"max=50"`
	Company      string     `json:"company" validate:"max=200"`
	City         string     `json:"city" validate:"max=200"`
	State        string     `json:"state" validate:"max=100"`
	Zipcode      string     `json:"zipcode" validate:"max=20"`
	BankName     string     `json:"bank_name" validate:"max=200"`
	DateCaptured string     `json:"date_captured" validate:"max=50"`
	TimeCaptured string     `json:"time_captured" validate:"max=50"`
	Status       string     `json:"status" validate:"max=50"`
	Source       string     `json:"source" validate:"max=200"`
	Notes        string     `json:"notes"`
	Extra        *ExtraData `json:"extra_data"`
	WorkspaceID  string     `json:"workspace_id" validate:"omitempty,uuid"`
}

func (in LeadInput) lead() Lead {
	l := Lead{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Company:      strings.TrimSpace(in.Company),
		City:         strings.TrimSpace(in.City),
		State:        strings.TrimSpace(in.State),
		Zipcode:      strings.TrimSpace(in.Zipcode),
		BankName:     strings.TrimSpace(in.BankName),
		DateCaptured: strings.TrimSpace(in.DateCaptured),
		TimeCaptured: strings.TrimSpace(in.TimeCaptured),
		Status:       in.Status,
		Source:       strings.TrimSpace(in.Source),
		Notes:        in.Notes,
		WorkspaceID:  strings.TrimSpace(in.WorkspaceID),
	}
	if in.Extra != nil {
		l.Extra = *in.Extra
	}
	normalizeLead(&l)
	return l
}

// LeadSummary is a lead with its current assignee.
type LeadSummary struct {
	Lead
	AssignedUserID string `json:"assigned_user_id,omitempty"`
	AssignedTo     string `json:"assigned_to,omitempty"`
}

// LeadDetail is a lead with its assignee and custom field values.
type LeadDetail struct {
	LeadSummary
	Custom []CustomValue `json:"custom"`
}

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	WorkspaceID string
	Status      string
	// AssignedTo is a user id, or UnassignedFilter.
	AssignedTo string
	// From and To bound created_at; MM/DD/YYYY or YYYY-MM-DD, To inclusive.
	From   string
	To     string
	Search string

	Page     int
	PageSize int
}

// LeadPage is one page of ListLeads.
type LeadPage struct {
	Leads      []LeadSummary `json:"leads"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// searchColumns are matched by a free-text search.
var searchColumns = []string{"name", "first_name", "last_name", "email", "phone", "company", "status", "source"}

var searchColumnPattern = regexp.MustCompile(`^[a-z0-9_ ]+$`)

// parseSearch splits "column:value" searches. Anything else is free text
// and column is "".
func parseSearch(q string) (column, term string) {
	q = strings.TrimSpace(q)
	col, val, ok := strings.Cut(q, ":")
	if !ok {
		return "", q
	}
	col = strings.ToLower(strings.TrimSpace(col))
	val = strings.TrimSpace(val)
	if col == "" || val == "" || !searchColumnPattern.MatchString(col) {
		return "", q
	}
	return col, val
}

const activeAssigneeCondition = "EXISTS (SELECT 1 FROM lead_assignments la WHERE la.lead_id = leads.id AND la.is_active AND la.user_id = ?)"

// leadWhere translates a filter and the caller's scope to SQL.
func leadWhere(ctx context.Context, f LeadFilter) (*WhereBuilder, error) {
	wb := NewWhereBuilder()

	if f.WorkspaceID != "" {
		id, err := parseID("workspace", f.WorkspaceID)
		if err != nil {
			return nil, err
		}
		wb.Add("workspace_id", id)
	}
	wb.Add("status", strings.TrimSpace(f.Status))

	switch a := strings.TrimSpace(f.AssignedTo); strings.ToLower(a) {
	case "":
	case UnassignedFilter, "0":
		wb.AddCondition("NOT EXISTS (SELECT 1 FROM lead_assignments la WHERE la.lead_id = leads.id AND la.is_active)")
	default:
		id, err := parseID("user", a)
		if err != nil {
			return nil, err
		}
		wb.AddCondition(activeAssigneeCondition, id)
	}

	if uid := scopedUserID(ctx); uid != "" {
		wb.AddCondition(activeAssigneeCondition, ToPgUUID(uid))
	}

	var from, to *time.Time
	if f.From != "" {
		t, ok := ParseFilterDate(f.From, false)
		if !ok {
			return nil, invalid("from", "invalid date "+f.From)
		}
		from = &t
	}
	if f.To != "" {
		t, ok := ParseFilterDate(f.To, true)
		if !ok {
			return nil, invalid("to", "invalid date "+f.To)
		}
		to = &t
	}
	wb.AddTimestampRange("created_at", from, to)

	if col, term := parseSearch(f.Search); col == "" {
		wb.AddSearch(term, searchColumns)
	} else if f, ok := LookupField(strings.ReplaceAll(col, " ", "_")); ok {
		wb.AddSearch(term, []string{string(f)})
	} else {
		wb.AddCondition(
			"EXISTS (SELECT 1 FROM jsonb_each_text(leads.extra_data::jsonb) e WHERE lower(e.key) = ? AND e.value ILIKE ?)",
			col, "%"+escapeLike(term)+"%",
		)
	}
	return wb, nil
}

func pageBounds(page, size int) (int, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return page, size
}

// ListLeads returns one page of leads, newest first. Non-admin callers only
// see leads actively assigned to them.
func (s *Service) ListLeads(ctx context.Context, f LeadFilter) (*LeadPage, error) {
	wb, err := leadWhere(ctx, f)
	if err != nil {
		return nil, err
	}
	where, args := wb.Build()

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	page, size := pageBounds(f.Page, f.PageSize)
	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages < 1 {
		totalPages = 1
	}

	n := wb.NextArgIndex()
	query := fmt.Sprintf("SELECT %s FROM leads%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		db.LeadColumns, where, n, n+1)
	rows, err := s.queryLeads(ctx, query, append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, err
	}

	summaries, err := s.withAssignees(ctx, rows)
	if err != nil {
		return nil, err
	}

	return &LeadPage{
		Leads:      summaries,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) queryLeads(ctx context.Context, query string, args ...any) ([]db.Lead, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var out []db.Lead
	for rows.Next() {
		l, err := db.ScanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return out, nil
}

// withAssignees converts rows and attaches each lead's active assignee.
func (s *Service) withAssignees(ctx context.Context, rows []db.Lead) ([]LeadSummary, error) {
	out := make([]LeadSummary, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]pgtype.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		out[i].Lead = leadFromRow(r)
	}

	assignees, err := db.New(s.pool).ListActiveAssignees(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	byLead := make(map[string]db.ListActiveAssigneesRow, len(assignees))
	for _, a := range assignees {
		byLead[PgUUIDToString(a.LeadID)] = a
	}
	for i := range out {
		if a, ok := byLead[out[i].ID]; ok {
			out[i].AssignedUserID = PgUUIDToString(a.UserID)
			out[i].AssignedTo = a.Username
		}
	}
	return out, nil
}

// GetLead returns a lead with its assignee and custom values.
func (s *Service) GetLead(ctx context.Context, id string) (*LeadDetail, error) {
	leadID, err := parseID("lead", id)
	if err != nil {
		return nil, err
	}
	q := db.New(s.pool)

	row, err := q.GetLead(ctx, leadID)
	if err != nil {
		return nil, notFound("lead", err)
	}

	summaries, err := s.withAssignees(ctx, []db.Lead{row})
	if err != nil {
		return nil, err
	}
	if err := checkLeadAccess(ctx, summaries[0]); err != nil {
		return nil, err
	}

	custom, err := q.ListLeadCustomFields(ctx, []pgtype.UUID{leadID})
	if err != nil {
		return nil, fmt.Errorf("list custom values: %w", err)
	}
	detail := &LeadDetail{LeadSummary: summaries[0], Custom: make([]CustomValue, 0, len(custom))}
	for _, c := range custom {
		detail.Custom = append(detail.Custom, CustomValue{HeaderID: PgUUIDToString(c.HeaderID), Value: c.Value})
	}
	return detail, nil
}

// checkLeadAccess lets admins see every lead and users only their own.
func checkLeadAccess(ctx context.Context, l LeadSummary) error {
	if uid := scopedUserID(ctx); uid != "" && l.AssignedUserID != uid {
		return ErrForbidden
	}
	return nil
}

// CreateLead stores a new lead.
func (s *Service) CreateLead(ctx context.Context, in LeadInput) (*Lead, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	l := in.lead()
	params, err := createLeadParams(&l)
	if err != nil {
		return nil, err
	}

	row, err := db.New(s.pool).CreateLead(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	created := leadFromRow(row)

	s.recordAudit(ctx, AuditLogParams{Action: ActionLeadCreate, Entity: "lead", EntityID: created.ID, RowsAffected: 1})
	return &created, nil
}

// UpdateLead replaces the writable fields of a lead. Extension data is kept
// when the input carries none. Moving a lead to another workspace drops
// its custom values. Users may edit leads assigned to them but
// only admins may move a lead between workspaces.
func (s *Service) UpdateLead(ctx context.Context, id string, in LeadInput) (*Lead, error) {
	leadID, err := parseID("lead", id)
	if err != nil {
		return nil, err
	}

	var updated Lead
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		current, err := q.GetLead(ctx, leadID)
		if err != nil {
			return notFound("lead", err)
		}

		if uid := scopedUserID(ctx); uid != "" {
			if err := requireAssignee(ctx, q, leadID, uid); err != nil {
				return err
			}
			if in.WorkspaceID != PgUUIDToString(current.WorkspaceID) {
				return ErrForbidden
			}
		}

		l := in.lead()
		if in.Extra == nil {
			if l.Extra, err = ParseExtraData(current.ExtraData); err != nil {
				return err
			}
		}
		p, err := createLeadParams(&l)
		if err != nil {
			return err
		}
		row, err := q.UpdateLead(ctx, updateLeadParams(leadID, p))
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		updated = leadFromRow(row)

		// Custom values belong to the old workspace's headers.
		if movesWorkspace(current.WorkspaceID, p.WorkspaceID) {
			if _, err := q.DeleteLeadCustomFields(ctx, leadID); err != nil {
				return fmt.Errorf("clear custom values: %w", err)
			}
		}
		return s.LogAudit(ctx, tx, AuditLogParams{Action: ActionLeadUpdate, Entity: "lead", EntityID: updated.ID, RowsAffected: 1})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func requireAssignee(ctx context.Context, q *db.Queries, leadID pgtype.UUID, userID string) error {
	assignees, err := q.ListActiveAssignees(ctx, []pgtype.UUID{leadID})
	if err != nil {
		return fmt.Errorf("list assignees: %w", err)
	}
	for _, a := range assignees {
		if PgUUIDToString(a.UserID) == userID {
			return nil
		}
	}
	return ErrForbidden
}

// DeleteLead removes one lead with its assignments and custom values.
func (s *Service) DeleteLead(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	leadID, err := parseID("lead", id)
	if err != nil {
		return err
	}

	n, err := db.New(s.pool).DeleteLead(ctx, leadID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lead %w", ErrNotFound)
	}

	s.recordAudit(ctx, AuditLogParams{Action: ActionLeadDelete, Entity: "lead", EntityID: id, RowsAffected: 1})
	s.publish(ctx, EventLeadsDeleted, map[string]any{"lead_ids": []string{id}})
	return nil
}

// BulkDeleteLeads removes the given leads and returns how many existed.
func (s *Service) BulkDeleteLeads(ctx context.Context, ids []string) (int64, error) {
	if err := requireAdmin(ctx); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, invalid("lead_ids", "no leads selected")
	}
	leadIDs, err := parseIDs("lead", ids)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if n, err = db.New(tx).DeleteLeads(ctx, leadIDs); err != nil {
			return fmt.Errorf("delete leads: %w", err)
		}
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionLeadBulkDelete,
			Entity:       "lead",
			RowsAffected: int(n),
			Detail:       map[string]any{"requested": len(leadIDs)},
		})
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, EventLeadsDeleted, map[string]any{"lead_ids": ids, "deleted": n})
	return n, nil
}

// SetLeadCustomValue stores the value of one workspace custom field on a
// lead. The value is checked against the field type; an empty value clears
// it unless the field is required.
func (s *Service) SetLeadCustomValue(ctx context.Context, leadID, headerID, value string) error {
	lid, err := parseID("lead", leadID)
	if err != nil {
		return err
	}
	hid, err := parseID("header", headerID)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		lead, err := q.GetLead(ctx, lid)
		if err != nil {
			return notFound("lead", err)
		}
		if uid := scopedUserID(ctx); uid != "" {
			if err := requireAssignee(ctx, q, lid, uid); err != nil {
				return err
			}
		}
		if !lead.WorkspaceID.Valid {
			return invalid("lead", "lead has no workspace")
		}

		headers, err := q.ListWorkspaceHeaders(ctx, lead.WorkspaceID)
		if err != nil {
			return fmt.Errorf("list headers: %w", err)
		}
		var header *WorkspaceHeader
		for _, h := range headers {
			if h.ID == hid {
				wh := headerFromRow(h)
				header = &wh
				break
			}
		}
		if header == nil {
			return invalid("header", "header does not belong to the lead's workspace")
		}

		v, err := validateCustomValue(*header, value)
		if err != nil {
			return err
		}
		if err := q.UpsertLeadCustomField(ctx, db.UpsertLeadCustomFieldParams{LeadID: lid, HeaderID: hid, Value: v}); err != nil {
			return fmt.Errorf("save custom value: %w", err)
		}
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionLeadUpdate,
			Entity:       "lead",
			EntityID:     leadID,
			RowsAffected: 1,
			Detail:       map[string]any{"header": header.Name},
		})
	})
}

func movesWorkspace(from, to pgtype.UUID) bool {
	return from != to
}

// validateCustomValue checks v against the header's type and returns the
// value to store.
func validateCustomValue(h WorkspaceHeader, v string) (string, error) {
	v = strings.TrimSpace(v)
	if h.FieldKey != "" {
		return "", invalid(h.Name, "built-in fields are edited on the lead itself")
	}
	if v == "" {
		if h.IsRequired {
			return "", invalid(h.Name, "is required")
		}
		return "", nil
	}

	switch h.FieldType {
	case FieldTypeNumber:
		if !ToPgNumeric(v).Valid {
			return "", invalid(h.Name, "invalid number "+v)
		}
	case FieldTypeDate:
		if !ToPgDate(v).Valid {
			return "", invalid(h.Name, "invalid date "+v)
		}
	case FieldTypeCheckbox:
		b := ToPgBool(v)
		if !b.Valid {
			return "", invalid(h.Name, "invalid option "+v)
		}
		if b.Bool {
			return "true", nil
		}
		return "false", nil
	case FieldTypeSelect:
		for _, opt := range h.Options {
			if strings.EqualFold(opt, v) {
				return opt, nil
			}
		}
		return "", invalid(h.Name, "invalid option "+v)
	}
	return v, nil
}

func leadFromRow(row db.Lead) Lead {
	extra, _ := ParseExtraData(row.ExtraData)
	return Lead{
		ID:           PgUUIDToString(row.ID),
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Name:         row.Name,
		Email:        row.Email,
		Phone:        row.Phone,
		Company:      row.Company,
		City:         row.City,
		State:        row.State,
		Zipcode:      row.Zipcode,
		BankName:     row.BankName,
		DateCaptured: row.DateCaptured,
		TimeCaptured: row.TimeCaptured,
		Status:       row.Status,
		Source:       row.Source,
		Notes:        row.Notes,
		Extra:        extra,
		WorkspaceID:  PgUUIDToString(row.WorkspaceID),
		CreatedAt:    pgTime(row.CreatedAt),
		UpdatedAt:    pgTime(row.UpdatedAt),
	}
}

func createLeadParams(l *Lead) (db.CreateLeadParams, error) {
	var ws pgtype.UUID
	if l.WorkspaceID != "" {
		var err error
		if ws, err = parseID("workspace", l.WorkspaceID); err != nil {
			return db.CreateLeadParams{}, err
		}
	}
	status := l.Status
	if strings.TrimSpace(status) == "" {
		status = DefaultStatus
	}
	return db.CreateLeadParams{
		FirstName:    l.FirstName,
		LastName:     l.LastName,
		Name:         l.Name,
		Email:        l.Email,
		Phone:        l.Phone,
		Company:      l.Company,
		City:         l.City,
		State:        l.State,
		Zipcode:      l.Zipcode,
		BankName:     l.BankName,
		DateCaptured: l.DateCaptured,
		TimeCaptured: l.TimeCaptured,
		Status:       status,
		Source:       l.Source,
		Notes:        l.Notes,
		ExtraData:    l.Extra.String(),
		WorkspaceID:  ws,
	}, nil
}

func updateLeadParams(id pgtype.UUID, p db.CreateLeadParams) db.UpdateLeadParams {
	return db.UpdateLeadParams{
		ID:           id,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Company:      p.Company,
		City:         p.City,
		State:        p.State,
		Zipcode:      p.Zipcode,
		BankName:     p.BankName,
		DateCaptured: p.DateCaptured,
		TimeCaptured: p.TimeCaptured,
		Status:       p.Status,
		Source:       p.Source,
		Notes:        p.Notes,
		ExtraData:    p.ExtraData,
		WorkspaceID:  p.WorkspaceID,
	}
}
