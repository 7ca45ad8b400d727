package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// LeadColumns is the select list matching ScanLead, shared with the
// dynamically built listing queries.
const LeadColumns = `id, first_name, last_name, name, email, phone, company, city, state, zipcode,
	bank_name, date_captured, time_captured, status, source, notes, extra_data, workspace_id,
	created_at, updated_at`

// ScanLead scans one row selected with LeadColumns.
func ScanLead(row interface{ Scan(...any) error }) (Lead, error) {
	var i Lead
	err := row.Scan(
		&i.ID,
		&i.FirstName,
		&i.LastName,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Company,
		&i.City,
		&i.State,
		&i.Zipcode,
		&i.BankName,
		&i.DateCaptured,
		&i.TimeCaptured,
		&i.Status,
		&i.Source,
		&i.Notes,
		&i.ExtraData,
		&i.WorkspaceID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createLead = `-- name: CreateLead :one
INSERT INTO leads (
	first_name, last_name, name, email, phone, company, city, state, zipcode,
	bank_name, date_captured, time_captured, status, source, notes, extra_data, workspace_id
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
)
RETURNING ` + LeadColumns

type CreateLeadParams struct {
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
}

func (q *Queries) CreateLead(ctx context.Context, arg CreateLeadParams) (Lead, error) {
	row := q.db.QueryRow(ctx, createLead,
		arg.FirstName,
		arg.LastName,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.City,
		arg.State,
		arg.Zipcode,
		arg.BankName,
		arg.DateCaptured,
		arg.TimeCaptured,
		arg.Status,
		arg.Source,
		arg.Notes,
		arg.ExtraData,
		arg.WorkspaceID,
	)
	return ScanLead(row)
}

const deleteLead = `-- name: DeleteLead :execrows
DELETE FROM leads WHERE id = $1
`

func (q *Queries) DeleteLead(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteLead, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteLeads = `-- name: DeleteLeads :execrows
DELETE FROM leads WHERE id = ANY($1::uuid[])
`

func (q *Queries) DeleteLeads(ctx context.Context, ids []pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteLeads, ids)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLead = `-- name: GetLead :one
SELECT ` + LeadColumns + ` FROM leads WHERE id = $1
`

func (q *Queries) GetLead(ctx context.Context, id pgtype.UUID) (Lead, error) {
	return ScanLead(q.db.QueryRow(ctx, getLead, id))
}

const leadExists = `-- name: LeadExists :one
SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)
`

func (q *Queries) LeadExists(ctx context.Context, id pgtype.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, leadExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listLeadsByIDs = `-- name: ListLeadsByIDs :many
SELECT ` + LeadColumns + ` FROM leads WHERE id = ANY($1::uuid[]) ORDER BY created_at DESC, id
`

func (q *Queries) ListLeadsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Lead, error) {
	rows, err := q.db.Query(ctx, listLeadsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Lead
	for rows.Next() {
		i, err := ScanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLeadsInWorkspace = `-- name: ListLeadsInWorkspace :many
SELECT ` + LeadColumns + ` FROM leads WHERE workspace_id = $1 ORDER BY created_at DESC, id
`

func (q *Queries) ListLeadsInWorkspace(ctx context.Context, workspaceID pgtype.UUID) ([]Lead, error) {
	rows, err := q.db.Query(ctx, listLeadsInWorkspace, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Lead
	for rows.Next() {
		i, err := ScanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateLead = `-- name: UpdateLead :one
UPDATE leads SET
	first_name = $2, last_name = $3, name = $4, email = $5, phone = $6, company = $7,
	city = $8, state = $9, zipcode = $10, bank_name = $11, date_captured = $12,
	time_captured = $13, status = $14, source = $15, notes = $16, extra_data = $17,
	workspace_id = $18, updated_at = now()
WHERE id = $1
RETURNING ` + LeadColumns

type UpdateLeadParams struct {
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
}

func (q *Queries) UpdateLead(ctx context.Context, arg UpdateLeadParams) (Lead, error) {
	row := q.db.QueryRow(ctx, updateLead,
		arg.ID,
		arg.FirstName,
		arg.LastName,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Company,
		arg.City,
		arg.State,
		arg.Zipcode,
		arg.BankName,
		arg.DateCaptured,
		arg.TimeCaptured,
		arg.Status,
		arg.Source,
		arg.Notes,
		arg.ExtraData,
		arg.WorkspaceID,
	)
	return ScanLead(row)
}

const listLeadCustomFields = `-- name: ListLeadCustomFields :many
SELECT id, lead_id, header_id, value FROM lead_custom_fields WHERE lead_id = ANY($1::uuid[])
`

func (q *Queries) ListLeadCustomFields(ctx context.Context, leadIds []pgtype.UUID) ([]LeadCustomField, error) {
	rows, err := q.db.Query(ctx, listLeadCustomFields, leadIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LeadCustomField
	for rows.Next() {
		var i LeadCustomField
		if err := rows.Scan(
			&i.ID,
			&i.LeadID,
			&i.HeaderID,
			&i.Value,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteLeadCustomFields = `-- name: DeleteLeadCustomFields :execrows
DELETE FROM lead_custom_fields WHERE lead_id = $1
`

func (q *Queries) DeleteLeadCustomFields(ctx context.Context, leadID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteLeadCustomFields, leadID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const upsertLeadCustomField = `-- name: UpsertLeadCustomField :exec
INSERT INTO lead_custom_fields (lead_id, header_id, value)
VALUES ($1, $2, $3)
ON CONFLICT (lead_id, header_id) DO UPDATE SET value = EXCLUDED.value
`

type UpsertLeadCustomFieldParams struct {
	LeadID   pgtype.UUID
	HeaderID pgtype.UUID
	Value    string
}

func (q *Queries) UpsertLeadCustomField(ctx context.Context, arg UpsertLeadCustomFieldParams) error {
	_, err := q.db.Exec(ctx, upsertLeadCustomField, arg.LeadID, arg.HeaderID, arg.Value)
	return err
}

const lockLead = `-- name: LockLead :one
SELECT id FROM leads WHERE id = $1 FOR UPDATE
`

func (q *Queries) LockLead(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	row := q.db.QueryRow(ctx, lockLead, id)
	var i pgtype.UUID
	err := row.Scan(&i)
	return i, err
}
