package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLeadAssignment = `-- name: CreateLeadAssignment :one
INSERT INTO lead_assignments (lead_id, user_id, assigned_by, is_active)
VALUES ($1, $2, $3, true)
RETURNING id, lead_id, user_id, assigned_by, is_active, assigned_at, deactivated_at
`

type CreateLeadAssignmentParams struct {
	LeadID     pgtype.UUID
	UserID     pgtype.UUID
	AssignedBy pgtype.UUID
}

func (q *Queries) CreateLeadAssignment(ctx context.Context, arg CreateLeadAssignmentParams) (LeadAssignment, error) {
	row := q.db.QueryRow(ctx, createLeadAssignment, arg.LeadID, arg.UserID, arg.AssignedBy)
	var i LeadAssignment
	err := row.Scan(
		&i.ID,
		&i.LeadID,
		&i.UserID,
		&i.AssignedBy,
		&i.IsActive,
		&i.AssignedAt,
		&i.DeactivatedAt,
	)
	return i, err
}

const deactivateLeadAssignments = `-- name: DeactivateLeadAssignments :execrows
UPDATE lead_assignments SET is_active = false, deactivated_at = now()
WHERE lead_id = $1 AND is_active
`

func (q *Queries) DeactivateLeadAssignments(ctx context.Context, leadID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deactivateLeadAssignments, leadID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listActiveAssignees = `-- name: ListActiveAssignees :many
SELECT a.lead_id, a.user_id, u.username
FROM lead_assignments a
JOIN users u ON u.id = a.user_id
WHERE a.is_active AND a.lead_id = ANY($1::uuid[])
`

type ListActiveAssigneesRow struct {
	LeadID   pgtype.UUID
	UserID   pgtype.UUID
	Username string
}

func (q *Queries) ListActiveAssignees(ctx context.Context, leadIds []pgtype.UUID) ([]ListActiveAssigneesRow, error) {
	rows, err := q.db.Query(ctx, listActiveAssignees, leadIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListActiveAssigneesRow
	for rows.Next() {
		var i ListActiveAssigneesRow
		if err := rows.Scan(&i.LeadID, &i.UserID, &i.Username); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLeadAssignments = `-- name: ListLeadAssignments :many
SELECT a.id, a.lead_id, a.user_id, a.assigned_by, a.is_active, a.assigned_at, a.deactivated_at,
	u.username
FROM lead_assignments a
JOIN users u ON u.id = a.user_id
WHERE a.lead_id = $1
ORDER BY a.assigned_at DESC, a.id
`

type ListLeadAssignmentsRow struct {
	ID            pgtype.UUID
	LeadID        pgtype.UUID
	UserID        pgtype.UUID
	AssignedBy    pgtype.UUID
	IsActive      bool
	AssignedAt    pgtype.Timestamptz
	DeactivatedAt pgtype.Timestamptz
	Username      string
}

func (q *Queries) ListLeadAssignments(ctx context.Context, leadID pgtype.UUID) ([]ListLeadAssignmentsRow, error) {
	rows, err := q.db.Query(ctx, listLeadAssignments, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListLeadAssignmentsRow
	for rows.Next() {
		var i ListLeadAssignmentsRow
		if err := rows.Scan(
			&i.ID,
			&i.LeadID,
			&i.UserID,
			&i.AssignedBy,
			&i.IsActive,
			&i.AssignedAt,
			&i.DeactivatedAt,
			&i.Username,
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
