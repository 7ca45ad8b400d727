package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const workspaceHeaderColumns = `id, workspace_id, header_name, field_key, is_default, field_type, options, is_required, position`

func scanWorkspaceHeader(row interface{ Scan(...any) error }) (WorkspaceHeader, error) {
	var i WorkspaceHeader
	err := row.Scan(
		&i.ID,
		&i.WorkspaceID,
		&i.HeaderName,
		&i.FieldKey,
		&i.IsDefault,
		&i.FieldType,
		&i.Options,
		&i.IsRequired,
		&i.Position,
	)
	return i, err
}

const createWorkspaceHeader = `-- name: CreateWorkspaceHeader :one
INSERT INTO workspace_headers (workspace_id, header_name, field_key, is_default, field_type, options, is_required, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + workspaceHeaderColumns

type CreateWorkspaceHeaderParams struct {
	WorkspaceID pgtype.UUID
	HeaderName  string
	FieldKey    string
	IsDefault   bool
	FieldType   string
	Options     pgtype.Text
	IsRequired  bool
	Position    int32
}

func (q *Queries) CreateWorkspaceHeader(ctx context.Context, arg CreateWorkspaceHeaderParams) (WorkspaceHeader, error) {
	row := q.db.QueryRow(ctx, createWorkspaceHeader,
		arg.WorkspaceID,
		arg.HeaderName,
		arg.FieldKey,
		arg.IsDefault,
		arg.FieldType,
		arg.Options,
		arg.IsRequired,
		arg.Position,
	)
	return scanWorkspaceHeader(row)
}

const deleteWorkspaceHeader = `-- name: DeleteWorkspaceHeader :exec
DELETE FROM workspace_headers WHERE id = $1
`

func (q *Queries) DeleteWorkspaceHeader(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteWorkspaceHeader, id)
	return err
}

const listWorkspaceHeaders = `-- name: ListWorkspaceHeaders :many
SELECT ` + workspaceHeaderColumns + ` FROM workspace_headers
WHERE workspace_id = $1
ORDER BY position, header_name
`

func (q *Queries) ListWorkspaceHeaders(ctx context.Context, workspaceID pgtype.UUID) ([]WorkspaceHeader, error) {
	rows, err := q.db.Query(ctx, listWorkspaceHeaders, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WorkspaceHeader
	for rows.Next() {
		i, err := scanWorkspaceHeader(rows)
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

const updateWorkspaceHeader = `-- name: UpdateWorkspaceHeader :one
UPDATE workspace_headers
SET header_name = $2, field_key = $3, is_default = $4, field_type = $5, options = $6, is_required = $7, position = $8
WHERE id = $1
RETURNING ` + workspaceHeaderColumns

type UpdateWorkspaceHeaderParams struct {
	ID         pgtype.UUID
	HeaderName string
	FieldKey   string
	IsDefault  bool
	FieldType  string
	Options    pgtype.Text
	IsRequired bool
	Position   int32
}

func (q *Queries) UpdateWorkspaceHeader(ctx context.Context, arg UpdateWorkspaceHeaderParams) (WorkspaceHeader, error) {
	row := q.db.QueryRow(ctx, updateWorkspaceHeader,
		arg.ID,
		arg.HeaderName,
		arg.FieldKey,
		arg.IsDefault,
		arg.FieldType,
		arg.Options,
		arg.IsRequired,
		arg.Position,
	)
	return scanWorkspaceHeader(row)
}
