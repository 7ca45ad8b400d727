package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const workspaceColumns = `id, name, description, is_active, created_by, created_at, updated_at, default_header_mapping_id`

func scanWorkspace(row interface{ Scan(...any) error }) (Workspace, error) {
	var i Workspace
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.IsActive,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DefaultHeaderMappingID,
	)
	return i, err
}

const countLeadsInWorkspace = `-- name: CountLeadsInWorkspace :one
SELECT COUNT(*) FROM leads WHERE workspace_id = $1
`

func (q *Queries) CountLeadsInWorkspace(ctx context.Context, workspaceID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countLeadsInWorkspace, workspaceID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createWorkspace = `-- name: CreateWorkspace :one
INSERT INTO workspaces (name, description, is_active, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + workspaceColumns

type CreateWorkspaceParams struct {
	Name        string
	Description string
	IsActive    bool
	CreatedBy   pgtype.UUID
}

func (q *Queries) CreateWorkspace(ctx context.Context, arg CreateWorkspaceParams) (Workspace, error) {
	row := q.db.QueryRow(ctx, createWorkspace,
		arg.Name,
		arg.Description,
		arg.IsActive,
		arg.CreatedBy,
	)
	return scanWorkspace(row)
}

const deleteWorkspace = `-- name: DeleteWorkspace :execrows
DELETE FROM workspaces WHERE id = $1
`

func (q *Queries) DeleteWorkspace(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteWorkspace, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getWorkspace = `-- name: GetWorkspace :one
SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1
`

func (q *Queries) GetWorkspace(ctx context.Context, id pgtype.UUID) (Workspace, error) {
	return scanWorkspace(q.db.QueryRow(ctx, getWorkspace, id))
}

const getWorkspaceByName = `-- name: GetWorkspaceByName :one
SELECT ` + workspaceColumns + ` FROM workspaces WHERE lower(name) = lower($1)
`

func (q *Queries) GetWorkspaceByName(ctx context.Context, name string) (Workspace, error) {
	return scanWorkspace(q.db.QueryRow(ctx, getWorkspaceByName, name))
}

const getWorkspaceForUpdate = `-- name: GetWorkspaceForUpdate :one
SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetWorkspaceForUpdate(ctx context.Context, id pgtype.UUID) (Workspace, error) {
	return scanWorkspace(q.db.QueryRow(ctx, getWorkspaceForUpdate, id))
}

const listWorkspaces = `-- name: ListWorkspaces :many
SELECT ` + workspaceColumns + ` FROM workspaces ORDER BY name
`

func (q *Queries) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	rows, err := q.db.Query(ctx, listWorkspaces)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Workspace
	for rows.Next() {
		i, err := scanWorkspace(rows)
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

const setWorkspaceDefaultMapping = `-- name: SetWorkspaceDefaultMapping :exec
UPDATE workspaces SET default_header_mapping_id = $2, updated_at = now() WHERE id = $1
`

type SetWorkspaceDefaultMappingParams struct {
	ID                     pgtype.UUID
	DefaultHeaderMappingID pgtype.UUID
}

func (q *Queries) SetWorkspaceDefaultMapping(ctx context.Context, arg SetWorkspaceDefaultMappingParams) error {
	_, err := q.db.Exec(ctx, setWorkspaceDefaultMapping, arg.ID, arg.DefaultHeaderMappingID)
	return err
}

const updateWorkspace = `-- name: UpdateWorkspace :one
UPDATE workspaces
SET name = $2, description = $3, is_active = $4, updated_at = now()
WHERE id = $1
RETURNING ` + workspaceColumns

type UpdateWorkspaceParams struct {
	ID          pgtype.UUID
	Name        string
	Description string
	IsActive    bool
}

func (q *Queries) UpdateWorkspace(ctx context.Context, arg UpdateWorkspaceParams) (Workspace, error) {
	row := q.db.QueryRow(ctx, updateWorkspace,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.IsActive,
	)
	return scanWorkspace(row)
}
