package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const headerMappingColumns = `id, name, workspace_id, is_default, field_map, custom_map, created_by, created_at, updated_at`

func scanHeaderMapping(row interface{ Scan(...any) error }) (HeaderMapping, error) {
	var i HeaderMapping
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.WorkspaceID,
		&i.IsDefault,
		&i.FieldMap,
		&i.CustomMap,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const clearDefaultHeaderMapping = `-- name: ClearDefaultHeaderMapping :exec
UPDATE header_mappings SET is_default = false, updated_at = now()
WHERE is_default AND workspace_id IS NOT DISTINCT FROM $1
`

// ClearDefaultHeaderMapping unsets the default within one scope; a NULL
// workspace id addresses the global scope.
func (q *Queries) ClearDefaultHeaderMapping(ctx context.Context, workspaceID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearDefaultHeaderMapping, workspaceID)
	return err
}

const createHeaderMapping = `-- name: CreateHeaderMapping :one
INSERT INTO header_mappings (name, workspace_id, is_default, field_map, custom_map, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + headerMappingColumns

type CreateHeaderMappingParams struct {
	Name        string
	WorkspaceID pgtype.UUID
	IsDefault   bool
	FieldMap    string
	CustomMap   string
	CreatedBy   pgtype.UUID
}

func (q *Queries) CreateHeaderMapping(ctx context.Context, arg CreateHeaderMappingParams) (HeaderMapping, error) {
	row := q.db.QueryRow(ctx, createHeaderMapping,
		arg.Name,
		arg.WorkspaceID,
		arg.IsDefault,
		arg.FieldMap,
		arg.CustomMap,
		arg.CreatedBy,
	)
	return scanHeaderMapping(row)
}

const deleteHeaderMapping = `-- name: DeleteHeaderMapping :execrows
DELETE FROM header_mappings WHERE id = $1
`

func (q *Queries) DeleteHeaderMapping(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteHeaderMapping, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getDefaultHeaderMapping = `-- name: GetDefaultHeaderMapping :one
SELECT ` + headerMappingColumns + ` FROM header_mappings
WHERE is_default AND workspace_id IS NOT DISTINCT FROM $1
`

func (q *Queries) GetDefaultHeaderMapping(ctx context.Context, workspaceID pgtype.UUID) (HeaderMapping, error) {
	return scanHeaderMapping(q.db.QueryRow(ctx, getDefaultHeaderMapping, workspaceID))
}

const getHeaderMapping = `-- name: GetHeaderMapping :one
SELECT ` + headerMappingColumns + ` FROM header_mappings WHERE id = $1
`

func (q *Queries) GetHeaderMapping(ctx context.Context, id pgtype.UUID) (HeaderMapping, error) {
	return scanHeaderMapping(q.db.QueryRow(ctx, getHeaderMapping, id))
}

const listHeaderMappings = `-- name: ListHeaderMappings :many
SELECT ` + headerMappingColumns + ` FROM header_mappings
WHERE workspace_id IS NULL OR workspace_id = $1
ORDER BY is_default DESC, name, id
`

// ListHeaderMappings returns global mappings plus those scoped to the given
// workspace. A NULL workspace id returns only global mappings.
func (q *Queries) ListHeaderMappings(ctx context.Context, workspaceID pgtype.UUID) ([]HeaderMapping, error) {
	rows, err := q.db.Query(ctx, listHeaderMappings, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HeaderMapping
	for rows.Next() {
		i, err := scanHeaderMapping(rows)
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

const setHeaderMappingDefault = `-- name: SetHeaderMappingDefault :exec
UPDATE header_mappings SET is_default = true, updated_at = now() WHERE id = $1
`

func (q *Queries) SetHeaderMappingDefault(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, setHeaderMappingDefault, id)
	return err
}

const updateHeaderMapping = `-- name: UpdateHeaderMapping :one
UPDATE header_mappings SET name = $2, field_map = $3, custom_map = $4, updated_at = now()
WHERE id = $1
RETURNING ` + headerMappingColumns

type UpdateHeaderMappingParams struct {
	ID        pgtype.UUID
	Name      string
	FieldMap  string
	CustomMap string
}

func (q *Queries) UpdateHeaderMapping(ctx context.Context, arg UpdateHeaderMappingParams) (HeaderMapping, error) {
	row := q.db.QueryRow(ctx, updateHeaderMapping, arg.ID, arg.Name, arg.FieldMap, arg.CustomMap)
	return scanHeaderMapping(row)
}
