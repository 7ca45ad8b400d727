package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `-- name: InsertAuditLog :exec
INSERT INTO audit_log (action, severity, actor_id, entity, entity_id, rows_affected, detail, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertAuditLogParams struct {
	Action       string
	Severity     string
	ActorID      pgtype.UUID
	Entity       string
	EntityID     string
	RowsAffected int32
	Detail       []byte
	IpAddress    string
	UserAgent    string
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.Action,
		arg.Severity,
		arg.ActorID,
		arg.Entity,
		arg.EntityID,
		arg.RowsAffected,
		arg.Detail,
		arg.IpAddress,
		arg.UserAgent,
	)
	return err
}

const listAuditLog = `-- name: ListAuditLog :many
SELECT id, action, severity, actor_id, entity, entity_id, rows_affected, detail, ip_address, user_agent, created_at
FROM audit_log
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListAuditLogParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListAuditLog(ctx context.Context, arg ListAuditLogParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLog, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var i AuditLog
		if err := rows.Scan(
			&i.ID,
			&i.Action,
			&i.Severity,
			&i.ActorID,
			&i.Entity,
			&i.EntityID,
			&i.RowsAffected,
			&i.Detail,
			&i.IpAddress,
			&i.UserAgent,
			&i.CreatedAt,
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
