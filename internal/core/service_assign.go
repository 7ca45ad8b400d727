package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/leads/internal/database"
)

// AssignLead makes userID the lead's only active assignee. Prior active
// assignments, including one for the same user, are deactivated and a new
// active row is appended.
func (s *Service) AssignLead(ctx context.Context, leadID, userID string) (*Assignment, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	lid, err := parseID("lead", leadID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	var out Assignment
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		user, err := lookupAssignee(ctx, q, uid)
		if err != nil {
			return err
		}
		if _, err := q.LockLead(ctx, lid); err != nil {
			return notFound("lead", err)
		}

		a, err := reassign(ctx, q, lid, uid, actorUUID(ctx))
		if err != nil {
			return err
		}
		out = assignmentFromRow(a, user.Username)

		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionLeadAssign,
			Entity:       "lead",
			EntityID:     leadID,
			RowsAffected: 1,
			Detail:       map[string]any{"user_id": userID, "username": user.Username},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventLeadAssigned, map[string]any{"lead_id": leadID, "user_id": userID})
	return &out, nil
}

// UnassignLead deactivates the lead's active assignment, if any, and
// reports whether one existed.
func (s *Service) UnassignLead(ctx context.Context, leadID string) (bool, error) {
	if err := requireAdmin(ctx); err != nil {
		return false, err
	}
	lid, err := parseID("lead", leadID)
	if err != nil {
		return false, err
	}

	var n int64
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		if _, err := q.LockLead(ctx, lid); err != nil {
			return notFound("lead", err)
		}
		if n, err = q.DeactivateLeadAssignments(ctx, lid); err != nil {
			return fmt.Errorf("deactivate assignments: %w", err)
		}
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionLeadAssign,
			Entity:       "lead",
			EntityID:     leadID,
			RowsAffected: int(n),
			Detail:       map[string]any{"unassigned": true},
		})
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BulkAssign assigns every lead to userID, or unassigns them when userID is
// nil or empty. An unknown user or lead fails the whole call before any
// change is committed.
func (s *Service) BulkAssign(ctx context.Context, leadIDs []string, userID *string) (int, error) {
	if err := requireAdmin(ctx); err != nil {
		return 0, err
	}
	if len(leadIDs) == 0 {
		return 0, invalid("lead_ids", "no leads selected")
	}
	ids, err := parseIDs("lead", leadIDs)
	if err != nil {
		return 0, err
	}

	var uid pgtype.UUID
	unassign := userID == nil || strings.TrimSpace(*userID) == ""
	if !unassign {
		if uid, err = parseID("user", *userID); err != nil {
			return 0, err
		}
	}

	by := actorUUID(ctx)
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		if !unassign {
			if _, err := lookupAssignee(ctx, q, uid); err != nil {
				return err
			}
		}

		for _, lid := range ids {
			if _, err := q.LockLead(ctx, lid); err != nil {
				return notFound("lead "+PgUUIDToString(lid), err)
			}
			if unassign {
				if _, err := q.DeactivateLeadAssignments(ctx, lid); err != nil {
					return fmt.Errorf("deactivate assignments: %w", err)
				}
				continue
			}
			if _, err := reassign(ctx, q, lid, uid, by); err != nil {
				return err
			}
		}

		detail := map[string]any{"unassigned": unassign}
		if !unassign {
			detail["user_id"] = *userID
		}
		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionLeadBulkAssign,
			Entity:       "lead",
			RowsAffected: len(ids),
			Detail:       detail,
		})
	})
	if err != nil {
		return 0, err
	}

	if !unassign {
		s.publish(ctx, EventLeadAssigned, map[string]any{"lead_ids": leadIDs, "user_id": *userID})
	}
	return len(ids), nil
}

// AssignmentHistory returns every assignment of a lead, newest first.
func (s *Service) AssignmentHistory(ctx context.Context, leadID string) ([]Assignment, error) {
	lid, err := parseID("lead", leadID)
	if err != nil {
		return nil, err
	}
	q := db.New(s.pool)

	exists, err := q.LeadExists(ctx, lid)
	if err != nil {
		return nil, fmt.Errorf("check lead: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("lead %w", ErrNotFound)
	}
	if uid := scopedUserID(ctx); uid != "" {
		if err := requireAssignee(ctx, q, lid, uid); err != nil {
			return nil, err
		}
	}

	rows, err := q.ListLeadAssignments(ctx, lid)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, Assignment{
			ID:            PgUUIDToString(r.ID),
			LeadID:        PgUUIDToString(r.LeadID),
			UserID:        PgUUIDToString(r.UserID),
			Username:      r.Username,
			AssignedBy:    PgUUIDToString(r.AssignedBy),
			IsActive:      r.IsActive,
			AssignedAt:    pgTime(r.AssignedAt),
			DeactivatedAt: pgTimePtr(r.DeactivatedAt),
		})
	}
	return out, nil
}

// reassign deactivates the lead's active rows and appends one for userID.
func reassign(ctx context.Context, q *db.Queries, leadID, userID, by pgtype.UUID) (db.LeadAssignment, error) {
	if _, err := q.DeactivateLeadAssignments(ctx, leadID); err != nil {
		return db.LeadAssignment{}, fmt.Errorf("deactivate assignments: %w", err)
	}
	a, err := q.CreateLeadAssignment(ctx, db.CreateLeadAssignmentParams{
		LeadID:     leadID,
		UserID:     userID,
		AssignedBy: by,
	})
	if err != nil {
		return db.LeadAssignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

// lookupAssignee loads the target user. A missing user is an input error.
func lookupAssignee(ctx context.Context, q *db.Queries, id pgtype.UUID) (db.User, error) {
	u, err := q.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.User{}, invalid("user_id", "unknown user")
		}
		return db.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func actorUUID(ctx context.Context) pgtype.UUID {
	a, _ := ActorFromContext(ctx)
	return ToPgUUID(a.ID)
}

func assignmentFromRow(a db.LeadAssignment, username string) Assignment {
	return Assignment{
		ID:            PgUUIDToString(a.ID),
		LeadID:        PgUUIDToString(a.LeadID),
		UserID:        PgUUIDToString(a.UserID),
		Username:      username,
		AssignedBy:    PgUUIDToString(a.AssignedBy),
		IsActive:      a.IsActive,
		AssignedAt:    pgTime(a.AssignedAt),
		DeactivatedAt: pgTimePtr(a.DeactivatedAt),
	}
}
