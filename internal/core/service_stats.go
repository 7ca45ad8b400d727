package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"

	db "github.com/JonMunkholm/leads/internal/database"
)

// StatsFilter bounds LeadStats. From and To accept the same formats as
// LeadFilter.
type StatsFilter struct {
	WorkspaceID string
	From        string
	To          string
}

// CountByKey is one row of a grouped count.
type CountByKey struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// LeadStats summarizes the leads visible to the caller.
type LeadStats struct {
	// Total ignores the date range.
	Total          int64        `json:"total"`
	CreatedInRange int64        `json:"created_in_range"`
	Assigned       int64        `json:"assigned"`
	Unassigned     int64        `json:"unassigned"`
	ByStatus       []CountByKey `json:"by_status"`
	ByWorkspace    []CountByKey `json:"by_workspace"`
}

// LeadStats counts leads in total and, within the date range, by status,
// by workspace and by assignment. Non-admin callers only count their own
// assigned leads.
func (s *Service) LeadStats(ctx context.Context, f StatsFilter) (*LeadStats, error) {
	allTime, err := leadWhere(ctx, LeadFilter{WorkspaceID: f.WorkspaceID})
	if err != nil {
		return nil, err
	}
	ranged, err := leadWhere(ctx, LeadFilter{WorkspaceID: f.WorkspaceID, From: f.From, To: f.To})
	if err != nil {
		return nil, err
	}
	where, args := ranged.Build()

	var out LeadStats
	var byWorkspace map[pgtype.UUID]int64
	var names map[pgtype.UUID]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, a := allTime.Build()
		if err := s.pool.QueryRow(gctx, "SELECT COUNT(*) FROM leads"+w, a...).Scan(&out.Total); err != nil {
			return fmt.Errorf("count leads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		q := `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM lead_assignments la WHERE la.lead_id = leads.id AND la.is_active))
			FROM leads` + where
		if err := s.pool.QueryRow(gctx, q, args...).Scan(&out.CreatedInRange, &out.Assigned); err != nil {
			return fmt.Errorf("count assigned leads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		out.ByStatus, err = s.countByStatus(gctx, where, args)
		return err
	})
	g.Go(func() error {
		var err error
		byWorkspace, err = s.countByWorkspace(gctx, where, args)
		return err
	})
	g.Go(func() error {
		rows, err := db.New(s.pool).ListWorkspaces(gctx)
		if err != nil {
			return fmt.Errorf("list workspaces: %w", err)
		}
		names = make(map[pgtype.UUID]string, len(rows))
		for _, r := range rows {
			names[r.ID] = r.Name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Unassigned = out.CreatedInRange - out.Assigned
	out.ByWorkspace = workspaceCounts(byWorkspace, names)
	return &out, nil
}

func (s *Service) countByStatus(ctx context.Context, where string, args []any) ([]CountByKey, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM leads"+where+" GROUP BY status ORDER BY COUNT(*) DESC, status", args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := []CountByKey{}
	for rows.Next() {
		var c CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		c.Label = c.Key
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) countByWorkspace(ctx context.Context, where string, args []any) (map[pgtype.UUID]int64, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT workspace_id, COUNT(*) FROM leads"+where+" GROUP BY workspace_id", args...)
	if err != nil {
		return nil, fmt.Errorf("count by workspace: %w", err)
	}
	defer rows.Close()

	out := make(map[pgtype.UUID]int64)
	for rows.Next() {
		var id pgtype.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan workspace count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// workspaceCounts labels grouped counts with workspace names, largest
// first. Leads without a workspace are labelled NoWorkspaceLabel.
func workspaceCounts(counts map[pgtype.UUID]int64, names map[pgtype.UUID]string) []CountByKey {
	out := make([]CountByKey, 0, len(counts))
	for id, n := range counts {
		label := NoWorkspaceLabel
		if id.Valid {
			label = names[id]
		}
		out = append(out, CountByKey{Key: PgUUIDToString(id), Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
