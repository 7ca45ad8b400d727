package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/leads/internal/core"
)

// healthTimeout bounds the database ping of a health check.
const healthTimeout = 2 * time.Second

// handleHealth reports whether the database is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"active_imports": s.service.ImportLimiter().Active(),
	})
}

// handleStats returns lead counts for the dashboard.
//
// Query: workspace_id, from, to.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := s.service.LeadStats(r.Context(), core.StatsFilter{
		WorkspaceID: q.Get("workspace_id"),
		From:        q.Get("from"),
		To:          q.Get("to"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleAuditLog pages through the audit log, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultAuditLimit)
	if limit > 1000 {
		limit = 1000
	}
	entries, err := s.service.GetAuditLog(r.Context(), limit, parseIntParam(r, "offset", 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
