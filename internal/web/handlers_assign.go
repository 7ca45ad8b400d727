package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// assignRequest names the new assignee. A null user_id unassigns.
type assignRequest struct {
	UserID *string `json:"user_id" validate:"omitempty,uuid"`
}

type bulkAssignRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,uuid"`
	UserID *string  `json:"user_id" validate:"omitempty,uuid"`
}

func (s *Server) handleAssignLead(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	leadID := chi.URLParam(r, "id")

	if req.UserID == nil || *req.UserID == "" {
		removed, err := s.service.UnassignLead(ctx, leadID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"unassigned": removed})
		return
	}

	a, err := s.service.AssignLead(ctx, leadID, *req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleBulkAssign(w http.ResponseWriter, r *http.Request) {
	var req bulkAssignRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.UserID != nil && *req.UserID == "" {
		req.UserID = nil
	}
	n, err := s.service.BulkAssign(WithRequestMetadata(r.Context(), r), req.IDs, req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleAssignmentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.AssignmentHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
