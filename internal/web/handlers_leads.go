package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leads/internal/core"
)

type idsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

type customValueRequest struct {
	Value string `json:"value"`
}

// leadFilter reads the shared lead filter query parameters.
func leadFilter(r *http.Request) core.LeadFilter {
	q := r.URL.Query()
	return core.LeadFilter{
		WorkspaceID: q.Get("workspace_id"),
		Status:      q.Get("status"),
		AssignedTo:  q.Get("assigned_to"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Search:      q.Get("q"),
		Page:        parseIntParam(r, "page", 1),
		PageSize:    parseIntParam(r, "page_size", 0),
	}
}

// handleStatuses lists the lead status vocabulary.
func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": core.LeadStatuses,
		"default":  core.DefaultStatus,
	})
}

// handleListLeads returns one page of leads visible to the caller.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListLeads(r.Context(), leadFilter(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.service.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in core.LeadInput
	if err := s.decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	lead, err := s.service.CreateLead(WithRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// handleUpdateLead replaces the writable fields of a lead. Non-admin
// callers may only update leads assigned to them.
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var in core.LeadInput
	if err := s.decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	lead, err := s.service.UpdateLead(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLead(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.service.BulkDeleteLeads(WithRequestMetadata(r.Context(), r), req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleSetCustomValue stores one custom field value of a lead.
func (s *Server) handleSetCustomValue(w http.ResponseWriter, r *http.Request) {
	var req customValueRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.SetLeadCustomValue(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "headerID"), req.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
