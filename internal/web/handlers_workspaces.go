package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leads/internal/core"
)

type headersRequest struct {
	Headers []core.HeaderInput `json:"headers" validate:"required,min=1,dive"`
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListWorkspaces(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.service.GetWorkspace(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// handleCreateWorkspace creates a workspace seeded with the default headers.
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var in core.WorkspaceInput
	if err := s.decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	ws, err := s.service.CreateWorkspace(WithRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var in core.WorkspaceInput
	if err := s.decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	ws, err := s.service.UpdateWorkspace(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// handleDeleteWorkspace answers 409 while the workspace still owns leads.
func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteWorkspace(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReplaceHeaders replaces the ordered header list of a workspace.
func (s *Server) handleReplaceHeaders(w http.ResponseWriter, r *http.Request) {
	var req headersRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	headers, err := s.service.ReplaceHeaders(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id"), req.Headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, headers)
}
