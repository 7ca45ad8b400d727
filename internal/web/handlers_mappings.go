package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leads/internal/core"
)

// handleListMappings lists the mappings usable in a workspace, or all
// global mappings without workspace_id.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListHeaderMappings(r.Context(), r.URL.Query().Get("workspace_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleMatchMappings scores stored mappings against a header row given
// as comma-separated headers.
func (s *Server) handleMatchMappings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	headers := splitList(q.Get("headers"))
	if len(headers) == 0 {
		s.fail(w, r, &core.ValidationError{Field: "headers", Message: "at least one header is required"})
		return
	}
	matches, err := s.service.MatchMappings(r.Context(), q.Get("workspace_id"), headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	var in core.MappingInput
	if err := s.decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.service.CreateHeaderMapping(WithRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.GetHeaderMapping(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var in core.MappingInput
	if err := s.decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.service.UpdateHeaderMapping(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteHeaderMapping(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetDefaultMapping makes a mapping the default of its scope.
func (s *Server) handleSetDefaultMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.SetDefaultHeaderMapping(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
