package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/logging"
)

// handleExportLeads exports leads by assignment state.
//
// Query: type (all, assigned, unassigned), status, user_id.
func (s *Server) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := core.ExportOptions{
		Type:   q.Get("type"),
		Status: q.Get("status"),
		UserID: q.Get("user_id"),
	}
	if err := s.check(opts); err != nil {
		s.fail(w, r, err)
		return
	}
	file, err := s.service.ExportLeads(WithRequestMetadata(r.Context(), r), opts)
	s.sendExport(w, r, file, err)
}

// handleExportWorkspace exports a workspace using its own headers. The
// lead list filters apply.
func (s *Server) handleExportWorkspace(w http.ResponseWriter, r *http.Request) {
	f := leadFilter(r)
	f.WorkspaceID = ""
	file, err := s.service.ExportWorkspace(WithRequestMetadata(r.Context(), r), chi.URLParam(r, "id"), f)
	s.sendExport(w, r, file, err)
}

// handleExportSelection exports explicitly chosen leads of one workspace.
func (s *Server) handleExportSelection(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	file, err := s.service.ExportSelection(WithRequestMetadata(r.Context(), r), req.IDs)
	s.sendExport(w, r, file, err)
}

// sendExport streams the CSV once the export is fully built, so a failed
// query still produces a JSON error.
func (s *Server) sendExport(w http.ResponseWriter, r *http.Request, file *core.ExportFile, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	if err := file.WriteCSV(w); err != nil {
		// Headers are sent, only the log can carry this.
		logging.FromContext(r.Context()).Error("export write failed",
			"file", file.Filename,
			"error", err,
		)
	}
}
