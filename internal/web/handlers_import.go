package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/logging"
)

// multipartMemory is how much of a multipart body is held in memory
// before parts spill to temporary files.
const multipartMemory = 32 << 20

// multipartSlack covers the multipart framing around the file itself.
const multipartSlack = 1 << 20

// handleImportCSV imports leads from an uploaded CSV file.
//
// Form fields: file (required), has_header (default true), workspace_id,
// mapping_id.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, core.ErrFileTooLarge)
			return
		}
		s.fail(w, r, &core.ValidationError{Field: "file", Message: "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, errNoFile)
		return
	}
	defer file.Close()

	if err := core.CheckCSVName(header.Filename); err != nil {
		s.fail(w, r, err)
		return
	}

	req := core.ImportRequest{
		Reader:      file,
		FileName:    header.Filename,
		HasHeader:   parseBoolParam(r.FormValue("has_header"), true),
		WorkspaceID: r.FormValue("workspace_id"),
		MappingID:   r.FormValue("mapping_id"),
		Source:      core.SourceCSV,
	}

	logging.FromContext(r.Context()).Info("csv import received",
		"file", header.Filename,
		"size", header.Size,
		"workspace_id", req.WorkspaceID,
	)

	res, err := s.service.ImportLeads(WithRequestMetadata(r.Context(), r), req)
	s.respondImport(w, r, res, err)
}

// handleImportSheet imports leads from a Google spreadsheet.
func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	var req core.SheetImportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.service.ImportSheet(WithRequestMetadata(r.Context(), r), req)
	s.respondImport(w, r, res, err)
}

// respondImport writes the import summary. A failed import that still
// carries a result reports it next to the error.
func (s *Server) respondImport(w http.ResponseWriter, r *http.Request, res *core.ImportResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	status := statusFor(err)
	body := errorResponse(r, err, status)
	body.Result = res
	writeJSON(w, status, body)
}
