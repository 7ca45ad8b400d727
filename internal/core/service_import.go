package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/leads/internal/database"
	"github.com/JonMunkholm/leads/internal/logging"
)

// Import sources, used for logging and metrics.
const (
	SourceCSV   = "csv"
	SourceSheet = "sheet"
)

// ImportRequest describes one import.
type ImportRequest struct {
	// Reader supplies the file. Data is used when Reader is nil.
	Reader io.Reader
	Data   []byte

	FileName    string
	HasHeader   bool
	WorkspaceID string
	// MappingID forces a header mapping; otherwise one is resolved for the
	// workspace. Ignored without a header row.
	MappingID string
	Source    string
}

// ImportLeads decodes, parses and stores leads from a CSV file.
//
// Rows are written in one transaction, each behind its own savepoint, so a
// failing row is rolled back and reported without aborting the others. The
// transaction commits only if at least one row was stored. When every row
// fails the result is returned together with ErrNothingImported; when the
// commit itself fails the result reports zero created rows and a single
// database error.
func (s *Service) ImportLeads(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = SourceCSV
	}
	if req.Source == SourceCSV && req.FileName != "" {
		if err := CheckCSVName(req.FileName); err != nil {
			return nil, err
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.metrics.ObserveImport(req.Source, nil, err)
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	start := s.now()
	res := &ImportResult{ImportID: uuid.NewString(), FileName: req.FileName}
	logger := logging.WithFields(ctx,
		"import_id", res.ImportID,
		"workspace_id", req.WorkspaceID,
		"source", req.Source,
	)
	logger.Info("import started", "file", req.FileName, "has_header", req.HasHeader)

	err := s.runImport(ctx, req, res, logger)
	res.Duration = s.now().Sub(start)
	s.metrics.ObserveImport(req.Source, res, err)

	switch {
	case err == nil:
		logger.Info("import completed",
			"encoding", res.Encoding,
			"created", res.Created,
			"skipped", res.Skipped,
			"failed", res.Failed,
			"duration", res.Duration,
		)
	case errors.Is(err, ErrNothingImported):
		logger.Warn("import stored no rows", "failed", res.Failed)
		return res, err
	default:
		logger.Error("import failed", "error", err)
		if res.Failed > 0 {
			return res, err
		}
		return nil, err
	}

	if res.Created > 0 {
		s.recordAudit(ctx, AuditLogParams{
			Action:       ActionLeadImport,
			Entity:       "lead",
			EntityID:     res.ImportID,
			RowsAffected: res.Created,
			Detail: map[string]any{
				"file":         req.FileName,
				"source":       req.Source,
				"encoding":     string(res.Encoding),
				"workspace_id": req.WorkspaceID,
				"skipped":      res.Skipped,
				"failed":       res.Failed,
			},
		})
		s.publish(ctx, EventLeadsImported, map[string]any{
			"import_id":    res.ImportID,
			"workspace_id": req.WorkspaceID,
			"created":      res.Created,
			"failed":       res.Failed,
		})
	}
	return res, nil
}

func (s *Service) runImport(ctx context.Context, req ImportRequest, res *ImportResult, logger *slog.Logger) error {
	src := req.Reader
	if src == nil {
		src = bytes.NewReader(req.Data)
	}
	data, err := ReadUpload(src, s.maxFileSize)
	if err != nil {
		return err
	}

	text, enc, err := DecodeCSV(data)
	if err != nil {
		return err
	}
	res.Encoding = enc
	if enc != EncodingUTF8 {
		logger.Info("decoded with fallback encoding", "encoding", enc)
	}

	records, err := parseCSV(text)
	if err != nil {
		return err
	}

	custom, err := s.importTarget(ctx, req.WorkspaceID)
	if err != nil {
		return err
	}

	var mapping *HeaderMapping
	if req.HasHeader {
		if mapping, err = s.ResolveMappingFor(ctx, req.WorkspaceID, req.MappingID); err != nil {
			return err
		}
		if mapping != nil {
			logger.Debug("using header mapping", "mapping_id", mapping.ID, "mapping", mapping.Name)
		}
	}

	drafts, skipped := ParseLeads(records, ParseOptions{HasHeader: req.HasHeader, Mapping: mapping})
	res.Skipped = skipped
	if len(drafts) == 0 {
		return nil
	}
	for i := range drafts {
		drafts[i].Lead.WorkspaceID = req.WorkspaceID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	out, err := insertDrafts(ctx, tx, drafts, leadInserter(custom))
	res.Created = out.Created
	res.Failed = out.Failed
	res.Errors = out.Errors
	for _, msg := range out.Errors {
		logger.Debug("row rejected", "error", msg)
	}
	return err
}

// importTarget checks the workspace an import writes to and returns its
// custom headers keyed by lowercased name.
func (s *Service) importTarget(ctx context.Context, workspaceID string) (map[string]pgtype.UUID, error) {
	if workspaceID == "" {
		return nil, nil
	}
	wid, err := parseID("workspace", workspaceID)
	if err != nil {
		return nil, err
	}
	q := db.New(s.pool)

	ws, err := q.GetWorkspace(ctx, wid)
	if err != nil {
		return nil, notFound("workspace", err)
	}
	if !ws.IsActive {
		return nil, fmt.Errorf("workspace is inactive: %s", ws.Name)
	}

	headers, err := q.ListWorkspaceHeaders(ctx, wid)
	if err != nil {
		return nil, fmt.Errorf("list headers: %w", err)
	}
	custom := make(map[string]pgtype.UUID)
	for _, h := range headers {
		if h.FieldKey == "" {
			custom[strings.ToLower(h.HeaderName)] = h.ID
		}
	}
	return custom, nil
}

// leadInserter stores a draft and copies extension values whose key names a
// workspace custom header into that header's custom value.
func leadInserter(custom map[string]pgtype.UUID) draftInserter {
	return func(ctx context.Context, q DBTX, d *LeadDraft) error {
		params, err := createLeadParams(&d.Lead)
		if err != nil {
			return err
		}
		queries := db.New(q)
		row, err := queries.CreateLead(ctx, params)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		d.Lead.ID = PgUUIDToString(row.ID)

		for _, key := range d.Lead.Extra.Keys() {
			hid, ok := custom[strings.ToLower(key)]
			if !ok {
				continue
			}
			v, _ := d.Lead.Extra.Get(key)
			if err := queries.UpsertLeadCustomField(ctx, db.UpsertLeadCustomFieldParams{
				LeadID:   row.ID,
				HeaderID: hid,
				Value:    v,
			}); err != nil {
				return fmt.Errorf("save custom field %q: %w", key, err)
			}
		}
		return nil
	}
}
