package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// SheetFetcher reads every row of a spreadsheet as strings. An empty
// sheetName selects the first sheet.
type SheetFetcher interface {
	FetchValues(ctx context.Context, spreadsheetID, sheetName string) ([][]string, error)
}

// SheetImportRequest describes a spreadsheet import.
type SheetImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required"`
	SheetName     string `json:"sheet_name"`
	HasHeader     bool   `json:"has_header"`
	WorkspaceID   string `json:"workspace_id" validate:"omitempty,uuid"`
	MappingID     string `json:"mapping_id" validate:"omitempty,uuid"`
}

// SheetToCSV flattens rows to CSV text. Ragged rows are written as they
// are; the header flag only matters to the reader of the result.
func SheetToCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write sheet csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportSheet fetches a spreadsheet and imports it through ImportLeads. A
// fetch failure is a single error; an empty sheet imports nothing.
func (s *Service) ImportSheet(ctx context.Context, req SheetImportRequest) (*ImportResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if s.sheets == nil {
		return nil, ErrSheetsDisabled
	}
	id := strings.TrimSpace(req.SpreadsheetID)
	if id == "" {
		return nil, invalid("spreadsheet_id", "spreadsheet id is required")
	}

	rows, err := s.sheets.FetchValues(ctx, id, strings.TrimSpace(req.SheetName))
	if err != nil {
		return nil, fmt.Errorf("sheet fetch: %w", err)
	}
	if len(rows) == 0 {
		return &ImportResult{FileName: sheetLabel(id, req.SheetName), Encoding: EncodingUTF8}, nil
	}

	data, err := SheetToCSV(rows)
	if err != nil {
		return nil, err
	}
	return s.ImportLeads(ctx, ImportRequest{
		Data:        data,
		FileName:    sheetLabel(id, req.SheetName),
		HasHeader:   req.HasHeader,
		WorkspaceID: req.WorkspaceID,
		MappingID:   req.MappingID,
		Source:      SourceSheet,
	})
}

func sheetLabel(id, sheet string) string {
	if sheet = strings.TrimSpace(sheet); sheet != "" {
		return id + "/" + sheet
	}
	return id
}
