// Package sheets reads Google Sheets for lead import.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client implements core.SheetFetcher with a service account.
type Client struct {
	svc *gsheets.Service
}

// New creates a read-only client from a service-account credentials file.
func New(ctx context.Context, credentialsFile string) (*Client, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// FetchValues returns the formatted cell values of a sheet. An empty
// sheetName reads the first sheet.
func (c *Client) FetchValues(ctx context.Context, spreadsheetID, sheetName string) ([][]string, error) {
	if sheetName == "" {
		first, err := c.firstSheet(ctx, spreadsheetID)
		if err != nil {
			return nil, err
		}
		sheetName = first
	}

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, quoteSheet(sheetName)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetName, err)
	}
	return toRows(resp.Values), nil
}

func (c *Client) firstSheet(ctx context.Context, spreadsheetID string) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no sheets", spreadsheetID)
	}
	return ss.Sheets[0].Properties.Title, nil
}

// quoteSheet turns a sheet title into an A1 range covering the whole sheet.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// toRows converts API cell values to strings. Trailing empty cells are
// omitted by the API, so rows may be ragged.
func toRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows
}
