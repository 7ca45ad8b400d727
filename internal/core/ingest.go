package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// ContextCheckInterval is how many rows are inserted between cancellation checks.
var ContextCheckInterval = 100

// ParseOptions controls how tabular records become lead drafts.
type ParseOptions struct {
	// HasHeader treats the first record as column names.
	HasHeader bool
	// Mapping, when set, replaces synonym matching. Ignored without a header.
	Mapping *HeaderMapping
}

// ParseLeads turns records into drafts. Rows whose cells are all blank are
// skipped and counted in skipped; they are never errors.
func ParseLeads(records [][]string, opts ParseOptions) (drafts []LeadDraft, skipped int) {
	if len(records) == 0 {
		return nil, 0
	}

	plan := PositionalPlan()
	first := 0
	if opts.HasHeader {
		plan = ResolveColumns(opts.Mapping, records[0])
		first = 1
	}

	for i := first; i < len(records); i++ {
		row := records[i]
		if isEmptyRow(row) {
			skipped++
			continue
		}

		var lead Lead
		plan.Apply(row, &lead)
		lead.DateCaptured = NormalizeCaptureDate(lead.DateCaptured)
		normalizeLead(&lead)
		drafts = append(drafts, LeadDraft{Line: i + 1, Lead: lead})
	}
	return drafts, skipped
}

// normalizeLead applies the rules every written lead follows: the combined
// name is rebuilt from its parts when either is present and a blank status
// becomes DefaultStatus.
func normalizeLead(l *Lead) {
	if l.FirstName != "" || l.LastName != "" {
		l.Name = strings.TrimSpace(l.FirstName + " " + l.LastName)
	}
	l.Status = strings.TrimSpace(l.Status)
	if l.Status == "" {
		l.Status = DefaultStatus
	}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseCSV reads decoded text. Ragged rows are allowed and stray quotes
// are tolerated, matching what spreadsheet exports tend to produce.
func parseCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return records, nil
}

// batchTx is the part of pgx.Tx the import loop needs.
type batchTx interface {
	DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// draftInserter writes one draft inside the current savepoint.
type draftInserter func(ctx context.Context, q DBTX, d *LeadDraft) error

type batchOutcome struct {
	Created int
	Failed  int
	Errors  []string
}

// insertDrafts writes drafts in one transaction, isolating each row behind
// a savepoint so a failing row is rolled back alone. The transaction is
// committed only when at least one row succeeded; otherwise it is rolled
// back and ErrNothingImported is returned. A failed commit reports zero
// created rows and a single database error.
func insertDrafts(ctx context.Context, tx batchTx, drafts []LeadDraft, insert draftInserter) (batchOutcome, error) {
	var out batchOutcome

	abort := func(err error) (batchOutcome, error) {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return batchOutcome{}, err
	}

	for i := range drafts {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return abort(ctx.Err())
		}

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return abort(fmt.Errorf("create savepoint: %w", err))
		}

		if err := insert(ctx, tx, &drafts[i]); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return abort(fmt.Errorf("rollback savepoint: %w", rbErr))
			}
			out.Failed++
			out.Errors = append(out.Errors, rowError(drafts[i].Line, err))
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return abort(fmt.Errorf("release savepoint: %w", err))
		}
		out.Created++
	}

	if out.Created == 0 {
		_ = tx.Rollback(ctx)
		return out, ErrNothingImported
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return batchOutcome{
			Failed: len(drafts),
			Errors: []string{"database error: " + FormatUserError(err)},
		}, fmt.Errorf("commit import: %w", err)
	}
	return out, nil
}

func rowError(line int, err error) string {
	msg := MapError(err)
	return fmt.Sprintf("row %d: %s (%s)", line, msg.Message, msg.Code)
}
