// Package core provides the business logic of the lead manager.
//
// This package holds all domain logic independent of any transport layer.
// It is used by the HTTP handlers, the startup bootstrap and tests without
// modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Field registry: the closed set of built-in lead fields, each with its
//     label, header synonyms and typed accessors. See [LookupField].
//   - Header mappings: stored associations from external column headers to
//     fields, resolved per workspace by [Service.ResolveMappingFor].
//   - Ingestion: decoding, parsing and per-row isolated storage of CSV and
//     spreadsheet data. See [Service.ImportLeads].
//   - Export: workspace-aware CSV rendering. See [FormatCSV].
//   - Service: the entry point for every stateful operation.
//
// # Import
//
// An import runs inside the request that started it:
//
//  1. A slot is taken from the [ImportLimiter]
//  2. The upload is read with a size cap and decoded by [DecodeCSV]
//  3. Header cells are resolved to fields by [ResolveColumns]
//  4. [ParseLeads] turns rows into drafts, skipping blank rows
//  5. Drafts are inserted in one transaction, each behind a savepoint
//
// The transaction commits when at least one row was stored.
//
// # Authorization
//
// Handlers attach the caller with [ContextWithActor]. Admin-only operations
// return [ErrForbidden] for other roles. Listings and exports for non-admin
// callers are limited to leads actively assigned to them.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB008: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL004: Validation errors
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - IMP001-IMP006: Import errors
//   - EXP, WS, AUTH and RATE codes for the remaining categories
//
// # Audit Logging
//
// Data modifications are recorded in the audit log with severity levels:
//
//   - Low: Exports and mapping edits
//   - Medium: Single lead and workspace edits
//   - High: Imports, bulk operations and header replacement
//   - Critical: Workspace and user deletion
package core
