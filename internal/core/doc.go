// Package core provides the business logic for body-composition imports.
//
// This package holds all domain logic independent of any storage or
// transport layer. It can be used by web handlers, CLI tools, or tests
// without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Records: [Record] is the canonical form of one measurement session.
//     Its ID is the session date and time, which makes re-imports idempotent.
//   - Parsers: [ParseDeviceCSV] reads the raw key-code dumps of the scale and
//     [ParseRoundTripCSV] reads back files written by [ExportCSV].
//   - Classification: [Classify] maps a value onto a [HealthStatus] band for
//     one [Indicator].
//   - Charts: [ComputeChart] derives axis, gridlines and plot coordinates for
//     one metric over a history.
//   - Service: the in-memory record set of a running process.
//
// # Device Import
//
// Several device files can be imported at once. They are parsed
// concurrently, then merged:
//
//  1. Client calls [Service.ImportDeviceFiles] with the raw files
//  2. Each file is cleaned of BOMs and invalid UTF-8 and tokenized
//  3. Rows without a date or weight are dropped
//  4. Records are deduplicated by ID, last file winning, and sorted newest first
//  5. The batch is merged into the record set, replacing records by ID
//
// At most [DefaultMaxConcurrentImports] imports run at once; see [ImportLimiter].
//
// # Chart Registry
//
// Chartable metrics are registered at init time using [Register]:
//
//	core.Register(core.ChartDefinition{
//	    Metric: core.MetricWeight,
//	    Group:  "mass",
//	    Label:  "metrics.weight",
//	    Color:  "#64748b",
//	    Unit:   "kg",
//	})
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: File errors (size, CSV, encoding, missing, empty)
//   - IMP001-IMP004: Import errors (format, busy, file count, unknown record)
//   - CLI001-CLI002: Client errors
//   - BAK001-BAK002: Backup errors
//   - CHT001-CHT002, EXP001-EXP002: Chart and export errors
//   - REQ001-REQ003: Request errors (cancelled, timeout, date range)
package core
