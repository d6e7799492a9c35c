// Package core provides the validation and linkage engine for Darwin Core
// event/occurrence/emof datasets.
//
// This package holds all domain logic independent of any UI, transport or
// storage layer. Loaders produce [Table] values, the [Service] turns them
// into a [Report], and web handlers or the CLI render that report.
//
// # Architecture
//
//   - Table kinds: registered via the registry, each kind declares its
//     required columns and join keys.
//   - Validators: pure functions over one table returning [Finding] values.
//   - Linker: cardinality-checked one-to-many joins producing a
//     [LinkedDataset] with provenance back to the source rows.
//   - Service: the orchestrator running schema checks, linkage, semantic
//     checks and taxonomy checks in that order.
//
// # Table Registry
//
// Kinds are registered at init time using [Register] by the tables
// subpackage:
//
//	core.Register(core.KindDefinition{
//	    Kind:            core.KindOccurrence,
//	    RequiredColumns: []string{"occurrenceID", "scientificName"},
//	    PrimaryKey:      "occurrenceID",
//	    ParentKind:      core.KindEvent,
//	    ParentKey:       "eventID",
//	})
//
// # Findings
//
// Data problems are results, not errors. Every finding carries a severity,
// a stable [Code], the subject table, the affected row indices and an
// action hint from [ActionFor]. A run passes when it has no critical
// finding.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IN001-IN006: Input errors (missing tables, bad CSV, size limits)
//   - DB001-DB002: Database source errors
//   - TAX001: Taxonomic service errors
//   - RUN001-RUN003: Run errors (busy, cancelled, timeout)
package core
