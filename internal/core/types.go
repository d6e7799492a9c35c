package core

import (
	"sort"
	"time"
)

// Record is a single row: column name to value.
// Values are strings, numbers, or nil. An absent key is treated as nil.
type Record map[string]any

// Table is an ordered sequence of records with a declared column list.
// The core never mutates a Table it receives; joins derive new tables.
type Table struct {
	Name    string
	Columns []string
	Records []Record
}

// NewTable builds a table from a header and records.
func NewTable(name string, columns []string, records ...Record) *Table {
	return &Table{Name: name, Columns: columns, Records: records}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether col is declared on the table.
func (t *Table) HasColumn(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Value returns the value of col at row i. Absent keys return nil.
func (t *Table) Value(i int, col string) any {
	return t.Records[i][col]
}

// Shape returns (rows, columns), mirroring what loaders log for each input.
func (t *Table) Shape() (int, int) {
	if t == nil {
		return 0, 0
	}
	return len(t.Records), len(t.Columns)
}

// Severity grades a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Code identifies the validator that produced a finding.
type Code string

const (
	CodeMissingColumns       Code = "missing_columns"
	CodeNullValues           Code = "null_values"
	CodeInvalidLatitude      Code = "invalid_latitude"
	CodeInvalidLongitude     Code = "invalid_longitude"
	CodeDepthMissing         Code = "depth_missing"
	CodeNonNumericDepth      Code = "non_numeric_depth"
	CodeDepthIllogical       Code = "depth_illogical"
	CodeTaxonUnaccepted      Code = "taxon_unaccepted"
	CodeTaxonUnmatched       Code = "taxon_unmatched"
	CodeTaxonomyDegraded     Code = "taxonomy_degraded"
	CodeTaxonomySkipped      Code = "taxonomy_skipped"
	CodeCardinalityViolation Code = "cardinality_violation"
	CodeColumnCollision      Code = "column_collision"
	CodeLinkageSkipped       Code = "linkage_skipped"
	CodeDownstreamSkipped    Code = "downstream_skipped"
)

// Finding is the atomic validation output.
type Finding struct {
	Severity  Severity `json:"severity"`
	Code      Code     `json:"code"`
	Message   string   `json:"message"`
	Subject   string   `json:"subject"`             // table name, "linked", or a join pair
	Locations []int    `json:"locations,omitempty"` // record indices, ascending
	Keys      []string `json:"keys,omitempty"`      // key values implicated (linkage, taxonomy)
	Action    string   `json:"action,omitempty"`    // what to do about it
}

// newFinding fills Action from the finding catalog.
func newFinding(sev Severity, code Code, subject, message string) Finding {
	return Finding{
		Severity: sev,
		Code:     code,
		Subject:  subject,
		Message:  message,
		Action:   ActionFor(code),
	}
}

// NewFinding builds a finding for packages outside core (the taxonomy client).
func NewFinding(sev Severity, code Code, subject, message string) Finding {
	return newFinding(sev, code, subject, message)
}

// Provenance maps a linked row back to its source rows.
type Provenance struct {
	Event      int `json:"event"`
	Occurrence int `json:"occurrence"`
	Emof       int `json:"emof"`
}

// LinkedDataset is the denormalized result of joining event, occurrence and
// emof. Its row count always equals the emof row count.
type LinkedDataset struct {
	Table      *Table
	Provenance []Provenance
}

// Len returns the number of linked rows.
func (d *LinkedDataset) Len() int {
	if d == nil {
		return 0
	}
	return d.Table.Len()
}

// TaxonStatus is the tri-state outcome of a name lookup.
type TaxonStatus string

const (
	TaxonAccepted    TaxonStatus = "accepted"
	TaxonNotAccepted TaxonStatus = "not_accepted"
	TaxonNotFound    TaxonStatus = "not_found"
)

// TaxonResult is the classification of one scientific name.
type TaxonResult struct {
	Name       string      `json:"name"`
	Status     TaxonStatus `json:"status"`
	AuthStatus string      `json:"authority_status,omitempty"` // status string reported by the service
	ValidName  string      `json:"valid_name,omitempty"`
	URL        string      `json:"url,omitempty"`
	Candidates int         `json:"candidates,omitempty"`
	Degraded   bool        `json:"degraded,omitempty"` // lookup failed; status is not authoritative
}

// Stage is a step of a validation run.
type Stage string

const (
	StageSchemaCheck    Stage = "schema_check"
	StageLinkage        Stage = "linkage"
	StageSemanticChecks Stage = "semantic_checks"
	StageTaxonomyCheck  Stage = "taxonomy_check"
	StageDone           Stage = "done"
)

// StageStatus records whether a stage ran.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageResult is one entry in a report's stage log.
type StageResult struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Counts are the summary row counts of a run.
type Counts struct {
	Event      int `json:"event"`
	Occurrence int `json:"occurrence"`
	Emof       int `json:"emof"`
	Linked     int `json:"linked"`
}

// Report is the result of a validation run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Stages    []StageResult `json:"stages"`
	Findings  []Finding     `json:"findings"`
	Counts    Counts        `json:"counts"`
}

// Passed returns true if no critical finding was produced.
func (r *Report) Passed() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// CountBySeverity tallies findings per severity.
func (r *Report) CountBySeverity() map[Severity]int {
	out := make(map[Severity]int, 3)
	for _, f := range r.Findings {
		out[f.Severity]++
	}
	return out
}

// ByCode returns the findings with the given code, in report order.
func (r *Report) ByCode(code Code) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

// Codes returns the distinct finding codes in the report, sorted.
func (r *Report) Codes() []Code {
	seen := make(map[Code]bool)
	for _, f := range r.Findings {
		seen[f.Code] = true
	}
	out := make([]Code, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dataset is the three-table input of a run, as returned by a loader.
type Dataset struct {
	Event      *Table
	Occurrence *Table
	Emof       *Table
}
