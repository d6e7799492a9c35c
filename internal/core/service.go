package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNilTable is returned when a dataset table is entirely absent (not
// merely empty).
var ErrNilTable = errors.New("nil table")

// TaxonResolver classifies scientific names against a taxonomic authority.
// Implementations return one result per distinct name plus any findings
// describing degraded coverage (names that could not be checked).
type TaxonResolver interface {
	Lookup(ctx context.Context, names []string) (map[string]TaxonResult, []Finding)
}

// Service runs validation over a three-table dataset.
type Service struct {
	linker *Linker
	taxa   TaxonResolver
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTaxonResolver enables the taxonomy stage.
func WithTaxonResolver(r TaxonResolver) Option {
	return func(s *Service) { s.taxa = r }
}

// WithCollisionPolicy sets how the linker treats conflicting shared columns.
func WithCollisionPolicy(p CollisionPolicy) Option {
	return func(s *Service) { s.linker = NewLinker(p) }
}

// WithLogger sets the logger used for stage progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service instance.
func NewService(opts ...Option) *Service {
	s := &Service{
		linker: NewLinker(CollisionReject),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListKinds returns the registered table kinds in report order.
func (s *Service) ListKinds() []KindDefinition {
	return All()
}

// run accumulates the report of a single Validate call.
type run struct {
	report *Report
	logger *slog.Logger
}

func (r *run) add(fs ...Finding) {
	r.report.Findings = append(r.report.Findings, fs...)
}

func (r *run) stage(st Stage, status StageStatus, reason string) {
	r.report.Stages = append(r.report.Stages, StageResult{Stage: st, Status: status, Reason: reason})
	r.logger.Debug("stage finished", "stage", st, "status", status, "findings", len(r.report.Findings))
}

// Validate runs schema checks, linkage, semantic checks and taxonomy checks
// in that order. Critical findings are results, not errors: the only error
// is a table missing from ds.
func (s *Service) Validate(ctx context.Context, ds Dataset) (*Report, error) {
	switch {
	case ds.Event == nil:
		return nil, fmt.Errorf("%w: %s", ErrNilTable, KindEvent)
	case ds.Occurrence == nil:
		return nil, fmt.Errorf("%w: %s", ErrNilTable, KindOccurrence)
	case ds.Emof == nil:
		return nil, fmt.Errorf("%w: %s", ErrNilTable, KindEmof)
	}

	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Findings:  []Finding{},
		Counts: Counts{
			Event:      ds.Event.Len(),
			Occurrence: ds.Occurrence.Len(),
			Emof:       ds.Emof.Len(),
		},
	}
	r := &run{report: report, logger: s.logger.With("run_id", report.RunID)}

	for _, kind := range []TableKind{KindEvent, KindOccurrence, KindEmof} {
		rows, cols := tableFor(ds, kind).Shape()
		r.logger.Info("input table", "table", kind, "rows", rows, "columns", cols)
	}

	r.add(s.checkSchemas(ds)...)
	r.stage(StageSchemaCheck, StageCompleted, "")

	linked := s.link(r, ds)
	if linked == nil {
		f := newFinding(SeverityInfo, CodeDownstreamSkipped, "linked",
			"Semantic and taxonomy checks were skipped because the tables could not be linked.")
		r.add(f)
		r.stage(StageSemanticChecks, StageSkipped, "linkage failed")
		r.stage(StageTaxonomyCheck, StageSkipped, "linkage failed")
		return s.finish(r, start), nil
	}
	report.Counts.Linked = linked.Len()

	r.add(s.checkSemantics(ds, linked.Table)...)
	r.stage(StageSemanticChecks, StageCompleted, "")

	fs, status, reason := s.checkTaxonomy(ctx, r.logger, linked, nameOr(ds.Occurrence, KindOccurrence))
	r.add(fs...)
	r.stage(StageTaxonomyCheck, status, reason)

	return s.finish(r, start), nil
}

func (s *Service) finish(r *run, start time.Time) *Report {
	r.stage(StageDone, StageCompleted, "")
	r.report.Duration = time.Since(start)

	counts := r.report.CountBySeverity()
	r.logger.Info("validation finished",
		"linked_rows", r.report.Counts.Linked,
		"critical", counts[SeverityCritical],
		"warning", counts[SeverityWarning],
		"info", counts[SeverityInfo],
		"duration_ms", r.report.Duration.Milliseconds(),
	)
	return r.report
}

func tableFor(ds Dataset, kind TableKind) *Table {
	switch kind {
	case KindEvent:
		return ds.Event
	case KindOccurrence:
		return ds.Occurrence
	case KindEmof:
		return ds.Emof
	default:
		return nil
	}
}

// checkSchemas validates each table's required columns concurrently.
// Results are merged in registry order.
func (s *Service) checkSchemas(ds Dataset) []Finding {
	defs := All()
	slots := make([][]Finding, len(defs))

	var g errgroup.Group
	for i, def := range defs {
		g.Go(func() error {
			slots[i] = ValidateSchema(tableFor(ds, def.Kind), def.RequiredColumns)
			return nil
		})
	}
	_ = g.Wait()

	var out []Finding
	for _, fs := range slots {
		out = append(out, fs...)
	}
	return out
}

// link checks join keys, then links. Returns nil when linkage was skipped
// or failed; the reasons are recorded on r.
func (s *Service) link(r *run, ds Dataset) *LinkedDataset {
	if skips := checkJoinKeys(ds); len(skips) > 0 {
		r.add(skips...)
		r.stage(StageLinkage, StageSkipped, "join key column missing")
		return nil
	}

	linked, fs, err := s.linker.Link(ds.Event, ds.Occurrence, ds.Emof)
	r.add(fs...)
	if err != nil {
		// Keys were checked above; anything here is still a structural problem.
		f := newFinding(SeverityCritical, CodeLinkageSkipped, "linked", err.Error())
		r.add(f)
		r.stage(StageLinkage, StageSkipped, err.Error())
		return nil
	}
	if linked == nil {
		r.stage(StageLinkage, StageFailed, "cardinality contract violated")
		return nil
	}

	r.stage(StageLinkage, StageCompleted, "")
	return linked
}

// checkJoinKeys emits one linkage_skipped finding per join whose key column
// is missing on either side.
func checkJoinKeys(ds Dataset) []Finding {
	var out []Finding
	for _, def := range All() {
		if def.ParentKind == "" {
			continue
		}
		parent, child := tableFor(ds, def.ParentKind), tableFor(ds, def.Kind)

		var missing []string
		if !parent.HasColumn(def.ParentKey) {
			missing = append(missing, fmt.Sprintf("%s.%s", def.ParentKind, def.ParentKey))
		}
		if !child.HasColumn(def.ParentKey) {
			missing = append(missing, fmt.Sprintf("%s.%s", def.Kind, def.ParentKey))
		}
		if len(missing) == 0 {
			continue
		}

		f := newFinding(SeverityCritical, CodeLinkageSkipped, fmt.Sprintf("%s/%s", def.ParentKind, def.Kind),
			fmt.Sprintf("Cannot link %s to %s: join key missing (%s).", def.Kind, def.ParentKind, strings.Join(missing, ", ")))
		f.Keys = missing
		out = append(out, f)
	}
	return out
}

// checkSemantics runs nullability, coordinate and depth checks on each
// source table concurrently, so values the linker overrode are still
// checked and locations are source row indices. Every check runs; results
// keep registry order, then check order.
func (s *Service) checkSemantics(ds Dataset, linked *Table) []Finding {
	var checks []func() []Finding
	for _, def := range All() {
		t := tableFor(ds, def.Kind)
		checks = append(checks,
			func() []Finding { return ValidateNullability(t, def.RequiredColumns) },
			func() []Finding { return ValidateCoordinates(t) },
		)
		if hasDepth(t) {
			checks = append(checks, func() []Finding { return ValidateDepth(t) })
		}
	}
	// Depth columns are optional per table; their absence is a dataset
	// property, reported once.
	if !hasDepth(linked) {
		checks = append(checks, func() []Finding { return ValidateDepth(linked) })
	}
	slots := make([][]Finding, len(checks))

	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			slots[i] = check()
			return nil
		})
	}
	_ = g.Wait()

	var out []Finding
	for _, fs := range slots {
		out = append(out, fs...)
	}
	return out
}

func hasDepth(t *Table) bool {
	return t.HasColumn(ColMinDepth) || t.HasColumn(ColMaxDepth)
}

// checkTaxonomy looks up each distinct scientificName of the linked rows
// once. Findings name the occurrence table and its rows.
func (s *Service) checkTaxonomy(ctx context.Context, logger *slog.Logger, linked *LinkedDataset, subject string) ([]Finding, StageStatus, string) {
	if s.taxa == nil {
		return []Finding{newFinding(SeverityInfo, CodeTaxonomySkipped, subject,
			"Taxonomy checks are disabled.")}, StageSkipped, "no taxonomic resolver"
	}
	t := linked.Table
	if !t.HasColumn(ColScientificName) {
		return []Finding{newFinding(SeverityWarning, CodeTaxonomySkipped, subject,
			"Missing scientificName; taxonomy checks skipped.")}, StageSkipped, "no scientificName column"
	}

	// Several measurements share an occurrence; list each occurrence once.
	rowsByName := make(map[string][]int)
	seen := make(map[int]bool)
	for i := range t.Records {
		name, ok := KeyString(t.Value(i, ColScientificName))
		if !ok {
			continue
		}
		occ := linked.Provenance[i].Occurrence
		if seen[occ] {
			continue
		}
		seen[occ] = true
		rowsByName[name] = append(rowsByName[name], occ)
	}
	names := make([]string, 0, len(rowsByName))
	for n, rows := range rowsByName {
		sort.Ints(rows)
		names = append(names, n)
	}
	sort.Strings(names)

	logger.Info("verifying taxonomy", "names", len(names))
	results, findings := s.taxa.Lookup(ctx, names)

	for _, name := range names {
		res, ok := results[name]
		if !ok || res.Degraded {
			continue
		}
		switch res.Status {
		case TaxonNotAccepted:
			f := newFinding(SeverityWarning, CodeTaxonUnaccepted, subject,
				fmt.Sprintf("Taxon %s is %s. Accepted name: %s, %s%s", name, res.AuthStatus, res.ValidName, res.URL, ambiguity(res)))
			f.Locations = rowsByName[name]
			f.Keys = []string{name}
			findings = append(findings, f)
		case TaxonNotFound:
			f := newFinding(SeverityWarning, CodeTaxonUnmatched, subject,
				fmt.Sprintf("Taxon %s was not found in the taxonomic authority.", name))
			f.Locations = rowsByName[name]
			f.Keys = []string{name}
			findings = append(findings, f)
		}
	}

	return findings, StageCompleted, ""
}

// ambiguity notes when the authority offered more than one candidate.
func ambiguity(res TaxonResult) string {
	if res.Candidates <= 1 {
		return ""
	}
	return fmt.Sprintf(" (%d candidate matches; the first was used)", res.Candidates)
}
