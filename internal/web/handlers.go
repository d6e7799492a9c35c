package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dwcheck/internal/application"
	"github.com/JonMunkholm/dwcheck/internal/core"
	"github.com/JonMunkholm/dwcheck/internal/logging"
)

// multipartOverhead is allowed on top of the three file limits for part
// headers and boundaries.
const multipartOverhead = 1 << 20

// memoryLimit is how much of a multipart body is held in memory; the rest
// spills to temporary files.
const memoryLimit = 32 << 20

// healthResponse is returned by GET /healthz.
type healthResponse struct {
	Status   string                `json:"status"`
	Runs     core.RunLimiterStatus `json:"runs"`
	Taxonomy bool                  `json:"taxonomy"`
}

// tableInfo describes a table kind for API clients.
type tableInfo struct {
	Kind            core.TableKind `json:"kind"`
	Field           string         `json:"field"`
	RequiredColumns []string       `json:"required_columns"`
	PrimaryKey      string         `json:"primary_key,omitempty"`
	ParentKind      core.TableKind `json:"parent_kind,omitempty"`
	ParentKey       string         `json:"parent_key,omitempty"`
}

// validateResponse wraps a report with its verdict.
type validateResponse struct {
	Passed         bool                  `json:"passed"`
	SeverityCounts map[core.Severity]int `json:"severity_counts"`
	*core.Report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:   "ok",
		Runs:     s.runner.Limiter().Status(),
		Taxonomy: s.runner.TaxonomyEnabled(),
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	out := make([]tableInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, tableInfo{
			Kind:            def.Kind,
			Field:           string(def.Kind),
			RequiredColumns: def.RequiredColumns,
			PrimaryKey:      def.PrimaryKey,
			ParentKind:      def.ParentKind,
			ParentKey:       def.ParentKey,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleValidate reads the multipart fields event, occurrence and emof,
// each a CSV file, and returns the validation report. Critical findings
// still return 200; the verdict is in "passed".
//
// Query parameters:
//   - taxonomy=false skips the taxonomy stage for this request
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	opts := application.RunOptions{Logger: logger}

	if v := r.URL.Query().Get("taxonomy"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, r, fmt.Errorf("invalid parameter taxonomy=%q", v), http.StatusBadRequest)
			return
		}
		opts.SkipTaxonomy = !enabled
	}

	maxBody := 3*s.cfg.Upload.MaxFileSize + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		status := http.StatusBadRequest
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, r, fmt.Errorf("parse multipart form: %w", err), status)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	var ds core.Dataset
	for _, part := range []struct {
		kind core.TableKind
		dst  **core.Table
	}{
		{core.KindEvent, &ds.Event},
		{core.KindOccurrence, &ds.Occurrence},
		{core.KindEmof, &ds.Emof},
	} {
		file, _, err := r.FormFile(string(part.kind))
		if errors.Is(err, http.ErrMissingFile) {
			respondError(w, r, fmt.Errorf("%w: %s", errMissingTable, part.kind), 0)
			return
		}
		if err != nil {
			respondError(w, r, fmt.Errorf("read %s part: %w", part.kind, err), http.StatusBadRequest)
			return
		}

		table, err := s.runner.ReadTable(part.kind, file, logger)
		file.Close()
		if err != nil {
			respondError(w, r, err, 0)
			return
		}
		*part.dst = table
	}

	report, err := s.runner.Validate(r.Context(), ds, opts)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, r, http.StatusOK, validateResponse{
		Passed:         report.Passed(),
		SeverityCounts: report.CountBySeverity(),
		Report:         report,
	})
}
