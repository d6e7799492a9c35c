package core

// validation.go provides the field validators.
//
// Each validator looks at one table and returns findings. Ordinary data
// problems never produce an error: an empty result means the check passed.
// Type failures (a value that is not a number) and range/logic failures (a
// number outside its valid range) use distinct codes so a report can tell
// "badly typed" apart from "out of range".

import (
	"fmt"
	"sort"
	"strings"
)

// Coordinate bounds. Both are exclusive.
const (
	LatitudeLimit  = 90.0
	LongitudeLimit = 180.0
)

// Columns read by the semantic validators.
const (
	ColLatitude       = "decimalLatitude"
	ColLongitude      = "decimalLongitude"
	ColMinDepth       = "minimumDepthInMeters"
	ColMaxDepth       = "maximumDepthInMeters"
	ColScientificName = "scientificName"
)

// ValidateSchema reports required columns missing from the table as one
// critical finding. Missing columns are listed sorted.
func ValidateSchema(t *Table, required []string) []Finding {
	if t == nil {
		return nil
	}

	var missing []string
	seen := make(map[string]bool, len(required))
	for _, col := range required {
		if seen[col] || t.HasColumn(col) {
			continue
		}
		seen[col] = true
		missing = append(missing, col)
	}

	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	f := newFinding(SeverityCritical, CodeMissingColumns, t.Name,
		fmt.Sprintf("Missing required DwC columns: %s in %s.", strings.Join(missing, ", "), t.Name))
	f.Keys = missing
	return []Finding{f}
}

// ValidateNullability reports, per column, the records holding a null value.
// Columns not present on the table are skipped; ValidateSchema reports them.
func ValidateNullability(t *Table, columns []string) []Finding {
	if t == nil {
		return nil
	}

	var findings []Finding
	for _, col := range dedupe(columns) {
		if !t.HasColumn(col) {
			continue
		}

		var rows []int
		for i := range t.Records {
			if IsNull(t.Value(i, col)) {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			continue
		}

		f := newFinding(SeverityWarning, CodeNullValues, t.Name,
			fmt.Sprintf("Column %s has %d missing value(s) in %s.", col, len(rows), t.Name))
		f.Locations = rows
		f.Keys = []string{col}
		findings = append(findings, f)
	}

	return findings
}

// ValidateCoordinates flags latitudes outside (-90, 90) and longitudes
// outside (-180, 180). Values that are not numeric, null included, are
// invalid. Absent columns are skipped.
func ValidateCoordinates(t *Table) []Finding {
	if t == nil {
		return nil
	}

	var findings []Finding
	if f, ok := checkRange(t, ColLatitude, LatitudeLimit, CodeInvalidLatitude); ok {
		findings = append(findings, f)
	}
	if f, ok := checkRange(t, ColLongitude, LongitudeLimit, CodeInvalidLongitude); ok {
		findings = append(findings, f)
	}
	return findings
}

func checkRange(t *Table, col string, limit float64, code Code) (Finding, bool) {
	if !t.HasColumn(col) {
		return Finding{}, false
	}

	var rows []int
	for i := range t.Records {
		v := ToFloat8(t.Value(i, col))
		if !v.Valid || v.Float64 <= -limit || v.Float64 >= limit {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return Finding{}, false
	}

	f := newFinding(SeverityCritical, code, t.Name,
		fmt.Sprintf("Invalid %s values detected in %s: %d value(s) are non-numeric or outside (%g, %g).",
			col, t.Name, len(rows), -limit, limit))
	f.Locations = rows
	f.Keys = []string{col}
	return f, true
}

// ValidateDepth checks depth columns. With neither column present it emits a
// single depth_missing warning and stops. Non-numeric (non-null) values are a
// warning per column. A record is illogical only when both depths are
// numeric and minimum > maximum; those records form one critical finding.
func ValidateDepth(t *Table) []Finding {
	if t == nil {
		return nil
	}

	hasMin, hasMax := t.HasColumn(ColMinDepth), t.HasColumn(ColMaxDepth)
	if !hasMin && !hasMax {
		return []Finding{newFinding(SeverityWarning, CodeDepthMissing, t.Name,
			fmt.Sprintf("No depth information found (%s/%s) in %s.", ColMinDepth, ColMaxDepth, t.Name))}
	}

	var findings []Finding
	for _, col := range []string{ColMinDepth, ColMaxDepth} {
		if !t.HasColumn(col) {
			continue
		}
		var rows []int
		for i := range t.Records {
			v := t.Value(i, col)
			if !IsNull(v) && !ToFloat8(v).Valid {
				rows = append(rows, i)
			}
		}
		if len(rows) > 0 {
			f := newFinding(SeverityWarning, CodeNonNumericDepth, t.Name,
				fmt.Sprintf("Non-numeric values in %s: %d record(s) in %s.", col, len(rows), t.Name))
			f.Locations = rows
			f.Keys = []string{col}
			findings = append(findings, f)
		}
	}

	if !hasMin || !hasMax {
		return findings
	}

	var illogical []int
	for i := range t.Records {
		lo, hi := ToFloat8(t.Value(i, ColMinDepth)), ToFloat8(t.Value(i, ColMaxDepth))
		if lo.Valid && hi.Valid && lo.Float64 > hi.Float64 {
			illogical = append(illogical, i)
		}
	}
	if len(illogical) > 0 {
		f := newFinding(SeverityCritical, CodeDepthIllogical, t.Name,
			fmt.Sprintf("%s is greater than %s in %d record(s) of %s.", ColMinDepth, ColMaxDepth, len(illogical), t.Name))
		f.Locations = illogical
		f.Keys = []string{ColMinDepth, ColMaxDepth}
		findings = append(findings, f)
	}

	return findings
}

// dedupe returns cols without repeats, keeping first-seen order.
func dedupe(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
