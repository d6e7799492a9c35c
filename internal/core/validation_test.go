package core

import (
	"reflect"
	"testing"
)

func coordTable(pairs ...[2]any) *Table {
	t := NewTable("occurrence", []string{ColLatitude, ColLongitude})
	for _, p := range pairs {
		t.Records = append(t.Records, Record{ColLatitude: p[0], ColLongitude: p[1]})
	}
	return t
}

func findByCode(fs []Finding, code Code) []Finding {
	var out []Finding
	for _, f := range fs {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// ValidateSchema Tests
// ----------------------------------------------------------------------------

func TestValidateSchema(t *testing.T) {
	required := []string{"eventID", "eventDate", "decimalLatitude", "countryCode"}

	tests := []struct {
		name     string
		columns  []string
		wantKeys []string
	}{
		{
			name:    "all present",
			columns: []string{"countryCode", "eventID", "decimalLatitude", "eventDate", "extra"},
		},
		{
			name:     "missing listed sorted",
			columns:  []string{"eventID"},
			wantKeys: []string{"countryCode", "decimalLatitude", "eventDate"},
		},
		{
			name:     "case sensitive",
			columns:  []string{"EventID", "eventDate", "decimalLatitude", "countryCode"},
			wantKeys: []string{"eventID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSchema(NewTable("event", tt.columns), required)
			if tt.wantKeys == nil {
				if len(got) != 0 {
					t.Fatalf("ValidateSchema() = %v, want no findings", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("ValidateSchema() returned %d findings, want 1", len(got))
			}
			f := got[0]
			if f.Severity != SeverityCritical || f.Code != CodeMissingColumns || f.Subject != "event" {
				t.Errorf("finding = %+v, want critical missing_columns on event", f)
			}
			if !reflect.DeepEqual(f.Keys, tt.wantKeys) {
				t.Errorf("Keys = %v, want %v", f.Keys, tt.wantKeys)
			}
		})
	}
}

func TestValidateSchema_DuplicateRequired(t *testing.T) {
	got := ValidateSchema(NewTable("emof", nil), []string{"a", "a", "b"})
	if len(got) != 1 || !reflect.DeepEqual(got[0].Keys, []string{"a", "b"}) {
		t.Errorf("ValidateSchema() = %+v, want one finding with keys [a b]", got)
	}
}

// ----------------------------------------------------------------------------
// ValidateNullability Tests
// ----------------------------------------------------------------------------

func TestValidateNullability(t *testing.T) {
	tbl := NewTable("linked", []string{"eventID", "scientificName", "eventDate"},
		Record{"eventID": "E1", "scientificName": nil, "eventDate": "2021-06-01"},
		Record{"eventID": "E2", "scientificName": "Abra alba", "eventDate": " "},
		Record{"eventID": "E3", "scientificName": "", "eventDate": "2021-06-03"},
		Record{"eventID": "E4"},
	)

	got := ValidateNullability(tbl, []string{"eventID", "scientificName", "eventDate", "countryCode", "eventID"})

	if len(got) != 2 {
		t.Fatalf("ValidateNullability() returned %d findings, want 2: %+v", len(got), got)
	}

	want := []struct {
		col  string
		rows []int
	}{
		{col: "scientificName", rows: []int{0, 2, 3}},
		{col: "eventDate", rows: []int{1, 3}},
	}
	for i, w := range want {
		f := got[i]
		if f.Severity != SeverityWarning || f.Code != CodeNullValues {
			t.Errorf("finding %d = %s/%s, want warning/null_values", i, f.Severity, f.Code)
		}
		if !reflect.DeepEqual(f.Keys, []string{w.col}) {
			t.Errorf("finding %d Keys = %v, want [%s]", i, f.Keys, w.col)
		}
		if !reflect.DeepEqual(f.Locations, w.rows) {
			t.Errorf("finding %d Locations = %v, want %v", i, f.Locations, w.rows)
		}
	}
}

func TestValidateNullability_Clean(t *testing.T) {
	tbl := NewTable("event", []string{"eventID"}, Record{"eventID": "E1"})
	if got := ValidateNullability(tbl, []string{"eventID"}); len(got) != 0 {
		t.Errorf("ValidateNullability() = %v, want none", got)
	}
}

// ----------------------------------------------------------------------------
// ValidateCoordinates Tests
// ----------------------------------------------------------------------------

func TestValidateCoordinates_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		lat, lon  any
		badLat    bool
		badLon    bool
	}{
		{name: "origin", lat: "0", lon: "0"},
		{name: "just inside", lat: "89.999999", lon: "-179.999999"},
		{name: "native floats", lat: -45.5, lon: 120.0},
		{name: "north pole excluded", lat: "90", lon: "0", badLat: true},
		{name: "south pole excluded", lat: "-90", lon: "0", badLat: true},
		{name: "antimeridian excluded", lat: "0", lon: "180", badLon: true},
		{name: "negative antimeridian excluded", lat: "0", lon: "-180.0", badLon: true},
		{name: "out of range", lat: "95", lon: "200", badLat: true, badLon: true},
		{name: "null is invalid", lat: nil, lon: "", badLat: true, badLon: true},
		{name: "text is invalid", lat: "60N", lon: "five", badLat: true, badLon: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateCoordinates(coordTable([2]any{tt.lat, tt.lon}))

			if n := len(findByCode(got, CodeInvalidLatitude)); (n == 1) != tt.badLat {
				t.Errorf("invalid_latitude findings = %d, want bad=%v", n, tt.badLat)
			}
			if n := len(findByCode(got, CodeInvalidLongitude)); (n == 1) != tt.badLon {
				t.Errorf("invalid_longitude findings = %d, want bad=%v", n, tt.badLon)
			}
			for _, f := range got {
				if f.Severity != SeverityCritical {
					t.Errorf("%s severity = %s, want critical", f.Code, f.Severity)
				}
			}
		})
	}
}

func TestValidateCoordinates_Locations(t *testing.T) {
	tbl := coordTable(
		[2]any{"60.39", "5.32"},
		[2]any{"95", "5.32"},
		[2]any{"-33.86", "151.21"},
		[2]any{"-91", "190"},
	)

	got := ValidateCoordinates(tbl)

	lat := findByCode(got, CodeInvalidLatitude)
	if len(lat) != 1 || !reflect.DeepEqual(lat[0].Locations, []int{1, 3}) {
		t.Errorf("invalid_latitude = %+v, want one finding at rows [1 3]", lat)
	}
	lon := findByCode(got, CodeInvalidLongitude)
	if len(lon) != 1 || !reflect.DeepEqual(lon[0].Locations, []int{3}) {
		t.Errorf("invalid_longitude = %+v, want one finding at row [3]", lon)
	}
	if lat[0].Subject != "occurrence" {
		t.Errorf("Subject = %q, want occurrence", lat[0].Subject)
	}
}

func TestValidateCoordinates_AbsentColumns(t *testing.T) {
	tbl := NewTable("emof", []string{"measurementValue"}, Record{"measurementValue": "1"})
	if got := ValidateCoordinates(tbl); len(got) != 0 {
		t.Errorf("ValidateCoordinates() = %v, want none for absent columns", got)
	}
}

// ----------------------------------------------------------------------------
// ValidateDepth Tests
// ----------------------------------------------------------------------------

func depthTable(rows ...[2]any) *Table {
	t := NewTable("linked", []string{ColMinDepth, ColMaxDepth})
	for _, r := range rows {
		t.Records = append(t.Records, Record{ColMinDepth: r[0], ColMaxDepth: r[1]})
	}
	return t
}

func TestValidateDepth_Missing(t *testing.T) {
	got := ValidateDepth(NewTable("linked", []string{"eventID"}, Record{"eventID": "E1"}))

	if len(got) != 1 {
		t.Fatalf("ValidateDepth() returned %d findings, want 1", len(got))
	}
	if got[0].Code != CodeDepthMissing || got[0].Severity != SeverityWarning {
		t.Errorf("finding = %s/%s, want depth_missing warning", got[0].Code, got[0].Severity)
	}
}

func TestValidateDepth_Illogical(t *testing.T) {
	got := ValidateDepth(depthTable(
		[2]any{"5", "10"},
		[2]any{"20", "10"},
		[2]any{"10", "10"},
		[2]any{30.0, "2.5"},
		[2]any{nil, "10"},
		[2]any{"50", nil},
	))

	if len(got) != 1 {
		t.Fatalf("ValidateDepth() returned %d findings, want 1: %+v", len(got), got)
	}
	f := got[0]
	if f.Code != CodeDepthIllogical || f.Severity != SeverityCritical {
		t.Errorf("finding = %s/%s, want depth_illogical critical", f.Code, f.Severity)
	}
	if !reflect.DeepEqual(f.Locations, []int{1, 3}) {
		t.Errorf("Locations = %v, want [1 3]", f.Locations)
	}
}

func TestValidateDepth_NonNumeric(t *testing.T) {
	got := ValidateDepth(depthTable(
		[2]any{"shallow", "10"},
		[2]any{"5", "deep"},
		[2]any{"1", "10m"},
		[2]any{"", nil},
	))

	nonNumeric := findByCode(got, CodeNonNumericDepth)
	if len(nonNumeric) != 2 {
		t.Fatalf("non_numeric_depth findings = %d, want 2 (one per column)", len(nonNumeric))
	}
	if !reflect.DeepEqual(nonNumeric[0].Keys, []string{ColMinDepth}) ||
		!reflect.DeepEqual(nonNumeric[0].Locations, []int{0}) {
		t.Errorf("min finding = %+v, want rows [0]", nonNumeric[0])
	}
	if !reflect.DeepEqual(nonNumeric[1].Keys, []string{ColMaxDepth}) ||
		!reflect.DeepEqual(nonNumeric[1].Locations, []int{1, 2}) {
		t.Errorf("max finding = %+v, want rows [1 2]", nonNumeric[1])
	}
	for _, f := range nonNumeric {
		if f.Severity != SeverityWarning {
			t.Errorf("severity = %s, want warning", f.Severity)
		}
	}

	// Non-numeric pairs are never compared.
	if n := len(findByCode(got, CodeDepthIllogical)); n != 0 {
		t.Errorf("depth_illogical findings = %d, want 0", n)
	}
}

func TestValidateDepth_SingleColumn(t *testing.T) {
	tbl := NewTable("linked", []string{ColMaxDepth}, Record{ColMaxDepth: "10"})
	if got := ValidateDepth(tbl); len(got) != 0 {
		t.Errorf("ValidateDepth() = %v, want none with only a valid maximum", got)
	}
}

func TestValidators_NilTable(t *testing.T) {
	if ValidateSchema(nil, []string{"a"}) != nil ||
		ValidateNullability(nil, []string{"a"}) != nil ||
		ValidateCoordinates(nil) != nil ||
		ValidateDepth(nil) != nil {
		t.Error("validators should return nil for a nil table")
	}
}
