package core_test

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dwcheck/internal/core"
	_ "github.com/JonMunkholm/dwcheck/internal/core/tables"
)

var (
	eventColumns = []string{
		"eventID", "eventDate", "decimalLatitude", "decimalLongitude",
		"countryCode", "geodeticDatum", "minimumDepthInMeters", "maximumDepthInMeters",
	}
	occurrenceColumns = []string{
		"occurrenceID", "eventID", "scientificName", "eventDate",
		"decimalLatitude", "decimalLongitude", "basisOfRecord", "occurrenceStatus",
	}
	emofColumns = []string{
		"eventID", "occurrenceID", "measurementValue", "measurementType", "measurementUnit",
	}
)

// site is the location and date shared by an event and its occurrences.
type site struct {
	id       string
	date     string
	lat, lon string
}

var sites = map[string]site{
	"E1": {id: "E1", date: "2021-06-01", lat: "60.39", lon: "5.32"},
	"E2": {id: "E2", date: "2021-06-02", lat: "-33.86", lon: "151.21"},
	"E3": {id: "E3", date: "2021-06-03", lat: "0", lon: "0"},
}

func eventRow(id string) core.Record {
	s := sites[id]
	return core.Record{
		"eventID":              s.id,
		"eventDate":            s.date,
		"decimalLatitude":      s.lat,
		"decimalLongitude":     s.lon,
		"countryCode":          "NO",
		"geodeticDatum":        "WGS84",
		"minimumDepthInMeters": "5",
		"maximumDepthInMeters": "10",
	}
}

func occurrenceRow(occID, eventID, name string) core.Record {
	s := sites[eventID]
	return core.Record{
		"occurrenceID":     occID,
		"eventID":          eventID,
		"scientificName":   name,
		"eventDate":        s.date,
		"decimalLatitude":  s.lat,
		"decimalLongitude": s.lon,
		"basisOfRecord":    "HumanObservation",
		"occurrenceStatus": "present",
	}
}

func emofRow(occID, eventID string, value float64) core.Record {
	return core.Record{
		"eventID":          eventID,
		"occurrenceID":     occID,
		"measurementValue": fmt.Sprint(value),
		"measurementType":  "length",
		"measurementUnit":  "cm",
	}
}

// goodDataset has 2 events, 3 occurrences and 5 measurements, all valid.
func goodDataset() core.Dataset {
	return core.Dataset{
		Event: core.NewTable("event", eventColumns,
			eventRow("E1"),
			eventRow("E2"),
		),
		Occurrence: core.NewTable("occurrence", occurrenceColumns,
			occurrenceRow("O1", "E1", "Gadus morhua"),
			occurrenceRow("O2", "E1", "Abra alba"),
			occurrenceRow("O3", "E2", "Gadus morhua"),
		),
		Emof: core.NewTable("emof", emofColumns,
			emofRow("O1", "E1", 12.5),
			emofRow("O1", "E1", 13),
			emofRow("O2", "E1", 2.1),
			emofRow("O3", "E2", 40),
			emofRow("O3", "E2", 41.5),
		),
	}
}

// withoutColumn returns a copy of t with col removed from the header and records.
func withoutColumn(t *core.Table, col string) *core.Table {
	out := core.NewTable(t.Name, nil)
	for _, c := range t.Columns {
		if c != col {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, r := range t.Records {
		rec := make(core.Record, len(r))
		for k, v := range r {
			if k != col {
				rec[k] = v
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// fakeResolver answers from a fixed table and records what it was asked.
type fakeResolver struct {
	results  map[string]core.TaxonResult
	findings []core.Finding
	calls    [][]string
}

func (f *fakeResolver) Lookup(_ context.Context, names []string) (map[string]core.TaxonResult, []core.Finding) {
	f.calls = append(f.calls, append([]string(nil), names...))
	out := make(map[string]core.TaxonResult, len(names))
	for _, n := range names {
		r, ok := f.results[n]
		if !ok {
			r = core.TaxonResult{Name: n, Status: core.TaxonNotFound}
		}
		out[n] = r
	}
	return out, f.findings
}
