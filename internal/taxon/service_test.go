package taxon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dwcheck/internal/core"
	_ "github.com/JonMunkholm/dwcheck/internal/core/tables"
)

// dataset builds a linked-ready dataset with one occurrence per name, all
// on a single event.
func dataset(names ...string) core.Dataset {
	event := core.NewTable("event",
		[]string{"eventID", "eventDate", "decimalLatitude", "decimalLongitude", "countryCode", "geodeticDatum",
			"minimumDepthInMeters", "maximumDepthInMeters"},
		core.Record{
			"eventID": "E1", "eventDate": "2021-06-01", "decimalLatitude": "60.39", "decimalLongitude": "5.32",
			"countryCode": "NO", "geodeticDatum": "WGS84", "minimumDepthInMeters": "5", "maximumDepthInMeters": "10",
		},
	)
	occ := core.NewTable("occurrence",
		[]string{"occurrenceID", "eventID", "scientificName", "eventDate", "decimalLatitude", "decimalLongitude",
			"basisOfRecord", "occurrenceStatus"})
	emof := core.NewTable("emof",
		[]string{"eventID", "occurrenceID", "measurementValue", "measurementType", "measurementUnit"})

	for i, n := range names {
		id := string(rune('A' + i))
		occ.Records = append(occ.Records, core.Record{
			"occurrenceID": id, "eventID": "E1", "scientificName": n,
			"eventDate": "2021-06-01", "decimalLatitude": "60.39", "decimalLongitude": "5.32",
			"basisOfRecord": "HumanObservation", "occurrenceStatus": "present",
		})
		emof.Records = append(emof.Records, core.Record{
			"eventID": "E1", "occurrenceID": id, "measurementValue": "1",
			"measurementType": "count", "measurementUnit": "individuals",
		})
	}
	return core.Dataset{Event: event, Occurrence: occ, Emof: emof}
}

func runService(t *testing.T, c *Client, ds core.Dataset) *core.Report {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := core.NewService(core.WithTaxonResolver(c), core.WithLogger(quiet))
	report, err := svc.Validate(context.Background(), ds)
	require.NoError(t, err)
	return report
}

func TestService_UnknownNameIsUnmatched(t *testing.T) {
	fake := newFakeWorms()
	c, _ := newTestClient(t, fake, DefaultConfig())

	report := runService(t, c, dataset("Gadus morhua", "Abra alba", "Notarealus speciesus", "Gadus morhua"))

	unmatched := report.ByCode(core.CodeTaxonUnmatched)
	require.Len(t, unmatched, 1)
	assert.Equal(t, []string{"Notarealus speciesus"}, unmatched[0].Keys)
	assert.Equal(t, []int{2}, unmatched[0].Locations)
	assert.Equal(t, []core.Code{core.CodeTaxonUnmatched}, report.Codes())
	assert.True(t, report.Passed())

	// Three distinct names fit in one batch.
	assert.Equal(t, 1, fake.requestCount())
}

func TestService_UnacceptedName(t *testing.T) {
	fake := newFakeWorms()
	c, _ := newTestClient(t, fake, DefaultConfig())

	report := runService(t, c, dataset("Merlangius merlangus euxinus"))

	unaccepted := report.ByCode(core.CodeTaxonUnaccepted)
	require.Len(t, unaccepted, 1)
	assert.Contains(t, unaccepted[0].Message, "Merlangius merlangus")
	assert.Contains(t, unaccepted[0].Message, "unaccepted")
	assert.Contains(t, unaccepted[0].Message, "id=126438")
}

func TestService_ServiceDownDegradesWithoutFailing(t *testing.T) {
	fake := newFakeWorms()
	fake.fail = []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable}
	c, sl := newTestClient(t, fake, DefaultConfig())

	report := runService(t, c, dataset("Gadus morhua", "Notarealus speciesus"))

	assert.Empty(t, report.ByCode(core.CodeTaxonUnmatched))
	degraded := report.ByCode(core.CodeTaxonomyDegraded)
	require.Len(t, degraded, 1)
	assert.ElementsMatch(t, []string{"Gadus morhua", "Notarealus speciesus"}, degraded[0].Keys)
	assert.True(t, report.Passed())
	assert.Equal(t, 3, fake.requestCount())
	assert.Len(t, sl.all(), 2)
}
