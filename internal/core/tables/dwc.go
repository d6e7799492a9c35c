package tables

import "github.com/JonMunkholm/dwcheck/internal/core"

func init() {
	registerEvent()
	registerOccurrence()
	registerEmof()
}

func registerEvent() {
	core.Register(core.KindDefinition{
		Kind:  core.KindEvent,
		Order: 0,
		RequiredColumns: []string{
			"eventID",
			"eventDate",
			"decimalLatitude",
			"decimalLongitude",
			"countryCode",
			"geodeticDatum",
		},
		PrimaryKey: "eventID",
	})
}

func registerOccurrence() {
	core.Register(core.KindDefinition{
		Kind:  core.KindOccurrence,
		Order: 1,
		RequiredColumns: []string{
			"occurrenceID",
			"scientificName",
			"eventDate",
			"decimalLatitude",
			"decimalLongitude",
			"basisOfRecord",
			"occurrenceStatus",
		},
		PrimaryKey: "occurrenceID",
		ParentKind: core.KindEvent,
		ParentKey:  "eventID",
	})
}

func registerEmof() {
	core.Register(core.KindDefinition{
		Kind:  core.KindEmof,
		Order: 2,
		RequiredColumns: []string{
			"eventID",
			"occurrenceID",
			"measurementValue",
			"measurementType",
			"measurementUnit",
		},
		ParentKind: core.KindOccurrence,
		ParentKey:  "occurrenceID",
	})
}
