package loader

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// fakeRows is an in-memory pgx.Rows.
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	pos    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("not implemented") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

// fakeDB answers SELECT * queries from a table map keyed by SQL.
type fakeDB struct {
	tables  map[string]*fakeRows
	queries []string
}

func (db *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, sql)
	rows, ok := db.tables[sql]
	if !ok {
		return nil, &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	}
	return rows, nil
}

func fields(names ...string) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(names))
	for i, n := range names {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}

func TestPostgresSource_Load(t *testing.T) {
	when := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	db := &fakeDB{tables: map[string]*fakeRows{
		`SELECT * FROM "dwc"."event"`: {
			fields: fields("eventID", "eventDate", "decimalLatitude", "minimumDepthInMeters"),
			values: [][]any{
				{"E1", when, pgtype.Numeric{Int: big.NewInt(1050), Exp: -2, Valid: true}, int32(5)},
				{"E2", nil, float32(1.5), nil},
			},
		},
		`SELECT * FROM "occurrence"`: {
			fields: fields("occurrenceID", "eventID"),
			values: [][]any{{[16]byte(id), "E1"}},
		},
		`SELECT * FROM "emof"`: {
			fields: fields("occurrenceID", "measurementValue"),
			values: [][]any{{id.String(), []byte("12")}},
		},
	}}

	src := NewPostgresSource(db, TableNames{Event: "dwc.event", Occurrence: "occurrence", Emof: "emof"})
	ds, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, ds.Event.Len())
	assert.Equal(t, "event", ds.Event.Name)
	assert.Equal(t, []string{"eventID", "eventDate", "decimalLatitude", "minimumDepthInMeters"}, ds.Event.Columns)
	assert.Equal(t, "2020-01-01T00:00:00Z", ds.Event.Value(0, "eventDate"))
	assert.Equal(t, 10.5, ds.Event.Value(0, "decimalLatitude"))
	assert.Equal(t, int64(5), ds.Event.Value(0, "minimumDepthInMeters"))
	assert.Nil(t, ds.Event.Value(1, "eventDate"))
	assert.Equal(t, 1.5, ds.Event.Value(1, "decimalLatitude"))

	assert.Equal(t, id.String(), ds.Occurrence.Value(0, "occurrenceID"))
	assert.Equal(t, "12", ds.Emof.Value(0, "measurementValue"))

	// uuid keys from both sources join as the same string.
	occKey, _ := core.KeyString(ds.Occurrence.Value(0, "occurrenceID"))
	emofKey, _ := core.KeyString(ds.Emof.Value(0, "occurrenceID"))
	assert.Equal(t, occKey, emofKey)
}

func TestPostgresSource_MissingTable(t *testing.T) {
	db := &fakeDB{tables: map[string]*fakeRows{}}
	src := NewPostgresSource(db, TableNames{Event: "event", Occurrence: "occurrence", Emof: "emof"})

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Equal(t, "DB001", core.MapError(err).Code)
	assert.Len(t, db.queries, 1, "load stops at the first failing table")
}

func TestPostgresSource_UnconfiguredTable(t *testing.T) {
	src := NewPostgresSource(&fakeDB{}, TableNames{Event: "event"})

	_, err := src.LoadTable(context.Background(), core.KindOccurrence, "")
	assert.ErrorIs(t, err, core.ErrNilTable)
}

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "event", want: `"event"`},
		{in: "dwc.event", want: `"dwc"."event"`},
		{in: `we"ird`, want: `"we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteTable(tt.in))
		})
	}
}
