// Package loader reads Darwin Core tables into core.Table values, either
// from CSV files or from PostgreSQL tables.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// Default file names of a dataset directory.
const (
	EventFile      = "event_bd.csv"
	OccurrenceFile = "occurrence_bd.csv"
	EmofFile       = "emof_bd.csv"
)

var (
	ErrEmptyFile  = errors.New("empty file")
	ErrInvalidCSV = errors.New("invalid csv")
)

// naTokens are the cell values read as missing, matching what common data
// tooling writes for null.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNA reports whether a raw cell is a missing-value token.
func IsNA(cell string) bool {
	return naTokens[strings.TrimSpace(cell)]
}

// CSVReader parses CSV input into tables.
type CSVReader struct {
	// MaxBytes bounds each file; zero means unlimited.
	MaxBytes int64
	Logger   *slog.Logger
}

// ReadTable parses r with no size limit.
func ReadTable(name string, r io.Reader) (*core.Table, error) {
	return CSVReader{}.Read(name, r)
}

// Read parses a header row followed by data rows. Missing-value tokens
// become nil; every other cell is kept as its raw string. Short rows are
// padded with nil.
func (c CSVReader) Read(name string, r io.Reader) (*core.Table, error) {
	cr := csv.NewReader(wrapInput(r, c.MaxBytes))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if err != nil {
		return nil, wrapReadErr(name, err)
	}

	columns, err := cleanHeader(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	table := core.NewTable(name, columns)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapReadErr(name, err)
		}
		if len(row) > len(columns) {
			return nil, fmt.Errorf("%s: %w: line %d has %d fields, header has %d",
				name, ErrInvalidCSV, line, len(row), len(columns))
		}

		rec := make(core.Record, len(columns))
		for i, col := range columns {
			if i >= len(row) || IsNA(row[i]) {
				rec[col] = nil
				continue
			}
			rec[col] = row[i]
		}
		table.Records = append(table.Records, rec)
	}

	rows, cols := table.Shape()
	c.logger().Info("table loaded", "table", name, "rows", rows, "columns", cols)
	return table, nil
}

func (c CSVReader) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func wrapReadErr(name string, err error) error {
	if errors.Is(err, ErrFileTooLarge) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %v", name, ErrInvalidCSV, err)
}

// cleanHeader trims header cells and rejects blank or repeated names.
func cleanHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		col := strings.TrimSpace(h)
		if col == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidCSV, i+1)
		}
		if seen[col] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidCSV, col)
		}
		seen[col] = true
		columns[i] = col
	}
	return columns, nil
}

// ReadFile parses the CSV file at path.
func (c CSVReader) ReadFile(name, path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return c.Read(name, f)
}

// LoadDir reads event_bd.csv, occurrence_bd.csv and emof_bd.csv from dir.
func (c CSVReader) LoadDir(dir string) (core.Dataset, error) {
	var ds core.Dataset
	var g errgroup.Group

	for _, f := range []struct {
		kind core.TableKind
		file string
		dst  **core.Table
	}{
		{core.KindEvent, EventFile, &ds.Event},
		{core.KindOccurrence, OccurrenceFile, &ds.Occurrence},
		{core.KindEmof, EmofFile, &ds.Emof},
	} {
		g.Go(func() error {
			t, err := c.ReadFile(string(f.kind), filepath.Join(dir, f.file))
			if err != nil {
				return err
			}
			*f.dst = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return core.Dataset{}, err
	}
	return ds, nil
}
