package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

const cleanDir = "../../internal/application/testdata/clean"

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("TAXON_ENABLED", "false")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file="}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// copyClean copies the clean fixture into a temp dir so a test can alter it.
func copyClean(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"event_bd.csv", "occurrence_bd.csv", "emof_bd.csv"} {
		b, err := os.ReadFile(filepath.Join(cleanDir, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o600))
	}
	return dir
}

func TestTables(t *testing.T) {
	out, _, err := runCLI(t, "tables")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "event"))
	assert.Contains(t, lines[2], "event.eventID")
	assert.True(t, strings.HasPrefix(lines[3], "emof"))
}

func TestValidate_CleanText(t *testing.T) {
	out, _, err := runCLI(t, "validate", "--dir", cleanDir, "--no-taxonomy")
	require.NoError(t, err)

	assert.Contains(t, out, "tables: event=2 occurrence=3 emof=5 linked=5")
	assert.Contains(t, out, "taxonomy_skipped")
	assert.Contains(t, out, "Passing: true")
}

func TestValidate_CleanJSON(t *testing.T) {
	out, stderr, err := runCLI(t, "validate", "--dir", cleanDir, "--json")
	require.NoError(t, err)

	var report core.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, core.Counts{Event: 2, Occurrence: 3, Emof: 5, Linked: 5}, report.Counts)
	assert.NotContains(t, out, "level=", "logs must not leak into the report")
	assert.Contains(t, stderr, "validation finished")
}

func TestValidate_CriticalFindingFails(t *testing.T) {
	dir := copyClean(t)
	f, err := os.OpenFile(filepath.Join(dir, "event_bd.csv"), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("E1,2021-06-03,60.1,5.1,NO,WGS84,1,2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, _, err := runCLI(t, "validate", "--dir", dir)
	assert.True(t, errors.Is(err, errFailed))
	assert.Contains(t, out, "CRITICAL cardinality_violation")
	assert.Contains(t, out, "Passing: false")
}

func TestValidate_FlagErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no source", args: []string{"validate"}, wantErr: "dir"},
		{name: "both sources", args: []string{"validate", "--dir", cleanDir, "--postgres"}, wantErr: "postgres"},
		{name: "postgres without url", args: []string{"validate", "--postgres"}, wantErr: "DATABASE_URL"},
		{name: "stray argument", args: []string{"validate", "--dir", cleanDir, "extra"}, wantErr: "extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.False(t, errors.Is(err, errFailed))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	dir := copyClean(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "emof_bd.csv")))

	_, _, err := runCLI(t, "validate", "--dir", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "load dataset")
}

func TestWriteText_CapsLists(t *testing.T) {
	locations := make([]int, 15)
	for i := range locations {
		locations[i] = i
	}
	report := &core.Report{
		RunID:    "run-1",
		Duration: 1500 * time.Microsecond,
		Stages: []core.StageResult{
			{Stage: core.StageSchemaCheck, Status: core.StageCompleted},
			{Stage: core.StageLinkage, Status: core.StageFailed, Reason: "cardinality"},
			{Stage: core.StageDone, Status: core.StageCompleted},
		},
		Findings: []core.Finding{
			core.NewFinding(core.SeverityWarning, core.CodeNullValues, "event", "Columns have missing values."),
		},
	}
	report.Findings[0].Locations = locations
	report.Findings[0].Keys = []string{"E1"}

	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, report))
	out := buf.String()

	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "stage linkage: failed (cardinality)")
	assert.NotContains(t, out, "stage done")
	assert.Contains(t, out, "WARNING  null_values [event] Columns have missing values.")
	assert.Contains(t, out, "rows: 0, 1, 2, 3, 4, 5, 6, 7, 8, 9 ... (5 more)")
	assert.Contains(t, out, "keys: E1")
	assert.Contains(t, out, "Passing: true (0 critical, 1 warning, 0 info) in 2ms")
}
