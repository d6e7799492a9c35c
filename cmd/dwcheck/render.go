package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// maxListed caps how many rows or keys a text line lists.
const maxListed = 10

// writeText renders a report as plain lines, one per finding.
func writeText(w io.Writer, r *core.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s\n", r.RunID)
	fmt.Fprintf(&b, "tables: event=%d occurrence=%d emof=%d linked=%d\n",
		r.Counts.Event, r.Counts.Occurrence, r.Counts.Emof, r.Counts.Linked)

	for _, s := range r.Stages {
		if s.Stage == core.StageDone {
			continue
		}
		line := fmt.Sprintf("stage %s: %s", s.Stage, s.Status)
		if s.Reason != "" {
			line += " (" + s.Reason + ")"
		}
		b.WriteString(line + "\n")
	}

	if len(r.Findings) > 0 {
		b.WriteString("\n")
	}
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "%-8s %s [%s] %s\n", strings.ToUpper(string(f.Severity)), f.Code, f.Subject, f.Message)
		if len(f.Locations) > 0 {
			fmt.Fprintf(&b, "         rows: %s\n", listInts(f.Locations))
		}
		if len(f.Keys) > 0 {
			fmt.Fprintf(&b, "         keys: %s\n", listStrings(f.Keys))
		}
		if f.Action != "" {
			fmt.Fprintf(&b, "         fix:  %s\n", f.Action)
		}
	}

	counts := r.CountBySeverity()
	fmt.Fprintf(&b, "\nPassing: %t (%d critical, %d warning, %d info) in %s\n",
		r.Passed(),
		counts[core.SeverityCritical], counts[core.SeverityWarning], counts[core.SeverityInfo],
		r.Duration.Round(time.Millisecond))

	_, err := io.WriteString(w, b.String())
	return err
}

func listInts(v []int) string {
	s := make([]string, 0, min(len(v), maxListed))
	for _, n := range v[:min(len(v), maxListed)] {
		s = append(s, strconv.Itoa(n))
	}
	return joinCapped(s, len(v))
}

func listStrings(v []string) string {
	return joinCapped(v[:min(len(v), maxListed)], len(v))
}

func joinCapped(shown []string, total int) string {
	out := strings.Join(shown, ", ")
	if total > len(shown) {
		out += fmt.Sprintf(" ... (%d more)", total-len(shown))
	}
	return out
}
