package core

// linkage.go joins event, occurrence and emof into one denormalized table.
//
// Both joins are one-to-many inner joins. The "one" side must be unique on
// the join key and every row of the "many" side must find its parent. A
// violation on either side is reported as a cardinality_violation naming the
// failing side and key values, and no dataset is produced. Rows are never
// dropped or de-duplicated to make a join succeed.

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingKeyColumn is returned when a table lacks its declared join key.
// ValidateSchema and the orchestrator catch this before linkage runs.
var ErrMissingKeyColumn = errors.New("missing key column")

// CollisionPolicy decides what happens when both sides of a join carry the
// same non-key column with different values for a joined pair. Under
// CollisionReject the left value is kept so downstream stages can still
// run, but the critical finding fails the report.
type CollisionPolicy string

const (
	CollisionReject      CollisionPolicy = "reject"
	CollisionPreferLeft  CollisionPolicy = "prefer-left"
	CollisionPreferRight CollisionPolicy = "prefer-right"
)

// ParseCollisionPolicy converts a config string to a CollisionPolicy.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CollisionReject:
		return CollisionReject, nil
	case CollisionPreferLeft:
		return CollisionPreferLeft, nil
	case CollisionPreferRight:
		return CollisionPreferRight, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q (want reject, prefer-left or prefer-right)", s)
	}
}

// Linker performs the cardinality-checked joins.
type Linker struct {
	Collisions CollisionPolicy
}

// NewLinker creates a linker. An empty policy means CollisionReject.
func NewLinker(policy CollisionPolicy) *Linker {
	if policy == "" {
		policy = CollisionReject
	}
	return &Linker{Collisions: policy}
}

// side is one input of a join. origin maps the table's rows to rows of the
// source table named by name; nil means identity.
type side struct {
	name   string
	table  *Table
	origin []int
}

func (s side) source(i int) int {
	if s.origin == nil {
		return i
	}
	return s.origin[i]
}

type joinResult struct {
	table *Table
	left  []int
	right []int
}

const nullKey = "<null>"

// Link joins event+occurrence on eventID, then the result+emof on
// occurrenceID. It returns a nil dataset and the reasons when either join
// violates its one-to-many contract or the final row count differs from
// the emof row count. Column collisions never drop the dataset; their
// severity depends on the policy. The error is reserved for malformed input.
func (l *Linker) Link(event, occurrence, emof *Table) (*LinkedDataset, []Finding, error) {
	if event == nil || occurrence == nil || emof == nil {
		return nil, nil, ErrNilTable
	}

	occDef := MustGet(KindOccurrence)
	emofDef := MustGet(KindEmof)

	if err := requireKey(event, occDef.ParentKey); err != nil {
		return nil, nil, err
	}
	if err := requireKey(occurrence, occDef.ParentKey); err != nil {
		return nil, nil, err
	}
	if err := requireKey(occurrence, emofDef.ParentKey); err != nil {
		return nil, nil, err
	}
	if err := requireKey(emof, emofDef.ParentKey); err != nil {
		return nil, nil, err
	}

	var findings []Finding

	first, fs := l.join(
		side{name: nameOr(event, KindEvent), table: event},
		side{name: nameOr(occurrence, KindOccurrence), table: occurrence},
		occDef.ParentKey,
	)
	findings = append(findings, fs...)
	if first == nil {
		return nil, findings, nil
	}

	second, fs := l.join(
		side{name: nameOr(occurrence, KindOccurrence), table: first.table, origin: first.right},
		side{name: nameOr(emof, KindEmof), table: emof},
		emofDef.ParentKey,
	)
	findings = append(findings, fs...)
	if second == nil {
		return nil, findings, nil
	}

	if got, want := second.table.Len(), emof.Len(); got != want {
		f := newFinding(SeverityCritical, CodeCardinalityViolation, "linked",
			fmt.Sprintf("Linked dataset has %d rows but emof has %d; a non-unique key fanned out rows.", got, want))
		f.Keys = []string{fmt.Sprintf("expected=%d", want), fmt.Sprintf("actual=%d", got)}
		return nil, append(findings, f), nil
	}

	prov := make([]Provenance, second.table.Len())
	for i := range prov {
		mid := second.left[i]
		prov[i] = Provenance{
			Event:      first.left[mid],
			Occurrence: first.right[mid],
			Emof:       second.right[i],
		}
	}

	second.table.Name = "linked"
	return &LinkedDataset{Table: second.table, Provenance: prov}, findings, nil
}

func requireKey(t *Table, key string) error {
	if !t.HasColumn(key) {
		return fmt.Errorf("%w: %s.%s", ErrMissingKeyColumn, t.Name, key)
	}
	return nil
}

func nameOr(t *Table, kind TableKind) string {
	if t.Name != "" {
		return t.Name
	}
	return string(kind)
}

// join performs a one-to-many inner join with left as the "one" side.
// Returns nil when the contract is violated.
func (l *Linker) join(left, right side, key string) (*joinResult, []Finding) {
	var findings []Finding

	// Index the one side.
	leftByKey := make(map[string][]int, left.table.Len())
	for i := range left.table.Records {
		k, ok := KeyString(left.table.Value(i, key))
		if !ok {
			continue
		}
		leftByKey[k] = append(leftByKey[k], i)
	}

	var dupKeys []string
	var dupRows []int
	for k, rows := range leftByKey {
		if len(rows) < 2 {
			continue
		}
		dupKeys = append(dupKeys, k)
		for _, r := range rows {
			dupRows = append(dupRows, left.source(r))
		}
	}

	// Every row on the many side needs exactly one parent.
	rightByKey := make(map[string][]int, right.table.Len())
	orphanSet := make(map[string]bool)
	var orphanRows []int
	for i := range right.table.Records {
		k, ok := KeyString(right.table.Value(i, key))
		if !ok {
			orphanSet[nullKey] = true
			orphanRows = append(orphanRows, right.source(i))
			continue
		}
		if _, found := leftByKey[k]; !found {
			orphanSet[k] = true
			orphanRows = append(orphanRows, right.source(i))
			continue
		}
		rightByKey[k] = append(rightByKey[k], i)
	}

	if len(dupKeys) > 0 {
		sort.Strings(dupKeys)
		sort.Ints(dupRows)
		f := newFinding(SeverityCritical, CodeCardinalityViolation, left.name,
			fmt.Sprintf("Duplicate %s values in %s, which must be unique to link %s: %s.",
				key, left.name, right.name, strings.Join(dupKeys, ", ")))
		f.Keys = dupKeys
		f.Locations = dupRows
		findings = append(findings, f)
	}

	if len(orphanRows) > 0 {
		keys := sortedKeys(orphanSet)
		sort.Ints(orphanRows)
		f := newFinding(SeverityCritical, CodeCardinalityViolation, right.name,
			fmt.Sprintf("%d %s row(s) reference %s values not found in %s: %s.",
				len(orphanRows), right.name, key, left.name, strings.Join(keys, ", ")))
		f.Keys = keys
		f.Locations = orphanRows
		findings = append(findings, f)
	}

	if len(findings) > 0 {
		return nil, findings
	}

	cols, shared := mergeColumns(left.table.Columns, right.table.Columns, key)

	out := &joinResult{table: &Table{Name: left.name + "+" + right.name, Columns: cols}}
	conflicts := make(map[string][]int)

	for i := range left.table.Records {
		k, ok := KeyString(left.table.Value(i, key))
		if !ok {
			continue
		}
		for _, j := range rightByKey[k] {
			rec := l.merge(left.table.Records[i], right.table.Records[j], right.table.Columns, key, shared, func(col string) {
				conflicts[col] = append(conflicts[col], right.source(j))
			})
			out.table.Records = append(out.table.Records, rec)
			out.left = append(out.left, i)
			out.right = append(out.right, j)
		}
	}

	if len(conflicts) == 0 {
		return out, nil
	}

	return out, []Finding{l.collisionFinding(left.name, right.name, conflicts)}
}

// merge builds one output record. Shared non-key columns keep the left value
// unless it is null or the policy is CollisionPreferRight; conflict is
// called for each shared column whose non-null values differ.
func (l *Linker) merge(lrec, rrec Record, rcols []string, key string, shared map[string]bool, conflict func(string)) Record {
	rec := make(Record, len(lrec)+len(rrec))
	for c, v := range lrec {
		rec[c] = v
	}
	for _, c := range rcols {
		if c == key {
			continue
		}
		rv := rrec[c]
		if !shared[c] {
			rec[c] = rv
			continue
		}
		lv := lrec[c]
		switch {
		case IsNull(rv):
		case IsNull(lv):
			rec[c] = rv
		case !sameValue(lv, rv):
			conflict(c)
			if l.Collisions == CollisionPreferRight {
				rec[c] = rv
			}
		}
	}
	return rec
}

func (l *Linker) collisionFinding(leftName, rightName string, conflicts map[string][]int) Finding {
	cols := make([]string, 0, len(conflicts))
	for c := range conflicts {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var parts []string
	seen := make(map[int]bool)
	var rows []int
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s (%d rows)", c, len(conflicts[c])))
		for _, r := range conflicts[c] {
			if !seen[r] {
				seen[r] = true
				rows = append(rows, r)
			}
		}
	}
	sort.Ints(rows)

	subject := leftName + "/" + rightName
	var f Finding
	switch l.Collisions {
	case CollisionPreferLeft, CollisionPreferRight:
		kept := leftName
		if l.Collisions == CollisionPreferRight {
			kept = rightName
		}
		f = newFinding(SeverityInfo, CodeColumnCollision, subject,
			fmt.Sprintf("Columns differ between %s and %s: %s; kept values from %s.",
				leftName, rightName, strings.Join(parts, ", "), kept))
	default:
		f = newFinding(SeverityCritical, CodeColumnCollision, subject,
			fmt.Sprintf("Columns differ between %s and %s: %s; linking would lose values, so the dataset is rejected.",
				leftName, rightName, strings.Join(parts, ", ")))
	}
	f.Keys = cols
	f.Locations = rows
	return f
}

// mergeColumns returns left columns followed by right columns not already
// present, and the set of non-key columns present on both sides.
func mergeColumns(left, right []string, key string) ([]string, map[string]bool) {
	cols := make([]string, 0, len(left)+len(right))
	inLeft := make(map[string]bool, len(left))
	for _, c := range left {
		inLeft[c] = true
		cols = append(cols, c)
	}
	shared := make(map[string]bool)
	for _, c := range right {
		if c == key {
			continue
		}
		if inLeft[c] {
			shared[c] = true
			continue
		}
		cols = append(cols, c)
	}
	return cols, shared
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
