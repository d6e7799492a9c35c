package core

// convert.go provides null and numeric coercion for cell values.
//
// Cells arrive as whatever the loader produced: strings from CSV, float64 or
// int64 from a database, nil for missing values. The rules mirror
// "coerce, don't fail" numeric parsing:
//   - nil, NaN, and blank strings are null
//   - numbers are numeric
//   - strings are numeric only if they are a plain decimal or scientific literal
//
// ToFloat8 returns pgtype.Float8 because the Postgres loader reads NUMERIC
// columns as pgtype.Numeric, whose Float64Value already yields a Float8;
// CSV strings are parsed into the same type. Valid=false marks null or
// non-numeric input, so callers can tell numeric from non-numeric without a
// second error.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// IsNull reports whether a cell value is null: nil, NaN, or a blank string.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case pgtype.Float8:
		return !x.Valid
	case pgtype.Text:
		return !x.Valid
	default:
		return false
	}
}

// ToFloat8 converts a cell value to pgtype.Float8.
// Returns invalid for null and for values that cannot be read as a number.
func ToFloat8(v any) pgtype.Float8 {
	switch x := v.(type) {
	case nil:
		return pgtype.Float8{Valid: false}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return pgtype.Float8{Valid: false}
		}
		return pgtype.Float8{Float64: x, Valid: true}
	case float32:
		return ToFloat8(float64(x))
	case int:
		return pgtype.Float8{Float64: float64(x), Valid: true}
	case int32:
		return pgtype.Float8{Float64: float64(x), Valid: true}
	case int64:
		return pgtype.Float8{Float64: float64(x), Valid: true}
	case pgtype.Float8:
		return x
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil {
			return pgtype.Float8{Valid: false}
		}
		return f
	case string:
		return parseFloat8(x)
	case pgtype.Text:
		if !x.Valid {
			return pgtype.Float8{Valid: false}
		}
		return parseFloat8(x.String)
	default:
		return pgtype.Float8{Valid: false}
	}
}

func parseFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// KeyString renders a key cell for joining and reporting.
// Null keys return ok=false. Whole floats render without a fraction so a
// numeric 7 and a textual "7" join.
func KeyString(v any) (string, bool) {
	if IsNull(v) {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case pgtype.Text:
		return x.String, true
	case float64, float32, int, int32, int64, pgtype.Float8, pgtype.Numeric:
		f := ToFloat8(x)
		if !f.Valid {
			return fmt.Sprint(x), true
		}
		if f.Float64 == math.Trunc(f.Float64) && math.Abs(f.Float64) < 1e15 {
			return strconv.FormatInt(int64(f.Float64), 10), true
		}
		return strconv.FormatFloat(f.Float64, 'g', -1, 64), true
	default:
		return fmt.Sprint(x), true
	}
}

// sameValue compares two non-null cells. Numeric cells compare numerically,
// anything else compares as text.
func sameValue(a, b any) bool {
	fa, fb := ToFloat8(a), ToFloat8(b)
	if fa.Valid && fb.Valid {
		return fa.Float64 == fb.Float64
	}
	ka, _ := KeyString(a)
	kb, _ := KeyString(b)
	return ka == kb
}
