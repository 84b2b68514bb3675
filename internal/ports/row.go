package ports

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// String returns the column as text. Missing and NULL columns report ok=false.
func (r Row) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}

	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02"), true
		}
		return x.Format(time.RFC3339), true
	default:
		return fmt.Sprint(x), true
	}
}

// Float coerces the column to a finite number. Missing, NULL and unparseable
// values report ok=false.
func (r Row) Float(col string) (float64, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return 0, false
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case []byte:
		p, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int is Float truncated toward zero.
func (r Row) Int(col string) (int, bool) {
	f, ok := r.Float(col)
	if !ok {
		return 0, false
	}
	return int(f), true
}
