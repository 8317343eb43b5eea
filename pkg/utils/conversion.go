package utils

import (
	"fmt"
	"strconv"
	"time"
)

// NormalizeDBValue turns raw driver scan values into plain Go types for
// display and export. The MySQL text protocol hands numerics and timestamps
// back as []byte; anything that parses as a time or a number is converted,
// the rest becomes a string.
func NormalizeDBValue(val interface{}) interface{} {
	b, ok := val.([]byte)
	if !ok {
		return val
	}
	if t, ok := ParseDBTime(b); ok {
		return t
	}
	s := string(b)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ToFloat converts common scan types to float64, returning an error for
// anything non-numeric.
func ToFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", val)
	}
}

// ParseDBTime parses the timestamp formats MySQL drivers hand back when
// parseTime is off or the column came through a raw scan.
func ParseDBTime(raw []byte) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	s := string(raw)
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
