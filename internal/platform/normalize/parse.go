package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrInvalidDate is returned when a value cannot be read as a date.
var ErrInvalidDate = errors.New("invalid date")

// SafeJSONParse reads v as a T. A string is unmarshalled as JSON; a value
// that already is a T is returned unchanged. Anything else, including nil
// and malformed JSON, yields def.
func SafeJSONParse[T any](v any, def T) T {
	switch t := v.(type) {
	case nil:
		return def
	case T:
		return t
	case string:
		var out T
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return def
		}
		return out
	case []byte:
		var out T
		if err := json.Unmarshal(t, &out); err != nil {
			return def
		}
		return out
	}
	return def
}

// TryParseDate reads v as a point in time. It accepts time.Time, date
// strings in any layout dateparse recognizes and millisecond Unix
// timestamps. Strings without a zone are read as UTC. Numeric strings are
// rejected so cells such as "2024" or "62.5" stay numbers.
func TryParseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			break
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			break
		}
		if d, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return d, nil
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return time.UnixMilli(int64(t)).UTC(), nil
		}
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// TryParseDateOr is TryParseDate with a fallback for unreadable input.
func TryParseDateOr(v any, def time.Time) time.Time {
	d, err := TryParseDate(v)
	if err != nil {
		return def
	}
	return d
}
