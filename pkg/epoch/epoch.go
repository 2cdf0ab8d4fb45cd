// Package epoch normalises the mixed timestamp representations found in stored
// rows and client payloads into unix seconds.
package epoch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MillisecondThreshold separates millisecond from second epochs. 10^12 seconds is
// roughly year 33658, so anything above it is a millisecond value.
const MillisecondThreshold = 1_000_000_000_000

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Seconds converts an integer epoch in either seconds or milliseconds to seconds.
func Seconds(v int64) int64 {
	if v > MillisecondThreshold || v < -MillisecondThreshold {
		return v / 1000
	}
	return v
}

// Normalize accepts numbers, numeric strings, date strings, json.Number and
// time.Time values and returns unix seconds.
func Normalize(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("timestamp is empty")
	case int:
		return Seconds(int64(t)), nil
	case int32:
		return Seconds(int64(t)), nil
	case int64:
		return Seconds(t), nil
	case uint32:
		return Seconds(int64(t)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("timestamp is not finite")
		}
		return Seconds(int64(t)), nil
	case json.Number:
		return Parse(t.String())
	case string:
		return Parse(t)
	case time.Time:
		if t.IsZero() {
			return 0, fmt.Errorf("timestamp is zero")
		}
		return t.Unix(), nil
	case *time.Time:
		if t == nil {
			return 0, fmt.Errorf("timestamp is empty")
		}
		return Normalize(*t)
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// Parse reads a numeric epoch or one of the accepted date layouts.
func Parse(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("timestamp is empty")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Seconds(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Normalize(f)
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised timestamp %q", raw)
}

// Time converts a stored epoch (seconds or milliseconds) into a time.Time in loc.
func Time(v int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(Seconds(v), 0).In(loc)
}
