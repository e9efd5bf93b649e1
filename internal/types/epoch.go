package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ISO8601Millis matches the millisecond precision UTC layout used by the quality platform.
const ISO8601Millis = "2006-01-02T15:04:05.000Z07:00"

// EpochMillis is a unix timestamp in milliseconds. It decodes from a JSON
// number or a numeric string; Valid is false when the field was absent or null.
type EpochMillis struct {
	Millis int64
	Valid  bool
}

// Bounds of instants that render as a four digit year.
var (
	minEpochMillis = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxEpochMillis = time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()
)

func (e *EpochMillis) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = EpochMillis{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*e = EpochMillis{}
			return nil
		}
		b = []byte(s)
	}
	v, err := ParseEpochMillis(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseEpochMillis parses an integer or float millisecond timestamp and
// rejects values outside years 0000-9999.
func ParseEpochMillis(s string) (EpochMillis, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return EpochMillis{}, fmt.Errorf("epoch millis: %q is not a number", s)
		}
		if f < float64(minEpochMillis) || f > float64(maxEpochMillis) {
			return EpochMillis{}, fmt.Errorf("epoch millis: %s out of range", s)
		}
		n = int64(f)
	}
	if n < minEpochMillis || n > maxEpochMillis {
		return EpochMillis{}, fmt.Errorf("epoch millis: %d out of range", n)
	}
	return EpochMillis{Millis: n, Valid: true}, nil
}

func (e EpochMillis) MarshalJSON() ([]byte, error) {
	if !e.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(e.Millis, 10)), nil
}

func (e EpochMillis) Time() time.Time {
	return time.UnixMilli(e.Millis).UTC()
}

// ISO8601 renders the instant as e.g. 2024-03-01T09:30:00.123Z.
func (e EpochMillis) ISO8601() string {
	return e.Time().Format(ISO8601Millis)
}
