package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Put stores *v under key when v is non-nil. Absent provider fields stay
// absent from Record.Data rather than appearing as zero values.
func Put[T any](data map[string]any, key string, v *T) {
	if v != nil {
		data[key] = *v
	}
}

// PutSlice stores s under key when the provider sent it.
func PutSlice[T any](data map[string]any, key string, s []T) {
	if s != nil {
		data[key] = s
	}
}

// PutRaw stores a raw JSON value under key, decoded generically.
func PutRaw(data map[string]any, key string, raw json.RawMessage) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil {
		data[key] = v
	}
}

// Value returns *v or the zero value.
func Value[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

// Int is an integer some providers send as a JSON number and others as a
// numeric string.
type Int int

// UnmarshalJSON accepts 12, 12.0, "12" and null.
func (n *Int) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if i, err := strconv.Atoi(s); err == nil {
		*n = Int(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) || math.IsNaN(f) {
		return fmt.Errorf("httpapi.Int: %q is not a number", s)
	}
	// Out-of-range values saturate instead of wrapping.
	switch {
	case f >= math.MaxInt:
		*n = Int(math.MaxInt)
	case f <= math.MinInt:
		*n = Int(math.MinInt)
	default:
		*n = Int(f)
	}
	return nil
}
