package profile

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field is an optional scalar attribute as delivered by a profile source.
// The raw value is kept verbatim and coerced on read, so a malformed value
// only ever degrades to the caller's default.
type Field struct {
	raw string
	set bool
}

// Raw wraps source text. Blank text is treated as absent.
func Raw(s string) Field {
	s = strings.TrimSpace(s)
	if s == "" {
		return Field{}
	}
	return Field{raw: s, set: true}
}

// Num wraps a numeric value.
func Num(v float64) Field {
	return Field{raw: strconv.FormatFloat(v, 'f', -1, 64), set: true}
}

func (f Field) Present() bool { return f.set }

func (f Field) String() string { return f.raw }

// Float returns the value as float64, or def when absent, unparsable or not finite.
func (f Field) Float(def float64) float64 {
	if v, ok := f.number(); ok {
		return v
	}
	return def
}

// Int returns the value as int. Integer text parses directly; a finite
// float truncates toward zero; anything else yields def.
func (f Field) Int(def int) int {
	if !f.set {
		return def
	}
	if v, err := strconv.ParseInt(f.raw, 10, 64); err == nil {
		return int(v)
	}
	v, ok := f.number()
	if !ok || math.Abs(v) >= math.MaxInt64 {
		return def
	}
	return int(math.Trunc(v))
}

func (f Field) number() (float64, bool) {
	if !f.set {
		return 0, false
	}
	v, err := strconv.ParseFloat(f.raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// value is the loosely typed form used for template variables and snapshots.
func (f Field) value() any {
	if v, ok := f.number(); ok {
		return v
	}
	return f.raw
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value())
}

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = Field{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Raw(s)
		return nil
	}
	*f = Raw(string(b))
	return nil
}
