package tree

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the scalar type of a Value.
type Kind uint8

const (
	// KindString is an uninterpreted text value.
	KindString Kind = iota

	// KindInt is an integer value.
	KindInt

	// KindFloat is a floating-point value.
	KindFloat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar held at a tree node. Instruments speak text,
// so every value has a canonical text form (String) used for hardware
// commands and change detection.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
}

// StringValue returns a text value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// IntValue returns an integer value.
func IntValue(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// FloatValue returns a floating-point value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// ParseValue interprets instrument response text as a typed value.
// The parse chain is ordered: integer, then float (floats with an
// integral value collapse to integers), then plain text.
func ParseValue(text string) Value {
	trimmed := strings.TrimSpace(text)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if f == math.Trunc(f) && math.Abs(f) < float64(math.MaxInt64) {
			return IntValue(int64(f))
		}
		return FloatValue(f)
	}
	return StringValue(trimmed)
}

// Kind returns the scalar type tag.
func (v Value) Kind() Kind {
	return v.kind
}

// String returns the canonical text form sent to hardware.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.str
	}
}

// Int returns the value as an integer.
// The second return is false for non-integer values.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the value as a float. Integer values convert.
// The second return is false for text values.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal reports whether two values have the same canonical text form.
func (v Value) Equal(o Value) bool {
	return v.String() == o.String()
}
