package forms

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Value is a numeric form field as read from user input. NaN means nothing parseable was entered.
type Value float64

// NaN is the value of an empty or unparseable field
var NaN = Value(math.NaN())

// Present reports whether the field holds a number
func (v Value) Present() bool {
	return !math.IsNaN(float64(v))
}

// Truthy reports whether the field holds a non-zero number. Zero and NaN are falsy.
func (v Value) Truthy() bool {
	return v.Present() && v != 0
}

// Float returns the raw value
func (v Value) Float() float64 {
	return float64(v)
}

var (
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	hexPrefix   = regexp.MustCompile(`^([+-]?)0[xX]([0-9a-fA-F]+)`)
)

// ParseFloat reads the longest numeric prefix of s, ignoring leading whitespace.
// "12.5abc" is 12.5, "abc" is NaN.
func ParseFloat(s string) Value {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	m := floatPrefix.FindStringSubmatch(s)
	if m == nil {
		return NaN
	}

	num := m[0]
	if m[1] == "Infinity" {
		if strings.HasPrefix(num, "-") {
			return Value(math.Inf(-1))
		}
		return Value(math.Inf(1))
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		// Out of range exponents saturate to ±Inf, anything else is unparseable
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Value(f)
		}
		return NaN
	}
	return Value(f)
}

// ParseInt reads the leading integer of s, ignoring leading whitespace. A 0x prefix selects hex.
// "12.7" is 12, "" is NaN.
func ParseInt(s string) Value {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	if m := hexPrefix.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseUint(m[2], 16, 64)
		if err != nil {
			return NaN
		}
		if m[1] == "-" {
			return Value(-float64(n))
		}
		return Value(float64(n))
	}

	num := intPrefix.FindString(s)
	if num == "" {
		return NaN
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return NaN
	}
	return Value(f)
}

var decimalInput = regexp.MustCompile(`^\d+\.?(\d+)?$`)

// AcceptKey reports whether key may be typed into a price, fixed dividend or par value field
// currently holding current. The trimmed value plus the key must stay a non-negative decimal.
func AcceptKey(current string, key rune) bool {
	return decimalInput.MatchString(strings.TrimSpace(current) + string(key))
}
