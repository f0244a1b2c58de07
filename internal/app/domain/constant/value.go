package constant

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a payload value is neither a JSON string nor
// a JSON number.
var ErrInvalidValue = errors.New("value must be a string or a number")

// Value is the write-side representation of a constant value. It remembers
// whether the client sent a number so the hexadecimal rendering can be derived.
type Value struct {
	text    string
	number  float64
	numeric bool
	set     bool
}

// StringValue builds a textual value.
func StringValue(s string) Value {
	return Value{text: s, set: true}
}

// NumberValue builds a numeric value.
func NumberValue(n float64) Value {
	return Value{text: formatNumber(n), number: n, numeric: true, set: true}
}

// IsSet reports whether the value was present in the payload.
func (v Value) IsSet() bool { return v.set }

// IsNumeric reports whether the value was written as a number.
func (v Value) IsNumeric() bool { return v.numeric }

// String returns the stored textual form of the value.
func (v Value) String() string { return v.text }

// Hex returns the lowercase hexadecimal rendering of a numeric value, or nil
// for textual values.
func (v Value) Hex() *string {
	if !v.numeric {
		return nil
	}
	h := FormatHex(v.number)
	return &h
}

// UnmarshalJSON accepts a JSON string or number.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidValue
	}
	if string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return ErrInvalidValue
		}
		*v = NumberValue(n)
		return nil
	default:
		return ErrInvalidValue
	}
}

// MarshalJSON writes the value back in the form it was received.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

// FormatHex renders n in base 16 without prefix, lowercase, with a leading
// minus sign for negative numbers. Fractional parts are expanded exactly.
func FormatHex(n float64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	n = math.Abs(n)
	intPart, frac := math.Modf(n)

	integer, _ := new(big.Float).SetFloat64(intPart).Int(nil)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(integer.Text(16))

	if frac > 0 {
		b.WriteByte('.')
		// multiplying by 16 is exact for binary floats, so this terminates
		for frac > 0 {
			frac *= 16
			digit, rest := math.Modf(frac)
			b.WriteByte("0123456789abcdef"[int(digit)])
			frac = rest
		}
	}
	return b.String()
}

// formatNumber renders a number the way a JavaScript runtime stringifies it.
func formatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	abs := math.Abs(n)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	s := strconv.FormatFloat(n, 'g', -1, 64)
	// Go pads exponents to two digits ("1e-07"); trim to "1e-7".
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		mantissa, exp := s[:i], s[i+1:]
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		s = mantissa + "e" + sign + digits
	}
	return s
}
