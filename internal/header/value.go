// Package header models the keyword/value data of one archived source file.
//
// Header values are dynamically typed in the source format (strings, integers,
// floats, booleans, undefined). Value is a small tagged variant so that type
// checks branch on Kind rather than on reflection.
package header

import (
	"strconv"
	"strings"
)

// Kind tags the dynamic type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindUndefined
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Value is one header value.
type Value struct {
	Kind Kind
	S    string
	I    int64
	F    float64
	B    bool
}

func Str(s string) Value       { return Value{Kind: KindString, S: s} }
func Int(i int64) Value        { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value    { return Value{Kind: KindFloat, F: f} }
func Bool(b bool) Value        { return Value{Kind: KindBool, B: b} }
func Null() Value              { return Value{Kind: KindNull} }
func Undefined() Value         { return Value{Kind: KindUndefined} }
func (v Value) IsNull() bool   { return v.Kind == KindNull }
func (v Value) IsString() bool { return v.Kind == KindString }

// String renders v the way the header format prints it: floats in shortest
// round-trip form with fixed notation for decimal exponents in [-4, 16),
// booleans as True/False.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.S
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return FormatFloat(v.F)
	case KindBool:
		if v.B {
			return "True"
		}
		return "False"
	case KindUndefined:
		return "undefined"
	default:
		return "null"
	}
}

// FormatFloat prints f using shortest round-trip digits. Integral values in
// fixed notation keep a ".0" suffix; exponents outside [-4, 16) switch to
// scientific notation with a signed, at least two digit exponent.
func FormatFloat(f float64) string {
	switch {
	case f != f:
		return "nan"
	case f > 1.7976931348623157e308:
		return "inf"
	case f < -1.7976931348623157e308:
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	i := strings.IndexByte(sci, 'e')
	exp, _ := strconv.Atoi(sci[i+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
