package record

import (
	"cmp"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is one typed cell. The zero Value is null.
type Value struct {
	kind Kind
	i    int32
	f    float64
	b    bool
	s    string
}

func Null() Value            { return Value{} }
func Int(v int32) Value      { return Value{kind: KindInt, i: v} }
func Float(v float64) Value  { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func Text(v string) Value    { return Value{kind: KindText, s: v} }
func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int32, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsText() (string, bool)   { return v.s, v.kind == KindText }

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindText:
		return v.s
	default:
		return "null"
	}
}

func (v Value) numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Compare orders two values. Null sorts before everything else. An Int is
// promoted to float64 when compared against a Float. Values of unrelated
// kinds are ordered by kind so that sorting stays total.
func Compare(a, b Value) int {
	switch {
	case a.kind == KindNull && b.kind == KindNull:
		return 0
	case a.kind == KindNull:
		return -1
	case b.kind == KindNull:
		return 1
	}

	if a.kind == KindInt && b.kind == KindInt {
		return cmp.Compare(a.i, b.i)
	}
	if x, ok := a.numeric(); ok {
		if y, ok := b.numeric(); ok {
			return cmp.Compare(x, y)
		}
	}

	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case KindBool:
		return cmp.Compare(boolRank(a.b), boolRank(b.b))
	case KindText:
		return compareText(a.s, b.s)
	}
	return 0
}

// compareText orders strings by UTF-16 code units. This differs from byte
// order only where a supplementary character meets U+E000..U+FFFF.
func compareText(a, b string) int {
	for a != "" && b != "" {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		if ra != rb {
			ah, al := codeUnits(ra)
			bh, bl := codeUnits(rb)
			return cmp.Or(cmp.Compare(ah, bh), cmp.Compare(al, bl))
		}
		a, b = a[na:], b[nb:]
	}
	return cmp.Compare(len(a), len(b))
}

func codeUnits(r rune) (uint16, uint16) {
	if hi, lo := utf16.EncodeRune(r); hi != utf8.RuneError {
		return uint16(hi), uint16(lo)
	}
	return uint16(r), 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func Less(a, b Value) bool { return Compare(a, b) < 0 }

// Equal reports whether two non-null values compare equal. Null is never
// equal to anything, including another null.
func Equal(a, b Value) bool {
	if a.kind == KindNull || b.kind == KindNull {
		return false
	}
	return Compare(a, b) == 0
}
