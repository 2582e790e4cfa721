package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Null encodings. The page layout has no null bitmap, so a null cell is
// written as a reserved value of its column type and those values cannot be
// stored as real data.
const (
	NullInteger    int32  = math.MinInt32
	NullDoubleBits uint64 = 0x7ff8_0000_00de_ad01
	NullBoolean    byte   = 2
	NullVarcharLen int32  = -1
)

// UTF16Len returns the number of UTF-16 code units needed to encode s.
// String lengths are declared and stored in code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Matches reports whether a non-null value fits the type.
func (t Type) Matches(v Value) bool {
	switch t.ID {
	case TypeInteger:
		return v.kind == KindInt
	case TypeDouble:
		return v.kind == KindFloat
	case TypeBoolean:
		return v.kind == KindBool
	case TypeChar, TypeVarchar:
		return v.kind == KindText && UTF16Len(v.s) <= t.Len
	default:
		return false
	}
}

// Check validates a value already in its storage form.
func Check(t Type, v Value, nullable bool) error {
	if v.IsNull() {
		if !nullable {
			return ErrNullViolation
		}
		return nil
	}
	// stored as UTF-16: invalid bytes would all decode to U+FFFD
	if v.kind == KindText && !utf8.ValidString(v.s) {
		return fmt.Errorf("%w: %q", ErrInvalidText, v.s)
	}
	if !t.Matches(v) {
		if t.IsText() && v.kind == KindText {
			return fmt.Errorf("%w: %d > %s", ErrStringTooLong, UTF16Len(v.s), t)
		}
		return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, v.kind, t)
	}
	return checkReserved(t, v)
}

func checkReserved(t Type, v Value) error {
	switch t.ID {
	case TypeInteger:
		if v.i == NullInteger {
			return fmt.Errorf("%w: %d", ErrReservedValue, v.i)
		}
	case TypeDouble:
		if math.Float64bits(v.f) == NullDoubleBits {
			return fmt.Errorf("%w: NaN payload", ErrReservedValue)
		}
	case TypeChar:
		if strings.ContainsRune(v.s, 0) {
			return fmt.Errorf("%w: NUL in char value", ErrReservedValue)
		}
	}
	return nil
}

// Coerce converts v into the storage form of t. Text literals are parsed
// into the column type and the literal "null" (any case) becomes Null.
func Coerce(t Type, v Value, nullable bool) (Value, error) {
	if v.kind == KindText && strings.EqualFold(v.s, "null") {
		v = Null()
	}
	if v.IsNull() {
		return v, Check(t, v, nullable)
	}

	if v.kind == KindText && !t.IsText() {
		parsed, err := parseLiteral(t, v.s)
		if err != nil {
			return Null(), err
		}
		v = parsed
	}
	if err := Check(t, v, nullable); err != nil {
		return Null(), err
	}
	return v, nil
}

func parseLiteral(t Type, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch t.ID {
	case TypeInteger:
		if strings.Contains(s, ".") {
			return Null(), fmt.Errorf("%w: %q is not an integer", ErrBadLiteral, s)
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Null(), fmt.Errorf("%w: %q: %w", ErrBadLiteral, s, err)
		}
		return Int(int32(n)), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), fmt.Errorf("%w: %q: %w", ErrBadLiteral, s, err)
		}
		return Float(f), nil
	case TypeBoolean:
		return Bool(strings.EqualFold(s, "true")), nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrBadType, t)
}
