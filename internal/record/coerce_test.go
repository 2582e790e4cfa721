package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoerce_Literals(t *testing.T) {
	v, err := Coerce(Integer(), Text("42"), false)
	require.NoError(t, err)
	require.Equal(t, Int(42), v)

	_, err = Coerce(Integer(), Text("4.2"), false)
	require.ErrorIs(t, err, ErrBadLiteral)

	_, err = Coerce(Integer(), Text("99999999999"), false)
	require.ErrorIs(t, err, ErrBadLiteral)

	v, err = Coerce(Double(), Text("3.25"), false)
	require.NoError(t, err)
	require.Equal(t, Float(3.25), v)

	v, err = Coerce(Boolean(), Text("TRUE"), false)
	require.NoError(t, err)
	require.Equal(t, Bool(true), v)

	v, err = Coerce(Boolean(), Text("yes"), false)
	require.NoError(t, err)
	require.Equal(t, Bool(false), v)
}

func TestCoerce_Null(t *testing.T) {
	v, err := Coerce(Varchar(4), Text("NULL"), true)
	require.NoError(t, err)
	require.True(t, v.IsNull())

	_, err = Coerce(Integer(), Null(), false)
	require.ErrorIs(t, err, ErrNullViolation)
}

func TestCoerce_TypeRules(t *testing.T) {
	_, err := Coerce(Double(), Int(3), false)
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Coerce(Varchar(2), Text("abc"), false)
	require.ErrorIs(t, err, ErrStringTooLong)

	// one rune outside the BMP takes two code units
	_, err = Coerce(Char(1), Text("😀"), false)
	require.ErrorIs(t, err, ErrStringTooLong)
	v, err := Coerce(Char(2), Text("😀"), false)
	require.NoError(t, err)
	require.Equal(t, Text("😀"), v)

	_, err = Coerce(Varchar(3), Int(1), false)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestCheck_ReservedValues(t *testing.T) {
	require.ErrorIs(t, Check(Integer(), Int(NullInteger), true), ErrReservedValue)
	require.ErrorIs(t, Check(Double(), Float(math.Float64frombits(NullDoubleBits)), true), ErrReservedValue)
	require.ErrorIs(t, Check(Char(3), Text("a\x00"), true), ErrReservedValue)
	require.NoError(t, Check(Double(), Float(math.NaN()), true))
	require.NoError(t, Check(Integer(), Int(math.MinInt32+1), false))
}

func TestUTF16Len(t *testing.T) {
	require.Equal(t, 0, UTF16Len(""))
	require.Equal(t, 3, UTF16Len("abc"))
	require.Equal(t, 3, UTF16Len("a😀"))
}

func TestCheck_InvalidText(t *testing.T) {
	require.ErrorIs(t, Check(Varchar(4), Text("\xfe"), false), ErrInvalidText)
	require.ErrorIs(t, Check(Char(4), Text("a\xffb"), true), ErrInvalidText)

	_, err := Coerce(Varchar(4), Text("\xff"), false)
	require.ErrorIs(t, err, ErrInvalidText)
	require.NoError(t, Check(Varchar(4), Text("é😀"), false))
}
