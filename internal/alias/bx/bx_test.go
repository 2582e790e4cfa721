package bx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend_BigEndianLayout(t *testing.T) {
	var b []byte
	b = AppendI32(b, 0x01020304)
	b = AppendU16(b, 0x0a0b)
	b = AppendU8(b, 0xff)

	// most-significant byte first
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x0a, 0x0b, 0xff}, b)

	b = AppendI32(nil, -1)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, b)
}

func TestReader_RoundTrip(t *testing.T) {
	var b []byte
	b = AppendI32(b, math.MinInt32)
	b = AppendF64(b, 3.2)
	b = AppendU64(b, 1<<40)
	b = AppendU8(b, 1)

	r := NewReader(b)
	assert.Equal(t, int32(math.MinInt32), r.I32())
	assert.Equal(t, 3.2, r.F64())
	assert.Equal(t, uint64(1<<40), r.U64())
	assert.Equal(t, byte(1), r.U8())
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
	assert.Equal(t, len(b), r.Offset())
}

func TestReader_ShortBufferSticks(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01})
	assert.Equal(t, uint32(0), r.U32())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)

	// later reads do not advance past the failure
	assert.Equal(t, uint16(0), r.U16())
	assert.Equal(t, 0, r.Offset())
}
