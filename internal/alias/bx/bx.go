// stand for bytes helper
package bx

import (
	"encoding/binary"
	"errors"
	"math"
)

// Page files use network byte order, the same as java.io.DataOutputStream.
var BE = binary.BigEndian

var ErrShortBuffer = errors.New("bx: read past end of buffer")

// --- BE: append ---
func AppendU8(b []byte, v byte) []byte     { return append(b, v) }
func AppendU16(b []byte, v uint16) []byte  { return BE.AppendUint16(b, v) }
func AppendU32(b []byte, v uint32) []byte  { return BE.AppendUint32(b, v) }
func AppendI32(b []byte, v int32) []byte   { return BE.AppendUint32(b, uint32(v)) }
func AppendU64(b []byte, v uint64) []byte  { return BE.AppendUint64(b, v) }
func AppendF64(b []byte, v float64) []byte { return BE.AppendUint64(b, math.Float64bits(v)) }

// Reader is a big-endian cursor over a byte slice. The first short read
// sticks: later reads return zero values and Err reports ErrShortBuffer.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Offset() int    { return r.off }
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return BE.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return BE.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return BE.Uint64(b)
}

func (r *Reader) I32() int32   { return int32(r.U32()) }
func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }
