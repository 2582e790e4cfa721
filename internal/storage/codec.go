package storage

import (
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/tuannm99/novatable/internal/alias/bx"
	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
)

const charPad = '\t'

// Encode serializes the page:
//
//	[pageId int32][recordCount int32] then every cell of every row in
//	attribute order, big-endian. Integer 4 bytes, Double 8, Boolean 1,
//	Varchar a 4-byte unit count then UTF-16 units, Char exactly n UTF-16
//	units padded with tabs.
//
// Null cells use the reserved encodings from package record.
func (p *Page) Encode() ([]byte, error) {
	buf := make([]byte, 0, p.Size())
	buf = bx.AppendU32(buf, p.id)
	buf = bx.AppendI32(buf, int32(len(p.records)))

	for slot, r := range p.records {
		if len(r) != len(p.attrs) {
			return nil, fmt.Errorf("page %d slot %d: %w", p.id, slot, record.ErrArity)
		}
		for i, a := range p.attrs {
			var err error
			if buf, err = appendCell(buf, a.Type, r[i]); err != nil {
				return nil, fmt.Errorf("page %d slot %d %s: %w", p.id, slot, a.Name, err)
			}
		}
	}
	return buf, nil
}

func appendCell(buf []byte, t record.Type, v record.Value) ([]byte, error) {
	if !v.IsNull() && !t.Matches(v) {
		return nil, fmt.Errorf("%w: %s into %s", record.ErrTypeMismatch, v.Kind(), t)
	}

	switch t.ID {
	case record.TypeInteger:
		n, _ := v.AsInt()
		if v.IsNull() {
			n = record.NullInteger
		}
		return bx.AppendI32(buf, n), nil

	case record.TypeDouble:
		if v.IsNull() {
			return bx.AppendU64(buf, record.NullDoubleBits), nil
		}
		f, _ := v.AsFloat()
		return bx.AppendF64(buf, f), nil

	case record.TypeBoolean:
		if v.IsNull() {
			return bx.AppendU8(buf, record.NullBoolean), nil
		}
		b, _ := v.AsBool()
		if b {
			return bx.AppendU8(buf, 1), nil
		}
		return bx.AppendU8(buf, 0), nil

	case record.TypeVarchar:
		if v.IsNull() {
			return bx.AppendI32(buf, record.NullVarcharLen), nil
		}
		s, _ := v.AsText()
		units := utf16.Encode([]rune(s))
		buf = bx.AppendI32(buf, int32(len(units)))
		for _, u := range units {
			buf = bx.AppendU16(buf, u)
		}
		return buf, nil

	case record.TypeChar:
		var units []uint16
		pad := uint16(0)
		if !v.IsNull() {
			s, _ := v.AsText()
			units = utf16.Encode([]rune(s))
			pad = charPad
		}
		for i := 0; i < t.Len; i++ {
			u := pad
			if i < len(units) {
				u = units[i]
			}
			buf = bx.AppendU16(buf, u)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w: %s", record.ErrBadType, t)
}

// DecodePage parses a page laid out by attrs.
func DecodePage(t *catalog.Table, attrs []catalog.Attribute, data []byte, budget int) (*Page, error) {
	r := bx.NewReader(data)
	id := r.U32()
	count := r.I32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrPageCorrupted, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: page %d has record count %d", ErrPageCorrupted, id, count)
	}

	recs := make([]record.Record, 0, min(int(count), len(data)))
	for slot := 0; slot < int(count); slot++ {
		rec := make(record.Record, len(attrs))
		for i, a := range attrs {
			v, err := readCell(r, a.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d slot %d %s: %w", ErrPageCorrupted, id, slot, a.Name, err)
			}
			rec[i] = v
		}
		recs = append(recs, rec)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: page %d has %d trailing bytes", ErrPageCorrupted, id, r.Remaining())
	}

	return NewPageWithRecords(t, id, attrs, recs, budget), nil
}

func readCell(r *bx.Reader, t record.Type) (record.Value, error) {
	var v record.Value

	switch t.ID {
	case record.TypeInteger:
		n := r.I32()
		if n != record.NullInteger {
			v = record.Int(n)
		}

	case record.TypeDouble:
		bits := r.U64()
		if bits != record.NullDoubleBits {
			v = record.Float(math.Float64frombits(bits))
		}

	case record.TypeBoolean:
		switch b := r.U8(); b {
		case 0:
			v = record.Bool(false)
		case 1:
			v = record.Bool(true)
		case record.NullBoolean:
		default:
			if r.Err() == nil {
				return v, fmt.Errorf("boolean byte %d", b)
			}
		}

	case record.TypeVarchar:
		n := r.I32()
		if n == record.NullVarcharLen {
			break
		}
		if n < 0 || int(n)*2 > r.Remaining() {
			if r.Err() == nil {
				return v, fmt.Errorf("varchar length %d", n)
			}
			break
		}
		units := make([]uint16, n)
		for i := range units {
			units[i] = r.U16()
		}
		v = record.Text(string(utf16.Decode(units)))

	case record.TypeChar:
		units := make([]uint16, t.Len)
		null := true
		for i := range units {
			units[i] = r.U16()
			if units[i] != 0 {
				null = false
			}
		}
		if !null {
			end := len(units)
			for end > 0 && units[end-1] == charPad {
				end--
			}
			v = record.Text(string(utf16.Decode(units[:end])))
		}

	default:
		return v, fmt.Errorf("%w: %s", record.ErrBadType, t)
	}

	return v, r.Err()
}
