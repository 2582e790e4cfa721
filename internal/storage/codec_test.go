package storage

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
)

func TestEncode_ExactLayout(t *testing.T) {
	tbl, err := catalog.NewTable(0, "T", []catalog.Attribute{
		catalog.NewAttribute("id", record.Integer()),
		catalog.NewAttribute("score", record.Double()),
		catalog.NewAttribute("ok", record.Boolean()),
		catalog.NewAttribute("code", record.Char(3)),
		catalog.NewAttribute("name", record.Varchar(5)),
	}, "id")
	require.NoError(t, err)

	p := NewPage(tbl, 7, 4096)
	require.NoError(t, p.AddRecord(record.Record{
		record.Int(1), record.Float(3.2), record.Bool(true), record.Text("ab"), record.Text("hé"),
	}, 0))

	data, err := p.Encode()
	require.NoError(t, err)

	want := []byte{
		0, 0, 0, 7, // page id
		0, 0, 0, 1, // record count
		0, 0, 0, 1, // id
	}
	want = binary.BigEndian.AppendUint64(want, math.Float64bits(3.2))
	want = append(want, 1)                            // ok
	want = append(want, 0, 'a', 0, 'b', 0, '\t')      // code, tab padded
	want = append(want, 0, 0, 0, 2, 0, 'h', 0, 0xe9) // name
	require.Equal(t, want, data)
	require.Len(t, data, p.Size())

	back, err := DecodePage(tbl, tbl.Attributes(), data, 4096)
	require.NoError(t, err)
	require.Equal(t, uint32(7), back.ID())
	require.Equal(t, p.Records(), back.Records())
}

func TestDecode_NullsAndUnicode(t *testing.T) {
	tbl, err := catalog.NewTable(0, "T", []catalog.Attribute{
		catalog.NewAttribute("id", record.Integer()),
		catalog.NewAttribute("n", record.Integer()),
		catalog.NewAttribute("d", record.Double()),
		catalog.NewAttribute("b", record.Boolean()),
		catalog.NewAttribute("c", record.Char(4)),
		catalog.NewAttribute("v", record.Varchar(4)),
	}, "id")
	require.NoError(t, err)

	p := NewPage(tbl, 1, 4096)
	nulls := record.Record{record.Int(1), record.Null(), record.Null(), record.Null(), record.Null(), record.Null()}
	empty := record.Record{record.Int(2), record.Int(-5), record.Float(math.Inf(-1)), record.Bool(false), record.Text(""), record.Text("")}
	wide := record.Record{record.Int(3), record.Int(0), record.Float(0), record.Bool(true), record.Text("😀x"), record.Text("😀😀")}
	require.NoError(t, p.AddRecord(nulls, 0))
	require.NoError(t, p.AddRecord(empty, 1))
	require.NoError(t, p.AddRecord(wide, 2))

	data, err := p.Encode()
	require.NoError(t, err)

	back, err := DecodePage(tbl, tbl.Attributes(), data, 4096)
	require.NoError(t, err)
	require.Equal(t, []record.Record{nulls, empty, wide}, back.Records())
}

func TestDecode_Corrupt(t *testing.T) {
	tbl := newTestTable(t)
	p := NewPage(tbl, 1, 4096)
	require.NoError(t, p.AddRecord(row(1, "ab", 1), 0))
	data, err := p.Encode()
	require.NoError(t, err)

	_, err = DecodePage(tbl, tbl.Attributes(), data[:len(data)-1], 4096)
	require.ErrorIs(t, err, ErrPageCorrupted)

	_, err = DecodePage(tbl, tbl.Attributes(), append(data, 0), 4096)
	require.ErrorIs(t, err, ErrPageCorrupted)

	_, err = DecodePage(tbl, tbl.Attributes(), data[:5], 4096)
	require.ErrorIs(t, err, ErrPageCorrupted)

	bad := []byte{0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff}
	_, err = DecodePage(tbl, tbl.Attributes(), bad, 4096)
	require.ErrorIs(t, err, ErrPageCorrupted)

	boolTbl, err := catalog.NewTable(0, "B", []catalog.Attribute{
		catalog.NewAttribute("id", record.Integer()),
		catalog.NewAttribute("b", record.Boolean()),
	}, "id")
	require.NoError(t, err)
	_, err = DecodePage(boolTbl, boolTbl.Attributes(), []byte{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 9}, 4096)
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestEncode_TextKeysStayDistinct(t *testing.T) {
	tbl, err := catalog.NewTable(0, "K", []catalog.Attribute{
		catalog.NewAttribute("k", record.Varchar(4)),
		catalog.NewAttribute("n", record.Integer()),
	}, "k")
	require.NoError(t, err)

	p := NewPage(tbl, 1, 4096)
	require.ErrorIs(t, p.AddRecord(record.Record{record.Text("\xfe"), record.Int(1)}, 0), record.ErrInvalidText)
	require.Zero(t, p.Len())

	for i, k := range []string{"｡", "\U0001F600", "a"} {
		key := record.Text(k)
		slot, found := p.SearchSlot(key)
		require.False(t, found)
		require.NoError(t, p.AddRecord(record.Record{key, record.Int(int32(i))}, slot))
	}
	want := []record.Value{record.Text("a"), record.Text("\U0001F600"), record.Text("｡")}
	require.Equal(t, want, p.PrimaryKeys())

	data, err := p.Encode()
	require.NoError(t, err)
	back, err := DecodePage(tbl, tbl.Attributes(), data, 4096)
	require.NoError(t, err)
	require.Equal(t, want, back.PrimaryKeys())
	require.Equal(t, p.Records(), back.Records())
}
