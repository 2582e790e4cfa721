package storage

import (
	"fmt"
	"slices"
	"sort"

	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
)

// Page is one block of a table's rows sorted ascending by primary key. Its
// serialized size must stay below the budget before it may be persisted.
//
// A page keeps the attribute list its rows were written with, which only
// differs from the table's while a column is being added or dropped.
type Page struct {
	id      uint32
	table   *catalog.Table
	attrs   []catalog.Attribute
	pk      int
	records []record.Record
	budget  int
}

func NewPage(t *catalog.Table, id uint32, budget int) *Page {
	return NewPageWithRecords(t, id, t.Attributes(), nil, budget)
}

// NewPageWithRecords builds a page around rows that are already validated
// and sorted, as produced by a split.
func NewPageWithRecords(t *catalog.Table, id uint32, attrs []catalog.Attribute, recs []record.Record, budget int) *Page {
	p := &Page{
		id:      id,
		table:   t,
		records: slices.Clone(recs),
		budget:  budget,
	}
	p.setAttrs(attrs)
	return p
}

func (p *Page) setAttrs(attrs []catalog.Attribute) {
	p.attrs = slices.Clone(attrs)
	pk := p.table.PrimaryKey()
	p.pk = slices.IndexFunc(p.attrs, pk.Equal)
}

func (p *Page) ID() uint32                 { return p.id }
func (p *Page) Table() *catalog.Table      { return p.table }
func (p *Page) Attrs() []catalog.Attribute { return slices.Clone(p.attrs) }
func (p *Page) Len() int                   { return len(p.records) }
func (p *Page) Budget() int                { return p.budget }

// Record returns a copy of the row at slot.
func (p *Page) Record(slot int) record.Record { return p.records[slot].Clone() }

// Records returns copies of every row in slot order.
func (p *Page) Records() []record.Record {
	out := make([]record.Record, len(p.records))
	for i, r := range p.records {
		out[i] = r.Clone()
	}
	return out
}

// Cell returns the value of column col at slot without copying the row.
func (p *Page) Cell(slot, col int) record.Value { return p.records[slot][col] }

// Key returns the primary-key value at slot.
func (p *Page) Key(slot int) record.Value { return p.records[slot][p.pk] }

func (p *Page) FirstKey() (record.Value, bool) {
	if len(p.records) == 0 {
		return record.Null(), false
	}
	return p.Key(0), true
}

func (p *Page) LastKey() (record.Value, bool) {
	if len(p.records) == 0 {
		return record.Null(), false
	}
	return p.Key(len(p.records) - 1), true
}

func (p *Page) PrimaryKeys() []record.Value {
	out := make([]record.Value, len(p.records))
	for i := range p.records {
		out[i] = p.Key(i)
	}
	return out
}

// SearchSlot binary-searches the sorted rows for pk. It returns the slot
// holding pk, or the slot where pk would be inserted.
func (p *Page) SearchSlot(pk record.Value) (int, bool) {
	i := sort.Search(len(p.records), func(i int) bool {
		return record.Compare(p.Key(i), pk) >= 0
	})
	return i, i < len(p.records) && record.Compare(p.Key(i), pk) == 0
}

// Find returns the slot of the row whose primary key equals pk, or -1.
func (p *Page) Find(pk record.Value) int {
	for i := range p.records {
		if record.Equal(p.Key(i), pk) {
			return i
		}
	}
	return -1
}

// Validate checks every cell against its attribute. Null is accepted only
// on nullable attributes.
func (p *Page) Validate(rec record.Record) error {
	return validate(p.table, p.attrs, rec)
}

func validate(t *catalog.Table, attrs []catalog.Attribute, rec record.Record) error {
	if len(rec) != len(attrs) {
		return fmt.Errorf("%w: %d cells for %d attributes", record.ErrArity, len(rec), len(attrs))
	}
	for i, a := range attrs {
		if err := record.Check(a.Type, rec[i], t.IsNullable(a.Name)); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), a.Name, err)
		}
	}
	return nil
}

// AddRecord inserts rec at slot. The caller guarantees that slot keeps the
// rows sorted. On error the page is unchanged.
func (p *Page) AddRecord(rec record.Record, slot int) error {
	if err := p.Validate(rec); err != nil {
		return err
	}
	if slot < 0 || slot > len(p.records) {
		return fmt.Errorf("%w: %d of %d", ErrBadSlot, slot, len(p.records))
	}
	if i := p.Find(rec[p.pk]); i >= 0 {
		return fmt.Errorf("%w: %s in page %d", ErrDuplicateKey, rec[p.pk], p.id)
	}
	p.records = slices.Insert(p.records, slot, rec.Clone())
	return nil
}

// DeleteRecord removes the row with primary key pk and returns the slot it
// occupied.
func (p *Page) DeleteRecord(pk record.Value) (int, bool) {
	i := p.Find(pk)
	if i < 0 {
		return -1, false
	}
	p.records = slices.Delete(p.records, i, i+1)
	return i, true
}

// UpdateRecord replaces the row with primary key pk by rec in the same
// slot. It does not re-sort: callers changing the key must delete and
// insert instead.
func (p *Page) UpdateRecord(pk record.Value, rec record.Record) (int, error) {
	i := p.Find(pk)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s in page %d", ErrRecordNotFound, pk, p.id)
	}
	if err := p.Validate(rec); err != nil {
		return -1, err
	}
	if j := p.Find(rec[p.pk]); j >= 0 && j != i {
		return -1, fmt.Errorf("%w: %s in page %d", ErrDuplicateKey, rec[p.pk], p.id)
	}
	p.records[i] = rec.Clone()
	return i, nil
}

// Rewrite maps every row through fn and switches the page to attrs. Every
// new row is validated against attrs first; on error nothing changes.
func (p *Page) Rewrite(attrs []catalog.Attribute, fn func(record.Record) record.Record) error {
	out := make([]record.Record, len(p.records))
	for i, r := range p.records {
		nr := fn(r.Clone())
		if err := validate(p.table, attrs, nr); err != nil {
			return fmt.Errorf("page %d slot %d: %w", p.id, i, err)
		}
		out[i] = nr
	}
	p.records = out
	p.setAttrs(attrs)
	return nil
}

// Size is the exact serialized length of the page.
func (p *Page) Size() int {
	n := HeaderSize
	for _, r := range p.records {
		n += RecordSize(p.attrs, r)
	}
	return n
}

// HasSpace reports whether the page is under its budget.
func (p *Page) HasSpace() bool { return p.Size() < p.budget }

// Fits reports whether rec can be added without reaching the budget.
func (p *Page) Fits(rec record.Record) bool {
	return p.Size()+RecordSize(p.attrs, rec) < p.budget
}

// RecordSize is the serialized length of one row laid out by attrs.
func RecordSize(attrs []catalog.Attribute, rec record.Record) int {
	n := 0
	for i, a := range attrs {
		var v record.Value
		if i < len(rec) {
			v = rec[i]
		}
		n += cellSize(a.Type, v)
	}
	return n
}

func cellSize(t record.Type, v record.Value) int {
	switch t.ID {
	case record.TypeInteger:
		return 4
	case record.TypeDouble:
		return 8
	case record.TypeBoolean:
		return 1
	case record.TypeChar:
		return 2 * t.Len
	case record.TypeVarchar:
		s, _ := v.AsText()
		return 4 + 2*record.UTF16Len(s)
	}
	return 0
}
