package catalog

import (
	"fmt"
	"slices"
	"sort"

	"github.com/tuannm99/novatable/internal/btree"
	"github.com/tuannm99/novatable/internal/record"
)

// Table is the schema handle of one relation: attributes in on-disk column
// order, the primary key, the not-null set, an optional foreign key, the
// ordered list of pages holding its rows, and its indexes. It holds no rows.
type Table struct {
	id      int
	name    string
	attrs   []Attribute
	pk      string
	notNull map[string]struct{}
	fk      *ForeignKey
	pages   []uint32
	indexes map[string]*btree.Tree
}

// NewTable validates the attribute list and primary key. The not-null set
// starts out holding the primary key alone.
func NewTable(id int, name string, attrs []Attribute, primaryKey string) (*Table, error) {
	if name == "" || len(attrs) == 0 {
		return nil, fmt.Errorf("%w: table needs a name and at least one attribute", ErrBadSchema)
	}

	seen := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		if a.Name == "" || a.Type.ID == 0 {
			return nil, fmt.Errorf("%w: attribute %q", ErrBadSchema, a.Name)
		}
		if _, dup := seen[fold(a.Name)]; dup {
			return nil, fmt.Errorf("%w: %s", ErrAttributeExists, a.Name)
		}
		seen[fold(a.Name)] = struct{}{}
	}

	t := &Table{
		id:      id,
		name:    name,
		attrs:   slices.Clone(attrs),
		notNull: map[string]struct{}{},
		indexes: map[string]*btree.Tree{},
	}
	pk, ok := t.AttrByName(primaryKey)
	if !ok {
		return nil, fmt.Errorf("%w: primary key %q", ErrNoSuchAttribute, primaryKey)
	}
	t.pk = pk.Name
	t.notNull[fold(pk.Name)] = struct{}{}
	return t, nil
}

func (t *Table) ID() int                   { return t.id }
func (t *Table) Name() string              { return t.name }
func (t *Table) NumAttributes() int        { return len(t.attrs) }
func (t *Table) Attributes() []Attribute   { return slices.Clone(t.attrs) }
func (t *Table) Attribute(i int) Attribute { return t.attrs[i] }

// AttrByName resolves an attribute ignoring case.
func (t *Table) AttrByName(name string) (Attribute, bool) {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.attrs[i], true
	}
	return Attribute{}, false
}

// ColumnIndex returns the position of the named attribute, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.IndexFunc(t.attrs, func(a Attribute) bool {
		return a.Equal(Attribute{Name: name})
	})
}

func (t *Table) PrimaryKey() Attribute {
	a, _ := t.AttrByName(t.pk)
	return a
}

func (t *Table) PrimaryKeyIndex() int { return t.ColumnIndex(t.pk) }

// AddAttribute appends an attribute to the schema. Existing pages still hold
// the old layout until their rows are rewritten.
func (t *Table) AddAttribute(a Attribute) error {
	if a.Name == "" || a.Type.ID == 0 {
		return fmt.Errorf("%w: attribute %q", ErrBadSchema, a.Name)
	}
	if t.ColumnIndex(a.Name) >= 0 {
		return fmt.Errorf("%w: %s.%s", ErrAttributeExists, t.name, a.Name)
	}
	t.attrs = append(t.attrs, a)
	return nil
}

// DropAttribute removes the named attribute with its not-null flag, index
// and any foreign key defined on it. It returns the dropped position.
func (t *Table) DropAttribute(name string) (int, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s.%s", ErrNoSuchAttribute, t.name, name)
	}
	if i == t.PrimaryKeyIndex() {
		return -1, fmt.Errorf("%w: cannot drop %s", ErrPrimaryKey, name)
	}

	key := fold(t.attrs[i].Name)
	t.attrs = slices.Delete(t.attrs, i, i+1)
	delete(t.notNull, key)
	delete(t.indexes, key)
	if t.fk != nil && fold(t.fk.AttrName) == key {
		t.fk = nil
	}
	return i, nil
}

func (t *Table) AddForeignKey(fk ForeignKey) error {
	if t.fk != nil {
		return ErrForeignKeyExists
	}
	if t.ColumnIndex(fk.AttrName) < 0 {
		return fmt.Errorf("%w: %s.%s", ErrNoSuchAttribute, t.name, fk.AttrName)
	}
	t.fk = &fk
	return nil
}

func (t *Table) ForeignKey() (ForeignKey, bool) {
	if t.fk == nil {
		return ForeignKey{}, false
	}
	return *t.fk, true
}

// --- not-null set ---

func (t *Table) IsNullable(name string) bool {
	_, notNull := t.notNull[fold(name)]
	return !notNull
}

// SetNotNull marks or clears the not-null flag. The primary key always
// stays not-null.
func (t *Table) SetNotNull(name string, notNull bool) error {
	a, ok := t.AttrByName(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrNoSuchAttribute, t.name, name)
	}
	if !notNull && a.Equal(Attribute{Name: t.pk}) {
		return fmt.Errorf("%w: primary key is always not-null", ErrPrimaryKey)
	}
	if notNull {
		t.notNull[fold(a.Name)] = struct{}{}
	} else {
		delete(t.notNull, fold(a.Name))
	}
	return nil
}

// CheckNonNull rejects a row that leaves a not-null attribute empty.
func (t *Table) CheckNonNull(rec record.Record) error {
	if len(rec) != len(t.attrs) {
		return fmt.Errorf("%w: %d cells for %d attributes", record.ErrArity, len(rec), len(t.attrs))
	}
	for i, a := range t.attrs {
		if rec[i].IsNull() && !t.IsNullable(a.Name) {
			return fmt.Errorf("%w: %s.%s", record.ErrNullViolation, t.name, a.Name)
		}
	}
	return nil
}

// --- indexes ---

// AddIndex creates an empty tree for the attribute. Call the buffer
// manager's PopulateIndex to fill it.
func (t *Table) AddIndex(name string) (*btree.Tree, error) {
	a, ok := t.AttrByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchAttribute, t.name, name)
	}
	if _, exists := t.indexes[fold(a.Name)]; exists {
		return nil, fmt.Errorf("%w: %s.%s", ErrIndexExists, t.name, a.Name)
	}
	tr := btree.New()
	t.indexes[fold(a.Name)] = tr
	return tr, nil
}

func (t *Table) DropIndex(name string) bool {
	if _, ok := t.indexes[fold(name)]; !ok {
		return false
	}
	delete(t.indexes, fold(name))
	return true
}

// Index returns the tree on the attribute, or nil.
func (t *Table) Index(name string) *btree.Tree { return t.indexes[fold(name)] }

// IndexedAttributes lists the indexed attribute names in schema order.
func (t *Table) IndexedAttributes() []string {
	var out []string
	for _, a := range t.attrs {
		if _, ok := t.indexes[fold(a.Name)]; ok {
			out = append(out, a.Name)
		}
	}
	return out
}

// --- page directory ---

func (t *Table) PageIDs() []uint32 { return slices.Clone(t.pages) }
func (t *Table) NumPages() int     { return len(t.pages) }

func (t *Table) AddPage(id uint32) { t.pages = append(t.pages, id) }

// PagePosition returns the position of id in the page list, or -1.
func (t *Table) PagePosition(id uint32) int { return slices.Index(t.pages, id) }

// InsertPage places id at position pos of the page list.
func (t *Table) InsertPage(pos int, id uint32) {
	pos = max(0, min(pos, len(t.pages)))
	t.pages = slices.Insert(t.pages, pos, id)
}

// ReplacePage swaps old for left and right at the same position, the
// bookkeeping half of a page split.
func (t *Table) ReplacePage(old, left, right uint32) error {
	i := t.PagePosition(old)
	if i < 0 {
		return fmt.Errorf("%w: %s page %d", ErrNoSuchPage, t.name, old)
	}
	t.pages = slices.Replace(t.pages, i, i+1, left, right)
	return nil
}

func (t *Table) RemovePage(id uint32) bool {
	i := t.PagePosition(id)
	if i < 0 {
		return false
	}
	t.pages = slices.Delete(t.pages, i, i+1)
	return true
}

func (t *Table) ClearPages() { t.pages = nil }

// Clear forgets every page and empties every index. The schema stays.
func (t *Table) Clear() {
	t.ClearPages()
	t.ResetIndexes()
}

// ResetIndexes empties every index tree without dropping it.
func (t *Table) ResetIndexes() {
	for _, tr := range t.indexes {
		tr.Reset()
	}
}

func sortedTables(m map[string]*Table) []*Table {
	out := make([]*Table, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
