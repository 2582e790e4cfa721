package bufferpool

import (
	"github.com/tuannm99/novatable/internal/btree"
	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
	"github.com/tuannm99/novatable/internal/storage"
)

type columnIndex struct {
	col  int
	tree *btree.Tree
}

// pageIndexes resolves the table's indexes to column positions in p's own
// layout.
func pageIndexes(p *storage.Page) []columnIndex {
	t := p.Table()
	var out []columnIndex
	for i, a := range p.Attrs() {
		if tr := t.Index(a.Name); tr != nil {
			out = append(out, columnIndex{col: i, tree: tr})
		}
	}
	return out
}

// indexPage adds a pointer for every row of p to every index. Slots shift on
// insert and delete, so callers unindex a page before mutating it and index
// it again afterwards.
func (m *Manager) indexPage(p *storage.Page) {
	for _, ix := range pageIndexes(p) {
		for slot := 0; slot < p.Len(); slot++ {
			v := p.Cell(slot, ix.col)
			if v.IsNull() {
				continue
			}
			if err := ix.tree.Insert(v, record.Pointer{PageID: p.ID(), Slot: slot}); err != nil {
				m.logger.Warn("index insert failed", "page", p.ID(), "slot", slot, "err", err)
			}
		}
	}
}

func (m *Manager) unindexPage(p *storage.Page) {
	for _, ix := range pageIndexes(p) {
		for slot := 0; slot < p.Len(); slot++ {
			v := p.Cell(slot, ix.col)
			if v.IsNull() {
				continue
			}
			ix.tree.Remove(v, record.Pointer{PageID: p.ID(), Slot: slot})
		}
	}
}

func primaryIndex(t *catalog.Table) *btree.Tree {
	return t.Index(t.PrimaryKey().Name)
}

// PopulateIndex rebuilds the named attribute's index from a full scan.
// Null values are not indexed.
func (m *Manager) PopulateIndex(t *catalog.Table, name string) error {
	tr := t.Index(name)
	if tr == nil {
		return ErrNoIndex
	}
	attr, _ := t.AttrByName(name)
	tr.Reset()

	_, err := m.scan(t, t.Attributes(), func(p *storage.Page) (bool, error) {
		col := -1
		for i, a := range p.Attrs() {
			if a.Equal(attr) {
				col = i
			}
		}
		if col < 0 {
			return false, nil
		}
		for slot := 0; slot < p.Len(); slot++ {
			v := p.Cell(slot, col)
			if v.IsNull() {
				continue
			}
			if err := tr.Insert(v, record.Pointer{PageID: p.ID(), Slot: slot}); err != nil {
				return true, err
			}
		}
		return false, nil
	})
	m.settle()
	if err != nil {
		return err
	}

	m.logger.Debug("bufferpool.Manager.PopulateIndex", "table", t.Name(), "attr", attr.Name, "keys", tr.Len())
	return nil
}
