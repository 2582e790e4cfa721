package bufferpool

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
	"github.com/tuannm99/novatable/internal/storage"
)

// scan walks t's pages in page-list order, each pinned while visit runs.
// The next page is loaded before the current one is released, so eviction
// triggered by the load can never split the page the walk stands on. When
// visit stops the walk, that page is returned still pinned.
func (m *Manager) scan(t *catalog.Table, attrs []catalog.Attribute, visit func(p *storage.Page) (bool, error)) (*storage.Page, error) {
	ids := t.PageIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := m.load(t, attrs, ids[0])
	if err != nil {
		return nil, err
	}

	for {
		stop, err := visit(cur)
		if err != nil {
			m.Unpin(cur, false)
			return nil, err
		}
		if stop {
			return cur, nil
		}

		ids = t.PageIDs()
		pos := t.PagePosition(cur.ID())
		if pos < 0 || pos+1 >= len(ids) {
			m.Unpin(cur, false)
			return nil, nil
		}
		next, err := m.load(t, attrs, ids[pos+1])
		m.Unpin(cur, false)
		if err != nil {
			return nil, err
		}
		cur = next
	}
}

// prepare coerces every cell to its attribute type and checks the not-null
// set.
func prepare(t *catalog.Table, rec record.Record) (record.Record, error) {
	attrs := t.Attributes()
	if len(rec) != len(attrs) {
		return nil, fmt.Errorf("%w: %d cells for %d attributes", record.ErrArity, len(rec), len(attrs))
	}
	out := make(record.Record, len(rec))
	for i, a := range attrs {
		v, err := record.Coerce(a.Type, rec[i], t.IsNullable(a.Name))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), a.Name, err)
		}
		out[i] = v
	}
	if err := t.CheckNonNull(out); err != nil {
		return nil, err
	}
	return out, nil
}

func preparePK(t *catalog.Table, pk record.Value) (record.Value, error) {
	v, err := record.Coerce(t.PrimaryKey().Type, pk, false)
	if err != nil {
		return record.Null(), fmt.Errorf("%s primary key: %w", t.Name(), err)
	}
	return v, nil
}

// find returns the page holding pk, pinned, and the row's slot.
func (m *Manager) find(t *catalog.Table, pk record.Value) (*storage.Page, int, error) {
	if tr := primaryIndex(t); tr != nil {
		ptr, ok := tr.Lookup(pk)
		if !ok {
			return nil, -1, fmt.Errorf("%w: %s %s", ErrNotFound, t.Name(), pk)
		}
		p, err := m.LoadPage(t, ptr.PageID)
		if err != nil {
			return nil, -1, err
		}
		if ptr.Slot < p.Len() && record.Equal(p.Key(ptr.Slot), pk) {
			return p, ptr.Slot, nil
		}
		if slot := p.Find(pk); slot >= 0 {
			m.logger.Warn("stale index slot", "table", t.Name(), "key", pk, "ptr", ptr, "slot", slot)
			return p, slot, nil
		}
		m.Unpin(p, false)
		return nil, -1, fmt.Errorf("%w: %s %s (index points to page %d)", ErrNotFound, t.Name(), pk, ptr.PageID)
	}

	// rows are globally ordered, so the first page whose last key reaches
	// pk is the only candidate
	p, err := m.scan(t, t.Attributes(), func(p *storage.Page) (bool, error) {
		last, ok := p.LastKey()
		return ok && record.Compare(last, pk) >= 0, nil
	})
	if err != nil {
		return nil, -1, err
	}
	if p != nil {
		if slot := p.Find(pk); slot >= 0 {
			return p, slot, nil
		}
		m.Unpin(p, false)
	}
	return nil, -1, fmt.Errorf("%w: %s %s", ErrNotFound, t.Name(), pk)
}

func (m *Manager) exists(t *catalog.Table, pk record.Value) (bool, error) {
	p, _, err := m.find(t, pk)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m.Unpin(p, false)
	return true, nil
}

// locate returns, pinned, the page a new row with key pk belongs to. With a
// primary-key index the duplicate check and the lookup are logarithmic;
// otherwise pages are walked in order.
func (m *Manager) locate(t *catalog.Table, pk record.Value) (*storage.Page, error) {
	if tr := primaryIndex(t); tr != nil {
		if tr.Search(pk) != nil {
			return nil, fmt.Errorf("%w: %s %s", storage.ErrDuplicateKey, t.Name(), pk)
		}
		id := t.PageIDs()[0]
		if _, ptrs, ok := tr.Predecessor(pk); ok {
			id = ptrs[0].PageID
		}
		return m.LoadPage(t, id)
	}

	return m.scan(t, t.Attributes(), func(p *storage.Page) (bool, error) {
		if last, ok := p.LastKey(); ok && record.Compare(last, pk) >= 0 {
			return true, nil
		}
		ids := t.PageIDs()
		return ids[len(ids)-1] == p.ID(), nil
	})
}

// InsertRecord adds rec to t at its primary-key position. A page that would
// reach the budget is split first.
func (m *Manager) InsertRecord(t *catalog.Table, rec record.Record) error {
	rec, err := prepare(t, rec)
	if err != nil {
		return err
	}
	if storage.HeaderSize+storage.RecordSize(t.Attributes(), rec) >= m.pageSize {
		return fmt.Errorf("%w: %s %s", ErrRecordTooLarge, t.Name(), rec)
	}
	pk := rec[t.PrimaryKeyIndex()]

	if t.NumPages() == 0 {
		p := m.newPage(t)
		t.AddPage(p.ID())
		return m.insertAt(p, rec, 0)
	}

	p, err := m.locate(t, pk)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("locate %s %s: %w", t.Name(), pk, catalog.ErrNoSuchPage)
	}
	slot, found := p.SearchSlot(pk)
	if found {
		m.Unpin(p, false)
		return fmt.Errorf("%w: %s %s", storage.ErrDuplicateKey, t.Name(), pk)
	}
	return m.insertAt(p, rec, slot)
}

// insertAt places rec at slot of the pinned page p, splitting until the
// target page has room. It releases p.
func (m *Manager) insertAt(p *storage.Page, rec record.Record, slot int) error {
	t := p.Table()
	for !p.Fits(rec) {
		if p.Len() < 2 {
			// a single row cannot be split: the new row gets its own page
			np := m.newPage(t)
			pos := t.PagePosition(p.ID())
			if slot > 0 {
				pos++
			}
			t.InsertPage(pos, np.ID())
			m.Unpin(p, false)
			p, slot = np, 0
			continue
		}

		cut := slot
		if cut <= 0 || cut >= p.Len() {
			cut = p.Len() / 2
		}
		m.Unpin(p, false)
		left, right, err := m.Split(p, cut)
		if err != nil {
			return err
		}
		if slot < cut || (slot == cut && left.Fits(rec)) {
			p = left
		} else {
			p, slot = right, slot-cut
		}
		m.pin(p)
	}

	m.unindexPage(p)
	err := p.AddRecord(rec, slot)
	m.indexPage(p)
	m.Unpin(p, err == nil)
	if err != nil {
		return err
	}

	m.settle()
	return nil
}

// GetRecord returns a copy of the row with primary key pk.
func (m *Manager) GetRecord(t *catalog.Table, pk record.Value) (record.Record, error) {
	pk, err := preparePK(t, pk)
	if err != nil {
		return nil, err
	}
	p, slot, err := m.find(t, pk)
	if err != nil {
		return nil, err
	}
	rec := p.Record(slot)
	m.Unpin(p, false)
	m.settle()
	return rec, nil
}

// DeleteRecord removes the row with primary key pk. A page left empty is
// dropped from the table and from disk.
func (m *Manager) DeleteRecord(t *catalog.Table, pk record.Value) error {
	pk, err := preparePK(t, pk)
	if err != nil {
		return err
	}
	p, _, err := m.find(t, pk)
	if err != nil {
		return err
	}

	m.unindexPage(p)
	p.DeleteRecord(pk)
	if p.Len() == 0 {
		m.Unpin(p, false)
		return m.discardPage(t, p.ID())
	}
	m.indexPage(p)
	m.Unpin(p, true)
	m.settle()
	return nil
}

// UpdateRecord replaces the row keyed like old with updated. When the
// primary key changes the row is deleted and inserted again so pages stay
// ordered; if that insert fails the old row is restored.
func (m *Manager) UpdateRecord(t *catalog.Table, old, updated record.Record) error {
	updated, err := prepare(t, updated)
	if err != nil {
		return err
	}
	if len(old) != t.NumAttributes() {
		return fmt.Errorf("%w: %d cells for %d attributes", record.ErrArity, len(old), t.NumAttributes())
	}
	pkCol := t.PrimaryKeyIndex()
	oldPK, err := preparePK(t, old[pkCol])
	if err != nil {
		return err
	}
	newPK := updated[pkCol]

	if record.Equal(oldPK, newPK) {
		if storage.HeaderSize+storage.RecordSize(t.Attributes(), updated) >= m.pageSize {
			return fmt.Errorf("%w: %s %s", ErrRecordTooLarge, t.Name(), updated)
		}
		p, _, err := m.find(t, oldPK)
		if err != nil {
			return err
		}
		m.unindexPage(p)
		_, err = p.UpdateRecord(oldPK, updated)
		m.indexPage(p)
		m.Unpin(p, err == nil)
		if err != nil {
			return err
		}
		m.settle()
		return nil
	}

	dup, err := m.exists(t, newPK)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: %s %s", storage.ErrDuplicateKey, t.Name(), newPK)
	}

	saved, err := m.GetRecord(t, oldPK)
	if err != nil {
		return err
	}
	if err := m.DeleteRecord(t, oldPK); err != nil {
		return err
	}
	if err := m.InsertRecord(t, updated); err != nil {
		if rerr := m.InsertRecord(t, saved); rerr != nil {
			m.logger.Error("restore after failed update", "table", t.Name(), "key", oldPK, "err", rerr)
		}
		return err
	}
	return nil
}

// GetAllRecords returns copies of t's rows in primary-key order, which is
// simply page-list order.
func (m *Manager) GetAllRecords(t *catalog.Table) ([]record.Record, error) {
	out := []record.Record{}
	_, err := m.scan(t, t.Attributes(), func(p *storage.Page) (bool, error) {
		out = append(out, p.Records()...)
		return false, nil
	})
	m.settle()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClearTableData deletes every page of t from the buffer and disk and
// empties its page list and indexes.
func (m *Manager) ClearTableData(t *catalog.Table) error {
	var errs []error
	for _, id := range t.PageIDs() {
		m.forget(id)
		if err := m.store.RemovePage(id); err != nil {
			errs = append(errs, fmt.Errorf("remove %s page %d: %w", t.Name(), id, err))
		}
	}
	t.Clear()
	return errors.Join(errs...)
}
