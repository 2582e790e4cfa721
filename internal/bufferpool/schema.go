package bufferpool

import (
	"fmt"
	"slices"

	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
	"github.com/tuannm99/novatable/internal/storage"
)

// cellFunc maps the row at slot of page id to its new layout.
type cellFunc func(id uint32, slot int, r record.Record) record.Record

// AddAttributeValue fills the table's last attribute, just added to the
// schema, with def in every row. Pages are not re-checked against the
// budget here; an oversize page is split when it is next evicted or
// flushed. On error every page keeps the layout without the attribute.
func (m *Manager) AddAttributeValue(t *catalog.Table, def record.Value) error {
	attrs := t.Attributes()
	if len(attrs) < 2 {
		return fmt.Errorf("%w: %s has no added attribute", catalog.ErrBadSchema, t.Name())
	}
	added := attrs[len(attrs)-1]
	def, err := record.Coerce(added.Type, def, t.IsNullable(added.Name))
	if err != nil {
		return fmt.Errorf("%s.%s default: %w", t.Name(), added.Name, err)
	}

	// pages on disk still hold the layout without the new attribute
	err = m.rewriteAll(t, attrs[:len(attrs)-1], attrs,
		func(_ uint32, _ int, r record.Record) record.Record { return append(r, def) },
		func(_ uint32, _ int, r record.Record) record.Record { return r[:len(r)-1] },
	)
	if err != nil {
		return err
	}

	m.logger.Debug("bufferpool.Manager.AddAttributeValue", "table", t.Name(), "attr", added.Name, "default", def)
	return nil
}

// DropAttributeValue removes cell idx from every row and then the attribute
// from the schema. The primary key cannot be dropped. On error rows and
// schema are left as they were.
func (m *Manager) DropAttributeValue(t *catalog.Table, idx int) error {
	if idx < 0 || idx >= t.NumAttributes() {
		return fmt.Errorf("%w: %s attribute %d", catalog.ErrNoSuchAttribute, t.Name(), idx)
	}
	if idx == t.PrimaryKeyIndex() {
		return fmt.Errorf("%w: cannot drop %s", catalog.ErrPrimaryKey, t.PrimaryKey().Name)
	}

	attrs := t.Attributes()
	name := attrs[idx].Name
	reduced := slices.Delete(slices.Clone(attrs), idx, idx+1)

	dropped := map[record.Pointer]record.Value{}
	err := m.rewriteAll(t, attrs, reduced,
		func(id uint32, slot int, r record.Record) record.Record {
			dropped[record.Pointer{PageID: id, Slot: slot}] = r[idx]
			return slices.Delete(r, idx, idx+1)
		},
		func(id uint32, slot int, r record.Record) record.Record {
			return slices.Insert(r, idx, dropped[record.Pointer{PageID: id, Slot: slot}])
		},
	)
	if err != nil {
		return err
	}

	if _, err := t.DropAttribute(name); err != nil {
		return err
	}
	m.logger.Debug("bufferpool.Manager.DropAttributeValue", "table", t.Name(), "attr", name)
	return nil
}

// rewriteAll moves every page of t from the from layout to the to layout.
// All pages are read once before any is changed, so an unreadable page
// fails the change up front. If a page still fails later, the pages
// already moved are mapped back through undo.
func (m *Manager) rewriteAll(t *catalog.Table, from, to []catalog.Attribute, do, undo cellFunc) error {
	_, err := m.scan(t, from, func(*storage.Page) (bool, error) { return false, nil })
	if err != nil {
		return err
	}

	var done []uint32
	_, err = m.scan(t, from, func(p *storage.Page) (bool, error) {
		if err := m.rewritePage(p, to, do); err != nil {
			return true, err
		}
		done = append(done, p.ID())
		return false, nil
	})
	if err != nil {
		for _, id := range done {
			if uerr := m.restorePage(t, to, from, id, undo); uerr != nil {
				m.logger.Error("undo page rewrite", "table", t.Name(), "page", id, "err", uerr)
			}
		}
	}
	m.settle()
	return err
}

func (m *Manager) restorePage(t *catalog.Table, cur, prev []catalog.Attribute, id uint32, undo cellFunc) error {
	p, err := m.load(t, cur, id)
	if err != nil {
		return err
	}
	defer m.Unpin(p, false)
	return m.rewritePage(p, prev, undo)
}

// rewritePage maps p's rows through fn into attrs, keeping indexes in step.
// On error p is unchanged.
func (m *Manager) rewritePage(p *storage.Page, attrs []catalog.Attribute, fn cellFunc) error {
	slot := 0
	m.unindexPage(p)
	err := p.Rewrite(attrs, func(r record.Record) record.Record {
		out := fn(p.ID(), slot, r)
		slot++
		return out
	})
	m.indexPage(p)
	if err != nil {
		return err
	}
	m.markDirty(p)
	return nil
}
