package engine

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novatable/internal/catalog"
	locking "github.com/tuannm99/novatable/internal/lock"
	"github.com/tuannm99/novatable/internal/record"
)

// CreateTable declares a table and saves the catalog.
func (e *Engine) CreateTable(name string, attrs []catalog.Attribute, primaryKey string) (*catalog.Table, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	t, err := e.catalog.CreateTable(name, attrs, primaryKey)
	if err != nil {
		return nil, err
	}
	e.logger.Info("table created", "table", t.Name(), "attrs", len(attrs), "primary_key", primaryKey)
	return t, e.catalog.Save()
}

// DropTable deletes the table's pages and removes it from the catalog.
func (e *Engine) DropTable(name string) error {
	if e.closed {
		return ErrEngineClosed
	}
	t, ok := e.catalog.Table(name)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, name)
	}
	if err := e.mgr.ClearTableData(t); err != nil {
		return err
	}
	if _, err := e.catalog.DropTable(name); err != nil {
		return err
	}
	e.logger.Info("table dropped", "table", t.Name())
	return e.catalog.Save()
}

// AddColumn appends an attribute and fills it with def in every row.
func (e *Engine) AddColumn(table string, attr catalog.Attribute, def record.Value) error {
	if e.closed {
		return ErrEngineClosed
	}
	t, ok := e.catalog.Table(table)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, table)
	}
	// a new attribute starts out nullable
	if _, err := record.Coerce(attr.Type, def, true); err != nil {
		return fmt.Errorf("%s.%s default: %w", t.Name(), attr.Name, err)
	}
	if err := t.AddAttribute(attr); err != nil {
		return err
	}
	if err := e.mgr.AddAttributeValue(t, def); err != nil {
		// no page kept the new layout
		if _, derr := t.DropAttribute(attr.Name); derr != nil {
			e.logger.Error("roll back add column", "table", t.Name(), "attr", attr.Name, "err", derr)
		}
		return err
	}
	return e.catalog.Save()
}

func (e *Engine) DropColumn(table, attr string) error {
	if e.closed {
		return ErrEngineClosed
	}
	t, ok := e.catalog.Table(table)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, table)
	}
	idx := t.ColumnIndex(attr)
	if idx < 0 {
		return fmt.Errorf("%w: %s.%s", catalog.ErrNoSuchAttribute, t.Name(), attr)
	}
	if err := e.mgr.DropAttributeValue(t, idx); err != nil {
		return err
	}
	return e.catalog.Save()
}

// CreateIndex declares an index on attr and fills it from the table's rows.
func (e *Engine) CreateIndex(table, attr string) error {
	if e.closed {
		return ErrEngineClosed
	}
	t, ok := e.catalog.Table(table)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, table)
	}
	if _, err := t.AddIndex(attr); err != nil {
		return err
	}
	if err := e.mgr.PopulateIndex(t, attr); err != nil {
		t.DropIndex(attr)
		return err
	}
	return e.catalog.Save()
}

// AddForeignKey records a reference from table.attr to refTable.refAttr.
// Both sides must exist; rows are not checked.
func (e *Engine) AddForeignKey(table, attr, refTable, refAttr string) error {
	if e.closed {
		return ErrEngineClosed
	}
	t, ok := e.catalog.Table(table)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, table)
	}
	ref, ok := e.catalog.Table(refTable)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, refTable)
	}
	if t.ColumnIndex(attr) < 0 {
		return fmt.Errorf("%w: %s.%s", catalog.ErrNoSuchAttribute, t.Name(), attr)
	}
	if ref.ColumnIndex(refAttr) < 0 {
		return fmt.Errorf("%w: %s.%s", catalog.ErrNoSuchAttribute, ref.Name(), refAttr)
	}
	fk := catalog.ForeignKey{RefTable: ref.Name(), RefAttribute: refAttr, AttrName: attr}
	if err := t.AddForeignKey(fk); err != nil {
		return err
	}
	return e.catalog.Save()
}

func (e *Engine) SetNotNull(table, attr string, notNull bool) error {
	if e.closed {
		return ErrEngineClosed
	}
	t, ok := e.catalog.Table(table)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, table)
	}
	if err := t.SetNotNull(attr, notNull); err != nil {
		return err
	}
	return e.catalog.Save()
}

// Close flushes the buffer, saves the catalog and releases the location.
// Closing twice returns ErrEngineClosed.
func (e *Engine) Close() error {
	if e.closed {
		return ErrEngineClosed
	}
	e.closed = true
	defer locking.Default.Release(e.catalog.Location())

	err := errors.Join(e.mgr.FlushAll(), e.catalog.Save())
	e.logger.Info("engine closed", "err", err)
	return err
}
