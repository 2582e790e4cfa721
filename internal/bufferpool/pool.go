package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/storage"
)

var (
	DefaultCapacity = 32

	ErrBadPageSize    = errors.New("bufferpool: page size must exceed the page header")
	ErrBadSplit       = errors.New("bufferpool: split offset out of range")
	ErrRecordTooLarge = errors.New("bufferpool: record does not fit in an empty page")
	ErrNotFound       = errors.New("bufferpool: record not found")
	ErrNoIndex        = errors.New("bufferpool: attribute is not indexed")
	ErrNotResident    = errors.New("bufferpool: page is not resident")
)

type Frame struct {
	Page  *storage.Page
	Dirty bool
	Pin   int32
}

// Manager is the page buffer of one database location. It bounds the number
// of resident pages, allocates page ids, reads and writes page files, and
// splits pages that outgrow the page-size budget. Every row operation of the
// engine goes through it.
//
// Manager is not safe for concurrent use.
type Manager struct {
	store    *storage.FileStore
	pageSize int
	capacity int

	frames map[uint32]*Frame
	repl   Replacer
	nextID uint32

	logger *slog.Logger
}

// NewManager seeds page id allocation from the page files already present:
// the next id is one past the largest seen.
func NewManager(store *storage.FileStore, pageSize, capacity int, logger *slog.Logger) (*Manager, error) {
	if pageSize <= storage.HeaderSize {
		return nil, fmt.Errorf("%w: %d", ErrBadPageSize, pageSize)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}

	ids, err := store.ListIDs()
	if err != nil {
		return nil, fmt.Errorf("scan page files: %w", err)
	}
	var next uint32
	if len(ids) > 0 {
		next = ids[len(ids)-1] + 1
	}

	return &Manager{
		store:    store,
		pageSize: pageSize,
		capacity: capacity,
		frames:   make(map[uint32]*Frame),
		repl:     newFIFOReplacer(),
		nextID:   next,
		logger:   logger.With("component", "bufferpool"),
	}, nil
}

func (m *Manager) Capacity() int      { return m.capacity }
func (m *Manager) PageSize() int      { return m.pageSize }
func (m *Manager) Resident() int      { return len(m.frames) }
func (m *Manager) NextPageID() uint32 { return m.nextID }

// ResidentIDs lists resident pages oldest first.
func (m *Manager) ResidentIDs() []uint32 { return m.repl.Order() }

func (m *Manager) IsResident(id uint32) bool {
	_, ok := m.frames[id]
	return ok
}

func (m *Manager) allocID() uint32 {
	id := m.nextID
	m.nextID++
	return id
}

// LoadPage returns page id of t pinned, reading it from disk when it is not
// resident. Release it with Unpin.
func (m *Manager) LoadPage(t *catalog.Table, id uint32) (*storage.Page, error) {
	return m.load(t, t.Attributes(), id)
}

// load decodes a missing page with attrs as its column layout.
func (m *Manager) load(t *catalog.Table, attrs []catalog.Attribute, id uint32) (*storage.Page, error) {
	if f, ok := m.frames[id]; ok {
		f.Pin++
		return f.Page, nil
	}

	p, err := m.store.LoadPage(t, attrs, id, m.pageSize)
	if err != nil {
		return nil, fmt.Errorf("load %s page %d: %w", t.Name(), id, err)
	}
	m.admit(p, false, 1)
	m.settle()
	return p, nil
}

// Unpin releases one pin on p. dirty marks the page for write-back.
func (m *Manager) Unpin(p *storage.Page, dirty bool) {
	f, ok := m.frames[p.ID()]
	if !ok {
		return
	}
	if dirty {
		f.Dirty = true
	}
	if f.Pin > 0 {
		f.Pin--
	}
}

func (m *Manager) pin(p *storage.Page) {
	if f, ok := m.frames[p.ID()]; ok {
		f.Pin++
	}
}

func (m *Manager) markDirty(p *storage.Page) {
	if f, ok := m.frames[p.ID()]; ok {
		f.Dirty = true
	}
}

func (m *Manager) admit(p *storage.Page, dirty bool, pin int32) {
	m.frames[p.ID()] = &Frame{Page: p, Dirty: dirty, Pin: pin}
	m.repl.Admit(p.ID())
}

func (m *Manager) forget(id uint32) {
	delete(m.frames, id)
	m.repl.Remove(id)
}

// newPage allocates an empty, pinned, dirty page for t. The caller places
// it in the table's page list.
func (m *Manager) newPage(t *catalog.Table) *storage.Page {
	p := storage.NewPage(t, m.allocID(), m.pageSize)
	m.admit(p, true, 1)
	return p
}

// discardPage drops an emptied page from its table, the buffer and disk.
func (m *Manager) discardPage(t *catalog.Table, id uint32) error {
	t.RemovePage(id)
	m.forget(id)
	if err := m.store.RemovePage(id); err != nil {
		return fmt.Errorf("remove %s page %d: %w", t.Name(), id, err)
	}
	m.logger.Debug("bufferpool.Manager.discardPage", "table", t.Name(), "page", id)
	return nil
}

// settle runs eviction and logs, rather than returns, a failure: the
// operation that triggered it has already succeeded.
func (m *Manager) settle() {
	if err := m.updateBuffer(); err != nil {
		m.logger.Error("buffer eviction failed", "err", err)
	}
}

// updateBuffer evicts in FIFO order while more than capacity pages are
// resident. An oversize victim is split in place instead and the check
// repeats; pinned pages are skipped.
func (m *Manager) updateBuffer() error {
	for len(m.frames) > m.capacity {
		id, ok := m.repl.Victim(func(id uint32) bool {
			return m.frames[id].Pin == 0
		})
		if !ok {
			return nil
		}

		p := m.frames[id].Page
		if !p.HasSpace() && p.Len() > 1 {
			if _, _, err := m.Split(p, p.Len()/2); err != nil {
				return err
			}
			continue
		}
		if err := m.evict(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) evict(id uint32) error {
	f := m.frames[id]
	if f.Dirty {
		if !f.Page.HasSpace() {
			m.logger.Warn("writing oversize single-row page", "page", id, "size", f.Page.Size())
		}
		if err := m.store.SavePage(f.Page); err != nil {
			return fmt.Errorf("evict page %d: %w", id, err)
		}
	}
	m.forget(id)
	m.logger.Debug("bufferpool.Manager.evict", "page", id, "dirty", f.Dirty)
	return nil
}

// Split moves p's rows into two fresh pages at cut and puts the new ids in
// place of p's id in the table's page list. p is dropped from the buffer and
// disk; indexes are repointed. The halves come back resident and unpinned.
func (m *Manager) Split(p *storage.Page, cut int) (*storage.Page, *storage.Page, error) {
	if cut <= 0 || cut >= p.Len() {
		return nil, nil, fmt.Errorf("%w: %d of %d", ErrBadSplit, cut, p.Len())
	}
	t := p.Table()
	old := p.ID()
	if t.PagePosition(old) < 0 {
		return nil, nil, fmt.Errorf("split %s page %d: %w", t.Name(), old, catalog.ErrNoSuchPage)
	}

	recs := p.Records()
	m.unindexPage(p)
	left := storage.NewPageWithRecords(t, m.allocID(), p.Attrs(), recs[:cut], m.pageSize)
	right := storage.NewPageWithRecords(t, m.allocID(), p.Attrs(), recs[cut:], m.pageSize)
	if err := t.ReplacePage(old, left.ID(), right.ID()); err != nil {
		m.indexPage(p)
		return nil, nil, err
	}

	m.forget(old)
	if err := m.store.RemovePage(old); err != nil {
		m.logger.Warn("remove split page", "table", t.Name(), "page", old, "err", err)
	}
	m.admit(left, true, 0)
	m.admit(right, true, 0)
	m.indexPage(left)
	m.indexPage(right)

	m.logger.Debug("bufferpool.Manager.Split",
		"table", t.Name(),
		"page", old,
		"left", left.ID(),
		"right", right.ID(),
		"cut", cut,
	)
	return left, right, nil
}

// FlushAll splits every oversize resident page, writes every resident page
// whether dirty or not, and empties the buffer. Pages that fail to write
// stay resident.
func (m *Manager) FlushAll() error {
	var errs []error
	for {
		var victim *storage.Page
		for _, id := range m.repl.Order() {
			if p := m.frames[id].Page; !p.HasSpace() && p.Len() > 1 {
				victim = p
				break
			}
		}
		if victim == nil {
			break
		}
		if _, _, err := m.Split(victim, victim.Len()/2); err != nil {
			errs = append(errs, err)
			break
		}
	}

	for _, id := range m.repl.Order() {
		f := m.frames[id]
		if err := m.store.SavePage(f.Page); err != nil {
			errs = append(errs, fmt.Errorf("flush page %d: %w", id, err))
			continue
		}
		m.forget(id)
	}

	m.logger.Debug("bufferpool.Manager.FlushAll", "remaining", len(m.frames))
	return errors.Join(errs...)
}
