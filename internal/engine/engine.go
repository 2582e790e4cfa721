package engine

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tuannm99/novatable/internal/bufferpool"
	"github.com/tuannm99/novatable/internal/catalog"
	locking "github.com/tuannm99/novatable/internal/lock"
	"github.com/tuannm99/novatable/internal/record"
	"github.com/tuannm99/novatable/internal/storage"
)

const DefaultPageSize = 4096

var ErrEngineClosed = errors.New("engine: closed")

type Options struct {
	Location   string
	PageSize   int
	BufferSize int
	Logger     *slog.Logger
}

// Engine is the storage facade of one database location. Row operations
// report failure as false or an absent record and log the cause; schema
// operations return errors.
//
// Engine is not safe for concurrent use.
type Engine struct {
	id      uuid.UUID
	catalog *catalog.Catalog
	store   *storage.FileStore
	mgr     *bufferpool.Manager
	logger  *slog.Logger
	closed  bool
}

// Open loads or creates the database at opts.Location and rebuilds every
// declared index. The location stays claimed until Close.
func Open(opts Options) (*Engine, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("engine: empty location")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = bufferpool.DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := locking.Default.Acquire(opts.Location); err != nil {
		return nil, err
	}
	e, err := open(opts)
	if err != nil {
		locking.Default.Release(opts.Location)
		return nil, err
	}
	return e, nil
}

func open(opts Options) (*Engine, error) {
	cat, err := catalog.Open(opts.Location, cmp.Or(opts.PageSize, DefaultPageSize), opts.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	cat.SetBufferSize(opts.BufferSize)

	id := uuid.New()
	logger := opts.Logger.With("session", id.String(), "location", opts.Location)
	if opts.PageSize > 0 && cat.PageSize() != opts.PageSize {
		logger.Warn("keeping the page size the database was created with",
			"stored", cat.PageSize(),
			"requested", opts.PageSize,
		)
	}

	store, err := storage.NewFileStore(opts.Location)
	if err != nil {
		return nil, err
	}
	mgr, err := bufferpool.NewManager(store, cat.PageSize(), cat.BufferSize(), logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:      id,
		catalog: cat,
		store:   store,
		mgr:     mgr,
		logger:  logger,
	}
	for _, t := range cat.Tables() {
		for _, name := range t.IndexedAttributes() {
			if err := mgr.PopulateIndex(t, name); err != nil {
				return nil, fmt.Errorf("rebuild index %s.%s: %w", t.Name(), name, err)
			}
		}
	}

	logger.Info("engine opened",
		"tables", len(cat.Tables()),
		"page_size", cat.PageSize(),
		"buffer_size", cat.BufferSize(),
		"next_page", mgr.NextPageID(),
	)
	return e, nil
}

func (e *Engine) SessionID() uuid.UUID        { return e.id }
func (e *Engine) Location() string            { return e.catalog.Location() }
func (e *Engine) Catalog() *catalog.Catalog   { return e.catalog }
func (e *Engine) Buffer() *bufferpool.Manager { return e.mgr }
func (e *Engine) Store() *storage.FileStore   { return e.store }
func (e *Engine) Tables() []*catalog.Table    { return e.catalog.Tables() }

func (e *Engine) Table(name string) (*catalog.Table, bool) {
	return e.catalog.Table(name)
}

// table resolves name for a row operation, logging a miss.
func (e *Engine) table(op, name string) (*catalog.Table, bool) {
	if e.closed {
		e.logger.Error(op, "table", name, "err", ErrEngineClosed)
		return nil, false
	}
	t, ok := e.catalog.Table(name)
	if !ok {
		e.logger.Error(op, "table", name, "err", catalog.ErrNoSuchTable)
	}
	return t, ok
}

func (e *Engine) report(op string, t *catalog.Table, err error, args ...any) bool {
	if err == nil {
		return true
	}
	args = append([]any{"table", t.Name(), "err", err}, args...)
	// bad input is routine; anything else is a storage failure
	if isValidation(err) {
		e.logger.Info(op, args...)
	} else {
		e.logger.Error(op, args...)
	}
	return false
}

func isValidation(err error) bool {
	for _, target := range []error{
		record.ErrTypeMismatch,
		record.ErrNullViolation,
		record.ErrStringTooLong,
		record.ErrBadLiteral,
		record.ErrReservedValue,
		record.ErrArity,
		storage.ErrDuplicateKey,
		bufferpool.ErrNotFound,
		bufferpool.ErrRecordTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetRecord returns the row of table whose primary key is pk.
func (e *Engine) GetRecord(table string, pk record.Value) (record.Record, bool) {
	t, ok := e.table("get record", table)
	if !ok {
		return nil, false
	}
	rec, err := e.mgr.GetRecord(t, pk)
	if errors.Is(err, bufferpool.ErrNotFound) {
		return nil, false
	}
	if !e.report("get record", t, err, "key", pk) {
		return nil, false
	}
	return rec, true
}

// GetRecords returns every row of table in primary-key order, or nil when
// the table cannot be read.
func (e *Engine) GetRecords(table string) []record.Record {
	t, ok := e.table("get records", table)
	if !ok {
		return nil
	}
	recs, err := e.mgr.GetAllRecords(t)
	if !e.report("get records", t, err) {
		return nil
	}
	return recs
}

func (e *Engine) InsertRecord(table string, rec record.Record) bool {
	t, ok := e.table("insert record", table)
	if !ok {
		return false
	}
	return e.report("insert record", t, e.mgr.InsertRecord(t, rec), "record", rec)
}

func (e *Engine) DeleteRecord(table string, pk record.Value) bool {
	t, ok := e.table("delete record", table)
	if !ok {
		return false
	}
	return e.report("delete record", t, e.mgr.DeleteRecord(t, pk), "key", pk)
}

// UpdateRecord replaces old with updated. Applying the same update twice
// succeeds both times and leaves the same state.
func (e *Engine) UpdateRecord(table string, old, updated record.Record) bool {
	t, ok := e.table("update record", table)
	if !ok {
		return false
	}
	return e.report("update record", t, e.mgr.UpdateRecord(t, old, updated), "old", old, "new", updated)
}

func (e *Engine) ClearTableData(table string) bool {
	t, ok := e.table("clear table", table)
	if !ok {
		return false
	}
	return e.report("clear table", t, e.mgr.ClearTableData(t))
}

// AddAttributeValue fills the table's most recently added attribute with
// def in every existing row.
func (e *Engine) AddAttributeValue(table string, def record.Value) bool {
	t, ok := e.table("add attribute value", table)
	if !ok {
		return false
	}
	return e.report("add attribute value", t, e.mgr.AddAttributeValue(t, def), "default", def)
}

// DropAttributeValue removes attribute idx from every row and from the
// schema.
func (e *Engine) DropAttributeValue(table string, idx int) bool {
	t, ok := e.table("drop attribute value", table)
	if !ok {
		return false
	}
	return e.report("drop attribute value", t, e.mgr.DropAttributeValue(t, idx), "index", idx)
}

func (e *Engine) PopulateIndex(table, attr string) bool {
	t, ok := e.table("populate index", table)
	if !ok {
		return false
	}
	return e.report("populate index", t, e.mgr.PopulateIndex(t, attr), "attr", attr)
}

// FlushAll writes every resident page and empties the buffer.
func (e *Engine) FlushAll() {
	if err := e.mgr.FlushAll(); err != nil {
		e.logger.Error("flush all", "err", err)
	}
}
