package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tuannm99/novatable/internal/alias/util"
)

const (
	catalogFile    = "catalog.json"
	catalogVersion = 1
)

// Catalog holds the tables of one database location together with the
// page-size budget and the page-buffer capacity.
type Catalog struct {
	location   string
	pageSize   int
	bufferSize int
	nextID     int
	tables     map[string]*Table
}

type tableMeta struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes"`
	PrimaryKey string      `json:"primary_key"`
	NotNull    []string    `json:"not_null"`
	ForeignKey *ForeignKey `json:"foreign_key,omitempty"`
	Pages      []uint32    `json:"pages"`
	Indexes    []string    `json:"indexes,omitempty"`
}

type catalogMeta struct {
	Version     int         `json:"version"`
	PageSize    int         `json:"page_size"`
	BufferSize  int         `json:"buffer_size"`
	NextTableID int         `json:"next_table_id"`
	Tables      []tableMeta `json:"tables"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func New(location string, pageSize, bufferSize int) *Catalog {
	return &Catalog{
		location:   location,
		pageSize:   pageSize,
		bufferSize: bufferSize,
		tables:     map[string]*Table{},
	}
}

func (c *Catalog) Location() string { return c.location }
func (c *Catalog) PageSize() int    { return c.pageSize }
func (c *Catalog) BufferSize() int  { return c.bufferSize }

func (c *Catalog) SetBufferSize(n int) { c.bufferSize = n }

func (c *Catalog) path() string { return filepath.Join(c.location, catalogFile) }

// CreateTable declares a new table. Names are unique ignoring case.
func (c *Catalog) CreateTable(name string, attrs []Attribute, primaryKey string) (*Table, error) {
	if _, exists := c.tables[fold(name)]; exists {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	t, err := NewTable(c.nextID, name, attrs, primaryKey)
	if err != nil {
		return nil, err
	}
	c.nextID++
	c.tables[fold(name)] = t
	return t, nil
}

func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[fold(name)]
	return t, ok
}

// Tables returns every table in creation order.
func (c *Catalog) Tables() []*Table { return sortedTables(c.tables) }

// DropTable forgets the table. Its page files are the caller's to delete.
func (c *Catalog) DropTable(name string) (*Table, error) {
	t, ok := c.tables[fold(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
	}
	delete(c.tables, fold(name))
	return t, nil
}

// Save writes catalog.json atomically. Index contents are not saved, only
// which attributes are indexed.
func (c *Catalog) Save() error {
	m := catalogMeta{
		Version:     catalogVersion,
		PageSize:    c.pageSize,
		BufferSize:  c.bufferSize,
		NextTableID: c.nextID,
		UpdatedAt:   time.Now(),
	}
	for _, t := range c.Tables() {
		tm := tableMeta{
			ID:         t.id,
			Name:       t.name,
			Attributes: t.Attributes(),
			PrimaryKey: t.pk,
			Pages:      t.PageIDs(),
			Indexes:    t.IndexedAttributes(),
		}
		for _, a := range t.attrs {
			if !t.IsNullable(a.Name) {
				tm.NotNull = append(tm.NotNull, a.Name)
			}
		}
		if fk, ok := t.ForeignKey(); ok {
			tm.ForeignKey = &fk
		}
		m.Tables = append(m.Tables, tm)
	}

	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.location, 0o755); err != nil {
		return err
	}
	if err := util.WriteFileAtomic(c.path(), data, 0o644); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	slog.Debug("catalog.saved", "path", c.path(), "tables", len(m.Tables))
	return nil
}

// Load reads catalog.json from location. A missing file surfaces as
// os.ErrNotExist.
func Load(location string) (*Catalog, error) {
	c := New(location, 0, 0)
	data, err := os.ReadFile(c.path())
	if err != nil {
		return nil, err
	}

	var m catalogMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.pageSize = m.PageSize
	c.bufferSize = m.BufferSize
	c.nextID = m.NextTableID

	for _, tm := range m.Tables {
		t, err := NewTable(tm.ID, tm.Name, tm.Attributes, tm.PrimaryKey)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", tm.Name, err)
		}
		for _, name := range tm.NotNull {
			if err := t.SetNotNull(name, true); err != nil {
				return nil, fmt.Errorf("table %s: %w", tm.Name, err)
			}
		}
		if tm.ForeignKey != nil {
			if err := t.AddForeignKey(*tm.ForeignKey); err != nil {
				return nil, fmt.Errorf("table %s: %w", tm.Name, err)
			}
		}
		for _, id := range tm.Pages {
			t.AddPage(id)
		}
		for _, name := range tm.Indexes {
			if _, err := t.AddIndex(name); err != nil {
				return nil, fmt.Errorf("table %s: %w", tm.Name, err)
			}
		}
		c.tables[fold(t.name)] = t
		c.nextID = max(c.nextID, t.id+1)
	}
	return c, nil
}

// Open loads the catalog at location, or starts an empty one there when none
// has been saved yet. pageSize and bufferSize only seed a new catalog.
func Open(location string, pageSize, bufferSize int) (*Catalog, error) {
	c, err := Load(location)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return New(location, pageSize, bufferSize), nil
}
