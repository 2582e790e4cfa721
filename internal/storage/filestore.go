package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/tuannm99/novatable/internal/alias/util"
	"github.com/tuannm99/novatable/internal/catalog"
)

const pagesDir = "pages"

// FileStore keeps one file per page at <location>/pages/<pageId>.
type FileStore struct {
	dir string
}

func NewFileStore(location string) (*FileStore, error) {
	dir := filepath.Join(location, pagesDir)
	if err := os.MkdirAll(dir, FileMode0755); err != nil {
		return nil, fmt.Errorf("create page dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) Dir() string { return fs.dir }

func (fs *FileStore) Path(id uint32) string {
	return filepath.Join(fs.dir, strconv.FormatUint(uint64(id), 10))
}

func (fs *FileStore) ReadPage(id uint32) ([]byte, error) {
	data, err := os.ReadFile(fs.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %d", ErrPageNotFound, id)
	}
	return data, err
}

func (fs *FileStore) WritePage(id uint32, data []byte) error {
	return util.WriteFileAtomic(fs.Path(id), data, FileMode0644)
}

// RemovePage deletes the page file. A missing file is not an error.
func (fs *FileStore) RemovePage(id uint32) error {
	err := os.Remove(fs.Path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ListIDs returns the ids of every page file in ascending order. Names that
// are not page ids are ignored.
func (fs *FileStore) ListIDs() ([]uint32, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, err
	}
	var ids []uint32
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(id))
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadPage reads and decodes page id using attrs as the column layout.
func (fs *FileStore) LoadPage(t *catalog.Table, attrs []catalog.Attribute, id uint32, budget int) (*Page, error) {
	data, err := fs.ReadPage(id)
	if err != nil {
		return nil, err
	}
	p, err := DecodePage(t, attrs, data, budget)
	if err != nil {
		return nil, err
	}
	if p.ID() != id {
		return nil, fmt.Errorf("%w: file %d holds page %d", ErrPageCorrupted, id, p.ID())
	}
	return p, nil
}

// SavePage writes the page to its file, replacing any previous version.
func (fs *FileStore) SavePage(p *Page) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	return fs.WritePage(p.ID(), data)
}
