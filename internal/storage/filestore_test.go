package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novatable/internal/record"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestFileStore_SaveLoad(t *testing.T) {
	fs := newTestStore(t)
	tbl := newTestTable(t)

	p := NewPage(tbl, 12, 4096)
	require.NoError(t, p.AddRecord(row(1, "ab", 3.2), 0))
	require.NoError(t, p.AddRecord(row(2, "cd", 5.6), 1))
	require.NoError(t, fs.SavePage(p))

	_, err := os.Stat(filepath.Join(fs.Dir(), "12"))
	require.NoError(t, err)

	back, err := fs.LoadPage(tbl, tbl.Attributes(), 12, 4096)
	require.NoError(t, err)
	require.Equal(t, p.Records(), back.Records())
	require.Equal(t, []record.Value{record.Int(1), record.Int(2)}, back.PrimaryKeys())
}

func TestFileStore_MissingAndMismatchedPages(t *testing.T) {
	fs := newTestStore(t)
	tbl := newTestTable(t)

	_, err := fs.LoadPage(tbl, tbl.Attributes(), 3, 4096)
	require.ErrorIs(t, err, ErrPageNotFound)

	p := NewPage(tbl, 4, 4096)
	data, err := p.Encode()
	require.NoError(t, err)
	require.NoError(t, fs.WritePage(5, data))

	_, err = fs.LoadPage(tbl, tbl.Attributes(), 5, 4096)
	require.ErrorIs(t, err, ErrPageCorrupted)
}

func TestFileStore_ListAndRemove(t *testing.T) {
	fs := newTestStore(t)

	for _, id := range []uint32{10, 2, 7} {
		require.NoError(t, fs.WritePage(id, []byte{0, 0, 0, 0, 0, 0, 0, 0}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "notes.txt"), nil, 0o644))

	ids, err := fs.ListIDs()
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 7, 10}, ids)

	require.NoError(t, fs.RemovePage(7))
	require.NoError(t, fs.RemovePage(7))

	ids, err = fs.ListIDs()
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 10}, ids)
}
