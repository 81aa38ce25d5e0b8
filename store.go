package tenk

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// TableStore saves and loads named tables.
type TableStore interface {
	// SaveTable replaces the table stored under name.
	SaveTable(name string, t *Table) error
	// LoadTable returns the table stored under name. It either returns
	// the complete table or an error.
	LoadTable(name string) (*Table, error)
	io.Closer
}

// DirStore is a TableStore that keeps each table in its own file
// within a directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a DirStore keeping tables in dir, which is created
// if it does not exist.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create table dir")
	}

	return &DirStore{dir: dir}, nil
}

func (s *DirStore) path(name string) string {
	return filepath.Join(s.dir, name+".gob")
}

// SaveTable implements TableStore. The table is written to a temporary
// file which is then renamed, so readers never observe a partial table.
func (s *DirStore) SaveTable(name string, t *Table) error {
	outPath := s.path(name)
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open tmp table")
	}

	w := bufio.NewWriter(f)
	if err := t.MarshalTo(w); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "write table %s", name)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "write table %s", name)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "close tmp table")
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "rename table")
	}

	glog.V(1).Infof("Saved table %s with %d states to %s", name, t.Len(), outPath)
	return nil
}

// LoadTable implements TableStore.
func (s *DirStore) LoadTable(name string) (*Table, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "open table %s", name)
	}
	defer f.Close()

	t, err := LoadTable(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "load table %s", name)
	}

	glog.V(1).Infof("Loaded table %s with %d states", name, t.Len())
	return t, nil
}

// Close implements io.Closer.
func (s *DirStore) Close() error {
	return nil
}
