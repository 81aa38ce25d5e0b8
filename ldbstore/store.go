package ldbstore

import (
	"bytes"
	"encoding/gob"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/timpalpant/go-tenk"
)

const (
	metaPrefix  = "t/"
	statePrefix = "s/"
)

// Store is a tenk.TableStore that keeps every state of every table as its
// own record in a LevelDB database. Each table is replaced in a single
// batch, so a table is either loaded completely or not at all.
type Store struct {
	path string
	db   *leveldb.DB

	rOpts *opt.ReadOptions
	wOpts *opt.WriteOptions
}

// New opens (or creates) a Store backed by a LevelDB database at the given path.
func New(path string, opts *opt.Options) (*Store, error) {
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb at %s", path)
	}

	return &Store{
		path:  path,
		db:    db,
		wOpts: &opt.WriteOptions{Sync: true},
	}, nil
}

func metaKey(name string) []byte {
	return []byte(metaPrefix + name)
}

func stateKeyPrefix(name string) []byte {
	return []byte(statePrefix + name + "\x00")
}

// Close implements io.Closer.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTable implements tenk.TableStore.
func (s *Store) SaveTable(name string, t *tenk.Table) error {
	prefix := stateKeyPrefix(name)
	batch := new(leveldb.Batch)

	iter := s.db.NewIterator(util.BytesPrefix(prefix), s.rOpts)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.Wrapf(err, "scan table %s", name)
	}

	var encodeErr error
	t.VisitStates(func(state string, av *tenk.ActionValues) {
		if encodeErr != nil {
			return
		}

		buf, err := av.GobEncode()
		if err != nil {
			encodeErr = errors.Wrapf(err, "encode state %q", state)
			return
		}

		batch.Put(append(append([]byte(nil), prefix...), state...), buf)
	})
	if encodeErr != nil {
		return encodeErr
	}

	meta, err := encodeCount(t.Len())
	if err != nil {
		return err
	}
	batch.Put(metaKey(name), meta)

	if err := s.db.Write(batch, s.wOpts); err != nil {
		return errors.Wrapf(err, "write table %s", name)
	}

	glog.V(1).Infof("Saved table %s with %d states to %s", name, t.Len(), s.path)
	return nil
}

// LoadTable implements tenk.TableStore.
func (s *Store) LoadTable(name string) (*tenk.Table, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "snapshot")
	}
	defer snap.Release()

	meta, err := snap.Get(metaKey(name), s.rOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "load table %s", name)
	}

	nStates, err := decodeCount(meta)
	if err != nil {
		return nil, errors.Wrapf(err, "load table %s", name)
	}

	prefix := stateKeyPrefix(name)
	t := tenk.NewTable(nil)
	iter := snap.NewIterator(util.BytesPrefix(prefix), s.rOpts)
	defer iter.Release()
	for iter.Next() {
		state := string(iter.Key()[len(prefix):])
		av := new(tenk.ActionValues)
		if err := av.GobDecode(iter.Value()); err != nil {
			return nil, errors.Wrapf(err, "decode state %q of table %s", state, name)
		}

		t.SetRewards(state, av)
	}

	if err := iter.Error(); err != nil {
		return nil, errors.Wrapf(err, "scan table %s", name)
	}

	if t.Len() != nStates {
		return nil, errors.Errorf("table %s is incomplete: expected %d states, found %d",
			name, nStates, t.Len())
	}

	glog.V(1).Infof("Loaded table %s with %d states", name, t.Len())
	return t, nil
}

func encodeCount(n int) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(n); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeCount(buf []byte) (int, error) {
	var n int
	err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&n)
	return n, err
}
