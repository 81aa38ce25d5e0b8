package rdbstore

import (
	"bytes"
	"encoding/gob"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	rocksdb "github.com/tecbot/gorocksdb"

	"github.com/timpalpant/go-tenk"
)

const (
	metaPrefix  = "t/"
	statePrefix = "s/"
)

// Store is a tenk.TableStore backed by a RocksDB database.
// Each table is replaced in a single write batch.
type Store struct {
	params Params
	db     *rocksdb.DB
}

// New opens (or creates) a Store with the given parameters.
func New(params Params) (*Store, error) {
	db, err := rocksdb.OpenDb(params.Options, params.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open rocksdb at %s", params.Path)
	}

	return &Store{
		params: params,
		db:     db,
	}, nil
}

func metaKey(name string) []byte {
	return []byte(metaPrefix + name)
}

func stateKeyPrefix(name string) []byte {
	return []byte(statePrefix + name + "\x00")
}

// Close implements io.Closer. The Params are not destroyed.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// SaveTable implements tenk.TableStore.
func (s *Store) SaveTable(name string, t *tenk.Table) error {
	prefix := stateKeyPrefix(name)
	wb := rocksdb.NewWriteBatch()
	defer wb.Destroy()

	it := s.db.NewIterator(s.params.ReadOptions)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Key()
		wb.Delete(key.Data())
		key.Free()
	}

	err := it.Err()
	it.Close()
	if err != nil {
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

		wb.Put(append(append([]byte(nil), prefix...), state...), buf)
	})
	if encodeErr != nil {
		return encodeErr
	}

	var meta bytes.Buffer
	if err := gob.NewEncoder(&meta).Encode(t.Len()); err != nil {
		return err
	}
	wb.Put(metaKey(name), meta.Bytes())

	if err := s.db.Write(s.params.WriteOptions, wb); err != nil {
		return errors.Wrapf(err, "write table %s", name)
	}

	glog.V(1).Infof("Saved table %s with %d states to %s", name, t.Len(), s.params.Path)
	return nil
}

// LoadTable implements tenk.TableStore.
func (s *Store) LoadTable(name string) (*tenk.Table, error) {
	snap := s.db.NewSnapshot()
	defer s.db.ReleaseSnapshot(snap)
	ro := rocksdb.NewDefaultReadOptions()
	defer ro.Destroy()
	ro.SetSnapshot(snap)

	meta, err := s.db.Get(ro, metaKey(name))
	if err != nil {
		return nil, errors.Wrapf(err, "load table %s", name)
	}
	defer meta.Free()

	if !meta.Exists() {
		return nil, errors.Errorf("table %s not found", name)
	}

	var nStates int
	if err := gob.NewDecoder(bytes.NewReader(meta.Data())).Decode(&nStates); err != nil {
		return nil, errors.Wrapf(err, "load table %s", name)
	}

	prefix := stateKeyPrefix(name)
	t := tenk.NewTable(nil)
	it := s.db.NewIterator(ro)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key, value := it.Key(), it.Value()
		state := string(key.Data()[len(prefix):])
		av := new(tenk.ActionValues)
		err := av.GobDecode(value.Data())
		key.Free()
		value.Free()
		if err != nil {
			return nil, errors.Wrapf(err, "decode state %q of table %s", state, name)
		}

		t.SetRewards(state, av)
	}

	if err := it.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan table %s", name)
	}

	if t.Len() != nStates {
		return nil, errors.Errorf("table %s is incomplete: expected %d states, found %d",
			name, nStates, t.Len())
	}

	glog.V(1).Infof("Loaded table %s with %d states", name, t.Len())
	return t, nil
}
