// Package rdbstore implements a table store that keeps learned tables
// in a RocksDB database, one record per state.
//
// It behaves like ldbstore.Store, but RocksDB compacts large tables
// much better than LevelDB.
package rdbstore

import (
	rocksdb "github.com/tecbot/gorocksdb"
)

type Params struct {
	Path         string
	Options      *rocksdb.Options
	ReadOptions  *rocksdb.ReadOptions
	WriteOptions *rocksdb.WriteOptions
}

func DefaultParams(path string) Params {
	opts := rocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCompression(rocksdb.ZSTDCompression)

	wOpts := rocksdb.NewDefaultWriteOptions()
	wOpts.SetSync(true)

	return Params{
		Path:         path,
		Options:      opts,
		ReadOptions:  rocksdb.NewDefaultReadOptions(),
		WriteOptions: wOpts,
	}
}

func (p Params) Close() {
	p.Options.Destroy()
	p.ReadOptions.Destroy()
	p.WriteOptions.Destroy()
}
