// Package ldbstore implements a table store that keeps learned tables
// on disk in a LevelDB database, one record per state.
//
// It is slower than saving a table to a single file, but tables can be
// inspected and shared between runs of different agents in one database.
package ldbstore
