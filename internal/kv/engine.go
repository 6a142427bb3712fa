// Package kv adapts an embedded key-value engine to the column-family,
// atomic-batch, prefix-scan and snapshot-ingest contract the three
// replicated state machines share.
package kv

import (
	"context"
	"errors"
	"io"
)

// CF identifies a logical column family. raft_log is not stored through
// this adapter: it is delegated to the Raft library's own log/stable
// store, since the library is assumed to provide log replication and this
// adapter only needs to expose the constant for API completeness.
type CF byte

const (
	CFRaftLog  CF = 'L' // alias only; never written through this adapter
	CFData     CF = 'd'
	CFMetaInfo CF = 'm'
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("kv: key not found")

// WriteOp is one operation inside an atomic WriteBatch.
type WriteOp struct {
	CF     CF
	Key    []byte
	Value  []byte
	Delete bool
}

// Put writes op to insert or overwrite key with value.
func Put(cf CF, key, value []byte) WriteOp { return WriteOp{CF: cf, Key: key, Value: value} }

// Del writes op to remove key.
func Del(cf CF, key []byte) WriteOp { return WriteOp{CF: cf, Key: key, Delete: true} }

// Stats summarizes storage size and housekeeping state.
type Stats struct {
	LSMSize          uint64
	ValueLogSize     uint64
	TotalSize        uint64
	LastGCTimeMillis int64
	GCBytesReclaimed uint64
}

// Engine is the contract every state machine uses to persist its data and
// meta_info column families. Multi-key writes go through WriteBatch so the
// entity row and any index/max-id row commit together or not at all.
type Engine interface {
	Get(ctx context.Context, cf CF, key []byte) ([]byte, error)
	WriteBatch(ctx context.Context, ops []WriteOp) error

	// PrefixIterator calls fn for every key under prefix in key order,
	// stopping early if fn returns false. Used for snapshot dumps and list
	// queries.
	PrefixIterator(ctx context.Context, cf CF, prefix []byte, fn func(key, value []byte) bool) error

	// RemoveRange deletes every key in [begin, end) within cf. Used at
	// snapshot-load time to wipe a column family before ingestion.
	RemoveRange(ctx context.Context, cf CF, begin, end []byte) error

	// SaveSnapshot returns a reader over a point-in-time backup of the
	// entire engine (all column families it owns).
	SaveSnapshot(ctx context.Context) (io.ReadCloser, error)

	// LoadSnapshot atomically replaces engine contents from a backup
	// produced by SaveSnapshot. Used for snapshot restore / bulk ingest.
	LoadSnapshot(ctx context.Context, r io.Reader) error

	// Flush persists any buffered writes so a graceful stop does not lose
	// recent mutations.
	Flush() error

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
