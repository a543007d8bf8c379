// Package ethdb wraps an ordered, transactional key/value substrate
// behind a small interface so the layers above (common/dbutils, mmgdb,
// exec) never import the underlying embedded-database package directly.
//
// The substrate is expected to provide:
//   - named tables ("buckets"), created lazily on first use;
//   - single-writer, multi-reader ACID transactions with snapshot
//     isolation for readers (§5 of the spec this engine implements);
//   - ordered iteration over a bucket's keys via a Cursor.
//
// A multimap ("one key -> many values") bucket is not modeled as a
// distinct substrate feature; it is built on top of an ordinary bucket
// by the Multimap* helpers in multimap.go, which fold the value into the
// key.
package ethdb

// KV is a handle to one database file. All transactions against it go
// through View (read-only) or Update (read-write, serialized against
// any other in-flight Update on the same KV).
type KV interface {
	View(fn func(tx Tx) error) error
	Update(fn func(tx RwTx) error) error
	Close() error
}

// Tx is a read-only transaction: a consistent snapshot as of the moment
// it began, unaffected by writers that commit after it started.
type Tx interface {
	Bucket(name string) Bucket
}

// RwTx is the one writer allowed to be in flight against a KV at a time.
// BucketRw additionally creates the named bucket if it is missing.
type RwTx interface {
	Tx
	BucketRw(name string) (RwBucket, error)
}

// Bucket is a read-only view of one named table.
type Bucket interface {
	Get(k []byte) ([]byte, error)
	Cursor() Cursor
}

// RwBucket additionally allows mutation.
type RwBucket interface {
	Bucket
	Put(k, v []byte) error
	Delete(k []byte) error
}

// Cursor walks a bucket's keys in ascending byte order. A (nil, nil, nil)
// result from any positioning method means "past the end".
type Cursor interface {
	First() (k, v []byte, err error)
	Last() (k, v []byte, err error)
	Seek(prefix []byte) (k, v []byte, err error)
	SeekExact(key []byte) (v []byte, err error)
	Next() (k, v []byte, err error)
	Prev() (k, v []byte, err error)
}
