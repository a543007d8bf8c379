package ethdb

import (
	"os"
	"path/filepath"

	"github.com/ledgerwatch/bolt"
)

// boltKV is the concrete ordered-KV substrate, grounded on
// ethdb/memory_database.go's bolt.Open/bolt.Options usage in the teacher
// repo. bolt.DB already gives exactly the semantics §5 of the spec
// requires: one writer transaction at a time, many concurrent readers
// each pinned to the snapshot active when they began.
type boltKV struct {
	db *bolt.DB
}

// OpenFile opens (creating if absent) a bolt-backed database file at path,
// creating parent directories as needed.
func OpenFile(path string) (KV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	return &boltKV{db: db}, nil
}

// OpenMem opens a memory-only database.
func OpenMem() (KV, error) {
	db, err := bolt.Open("in-memory", 0o600, &bolt.Options{MemOnly: true})
	if err != nil {
		return nil, err
	}
	return &boltKV{db: db}, nil
}

func (k *boltKV) Close() error { return k.db.Close() }

func (k *boltKV) View(fn func(tx Tx) error) error {
	return k.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{btx: btx})
	})
}

func (k *boltKV) Update(fn func(tx RwTx) error) error {
	return k.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{btx: btx})
	})
}

type boltTx struct {
	btx *bolt.Tx
}

func (t *boltTx) Bucket(name string) Bucket {
	b := t.btx.Bucket([]byte(name))
	if b == nil {
		return nil
	}
	return &boltBucket{b: b}
}

func (t *boltTx) BucketRw(name string) (RwBucket, error) {
	b, err := t.btx.CreateBucketIfNotExists([]byte(name), false)
	if err != nil {
		return nil, err
	}
	return &boltBucket{b: b}, nil
}

type boltBucket struct {
	b *bolt.Bucket
}

func (b *boltBucket) Get(k []byte) ([]byte, error) {
	v := b.b.Get(k)
	if v == nil {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *boltBucket) Put(k, v []byte) error    { return b.b.Put(k, v) }
func (b *boltBucket) Delete(k []byte) error    { return b.b.Delete(k) }
func (b *boltBucket) Cursor() Cursor           { return &boltCursor{c: b.b.Cursor()} }

type boltCursor struct {
	c *bolt.Cursor
}

func (c *boltCursor) First() ([]byte, []byte, error) { k, v := c.c.First(); return k, v, nil }
func (c *boltCursor) Last() ([]byte, []byte, error)  { k, v := c.c.Last(); return k, v, nil }
func (c *boltCursor) Next() ([]byte, []byte, error)  { k, v := c.c.Next(); return k, v, nil }
func (c *boltCursor) Prev() ([]byte, []byte, error)  { k, v := c.c.Prev(); return k, v, nil }

func (c *boltCursor) Seek(prefix []byte) ([]byte, []byte, error) {
	k, v := c.c.Seek(prefix)
	return k, v, nil
}

func (c *boltCursor) SeekExact(key []byte) ([]byte, error) {
	k, v := c.c.Seek(key)
	if k == nil || string(k) != string(key) {
		return nil, nil
	}
	return v, nil
}
