// Package mmgdb is the catalog, counter manager and upsert writer of the
// embedded document engine: it owns one ordered-KV file per workspace,
// the collection definitions and record-ID counters cached in front of
// it, and the document upsert pipeline that keeps payload and index
// tables consistent.
//
// Grounded on the teacher's core/state package (one stateDb handle
// shared by readers and a writer, caches sitting in front of it) and on
// common/dbutils/bucket.go's table-registry conventions, generalized
// from a single fixed global bucket list to a per-workspace catalog of
// user-declared collections.
package mmgdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ledgerwatch/minimongo/common/dbutils"
	"github.com/ledgerwatch/minimongo/ethdb"
	"github.com/ledgerwatch/minimongo/mmglog"
)

// FirstRecordID is the record-ID assigned to the first document ever
// inserted into a collection (§3.1).
const FirstRecordID uint32 = 1_000_000_000

// CollectionDef is a collection's immutable schema (§3.1). PrimaryKey,
// IndexesF64, IndexesString and IndexesStringUnique must be pairwise
// disjoint; PrimaryKey must not appear in any index set.
type CollectionDef struct {
	Name                string   `json:"name"`
	PrimaryKey          string   `json:"primary_key"`
	IndexesF64          []string `json:"indexes_f64"`
	IndexesString       []string `json:"indexes_string"`
	IndexesStringUnique []string `json:"indexes_string_unique"`
}

func (c CollectionDef) validate() error {
	if c.Name == "" {
		return &SchemaError{Reason: "collection name is required"}
	}
	if c.PrimaryKey == "" {
		return &SchemaError{Reason: "primary_key is required"}
	}
	seen := map[string]string{c.PrimaryKey: "primary_key"}
	check := func(field, set string) error {
		if owner, ok := seen[field]; ok {
			return &SchemaError{Reason: fmt.Sprintf("field %q appears in both %s and %s", field, owner, set)}
		}
		seen[field] = set
		return nil
	}
	for _, f := range c.IndexesF64 {
		if err := check(f, "indexes_f64"); err != nil {
			return err
		}
	}
	for _, f := range c.IndexesString {
		if err := check(f, "indexes_string"); err != nil {
			return err
		}
	}
	for _, f := range c.IndexesStringUnique {
		if err := check(f, "indexes_string_unique"); err != nil {
			return err
		}
	}
	return nil
}

// FieldClass classifies a field against a collection's schema, in the
// priority order required by §4.4.1: primary-key, then string-unique,
// then string-multi, then f64, then no-index.
type FieldClass int

const (
	ClassNoIndex FieldClass = iota
	ClassPrimaryKey
	ClassStringUnique
	ClassStringMulti
	ClassF64
)

func (c CollectionDef) Classify(field string) FieldClass {
	if field == c.PrimaryKey {
		return ClassPrimaryKey
	}
	for _, f := range c.IndexesStringUnique {
		if f == field {
			return ClassStringUnique
		}
	}
	for _, f := range c.IndexesString {
		if f == field {
			return ClassStringMulti
		}
	}
	for _, f := range c.IndexesF64 {
		if f == field {
			return ClassF64
		}
	}
	return ClassNoIndex
}

// DB is one workspace's database handle: a single ordered-KV file plus
// the in-memory collection and counter caches mirrored in front of it.
// Multiple HTTP handlers and query executions share one *DB for the
// process lifetime of that workspace (§3.1 "lifetime = process").
type DB struct {
	Workspace string
	kv        ethdb.KV
	docCache  *fastcache.Cache

	collMu      sync.RWMutex
	collections map[string]CollectionDef

	counterMu sync.RWMutex
	counters  map[string]uint32
}

func (db *DB) KV() ethdb.KV { return db.kv }

// Registry is the process-wide workspace -> *DB map (§3.1, §9 "process-
// global state must be a deliberately designed registry"). The zero
// value is ready to use.
type Registry struct {
	mu   sync.RWMutex
	dbs  map[string]*DB
	root string // base directory for "MMG/W_<workspace>.db" files
}

// NewRegistry creates a registry rooted at dir (normally "MMG").
func NewRegistry(dir string) *Registry {
	return &Registry{dbs: make(map[string]*DB), root: dir}
}

// Open returns the shared handle for workspace, creating the backing
// file and seeding its system tables on first call. Concurrent first
// callers agree on one handle via double-checked locking (§4.1).
func (r *Registry) Open(workspace string) (*DB, error) {
	r.mu.RLock()
	db, ok := r.dbs[workspace]
	r.mu.RUnlock()
	if ok {
		return db, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.dbs[workspace]; ok {
		return db, nil
	}
	if r.dbs == nil {
		r.dbs = make(map[string]*DB)
	}

	path := filepath.Join(r.root, fmt.Sprintf("W_%s.db", workspace))
	kv, err := ethdb.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workspace %q: %w", workspace, err)
	}

	db, err = loadOrInit(workspace, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	r.dbs[workspace] = db
	mmglog.Info("opened workspace", "workspace", workspace, "path", path)
	return db, nil
}

func loadOrInit(workspace string, kv ethdb.KV) (*DB, error) {
	db := &DB{
		Workspace:   workspace,
		kv:          kv,
		docCache:    newDocCache(),
		collections: make(map[string]CollectionDef),
		counters:    make(map[string]uint32),
	}
	err := kv.Update(func(tx ethdb.RwTx) error {
		defB, err := tx.BucketRw(dbutils.CollectionDefineTable())
		if err != nil {
			return err
		}
		cntB, err := tx.BucketRw(dbutils.CounterTable())
		if err != nil {
			return err
		}
		c := defB.Cursor()
		for k, v, err := c.First(); k != nil; k, v, err = c.Next() {
			if err != nil {
				return err
			}
			var def CollectionDef
			if err := json.Unmarshal(v, &def); err != nil {
				return fmt.Errorf("corrupt collection definition %q: %w", k, err)
			}
			db.collections[string(k)] = def
		}
		cc := cntB.Cursor()
		for k, v, err := cc.First(); k != nil; k, v, err = cc.Next() {
			if err != nil {
				return err
			}
			db.counters[string(k)] = binary.BigEndian.Uint32(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CreateCollection writes def into the collection_define table, seeds
// its counter at FirstRecordID if absent, and creates its payload,
// primary-key, reverse-f64 and per-index tables — all within one write
// transaction. Re-creating an existing name replaces its definition
// (§4.2 "behavior is replace"; callers are expected to avoid
// double-create).
func (db *DB) CreateCollection(def CollectionDef) error {
	if err := def.validate(); err != nil {
		return err
	}

	err := db.kv.Update(func(tx ethdb.RwTx) error {
		defB, err := tx.BucketRw(dbutils.CollectionDefineTable())
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(def)
		if err != nil {
			return err
		}
		if err := defB.Put([]byte(def.Name), encoded); err != nil {
			return err
		}

		cntB, err := tx.BucketRw(dbutils.CounterTable())
		if err != nil {
			return err
		}
		if existing, _ := cntB.Get([]byte(def.Name)); existing == nil {
			var buf [4]byte
			binary.BigEndian.PutUint32(buf[:], FirstRecordID)
			if err := cntB.Put([]byte(def.Name), buf[:]); err != nil {
				return err
			}
		}

		tables := []string{
			dbutils.PayloadTable(def.Name),
			dbutils.PrimaryTable(def.Name),
			dbutils.ReverseF64Table(def.Name),
		}
		for _, f := range def.IndexesF64 {
			tables = append(tables, dbutils.F64Table(def.Name, f))
		}
		for _, f := range def.IndexesString {
			tables = append(tables, dbutils.StringTable(def.Name, f))
		}
		for _, f := range def.IndexesStringUnique {
			tables = append(tables, dbutils.StringUniqueTable(def.Name, f))
		}
		for _, t := range tables {
			if _, err := tx.BucketRw(t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", def.Name, err)
	}

	db.collMu.Lock()
	db.collections[def.Name] = def
	db.collMu.Unlock()

	db.counterMu.Lock()
	if _, ok := db.counters[def.Name]; !ok {
		db.counters[def.Name] = FirstRecordID
	}
	db.counterMu.Unlock()

	mmglog.Info("created collection", "workspace", db.Workspace, "collection", def.Name)
	return nil
}

// ListCollections returns a snapshot of every collection definition.
func (db *DB) ListCollections() []CollectionDef {
	db.collMu.RLock()
	defer db.collMu.RUnlock()
	out := make([]CollectionDef, 0, len(db.collections))
	for _, def := range db.collections {
		out = append(out, def)
	}
	return out
}

// GetCollection returns a copy of the named collection's definition.
func (db *DB) GetCollection(name string) (CollectionDef, error) {
	db.collMu.RLock()
	def, ok := db.collections[name]
	db.collMu.RUnlock()
	if !ok {
		return CollectionDef{}, &NotFoundError{Kind: "collection", Name: name}
	}
	return def, nil
}

// nextRecordID allocates the next record-ID for coll without persisting
// it; callers must flush the new high-water mark via flushCounterTx
// inside the same write transaction that used the ID (§4.2 step 8, §3.3
// invariant 5).
func (db *DB) nextRecordID(coll string) uint32 {
	db.counterMu.Lock()
	defer db.counterMu.Unlock()
	id := db.counters[coll]
	if id == 0 {
		id = FirstRecordID
	}
	db.counters[coll] = id + 1
	return id
}

// currentCounter reports the counter value for coll without allocating.
func (db *DB) currentCounter(coll string) uint32 {
	db.counterMu.RLock()
	defer db.counterMu.RUnlock()
	return db.counters[coll]
}

// flushCounterTx persists the in-memory high-water mark for coll to the
// counter table, as part of the same write transaction the batch used
// (§4.2 step 8, §3.3 invariant 5: the on-disk counter must be >= the
// largest record-ID that ever existed).
func (db *DB) flushCounterTx(tx ethdb.RwTx, coll string) error {
	value := db.currentCounter(coll)
	b, err := tx.BucketRw(dbutils.CounterTable())
	if err != nil {
		return err
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], value)
	return b.Put([]byte(coll), buf[:])
}
