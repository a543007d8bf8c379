package mmgdb

import (
	"encoding/binary"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/c2h5oh/datasize"
	"github.com/ledgerwatch/minimongo/common/dbutils"
	"github.com/ledgerwatch/minimongo/ethdb"
)

// docCacheSize bounds the read-through document cache every DB carries,
// mirroring logIndicesMemLimit's use of a datasize constant instead of a
// bare integer literal for a memory budget.
const docCacheSize = 64 * datasize.MB

// cacheKey builds the fastcache key for a (collection, record-ID) pair.
// The collection name is length-prefixed so "ab"+recordID(1) and
// "a"+recordID(21) never collide.
func cacheKey(coll string, id uint32) []byte {
	key := make([]byte, 4+len(coll)+4)
	binary.BigEndian.PutUint32(key[:4], uint32(len(coll)))
	copy(key[4:], coll)
	binary.BigEndian.PutUint32(key[4+len(coll):], id)
	return key
}

// cachedPayload is a read-through lookup of a document's encoded JSON
// payload: a cache hit skips the bucket read entirely, a miss falls
// through to the payload table and populates the cache for next time.
//
// Grounded on core/state/db_state_writer.go's accountCache field, here
// repurposed from account state to document payloads and folded into
// the read path itself rather than left to callers to consult.
func (db *DB) cachedPayload(b ethdb.Bucket, coll string, id uint32) ([]byte, error) {
	key := cacheKey(coll, id)
	if v, ok := db.docCache.HasGet(nil, key); ok {
		return v, nil
	}
	if b == nil {
		return nil, nil
	}
	idKey := dbutils.EncodeRecordID(id)
	raw, err := b.Get(idKey[:])
	if err != nil || raw == nil {
		return raw, err
	}
	db.docCache.Set(key, raw)
	return raw, nil
}

// cachePut refreshes the cache entry for (coll, id) after a write so
// readers never observe a stale payload from before the update.
func (db *DB) cachePut(coll string, id uint32, raw []byte) {
	db.docCache.Set(cacheKey(coll, id), raw)
}

// GetDocument is the read-through entry point used by the query
// executor: it resolves a document's payload bytes via the cache before
// falling back to the given payload bucket.
func (db *DB) GetDocument(b ethdb.Bucket, coll string, id uint32) ([]byte, error) {
	return db.cachedPayload(b, coll, id)
}

func newDocCache() *fastcache.Cache {
	return fastcache.New(int(docCacheSize))
}
