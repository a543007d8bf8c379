package mmgdb

import "testing"

func TestCachedPayloadReadThrough(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateCollection(usersDef()); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	docs := rawDocs(t, map[string]interface{}{"id": "u1", "email": "u1@example.com", "age": 30.0, "tag": "a"})
	if _, err := db.UpdateRecords("users", docs, Merge); err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}

	// The write path should have already warmed the cache; a lookup with
	// a nil bucket must still succeed on a cache hit.
	raw, err := db.cachedPayload(nil, "users", FirstRecordID)
	if err != nil {
		t.Fatalf("cachedPayload: %v", err)
	}
	if raw == nil {
		t.Fatal("expected a cache hit for a just-written document")
	}
}

func TestCacheKeyDoesNotCollideAcrossCollections(t *testing.T) {
	k1 := cacheKey("ab", 1)
	k2 := cacheKey("a", 21)
	if string(k1) == string(k2) {
		t.Error("cacheKey collided across a (collection, record-ID) pair that should differ")
	}
}
