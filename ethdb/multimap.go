package ethdb

import "encoding/binary"

// Multimap encodes a "one key -> many values" table (the <C>@string@<F>
// index of the spec) on top of an ordinary ordered bucket, since the
// substrate wrapped here does not expose native dup-sort support.
//
// Each member (key, id) is stored as its own row under a composite key
// [4-byte len(key)][key bytes][4-byte id]; every row sharing the same
// key shares the same composite prefix, so ForEach can range-scan it
// without caring what bytes key itself contains.
func multimapKey(key []byte, id uint32) []byte {
	out := make([]byte, 4+len(key)+4)
	binary.BigEndian.PutUint32(out[:4], uint32(len(key)))
	copy(out[4:4+len(key)], key)
	binary.BigEndian.PutUint32(out[4+len(key):], id)
	return out
}

func multimapPrefix(key []byte) []byte {
	out := make([]byte, 4+len(key))
	binary.BigEndian.PutUint32(out[:4], uint32(len(key)))
	copy(out[4:], key)
	return out
}

// MultimapPut adds (key -> id) to a multimap bucket.
func MultimapPut(b RwBucket, key []byte, id uint32) error {
	return b.Put(multimapKey(key, id), nil)
}

// MultimapDelete removes (key -> id) from a multimap bucket, if present.
func MultimapDelete(b RwBucket, key []byte, id uint32) error {
	return b.Delete(multimapKey(key, id))
}

// MultimapForEach walks every id stored under key, in ascending id
// order, until fn returns false or the members are exhausted.
func MultimapForEach(b Bucket, key []byte, fn func(id uint32) bool) error {
	if b == nil {
		return nil
	}
	prefix := multimapPrefix(key)
	c := b.Cursor()
	for k, _, err := c.Seek(prefix); k != nil; k, _, err = c.Next() {
		if err != nil {
			return err
		}
		if len(k) < len(prefix) || string(k[:len(prefix)]) != string(prefix) {
			break
		}
		id := binary.BigEndian.Uint32(k[len(k)-4:])
		if !fn(id) {
			break
		}
	}
	return nil
}

// MultimapScanAll walks every (key, id) member of the whole bucket, in
// key-then-id order, decoding the original member key out of its
// composite row. Used by REGEX conditions, which must test every
// distinct member key rather than look one up by value.
func MultimapScanAll(b Bucket, fn func(key []byte, id uint32) bool) error {
	if b == nil {
		return nil
	}
	c := b.Cursor()
	for k, _, err := c.First(); k != nil; k, _, err = c.Next() {
		if err != nil {
			return err
		}
		if len(k) < 4 {
			continue
		}
		klen := binary.BigEndian.Uint32(k[:4])
		if uint32(len(k)) < 4+klen+4 {
			continue
		}
		origKey := k[4 : 4+klen]
		id := binary.BigEndian.Uint32(k[4+klen:])
		if !fn(origKey, id) {
			break
		}
	}
	return nil
}
