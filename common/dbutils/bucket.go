// Package dbutils holds the encoding and table-naming conventions that
// make up the on-disk contract of a MiniMongo database file: how a
// collection's tables are named, how a field name maps to a stable
// 32-bit field-ID, and how a float64 is encoded so that byte-order on
// an ordered KV substrate equals numeric order.
//
// Mirrors the role of the teacher's common/dbutils/bucket.go (which
// pinned turbo-geth's bucket names and DupSort configuration); here the
// "buckets" are per-collection tables instead of a fixed global list,
// so naming is a set of builder functions rather than a static slice.
package dbutils

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// fieldIDSeed is folded into every field-ID hash. It is part of the
// on-disk format: changing it invalidates every existing database file,
// since the reverse-f64 table (see ReverseF64Table) keys on it.
const fieldIDSeed uint32 = 0x6d6d6730 // "mmg0"

// FieldID returns the stable 32-bit hash of a field name used to key the
// <C>#f64#  reverse-lookup table (§3.2 of the spec). FNV-1a is used for
// its simplicity and stability across Go versions; it is not
// cryptographic and is not meant to be.
func FieldID(name string) uint32 {
	h := fnv.New32a()
	var seedBuf [4]byte
	binary.BigEndian.PutUint32(seedBuf[:], fieldIDSeed)
	_, _ = h.Write(seedBuf[:])
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}

// EncodeOrderedF64 transforms the IEEE-754 bit pattern of v into an
// unsigned, big-endian key such that byte-wise comparison of the result
// equals the numeric (IEEE total-order) comparison of the inputs.
//
// This is the "portable alternative" flagged in the spec's design notes:
// rather than relying on a substrate-level custom comparator over the
// raw little-endian float bytes (which does NOT sort numerically), the
// bits are remapped once at encode time so plain byte-order iteration
// on the substrate already walks records in ascending numeric order.
func EncodeOrderedF64(v float64) [8]byte {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		// Negative (or -0, -NaN): flip every bit so larger magnitude
		// negatives sort before smaller-magnitude negatives, and all
		// negatives sort before all non-negatives.
		bits = ^bits
	} else {
		// Non-negative: flip only the sign bit so it sorts after
		// every negative key.
		bits |= 1 << 63
	}
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], bits)
	return out
}

// DecodeOrderedF64 inverts EncodeOrderedF64.
func DecodeOrderedF64(key [8]byte) float64 {
	bits := binary.BigEndian.Uint64(key[:])
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// EncodeRecordID gives the big-endian uint32 encoding used for every
// record-ID key (payload table, f64 composite key suffix, primary/
// unique/multi index values).
func EncodeRecordID(id uint32) [4]byte {
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], id)
	return out
}

func DecodeRecordID(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// EncodeF64Key builds the composite (ordered-f64, record-ID) key used in
// <C>@f64@<F>.
func EncodeF64Key(v float64, id uint32) []byte {
	ev := EncodeOrderedF64(v)
	out := make([]byte, 12)
	copy(out[:8], ev[:])
	binary.BigEndian.PutUint32(out[8:], id)
	return out
}

// DecodeF64Key inverts EncodeF64Key.
func DecodeF64Key(k []byte) (float64, uint32) {
	var ev [8]byte
	copy(ev[:], k[:8])
	return DecodeOrderedF64(ev), binary.BigEndian.Uint32(k[8:12])
}

// EncodeReverseF64Key builds the (record-ID, field-ID) key used in
// <C>#f64#.
func EncodeReverseF64Key(id uint32, fieldID uint32) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint32(out[:4], id)
	binary.BigEndian.PutUint32(out[4:], fieldID)
	return out
}

// Table-name builders. These are pure string formatting, matching the
// "<C>@..." convention of spec §3.2; no bucket object is opened here.

func CollectionDefineTable() string { return "collection_define" }
func CounterTable() string          { return "counter" }
func PayloadTable(coll string) string { return coll }
func PrimaryTable(coll string) string { return fmt.Sprintf("%s@primary", coll) }

func StringUniqueTable(coll, field string) string {
	return fmt.Sprintf("%s@stringU@%s", coll, field)
}

func StringTable(coll, field string) string { return fmt.Sprintf("%s@string@%s", coll, field) }
func F64Table(coll, field string) string    { return fmt.Sprintf("%s@f64@%s", coll, field) }
func ReverseF64Table(coll string) string    { return fmt.Sprintf("%s#f64#", coll) }
