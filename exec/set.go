package exec

import "github.com/RoaringBitmap/roaring"

// MaxFullLen is the universe-size threshold under which a complement
// set may be materialized by full enumeration (spec §4.4.2,
// glossary "Complement set").
const MaxFullLen = 1000

// DefaultLimit is the page size applied when a SELECT carries no
// ORDERBY and no explicit LIMIT (spec §4.4).
const DefaultLimit = 10

// Set is the lazy-complement record-ID set of §4.4.2: either "exactly
// these IDs" or "every ID except these". Backed by a roaring.Bitmap
// rather than a bespoke BTree-of-uint32, since RoaringBitmap already
// gives O(words) union/intersect/difference over the record-ID domain
// (§3.1's uint32 record-IDs) — adapted from the sharded bitmap
// technique in ethdb/bitmapdb/dbutils.go, generalized from on-disk
// shards to a single in-memory bitmap per query-time set.
type Set struct {
	ids        *roaring.Bitmap
	complement bool
}

// NewSet wraps ids as an ordinary (non-complement) set.
func NewSet(ids *roaring.Bitmap) Set {
	if ids == nil {
		ids = roaring.New()
	}
	return Set{ids: ids}
}

// EmptySet is the ordinary empty set, the identity for OR.
func EmptySet() Set { return NewSet(roaring.New()) }

// ComplementOf returns "everything except ids".
func ComplementOf(ids *roaring.Bitmap) Set {
	if ids == nil {
		ids = roaring.New()
	}
	return Set{ids: ids, complement: true}
}

// Not toggles the complement flag without touching the backing bitmap,
// so a double negation is always the identity (¬¬A = A, spec §8) —
// unlike the source this is ported from, which evaluates the inner set
// eagerly and loses information on a leading NOT (see DESIGN.md).
func (s Set) Not() Set {
	return Set{ids: s.ids, complement: !s.complement}
}

// And implements the AND row of the §4.4.2 combinator table over all
// four normal/complement combinations.
func (s Set) And(o Set) Set {
	switch {
	case s.complement && o.complement:
		return ComplementOf(roaring.Or(s.ids, o.ids)) // A' AND B' = (A OR B)'
	case s.complement:
		return NewSet(roaring.AndNot(o.ids, s.ids)) // A' AND B = B - A
	case o.complement:
		return NewSet(roaring.AndNot(s.ids, o.ids)) // A AND B' = A - B
	default:
		return NewSet(roaring.And(s.ids, o.ids)) // A AND B = A ∩ B
	}
}

// Or implements the OR row of the §4.4.2 combinator table.
func (s Set) Or(o Set) Set {
	switch {
	case s.complement && o.complement:
		return ComplementOf(roaring.And(s.ids, o.ids)) // A' OR B' = (A ∩ B)'
	case s.complement:
		return ComplementOf(roaring.AndNot(s.ids, o.ids)) // A' OR B = (A - B)'
	case o.complement:
		return ComplementOf(roaring.AndNot(o.ids, s.ids)) // A OR B' = (B - A)'
	default:
		return NewSet(roaring.Or(s.ids, o.ids)) // A OR B = A ∪ B
	}
}

// Materialize resolves a Set to a concrete bitmap: an ordinary set
// resolves to itself; a complement set only enumerates when the
// collection's total record count is below MaxFullLen, otherwise it
// declines and returns empty (§4.4.2 "declines to enumerate huge
// universes"). fullSet is called at most once, and only when needed.
func (s Set) Materialize(universeSize func() int, fullSet func() *roaring.Bitmap) *roaring.Bitmap {
	if !s.complement {
		return s.ids
	}
	if universeSize() >= MaxFullLen {
		return roaring.New()
	}
	return roaring.AndNot(fullSet(), s.ids)
}

// IsComplement reports whether s currently represents a complement.
func (s Set) IsComplement() bool { return s.complement }
