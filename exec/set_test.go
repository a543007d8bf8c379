package exec

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
)

func bm(ids ...uint32) *roaring.Bitmap {
	b := roaring.New()
	b.AddMany(ids)
	return b
}

func universe() *roaring.Bitmap { return bm(1, 2, 3, 4, 5) }

func materialize(s Set) *roaring.Bitmap {
	return s.Materialize(func() int { return int(universe().GetCardinality()) }, func() *roaring.Bitmap { return universe() })
}

func TestSetDoubleNegationIsIdentity(t *testing.T) {
	a := NewSet(bm(1, 2, 3))
	nn := a.Not().Not()
	if !materialize(a).Equals(materialize(nn)) {
		t.Errorf("NOT NOT A != A: got %v, want %v", materialize(nn).ToArray(), materialize(a).ToArray())
	}
}

func TestSetAndOrWithComplements(t *testing.T) {
	a := NewSet(bm(1, 2, 3))
	b := NewSet(bm(2, 3, 4))

	and := a.And(b)
	if !materialize(and).Equals(bm(2, 3)) {
		t.Errorf("A AND B = %v, want [2 3]", materialize(and).ToArray())
	}

	or := a.Or(b)
	if !materialize(or).Equals(bm(1, 2, 3, 4)) {
		t.Errorf("A OR B = %v, want [1 2 3 4]", materialize(or).ToArray())
	}

	// NOT A AND B == B minus A (De Morgan via the lazy-complement merge
	// table, not by enumerating the complement first).
	notAAndB := a.Not().And(b)
	if !materialize(notAAndB).Equals(bm(4)) {
		t.Errorf("NOT A AND B = %v, want [4]", materialize(notAAndB).ToArray())
	}

	// NOT A OR NOT B == NOT (A AND B), both complements.
	notAOrNotB := a.Not().Or(b.Not())
	notAandB := a.And(b).Not()
	if !materialize(notAOrNotB).Equals(materialize(notAandB)) {
		t.Errorf("De Morgan violated: NOT A OR NOT B = %v, NOT(A AND B) = %v",
			materialize(notAOrNotB).ToArray(), materialize(notAandB).ToArray())
	}

	// NOT A OR B == NOT (A - B), over {1..5}: NOT {1,2,3} OR {2,3,4} = NOT {1} = {2,3,4,5}.
	notAOrB := a.Not().Or(b)
	if !materialize(notAOrB).Equals(bm(2, 3, 4, 5)) {
		t.Errorf("NOT A OR B = %v, want [2 3 4 5]", materialize(notAOrB).ToArray())
	}

	// A OR NOT B == NOT (B - A), over {1..5}: {1,2,3} OR NOT {2,3,4} = NOT {4} = {1,2,3,5}.
	aOrNotB := a.Or(b.Not())
	if !materialize(aOrNotB).Equals(bm(1, 2, 3, 5)) {
		t.Errorf("A OR NOT B = %v, want [1 2 3 5]", materialize(aOrNotB).ToArray())
	}
}

func TestSetMaterializeGatesOnUniverseSize(t *testing.T) {
	huge := func() int { return MaxFullLen }
	full := func() *roaring.Bitmap { return bm(1, 2, 3) }

	s := ComplementOf(bm(1))
	got := s.Materialize(huge, full)
	if !got.IsEmpty() {
		t.Errorf("expected an empty result when the universe is at the materialization threshold, got %v", got.ToArray())
	}
}
