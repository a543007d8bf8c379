package exec

import (
	"encoding/json"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/ledgerwatch/minimongo/common/dbutils"
	"github.com/ledgerwatch/minimongo/ethdb"
	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/query"
)

// orderedIDs implements ORDERBY execution (spec §4.4.3, grounded on
// order_record_ids): f64-indexed only. With no WHERE filter it range-
// scans the <C>@f64@<F> table directly; with a filter it looks each
// surviving ID's value up in the reverse table and sorts in memory,
// tie-breaking on ascending record-ID (stable sort over an
// ascending-ID input order, matching the source exactly). Any other
// field classification returns an empty list (§9 item 5).
//
// filtered is the already-materialized WHERE result (nil when the
// statement carries no WHERE clause), matching the source's
// order_record_ids taking a concrete, already-evaluated BTreeSet.
func orderedIDs(tx ethdb.Tx, collName string, def mmgdb.CollectionDef, ob *query.OrderBy, filtered *roaring.Bitmap, env *Environment) []uint32 {
	if def.Classify(ob.Field) != mmgdb.ClassF64 {
		return nil
	}

	skip := 0
	if ob.Skip != nil {
		skip = intOf(resolveLiteral(*ob.Skip, env))
	}
	limit := DefaultLimit
	if ob.Limit != nil {
		limit = intOf(resolveLiteral(*ob.Limit, env))
	}

	if filtered == nil {
		return orderByScan(tx.Bucket(dbutils.F64Table(collName, ob.Field)), ob.Desc, skip, limit)
	}
	return orderByFiltered(tx, collName, ob, filtered, skip, limit)
}

// orderByScan walks the f64 index table directly, ascending for ASC
// (cursor.First/Next) or descending for DESC (cursor.Last/Prev), then
// applies skip/limit.
func orderByScan(b ethdb.Bucket, desc bool, skip, limit int) []uint32 {
	if b == nil {
		return nil
	}
	var ids []uint32
	c := b.Cursor()
	step := c.Next
	k, _, err := c.First()
	if desc {
		step = c.Prev
		k, _, err = c.Last()
	}
	for ; k != nil && err == nil; k, _, err = step() {
		_, id := dbutils.DecodeF64Key(k)
		ids = append(ids, id)
	}
	return paginate(ids, skip, limit)
}

// orderByFiltered sorts a filtered ID set by its f64 value, read back
// from the reverse-lookup table.
func orderByFiltered(tx ethdb.Tx, collName string, ob *query.OrderBy, filtered *roaring.Bitmap, skip, limit int) []uint32 {
	reverseB := tx.Bucket(dbutils.ReverseF64Table(collName))
	if reverseB == nil {
		return nil
	}
	fieldID := dbutils.FieldID(ob.Field)

	type pair struct {
		value float64
		id    uint32
	}
	var pairs []pair

	it := filtered.Iterator()
	for it.HasNext() {
		id := it.Next()
		raw, err := reverseB.Get(dbutils.EncodeReverseF64Key(id, fieldID))
		if err != nil || raw == nil {
			continue
		}
		var v float64
		if json.Unmarshal(raw, &v) != nil {
			continue
		}
		pairs = append(pairs, pair{value: v, id: id})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if ob.Desc {
			return pairs[i].value > pairs[j].value
		}
		return pairs[i].value < pairs[j].value
	})

	ids := make([]uint32, len(pairs))
	for i, p := range pairs {
		ids[i] = p.id
	}
	return paginate(ids, skip, limit)
}

func paginate(ids []uint32, skip, limit int) []uint32 {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(ids) {
		return nil
	}
	ids = ids[skip:]
	if limit >= 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func intOf(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func bucketLen(b ethdb.Bucket) int {
	if b == nil {
		return 0
	}
	n := 0
	c := b.Cursor()
	for k, _, err := c.First(); k != nil && err == nil; k, _, err = c.Next() {
		n++
	}
	return n
}

func firstN(b ethdb.Bucket, n int) *roaring.Bitmap {
	out := roaring.New()
	if b == nil {
		return out
	}
	c := b.Cursor()
	count := 0
	for k, _, err := c.First(); k != nil && err == nil && count < n; k, _, err = c.Next() {
		out.Add(dbutils.DecodeRecordID(k))
		count++
	}
	return out
}
